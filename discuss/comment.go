package discuss

import (
	"context"
	"fmt"
	"time"

	"github.com/nasermirzaei89/snapfeed/store"
)

type Comment struct {
	ID         string    `json:"id"`
	PostID     string    `json:"postId"`
	ParentID   *string   `json:"parentId"`
	AuthorID   string    `json:"userId"`
	AuthorName string    `json:"username"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
}

type CommentRepository interface {
	Insert(ctx context.Context, comment *Comment) (err error)
	Find(ctx context.Context, commentID string) (comment *Comment, err error)
	// List returns the comments of one post in ascending creation order.
	List(ctx context.Context, params *ListCommentsParams) (comments []*Comment, err error)
	Count(ctx context.Context, postID string) (count int, err error)
}

type ListCommentsParams struct {
	PostID string
}

type CommentNotFoundError struct {
	ID string
}

func (err CommentNotFoundError) Error() string {
	return fmt.Sprintf("comment with id %q not found", err.ID)
}

func (err CommentNotFoundError) Is(target error) bool {
	return target == store.ErrNotFound
}
