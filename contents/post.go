package contents

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/nasermirzaei89/snapfeed/store"
)

type Post struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"userId"`
	AuthorName string    `json:"username"`
	ImageURL   string    `json:"imageURL"`
	Likes      []string  `json:"likes"`
	SavedBy    []string  `json:"savedBy"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (post *Post) LikedBy(userID string) bool {
	return slices.Contains(post.Likes, userID)
}

func (post *Post) IsSavedBy(userID string) bool {
	return slices.Contains(post.SavedBy, userID)
}

// PageKey addresses a position in the feed order (created_at DESC, id DESC).
type PageKey struct {
	CreatedAt time.Time
	ID        string
}

func (post *Post) PageKey() PageKey {
	return PageKey{CreatedAt: post.CreatedAt, ID: post.ID}
}

type PostRepository interface {
	Insert(ctx context.Context, post *Post) (err error)
	Find(ctx context.Context, postID string) (post *Post, err error)
	// ListPage returns at most limit posts strictly after key in feed order,
	// or the newest posts when key is nil.
	ListPage(ctx context.Context, after *PageKey, limit int) (posts []*Post, err error)
	ListByAuthor(ctx context.Context, authorID string) (posts []*Post, err error)
	Delete(ctx context.Context, postID string) (err error)
}

type EventPublisher interface {
	PublishPostCreated(ctx context.Context, post *Post) (err error)
	PublishPostDeleted(ctx context.Context, postID string) (err error)
}

type PostNotFoundError struct {
	ID string
}

func (err PostNotFoundError) Error() string {
	return fmt.Sprintf("post with id %q not found", err.ID)
}

func (err PostNotFoundError) Is(target error) bool {
	return target == store.ErrNotFound
}

type NotAuthorError struct {
	PostID string
	UserID string
}

func (err NotAuthorError) Error() string {
	return fmt.Sprintf("user %q is not the author of post %q", err.UserID, err.PostID)
}

// NopPublisher drops every event.
type NopPublisher struct{}

var _ EventPublisher = NopPublisher{}

func (NopPublisher) PublishPostCreated(context.Context, *Post) error { return nil }
func (NopPublisher) PublishPostDeleted(context.Context, string) error { return nil }
