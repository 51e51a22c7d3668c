package discuss

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nasermirzaei89/snapfeed/contents"
	"github.com/nasermirzaei89/snapfeed/store"
	"github.com/nasermirzaei89/snapfeed/validation"
)

const MaxCommentLength = 2000

type PostFinder interface {
	GetPost(ctx context.Context, postID string) (*contents.Post, error)
}

type Service struct {
	commentRepo CommentRepository
	posts       PostFinder
	now         func() time.Time
}

func NewService(commentRepo CommentRepository, posts PostFinder) *Service {
	return &Service{
		commentRepo: commentRepo,
		posts:       posts,
		now:         time.Now,
	}
}

type CreateCommentRequest struct {
	PostID     string
	AuthorID   string
	AuthorName string
	Text       string
	ParentID   string
}

func (svc *Service) CreateComment(ctx context.Context, req CreateCommentRequest) (*Comment, error) {
	text := strings.TrimSpace(req.Text)

	err := validation.First(
		validation.Required("postId", req.PostID),
		validation.Required("authorId", req.AuthorID),
		validation.Required("text", text),
		validation.MaxLength("text", text, MaxCommentLength),
	)
	if err != nil {
		return nil, err
	}

	_, err = svc.posts.GetPost(ctx, req.PostID)
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	var parentID *string

	if req.ParentID != "" {
		parent, err := svc.commentRepo.Find(ctx, req.ParentID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, &validation.Error{Field: "parentId", Reason: "must reference an existing comment"}
			}

			return nil, fmt.Errorf("failed to find parent comment: %w", err)
		}

		if parent.PostID != req.PostID {
			return nil, &validation.Error{Field: "parentId", Reason: "must reference a comment of the same post"}
		}

		parentID = &parent.ID
	}

	comment := &Comment{
		ID:         uuid.NewString(),
		PostID:     req.PostID,
		ParentID:   parentID,
		AuthorID:   req.AuthorID,
		AuthorName: req.AuthorName,
		Text:       text,
		CreatedAt:  svc.now().UTC(),
	}

	err = svc.commentRepo.Insert(ctx, comment)
	if err != nil {
		return nil, fmt.Errorf("failed to insert comment: %w", err)
	}

	return comment, nil
}

func (svc *Service) ListComments(ctx context.Context, postID string) ([]*Comment, error) {
	comments, err := svc.commentRepo.List(ctx, &ListCommentsParams{PostID: postID})
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	return comments, nil
}

// LoadThread fetches the comments of a post and projects them into a forest.
func (svc *Service) LoadThread(ctx context.Context, postID string) (*Forest, error) {
	comments, err := svc.ListComments(ctx, postID)
	if err != nil {
		return nil, err
	}

	return BuildForest(comments), nil
}

func (svc *Service) CountComments(ctx context.Context, postID string) (int, error) {
	count, err := svc.commentRepo.Count(ctx, postID)
	if err != nil {
		return 0, fmt.Errorf("failed to count comments: %w", err)
	}

	return count, nil
}
