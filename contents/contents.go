package contents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nasermirzaei89/snapfeed/validation"
)

type Service struct {
	postRepo  PostRepository
	publisher EventPublisher
	now       func() time.Time
}

func NewService(postRepo PostRepository, publisher EventPublisher) *Service {
	if publisher == nil {
		publisher = NopPublisher{}
	}

	return &Service{
		postRepo:  postRepo,
		publisher: publisher,
		now:       time.Now,
	}
}

type CreatePostRequest struct {
	AuthorID   string
	AuthorName string
	ImageURL   string
}

func (svc *Service) CreatePost(ctx context.Context, req CreatePostRequest) (*Post, error) {
	err := validation.First(
		validation.Required("authorId", req.AuthorID),
		validation.HTTPURL("imageUrl", req.ImageURL),
	)
	if err != nil {
		return nil, err
	}

	post := &Post{
		ID:         uuid.NewString(),
		AuthorID:   req.AuthorID,
		AuthorName: req.AuthorName,
		ImageURL:   req.ImageURL,
		Likes:      []string{},
		SavedBy:    []string{},
		CreatedAt:  svc.now().UTC(),
	}

	err = svc.postRepo.Insert(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	// The post is stored; a lost event only delays downstream consumers.
	err = svc.publisher.PublishPostCreated(ctx, post)
	if err != nil {
		slog.ErrorContext(ctx, "failed to publish post created event", "postId", post.ID, "error", err)
	}

	return post, nil
}

func (svc *Service) GetPost(ctx context.Context, postID string) (*Post, error) {
	post, err := svc.postRepo.Find(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}

	return post, nil
}

func (svc *Service) ListPage(ctx context.Context, after *PageKey, limit int) ([]*Post, error) {
	posts, err := svc.postRepo.ListPage(ctx, after, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts page: %w", err)
	}

	return posts, nil
}

func (svc *Service) ListPostsByAuthor(ctx context.Context, authorID string) ([]*Post, error) {
	err := validation.Required("authorId", authorID)
	if err != nil {
		return nil, err
	}

	posts, err := svc.postRepo.ListByAuthor(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts by author: %w", err)
	}

	return posts, nil
}

// DeletePost removes a post owned by userID. Comments and saved index entries
// pointing at it are left in place.
func (svc *Service) DeletePost(ctx context.Context, postID, userID string) error {
	post, err := svc.postRepo.Find(ctx, postID)
	if err != nil {
		return fmt.Errorf("failed to find post: %w", err)
	}

	if post.AuthorID != userID {
		return NotAuthorError{PostID: postID, UserID: userID}
	}

	err = svc.postRepo.Delete(ctx, postID)
	if err != nil {
		var notFoundErr PostNotFoundError
		if !errors.As(err, &notFoundErr) {
			return fmt.Errorf("failed to delete post: %w", err)
		}
	}

	err = svc.publisher.PublishPostDeleted(ctx, postID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to publish post deleted event", "postId", postID, "error", err)
	}

	return nil
}
