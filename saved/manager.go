// Package saved keeps a post's savedBy set and the per-user saved index in
// step with each other.
package saved

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nasermirzaei89/snapfeed/contents"
	"github.com/nasermirzaei89/snapfeed/store"
	"github.com/nasermirzaei89/snapfeed/validation"
)

type Manager struct {
	postRepo  PostSaveRepository
	entryRepo EntryRepository
	tx        store.Transactor
	now       func() time.Time
}

func NewManager(postRepo PostSaveRepository, entryRepo EntryRepository, tx store.Transactor) *Manager {
	if tx == nil {
		tx = store.NopTransactor{}
	}

	return &Manager{
		postRepo:  postRepo,
		entryRepo: entryRepo,
		tx:        tx,
		now:       time.Now,
	}
}

func validateKey(postID, userID string) error {
	return validation.First(
		validation.Required("postId", postID),
		validation.Required("userId", userID),
	)
}

// Save adds userID to the post's savedBy and records the index entry. Both
// writes are idempotent, so a failed Save can be retried as is.
func (m *Manager) Save(ctx context.Context, postID, userID string) error {
	err := validateKey(postID, userID)
	if err != nil {
		return err
	}

	_, err = m.postRepo.Find(ctx, postID)
	if err != nil {
		return fmt.Errorf("failed to find post: %w", err)
	}

	err = m.tx.WithinTx(ctx, func(ctx context.Context) error {
		err := m.postRepo.AddSavedBy(ctx, postID, userID)
		if err != nil {
			return fmt.Errorf("failed to add to saved by: %w", err)
		}

		err = m.entryRepo.Upsert(ctx, &Entry{UserID: userID, PostID: postID, SavedAt: m.now().UTC()})
		if err != nil {
			return fmt.Errorf("failed to upsert saved entry: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save post: %w", err)
	}

	return nil
}

// Unsave reverses Save. It succeeds for posts that no longer exist so that
// dangling entries can always be removed.
func (m *Manager) Unsave(ctx context.Context, postID, userID string) error {
	err := validateKey(postID, userID)
	if err != nil {
		return err
	}

	err = m.tx.WithinTx(ctx, func(ctx context.Context) error {
		err := m.postRepo.RemoveSavedBy(ctx, postID, userID)
		if err != nil {
			return fmt.Errorf("failed to remove from saved by: %w", err)
		}

		err = m.entryRepo.Delete(ctx, userID, postID)
		if err != nil {
			return fmt.Errorf("failed to delete saved entry: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to unsave post: %w", err)
	}

	return nil
}

// ListSaved resolves the user's index to live posts. Entries whose post is
// gone are skipped, so the result can be shorter than the index.
func (m *Manager) ListSaved(ctx context.Context, userID string) ([]*contents.Post, error) {
	err := validation.Required("userId", userID)
	if err != nil {
		return nil, err
	}

	entries, err := m.entryRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved entries: %w", err)
	}

	posts := make([]*contents.Post, 0, len(entries))

	for _, entry := range entries {
		post, err := m.postRepo.Find(ctx, entry.PostID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				slog.DebugContext(ctx, "skipping saved entry of missing post", "userId", userID, "postId", entry.PostID)

				continue
			}

			return nil, fmt.Errorf("failed to find saved post: %w", err)
		}

		posts = append(posts, post)
	}

	return posts, nil
}

func (m *Manager) IsSaved(ctx context.Context, postID, userID string) (bool, error) {
	post, err := m.postRepo.Find(ctx, postID)
	if err != nil {
		return false, fmt.Errorf("failed to find post: %w", err)
	}

	return post.IsSavedBy(userID), nil
}

// Reconcile repairs drift between the two sides for one user. The savedBy
// set is written first and is taken as the truth: a flag without an entry gets
// an entry, and an entry without a flag, including one whose post is gone, is
// removed.
func (m *Manager) Reconcile(ctx context.Context, userID string) (Report, error) {
	report := Report{Created: make([]string, 0), Removed: make([]string, 0)}

	err := validation.Required("userId", userID)
	if err != nil {
		return report, err
	}

	err = m.tx.WithinTx(ctx, func(ctx context.Context) error {
		flagged, err := m.postRepo.ListSavedBy(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to list posts saved by user: %w", err)
		}

		entries, err := m.entryRepo.ListByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to list saved entries: %w", err)
		}

		flaggedSet := make(map[string]struct{}, len(flagged))
		for _, postID := range flagged {
			flaggedSet[postID] = struct{}{}
		}

		indexed := make(map[string]struct{}, len(entries))

		for _, entry := range entries {
			indexed[entry.PostID] = struct{}{}

			if _, ok := flaggedSet[entry.PostID]; ok {
				continue
			}

			err = m.entryRepo.Delete(ctx, userID, entry.PostID)
			if err != nil {
				return fmt.Errorf("failed to delete drifted entry: %w", err)
			}

			report.Removed = append(report.Removed, entry.PostID)
		}

		for _, postID := range flagged {
			if _, ok := indexed[postID]; ok {
				continue
			}

			err = m.entryRepo.Upsert(ctx, &Entry{UserID: userID, PostID: postID, SavedAt: m.now().UTC()})
			if err != nil {
				return fmt.Errorf("failed to create missing entry: %w", err)
			}

			report.Created = append(report.Created, postID)
		}

		return nil
	})
	if err != nil {
		return Report{Created: make([]string, 0), Removed: make([]string, 0)}, fmt.Errorf("failed to reconcile saved index: %w", err)
	}

	if report.Changed() {
		slog.InfoContext(ctx, "saved index reconciled", "userId", userID, "created", len(report.Created), "removed", len(report.Removed))
	}

	return report, nil
}
