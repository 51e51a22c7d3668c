package saved

import (
	"context"
	"time"

	"github.com/nasermirzaei89/snapfeed/contents"
)

// Entry is one row of a user's saved-post index.
type Entry struct {
	UserID  string    `json:"userId"`
	PostID  string    `json:"postId"`
	SavedAt time.Time `json:"savedAt"`
}

type EntryRepository interface {
	// Upsert creates the entry or overwrites the savedAt of an existing one.
	Upsert(ctx context.Context, entry *Entry) (err error)
	// Delete removes the entry. Deleting a missing entry is not an error.
	Delete(ctx context.Context, userID string, postID string) (err error)
	// ListByUser returns the entries of a user, most recently saved first.
	ListByUser(ctx context.Context, userID string) (entries []*Entry, err error)
}

// PostSaveRepository is the post side of the relationship.
type PostSaveRepository interface {
	Find(ctx context.Context, postID string) (post *contents.Post, err error)
	AddSavedBy(ctx context.Context, postID string, userID string) (err error)
	RemoveSavedBy(ctx context.Context, postID string, userID string) (err error)
	// ListSavedBy returns the ids of the posts whose savedBy contains userID.
	ListSavedBy(ctx context.Context, userID string) (postIDs []string, err error)
}

// Report lists what Reconcile changed in the index.
type Report struct {
	Created []string `json:"created"`
	Removed []string `json:"removed"`
}

func (r Report) Changed() bool {
	return len(r.Created) > 0 || len(r.Removed) > 0
}
