package sqlite3

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/nasermirzaei89/snapfeed/saved"
	"github.com/nasermirzaei89/snapfeed/store"
)

const tableSavedPosts = "saved_posts"

// SavedPostRepository is the per-user saved index.
type SavedPostRepository struct {
	db *sql.DB
}

var _ saved.EntryRepository = (*SavedPostRepository)(nil)

func NewSavedPostRepository(db *sql.DB) *SavedPostRepository {
	return &SavedPostRepository{db: db}
}

const (
	savedPostFieldUserID  = "user_id"
	savedPostFieldPostID  = "post_id"
	savedPostFieldSavedAt = "saved_at"
)

func savedPostColumns() []string {
	return []string{
		savedPostFieldUserID,
		savedPostFieldPostID,
		savedPostFieldSavedAt,
	}
}

func scanSavedPost(row sq.RowScanner) (*saved.Entry, error) {
	var entry saved.Entry

	err := row.Scan(&entry.UserID, &entry.PostID, &entry.SavedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	entry.SavedAt = entry.SavedAt.UTC()

	return &entry, nil
}

func (repo *SavedPostRepository) Upsert(ctx context.Context, entry *saved.Entry) error {
	q := sq.Insert(tableSavedPosts).
		Columns(savedPostColumns()...).
		Values(entry.UserID, entry.PostID, entry.SavedAt.UTC()).
		Suffix(fmt.Sprintf(
			"ON CONFLICT (%s, %s) DO UPDATE SET %s = excluded.%s",
			savedPostFieldUserID, savedPostFieldPostID, savedPostFieldSavedAt, savedPostFieldSavedAt,
		))

	q = q.RunWith(runner(ctx, repo.db))

	_, err := q.ExecContext(ctx)
	if err != nil {
		return store.Unavailable("upsert saved post", err)
	}

	return nil
}

func (repo *SavedPostRepository) Delete(ctx context.Context, userID, postID string) error {
	q := sq.Delete(tableSavedPosts).
		Where(sq.Eq{savedPostFieldUserID: userID, savedPostFieldPostID: postID})

	q = q.RunWith(runner(ctx, repo.db))

	_, err := q.ExecContext(ctx)
	if err != nil {
		return store.Unavailable("delete saved post", err)
	}

	return nil
}

func (repo *SavedPostRepository) ListByUser(ctx context.Context, userID string) ([]*saved.Entry, error) {
	q := sq.Select(savedPostColumns()...).
		From(tableSavedPosts).
		Where(sq.Eq{savedPostFieldUserID: userID}).
		OrderBy(savedPostFieldSavedAt+" DESC", "rowid DESC")

	q = q.RunWith(runner(ctx, repo.db))

	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, store.Unavailable("list saved posts", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			slog.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	entries := make([]*saved.Entry, 0)

	for rows.Next() {
		entry, err := scanSavedPost(rows)
		if err != nil {
			return nil, store.Unavailable("list saved posts", err)
		}

		entries = append(entries, entry)
	}

	err = rows.Err()
	if err != nil {
		return nil, store.Unavailable("list saved posts", err)
	}

	return entries, nil
}
