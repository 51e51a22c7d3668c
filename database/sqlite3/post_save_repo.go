package sqlite3

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/nasermirzaei89/snapfeed/saved"
	"github.com/nasermirzaei89/snapfeed/store"
)

var _ saved.PostSaveRepository = (*PostRepository)(nil)

func (repo *PostRepository) AddSavedBy(ctx context.Context, postID, userID string) error {
	err := repo.exists(ctx, postID)
	if err != nil {
		return err
	}

	err = addMember(ctx, runner(ctx, repo.db), tablePostSaves, postID, userID, time.Now())
	if err != nil {
		return store.Unavailable("add saved by", err)
	}

	return nil
}

func (repo *PostRepository) RemoveSavedBy(ctx context.Context, postID, userID string) error {
	err := removeMember(ctx, runner(ctx, repo.db), tablePostSaves, postID, userID)
	if err != nil {
		return store.Unavailable("remove saved by", err)
	}

	return nil
}

func (repo *PostRepository) ListSavedBy(ctx context.Context, userID string) ([]string, error) {
	q := sq.Select(memberFieldPostID).
		From(tablePostSaves).
		Where(sq.Eq{memberFieldUserID: userID}).
		OrderBy("rowid")

	q = q.RunWith(runner(ctx, repo.db))

	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, store.Unavailable("list saved by", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			slog.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	postIDs := make([]string, 0)

	for rows.Next() {
		var postID string

		err := rows.Scan(&postID)
		if err != nil {
			return nil, store.Unavailable("list saved by", fmt.Errorf("failed to scan post id: %w", err))
		}

		postIDs = append(postIDs, postID)
	}

	err = rows.Err()
	if err != nil {
		return nil, store.Unavailable("list saved by", err)
	}

	return postIDs, nil
}
