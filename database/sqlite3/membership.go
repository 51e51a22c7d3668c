package sqlite3

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// post_likes and post_saves share one shape: a (post_id, user_id) set with
// the time each member joined.
const (
	tablePostLikes = "post_likes"
	tablePostSaves = "post_saves"
)

const (
	memberFieldPostID    = "post_id"
	memberFieldUserID    = "user_id"
	memberFieldCreatedAt = "created_at"
)

type member struct {
	postID string
	userID string
}

func addMember(ctx context.Context, runner sq.BaseRunner, table, postID, userID string, at time.Time) error {
	q := sq.Insert(table).
		Columns(memberFieldPostID, memberFieldUserID, memberFieldCreatedAt).
		Values(postID, userID, at.UTC()).
		Suffix("ON CONFLICT (" + memberFieldPostID + ", " + memberFieldUserID + ") DO NOTHING")

	_, err := q.RunWith(runner).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec insert: %w", err)
	}

	return nil
}

func removeMember(ctx context.Context, runner sq.BaseRunner, table, postID, userID string) error {
	q := sq.Delete(table).
		Where(sq.Eq{memberFieldPostID: postID, memberFieldUserID: userID})

	_, err := q.RunWith(runner).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec delete: %w", err)
	}

	return nil
}

// listMembers returns the members of the given posts in the order they joined.
func listMembers(ctx context.Context, runner sq.BaseRunner, table string, postIDs []string) ([]member, error) {
	q := sq.Select(memberFieldPostID, memberFieldUserID).
		From(table).
		Where(sq.Eq{memberFieldPostID: postIDs}).
		OrderBy("rowid")

	rows, err := q.RunWith(runner).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			slog.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	members := make([]member, 0)

	for rows.Next() {
		var m member

		err := rows.Scan(&m.postID, &m.userID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}

		members = append(members, m)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return members, nil
}
