package sqlite3

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/nasermirzaei89/snapfeed/discuss"
	"github.com/nasermirzaei89/snapfeed/store"
)

const tableComments = "comments"

type CommentRepository struct {
	db *sql.DB
}

var _ discuss.CommentRepository = (*CommentRepository)(nil)

func NewCommentRepository(db *sql.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

const (
	commentFieldID         = "id"
	commentFieldPostID     = "post_id"
	commentFieldParentID   = "parent_id"
	commentFieldAuthorID   = "author_id"
	commentFieldAuthorName = "author_name"
	commentFieldText       = "text"
	commentFieldCreatedAt  = "created_at"
)

func commentColumns() []string {
	return []string{
		commentFieldID,
		commentFieldPostID,
		commentFieldParentID,
		commentFieldAuthorID,
		commentFieldAuthorName,
		commentFieldText,
		commentFieldCreatedAt,
	}
}

func scanComment(row sq.RowScanner) (*discuss.Comment, error) {
	var (
		comment  discuss.Comment
		parentID sql.NullString
	)

	err := row.Scan(
		&comment.ID,
		&comment.PostID,
		&parentID,
		&comment.AuthorID,
		&comment.AuthorName,
		&comment.Text,
		&comment.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	if parentID.Valid {
		comment.ParentID = &parentID.String
	}

	comment.CreatedAt = comment.CreatedAt.UTC()

	return &comment, nil
}

func (repo *CommentRepository) Insert(ctx context.Context, comment *discuss.Comment) error {
	q := sq.Insert(tableComments).
		Columns(commentColumns()...).
		Values(
			comment.ID,
			comment.PostID,
			comment.ParentID,
			comment.AuthorID,
			comment.AuthorName,
			comment.Text,
			comment.CreatedAt.UTC(),
		)

	q = q.RunWith(runner(ctx, repo.db))

	_, err := q.ExecContext(ctx)
	if err != nil {
		return store.Unavailable("insert comment", err)
	}

	return nil
}

func (repo *CommentRepository) Find(ctx context.Context, commentID string) (*discuss.Comment, error) {
	q := sq.Select(commentColumns()...).
		From(tableComments).
		Where(sq.Eq{commentFieldID: commentID})

	q = q.RunWith(runner(ctx, repo.db))

	comment, err := scanComment(q.QueryRowContext(ctx))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, discuss.CommentNotFoundError{ID: commentID}
		}

		return nil, store.Unavailable("find comment", err)
	}

	return comment, nil
}

func (repo *CommentRepository) List(
	ctx context.Context,
	params *discuss.ListCommentsParams,
) ([]*discuss.Comment, error) {
	query := sq.Select(commentColumns()...).
		From(tableComments).
		OrderBy(commentFieldCreatedAt+" ASC", "rowid ASC")

	if params.PostID != "" {
		query = query.Where(sq.Eq{commentFieldPostID: params.PostID})
	}

	query = query.RunWith(runner(ctx, repo.db))

	rows, err := query.QueryContext(ctx)
	if err != nil {
		return nil, store.Unavailable("list comments", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			slog.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	comments := make([]*discuss.Comment, 0)

	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, store.Unavailable("list comments", err)
		}

		comments = append(comments, comment)
	}

	err = rows.Err()
	if err != nil {
		return nil, store.Unavailable("list comments", fmt.Errorf("rows iteration failed: %w", err))
	}

	return comments, nil
}

func (repo *CommentRepository) Count(ctx context.Context, postID string) (int, error) {
	q := sq.Select("COUNT(*)").
		From(tableComments).
		Where(sq.Eq{commentFieldPostID: postID})

	q = q.RunWith(runner(ctx, repo.db))

	var count int

	err := q.QueryRowContext(ctx).Scan(&count)
	if err != nil {
		return 0, store.Unavailable("count comments", err)
	}

	return count, nil
}
