package sqlite3

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/nasermirzaei89/snapfeed/contents"
	"github.com/nasermirzaei89/snapfeed/store"
)

const tablePosts = "posts"

// PostRepository stores posts together with their likes and savedBy sets.
type PostRepository struct {
	db *sql.DB
}

var _ contents.PostRepository = (*PostRepository)(nil)

func NewPostRepository(db *sql.DB) *PostRepository {
	return &PostRepository{db: db}
}

const (
	postFieldID         = "id"
	postFieldAuthorID   = "author_id"
	postFieldAuthorName = "author_name"
	postFieldImageURL   = "image_url"
	postFieldCreatedAt  = "created_at"
)

func postColumns() []string {
	return []string{
		postFieldID,
		postFieldAuthorID,
		postFieldAuthorName,
		postFieldImageURL,
		postFieldCreatedAt,
	}
}

func scanPost(row sq.RowScanner) (*contents.Post, error) {
	post := contents.Post{
		Likes:   make([]string, 0),
		SavedBy: make([]string, 0),
	}

	err := row.Scan(
		&post.ID,
		&post.AuthorID,
		&post.AuthorName,
		&post.ImageURL,
		&post.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	post.CreatedAt = post.CreatedAt.UTC()

	return &post, nil
}

func (repo *PostRepository) Insert(ctx context.Context, post *contents.Post) error {
	q := sq.Insert(tablePosts).
		Columns(postColumns()...).
		Values(post.ID, post.AuthorID, post.AuthorName, post.ImageURL, post.CreatedAt.UTC())

	q = q.RunWith(runner(ctx, repo.db))

	_, err := q.ExecContext(ctx)
	if err != nil {
		return store.Unavailable("insert post", err)
	}

	return nil
}

func (repo *PostRepository) Find(ctx context.Context, postID string) (*contents.Post, error) {
	q := sq.Select(postColumns()...).
		From(tablePosts).
		Where(sq.Eq{postFieldID: postID})

	q = q.RunWith(runner(ctx, repo.db))

	post, err := scanPost(q.QueryRowContext(ctx))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contents.PostNotFoundError{ID: postID}
		}

		return nil, store.Unavailable("find post", err)
	}

	err = repo.loadMemberships(ctx, []*contents.Post{post})
	if err != nil {
		return nil, err
	}

	return post, nil
}

func (repo *PostRepository) ListPage(ctx context.Context, after *contents.PageKey, limit int) ([]*contents.Post, error) {
	q := sq.Select(postColumns()...).
		From(tablePosts).
		OrderBy(postFieldCreatedAt+" DESC", postFieldID+" DESC").
		Limit(uint64(max(limit, 0)))

	if after != nil {
		createdAt := after.CreatedAt.UTC()

		q = q.Where(sq.Or{
			sq.Lt{postFieldCreatedAt: createdAt},
			sq.And{
				sq.Eq{postFieldCreatedAt: createdAt},
				sq.Lt{postFieldID: after.ID},
			},
		})
	}

	return repo.list(ctx, "list posts page", q)
}

func (repo *PostRepository) ListByAuthor(ctx context.Context, authorID string) ([]*contents.Post, error) {
	q := sq.Select(postColumns()...).
		From(tablePosts).
		Where(sq.Eq{postFieldAuthorID: authorID}).
		OrderBy(postFieldCreatedAt+" DESC", postFieldID+" DESC")

	return repo.list(ctx, "list posts by author", q)
}

func (repo *PostRepository) list(ctx context.Context, op string, q sq.SelectBuilder) ([]*contents.Post, error) {
	posts, err := repo.queryPosts(ctx, q)
	if err != nil {
		return nil, store.Unavailable(op, err)
	}

	err = repo.loadMemberships(ctx, posts)
	if err != nil {
		return nil, err
	}

	return posts, nil
}

// queryPosts reads every row before returning so that the single pooled
// connection is free for the follow-up membership queries.
func (repo *PostRepository) queryPosts(ctx context.Context, q sq.SelectBuilder) ([]*contents.Post, error) {
	q = q.RunWith(runner(ctx, repo.db))

	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			slog.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	posts := make([]*contents.Post, 0)

	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}

		posts = append(posts, post)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return posts, nil
}

func (repo *PostRepository) loadMemberships(ctx context.Context, posts []*contents.Post) error {
	if len(posts) == 0 {
		return nil
	}

	byID := make(map[string]*contents.Post, len(posts))
	ids := make([]string, 0, len(posts))

	for _, post := range posts {
		byID[post.ID] = post
		ids = append(ids, post.ID)
	}

	likes, err := listMembers(ctx, runner(ctx, repo.db), tablePostLikes, ids)
	if err != nil {
		return store.Unavailable("list likes", err)
	}

	saves, err := listMembers(ctx, runner(ctx, repo.db), tablePostSaves, ids)
	if err != nil {
		return store.Unavailable("list saves", err)
	}

	for _, m := range likes {
		byID[m.postID].Likes = append(byID[m.postID].Likes, m.userID)
	}

	for _, m := range saves {
		byID[m.postID].SavedBy = append(byID[m.postID].SavedBy, m.userID)
	}

	return nil
}

// Delete removes the post. Its likes and savedBy rows go with it through the
// foreign key cascade; comments and saved index entries stay.
func (repo *PostRepository) Delete(ctx context.Context, postID string) error {
	q := sq.Delete(tablePosts).Where(sq.Eq{postFieldID: postID})

	q = q.RunWith(runner(ctx, repo.db))

	res, err := q.ExecContext(ctx)
	if err != nil {
		return store.Unavailable("delete post", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return store.Unavailable("delete post", err)
	}

	if affected == 0 {
		return contents.PostNotFoundError{ID: postID}
	}

	return nil
}

// exists is used by the membership writes to report a missing post instead
// of a foreign key violation.
func (repo *PostRepository) exists(ctx context.Context, postID string) error {
	q := sq.Select("1").
		From(tablePosts).
		Where(sq.Eq{postFieldID: postID})

	q = q.RunWith(runner(ctx, repo.db))

	var one int

	err := q.QueryRowContext(ctx).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return contents.PostNotFoundError{ID: postID}
		}

		return store.Unavailable("check post", err)
	}

	return nil
}
