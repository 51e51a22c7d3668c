package web_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/nasermirzaei89/snapfeed/contents"
	"github.com/nasermirzaei89/snapfeed/database/sqlite3"
	"github.com/nasermirzaei89/snapfeed/discuss"
	"github.com/nasermirzaei89/snapfeed/feed"
	"github.com/nasermirzaei89/snapfeed/identity"
	"github.com/nasermirzaei89/snapfeed/reactions"
	"github.com/nasermirzaei89/snapfeed/saved"
	"github.com/nasermirzaei89/snapfeed/store"
	"github.com/nasermirzaei89/snapfeed/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	db          *sql.DB
	postRepo    *sqlite3.PostRepository
	cookieStore sessions.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ctx := context.Background()

	db, err := sqlite3.NewDB(ctx, fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})

	require.NoError(t, sqlite3.MigrateUp(ctx, db))

	return &testEnv{
		db:          db,
		postRepo:    sqlite3.NewPostRepository(db),
		cookieStore: sessions.NewCookieStore([]byte("0123456789abcdef0123456789abcdef")),
	}
}

func (e *testEnv) handler(
	likeRepo reactions.LikeRepository,
	watcher *identity.Watcher,
	opts ...web.HandlerOption,
) *web.Handler {
	if likeRepo == nil {
		likeRepo = e.postRepo
	}

	contentsSvc := contents.NewService(e.postRepo, nil)

	return web.NewHandler(
		feed.New(contentsSvc),
		contentsSvc,
		discuss.NewService(sqlite3.NewCommentRepository(e.db), contentsSvc),
		reactions.NewToggler(likeRepo, reactions.NewLocalGuard(), nil),
		saved.NewManager(e.postRepo, sqlite3.NewSavedPostRepository(e.db), sqlite3.NewTransactor(e.db)),
		e.cookieStore,
		"snapfeed-test",
		watcher,
		opts...,
	)
}

func newTestHandler(t *testing.T) *web.Handler {
	t.Helper()

	return newTestEnv(t).handler(nil, nil, web.WithSessionHandOff())
}

func newTestHandlerWithWatcher(t *testing.T, watcher *identity.Watcher) *web.Handler {
	t.Helper()

	return newTestEnv(t).handler(nil, watcher, web.WithSessionHandOff())
}

type client struct {
	t       *testing.T
	handler http.Handler
	cookies []*http.Cookie
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)

	if cookies := rec.Result().Cookies(); len(cookies) > 0 {
		c.cookies = cookies
	}

	return rec
}

func (c *client) signIn(userID, name string) {
	c.t.Helper()

	rec := c.do(http.MethodPut, "/session", map[string]string{"userId": userID, "displayName": name})
	require.Equal(c.t, http.StatusNoContent, rec.Code)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))

	return v
}

func TestHealth(t *testing.T) {
	t.Parallel()

	c := &client{t: t, handler: newTestHandler(t)}

	rec := c.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestSessionHandOffReportsToWatcher(t *testing.T) {
	t.Parallel()

	watcher := identity.NewWatcher()

	var states []identity.State

	unsubscribe := watcher.Subscribe(func(state identity.State, _ *identity.Identity) {
		states = append(states, state)
	})
	defer unsubscribe()

	c := &client{t: t, handler: newTestHandlerWithWatcher(t, watcher)}
	c.signIn("u1", "Ada")

	state, current := watcher.Current()
	assert.Equal(t, identity.SignedIn, state)
	require.NotNil(t, current)
	assert.Equal(t, "u1", current.UserID)

	rec := c.do(http.MethodDelete, "/session", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	assert.Equal(t, []identity.State{identity.SignedIn, identity.Anonymous}, states)
}

func TestWatcherDoesNotDecideRequestIdentity(t *testing.T) {
	t.Parallel()

	watcher := identity.NewWatcher()
	handler := newTestHandlerWithWatcher(t, watcher)

	first := &client{t: t, handler: handler}
	first.signIn("u1", "Ada")

	second := &client{t: t, handler: handler}
	second.signIn("u2", "Bob")

	_, current := watcher.Current()
	require.NotNil(t, current)
	assert.Equal(t, "u2", current.UserID)

	rec := first.do(http.MethodPost, "/api/posts", map[string]string{"imageURL": "https://img.example.com/a.png"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "u1", decode[contents.Post](t, rec).AuthorID)
}

func TestSessionHandOffIsDisabledByDefault(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	alice := &client{t: t, handler: env.handler(nil, nil, web.WithSessionHandOff())}
	alice.signIn("alice", "Alice")

	rec := alice.do(http.MethodPost, "/api/posts", map[string]string{"imageURL": "https://img.example.com/a.png"})
	require.Equal(t, http.StatusCreated, rec.Code)

	postID := decode[contents.Post](t, rec).ID

	handler := env.handler(nil, nil)
	intruder := &client{t: t, handler: handler}

	rec = intruder.do(http.MethodPut, "/session", map[string]string{"userId": "alice"})
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Empty(t, intruder.cookies)

	rec = intruder.do(http.MethodDelete, "/api/posts/"+postID, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	alice.handler = handler

	rec = alice.do(http.MethodGet, "/api/posts/"+postID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = alice.do(http.MethodGet, "/api/users/me/posts", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

type failingLikeRepo struct {
	reactions.LikeRepository
}

func (failingLikeRepo) AddLike(context.Context, string, string) error {
	return store.Unavailable("add like", errors.New("disk full"))
}

func TestToggleLikeFailureKeepsOptimisticLikes(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	author := &client{t: t, handler: env.handler(nil, nil, web.WithSessionHandOff())}
	author.signIn("author", "Author")

	rec := author.do(http.MethodPost, "/api/posts", map[string]string{"imageURL": "https://img.example.com/a.png"})
	require.Equal(t, http.StatusCreated, rec.Code)

	postID := decode[contents.Post](t, rec).ID

	reader := &client{t: t, handler: env.handler(failingLikeRepo{env.postRepo}, nil, web.WithSessionHandOff())}
	reader.signIn("reader", "Reader")

	rec = reader.do(http.MethodPost, "/api/posts/"+postID+"/like", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	type failure struct {
		Error string   `json:"error"`
		Likes []string `json:"likes"`
		Liked bool     `json:"liked"`
	}

	resp := decode[failure](t, rec)
	assert.NotEmpty(t, resp.Error)
	assert.Equal(t, []string{"reader"}, resp.Likes)
	assert.True(t, resp.Liked)

	likes, err := env.postRepo.FindLikes(context.Background(), postID)
	require.NoError(t, err)
	assert.Empty(t, likes)
}

func TestAnonymousInteractionsAreRejected(t *testing.T) {
	t.Parallel()

	c := &client{t: t, handler: newTestHandler(t)}

	rec := c.do(http.MethodPost, "/api/posts", map[string]string{"imageURL": "https://img.example.com/a.png"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = c.do(http.MethodPost, "/api/posts/p1/like", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = c.do(http.MethodGet, "/api/feed", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFeedFlow(t *testing.T) {
	t.Parallel()

	c := &client{t: t, handler: newTestHandler(t)}
	c.signIn("u1", "Ada")

	for i := range 3 {
		rec := c.do(http.MethodPost, "/api/posts", map[string]string{
			"imageURL": fmt.Sprintf("https://img.example.com/%d.png", i),
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		post := decode[contents.Post](t, rec)
		assert.Equal(t, "u1", post.AuthorID)
		assert.Equal(t, "Ada", post.AuthorName)
	}

	rec := c.do(http.MethodPost, "/api/posts", map[string]string{"imageURL": "not a url"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	type page struct {
		Items      []contents.Post `json:"items"`
		NextCursor *string         `json:"nextCursor"`
		Exhausted  bool            `json:"exhausted"`
	}

	first := decode[page](t, c.do(http.MethodGet, "/api/feed", nil))
	require.Len(t, first.Items, 2)
	require.NotNil(t, first.NextCursor)
	assert.False(t, first.Exhausted)

	second := decode[page](t, c.do(http.MethodGet, "/api/feed?cursor="+*first.NextCursor, nil))
	require.Len(t, second.Items, 1)
	assert.True(t, second.Exhausted)
	assert.Nil(t, second.NextCursor)

	seen := map[string]bool{}
	for _, post := range append(first.Items, second.Items...) {
		assert.False(t, seen[post.ID])
		seen[post.ID] = true
	}

	all := decode[page](t, c.do(http.MethodGet, "/api/feed?limit=10", nil))
	assert.Len(t, all.Items, 3)

	rec = c.do(http.MethodGet, "/api/feed?cursor=%25%25", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.do(http.MethodGet, "/api/feed?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostInteractions(t *testing.T) {
	t.Parallel()

	handler := newTestHandler(t)
	author := &client{t: t, handler: handler}
	author.signIn("author", "Author")

	rec := author.do(http.MethodPost, "/api/posts", map[string]string{"imageURL": "https://img.example.com/a.png"})
	require.Equal(t, http.StatusCreated, rec.Code)

	postID := decode[contents.Post](t, rec).ID

	reader := &client{t: t, handler: handler}
	reader.signIn("reader", "Reader")

	type like struct {
		Likes []string `json:"likes"`
		Liked bool     `json:"liked"`
	}

	liked := decode[like](t, reader.do(http.MethodPost, "/api/posts/"+postID+"/like", nil))
	assert.True(t, liked.Liked)
	assert.Equal(t, []string{"reader"}, liked.Likes)

	unliked := decode[like](t, reader.do(http.MethodPost, "/api/posts/"+postID+"/like", nil))
	assert.False(t, unliked.Liked)
	assert.Empty(t, unliked.Likes)

	rec = reader.do(http.MethodPost, "/api/posts/missing/like", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Comments and replies.
	rec = reader.do(http.MethodPost, "/api/posts/"+postID+"/comments", map[string]string{"text": "nice"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rootID := decode[discuss.Comment](t, rec).ID

	rec = author.do(http.MethodPost, "/api/posts/"+postID+"/comments", map[string]string{"text": "thanks", "parentId": rootID})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = author.do(http.MethodPost, "/api/posts/"+postID+"/comments", map[string]string{"text": " "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	type node struct {
		ID      string `json:"id"`
		Replies []node `json:"replies"`
	}

	type thread struct {
		Comments []node `json:"comments"`
		Count    int    `json:"count"`
	}

	th := decode[thread](t, reader.do(http.MethodGet, "/api/posts/"+postID+"/comments", nil))
	require.Len(t, th.Comments, 1)
	assert.Equal(t, rootID, th.Comments[0].ID)
	assert.Len(t, th.Comments[0].Replies, 1)
	assert.Equal(t, 2, th.Count)

	// Saving.
	rec = reader.do(http.MethodPut, "/api/posts/"+postID+"/save", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	type list struct {
		Items []contents.Post `json:"items"`
	}

	savedList := decode[list](t, reader.do(http.MethodGet, "/api/users/me/saved", nil))
	require.Len(t, savedList.Items, 1)
	assert.Equal(t, []string{"reader"}, savedList.Items[0].SavedBy)

	// Only the author can delete.
	rec = reader.do(http.MethodDelete, "/api/posts/"+postID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	mine := decode[list](t, author.do(http.MethodGet, "/api/users/me/posts", nil))
	assert.Len(t, mine.Items, 1)

	rec = author.do(http.MethodDelete, "/api/posts/"+postID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = reader.do(http.MethodGet, "/api/posts/"+postID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	savedList = decode[list](t, reader.do(http.MethodGet, "/api/users/me/saved", nil))
	assert.Empty(t, savedList.Items)

	report := decode[saved.Report](t, reader.do(http.MethodPost, "/api/users/me/saved/reconcile", nil))
	assert.Equal(t, []string{postID}, report.Removed)

	rec = reader.do(http.MethodDelete, "/session", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = reader.do(http.MethodGet, "/api/users/me/saved", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
