package saved_test

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"testing"

	"github.com/nasermirzaei89/snapfeed/contents"
	"github.com/nasermirzaei89/snapfeed/saved"
	"github.com/nasermirzaei89/snapfeed/store"
	"github.com/nasermirzaei89/snapfeed/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu        sync.Mutex
	posts     map[string]*contents.Post
	entries   map[string]map[string]*saved.Entry
	upsertErr error
}

var (
	_ saved.PostSaveRepository = (*memoryStore)(nil)
	_ saved.EntryRepository    = (*memoryStore)(nil)
)

func newMemoryStore(postIDs ...string) *memoryStore {
	s := &memoryStore{
		posts:   make(map[string]*contents.Post),
		entries: make(map[string]map[string]*saved.Entry),
	}

	for _, id := range postIDs {
		s.posts[id] = &contents.Post{ID: id, Likes: []string{}, SavedBy: []string{}}
	}

	return s
}

func (s *memoryStore) Find(_ context.Context, postID string) (*contents.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[postID]
	if !ok {
		return nil, contents.PostNotFoundError{ID: postID}
	}

	clone := *post
	clone.SavedBy = slices.Clone(post.SavedBy)

	return &clone, nil
}

func (s *memoryStore) AddSavedBy(_ context.Context, postID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[postID]
	if ok && !slices.Contains(post.SavedBy, userID) {
		post.SavedBy = append(post.SavedBy, userID)
	}

	return nil
}

func (s *memoryStore) RemoveSavedBy(_ context.Context, postID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if post, ok := s.posts[postID]; ok {
		post.SavedBy = slices.DeleteFunc(post.SavedBy, func(id string) bool { return id == userID })
	}

	return nil
}

func (s *memoryStore) ListSavedBy(_ context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0)

	for id, post := range s.posts {
		if slices.Contains(post.SavedBy, userID) {
			ids = append(ids, id)
		}
	}

	sort.Strings(ids)

	return ids, nil
}

func (s *memoryStore) Upsert(_ context.Context, entry *saved.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.upsertErr != nil {
		return s.upsertErr
	}

	if s.entries[entry.UserID] == nil {
		s.entries[entry.UserID] = make(map[string]*saved.Entry)
	}

	s.entries[entry.UserID][entry.PostID] = entry

	return nil
}

func (s *memoryStore) Delete(_ context.Context, userID, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries[userID], postID)

	return nil
}

func (s *memoryStore) ListByUser(_ context.Context, userID string) ([]*saved.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]*saved.Entry, 0)
	for _, entry := range s.entries[userID] {
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].SavedAt.Equal(entries[j].SavedAt) {
			return entries[i].PostID > entries[j].PostID
		}

		return entries[i].SavedAt.After(entries[j].SavedAt)
	})

	return entries, nil
}

func (s *memoryStore) hasEntry(userID, postID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.entries[userID][postID]

	return ok
}

func (s *memoryStore) deletePost(postID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.posts, postID)
}

func TestSaveUnsaveConsistency(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newMemoryStore("p1")
	m := saved.NewManager(s, s, nil)

	require.NoError(t, m.Save(ctx, "p1", "u1"))
	require.NoError(t, m.Save(ctx, "p1", "u1"))

	post, err := s.Find(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, post.SavedBy)
	assert.True(t, s.hasEntry("u1", "p1"))

	isSaved, err := m.IsSaved(ctx, "p1", "u1")
	require.NoError(t, err)
	assert.True(t, isSaved)

	require.NoError(t, m.Unsave(ctx, "p1", "u1"))
	require.NoError(t, m.Unsave(ctx, "p1", "u1"))

	post, err = s.Find(ctx, "p1")
	require.NoError(t, err)
	assert.NotContains(t, post.SavedBy, "u1")
	assert.False(t, s.hasEntry("u1", "p1"))
}

func TestSaveMissingPost(t *testing.T) {
	t.Parallel()

	s := newMemoryStore()
	m := saved.NewManager(s, s, nil)

	err := m.Save(context.Background(), "ghost", "u1")
	require.ErrorIs(t, err, store.ErrNotFound)
	assert.False(t, s.hasEntry("u1", "ghost"))
}

func TestSaveValidation(t *testing.T) {
	t.Parallel()

	s := newMemoryStore("p1")
	m := saved.NewManager(s, s, nil)

	var validationErr *validation.Error

	require.ErrorAs(t, m.Save(context.Background(), "p1", ""), &validationErr)
	require.ErrorAs(t, m.Unsave(context.Background(), "", "u1"), &validationErr)

	_, err := m.ListSaved(context.Background(), "")
	require.ErrorAs(t, err, &validationErr)
}

func TestListSavedSkipsDeletedPosts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newMemoryStore("p1", "p2", "p3")
	m := saved.NewManager(s, s, nil)

	for _, id := range []string{"p1", "p2", "p3"} {
		require.NoError(t, m.Save(ctx, id, "u1"))
	}

	s.deletePost("p2")

	entries, err := s.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	posts, err := m.ListSaved(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, posts, len(entries)-1)

	for _, post := range posts {
		assert.NotEqual(t, "p2", post.ID)
	}
}

func TestReconcile(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newMemoryStore("p1", "p2", "p3")
	m := saved.NewManager(s, s, nil)

	require.NoError(t, m.Save(ctx, "p1", "u1"))

	// Flag written, entry lost.
	s.upsertErr = store.Unavailable("upsert", errors.New("disk full"))
	err := m.Save(ctx, "p2", "u1")
	require.Error(t, err)
	assert.True(t, store.IsUnavailable(err))
	s.upsertErr = nil

	// Entry without flag.
	require.NoError(t, s.Upsert(ctx, &saved.Entry{UserID: "u1", PostID: "p3"}))

	// Entry for a deleted post.
	require.NoError(t, m.Save(ctx, "p1", "u2"))
	require.NoError(t, s.Upsert(ctx, &saved.Entry{UserID: "u1", PostID: "gone"}))

	report, err := m.Reconcile(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, report.Changed())
	assert.Equal(t, []string{"p2"}, report.Created)
	assert.ElementsMatch(t, []string{"p3", "gone"}, report.Removed)

	assert.True(t, s.hasEntry("u1", "p1"))
	assert.True(t, s.hasEntry("u1", "p2"))
	assert.False(t, s.hasEntry("u1", "p3"))
	assert.False(t, s.hasEntry("u1", "gone"))
	assert.True(t, s.hasEntry("u2", "p1"))

	report, err = m.Reconcile(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, report.Changed())
}

type failingTransactor struct {
	err error
}

func (tx failingTransactor) WithinTx(context.Context, func(context.Context) error) error {
	return tx.err
}

func TestSaveSurfacesTransactionFailure(t *testing.T) {
	t.Parallel()

	s := newMemoryStore("p1")
	m := saved.NewManager(s, s, failingTransactor{err: store.Unavailable("begin tx", errors.New("locked"))})

	err := m.Save(context.Background(), "p1", "u1")
	require.Error(t, err)
	assert.True(t, store.IsUnavailable(err))

	_, err = m.Reconcile(context.Background(), "u1")
	require.Error(t, err)
	assert.True(t, store.IsUnavailable(err))
}
