package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dvs-teja/webanalytics/docstore"
	"github.com/dvs-teja/webanalytics/models"
)

const testUserEmail = "u@x.com"

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestTracker(store docstore.Store) (*Tracker, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	tr := New(store, nil, zap.NewNop())
	tr.now = clock.Now
	return tr, clock
}

func loadSession(t *testing.T, store docstore.Store, sessionID string) models.Session {
	t.Helper()
	doc, err := store.Get(context.Background(), models.AnalyticsCollection, sessionID)
	require.NoError(t, err)
	return models.SessionFromDocument(sessionID, doc)
}

func TestStartSessionPersistsInitialDocument(t *testing.T) {
	store := docstore.NewMemoryStore()
	tr, _ := newTestTracker(store)

	tr.StartSession(context.Background(), testUserEmail)

	session := loadSession(t, store, "u@x.com_1000")
	require.Equal(t, testUserEmail, session.UserEmail)
	require.Equal(t, float64(1000), session.LoginTime)
	require.Empty(t, session.Pages)
}

func TestPageTransitionClosesPreviousInterval(t *testing.T) {
	store := docstore.NewMemoryStore()
	tr, clock := newTestTracker(store)

	tr.StartPageTracking(context.Background(), "home", testUserEmail)
	clock.Advance(90 * time.Second)
	tr.StartPageTracking(context.Background(), "shop", testUserEmail)

	session := loadSession(t, store, "u@x.com_1000")

	home := session.Pages["home"]
	require.Equal(t, 1.5, home.TimeSpentMinutes)
	require.Equal(t, float64(1090), home.ExitTime)
	require.Equal(t, float64(1000), home.EntryTime)
	// Closing an interval never touches the visit counter.
	require.Equal(t, 1, home.Visits)

	shop := session.Pages["shop"]
	require.Equal(t, 1, shop.Visits)
	require.Equal(t, float64(1090), shop.EntryTime)
}

func TestRevisitIncrementsVisitsAndAccumulatesTime(t *testing.T) {
	store := docstore.NewMemoryStore()
	tr, clock := newTestTracker(store)
	ctx := context.Background()

	tr.StartPageTracking(ctx, "home", testUserEmail)
	clock.Advance(60 * time.Second)
	tr.StartPageTracking(ctx, "shop", testUserEmail)
	clock.Advance(60 * time.Second)
	tr.StartPageTracking(ctx, "home", testUserEmail)
	clock.Advance(120 * time.Second)
	tr.StartPageTracking(ctx, "shop", testUserEmail)

	session := loadSession(t, store, "u@x.com_1000")

	home := session.Pages["home"]
	require.Equal(t, 2, home.Visits)
	require.Equal(t, 3.0, home.TimeSpentMinutes) // 1 min + 2 min across revisits

	shop := session.Pages["shop"]
	require.Equal(t, 2, shop.Visits)
}

func TestEndSessionFinalizesTotals(t *testing.T) {
	store := docstore.NewMemoryStore()
	tr, clock := newTestTracker(store)
	ctx := context.Background()

	tr.StartSession(ctx, testUserEmail)
	tr.StartPageTracking(ctx, "home", testUserEmail)
	clock.Advance(90 * time.Second)
	tr.StartPageTracking(ctx, "shop", testUserEmail)
	clock.Advance(60 * time.Second)
	tr.EndSession(ctx, testUserEmail)

	session := loadSession(t, store, "u@x.com_1000")
	require.Equal(t, 1.5, session.Pages["home"].TimeSpentMinutes)
	require.Equal(t, 1.0, session.Pages["shop"].TimeSpentMinutes)
	require.Equal(t, 2.5, session.TotalSessionTime)
	require.Equal(t, float64(1150), session.LogoutTime)

	// Cursor is cleared: a later page view starts a fresh session.
	clock.Advance(10 * time.Second)
	tr.StartPageTracking(ctx, "about", testUserEmail)
	entries, err := store.Query(ctx, models.AnalyticsCollection)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestEndSessionWithoutActiveSessionIsNoOp(t *testing.T) {
	store := docstore.NewMemoryStore()
	tr, _ := newTestTracker(store)

	require.NotPanics(t, func() {
		tr.EndSession(context.Background(), testUserEmail)
	})

	entries, err := store.Query(context.Background(), models.AnalyticsCollection)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestDifferentUserStartsNewSession(t *testing.T) {
	store := docstore.NewMemoryStore()
	tr, clock := newTestTracker(store)
	ctx := context.Background()

	tr.StartPageTracking(ctx, "home", "alice@x.com")
	clock.Advance(60 * time.Second)
	tr.StartPageTracking(ctx, "home", "bob@x.com")

	entries, err := store.Query(ctx, models.AnalyticsCollection)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	second := models.SessionFromDocument(entries[1].ID, entries[1].Doc)
	require.Equal(t, "bob@x.com", second.UserEmail)
	require.Equal(t, 1, second.Pages["home"].Visits)
}

type failingStore struct{}

func (failingStore) Get(context.Context, string, string) (docstore.Document, error) {
	return nil, errors.New("store unreachable")
}

func (failingStore) Set(context.Context, string, string, docstore.Document, bool) error {
	return errors.New("store unreachable")
}

func (failingStore) Query(context.Context, string) ([]docstore.Entry, error) {
	return nil, errors.New("store unreachable")
}

func (failingStore) QueryWhere(context.Context, string, string, string) ([]docstore.Entry, error) {
	return nil, errors.New("store unreachable")
}

func TestTrackingSurvivesPersistenceFailures(t *testing.T) {
	tr, clock := newTestTracker(failingStore{})
	ctx := context.Background()

	require.NotPanics(t, func() {
		tr.StartPageTracking(ctx, "home", testUserEmail)
		clock.Advance(30 * time.Second)
		tr.StartPageTracking(ctx, "shop", testUserEmail)
		tr.EndSession(ctx, testUserEmail)
	})
}

func TestManagerHandsOutPerUserTrackers(t *testing.T) {
	m := NewManager(docstore.NewMemoryStore(), nil, zap.NewNop())

	alice := m.Get("alice@x.com")
	bob := m.Get("bob@x.com")
	require.NotSame(t, alice, bob)
	require.Same(t, alice, m.Get("alice@x.com"))

	m.Remove("alice@x.com")
	require.NotSame(t, alice, m.Get("alice@x.com"))
}
