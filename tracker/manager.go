package tracker

import (
	"sync"

	"go.uber.org/zap"

	"github.com/dvs-teja/webanalytics/docstore"
)

// Manager hands out one Tracker per signed-in user so that concurrent users
// never share cursor state. Trackers live for the duration of a sign-in and
// are dropped on sign-out.
type Manager struct {
	store  docstore.Store
	events EventSink
	logger *zap.Logger

	mu       sync.Mutex
	trackers map[string]*Tracker
}

func NewManager(store docstore.Store, events EventSink, logger *zap.Logger) *Manager {
	return &Manager{
		store:    store,
		events:   events,
		logger:   logger,
		trackers: make(map[string]*Tracker),
	}
}

// Get returns the tracker for the given user, creating it on first use.
func (m *Manager) Get(userEmail string) *Tracker {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.trackers[userEmail]
	if !ok {
		t = New(m.store, m.events, m.logger)
		m.trackers[userEmail] = t
	}
	return t
}

// Remove drops the user's tracker. Callers end the session first.
func (m *Manager) Remove(userEmail string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.trackers, userEmail)
}
