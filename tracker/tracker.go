// Package tracker owns the per-user session cursor and mediates all
// analytics writes. Tracking is best-effort: persistence failures are logged
// and never propagate into the page-view flow.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dvs-teja/webanalytics/docstore"
	"github.com/dvs-teja/webanalytics/models"
	"github.com/dvs-teja/webanalytics/utils"
)

// EventSink receives raw page-view events for the append-only event log.
// Implementations must tolerate being called best-effort.
type EventSink interface {
	InsertPageViews(ctx context.Context, events []models.PageViewEvent) error
}

// Tracker is one signed-in user's session cursor. At most one page interval
// is open at a time; operations from a single user's navigation are
// sequential, the mutex only guards against overlapping HTTP requests.
type Tracker struct {
	store  docstore.Store
	events EventSink // nil when the event log is disabled
	logger *zap.Logger
	now    func() time.Time

	mu            sync.Mutex
	sessionID     string
	currentPage   string
	pageStartTime float64
	loginTime     float64
	currentUser   string
}

func New(store docstore.Store, events EventSink, logger *zap.Logger) *Tracker {
	return &Tracker{
		store:  store,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// StartSession begins a fresh session for the user, replacing any prior
// cursor state.
func (t *Tracker) StartSession(ctx context.Context, userEmail string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startSessionLocked(ctx, userEmail)
}

func (t *Tracker) startSessionLocked(ctx context.Context, userEmail string) {
	now := t.now()
	t.sessionID = fmt.Sprintf("%s_%d", userEmail, now.Unix())
	t.loginTime = epochSeconds(now)
	t.currentUser = userEmail
	t.currentPage = ""
	t.pageStartTime = 0

	t.logger.Info("starting new session",
		zap.String("session_id", t.sessionID),
		zap.String("user_email", userEmail),
	)

	err := t.store.Set(ctx, models.AnalyticsCollection, t.sessionID, docstore.Document{
		"user_email":    userEmail,
		"login_time":    t.loginTime,
		"session_start": epochSeconds(now),
	}, false)
	if err != nil {
		t.logger.Error("error persisting new session",
			zap.String("session_id", t.sessionID), zap.Error(err))
	}
}

// StartPageTracking opens a tracking interval for pageName. If no session is
// active, or the active session belongs to a different user, a new session
// is started implicitly. A previously open page interval is closed first.
func (t *Tracker) StartPageTracking(ctx context.Context, pageName, userEmail string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sessionID == "" || t.currentUser != userEmail {
		t.logger.Info("new user or no session, starting session",
			zap.String("user_email", userEmail))
		t.startSessionLocked(ctx, userEmail)
	}

	if t.currentPage != "" && t.pageStartTime != 0 {
		t.savePageTime(ctx)
	}

	t.currentPage = pageName
	t.pageStartTime = epochSeconds(t.now())

	t.logger.Debug("tracking page",
		zap.String("page", pageName), zap.String("user_email", userEmail))

	t.recordPageVisit(ctx, pageName)
	t.emitPageView(ctx, pageName, userEmail)
}

// EndSession closes the open page interval if any, finalizes the total
// session time, and clears the cursor. A call with no active session is a
// no-op.
func (t *Tracker) EndSession(ctx context.Context, userEmail string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sessionID == "" {
		t.logger.Debug("no session to end", zap.String("user_email", userEmail))
		return
	}

	if t.currentPage != "" && t.pageStartTime != 0 {
		t.savePageTime(ctx)
	}

	now := epochSeconds(t.now())
	totalMinutes := utils.Round2((now - t.loginTime) / 60)

	err := t.store.Set(ctx, models.AnalyticsCollection, t.sessionID, docstore.Document{
		"logout_time":                now,
		"total_session_time_minutes": totalMinutes,
	}, true)
	if err != nil {
		t.logger.Error("error persisting session end",
			zap.String("session_id", t.sessionID), zap.Error(err))
	} else {
		t.logger.Info("session ended",
			zap.String("user_email", userEmail),
			zap.Float64("total_minutes", totalMinutes),
		)
	}

	t.currentPage = ""
	t.pageStartTime = 0
	t.loginTime = 0
	t.sessionID = ""
	t.currentUser = ""
}

// savePageTime closes the current page interval: it accumulates the elapsed
// minutes onto the page's dwell time and records the exit timestamp. The
// merge-write touches only this page's keys, never sibling pages. Dwell time
// adds up across revisits of the same page within one session.
func (t *Tracker) savePageTime(ctx context.Context) {
	if t.sessionID == "" {
		t.logger.Debug("no session id, cannot save page time")
		return
	}

	now := epochSeconds(t.now())
	minutes := utils.Round2((now - t.pageStartTime) / 60)

	prior := 0.0
	doc, err := t.store.Get(ctx, models.AnalyticsCollection, t.sessionID)
	switch {
	case err == nil:
		prior = models.ExtractPages(doc)[t.currentPage].TimeSpentMinutes
	case !errors.Is(err, docstore.ErrNotFound):
		t.logger.Error("error reading session before page time save",
			zap.String("session_id", t.sessionID), zap.Error(err))
	}

	err = t.store.Set(ctx, models.AnalyticsCollection, t.sessionID, docstore.Document{
		models.PageField(t.currentPage, "time_spent_minutes"): utils.Round2(prior + minutes),
		models.PageField(t.currentPage, "exit_time"):          now,
	}, true)
	if err != nil {
		t.logger.Error("error saving page time",
			zap.String("page", t.currentPage), zap.Error(err))
		return
	}
	t.logger.Debug("saved page time",
		zap.String("page", t.currentPage), zap.Float64("minutes", minutes))
}

// recordPageVisit increments the page's visit counter (read-modify-write)
// and records the new entry timestamp.
func (t *Tracker) recordPageVisit(ctx context.Context, pageName string) {
	if t.sessionID == "" {
		t.logger.Debug("no session id, cannot record page visit")
		return
	}

	visits := 0
	doc, err := t.store.Get(ctx, models.AnalyticsCollection, t.sessionID)
	switch {
	case err == nil:
		visits = models.ExtractPages(doc)[pageName].Visits
	case !errors.Is(err, docstore.ErrNotFound):
		t.logger.Error("error reading session before visit record",
			zap.String("session_id", t.sessionID), zap.Error(err))
		return
	}

	err = t.store.Set(ctx, models.AnalyticsCollection, t.sessionID, docstore.Document{
		models.PageField(pageName, "visits"):     visits + 1,
		models.PageField(pageName, "entry_time"): t.pageStartTime,
		models.PageField(pageName, "page_name"):  pageName,
	}, true)
	if err != nil {
		t.logger.Error("error recording page visit",
			zap.String("page", pageName), zap.Error(err))
		return
	}
	t.logger.Debug("recorded page visit",
		zap.String("page", pageName), zap.Int("visits", visits+1))
}

func (t *Tracker) emitPageView(ctx context.Context, pageName, userEmail string) {
	if t.events == nil {
		return
	}
	event := models.PageViewEvent{
		EventID:   uuid.New().String(),
		SessionID: t.sessionID,
		UserEmail: userEmail,
		PageName:  pageName,
		Timestamp: t.now(),
	}
	if err := t.events.InsertPageViews(ctx, []models.PageViewEvent{event}); err != nil {
		t.logger.Error("error appending page view event",
			zap.String("page", pageName), zap.Error(err))
	}
}

func epochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
