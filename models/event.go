package models

import "time"

// PageViewEvent is one raw page-entry record appended to the event log.
// Unlike session documents these are immutable and append-only.
type PageViewEvent struct {
	EventID   string    `json:"eventId"`
	SessionID string    `json:"sessionId"`
	UserEmail string    `json:"userEmail"`
	PageName  string    `json:"pageName"`
	Timestamp time.Time `json:"timestamp"`
}

// PageViewCountByTime is one time bucket of the page-view history series.
type PageViewCountByTime struct {
	Time  time.Time `json:"time"`
	Count uint64    `json:"count"`
}
