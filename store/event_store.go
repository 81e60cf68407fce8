package store

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dvs-teja/webanalytics/database"
	"github.com/dvs-teja/webanalytics/models"
	"github.com/dvs-teja/webanalytics/utils"
)

// EventStore appends raw page-view events to ClickHouse and serves the
// dashboard's page-view history queries. The session docstore stays the
// source of truth for per-session metrics; this log only feeds time-series
// charts.
type EventStore struct {
	DB     *database.ClickHouseClient
	logger *zap.Logger
}

func NewEventStore(chClient *database.ClickHouseClient, logger *zap.Logger) *EventStore {
	return &EventStore{DB: chClient, logger: logger}
}

func (s *EventStore) EnsureSchema(ctx context.Context) error {
	err := s.DB.Conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS page_view_events (
			event_id   String,
			session_id String,
			user_email String,
			page_name  String,
			timestamp  DateTime64(3)
		) ENGINE = MergeTree()
		ORDER BY (timestamp, session_id)
	`)
	if err != nil {
		return fmt.Errorf("failed to create page_view_events table: %w", err)
	}
	return nil
}

func (s *EventStore) InsertPageViews(ctx context.Context, events []models.PageViewEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.DB.Conn.PrepareBatch(ctx, `
		INSERT INTO page_view_events (event_id, session_id, user_email, page_name, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}

	for _, event := range events {
		err := batch.Append(
			event.EventID,
			event.SessionID,
			event.UserEmail,
			event.PageName,
			event.Timestamp,
		)
		if err != nil {
			s.logger.Error("error appending event to batch",
				zap.String("event_id", event.EventID), zap.Error(err))
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	s.logger.Debug("inserted page view events", zap.Int("count", len(events)))
	return nil
}

// GetPageViewCountsOverTime buckets page views by the given interval
// (Minute, Hour, Day, ...).
func (s *EventStore) GetPageViewCountsOverTime(ctx context.Context, interval string, start, end time.Time) ([]models.PageViewCountByTime, error) {
	if !utils.IsValidInterval(interval) {
		return nil, fmt.Errorf("invalid interval: %s", interval)
	}

	query := fmt.Sprintf(`
		SELECT toStartOf%s(timestamp) AS time_bucket, count() AS total_views
		FROM page_view_events
		WHERE timestamp >= ? AND timestamp <= ?
		GROUP BY time_bucket
		ORDER BY time_bucket ASC
	`, interval)

	rows, err := s.DB.Conn.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query page view counts: %w", err)
	}
	defer rows.Close()

	var results []models.PageViewCountByTime
	for rows.Next() {
		var bucket time.Time
		var count uint64
		if err := rows.Scan(&bucket, &count); err != nil {
			s.logger.Error("error scanning page view count row", zap.Error(err))
			continue
		}
		results = append(results, models.PageViewCountByTime{Time: bucket, Count: count})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during page view count query: %w", err)
	}
	return results, nil
}
