// Package aggregator produces the dashboard view of all recorded sessions:
// reconstructed session records, filtered subsets, human-readable summaries,
// summary statistics, and chart-ready series.
package aggregator

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/dvs-teja/webanalytics/docstore"
	"github.com/dvs-teja/webanalytics/models"
	"github.com/dvs-teja/webanalytics/utils"
)

type Aggregator struct {
	store  docstore.Store
	logger *zap.Logger
}

// Stats summarizes a filtered session set.
type Stats struct {
	TotalSessions   int     `json:"total_sessions"`
	TotalUsers      int     `json:"total_users"`
	AvgSessionTime  float64 `json:"avg_session_time"`
	MostVisitedPage string  `json:"most_visited_page"`
}

// FilterResult bundles everything the dashboard renders for one filter pass.
type FilterResult struct {
	Sessions  []models.Session `json:"sessions"`
	Summaries []string         `json:"summaries"`
	Stats     Stats            `json:"stats"`
}

func New(store docstore.Store, logger *zap.Logger) *Aggregator {
	return &Aggregator{store: store, logger: logger}
}

// LoadAll fetches every session document and reconstructs structured session
// records in load order. A store failure degrades to an empty result set.
func (a *Aggregator) LoadAll(ctx context.Context) []models.Session {
	entries, err := a.store.Query(ctx, models.AnalyticsCollection)
	if err != nil {
		a.logger.Error("error loading analytics sessions", zap.Error(err))
		return nil
	}

	sessions := make([]models.Session, 0, len(entries))
	for _, entry := range entries {
		sessions = append(sessions, models.SessionFromDocument(entry.ID, entry.Doc))
	}
	a.logger.Debug("sessions loaded", zap.Int("count", len(sessions)))
	return sessions
}

// Filter keeps the sessions matching both active filters: a case-insensitive
// substring of the user email, and a case-insensitive substring of any page
// name in the session. Empty filters match everything. It also renders the
// per-session summary blocks and the summary statistics for the kept set.
func (a *Aggregator) Filter(sessions []models.Session, userFilter, pageFilter string) FilterResult {
	userFilter = strings.TrimSpace(userFilter)
	pageFilter = strings.TrimSpace(pageFilter)

	result := FilterResult{
		Sessions:  []models.Session{},
		Summaries: []string{},
	}

	for _, session := range sessions {
		if !matchesUser(session, userFilter) || !matchesPage(session, pageFilter) {
			continue
		}
		result.Sessions = append(result.Sessions, session)
		result.Summaries = append(result.Summaries, summarizeSession(session, pageFilter))
	}

	result.Stats = calculateStats(result.Sessions)
	a.logger.Debug("filter applied",
		zap.String("user_filter", userFilter),
		zap.String("page_filter", pageFilter),
		zap.Int("matched", len(result.Sessions)),
		zap.Int("total", len(sessions)),
	)
	return result
}

func matchesUser(session models.Session, filter string) bool {
	if filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(session.UserEmail), strings.ToLower(filter))
}

func matchesPage(session models.Session, filter string) bool {
	if filter == "" {
		return true
	}
	needle := strings.ToLower(filter)
	for name := range session.Pages {
		if strings.Contains(strings.ToLower(name), needle) {
			return true
		}
	}
	return false
}

// sortedPages orders a session's pages chronologically by entry time,
// missing timestamps first. Equal entry times fall back to name order so the
// output is deterministic.
func sortedPages(session models.Session) []models.PageStat {
	pages := make([]models.PageStat, 0, len(session.Pages))
	names := make([]string, 0, len(session.Pages))
	for name := range session.Pages {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		pages = append(pages, session.Pages[name])
	}
	sort.SliceStable(pages, func(i, j int) bool {
		return pages[i].EntryTime < pages[j].EntryTime
	})
	return pages
}

func summarizeSession(session models.Session, pageFilter string) string {
	var pagesSummary string
	if len(session.Pages) > 0 {
		totalVisits := 0
		for _, page := range session.Pages {
			totalVisits += page.Visits
		}

		blocks := make([]string, 0, len(session.Pages))
		for _, page := range sortedPages(session) {
			label := capitalize(page.PageName)
			if pageFilter != "" && strings.Contains(strings.ToLower(page.PageName), strings.ToLower(pageFilter)) {
				label = strings.ToUpper(page.PageName) + " (filtered)"
			}
			blocks = append(blocks, fmt.Sprintf(
				"   %s:\n      Time: %s min | Visits: %d\n      Entry: %s\n      Exit: %s",
				label,
				formatMinutes(page.TimeSpentMinutes),
				page.Visits,
				utils.FormatTimestamp(page.EntryTime),
				utils.FormatTimestamp(page.ExitTime),
			))
		}
		pagesSummary = fmt.Sprintf("\nSummary: %d pages, %d total visits\n%s",
			len(session.Pages), totalVisits, strings.Join(blocks, "\n"))
	} else {
		pagesSummary = "\nNo page data available"
	}

	return fmt.Sprintf(
		"USER: %s\nLOGIN: %s\nTOTAL SESSION TIME: %s minutes\nSESSION ID: %s\n\nPAGE ACTIVITY:%s",
		session.UserEmail,
		utils.FormatTimestamp(session.LoginTime),
		formatMinutes(session.TotalSessionTime),
		session.SessionID,
		pagesSummary,
	)
}

func calculateStats(sessions []models.Session) Stats {
	if len(sessions) == 0 {
		return Stats{MostVisitedPage: "None"}
	}

	stats := Stats{TotalSessions: len(sessions)}

	uniqueUsers := make(map[string]struct{})
	var totalTime float64
	pageVisits := make(map[string]int)
	var pageOrder []string

	for _, session := range sessions {
		uniqueUsers[session.UserEmail] = struct{}{}
		totalTime += session.TotalSessionTime

		for _, page := range sortedPages(session) {
			if _, seen := pageVisits[page.PageName]; !seen {
				pageOrder = append(pageOrder, page.PageName)
			}
			pageVisits[page.PageName] += page.Visits
		}
	}

	stats.TotalUsers = len(uniqueUsers)
	stats.AvgSessionTime = utils.Round2(totalTime / float64(len(sessions)))

	// Highest summed visit count wins; ties go to the page encountered
	// first in iteration order.
	stats.MostVisitedPage = "None"
	best := -1
	for _, name := range pageOrder {
		if pageVisits[name] > best {
			best = pageVisits[name]
			stats.MostVisitedPage = name
		}
	}
	return stats
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// formatMinutes renders durations the way they are stored: no trailing
// zeros, so 1.5 stays "1.5" and 2 stays "2".
func formatMinutes(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
