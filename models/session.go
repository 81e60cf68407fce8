package models

import (
	"strings"

	"github.com/dvs-teja/webanalytics/docstore"
	"github.com/dvs-teja/webanalytics/utils"
)

// AnalyticsCollection is the docstore collection holding session documents.
const AnalyticsCollection = "analytics"

// Session is one authenticated user's continuous period of site use, from
// sign-in to sign-out. Timestamps are epoch seconds; durations are minutes.
type Session struct {
	SessionID        string              `json:"session_id"`
	UserEmail        string              `json:"user_email"`
	LoginTime        float64             `json:"login_time"`
	LogoutTime       float64             `json:"logout_time,omitempty"`
	TotalSessionTime float64             `json:"total_session_time"`
	Pages            map[string]PageStat `json:"pages"`
}

// PageStat holds accumulated visit/time metrics for one page within one
// session.
type PageStat struct {
	PageName         string  `json:"page_name"`
	Visits           int     `json:"visits"`
	EntryTime        float64 `json:"entry_time,omitempty"`
	ExitTime         float64 `json:"exit_time,omitempty"`
	TimeSpentMinutes float64 `json:"time_spent_minutes"`
}

// PageField builds the dotted persistence key for one page property,
// e.g. PageField("home", "visits") -> "pages.home.visits".
func PageField(page, property string) string {
	return "pages." + page + "." + property
}

// SessionFromDocument decodes a persisted session document. Missing fields
// fall back to defaults (0 for numbers, "Unknown" for the user email). If
// the stored total is absent or zero it is derived by summing per-page dwell
// times, rounded to 2 decimals.
func SessionFromDocument(id string, doc docstore.Document) Session {
	s := Session{
		SessionID:        id,
		UserEmail:        stringField(doc, "user_email", "Unknown"),
		LoginTime:        numberField(doc, "login_time"),
		LogoutTime:       numberField(doc, "logout_time"),
		TotalSessionTime: numberField(doc, "total_session_time_minutes"),
		Pages:            ExtractPages(doc),
	}

	if s.TotalSessionTime == 0 {
		// Older documents used a different field name.
		s.TotalSessionTime = numberField(doc, "total_session_time")
	}
	if s.TotalSessionTime == 0 && len(s.Pages) > 0 {
		var total float64
		for _, page := range s.Pages {
			total += page.TimeSpentMinutes
		}
		s.TotalSessionTime = utils.Round2(total)
	}
	return s
}

// ExtractPages reconstructs the nested per-page structure from dotted
// "pages.<name>.<property>" keys. Properties outside the PageStat schema are
// ignored.
func ExtractPages(doc docstore.Document) map[string]PageStat {
	pages := make(map[string]PageStat)
	for key, value := range doc {
		if !strings.HasPrefix(key, "pages.") {
			continue
		}
		parts := strings.SplitN(key, ".", 3)
		if len(parts) < 3 {
			continue
		}
		name, property := parts[1], parts[2]

		stat := pages[name]
		switch property {
		case "page_name":
			if s, ok := value.(string); ok {
				stat.PageName = s
			}
		case "visits":
			stat.Visits = int(toFloat(value))
		case "entry_time":
			stat.EntryTime = toFloat(value)
		case "exit_time":
			stat.ExitTime = toFloat(value)
		case "time_spent_minutes":
			stat.TimeSpentMinutes = toFloat(value)
		case "time_spent":
			// Legacy field name; never overrides the current one.
			if stat.TimeSpentMinutes == 0 {
				stat.TimeSpentMinutes = toFloat(value)
			}
		}
		if stat.PageName == "" {
			stat.PageName = name
		}
		pages[name] = stat
	}
	return pages
}

// FlattenPages is the inverse of ExtractPages: it renders a nested pages
// mapping as dotted top-level keys suitable for a docstore merge-write.
func FlattenPages(pages map[string]PageStat) docstore.Document {
	doc := docstore.Document{}
	for name, stat := range pages {
		doc[PageField(name, "page_name")] = stat.PageName
		doc[PageField(name, "visits")] = stat.Visits
		doc[PageField(name, "entry_time")] = stat.EntryTime
		doc[PageField(name, "exit_time")] = stat.ExitTime
		doc[PageField(name, "time_spent_minutes")] = stat.TimeSpentMinutes
	}
	return doc
}

func stringField(doc docstore.Document, key, fallback string) string {
	if s, ok := doc[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

func numberField(doc docstore.Document, key string) float64 {
	return toFloat(doc[key])
}

// toFloat coerces the numeric types a document value can carry: float64
// after a JSON round-trip, int/int64 when written straight to the in-memory
// store. Anything else decodes as 0.
func toFloat(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}
