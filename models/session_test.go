package models

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dvs-teja/webanalytics/docstore"
)

func TestSessionFromDocumentAppliesDefaults(t *testing.T) {
	session := SessionFromDocument("anon_123", docstore.Document{})

	require.Equal(t, "anon_123", session.SessionID)
	require.Equal(t, "Unknown", session.UserEmail)
	require.Zero(t, session.LoginTime)
	require.Zero(t, session.TotalSessionTime)
	require.Empty(t, session.Pages)
}

func TestSessionFromDocumentFallsBackToSummedPageTimes(t *testing.T) {
	session := SessionFromDocument("u@x.com_1", docstore.Document{
		"user_email":                    "u@x.com",
		"pages.home.time_spent_minutes": 1.2,
		"pages.shop.time_spent_minutes": 0.4,
	})

	require.Equal(t, 1.6, session.TotalSessionTime)
}

func TestSessionFromDocumentPrefersStoredTotal(t *testing.T) {
	session := SessionFromDocument("u@x.com_1", docstore.Document{
		"total_session_time_minutes":    5.0,
		"pages.home.time_spent_minutes": 1.2,
	})

	require.Equal(t, 5.0, session.TotalSessionTime)
}

func TestExtractPagesGroupsByPageName(t *testing.T) {
	pages := ExtractPages(docstore.Document{
		"user_email":            "ignored",
		"pages.home.visits":     float64(3),
		"pages.home.entry_time": float64(1000),
		"pages.shop.visits":     float64(1),
		"pages.broken":          "too short, skipped",
	})

	require.Len(t, pages, 2)
	require.Equal(t, 3, pages["home"].Visits)
	require.Equal(t, float64(1000), pages["home"].EntryTime)
	// page_name defaults to the map key when the property is absent.
	require.Equal(t, "home", pages["home"].PageName)
	require.Equal(t, "shop", pages["shop"].PageName)
}

func TestExtractPagesToleratesMixedNumericTypes(t *testing.T) {
	pages := ExtractPages(docstore.Document{
		"pages.home.visits":             2,
		"pages.home.time_spent_minutes": int64(3),
	})

	require.Equal(t, 2, pages["home"].Visits)
	require.Equal(t, 3.0, pages["home"].TimeSpentMinutes)
}

func TestFlattenPagesRoundTrip(t *testing.T) {
	original := map[string]PageStat{
		"home": {
			PageName:         "home",
			Visits:           2,
			EntryTime:        1000,
			ExitTime:         1090,
			TimeSpentMinutes: 1.5,
		},
		"shop": {
			PageName:         "shop",
			Visits:           1,
			EntryTime:        1090,
			ExitTime:         1150,
			TimeSpentMinutes: 1.0,
		},
	}

	require.Equal(t, original, ExtractPages(FlattenPages(original)))
}

func TestPageField(t *testing.T) {
	require.Equal(t, "pages.home.visits", PageField("home", "visits"))
}
