package aggregator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dvs-teja/webanalytics/docstore"
	"github.com/dvs-teja/webanalytics/models"
)

func newTestAggregator(store docstore.Store) *Aggregator {
	return New(store, zap.NewNop())
}

func sessionWith(email string, pages map[string]models.PageStat, totalMinutes float64) models.Session {
	return models.Session{
		SessionID:        email + "_1000",
		UserEmail:        email,
		LoginTime:        1000,
		TotalSessionTime: totalMinutes,
		Pages:            pages,
	}
}

func TestLoadAllReconstructsDottedKeys(t *testing.T) {
	store := docstore.NewMemoryStore()
	ctx := context.Background()

	err := store.Set(ctx, models.AnalyticsCollection, "u@x.com_1000", docstore.Document{
		"user_email":                    "u@x.com",
		"login_time":                    float64(1000),
		"total_session_time_minutes":    2.5,
		"pages.home.page_name":          "home",
		"pages.home.visits":             float64(2),
		"pages.home.entry_time":         float64(1000),
		"pages.home.exit_time":          float64(1090),
		"pages.home.time_spent_minutes": 1.5,
		"pages.shop.page_name":          "shop",
		"pages.shop.visits":             float64(1),
		"pages.shop.entry_time":         float64(1090),
		"pages.shop.time_spent_minutes": 1.0,
	}, false)
	require.NoError(t, err)

	sessions := newTestAggregator(store).LoadAll(ctx)
	require.Len(t, sessions, 1)

	session := sessions[0]
	require.Equal(t, "u@x.com", session.UserEmail)
	require.Equal(t, 2.5, session.TotalSessionTime)
	require.Len(t, session.Pages, 2)
	require.Equal(t, 2, session.Pages["home"].Visits)
	require.Equal(t, 1.5, session.Pages["home"].TimeSpentMinutes)
}

func TestLoadAllDerivesMissingTotalFromPages(t *testing.T) {
	store := docstore.NewMemoryStore()
	ctx := context.Background()

	err := store.Set(ctx, models.AnalyticsCollection, "u@x.com_1000", docstore.Document{
		"user_email":                    "u@x.com",
		"pages.home.time_spent_minutes": 1.2,
		"pages.shop.time_spent_minutes": 0.4,
	}, false)
	require.NoError(t, err)

	sessions := newTestAggregator(store).LoadAll(ctx)
	require.Len(t, sessions, 1)
	require.Equal(t, 1.6, sessions[0].TotalSessionTime)
}

func TestLoadAllDegradesToEmptyOnStoreFailure(t *testing.T) {
	sessions := newTestAggregator(unreachableStore{}).LoadAll(context.Background())
	require.Empty(t, sessions)
}

func TestFilterWithoutFiltersKeepsEverythingInOrder(t *testing.T) {
	agg := newTestAggregator(docstore.NewMemoryStore())
	input := []models.Session{
		sessionWith("a@x.com", nil, 1),
		sessionWith("b@x.com", nil, 2),
		sessionWith("c@x.com", nil, 3),
	}

	result := agg.Filter(input, "", "")
	require.Equal(t, input, result.Sessions)
	require.Len(t, result.Summaries, 3)
}

func TestFilterByUserSubstringIsCaseInsensitive(t *testing.T) {
	agg := newTestAggregator(docstore.NewMemoryStore())
	input := []models.Session{
		sessionWith("ALICE@x.com", nil, 1),
		sessionWith("malice@y.com", nil, 1),
		sessionWith("bob@x.com", nil, 1),
	}

	result := agg.Filter(input, "alice", "")
	require.Len(t, result.Sessions, 2)
	require.Equal(t, "ALICE@x.com", result.Sessions[0].UserEmail)
	require.Equal(t, "malice@y.com", result.Sessions[1].UserEmail)
}

func TestFilterByPageMatchesAnyPageName(t *testing.T) {
	agg := newTestAggregator(docstore.NewMemoryStore())
	input := []models.Session{
		sessionWith("a@x.com", map[string]models.PageStat{
			"home": {PageName: "home", Visits: 1},
			"shop": {PageName: "shop", Visits: 1},
		}, 1),
		sessionWith("b@x.com", map[string]models.PageStat{
			"about": {PageName: "about", Visits: 1},
		}, 1),
	}

	result := agg.Filter(input, "", "SHO")
	require.Len(t, result.Sessions, 1)
	require.Equal(t, "a@x.com", result.Sessions[0].UserEmail)
}

func TestFilterRequiresBothFiltersToMatch(t *testing.T) {
	agg := newTestAggregator(docstore.NewMemoryStore())
	input := []models.Session{
		sessionWith("alice@x.com", map[string]models.PageStat{
			"home": {PageName: "home", Visits: 1},
		}, 1),
	}

	require.Len(t, agg.Filter(input, "alice", "home").Sessions, 1)
	require.Empty(t, agg.Filter(input, "alice", "shop").Sessions)
	require.Empty(t, agg.Filter(input, "bob", "home").Sessions)
}

func TestStatsOverFilteredSet(t *testing.T) {
	agg := newTestAggregator(docstore.NewMemoryStore())
	input := []models.Session{
		sessionWith("a@x.com", map[string]models.PageStat{
			"home": {PageName: "home", Visits: 3, EntryTime: 10},
		}, 2.5),
		sessionWith("a@x.com", map[string]models.PageStat{
			"shop": {PageName: "shop", Visits: 4, EntryTime: 20},
		}, 3.5),
	}

	stats := agg.Filter(input, "", "").Stats
	require.Equal(t, 2, stats.TotalSessions)
	require.Equal(t, 1, stats.TotalUsers)
	require.Equal(t, 3.0, stats.AvgSessionTime)
	require.Equal(t, "shop", stats.MostVisitedPage)
}

func TestMostVisitedPageTieGoesToFirstEncountered(t *testing.T) {
	agg := newTestAggregator(docstore.NewMemoryStore())
	input := []models.Session{
		sessionWith("a@x.com", map[string]models.PageStat{
			"home": {PageName: "home", Visits: 5, EntryTime: 10},
		}, 1),
		sessionWith("b@x.com", map[string]models.PageStat{
			"shop": {PageName: "shop", Visits: 5, EntryTime: 10},
		}, 1),
	}

	stats := agg.Filter(input, "", "").Stats
	require.Equal(t, "home", stats.MostVisitedPage)
}

func TestStatsOnEmptySet(t *testing.T) {
	agg := newTestAggregator(docstore.NewMemoryStore())

	stats := agg.Filter(nil, "", "").Stats
	require.Zero(t, stats.TotalSessions)
	require.Zero(t, stats.TotalUsers)
	require.Zero(t, stats.AvgSessionTime)
	require.Equal(t, "None", stats.MostVisitedPage)
}

func TestSummariesOrderPagesChronologically(t *testing.T) {
	agg := newTestAggregator(docstore.NewMemoryStore())
	input := []models.Session{
		sessionWith("a@x.com", map[string]models.PageStat{
			"shop": {PageName: "shop", Visits: 1, EntryTime: 100},
			"home": {PageName: "home", Visits: 1, EntryTime: 50},
		}, 1),
	}

	result := agg.Filter(input, "", "")
	require.Len(t, result.Summaries, 1)

	summary := result.Summaries[0]
	require.Contains(t, summary, "USER: a@x.com")
	require.Contains(t, summary, "2 pages, 2 total visits")
	require.Less(t, strings.Index(summary, "Home"), strings.Index(summary, "Shop"))
}

func TestSummaryWithoutPageData(t *testing.T) {
	agg := newTestAggregator(docstore.NewMemoryStore())
	result := agg.Filter([]models.Session{sessionWith("a@x.com", nil, 0)}, "", "")
	require.Contains(t, result.Summaries[0], "No page data available")
}

func TestChartSeriesAggregatesAcrossSessions(t *testing.T) {
	agg := newTestAggregator(docstore.NewMemoryStore())
	input := []models.Session{
		sessionWith("alice@x.com", map[string]models.PageStat{
			"home": {PageName: "home", Visits: 2, EntryTime: 10, TimeSpentMinutes: 1.5},
		}, 1.5),
		sessionWith("alice@x.com", map[string]models.PageStat{
			"home": {PageName: "home", Visits: 1, EntryTime: 10, TimeSpentMinutes: 0.5},
			"shop": {PageName: "shop", Visits: 1, EntryTime: 20, TimeSpentMinutes: 1.0},
		}, 1.5),
		sessionWith("bob@y.com", map[string]models.PageStat{
			"shop": {PageName: "shop", Visits: 3, EntryTime: 5, TimeSpentMinutes: 2.0},
		}, 2.0),
	}

	series := agg.BuildChartSeries(input)

	require.Len(t, series.PageVisits, 2)
	require.Equal(t, "home", series.PageVisits[0].Name)
	require.Equal(t, 3, series.PageVisits[0].Value)
	require.Equal(t, "shop", series.PageVisits[1].Name)
	require.Equal(t, 4, series.PageVisits[1].Value)

	require.Len(t, series.TimeSpent, 2)
	require.Equal(t, 2.0, series.TimeSpent[0].Time) // home: 1.5 + 0.5
	require.Equal(t, 3.0, series.TimeSpent[1].Time) // shop: 1.0 + 2.0

	// Sessions per user, most active first, labelled by local part.
	require.Len(t, series.UserSessions, 2)
	require.Equal(t, "alice", series.UserSessions[0].Name)
	require.Equal(t, 2, series.UserSessions[0].Value)
	require.Equal(t, "bob", series.UserSessions[1].Name)
	require.Equal(t, 1, series.UserSessions[1].Value)
}

func TestUserSessionSeriesIsCappedAtTen(t *testing.T) {
	agg := newTestAggregator(docstore.NewMemoryStore())

	var input []models.Session
	for i := 0; i < 12; i++ {
		input = append(input, sessionWith(fmt.Sprintf("user%02d@x.com", i), nil, 1))
	}

	series := agg.BuildChartSeries(input)
	require.Len(t, series.UserSessions, 10)
}

func TestPaletteCyclesByIndex(t *testing.T) {
	require.Equal(t, ColorForIndex(0), ColorForIndex(15))
	require.NotEqual(t, ColorForIndex(0), ColorForIndex(1))

	// A 16-entry series wraps back to the first color.
	pages := make(map[string]models.PageStat, 16)
	for i := 0; i < 16; i++ {
		name := fmt.Sprintf("page%02d", i)
		pages[name] = models.PageStat{PageName: name, Visits: 1, EntryTime: float64(i + 1)}
	}

	agg := newTestAggregator(docstore.NewMemoryStore())
	series := agg.BuildChartSeries([]models.Session{sessionWith("a@x.com", pages, 1)})
	require.Len(t, series.PageVisits, 16)
	require.Equal(t, series.PageVisits[0].Fill, series.PageVisits[15].Fill)
}

type unreachableStore struct{}

func (unreachableStore) Get(context.Context, string, string) (docstore.Document, error) {
	return nil, errors.New("store unreachable")
}

func (unreachableStore) Set(context.Context, string, string, docstore.Document, bool) error {
	return errors.New("store unreachable")
}

func (unreachableStore) Query(context.Context, string) ([]docstore.Entry, error) {
	return nil, errors.New("store unreachable")
}

func (unreachableStore) QueryWhere(context.Context, string, string, string) ([]docstore.Entry, error) {
	return nil, errors.New("store unreachable")
}
