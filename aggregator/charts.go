package aggregator

import (
	"sort"
	"strings"

	"github.com/dvs-teja/webanalytics/models"
	"github.com/dvs-teja/webanalytics/utils"
)

// chartPalette is the fixed dashboard palette; series entries cycle through
// it by index.
var chartPalette = []string{
	"#3498db", "#e74c3c", "#2ecc71", "#f39c12", "#9b59b6",
	"#1abc9c", "#34495e", "#e67e22", "#95a5a6", "#16a085",
	"#27ae60", "#2980b9", "#8e44ad", "#f1c40f", "#e74c3c",
}

// ColorForIndex returns the palette color for the i-th series entry.
func ColorForIndex(i int) string {
	return chartPalette[i%len(chartPalette)]
}

// ChartPoint is one bar/pie slice of a count series.
type ChartPoint struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
	Fill  string `json:"fill"`
}

// PageTimePoint is one bar of the time-spent-by-page series.
type PageTimePoint struct {
	Page string  `json:"page"`
	Time float64 `json:"time"`
	Fill string  `json:"fill"`
}

type ChartSeries struct {
	PageVisits   []ChartPoint    `json:"page_visits"`
	UserSessions []ChartPoint    `json:"user_sessions"`
	TimeSpent    []PageTimePoint `json:"time_spent"`
}

// BuildChartSeries computes the dashboard chart series over a (usually
// filtered) session set: total visits per page, session count per user (top
// 10, labelled by the email local part), and total time spent per page.
func (a *Aggregator) BuildChartSeries(sessions []models.Session) ChartSeries {
	pageVisits := make(map[string]int)
	pageTime := make(map[string]float64)
	userSessions := make(map[string]int)
	var pageOrder, userOrder []string

	for _, session := range sessions {
		if _, seen := userSessions[session.UserEmail]; !seen {
			userOrder = append(userOrder, session.UserEmail)
		}
		userSessions[session.UserEmail]++

		for _, page := range sortedPages(session) {
			if _, seen := pageVisits[page.PageName]; !seen {
				pageOrder = append(pageOrder, page.PageName)
			}
			pageVisits[page.PageName] += page.Visits
			pageTime[page.PageName] += page.TimeSpentMinutes
		}
	}

	series := ChartSeries{
		PageVisits:   []ChartPoint{},
		UserSessions: []ChartPoint{},
		TimeSpent:    []PageTimePoint{},
	}

	for i, name := range pageOrder {
		series.PageVisits = append(series.PageVisits, ChartPoint{
			Name:  name,
			Value: pageVisits[name],
			Fill:  ColorForIndex(i),
		})
		series.TimeSpent = append(series.TimeSpent, PageTimePoint{
			Page: name,
			Time: utils.Round2(pageTime[name]),
			Fill: ColorForIndex(i),
		})
	}

	sort.SliceStable(userOrder, func(i, j int) bool {
		return userSessions[userOrder[i]] > userSessions[userOrder[j]]
	})
	if len(userOrder) > 10 {
		userOrder = userOrder[:10]
	}
	for i, email := range userOrder {
		series.UserSessions = append(series.UserSessions, ChartPoint{
			Name:  emailLocalPart(email),
			Value: userSessions[email],
			Fill:  ColorForIndex(i),
		})
	}

	return series
}

func emailLocalPart(email string) string {
	if at := strings.Index(email, "@"); at >= 0 {
		return email[:at]
	}
	return email
}
