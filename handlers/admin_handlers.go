package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/dvs-teja/webanalytics/aggregator"
	"github.com/dvs-teja/webanalytics/models"
	"github.com/dvs-teja/webanalytics/store"
	"github.com/dvs-teja/webanalytics/utils"
)

// AdminHandlers serves the analytics dashboard: admin sign-in, filtered
// session views with summary statistics, chart series, and the raw
// page-view history.
type AdminHandlers struct {
	UserStore  *store.UserStore
	Aggregator *aggregator.Aggregator
	EventStore *store.EventStore // nil when the event log is disabled
	logger     *zap.Logger
	jwtSecret  []byte
	tokenTTL   time.Duration
	refresh    time.Duration
}

func NewAdminHandlers(
	userStore *store.UserStore,
	agg *aggregator.Aggregator,
	eventStore *store.EventStore,
	jwtSecret []byte,
	tokenTTL time.Duration,
	refreshInterval time.Duration,
	logger *zap.Logger,
) *AdminHandlers {
	return &AdminHandlers{
		UserStore:  userStore,
		Aggregator: agg,
		EventStore: eventStore,
		logger:     logger,
		jwtSecret:  jwtSecret,
		tokenTTL:   tokenTTL,
		refresh:    refreshInterval,
	}
}

func (h *AdminHandlers) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "All fields are required", "details": err.Error()})
		return
	}

	admin, err := h.UserStore.GetAdminByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrAdminNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "No admin found with this email"})
			return
		}
		h.logger.Error("admin lookup failed", zap.String("email", req.Email), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check admin credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword(admin.HashedPassword, []byte(req.Password)); err != nil {
		h.logger.Info("admin login failed: password mismatch", zap.String("email", req.Email))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid password"})
		return
	}

	tokenString, err := utils.GenerateJWT(admin.Email, utils.RoleAdmin, h.jwtSecret, h.tokenTTL)
	if err != nil {
		h.logger.Error("failed to generate admin JWT", zap.String("email", admin.Email), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate authentication token"})
		return
	}

	setAuthCookie(c, tokenString, int(h.tokenTTL/time.Second))

	h.logger.Info("admin logged in", zap.String("email", admin.Email))
	c.JSON(http.StatusOK, gin.H{"message": "Login successful", "admin_email": admin.Email})
}

// GetAnalytics loads every session, applies the optional user/page substring
// filters, and returns the filtered sessions with their summaries and
// statistics.
func (h *AdminHandlers) GetAnalytics(c *gin.Context) {
	userFilter := c.Query("user")
	pageFilter := c.Query("page")

	sessions := h.Aggregator.LoadAll(c.Request.Context())
	result := h.Aggregator.Filter(sessions, userFilter, pageFilter)

	c.JSON(http.StatusOK, gin.H{
		"sessions":                 result.Sessions,
		"summaries":                result.Summaries,
		"stats":                    result.Stats,
		"total_data_count":         len(sessions),
		"last_updated":             time.Now().Format("15:04:05"),
		"refresh_interval_seconds": int(h.refresh / time.Second),
	})
}

// GetCharts returns the chart-ready series over the filtered session set.
func (h *AdminHandlers) GetCharts(c *gin.Context) {
	userFilter := c.Query("user")
	pageFilter := c.Query("page")

	sessions := h.Aggregator.LoadAll(c.Request.Context())
	result := h.Aggregator.Filter(sessions, userFilter, pageFilter)

	c.JSON(http.StatusOK, h.Aggregator.BuildChartSeries(result.Sessions))
}

// GetPageViewsOverTime serves bucketed page-view counts from the raw event
// log. With the event log disabled it degrades to an empty series.
func (h *AdminHandlers) GetPageViewsOverTime(c *gin.Context) {
	interval := c.DefaultQuery("interval", "Hour")
	if !utils.IsValidInterval(interval) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid interval. Use Minute, Hour, Day, Week, Month, Quarter or Year"})
		return
	}

	start, end, err := parseTimeRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if h.EventStore == nil {
		c.JSON(http.StatusOK, []models.PageViewCountByTime{})
		return
	}

	results, err := h.EventStore.GetPageViewCountsOverTime(c.Request.Context(), interval, start, end)
	if err != nil {
		h.logger.Error("error getting page view counts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve page view statistics"})
		return
	}
	if results == nil {
		results = []models.PageViewCountByTime{}
	}
	c.JSON(http.StatusOK, results)
}

// parseTimeRange reads optional RFC3339 start/end query parameters,
// defaulting to the last 7 days.
func parseTimeRange(c *gin.Context) (time.Time, time.Time, error) {
	start := time.Now().UTC().Add(-7 * 24 * time.Hour)
	end := time.Now().UTC()

	if startParam := c.Query("start"); startParam != "" {
		parsed, err := time.Parse(time.RFC3339, startParam)
		if err != nil {
			return start, end, errors.New("invalid 'start' timestamp format, use RFC3339 (e.g. 2006-01-02T15:04:05Z)")
		}
		start = parsed
	}
	if endParam := c.Query("end"); endParam != "" {
		parsed, err := time.Parse(time.RFC3339, endParam)
		if err != nil {
			return start, end, errors.New("invalid 'end' timestamp format, use RFC3339 (e.g. 2006-01-02T15:04:05Z)")
		}
		end = parsed
	}
	return start, end, nil
}
