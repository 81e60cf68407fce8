package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dvs-teja/webanalytics/tracker"
)

// sitePages is the static page catalog. Every authenticated view of one of
// these feeds the session tracker.
var sitePages = map[string]gin.H{
	"home":    {"title": "Welcome to Home Page", "body": "hi from the home page"},
	"shop":    {"title": "Shop", "body": "This is the shop page."},
	"about":   {"title": "About", "body": "This is the about page."},
	"contact": {"title": "Contact Us", "body": "This is the contact page."},
}

type PageHandlers struct {
	Trackers *tracker.Manager
	logger   *zap.Logger
}

func NewPageHandlers(trackers *tracker.Manager, logger *zap.Logger) *PageHandlers {
	return &PageHandlers{Trackers: trackers, logger: logger}
}

// Index is the public landing page.
func (h *PageHandlers) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"title": "Welcome to E-commerce!",
		"body":  "Use the navbar to explore pages",
	})
}

// GetPage serves one of the access-controlled pages and records the page
// entry for the caller's session. Tracking never blocks the page view.
func (h *PageHandlers) GetPage(c *gin.Context) {
	name := c.Param("name")
	page, ok := sitePages[name]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Page not found"})
		return
	}

	userEmail := c.GetString("user_email")
	h.Trackers.Get(userEmail).StartPageTracking(c.Request.Context(), name, userEmail)

	c.JSON(http.StatusOK, page)
}
