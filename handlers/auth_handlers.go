package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/dvs-teja/webanalytics/models"
	"github.com/dvs-teja/webanalytics/store"
	"github.com/dvs-teja/webanalytics/tracker"
	"github.com/dvs-teja/webanalytics/utils"
)

type AuthHandlers struct {
	UserStore *store.UserStore
	Trackers  *tracker.Manager
	logger    *zap.Logger
	jwtSecret []byte
	tokenTTL  time.Duration
}

func NewAuthHandlers(userStore *store.UserStore, trackers *tracker.Manager, jwtSecret []byte, tokenTTL time.Duration, logger *zap.Logger) *AuthHandlers {
	return &AuthHandlers{
		UserStore: userStore,
		Trackers:  trackers,
		logger:    logger,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
	}
}

func (h *AuthHandlers) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "All fields are required", "details": err.Error()})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("failed to hash password", zap.String("email", req.Email), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}

	user, err := h.UserStore.CreateUser(c.Request.Context(), req.Username, req.Email, hashedPassword)
	if err != nil {
		if errors.Is(err, store.ErrUserExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "User with this email already exists"})
			return
		}
		h.logger.Error("failed to create user", zap.String("email", req.Email), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register user"})
		return
	}

	h.logger.Info("user registered", zap.String("id", user.ID), zap.String("email", user.Email))
	c.JSON(http.StatusCreated, gin.H{"message": "User signed up successfully", "user_email": user.Email})
}

// Login authenticates a user, issues the JWT cookie, and starts an analytics
// session for them.
func (h *AuthHandlers) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "All fields are required", "details": err.Error()})
		return
	}

	user, err := h.UserStore.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		h.logger.Info("login failed", zap.String("email", req.Email), zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	if err := bcrypt.CompareHashAndPassword(user.HashedPassword, []byte(req.Password)); err != nil {
		h.logger.Info("login failed: password mismatch", zap.String("email", req.Email))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	tokenString, err := utils.GenerateJWT(user.Email, utils.RoleUser, h.jwtSecret, h.tokenTTL)
	if err != nil {
		h.logger.Error("failed to generate JWT", zap.String("email", user.Email), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate authentication token"})
		return
	}

	setAuthCookie(c, tokenString, int(h.tokenTTL/time.Second))

	h.Trackers.Get(user.Email).StartSession(c.Request.Context(), user.Email)

	h.logger.Info("user logged in", zap.String("email", user.Email))
	c.JSON(http.StatusOK, gin.H{
		"message":    "Sign in successful",
		"user_email": user.Email,
	})
}

// Logout ends the caller's analytics session (best-effort, based on the
// token if one is still present) and clears the JWT cookie.
func (h *AuthHandlers) Logout(c *gin.Context) {
	if tokenString, err := c.Cookie("jwt_token"); err == nil {
		if claims, err := utils.ValidateJWT(tokenString, h.jwtSecret); err == nil {
			h.Trackers.Get(claims.Email).EndSession(c.Request.Context(), claims.Email)
			h.Trackers.Remove(claims.Email)
		}
	}

	setAuthCookie(c, "", -1)

	h.logger.Info("user logged out")
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func setAuthCookie(c *gin.Context, token string, maxAge int) {
	c.SetCookie(
		"jwt_token",
		token,
		maxAge,
		"/",
		"",
		false,
		true,
	)
}
