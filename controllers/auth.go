package controllers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Krish-Depani/auth-session-client/database"
	"github.com/Krish-Depani/auth-session-client/models"
	"github.com/Krish-Depani/auth-session-client/validators"
)

const (
	RefreshCookieName = "refresh_token"
	refreshCookiePath = "/auth"

	maxFailedLogins = 5
	loginCooldown   = 15 * time.Minute
)

// IPLocator labels a client IP with a human readable location.
type IPLocator interface {
	GetIPLocation(ctx context.Context, ip string) string
}

type AuthSettings struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	CookieSecure    bool
	Logger          *slog.Logger
}

type AuthController struct {
	db       *gorm.DB
	cache    database.TokenCache
	locator  IPLocator
	settings AuthSettings
}

type AuthResponse struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   interface{} `json:"error,omitempty"`
}

func NewAuthController(db *gorm.DB, cache database.TokenCache, locator IPLocator, settings AuthSettings) *AuthController {
	if settings.AccessTokenTTL <= 0 {
		settings.AccessTokenTTL = 15 * time.Minute
	}
	if settings.RefreshTokenTTL <= 0 {
		settings.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	if settings.Logger == nil {
		settings.Logger = slog.Default()
	}
	return &AuthController{
		db:       db,
		cache:    cache,
		locator:  locator,
		settings: settings,
	}
}

// sendResponse is a helper function to send consistent JSON responses
func sendResponse(c *gin.Context, status int, message string, data interface{}, err interface{}) {
	c.JSON(status, AuthResponse{
		Status:  status,
		Message: message,
		Data:    data,
		Error:   err,
	})
}

// Signup handles user registration
func (ac *AuthController) Signup(c *gin.Context) {
	req, ok := validators.ValidateSignupRequest(c)
	if !ok {
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	var existing int64
	if err := ac.db.Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		sendResponse(c, http.StatusInternalServerError, "Internal server error", nil, "Database error")
		return
	}
	if existing > 0 {
		sendResponse(c, http.StatusConflict, "Registration failed", nil, map[string]string{
			"field":   "email",
			"message": "A user with this email already exists",
		})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		sendResponse(c, http.StatusInternalServerError, "Registration failed", nil, "Failed to process password")
		return
	}

	user := models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: string(hashedPassword),
		IsActive:     true,
	}
	if err := ac.db.Create(&user).Error; err != nil {
		sendResponse(c, http.StatusInternalServerError, "Registration failed", nil, "Failed to create user")
		return
	}

	sendResponse(c, http.StatusCreated, "User registered successfully", models.Identity{
		ID:   user.ID,
		Name: user.Name,
	}, nil)
}

// Login handles user authentication and opens a device session
func (ac *AuthController) Login(c *gin.Context) {
	req, ok := validators.ValidateLoginRequest(c)
	if !ok {
		return
	}

	// Start transaction
	tx := ac.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var user models.User
	if err := tx.Where("email = ? AND is_active = ?", strings.ToLower(req.Email), true).First(&user).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			sendResponse(c, http.StatusUnauthorized, "Login failed", nil, map[string]string{
				"field":   "email",
				"message": "Invalid credentials",
			})
			return
		}
		sendResponse(c, http.StatusInternalServerError, "Login failed", nil, "Database error")
		return
	}

	// Check for too many failed attempts
	if user.FailedLoginAttempts >= maxFailedLogins && user.LastFailedAttempt != nil {
		if user.LastFailedAttempt.After(time.Now().Add(-loginCooldown)) {
			tx.Rollback()
			sendResponse(c, http.StatusTooManyRequests, "Login failed", nil, map[string]string{
				"message":  "Too many failed attempts. Please try again later.",
				"cooldown": "15 minutes",
			})
			return
		}
		// Reset counter after cooldown
		user.FailedLoginAttempts = 0
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		now := time.Now()
		if err := tx.Model(&user).Updates(map[string]interface{}{
			"failed_login_attempts": user.FailedLoginAttempts + 1,
			"last_failed_attempt":   now,
		}).Error; err != nil {
			tx.Rollback()
			sendResponse(c, http.StatusInternalServerError, "Login failed", nil, "Failed to update login attempts")
			return
		}
		tx.Commit()
		sendResponse(c, http.StatusUnauthorized, "Login failed", nil, map[string]string{
			"field":   "password",
			"message": "Invalid credentials",
		})
		return
	}

	now := time.Now()
	session := models.UserSession{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		RefreshToken: uuid.NewString(),
		AccessToken:  uuid.NewString(),
		DeviceInfo:   deviceLabel(c.GetHeader("User-Agent")),
		IPAddress:    c.ClientIP(),
		UserAgent:    c.GetHeader("User-Agent"),
		Location:     ac.location(c),
		LastActivity: now,
		ExpiresAt:    now.Add(ac.settings.RefreshTokenTTL),
		IsActive:     true,
	}

	if err := tx.Create(&session).Error; err != nil {
		tx.Rollback()
		sendResponse(c, http.StatusInternalServerError, "Login failed", nil, "Failed to create session")
		return
	}

	if err := tx.Model(&user).Updates(map[string]interface{}{
		"last_login":            now,
		"failed_login_attempts": 0,
		"last_failed_attempt":   nil,
	}).Error; err != nil {
		tx.Rollback()
		sendResponse(c, http.StatusInternalServerError, "Login failed", nil, "Failed to update user")
		return
	}

	grant := database.AccessGrant{UserID: user.ID, SessionID: session.ID}
	if err := ac.cache.SetAccessToken(c.Request.Context(), session.AccessToken, grant, ac.settings.AccessTokenTTL); err != nil {
		tx.Rollback()
		sendResponse(c, http.StatusInternalServerError, "Login failed", nil, "Failed to create session")
		return
	}

	if err := tx.Commit().Error; err != nil {
		ac.cache.DeleteAccessToken(c.Request.Context(), session.AccessToken)
		sendResponse(c, http.StatusInternalServerError, "Login failed", nil, "Failed to commit transaction")
		return
	}

	ac.setRefreshCookie(c, session.RefreshToken, int(ac.settings.RefreshTokenTTL.Seconds()))

	c.JSON(http.StatusOK, models.TokenResponse{
		AccessToken: session.AccessToken,
		User:        models.Identity{ID: user.ID, Name: user.Name},
	})
}

// Refresh exchanges the refresh cookie for a new access token
func (ac *AuthController) Refresh(c *gin.Context) {
	refreshToken, err := c.Cookie(RefreshCookieName)
	if err != nil || refreshToken == "" {
		sendResponse(c, http.StatusUnauthorized, "Refresh failed", nil, "No session found")
		return
	}

	var session models.UserSession
	if err := ac.db.Preload("User").
		Where("refresh_token = ? AND is_active = ? AND expires_at > ?", refreshToken, true, time.Now()).
		First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ac.setRefreshCookie(c, "", -1)
			sendResponse(c, http.StatusUnauthorized, "Refresh failed", nil, "Invalid or expired session")
			return
		}
		sendResponse(c, http.StatusInternalServerError, "Refresh failed", nil, "Database error")
		return
	}

	ctx := c.Request.Context()
	accessToken := uuid.NewString()
	grant := database.AccessGrant{UserID: session.UserID, SessionID: session.ID}
	if err := ac.cache.SetAccessToken(ctx, accessToken, grant, ac.settings.AccessTokenTTL); err != nil {
		sendResponse(c, http.StatusInternalServerError, "Refresh failed", nil, "Failed to issue token")
		return
	}

	if err := ac.db.Model(&models.UserSession{}).Where("id = ?", session.ID).Updates(map[string]interface{}{
		"access_token":  accessToken,
		"last_activity": time.Now(),
	}).Error; err != nil {
		ac.cache.DeleteAccessToken(ctx, accessToken)
		sendResponse(c, http.StatusInternalServerError, "Refresh failed", nil, "Failed to update session")
		return
	}
	if session.AccessToken != "" {
		ac.cache.DeleteAccessToken(ctx, session.AccessToken)
	}

	c.JSON(http.StatusOK, models.TokenResponse{
		AccessToken: accessToken,
		User:        models.Identity{ID: session.User.ID, Name: session.User.Name},
	})
}

// Logout handles user logout
func (ac *AuthController) Logout(c *gin.Context) {
	refreshToken, err := c.Cookie(RefreshCookieName)
	if err != nil || refreshToken == "" {
		sendResponse(c, http.StatusBadRequest, "Logout failed", nil, "No session found")
		return
	}

	var session models.UserSession
	if err := ac.db.Where("refresh_token = ? AND is_active = ?", refreshToken, true).First(&session).Error; err != nil {
		ac.setRefreshCookie(c, "", -1)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			sendResponse(c, http.StatusBadRequest, "Logout failed", nil, "Invalid session")
			return
		}
		sendResponse(c, http.StatusInternalServerError, "Logout failed", nil, "Database error")
		return
	}

	if err := deactivateSessions(c.Request.Context(), ac.db, ac.cache, []models.UserSession{session}); err != nil {
		sendResponse(c, http.StatusInternalServerError, "Logout failed", nil, "Failed to end session")
		return
	}

	// Clear cookie
	ac.setRefreshCookie(c, "", -1)

	sendResponse(c, http.StatusOK, "Logged out successfully", nil, nil)
}

// AuthMiddleware authenticates bearer access tokens
func (ac *AuthController) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, AuthResponse{
				Status:  http.StatusUnauthorized,
				Message: "Authentication required",
				Error:   "No access token",
			})
			return
		}

		// First check the cache for quick validation
		grant, err := ac.cache.GetAccessToken(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, AuthResponse{
				Status:  http.StatusUnauthorized,
				Message: "Authentication failed",
				Error:   "Invalid session",
			})
			return
		}

		// Verify session in database and update last activity
		var session models.UserSession
		if err := ac.db.Where("id = ? AND access_token = ? AND is_active = ? AND expires_at > ?",
			grant.SessionID, token, true, time.Now()).First(&session).Error; err != nil {
			// Clean up the cache if session is invalid
			ac.cache.DeleteAccessToken(c.Request.Context(), token)
			c.AbortWithStatusJSON(http.StatusUnauthorized, AuthResponse{
				Status:  http.StatusUnauthorized,
				Message: "Authentication failed",
				Error:   "Invalid or expired session",
			})
			return
		}

		// A stale last_activity only affects the sessions listing; the request proceeds.
		if err := ac.db.Model(&models.UserSession{}).Where("id = ?", session.ID).Update("last_activity", time.Now()).Error; err != nil {
			ac.settings.Logger.Warn("failed to update session last activity", "session_id", session.ID, "error", err)
		}

		c.Set("userID", grant.UserID)
		c.Set("sessionID", session.ID)

		c.Next()
	}
}

func (ac *AuthController) setRefreshCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(RefreshCookieName, value, maxAge, refreshCookiePath, "", ac.settings.CookieSecure, true)
}

func (ac *AuthController) location(c *gin.Context) string {
	if ac.locator == nil {
		return ""
	}
	return ac.locator.GetIPLocation(c.Request.Context(), c.ClientIP())
}

// deactivateSessions ends sessions in the database and evicts their access tokens.
func deactivateSessions(ctx context.Context, db *gorm.DB, cache database.TokenCache, sessions []models.UserSession) error {
	if len(sessions) == 0 {
		return nil
	}
	ids := make([]string, 0, len(sessions))
	for _, s := range sessions {
		ids = append(ids, s.ID)
	}

	if err := db.Model(&models.UserSession{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"is_active":  false,
			"expires_at": time.Now(),
		}).Error; err != nil {
		return err
	}

	for _, s := range sessions {
		if s.AccessToken != "" {
			if err := cache.DeleteAccessToken(ctx, s.AccessToken); err != nil {
				return err
			}
		}
	}
	return nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// deviceLabel shortens a User-Agent to a browser/OS label.
func deviceLabel(userAgent string) string {
	ua := strings.ToLower(userAgent)
	if ua == "" {
		return "Unknown device"
	}

	browser := "Unknown browser"
	switch {
	case strings.Contains(ua, "edg/"):
		browser = "Edge"
	case strings.Contains(ua, "firefox/"):
		browser = "Firefox"
	case strings.Contains(ua, "chrome/"):
		browser = "Chrome"
	case strings.Contains(ua, "safari/"):
		browser = "Safari"
	case strings.HasPrefix(ua, "go-http-client"):
		return "Go client"
	}

	os := ""
	switch {
	case strings.Contains(ua, "android"):
		os = "Android"
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"):
		os = "iOS"
	case strings.Contains(ua, "windows"):
		os = "Windows"
	case strings.Contains(ua, "mac os"):
		os = "macOS"
	case strings.Contains(ua, "linux"):
		os = "Linux"
	}

	if os == "" {
		return browser
	}
	return browser + " on " + os
}
