package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Krish-Depani/auth-session-client/database"
	"github.com/Krish-Depani/auth-session-client/models"
	"github.com/Krish-Depani/auth-session-client/validators"
)

type UserController struct {
	db    *gorm.DB
	cache database.TokenCache
}

func NewUserController(db *gorm.DB, cache database.TokenCache) *UserController {
	return &UserController{
		db:    db,
		cache: cache,
	}
}

func (uc *UserController) GetProfile(c *gin.Context) {
	user, ok := uc.currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, user.Profile())
}

func (uc *UserController) UpdateProfile(c *gin.Context) {
	user, ok := uc.currentUser(c)
	if !ok {
		return
	}
	patch, ok := validators.ValidateProfilePatch(c)
	if !ok {
		return
	}

	updates := map[string]interface{}{}
	if patch.Name != nil {
		updates["name"] = strings.TrimSpace(*patch.Name)
	}
	if patch.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*patch.Email))
		if email != user.Email {
			var taken int64
			if err := uc.db.Model(&models.User{}).Where("email = ? AND id <> ?", email, user.ID).Count(&taken).Error; err != nil {
				sendResponse(c, http.StatusInternalServerError, "Failed to update profile", nil, "Database error")
				return
			}
			if taken > 0 {
				sendResponse(c, http.StatusConflict, "Failed to update profile", nil, map[string]string{
					"field":   "email",
					"message": "A user with this email already exists",
				})
				return
			}
		}
		updates["email"] = email
	}
	if patch.DOB != nil {
		updates["dob"] = *patch.DOB
	}
	if patch.Sex != nil {
		updates["sex"] = *patch.Sex
	}
	if patch.Height != nil {
		updates["height"] = *patch.Height
	}
	if patch.Weight != nil {
		updates["weight"] = *patch.Weight
	}
	if patch.BloodGroup != nil {
		updates["blood_group"] = *patch.BloodGroup
	}
	if patch.ActivityLevel != nil {
		updates["activity_level"] = *patch.ActivityLevel
	}

	if err := uc.db.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		sendResponse(c, http.StatusInternalServerError, "Failed to update profile", nil, "Database error")
		return
	}

	var updated models.User
	if err := uc.db.First(&updated, "id = ?", user.ID).Error; err != nil {
		sendResponse(c, http.StatusInternalServerError, "Failed to update profile", nil, "Database error")
		return
	}
	c.JSON(http.StatusOK, updated.Profile())
}

// GetActiveSessions lists the caller's live device sessions, most recently
// used first.
func (uc *UserController) GetActiveSessions(c *gin.Context) {
	userID := c.GetString("userID")

	var sessions []models.UserSession
	if err := uc.db.Where("user_id = ? AND is_active = ? AND expires_at > ?",
		userID, true, time.Now()).
		Order("last_activity DESC").
		Find(&sessions).Error; err != nil {
		sendResponse(c, http.StatusInternalServerError, "Failed to fetch sessions", nil, "Database error")
		return
	}

	deviceSessions := make([]models.DeviceSession, 0, len(sessions))
	for _, session := range sessions {
		deviceSessions = append(deviceSessions, session.DeviceSession())
	}

	c.JSON(http.StatusOK, deviceSessions)
}

// RevokeSessions ends the caller's sessions whose ids are in the request body.
// Ids that are unknown, inactive or owned by someone else are ignored.
func (uc *UserController) RevokeSessions(c *gin.Context) {
	ids, ok := validators.ValidateRevokeRequest(c)
	if !ok {
		return
	}
	userID := c.GetString("userID")

	var sessions []models.UserSession
	if err := uc.db.Where("user_id = ? AND is_active = ? AND id IN ?", userID, true, ids).
		Find(&sessions).Error; err != nil {
		sendResponse(c, http.StatusInternalServerError, "Failed to revoke sessions", nil, "Database error")
		return
	}

	if err := deactivateSessions(c.Request.Context(), uc.db, uc.cache, sessions); err != nil {
		sendResponse(c, http.StatusInternalServerError, "Failed to revoke sessions", nil, "Failed to end sessions")
		return
	}

	sendResponse(c, http.StatusOK, "Sessions revoked successfully", map[string]interface{}{
		"revoked": len(sessions),
	}, nil)
}

func (uc *UserController) currentUser(c *gin.Context) (models.User, bool) {
	var user models.User

	userID := c.GetString("userID")
	if userID == "" {
		sendResponse(c, http.StatusUnauthorized, "Not authenticated", nil, "User not found in context")
		return user, false
	}

	if err := uc.db.First(&user, "id = ? AND is_active = ?", userID, true).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			sendResponse(c, http.StatusNotFound, "User not found", nil, "User does not exist")
			return user, false
		}
		sendResponse(c, http.StatusInternalServerError, "Failed to fetch user", nil, "Database error")
		return user, false
	}
	return user, true
}
