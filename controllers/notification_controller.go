package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/doha-pm/dpm-api/config"
	"github.com/doha-pm/dpm-api/middleware"
	"github.com/doha-pm/dpm-api/models"
	"github.com/doha-pm/dpm-api/services"
)

// CreateNotificationRequest represents the request body for sending a
// notification to a user
type CreateNotificationRequest struct {
	UserID  uint   `json:"user_id" binding:"required"`
	Type    string `json:"type" binding:"required,oneof=email sms"`
	Content string `json:"content" binding:"required"`
}

// GetMyNotifications handles GET /api/v1/notifications/me - lists the current
// user's notifications, newest first
func GetMyNotifications(c *gin.Context) {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return
	}

	db := config.GetDB()
	query := db.Where("user_id = ?", user.ID)
	if notifType := c.Query("type"); notifType != "" {
		query = query.Where("type = ?", notifType)
	}

	var notifications []models.Notification
	if err := query.Order("created_at DESC").Find(&notifications).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to query notifications",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    notifications,
	})
}

// CreateNotification handles POST /api/v1/notifications - records a
// notification for a user and dispatches it over the requested channel
// (admins only). Delivery is best-effort: a failed send never fails the
// request.
func CreateNotification(c *gin.Context) {
	sender, err := middleware.GetCurrentUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return
	}

	var req CreateNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	db := config.GetDB()
	var recipient models.User
	if err := db.First(&recipient, req.UserID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "USER_NOT_FOUND",
				"message": "No record found with given Id",
			},
		})
		return
	}

	notification := models.Notification{
		UserID:   recipient.ID,
		Type:     req.Type,
		Content:  req.Content,
		SenderID: sender.ID,
	}
	if err := db.Create(&notification).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to create notification",
			},
		})
		return
	}

	switch req.Type {
	case models.NotificationTypeEmail:
		services.NotifyByEmail(recipient.Email, "Doha PM Notification", req.Content)
	case models.NotificationTypeSMS:
		services.NotifyBySMS(recipient.MobileNumber, req.Content)
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    notification,
	})
}
