package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/doha-pm/dpm-api/config"
	"github.com/doha-pm/dpm-api/middleware"
	"github.com/doha-pm/dpm-api/models"
	"github.com/doha-pm/dpm-api/services"
)

// ParticipateRequest represents the request body for submitting a bid
type ParticipateRequest struct {
	TenderID          uint    `json:"tender_id" binding:"required"`
	DurationInLetters string  `json:"duration_in_letters"`
	DurationInNumbers string  `json:"duration_in_numbers"`
	PriceInLetters    string  `json:"price_in_letters"`
	PriceInNumbers    float64 `json:"price_in_numbers"`
}

// UpdateBidRequest represents the request body for updating a bid
type UpdateBidRequest struct {
	DurationInLetters *string  `json:"duration_in_letters"`
	DurationInNumbers *string  `json:"duration_in_numbers"`
	PriceInLetters    *string  `json:"price_in_letters"`
	PriceInNumbers    *float64 `json:"price_in_numbers"`
	Stage             *string  `json:"stage"`
}

// ParticipateInBidding handles POST /api/v1/bids - submits a bid on an open
// tender (vendors only). Submissions inside the protected window before
// closing are registered without numbers; the bidder finalizes them through
// the bid update endpoint.
func ParticipateInBidding(c *gin.Context) {
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

	// Contractors need the participation capability flag on top of the role
	if user.Role == models.RoleContractor && !user.CanParticipateInTenders {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "You don't have permission to perform this action",
			},
		})
		return
	}

	var req ParticipateRequest
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
	var tender models.Tender
	if err := db.First(&tender, req.TenderID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Could not find tender with the given Id",
			},
		})
		return
	}

	now := time.Now()
	if !tender.IsBiddingOpen(now) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "BIDDING_CLOSED",
				"message": "Cannot participate in tender bidding",
			},
		})
		return
	}

	// One bid per vendor per tender
	var existing int64
	if err := db.Model(&models.Bid{}).
		Where("tender_id = ? AND user_id = ?", tender.ID, user.ID).
		Count(&existing).Error; err == nil && existing > 0 {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ALREADY_PARTICIPATED",
				"message": "You have already placed a bid on this tender",
			},
		})
		return
	}

	windowStart := tender.ProtectedWindowStart()

	if !now.Before(windowStart) {
		// Protected window: register the bid without numbers. The reminder
		// is armed at the window boundary, which has already passed, so it
		// fires immediately.
		bid := models.Bid{
			TenderID: tender.ID,
			UserID:   user.ID,
		}
		if err := db.Create(&bid).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DATABASE_ERROR",
					"message": "Failed to create bid",
				},
			})
			return
		}

		email, name, mobile := user.Email, user.Name, user.MobileNumber
		services.GetReminderScheduler().Arm(bid.ID, windowStart, func() {
			services.NotifyByEmail(email, "Bidding Time Arrived",
				fmt.Sprintf("<h2>Hi, %s</h2><p>Please submit your bidding price and duration now by updating your bid, before the tender closes</p>", name))
			if mobile != "" {
				services.NotifyBySMS(mobile, "Bidding time arrived, please submit your bidding info")
			}
		})

		content := "Thanks for participating in the bidding, you will be notified using email and SMS when bidding time arrives"
		services.RecordNotification(db, user.ID, models.NotificationTypeEmail, content, user.ID)
		services.NotifyByEmail(user.Email, "Bidding Participation",
			fmt.Sprintf("<h2>Hi, %s</h2><p>%s</p>", user.Name, content))

		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"data":    bid,
		})
		return
	}

	// Normal case: full submission, evaluated against the price band
	bid := models.Bid{
		TenderID:          tender.ID,
		UserID:            user.ID,
		DurationInLetters: req.DurationInLetters,
		DurationInNumbers: req.DurationInNumbers,
		PriceInLetters:    req.PriceInLetters,
		PriceInNumbers:    req.PriceInNumbers,
		Status:            models.EvaluateBidStatus(tender.MinimumPrice, tender.MaximumPrice, req.PriceInNumbers),
	}
	if err := db.Create(&bid).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to create bid",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    bid,
	})
}

// UpdateBid handles PATCH /api/v1/bids/:id - updates a bid's numbers and
// recomputes its qualification. This is also how a protected-window bid is
// finalized before closing. Bidders may update their own bids; admins any.
func UpdateBid(c *gin.Context) {
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

	var req UpdateBidRequest
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
	var bid models.Bid
	if err := db.First(&bid, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Could not find bid with the given Id",
			},
		})
		return
	}

	if !user.IsAdmin() && bid.UserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FORBIDDEN",
				"message": "You don't have permission to perform this action",
			},
		})
		return
	}

	var tender models.Tender
	if err := db.First(&tender, bid.TenderID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Could not find tender with the given Id",
			},
		})
		return
	}

	updates := make(map[string]interface{})
	if req.DurationInLetters != nil {
		updates["duration_in_letters"] = *req.DurationInLetters
	}
	if req.DurationInNumbers != nil {
		updates["duration_in_numbers"] = *req.DurationInNumbers
	}
	if req.PriceInLetters != nil {
		updates["price_in_letters"] = *req.PriceInLetters
	}
	if req.PriceInNumbers != nil {
		updates["price_in_numbers"] = *req.PriceInNumbers
		// Same inclusive band as at submission time
		updates["status"] = models.EvaluateBidStatus(tender.MinimumPrice, tender.MaximumPrice, *req.PriceInNumbers)
	}

	// The evaluation stage tag is an admin-only annotation
	if req.Stage != nil {
		if !user.IsAdmin() {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "FORBIDDEN",
					"message": "Only admins can change the evaluation stage",
				},
			})
			return
		}
		updates["stage"] = *req.Stage
	}

	if len(updates) > 0 {
		if err := db.Model(&bid).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DATABASE_ERROR",
					"message": "Failed to update bid",
				},
			})
			return
		}
	}

	services.NotifyByEmail(user.Email, "Bid Placed",
		fmt.Sprintf("<h2>Hi, %s</h2><p>Your bid has been submitted successfully</p>", user.Name))

	if err := db.First(&bid, bid.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load bid details",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    bid,
	})
}

// DeleteBid handles DELETE /api/v1/bids/:id - removes a bid (admins only).
// Its pending finalize reminder, if any, is cancelled with it.
func DeleteBid(c *gin.Context) {
	db := config.GetDB()

	var bid models.Bid
	if err := db.First(&bid, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "No record found with given Id",
			},
		})
		return
	}

	services.GetReminderScheduler().Cancel(bid.ID)

	if err := db.Delete(&bid).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to delete bid",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    nil,
	})
}

// GetAllBids handles GET /api/v1/bids - lists bids with pagination (admin
// and employee roles)
func GetAllBids(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit < 1 {
		limit = 10
	}

	db := config.GetDB()
	query := db.Model(&models.Bid{})

	if tenderID := c.Query("tender_id"); tenderID != "" {
		query = query.Where("tender_id = ?", tenderID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to count bids",
			},
		})
		return
	}

	var bids []models.Bid
	offset := (page - 1) * limit
	if err := query.Preload("User").Preload("User.Company").
		Limit(limit).Offset(offset).Find(&bids).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to query bids",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"total_records": total,
		"data":          bids,
	})
}

// GetBiddersByTender handles GET /api/v1/tenders/:id/bidders - lists the
// evaluated bidders on a tender
func GetBiddersByTender(c *gin.Context) {
	tenderID, err := strconv.Atoi(c.Param("id"))
	if err != nil || tenderID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Tender id is required",
			},
		})
		return
	}

	db := config.GetDB()
	var bidders []models.Bid
	if err := db.Where("tender_id = ? AND status <> ''", tenderID).
		Preload("User").Preload("User.Company").
		Find(&bidders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to query bidders",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    bidders,
	})
}

// GetMyBids handles GET /api/v1/bids/me - lists the caller's bids with their
// tenders
func GetMyBids(c *gin.Context) {
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
	var bids []models.Bid
	if err := db.Where("user_id = ?", user.ID).Preload("Tender").Find(&bids).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to query bids",
			},
		})
		return
	}

	// The Tender association is excluded from the Bid JSON shape, so pair
	// them up explicitly here.
	items := make([]gin.H, 0, len(bids))
	for _, bid := range bids {
		items = append(items, gin.H{
			"bid":    bid,
			"tender": bid.Tender,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    items,
	})
}
