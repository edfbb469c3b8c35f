package controllers

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/doha-pm/dpm-api/config"
	"github.com/doha-pm/dpm-api/middleware"
	"github.com/doha-pm/dpm-api/models"
	"github.com/doha-pm/dpm-api/services"
	"github.com/doha-pm/dpm-api/utils"
)

// CreateTenderRequest represents the multipart form fields for creating a tender
type CreateTenderRequest struct {
	TenderNumber string  `form:"tender_number" binding:"required"`
	Type         string  `form:"type" binding:"required"`
	OpeningDate  string  `form:"opening_date" binding:"required"` // RFC 3339
	ClosingDate  string  `form:"closing_date" binding:"required"` // RFC 3339
	MinimumPrice float64 `form:"minimum_price" binding:"required"`
	MaximumPrice float64 `form:"maximum_price" binding:"required"`
	Location     string  `form:"location" binding:"required"`
	Description  string  `form:"description" binding:"required,max=1000"`
	ProjectID    uint    `form:"project_id" binding:"required"`
}

// UpdateTenderRequest represents the request body for updating a tender
type UpdateTenderRequest struct {
	Type         *string  `json:"type"`
	OpeningDate  *string  `json:"opening_date"`
	ClosingDate  *string  `json:"closing_date"`
	MinimumPrice *float64 `json:"minimum_price"`
	MaximumPrice *float64 `json:"maximum_price"`
	Location     *string  `json:"location"`
	Description  *string  `json:"description"`
}

// AwardTenderRequest represents the request body for awarding a tender
type AwardTenderRequest struct {
	AwardedTo uint   `json:"awarded_to" binding:"required"`
	Company   string `json:"company" binding:"required"`
}

// CreateTender handles POST /api/v1/tenders - creates a tender against a
// project and arms its automatic close (admins only)
func CreateTender(c *gin.Context) {
	var req CreateTenderRequest
	if err := c.ShouldBind(&req); err != nil {
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

	openingDate, err := time.Parse(time.RFC3339, req.OpeningDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "opening_date must be an RFC 3339 timestamp",
			},
		})
		return
	}
	closingDate, err := time.Parse(time.RFC3339, req.ClosingDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "closing_date must be an RFC 3339 timestamp",
			},
		})
		return
	}

	if !openingDate.Before(closingDate) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "opening_date must be before closing_date",
			},
		})
		return
	}

	if req.MinimumPrice > req.MaximumPrice {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "minimum_price must not exceed maximum_price",
			},
		})
		return
	}

	db := config.GetDB()
	var project models.Project
	if err := db.First(&project, req.ProjectID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "PROJECT_NOT_FOUND",
				"message": "No project found with the given Id",
			},
		})
		return
	}

	// Upload attached documents, if any
	var documentKeys []string
	if form, err := c.MultipartForm(); err == nil && form != nil {
		files := form.File["documents"]
		if len(files) > 0 && services.GetS3Service() == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "STORAGE_UNAVAILABLE",
					"message": "Document storage is not configured",
				},
			})
			return
		}
		if len(files) > models.MaxTenderDocuments {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "TOO_MANY_DOCUMENTS",
					"message": fmt.Sprintf("At most %d documents are allowed", models.MaxTenderDocuments),
				},
			})
			return
		}

		for _, fileHeader := range files {
			if err := utils.ValidateDocumentFile(fileHeader); err != nil {
				uploadErr := err.(*utils.FileUploadError)
				c.JSON(http.StatusBadRequest, gin.H{
					"success": false,
					"error": gin.H{
						"code":    uploadErr.Code,
						"message": uploadErr.Message,
					},
				})
				return
			}

			s3Key, err := services.GetS3Service().UploadDocument(fileHeader)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error": gin.H{
						"code":    "UPLOAD_ERROR",
						"message": "Failed to upload tender document",
					},
				})
				return
			}
			documentKeys = append(documentKeys, s3Key)
		}
	}

	tender := models.Tender{
		TenderNumber: req.TenderNumber,
		Type:         req.Type,
		OpeningDate:  openingDate,
		ClosingDate:  closingDate,
		MinimumPrice: req.MinimumPrice,
		MaximumPrice: req.MaximumPrice,
		Location:     req.Location,
		Description:  req.Description,
		Status:       models.TenderStatusOpen,
		ProjectID:    req.ProjectID,
	}
	tender.SetDocumentKeys(documentKeys)

	if err := db.Create(&tender).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to create tender",
			},
		})
		return
	}

	// Arm the automatic close at closing time
	services.ArmTenderClosing(db, tender.ID, tender.ClosingDate)
	log.Printf("Scheduler for tender %d is set at %s", tender.ID, tender.ClosingDate)

	if err := db.Preload("Project").First(&tender, tender.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load tender details",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    tender,
	})
}

// GetAllTenders handles GET /api/v1/tenders - lists tenders with filters and
// pagination
func GetAllTenders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit < 1 {
		limit = 10
	}

	db := config.GetDB()
	query := db.Model(&models.Tender{})

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if tenderType := c.Query("type"); tenderType != "" {
		query = query.Where("type = ?", tenderType)
	}
	if location := c.Query("location"); location != "" {
		query = query.Where("location = ?", location)
	}
	if projectID := c.Query("project_id"); projectID != "" {
		query = query.Where("project_id = ?", projectID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to count tenders",
			},
		})
		return
	}

	var tenders []models.Tender
	offset := (page - 1) * limit
	if err := query.Preload("Project").Order("created_at DESC").Limit(limit).Offset(offset).Find(&tenders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to query tenders",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"total_records": total,
		"data":          tenders,
	})
}

// GetTender handles GET /api/v1/tenders/:id - returns a tender with its
// participant count and presigned document URLs
func GetTender(c *gin.Context) {
	db := config.GetDB()

	var tender models.Tender
	if err := db.Preload("Project").Preload("AwardedVendor").First(&tender, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "No record found with given Id",
			},
		})
		return
	}

	var participants int64
	if err := db.Model(&models.Bid{}).Where("tender_id = ?", tender.ID).Count(&participants).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to count participants",
			},
		})
		return
	}

	// Presigned URLs are best-effort; a storage hiccup should not hide the
	// tender itself.
	if s3Service := services.GetS3Service(); s3Service != nil {
		for _, key := range tender.DocumentKeys() {
			url, err := s3Service.GetPresignedURL(key)
			if err != nil {
				log.Printf("Failed to presign document %s: %v", key, err)
				continue
			}
			tender.DocumentURLs = append(tender.DocumentURLs, url)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":            true,
		"no_of_participants": participants,
		"data":               tender,
	})
}

// UpdateTender handles PUT /api/v1/tenders/:id - updates tender fields and
// re-arms the close schedule when the closing date moves (admins only)
func UpdateTender(c *gin.Context) {
	var req UpdateTenderRequest
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
	if err := db.First(&tender, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "No record found with given Id",
			},
		})
		return
	}

	updates := make(map[string]interface{})
	if req.Type != nil {
		updates["type"] = *req.Type
	}
	if req.Location != nil {
		updates["location"] = *req.Location
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.MinimumPrice != nil {
		updates["minimum_price"] = *req.MinimumPrice
	}
	if req.MaximumPrice != nil {
		updates["maximum_price"] = *req.MaximumPrice
	}

	openingDate := tender.OpeningDate
	if req.OpeningDate != nil {
		parsed, err := time.Parse(time.RFC3339, *req.OpeningDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": "opening_date must be an RFC 3339 timestamp",
				},
			})
			return
		}
		openingDate = parsed
		updates["opening_date"] = parsed
	}

	closingDateChanged := false
	closingDate := tender.ClosingDate
	if req.ClosingDate != nil {
		parsed, err := time.Parse(time.RFC3339, *req.ClosingDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": "closing_date must be an RFC 3339 timestamp",
				},
			})
			return
		}
		closingDate = parsed
		closingDateChanged = !parsed.Equal(tender.ClosingDate)
		updates["closing_date"] = parsed
	}

	if !openingDate.Before(closingDate) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "opening_date must be before closing_date",
			},
		})
		return
	}

	if len(updates) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    tender,
		})
		return
	}

	if err := db.Model(&tender).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to update tender",
			},
		})
		return
	}

	// Moving the closing date of an open tender replaces its pending close;
	// the old schedule can no longer fire.
	if closingDateChanged && tender.Status == models.TenderStatusOpen {
		services.ArmTenderClosing(db, tender.ID, closingDate)
		log.Printf("Scheduler for tender %d re-armed at %s", tender.ID, closingDate)
	}

	if err := db.First(&tender, tender.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load tender details",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    tender,
	})
}

// DeleteTender handles DELETE /api/v1/tenders/:id - removes a tender, its
// bids and its pending close schedule (admins only)
func DeleteTender(c *gin.Context) {
	db := config.GetDB()

	var tender models.Tender
	if err := db.First(&tender, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "No record found with given Id",
			},
		})
		return
	}

	// Bids reference the tender, so they go first
	if err := db.Where("tender_id = ?", tender.ID).Delete(&models.Bid{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to delete tender bids",
			},
		})
		return
	}

	services.GetScheduler().Cancel(tender.ID)

	if err := db.Delete(&tender).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to delete tender",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    nil,
	})
}

// AwardTender handles PATCH /api/v1/tenders/:id/award - awards a tender under
// evaluation to a vendor (admins only)
func AwardTender(c *gin.Context) {
	admin, err := middleware.GetCurrentUser(c)
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

	var req AwardTenderRequest
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
	if err := db.First(&tender, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "No record found with given Id",
			},
		})
		return
	}

	var vendor models.User
	if err := db.First(&vendor, req.AwardedTo).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "USER_NOT_FOUND",
				"message": "No vendor found with the given Id",
			},
		})
		return
	}

	// Award is only legal from Under_Evaluation; the conditional update
	// also guards against a concurrent transition.
	result := db.Model(&models.Tender{}).
		Where("id = ? AND status = ?", tender.ID, models.TenderStatusUnderEvaluation).
		Updates(map[string]interface{}{
			"status":          models.TenderStatusAwarded,
			"awarded_to":      vendor.ID,
			"awarded_company": req.Company,
		})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to award tender",
			},
		})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_TRANSITION",
				"message": "Tender can only be awarded while under evaluation",
			},
		})
		return
	}

	// Best-effort side channel: the award stands even if these fail.
	content := fmt.Sprintf("Congratulations, we are pleased to let you know that your company %q has been selected for the project", req.Company)
	services.RecordNotification(db, vendor.ID, models.NotificationTypeEmail, content, admin.ID)
	services.NotifyByEmail(vendor.Email, "Awarded with tender", fmt.Sprintf("<h2>Hi, %s</h2><p>%s</p>", vendor.Name, content))

	if err := db.Preload("AwardedVendor").First(&tender, tender.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load tender details",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    tender,
	})
}

// UnAwardTender handles PATCH /api/v1/tenders/:id/unaward - reverses an award
// back to Under_Evaluation (admins only)
func UnAwardTender(c *gin.Context) {
	db := config.GetDB()

	var tender models.Tender
	if err := db.First(&tender, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "No record found with given Id",
			},
		})
		return
	}

	result := db.Model(&models.Tender{}).
		Where("id = ? AND status = ?", tender.ID, models.TenderStatusAwarded).
		Updates(map[string]interface{}{
			"status":          models.TenderStatusUnderEvaluation,
			"awarded_to":      nil,
			"awarded_company": nil,
		})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to un-award tender",
			},
		})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_TRANSITION",
				"message": "Only an awarded tender can be un-awarded",
			},
		})
		return
	}

	if err := db.First(&tender, tender.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load tender details",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    tender,
	})
}

// ChangeTenderStatus handles PATCH /api/v1/tenders/:id/status - a manual
// close, legal only once the closing date has passed (super admins only)
func ChangeTenderStatus(c *gin.Context) {
	db := config.GetDB()

	var tender models.Tender
	if err := db.First(&tender, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "No record found with given Id",
			},
		})
		return
	}

	if tender.Status != models.TenderStatusOpen || time.Now().Before(tender.ClosingDate) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_TRANSITION",
				"message": "Cannot change tender status",
			},
		})
		return
	}

	closed, err := services.CloseTender(db, tender.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to change tender status",
			},
		})
		return
	}
	if !closed {
		// The scheduled close won the race; the precondition no longer holds.
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_TRANSITION",
				"message": "Cannot change tender status",
			},
		})
		return
	}

	if err := db.First(&tender, tender.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load tender details",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    tender,
	})
}

// GetTenderBids handles GET /api/v1/tenders/:id/bids - lists the evaluated
// bids on a tender with bidder and company details
func GetTenderBids(c *gin.Context) {
	db := config.GetDB()

	var tender models.Tender
	if err := db.First(&tender, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "No record found with given Id",
			},
		})
		return
	}

	// Bids still pending from the protected window carry no evaluation and
	// are excluded.
	var bids []models.Bid
	if err := db.Where("tender_id = ? AND status <> ''", tender.ID).
		Preload("User").Preload("User.Company").
		Find(&bids).Error; err != nil {
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
		"success": true,
		"data":    bids,
	})
}
