package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/doha-pm/dpm-api/config"
	"github.com/doha-pm/dpm-api/models"
	"github.com/doha-pm/dpm-api/services"
)

// GetTenderDocumentURL handles GET /api/v1/tenders/:id/documents/:index -
// returns a presigned download URL for one of the tender's documents.
// The index is zero-based and must address one of the stored documents.
func GetTenderDocumentURL(c *gin.Context) {
	db := config.GetDB()

	var tender models.Tender
	if err := db.First(&tender, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "TENDER_NOT_FOUND",
				"message": "No record found with given Id",
			},
		})
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_INDEX",
				"message": "Document index must be a non-negative integer",
			},
		})
		return
	}

	keys := tender.DocumentKeys()
	if index >= len(keys) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DOCUMENT_NOT_FOUND",
				"message": "No document at the given index",
			},
		})
		return
	}

	s3 := services.GetS3Service()
	if s3 == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "STORAGE_UNAVAILABLE",
				"message": "Document storage is not configured",
			},
		})
		return
	}

	url, err := s3.GetPresignedURL(keys[index])
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "PRESIGN_FAILED",
				"message": "Failed to generate document URL",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"url":     url,
			"expires": "1 hour",
		},
	})
}
