package controllers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/doha-pm/dpm-api/config"
	"github.com/doha-pm/dpm-api/middleware"
	"github.com/doha-pm/dpm-api/models"
	"github.com/doha-pm/dpm-api/services"
)

// CreateProjectRequest represents the request body for creating a project
type CreateProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Location    string `json:"location" binding:"required"`
	Description string `json:"description" binding:"omitempty,max=1000"`
	Type        string `json:"type" binding:"required"`
}

// UpdateProjectRequest represents the request body for updating a project
type UpdateProjectRequest struct {
	Name        string `json:"name" binding:"omitempty"`
	Location    string `json:"location" binding:"omitempty"`
	Description string `json:"description" binding:"omitempty,max=1000"`
	Type        string `json:"type" binding:"omitempty"`
}

// CreateProject handles POST /api/v1/projects - registers a new project for
// the current client. Projects start unapproved and only become visible to
// vendors once an admin approves them.
func CreateProject(c *gin.Context) {
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

	var req CreateProjectRequest
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

	project := models.Project{
		Name:        req.Name,
		Location:    req.Location,
		Description: req.Description,
		Type:        req.Type,
		IsApproved:  false,
		ClientID:    user.ID,
	}

	db := config.GetDB()
	if err := db.Create(&project).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to create project",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    project,
	})
}

// GetAllProjects handles GET /api/v1/projects - lists projects with optional
// approval and type filters
func GetAllProjects(c *gin.Context) {
	db := config.GetDB()
	query := db.Model(&models.Project{})

	if approved := c.Query("is_approved"); approved != "" {
		query = query.Where("is_approved = ?", approved == "true")
	}
	if projectType := c.Query("type"); projectType != "" {
		query = query.Where("type = ?", projectType)
	}
	if clientID := c.Query("client_id"); clientID != "" {
		query = query.Where("client_id = ?", clientID)
	}

	var projects []models.Project
	if err := query.Preload("Client").Order("created_at DESC").Find(&projects).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to query projects",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    projects,
	})
}

// GetProject handles GET /api/v1/projects/:id - gets a single project
func GetProject(c *gin.Context) {
	db := config.GetDB()

	var project models.Project
	if err := db.Preload("Client").First(&project, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "PROJECT_NOT_FOUND",
				"message": "No record found with given Id",
			},
		})
		return
	}

	// Best-effort presigned URL for the project image
	response := gin.H{"project": project}
	if project.ImageS3Key != nil && *project.ImageS3Key != "" {
		if s3 := services.GetS3Service(); s3 != nil {
			url, err := s3.GetPresignedURL(*project.ImageS3Key)
			if err != nil {
				log.Printf("Failed to presign project image %s: %v", *project.ImageS3Key, err)
			} else {
				response["image_url"] = url
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    response,
	})
}

// UpdateProject handles PUT /api/v1/projects/:id - updates project fields
func UpdateProject(c *gin.Context) {
	var req UpdateProjectRequest
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
	var project models.Project
	if err := db.First(&project, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "PROJECT_NOT_FOUND",
				"message": "No record found with given Id",
			},
		})
		return
	}

	updates := make(map[string]interface{})
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Location != "" {
		updates["location"] = req.Location
	}
	if req.Description != "" {
		updates["description"] = req.Description
	}
	if req.Type != "" {
		updates["type"] = req.Type
	}

	if len(updates) > 0 {
		if err := db.Model(&project).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DATABASE_ERROR",
					"message": "Failed to update project",
				},
			})
			return
		}
	}

	if err := db.First(&project, project.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load project",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    project,
	})
}

// ApproveProject handles PATCH /api/v1/projects/:id/approve - marks a project
// as approved so tenders can be opened against it (admins only)
func ApproveProject(c *gin.Context) {
	db := config.GetDB()

	var project models.Project
	if err := db.First(&project, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "PROJECT_NOT_FOUND",
				"message": "No record found with given Id",
			},
		})
		return
	}

	if err := db.Model(&project).Update("is_approved", true).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to approve project",
			},
		})
		return
	}

	project.IsApproved = true
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    project,
	})
}

// DeleteProject handles DELETE /api/v1/projects/:id - deletes a project.
// A project still referenced by tenders cannot be deleted.
func DeleteProject(c *gin.Context) {
	db := config.GetDB()

	var project models.Project
	if err := db.First(&project, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "PROJECT_NOT_FOUND",
				"message": "No record found with given Id",
			},
		})
		return
	}

	var tenderCount int64
	if err := db.Model(&models.Tender{}).Where("project_id = ?", project.ID).Count(&tenderCount).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to check project tenders",
			},
		})
		return
	}
	if tenderCount > 0 {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "PROJECT_HAS_TENDERS",
				"message": "Cannot delete a project with tenders. Delete the tenders first.",
			},
		})
		return
	}

	// Clean up the project image if one was uploaded
	if project.ImageS3Key != nil && *project.ImageS3Key != "" {
		if s3 := services.GetS3Service(); s3 != nil {
			if err := s3.DeleteDocument(*project.ImageS3Key); err != nil {
				log.Printf("Failed to delete project image %s: %v", *project.ImageS3Key, err)
			}
		}
	}

	if err := db.Delete(&project).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to delete project",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    nil,
	})
}
