package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/doha-pm/dpm-api/config"
	"github.com/doha-pm/dpm-api/middleware"
	"github.com/doha-pm/dpm-api/models"
)

func TestCreateProject(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)

	client := models.User{
		Auth0ID: "auth0|client1",
		Name:    "Client One",
		Email:   "client@example.com",
		Role:    models.RoleClient,
	}
	db.Create(&client)

	tests := []struct {
		name           string
		requestBody    map[string]interface{}
		expectedStatus int
		expectedCode   string
	}{
		{
			name: "Create project as client",
			requestBody: map[string]interface{}{
				"name":        "Lusail Marina",
				"location":    "Lusail",
				"description": "Marina redevelopment",
				"type":        "Construction",
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "Fail with missing name",
			requestBody: map[string]interface{}{
				"location": "Lusail",
				"type":     "Construction",
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter()
			router.POST("/projects",
				mockAuthMiddleware(client.Auth0ID, client.Role, "mock-token"),
				middleware.RequireRole(models.RoleClient),
				CreateProject,
			)

			body, _ := json.Marshal(tt.requestBody)
			req, _ := http.NewRequest(http.MethodPost, "/projects", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var response map[string]interface{}
			assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

			if tt.expectedCode != "" {
				errorData := response["error"].(map[string]interface{})
				assert.Equal(t, tt.expectedCode, errorData["code"])
				return
			}

			// New projects always start unapproved, owned by the caller
			data := response["data"].(map[string]interface{})
			assert.Equal(t, false, data["is_approved"])
			assert.Equal(t, float64(client.ID), data["client_id"])
		})
	}
}

func TestApproveProject(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)

	admin := createTestAdmin(t, db)
	project := createTestProject(t, db, "approve")
	db.Model(&project).Update("is_approved", false)

	router := setupTestRouter()
	router.PATCH("/projects/:id/approve",
		mockAuthMiddleware(admin.Auth0ID, admin.Role, "mock-token"),
		middleware.RequireRole(models.RoleAdmin),
		ApproveProject,
	)

	req, _ := http.NewRequest(http.MethodPatch, "/projects/"+itoa(project.ID)+"/approve", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var reloaded models.Project
	assert.NoError(t, db.First(&reloaded, project.ID).Error)
	assert.True(t, reloaded.IsApproved)

	// Unknown project
	req, _ = http.NewRequest(http.MethodPatch, "/projects/9999/approve", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetAllProjectsFilters(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)
	admin := createTestAdmin(t, db)

	approved := createTestProject(t, db, "filters-a")
	pending := createTestProject(t, db, "filters-b")
	db.Model(&pending).Update("is_approved", false)

	router := setupTestRouter()
	router.GET("/projects",
		mockAuthMiddleware(admin.Auth0ID, admin.Role, "mock-token"),
		GetAllProjects,
	)

	req, _ := http.NewRequest(http.MethodGet, "/projects?is_approved=true", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response["data"].([]interface{})
	assert.Len(t, data, 1)
	first := data[0].(map[string]interface{})
	assert.Equal(t, float64(approved.ID), first["id"])
}

func TestDeleteProject(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)
	admin := createTestAdmin(t, db)

	tender := createTestTender(t, db, "T-P1", models.TenderStatusOpen, time.Now().Add(time.Hour))
	emptyProject := createTestProject(t, db, "delete-empty")

	router := setupTestRouter()
	router.DELETE("/projects/:id",
		mockAuthMiddleware(admin.Auth0ID, admin.Role, "mock-token"),
		middleware.RequireRole(models.RoleAdmin),
		DeleteProject,
	)

	// A project with tenders cannot be deleted
	req, _ := http.NewRequest(http.MethodDelete, "/projects/"+itoa(tender.ProjectID), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusConflict, w.Code)

	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	errorData := response["error"].(map[string]interface{})
	assert.Equal(t, "PROJECT_HAS_TENDERS", errorData["code"])

	// A project without tenders can
	req, _ = http.NewRequest(http.MethodDelete, "/projects/"+itoa(emptyProject.ID), nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var count int64
	db.Model(&models.Project{}).Where("id = ?", emptyProject.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}
