package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/doha-pm/dpm-api/config"
	"github.com/doha-pm/dpm-api/middleware"
	"github.com/doha-pm/dpm-api/models"
	"github.com/doha-pm/dpm-api/services"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// Auto-migrate all models used by the controllers
	if err := db.AutoMigrate(
		&models.User{},
		&models.Company{},
		&models.Project{},
		&models.Tender{},
		&models.Bid{},
		&models.Notification{},
	); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	return router
}

// setupMockAuth0Server creates a mock HTTP server that simulates Auth0's /userinfo endpoint
func setupMockAuth0Server(userInfoMap map[string]*services.Auth0UserInfo) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/userinfo" {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		// Extract token from Authorization header
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" || len(authHeader) < 7 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		token := authHeader[7:] // Remove "Bearer " prefix

		// Look up user info by token
		userInfo, exists := userInfoMap[token]
		if !exists {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(userInfo)
	}))
}

// itoa formats a record ID for building request paths
func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// mockAuthMiddleware simulates the Auth0 JWT middleware for testing
// It sets up the context exactly as the real EnsureValidToken middleware does
func mockAuthMiddleware(auth0ID, role, accessToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Set the user_id (Auth0 ID from 'sub' claim)
		c.Set("user_id", auth0ID)

		// Set the access token for calling /userinfo
		c.Set("access_token", accessToken)

		// Create custom claims matching the real structure
		customClaims := &middleware.CustomClaims{
			Role: role,
		}

		// Create a proper ValidatedClaims structure
		// This matches what the real JWT middleware creates
		mockClaims := &validator.ValidatedClaims{
			CustomClaims: customClaims,
		}

		// Store in context the same way the real middleware does
		c.Set("validated_claims", mockClaims)

		c.Next()
	}
}

func TestCreateUser(t *testing.T) {
	// Setup
	db := setupTestDB(t)
	config.SetDB(db)

	// Mock Auth0 /userinfo responses keyed by access token
	userInfoMap := map[string]*services.Auth0UserInfo{
		"token-client": {
			Sub:          "auth0|client1",
			Email:        "client@example.com",
			Name:         "Client One",
			MobileNumber: "55551234",
		},
		"token-supplier": {
			Sub:   "auth0|supplier1",
			Email: "supplier@example.com",
			Name:  "Supplier One",
		},
		"token-noemail": {
			Sub:  "auth0|noemail",
			Name: "No Email",
		},
	}
	mockServer := setupMockAuth0Server(userInfoMap)
	defer mockServer.Close()
	config.SetConfig(&config.Config{Auth0Domain: mockServer.URL})

	tests := []struct {
		name           string
		auth0ID        string
		role           string
		accessToken    string
		expectedStatus int
		expectedCode   string
		checkResponse  func(t *testing.T, response map[string]interface{})
	}{
		{
			name:           "Create client user with mobile number",
			auth0ID:        "auth0|client1",
			role:           models.RoleClient,
			accessToken:    "token-client",
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, response map[string]interface{}) {
				data := response["data"].(map[string]interface{})
				assert.Equal(t, "Client One", data["name"])
				assert.Equal(t, "client@example.com", data["email"])
				assert.Equal(t, "55551234", data["mobile_number"])
				assert.Equal(t, models.RoleClient, data["role"])
			},
		},
		{
			name:           "Create supplier user from role claim",
			auth0ID:        "auth0|supplier1",
			role:           models.RoleSupplier,
			accessToken:    "token-supplier",
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, response map[string]interface{}) {
				data := response["data"].(map[string]interface{})
				assert.Equal(t, models.RoleSupplier, data["role"])
			},
		},
		{
			name:           "Fail on duplicate user",
			auth0ID:        "auth0|client1",
			role:           models.RoleClient,
			accessToken:    "token-client",
			expectedStatus: http.StatusConflict,
			expectedCode:   "USER_EXISTS",
		},
		{
			name:           "Fail when Auth0 omits the email",
			auth0ID:        "auth0|noemail",
			role:           models.RoleClient,
			accessToken:    "token-noemail",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "MISSING_EMAIL",
		},
		{
			name:           "Fail with unknown role claim",
			auth0ID:        "auth0|client1",
			role:           "Overlord",
			accessToken:    "token-client",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "INVALID_ROLE",
		},
		{
			name:           "Fail when Auth0 rejects the token",
			auth0ID:        "auth0|stranger",
			role:           models.RoleClient,
			accessToken:    "token-unknown",
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   "AUTH0_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter()
			router.POST("/users",
				mockAuthMiddleware(tt.auth0ID, tt.role, tt.accessToken),
				CreateUser,
			)

			req, _ := http.NewRequest(http.MethodPost, "/users", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var response map[string]interface{}
			err := json.Unmarshal(w.Body.Bytes(), &response)
			assert.NoError(t, err)

			if tt.expectedCode != "" {
				assert.False(t, response["success"].(bool))
				errorData := response["error"].(map[string]interface{})
				assert.Equal(t, tt.expectedCode, errorData["code"])
			}

			if tt.checkResponse != nil {
				tt.checkResponse(t, response)
			}
		})
	}
}

func TestGetMyProfile(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)

	company := models.Company{Name: "Al Wakra Trading", CommercialRegNumber: "CR-1234"}
	db.Create(&company)
	user := models.User{
		Auth0ID:   "auth0|supplier1",
		Name:      "Supplier One",
		Email:     "supplier@example.com",
		Role:      models.RoleSupplier,
		CompanyID: &company.ID,
	}
	db.Create(&user)

	tests := []struct {
		name           string
		auth0ID        string
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "Get own profile with company preloaded",
			auth0ID:        user.Auth0ID,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Fail for a token with no profile",
			auth0ID:        "auth0|stranger",
			expectedStatus: http.StatusNotFound,
			expectedCode:   "USER_NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter()
			router.GET("/users/me",
				mockAuthMiddleware(tt.auth0ID, models.RoleSupplier, "mock-token"),
				GetMyProfile,
			)

			req, _ := http.NewRequest(http.MethodGet, "/users/me", nil)
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

			data := response["data"].(map[string]interface{})
			assert.Equal(t, user.Email, data["email"])
			companyData := data["company"].(map[string]interface{})
			assert.Equal(t, company.Name, companyData["name"])
		})
	}
}

func TestUpdateMyProfile(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)

	user := models.User{
		Auth0ID:      "auth0|client1",
		Name:         "Client One",
		Email:        "client@example.com",
		MobileNumber: "55551234",
		Role:         models.RoleClient,
	}
	db.Create(&user)
	other := models.User{
		Auth0ID: "auth0|client2",
		Name:    "Client Two",
		Email:   "taken@example.com",
		Role:    models.RoleClient,
	}
	db.Create(&other)

	tests := []struct {
		name           string
		requestBody    map[string]interface{}
		expectedStatus int
		expectedCode   string
		checkResponse  func(t *testing.T, response map[string]interface{})
	}{
		{
			name: "Update name and mobile number",
			requestBody: map[string]interface{}{
				"name":          "Client Renamed",
				"mobile_number": "77779999",
			},
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, response map[string]interface{}) {
				data := response["data"].(map[string]interface{})
				assert.Equal(t, "Client Renamed", data["name"])
				assert.Equal(t, "77779999", data["mobile_number"])
				assert.Equal(t, "client@example.com", data["email"])
			},
		},
		{
			name:           "Empty body leaves the profile unchanged",
			requestBody:    map[string]interface{}{},
			expectedStatus: http.StatusOK,
		},
		{
			name: "Fail with malformed email",
			requestBody: map[string]interface{}{
				"email": "not-an-email",
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_ERROR",
		},
		{
			name: "Fail with wrong-length mobile number",
			requestBody: map[string]interface{}{
				"mobile_number": "123",
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_ERROR",
		},
		{
			name: "Fail when email is already taken",
			requestBody: map[string]interface{}{
				"email": "taken@example.com",
			},
			expectedStatus: http.StatusConflict,
			expectedCode:   "EMAIL_EXISTS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter()
			router.PUT("/users/me",
				mockAuthMiddleware(user.Auth0ID, models.RoleClient, "mock-token"),
				UpdateMyProfile,
			)

			body, _ := json.Marshal(tt.requestBody)
			req, _ := http.NewRequest(http.MethodPut, "/users/me", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var response map[string]interface{}
			assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

			if tt.expectedCode != "" {
				errorData := response["error"].(map[string]interface{})
				assert.Equal(t, tt.expectedCode, errorData["code"])
			}

			if tt.checkResponse != nil {
				tt.checkResponse(t, response)
			}
		})
	}
}

func TestAdminUpdateUser(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)

	admin := models.User{
		Auth0ID: "auth0|super",
		Name:    "Super Admin",
		Email:   "super@example.com",
		Role:    models.RoleSuperAdmin,
	}
	db.Create(&admin)
	contractor := models.User{
		Auth0ID: "auth0|contractor1",
		Name:    "Contractor One",
		Email:   "contractor@example.com",
		Role:    models.RoleContractor,
	}
	db.Create(&contractor)
	company := models.Company{Name: "Qatar Builders", CommercialRegNumber: "CR-9876"}
	db.Create(&company)

	router := setupTestRouter()
	router.PATCH("/users/:id",
		mockAuthMiddleware(admin.Auth0ID, admin.Role, "mock-token"),
		middleware.RequireRole(models.RoleSuperAdmin),
		AdminUpdateUser,
	)

	// Grant the contractor the tender participation flag and a company
	body, _ := json.Marshal(map[string]interface{}{
		"can_participate_in_tenders": true,
		"company_id":                 company.ID,
	})
	req, _ := http.NewRequest(http.MethodPatch, "/users/"+itoa(contractor.ID), bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var updated models.User
	assert.NoError(t, db.First(&updated, contractor.ID).Error)
	assert.True(t, updated.CanParticipateInTenders)
	assert.NotNil(t, updated.CompanyID)
	assert.Equal(t, company.ID, *updated.CompanyID)

	// Unknown role is rejected
	body, _ = json.Marshal(map[string]interface{}{"role": "Wizard"})
	req, _ = http.NewRequest(http.MethodPatch, "/users/"+itoa(contractor.ID), bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Unknown company is rejected
	body, _ = json.Marshal(map[string]interface{}{"company_id": 9999})
	req, _ = http.NewRequest(http.MethodPatch, "/users/"+itoa(contractor.ID), bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteUser(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)

	admin := models.User{
		Auth0ID: "auth0|super",
		Name:    "Super Admin",
		Email:   "super@example.com",
		Role:    models.RoleSuperAdmin,
	}
	db.Create(&admin)
	vendor := models.User{
		Auth0ID: "auth0|supplier1",
		Name:    "Supplier One",
		Email:   "supplier@example.com",
		Role:    models.RoleSupplier,
	}
	db.Create(&vendor)

	client := models.User{
		Auth0ID: "auth0|client1",
		Name:    "Client One",
		Email:   "client@example.com",
		Role:    models.RoleClient,
	}
	db.Create(&client)
	project := models.Project{Name: "Stadium", Location: "Doha", Type: "Construction", ClientID: client.ID}
	db.Create(&project)
	tender := models.Tender{
		TenderNumber: "T-500",
		Type:         "Construction",
		MinimumPrice: 1000,
		MaximumPrice: 5000,
		Location:     "Doha",
		Description:  "Works",
		Status:       models.TenderStatusAwarded,
		ProjectID:    project.ID,
		AwardedTo:    &vendor.ID,
	}
	db.Create(&tender)
	bid := models.Bid{TenderID: tender.ID, UserID: vendor.ID, PriceInNumbers: 2000, Status: models.BidStatusInRange}
	db.Create(&bid)

	router := setupTestRouter()
	router.DELETE("/users/:id",
		mockAuthMiddleware(admin.Auth0ID, admin.Role, "mock-token"),
		middleware.RequireRole(models.RoleSuperAdmin),
		DeleteUser,
	)

	// A vendor holding an awarded tender cannot be removed
	req, _ := http.NewRequest(http.MethodDelete, "/users/"+itoa(vendor.ID), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusConflict, w.Code)

	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	errorData := response["error"].(map[string]interface{})
	assert.Equal(t, "USER_HOLDS_AWARD", errorData["code"])

	// After the tender is un-awarded the delete cascades to the bids
	db.Model(&tender).Updates(map[string]interface{}{
		"status":     models.TenderStatusUnderEvaluation,
		"awarded_to": nil,
	})

	req, _ = http.NewRequest(http.MethodDelete, "/users/"+itoa(vendor.ID), nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var userCount, bidCount int64
	db.Model(&models.User{}).Where("id = ?", vendor.ID).Count(&userCount)
	db.Model(&models.Bid{}).Where("user_id = ?", vendor.ID).Count(&bidCount)
	assert.Equal(t, int64(0), userCount)
	assert.Equal(t, int64(0), bidCount)
}
