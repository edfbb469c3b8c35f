package main

import (
	"log"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/doha-pm/dpm-api/config"
	"github.com/doha-pm/dpm-api/controllers"
	"github.com/doha-pm/dpm-api/middleware"
	"github.com/doha-pm/dpm-api/models"
	"github.com/doha-pm/dpm-api/services"
)

func main() {
	// Basic logging
	log.Println("Starting Doha PM API server...")

	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	if err := config.ConnectDatabase(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto-migrate database models
	db := config.GetDB()
	if err := db.AutoMigrate(
		&models.User{},
		&models.Company{},
		&models.Project{},
		&models.Tender{},
		&models.Bid{},
		&models.Notification{},
	); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed successfully")

	// Initialize services
	services.InitScheduler()
	services.InitEmailService()
	services.InitSMSService()
	if _, err := services.InitS3Service(); err != nil {
		log.Printf("Warning: S3 service unavailable, document handling disabled: %v", err)
	}

	// Re-arm closing timers for open tenders and close any that passed their
	// closing date while the server was down
	if err := services.RecoverTenderSchedules(db); err != nil {
		log.Printf("Warning: tender schedule recovery failed: %v", err)
	}

	// Initialize Gin router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))

	adminRoles := []string{models.RoleSuperAdmin, models.RoleAdmin}
	staffRoles := []string{models.RoleSuperAdmin, models.RoleAdmin, models.RoleEmployee}
	vendorRoles := []string{models.RoleConsultant, models.RoleContractor, models.RoleSupplier}

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Health check endpoint
		v1.GET("/health", healthCheck)

		// Database status endpoint
		v1.GET("/database/status", databaseStatus)

		// All remaining routes require a valid Auth0 token
		authorized := v1.Group("")
		authorized.Use(middleware.EnsureValidToken(cfg))
		{
			// User routes
			authorized.POST("/users", controllers.CreateUser)
			authorized.GET("/users/me", controllers.GetMyProfile)
			authorized.PUT("/users/me", controllers.UpdateMyProfile)
			authorized.GET("/users",
				middleware.RequireRole(staffRoles...),
				controllers.GetAllUsers,
			)
			authorized.PATCH("/users/:id",
				middleware.RequireRole(models.RoleSuperAdmin),
				controllers.AdminUpdateUser,
			)
			authorized.DELETE("/users/:id",
				middleware.RequireRole(models.RoleSuperAdmin),
				controllers.DeleteUser,
			)

			// Project routes
			authorized.POST("/projects",
				middleware.RequireRole(models.RoleClient),
				controllers.CreateProject,
			)
			authorized.GET("/projects", controllers.GetAllProjects)
			authorized.GET("/projects/:id", controllers.GetProject)
			authorized.PUT("/projects/:id",
				middleware.RequireRole(append([]string{models.RoleClient}, staffRoles...)...),
				controllers.UpdateProject,
			)
			authorized.PATCH("/projects/:id/approve",
				middleware.RequireRole(staffRoles...),
				controllers.ApproveProject,
			)
			authorized.DELETE("/projects/:id",
				middleware.RequireRole(staffRoles...),
				controllers.DeleteProject,
			)

			// Tender routes
			authorized.POST("/tenders",
				middleware.RequireRole(adminRoles...),
				controllers.CreateTender,
			)
			authorized.GET("/tenders", controllers.GetAllTenders)
			authorized.GET("/tenders/:id", controllers.GetTender)
			authorized.PUT("/tenders/:id",
				middleware.RequireRole(adminRoles...),
				controllers.UpdateTender,
			)
			authorized.DELETE("/tenders/:id",
				middleware.RequireRole(adminRoles...),
				controllers.DeleteTender,
			)
			authorized.PATCH("/tenders/:id/status",
				middleware.RequireRole(models.RoleSuperAdmin),
				controllers.ChangeTenderStatus,
			)
			authorized.PATCH("/tenders/:id/award",
				middleware.RequireRole(adminRoles...),
				controllers.AwardTender,
			)
			authorized.PATCH("/tenders/:id/unaward",
				middleware.RequireRole(adminRoles...),
				controllers.UnAwardTender,
			)
			authorized.GET("/tenders/:id/bids",
				middleware.RequireRole(staffRoles...),
				controllers.GetTenderBids,
			)
			authorized.GET("/tenders/:id/bidders",
				middleware.RequireRole(staffRoles...),
				controllers.GetBiddersByTender,
			)
			authorized.GET("/tenders/:id/documents/:index", controllers.GetTenderDocumentURL)

			// Bid routes
			authorized.POST("/bids",
				middleware.RequireRole(vendorRoles...),
				controllers.ParticipateInBidding,
			)
			authorized.GET("/bids",
				middleware.RequireRole(staffRoles...),
				controllers.GetAllBids,
			)
			authorized.GET("/bids/me",
				middleware.RequireRole(vendorRoles...),
				controllers.GetMyBids,
			)
			authorized.PATCH("/bids/:id",
				middleware.RequireRole(append([]string{models.RoleConsultant, models.RoleContractor, models.RoleSupplier}, adminRoles...)...),
				controllers.UpdateBid,
			)
			authorized.DELETE("/bids/:id",
				middleware.RequireRole(adminRoles...),
				controllers.DeleteBid,
			)

			// Notification routes
			authorized.GET("/notifications/me",
				middleware.RequireRole(
					models.RoleClient, models.RoleConsultant, models.RoleSupplier,
					models.RoleContractor, models.RoleSuperAdmin, models.RoleAdmin,
					models.RoleEmployee,
				),
				controllers.GetMyNotifications,
			)
			authorized.POST("/notifications",
				middleware.RequireRole(staffRoles...),
				controllers.CreateNotification,
			)
		}
	}

	// Start server
	port := ":" + cfg.Port
	log.Printf("Server is running on http://localhost%s", port)
	if err := router.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Doha PM API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()

	// Get the underlying SQL database to check connection
	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	// Ping the database to verify connection
	if err := sqlDB.Ping(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	// Get list of tables
	var tables []string
	if err := db.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public'").Scan(&tables).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
