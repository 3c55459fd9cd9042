package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/lachong-dev/agiletech_backend/config"
	"github.com/lachong-dev/agiletech_backend/controllers"
	"github.com/lachong-dev/agiletech_backend/middleware"
	"github.com/lachong-dev/agiletech_backend/routes"
	"github.com/lachong-dev/agiletech_backend/services"
	"github.com/lachong-dev/agiletech_backend/utils"
)

// CustomValidator is a custom validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates the request body
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func main() {
	// Load .env file
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found")
	}

	// Connect to Redis
	redisClient := config.ConnectRedis()

	// Connect to database
	client := config.ConnectDB()
	db := client.Database(config.DBName())

	// Create a new Echo instance
	e := echo.New()

	// Initialize custom validator
	customValidator := &CustomValidator{validator: validator.New()}
	e.Validator = customValidator

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter()

	// Middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(middleware.GlobalCORS())
	e.Use(echoMiddleware.Secure())
	e.Use(rateLimiter.RateLimit())
	e.Use(middleware.SecurityHeadersWithConfig(middleware.SecurityConfig{
		AllowedDomains: []string{"*"},
		AllowInlineJS:  false,
	}))

	e.Match([]string{"GET", "HEAD"}, "/", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":  "OK",
			"message": "AgileTech Backend is running",
			"version": "1.0",
		})
	})

	e.Match([]string{"GET", "HEAD"}, "/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":   "healthy",
			"database": "connected",
		})
	})

	// Initialize services
	verifier := services.NewAutoApproveVerifier()
	assigner := services.NewAssignmentService(db)

	// Initialize controllers
	authController := controllers.NewAuthController(client)
	userController := controllers.NewUserController(client)
	projectController := controllers.NewProjectController(client)
	proposalController := controllers.NewProposalController(client, verifier, assigner)
	transactionController := controllers.NewTransactionController(client)
	feedbackController := controllers.NewFeedbackController(client)
	serviceController := controllers.NewServiceController(client, assigner)
	financeController := controllers.NewFinanceController(client, redisClient)

	// Register routes
	routes.RegisterAuthRoutes(e, client, authController, serviceController)
	routes.RegisterProjectRoutes(e, client, projectController, proposalController, transactionController, feedbackController)
	routes.RegisterAdminRoutes(e, client, userController, serviceController, transactionController, financeController)

	// Ensure uploads directory exists
	if err := utils.InitializeStorage(); err != nil {
		log.Printf("Warning: failed to initialize storage: %v", err)
	}
	e.Static("/uploads", "uploads")

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	e.Logger.Fatal(e.Start(":" + port))
}
