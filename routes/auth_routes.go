package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lachong-dev/agiletech_backend/controllers"
	"github.com/lachong-dev/agiletech_backend/middleware"
)

// RegisterAuthRoutes sets up authentication and public routes
func RegisterAuthRoutes(e *echo.Echo, db *mongo.Client, authController *controllers.AuthController, serviceController *controllers.ServiceController) {
	// Public authentication routes
	e.POST("/api/auth/signup", authController.Signup)
	e.POST("/api/auth/login", authController.Login)
	e.POST("/api/auth/refresh-token", authController.RefreshToken)

	// Public service catalog
	e.GET("/api/services", serviceController.ListServices)

	// Authenticated account routes
	r := e.Group("/api")
	r.Use(middleware.JWTMiddleware())
	r.GET("/auth/me", authController.Me)
	r.POST("/auth/logout", authController.Logout)
	r.POST("/auth/change-password", authController.ChangePassword)
}
