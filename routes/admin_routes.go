package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lachong-dev/agiletech_backend/controllers"
	"github.com/lachong-dev/agiletech_backend/middleware"
	"github.com/lachong-dev/agiletech_backend/models"
)

// RegisterAdminRoutes sets up staff administration, the manual ledger
// operations, service request handling and the finance dashboard.
func RegisterAdminRoutes(
	e *echo.Echo,
	db *mongo.Client,
	userController *controllers.UserController,
	serviceController *controllers.ServiceController,
	transactionController *controllers.TransactionController,
	financeController *controllers.FinanceController,
) {
	r := e.Group("/api")
	r.Use(middleware.JWTMiddleware())
	r.Use(middleware.ActivityTracker(db))

	// Staff user administration
	r.POST("/users/staff", userController.CreateStaff, middleware.RequireCapability(models.CapManageUsers))
	r.GET("/users", userController.ListUsers, middleware.RequireCapability(models.CapManageUsers))
	r.PUT("/users/:id/active", userController.SetUserActive, middleware.RequireCapability(models.CapManageUsers))

	// Service catalog administration and request intake
	r.POST("/services", serviceController.CreateService, middleware.RequireCapability(models.CapManageUsers))
	r.POST("/service-requests", serviceController.CreateServiceRequest)
	r.GET("/service-requests", serviceController.ListServiceRequests)
	r.POST("/service-requests/:id/convert", serviceController.ConvertServiceRequest, middleware.RequireCapability(models.CapManageProjects))
	r.POST("/service-requests/:id/reject", serviceController.RejectServiceRequest, middleware.RequireCapability(models.CapManageProjects))

	// Manual ledger operations
	r.POST("/transactions", transactionController.CreateManualTransaction, middleware.RequireCapability(models.CapRecordTransactions))
	r.POST("/transactions/:id/approve", transactionController.ApproveTransaction, middleware.RequireCapability(models.CapRecordTransactions))
	r.POST("/transactions/:id/reject", transactionController.RejectTransaction, middleware.RequireCapability(models.CapRecordTransactions))
	r.POST("/transactions/:id/cancel", transactionController.CancelTransaction, middleware.RequireCapability(models.CapRecordTransactions))

	// Finance dashboard
	r.GET("/finance/dashboard", financeController.Dashboard, middleware.RequireCapability(models.CapViewFinance))
	r.POST("/finance/dashboard/invalidate", financeController.InvalidateCache, middleware.RequireCapability(models.CapViewFinance))
}
