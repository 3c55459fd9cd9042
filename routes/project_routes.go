package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lachong-dev/agiletech_backend/controllers"
	"github.com/lachong-dev/agiletech_backend/middleware"
	"github.com/lachong-dev/agiletech_backend/models"
)

// RegisterProjectRoutes sets up the project, proposal, transaction and
// acceptance routes. All of them require authentication; capability
// middleware narrows each operation to the roles that may perform it.
func RegisterProjectRoutes(
	e *echo.Echo,
	db *mongo.Client,
	projectController *controllers.ProjectController,
	proposalController *controllers.ProposalController,
	transactionController *controllers.TransactionController,
	feedbackController *controllers.FeedbackController,
) {
	r := e.Group("/api")
	r.Use(middleware.JWTMiddleware())
	r.Use(middleware.ActivityTracker(db))

	// Project routes
	r.POST("/projects", projectController.CreateProject, middleware.RequireCapability(models.CapManageProjects))
	r.GET("/projects", projectController.ListProjects)
	r.GET("/projects/:id", projectController.GetProject)
	r.PUT("/projects/:id", projectController.UpdateProject, middleware.RequireCapability(models.CapManageProjects))
	r.POST("/projects/:id/hold", projectController.HoldProject, middleware.RequireCapability(models.CapManageProjects))
	r.POST("/projects/:id/resume", projectController.ResumeProject, middleware.RequireCapability(models.CapManageProjects))
	r.POST("/projects/:id/cancel", projectController.CancelProject, middleware.RequireCapability(models.CapManageProjects))

	// Proposal lifecycle
	r.POST("/projects/:id/proposals", proposalController.CreateProposal, middleware.RequireCapability(models.CapManageProposals))
	r.GET("/projects/:id/proposals", proposalController.ListProposals)
	r.GET("/proposals/:id", proposalController.GetProposal)
	r.PUT("/proposals/:id", proposalController.UpdateProposal)
	r.POST("/proposals/:id/send", proposalController.SendProposal, middleware.RequireCapability(models.CapManageProposals))
	r.POST("/proposals/:id/accept", proposalController.AcceptProposal, middleware.RequireCapability(models.CapAcceptProject))
	r.POST("/proposals/:id/reject", proposalController.RejectProposal, middleware.RequireCapability(models.CapAcceptProject))

	// Payments
	r.GET("/proposals/:id/payment-qr", proposalController.PaymentQR)
	r.POST("/proposals/:id/submit-payment", proposalController.SubmitDepositPayment, middleware.RequireCapability(models.CapSubmitPayments))
	r.POST("/proposals/:id/phases/:index/complete", proposalController.CompletePhase, middleware.RequireCapability(models.CapDeliverPhases))
	r.POST("/proposals/:id/phases/:index/submit-payment", proposalController.SubmitPhasePayment, middleware.RequireCapability(models.CapSubmitPayments))

	// Ledger
	r.GET("/projects/:id/transactions", transactionController.ListProjectTransactions)
	r.GET("/projects/:id/financial-summary", transactionController.ProjectFinancialSummary)
	r.GET("/transactions/my", transactionController.MyTransactions)

	// Acceptance and feedback
	r.POST("/projects/:id/acceptance", feedbackController.SubmitAcceptance, middleware.RequireCapability(models.CapAcceptProject))
	r.GET("/projects/:id/feedback", feedbackController.GetFeedback)
	r.POST("/projects/:id/feedback/respond", feedbackController.RespondToFeedback, middleware.RequireCapability(models.CapRespondFeedback))
	r.POST("/projects/:id/revision-complete", feedbackController.CompleteRevision, middleware.RequireCapability(models.CapDeliverPhases))
}
