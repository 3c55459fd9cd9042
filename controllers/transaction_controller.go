package controllers

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lachong-dev/agiletech_backend/config"
	"github.com/lachong-dev/agiletech_backend/middleware"
	"github.com/lachong-dev/agiletech_backend/models"
)

// TransactionController exposes the ledger: manual entries for offline
// payments and refunds, pending entry resolution, and per-project history.
// Ledger entries are append-only; amount and type never change after
// creation, and entries survive project cancellation and deletion.
type TransactionController struct {
	DB     *mongo.Client
	logger *log.Logger
}

func NewTransactionController(db *mongo.Client) *TransactionController {
	return &TransactionController{
		DB:     db,
		logger: log.New(os.Stdout, "[TRANSACTIONS] ", log.LstdFlags),
	}
}

func (tc *TransactionController) collection() *mongo.Collection {
	return config.GetCollection(tc.DB, "transactions")
}

// CreateManualTransaction records an offline payment, refund or
// adjustment. Manual entries start pending and are resolved explicitly.
func (tc *TransactionController) CreateManualTransaction(c echo.Context) error {
	actor, err := middleware.ActorFromContext(c)
	if err != nil {
		return fail(c, models.NewAuthorizationError("authentication required"))
	}

	var req models.ManualTransactionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Validation failed: " + err.Error(),
			Code:    models.CodeValidation,
		})
	}
	if !models.ValidTransactionType(req.Type) {
		return fail(c, models.NewValidationError("unknown transaction type %q", req.Type))
	}

	projectID, err := primitive.ObjectIDFromHex(req.ProjectID)
	if err != nil {
		return fail(c, models.NewValidationError("invalid projectId"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var project models.Project
	if err := config.GetCollection(tc.DB, "projects").FindOne(ctx, bson.M{"_id": projectID}).Decode(&project); err != nil {
		return fail(c, models.NewNotFoundError("project"))
	}

	method := req.Method
	if method == "" {
		method = "manual"
	}
	reference := req.Reference
	if reference == "" {
		reference = uuid.NewString()
	}

	now := time.Now()
	actorID := actor.ID
	transaction := models.Transaction{
		ProjectID:   project.ID,
		CustomerID:  project.CustomerID,
		Type:        models.TransactionType(req.Type),
		Status:      models.TransactionPending,
		Amount:      req.Amount,
		PhaseIndex:  req.PhaseIndex,
		Method:      method,
		Reference:   reference,
		Description: req.Description,
		Metadata:    req.Metadata,
		ProcessedBy: &actorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	result, err := tc.collection().InsertOne(ctx, transaction)
	if err != nil {
		tc.logger.Printf("Failed to record transaction: %v", err)
		return fail(c, err)
	}
	transaction.ID = result.InsertedID.(primitive.ObjectID)

	tc.logger.Printf("Manual %s recorded: project=%s amount=%d by=%s", transaction.Type, project.ID.Hex(), transaction.Amount, actor.Email)
	return ok(c, http.StatusCreated, "Transaction recorded", transaction)
}

// ApproveTransaction completes a pending entry.
func (tc *TransactionController) ApproveTransaction(c echo.Context) error {
	return tc.resolve(c, models.TransactionCompleted, "Transaction approved")
}

// RejectTransaction fails a pending entry.
func (tc *TransactionController) RejectTransaction(c echo.Context) error {
	return tc.resolve(c, models.TransactionFailed, "Transaction rejected")
}

// CancelTransaction cancels a pending entry.
func (tc *TransactionController) CancelTransaction(c echo.Context) error {
	return tc.resolve(c, models.TransactionCancelled, "Transaction cancelled")
}

// resolve moves a pending entry to its terminal status. The filter on
// pending makes double resolution a no-op for the loser.
func (tc *TransactionController) resolve(c echo.Context, status models.TransactionStatus, message string) error {
	actor, err := middleware.ActorFromContext(c)
	if err != nil {
		return fail(c, models.NewAuthorizationError("authentication required"))
	}

	transactionID, apiErr := pathObjectID(c, "id")
	if apiErr != nil {
		return fail(c, apiErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var transaction models.Transaction
	if err := tc.collection().FindOne(ctx, bson.M{"_id": transactionID}).Decode(&transaction); err != nil {
		return fail(c, models.NewNotFoundError("transaction"))
	}
	if apiErr := transaction.CanResolve(); apiErr != nil {
		return fail(c, apiErr)
	}

	now := time.Now()
	actorID := actor.ID
	set := bson.M{
		"status":      status,
		"processedBy": actorID,
		"updatedAt":   now,
	}
	if status == models.TransactionCompleted {
		set["completedAt"] = now
	}

	result := tc.collection().FindOneAndUpdate(ctx,
		bson.M{"_id": transactionID, "status": models.TransactionPending},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	if err := result.Decode(&transaction); err != nil {
		return fail(c, models.NewStateError("transaction is no longer pending"))
	}

	tc.logger.Printf("Transaction %s resolved to %s by %s", transactionID.Hex(), status, actor.Email)
	return ok(c, http.StatusOK, message, transaction)
}

// ListProjectTransactions returns a project's ledger, newest first.
// Customers only reach their own projects.
func (tc *TransactionController) ListProjectTransactions(c echo.Context) error {
	actor, err := middleware.ActorFromContext(c)
	if err != nil {
		return fail(c, models.NewAuthorizationError("authentication required"))
	}

	projectID, apiErr := pathObjectID(c, "id")
	if apiErr != nil {
		return fail(c, apiErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var project models.Project
	if err := config.GetCollection(tc.DB, "projects").FindOne(ctx, bson.M{"_id": projectID}).Decode(&project); err != nil {
		return fail(c, models.NewNotFoundError("project"))
	}
	if apiErr := requireProjectAccess(actor, &project); apiErr != nil {
		return fail(c, apiErr)
	}

	cursor, err := tc.collection().Find(ctx,
		bson.M{"projectId": projectID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return fail(c, err)
	}
	defer cursor.Close(ctx)

	transactions := []models.Transaction{}
	if err := cursor.All(ctx, &transactions); err != nil {
		return fail(c, err)
	}

	return ok(c, http.StatusOK, "Transactions retrieved successfully", transactions)
}

// MyTransactions returns the authenticated customer's payment history.
func (tc *TransactionController) MyTransactions(c echo.Context) error {
	actor, err := middleware.ActorFromContext(c)
	if err != nil {
		return fail(c, models.NewAuthorizationError("authentication required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := tc.collection().Find(ctx,
		bson.M{"customerId": actor.ID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return fail(c, err)
	}
	defer cursor.Close(ctx)

	transactions := []models.Transaction{}
	if err := cursor.All(ctx, &transactions); err != nil {
		return fail(c, err)
	}

	return ok(c, http.StatusOK, "Transactions retrieved successfully", transactions)
}

// ProjectFinancialSummary assembles the money view of one project: the
// contract value from the accepted (or latest) proposal, per-phase payment
// state, and ledger totals.
func (tc *TransactionController) ProjectFinancialSummary(c echo.Context) error {
	actor, err := middleware.ActorFromContext(c)
	if err != nil {
		return fail(c, models.NewAuthorizationError("authentication required"))
	}

	projectID, apiErr := pathObjectID(c, "id")
	if apiErr != nil {
		return fail(c, apiErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var project models.Project
	if err := config.GetCollection(tc.DB, "projects").FindOne(ctx, bson.M{"_id": projectID}).Decode(&project); err != nil {
		return fail(c, models.NewNotFoundError("project"))
	}
	if apiErr := requireProjectAccess(actor, &project); apiErr != nil {
		return fail(c, apiErr)
	}

	summary := models.FinancialSummary{
		ProjectID:     project.ID.Hex(),
		ProjectName:   project.Name,
		ProjectStatus: project.Status,
	}

	// Prefer the accepted proposal; fall back to the latest one
	var proposal models.Proposal
	proposalsCollection := config.GetCollection(tc.DB, "proposals")
	err = proposalsCollection.FindOne(ctx,
		bson.M{"projectId": projectID, "status": models.ProposalAccepted}).Decode(&proposal)
	if err != nil {
		err = proposalsCollection.FindOne(ctx,
			bson.M{"projectId": projectID},
			options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})).Decode(&proposal)
	}
	if err == nil {
		summary.ContractValue = proposal.TotalPrice
		summary.Deposit = models.DepositSummary{
			Amount: proposal.DepositAmount,
			Paid:   proposal.DepositPaid,
			PaidAt: proposal.DepositPaidAt,
		}
		for i, phase := range proposal.Phases {
			ps := models.PhaseSummary{
				PhaseIndex:      i,
				PhaseName:       phase.Name,
				Amount:          phase.Amount,
				Completed:       phase.Completed,
				PaymentApproved: phase.PaymentApproved,
			}
			if phase.PaymentApproved {
				ps.PaidAmount = phase.Amount
			}
			summary.Phases = append(summary.Phases, ps)
		}
	}

	cursor, err := tc.collection().Find(ctx, bson.M{"projectId": projectID})
	if err != nil {
		return fail(c, err)
	}
	defer cursor.Close(ctx)

	var transactions []models.Transaction
	if err := cursor.All(ctx, &transactions); err != nil {
		return fail(c, err)
	}

	for _, t := range transactions {
		summary.Transactions.Total++
		switch t.Status {
		case models.TransactionCompleted:
			summary.Transactions.Completed++
			if t.Type == models.TransactionRefund {
				summary.TotalRefunded += t.Amount
			} else {
				summary.TotalReceived += t.Amount
			}
		case models.TransactionPending:
			summary.Transactions.Pending++
			summary.PendingAmount += t.Amount
		case models.TransactionFailed:
			summary.Transactions.Failed++
		case models.TransactionCancelled:
			summary.Transactions.Cancelled++
		}
	}
	summary.NetReceived = summary.TotalReceived - summary.TotalRefunded

	return ok(c, http.StatusOK, "Financial summary retrieved successfully", summary)
}
