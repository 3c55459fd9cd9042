package controllers

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lachong-dev/agiletech_backend/config"
	"github.com/lachong-dev/agiletech_backend/middleware"
	"github.com/lachong-dev/agiletech_backend/models"
	"github.com/lachong-dev/agiletech_backend/services"
	"github.com/lachong-dev/agiletech_backend/utils"
)

// ProposalController drives the proposal lifecycle and the payment flow.
// Money-moving operations run inside a Mongo session so the proposal flags,
// the project status and the ledger entry commit together; every persisting
// update filters on the state it read, so two concurrent submissions cannot
// both pass the same guard.
type ProposalController struct {
	DB       *mongo.Client
	logger   *log.Logger
	verifier services.PaymentVerifier
	assigner *services.AssignmentService
}

func NewProposalController(db *mongo.Client, verifier services.PaymentVerifier, assigner *services.AssignmentService) *ProposalController {
	return &ProposalController{
		DB:       db,
		logger:   log.New(os.Stdout, "[PROPOSALS] ", log.LstdFlags),
		verifier: verifier,
		assigner: assigner,
	}
}

func (pc *ProposalController) proposals() *mongo.Collection {
	return config.GetCollection(pc.DB, "proposals")
}

func (pc *ProposalController) projects() *mongo.Collection {
	return config.GetCollection(pc.DB, "projects")
}

func (pc *ProposalController) transactions() *mongo.Collection {
	return config.GetCollection(pc.DB, "transactions")
}

func (pc *ProposalController) loadProject(ctx context.Context, id primitive.ObjectID) (*models.Project, *models.APIError) {
	var project models.Project
	if err := pc.projects().FindOne(ctx, bson.M{"_id": id}).Decode(&project); err != nil {
		return nil, models.NewNotFoundError("project")
	}
	return &project, nil
}

func (pc *ProposalController) loadProposal(ctx context.Context, id primitive.ObjectID) (*models.Proposal, *models.APIError) {
	var proposal models.Proposal
	if err := pc.proposals().FindOne(ctx, bson.M{"_id": id}).Decode(&proposal); err != nil {
		return nil, models.NewNotFoundError("proposal")
	}
	return &proposal, nil
}

// requireProjectAccess rejects customers reading someone else's project.
// Staff see everything.
func requireProjectAccess(actor models.Actor, project *models.Project) *models.APIError {
	if actor.Role.IsStaff() {
		return nil
	}
	if project.CustomerID != actor.ID {
		return models.NewAuthorizationError("you do not have access to this project")
	}
	return nil
}

// staffEditFilter matches a proposal only while the customer has not given
// a final answer. It re-checks EditableByStaff on the write itself, so a
// staff edit racing the customer's response fails instead of rewriting
// amounts and paid-phase flags on a locked proposal.
func staffEditFilter(id primitive.ObjectID) bson.M {
	return bson.M{
		"_id": id,
		"status": bson.M{"$nin": []models.ProposalStatus{
			models.ProposalAccepted,
			models.ProposalRejected,
		}},
	}
}

// CreateProposal creates a draft proposal for a project under negotiation.
func (pc *ProposalController) CreateProposal(c echo.Context) error {
	actor, err := middleware.ActorFromContext(c)
	if err != nil {
		return fail(c, models.NewAuthorizationError("authentication required"))
	}

	projectID, apiErr := pathObjectID(c, "id")
	if apiErr != nil {
		return fail(c, apiErr)
	}

	var req models.ProposalCreateRequest
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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	project, apiErr := pc.loadProject(ctx, projectID)
	if apiErr != nil {
		return fail(c, apiErr)
	}
	if project.Status != models.ProjectNegotiation && project.Status != models.ProjectPending {
		return fail(c, models.NewStateError("proposals can only be created while the project is under negotiation"))
	}

	now := time.Now()
	currency := req.Currency
	if currency == "" {
		currency = "VND"
	}

	proposal := models.Proposal{
		ProjectID:          projectID,
		CreatedBy:          actor.ID,
		ProjectAnalysis:    req.ProjectAnalysis,
		Currency:           currency,
		EstimatedStart:     req.EstimatedStart,
		DepositAmount:      req.DepositAmount,
		Phases:             req.Phases,
		TeamMembers:        req.TeamMembers,
		PaymentTerms:       req.PaymentTerms,
		ScopeOfWork:        req.ScopeOfWork,
		Deliverables:       req.Deliverables,
		TermsAndConditions: req.TermsAndConditions,
		WarrantyTerms:      req.WarrantyTerms,
		ValidUntil:         req.ValidUntil,
		Status:             models.ProposalDraft,
		CustomerApprovals:  map[string]bool{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	proposal.RecalculateTotals()

	if apiErr := proposal.ValidateNew(); apiErr != nil {
		return fail(c, apiErr)
	}

	result, err := pc.proposals().InsertOne(ctx, proposal)
	if err != nil {
		pc.logger.Printf("Failed to create proposal: %v", err)
		return fail(c, err)
	}
	proposal.ID = result.InsertedID.(primitive.ObjectID)

	return ok(c, http.StatusCreated, "Proposal created successfully", proposal)
}

// ListProposals returns a project's proposals, newest first.
func (pc *ProposalController) ListProposals(c echo.Context) error {
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

	project, apiErr := pc.loadProject(ctx, projectID)
	if apiErr != nil {
		return fail(c, apiErr)
	}
	if apiErr := requireProjectAccess(actor, project); apiErr != nil {
		return fail(c, apiErr)
	}

	filter := bson.M{"projectId": projectID}
	// Customers never see unsent drafts
	if !actor.Role.IsStaff() {
		filter["status"] = bson.M{"$ne": models.ProposalDraft}
	}

	cursor, err := pc.proposals().Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return fail(c, err)
	}
	defer cursor.Close(ctx)

	proposals := []models.Proposal{}
	if err := cursor.All(ctx, &proposals); err != nil {
		return fail(c, err)
	}

	return ok(c, http.StatusOK, "Proposals retrieved successfully", proposals)
}

// GetProposal returns one proposal. The customer's first read of a sent
// proposal flips it to viewed; the filter on the current status makes the
// flip happen at most once under concurrent reads.
func (pc *ProposalController) GetProposal(c echo.Context) error {
	actor, err := middleware.ActorFromContext(c)
	if err != nil {
		return fail(c, models.NewAuthorizationError("authentication required"))
	}

	proposalID, apiErr := pathObjectID(c, "id")
	if apiErr != nil {
		return fail(c, apiErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	proposal, apiErr := pc.loadProposal(ctx, proposalID)
	if apiErr != nil {
		return fail(c, apiErr)
	}

	project, apiErr := pc.loadProject(ctx, proposal.ProjectID)
	if apiErr != nil {
		return fail(c, apiErr)
	}
	if apiErr := requireProjectAccess(actor, project); apiErr != nil {
		return fail(c, apiErr)
	}
	if !actor.Role.IsStaff() && proposal.Status == models.ProposalDraft {
		return fail(c, models.NewNotFoundError("proposal"))
	}

	if !actor.Role.IsStaff() && proposal.MarkViewed() {
		_, err := pc.proposals().UpdateOne(ctx,
			bson.M{"_id": proposal.ID, "status": models.ProposalSent},
			bson.M{"$set": bson.M{"status": models.ProposalViewed, "updatedAt": time.Now()}},
		)
		if err != nil {
			pc.logger.Printf("Failed to mark proposal %s viewed: %v", proposal.ID.Hex(), err)
		}
	}

	return ok(c, http.StatusOK, "Proposal retrieved successfully", proposal)
}

// UpdateProposal handles staff full-field edits and the customer's
// per-section approval checkboxes. Staff edits are refused once the
// customer has responded; approvals stay open the whole time.
func (pc *ProposalController) UpdateProposal(c echo.Context) error {
	actor, err := middleware.ActorFromContext(c)
	if err != nil {
		return fail(c, models.NewAuthorizationError("authentication required"))
	}

	proposalID, apiErr := pathObjectID(c, "id")
	if apiErr != nil {
		return fail(c, apiErr)
	}

	var req models.ProposalUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	proposal, apiErr := pc.loadProposal(ctx, proposalID)
	if apiErr != nil {
		return fail(c, apiErr)
	}

	project, apiErr := pc.loadProject(ctx, proposal.ProjectID)
	if apiErr != nil {
		return fail(c, apiErr)
	}
	if apiErr := requireProjectAccess(actor, project); apiErr != nil {
		return fail(c, apiErr)
	}

	set := bson.M{"updatedAt": time.Now()}

	if actor.Role.IsStaff() {
		if apiErr := proposal.EditableByStaff(); apiErr != nil {
			return fail(c, apiErr)
		}
		if req.ProjectAnalysis != nil {
			proposal.ProjectAnalysis = *req.ProjectAnalysis
		}
		if req.DepositAmount != nil {
			proposal.DepositAmount = *req.DepositAmount
		}
		if req.EstimatedStart != nil {
			proposal.EstimatedStart = req.EstimatedStart
		}
		if req.Phases != nil {
			proposal.Phases = *req.Phases
		}
		if req.TeamMembers != nil {
			proposal.TeamMembers = *req.TeamMembers
		}
		if req.PaymentTerms != nil {
			proposal.PaymentTerms = *req.PaymentTerms
		}
		if req.ScopeOfWork != nil {
			proposal.ScopeOfWork = *req.ScopeOfWork
		}
		if req.Deliverables != nil {
			proposal.Deliverables = *req.Deliverables
		}
		if req.TermsAndConditions != nil {
			proposal.TermsAndConditions = *req.TermsAndConditions
		}
		if req.WarrantyTerms != nil {
			proposal.WarrantyTerms = *req.WarrantyTerms
		}
		if req.ValidUntil != nil {
			proposal.ValidUntil = req.ValidUntil
		}
		proposal.RecalculateTotals()
		if apiErr := proposal.ValidateNew(); apiErr != nil {
			return fail(c, apiErr)
		}

		set["projectAnalysis"] = proposal.ProjectAnalysis
		set["depositAmount"] = proposal.DepositAmount
		set["estimatedStart"] = proposal.EstimatedStart
		set["phases"] = proposal.Phases
		set["teamMembers"] = proposal.TeamMembers
		set["paymentTerms"] = proposal.PaymentTerms
		set["scopeOfWork"] = proposal.ScopeOfWork
		set["deliverables"] = proposal.Deliverables
		set["termsAndConditions"] = proposal.TermsAndConditions
		set["warrantyTerms"] = proposal.WarrantyTerms
		set["validUntil"] = proposal.ValidUntil
		set["totalPrice"] = proposal.TotalPrice
		set["estimatedDays"] = proposal.EstimatedDays
	} else {
		if req.CustomerApprovals == nil {
			return fail(c, models.NewAuthorizationError("customers may only update section approvals"))
		}
		if proposal.CustomerApprovals == nil {
			proposal.CustomerApprovals = map[string]bool{}
		}
		for section, approved := range req.CustomerApprovals {
			proposal.CustomerApprovals[section] = approved
		}
		set["customerApprovals"] = proposal.CustomerApprovals
	}

	filter := bson.M{"_id": proposal.ID}
	if actor.Role.IsStaff() {
		filter = staffEditFilter(proposal.ID)
	}

	result, err := pc.proposals().UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		pc.logger.Printf("Failed to update proposal %s: %v", proposal.ID.Hex(), err)
		return fail(c, err)
	}
	if result.MatchedCount == 0 {
		return fail(c, models.NewStateError("proposal was updated concurrently, please retry"))
	}

	return ok(c, http.StatusOK, "Proposal updated successfully", proposal)
}

// SendProposal moves a draft to sent.
func (pc *ProposalController) SendProposal(c echo.Context) error {
	proposalID, apiErr := pathObjectID(c, "id")
	if apiErr != nil {
		return fail(c, apiErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	proposal, apiErr := pc.loadProposal(ctx, proposalID)
	if apiErr != nil {
		return fail(c, apiErr)
	}
	if apiErr := proposal.ApplySend(); apiErr != nil {
		return fail(c, apiErr)
	}

	result, err := pc.proposals().UpdateOne(ctx,
		bson.M{"_id": proposal.ID, "status": models.ProposalDraft},
		bson.M{"$set": bson.M{"status": models.ProposalSent, "updatedAt": time.Now()}},
	)
	if err != nil {
		return fail(c, err)
	}
	if result.MatchedCount == 0 {
		return fail(c, models.NewStateError("proposal has already been sent"))
	}

	return ok(c, http.StatusOK, "Proposal sent to customer", proposal)
}

// AcceptProposal records the customer's acceptance and moves the project
// to DEPOSIT in the same transaction.
func (pc *ProposalController) AcceptProposal(c echo.Context) error {
	return pc.customerResponse(c, true)
}

// RejectProposal records a rejection, which reopens negotiation on the
// proposal and leaves the project where it is.
func (pc *ProposalController) RejectProposal(c echo.Context) error {
	return pc.customerResponse(c, false)
}

func (pc *ProposalController) customerResponse(c echo.Context, accept bool) error {
	actor, err := middleware.ActorFromContext(c)
	if err != nil {
		return fail(c, models.NewAuthorizationError("authentication required"))
	}

	proposalID, apiErr := pathObjectID(c, "id")
	if apiErr != nil {
		return fail(c, apiErr)
	}

	var req models.CustomerResponseRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	session, err := pc.DB.StartSession()
	if err != nil {
		return fail(c, err)
	}
	defer session.EndSession(ctx)

	var proposal *models.Proposal
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		var apiErr *models.APIError
		proposal, apiErr = pc.loadProposal(sc, proposalID)
		if apiErr != nil {
			return nil, apiErr
		}

		project, apiErr := pc.loadProject(sc, proposal.ProjectID)
		if apiErr != nil {
			return nil, apiErr
		}
		if project.CustomerID != actor.ID {
			return nil, models.NewAuthorizationError("only the project's customer can respond to the proposal")
		}
		if proposal.Status == models.ProposalDraft {
			return nil, models.NewNotFoundError("proposal")
		}

		now := time.Now()
		prior := proposal.Status

		if accept {
			if apiErr := proposal.ApplyAccept(req.CustomerNotes, now); apiErr != nil {
				return nil, apiErr
			}
			if apiErr := project.ApplyProposalAccepted(); apiErr != nil {
				return nil, apiErr
			}
		} else {
			if apiErr := proposal.ApplyReject(req.RejectionReason, req.CustomerNotes, now); apiErr != nil {
				return nil, apiErr
			}
		}

		set := bson.M{
			"status":        proposal.Status,
			"customerNotes": proposal.CustomerNotes,
			"updatedAt":     now,
		}
		if accept {
			set["acceptedAt"] = proposal.AcceptedAt
		} else {
			set["rejectedAt"] = proposal.RejectedAt
			set["rejectionReason"] = proposal.RejectionReason
		}

		result, err := pc.proposals().UpdateOne(sc,
			bson.M{"_id": proposal.ID, "status": prior},
			bson.M{"$set": set},
		)
		if err != nil {
			return nil, err
		}
		if result.MatchedCount == 0 {
			return nil, models.NewStateError("proposal was updated concurrently, please retry")
		}

		if accept {
			projectResult, err := pc.projects().UpdateOne(sc,
				bson.M{"_id": project.ID, "status": bson.M{"$in": []models.ProjectStatus{models.ProjectNegotiation, models.ProjectPending}}},
				bson.M{"$set": bson.M{"status": models.ProjectDeposit, "updatedAt": now}},
			)
			if err != nil {
				return nil, err
			}
			if projectResult.MatchedCount == 0 {
				return nil, models.NewStateError("project was updated concurrently, please retry")
			}
		}

		return nil, nil
	})
	if err != nil {
		return fail(c, err)
	}

	message := "Proposal accepted. Awaiting deposit payment"
	if !accept {
		message = "Response recorded. The proposal is back in negotiation"
	}
	return ok(c, http.StatusOK, message, proposal)
}

// readScreenshot pulls the optional payment screenshot off a multipart
// submission. JSON submissions simply have none.
func readScreenshot(c echo.Context) ([]byte, string, error) {
	file, err := c.FormFile("screenshot")
	if err != nil {
		return nil, "", nil
	}

	src, err := file.Open()
	if err != nil {
		return nil, "", err
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, "", err
	}
	return data, file.Filename, nil
}

// SubmitDepositPayment handles the customer's deposit submission. On
// success the proposal deposit flags, the project start and the ledger
// entry commit atomically, and a developer is assigned to the project.
func (pc *ProposalController) SubmitDepositPayment(c echo.Context) error {
	actor, err := middleware.ActorFromContext(c)
	if err != nil {
		return fail(c, models.NewAuthorizationError("authentication required"))
	}

	proposalID, apiErr := pathObjectID(c, "id")
	if apiErr != nil {
		return fail(c, apiErr)
	}

	screenshot, screenshotName, err := readScreenshot(c)
	if err != nil {
		return fail(c, models.NewValidationError("could not read payment screenshot"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	session, err := pc.DB.StartSession()
	if err != nil {
		return fail(c, err)
	}
	defer session.EndSession(ctx)

	var proposal *models.Proposal
	var transaction models.Transaction
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		var apiErr *models.APIError
		proposal, apiErr = pc.loadProposal(sc, proposalID)
		if apiErr != nil {
			return nil, apiErr
		}

		project, apiErr := pc.loadProject(sc, proposal.ProjectID)
		if apiErr != nil {
			return nil, apiErr
		}
		if project.CustomerID != actor.ID {
			return nil, models.NewAuthorizationError("only the project's customer can submit payments")
		}
		if apiErr := proposal.CanSubmitDeposit(); apiErr != nil {
			return nil, apiErr
		}

		proof, err := pc.verifier.VerifyDeposit(sc, proposal, actor)
		if err != nil {
			return nil, err
		}
		if screenshot != nil {
			fileURL, thumbURL, err := utils.SavePaymentProof(screenshot, screenshotName)
			if err != nil {
				return nil, models.NewValidationError("%v", err)
			}
			proof.ScreenshotPath = fileURL
			proof.ThumbnailPath = thumbURL
		}

		now := time.Now()
		if apiErr := proposal.ApplyDepositPayment(proof, now); apiErr != nil {
			return nil, apiErr
		}

		result, err := pc.proposals().UpdateOne(sc,
			bson.M{"_id": proposal.ID, "status": models.ProposalAccepted, "depositPaid": false},
			bson.M{"$set": bson.M{
				"paymentSubmitted":   true,
				"paymentSubmittedAt": proposal.PaymentSubmittedAt,
				"depositPaid":        true,
				"depositPaidAt":      proposal.DepositPaidAt,
				"depositProof":       proposal.DepositProof,
				"updatedAt":          now,
			}},
		)
		if err != nil {
			return nil, err
		}
		if result.MatchedCount == 0 {
			return nil, models.NewStateError("deposit already paid")
		}

		if apiErr := project.ApplyDepositConfirmed(now); apiErr != nil {
			return nil, apiErr
		}
		projectSet := bson.M{
			"status":    models.ProjectInProgress,
			"startDate": project.StartDate,
			"updatedAt": now,
		}

		// Delivery starts now, bring a developer onto the team
		if dev, err := pc.assigner.PickDeveloper(sc); err == nil && dev != nil {
			project.TeamMemberIDs = append(project.TeamMemberIDs, dev.ID)
			projectSet["teamMemberIds"] = project.TeamMemberIDs
		}

		projectResult, err := pc.projects().UpdateOne(sc,
			bson.M{"_id": project.ID, "status": models.ProjectDeposit},
			bson.M{"$set": projectSet},
		)
		if err != nil {
			return nil, err
		}
		if projectResult.MatchedCount == 0 {
			return nil, models.NewStateError("project was updated concurrently, please retry")
		}

		transaction = models.NewDepositTransaction(project.ID, proposal.ID, project.CustomerID, proposal.DepositAmount, actor, now)
		if _, err := pc.transactions().InsertOne(sc, transaction); err != nil {
			return nil, err
		}

		return nil, nil
	})
	if err != nil {
		return fail(c, err)
	}

	pc.logger.Printf("Deposit paid: proposal=%s amount=%d", proposal.ID.Hex(), proposal.DepositAmount)
	return ok(c, http.StatusOK, "Deposit payment confirmed. Project started", map[string]interface{}{
		"proposal":    proposal,
		"transaction": transaction,
	})
}

// phaseIndexParam parses the :index path parameter.
func phaseIndexParam(c echo.Context) (int, *models.APIError) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		return 0, models.NewValidationError("invalid phase index")
	}
	return index, nil
}

// CompletePhase marks phase work as delivered. Phase order is enforced
// through the previous phase's payment, not through this endpoint.
func (pc *ProposalController) CompletePhase(c echo.Context) error {
	actor, err := middleware.ActorFromContext(c)
	if err != nil {
		return fail(c, models.NewAuthorizationError("authentication required"))
	}

	proposalID, apiErr := pathObjectID(c, "id")
	if apiErr != nil {
		return fail(c, apiErr)
	}
	index, apiErr := phaseIndexParam(c)
	if apiErr != nil {
		return fail(c, apiErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	proposal, apiErr := pc.loadProposal(ctx, proposalID)
	if apiErr != nil {
		return fail(c, apiErr)
	}

	now := time.Now()
	if apiErr := proposal.ApplyCompletePhase(index, actor, now); apiErr != nil {
		return fail(c, apiErr)
	}

	result, err := pc.proposals().UpdateOne(ctx,
		bson.M{
			"_id": proposal.ID,
			"status": models.ProposalAccepted,
			fmt.Sprintf("phases.%d.completed", index): false,
		},
		bson.M{"$set": bson.M{
			fmt.Sprintf("phases.%d.completed", index):   true,
			fmt.Sprintf("phases.%d.completedAt", index): proposal.Phases[index].CompletedAt,
			fmt.Sprintf("phases.%d.completedBy", index): proposal.Phases[index].CompletedBy,
			"updatedAt": now,
		}},
	)
	if err != nil {
		return fail(c, err)
	}
	if result.MatchedCount == 0 {
		return fail(c, models.NewStateError("phase already marked as completed"))
	}

	pc.logger.Printf("Phase completed: proposal=%s phase=%d by=%s", proposal.ID.Hex(), index, actor.Email)
	return ok(c, http.StatusOK, "Phase marked as completed. Awaiting customer payment", proposal)
}

// SubmitPhasePayment handles the customer paying for a completed phase.
// When the last phase is paid the project completes in the same commit.
func (pc *ProposalController) SubmitPhasePayment(c echo.Context) error {
	actor, err := middleware.ActorFromContext(c)
	if err != nil {
		return fail(c, models.NewAuthorizationError("authentication required"))
	}

	proposalID, apiErr := pathObjectID(c, "id")
	if apiErr != nil {
		return fail(c, apiErr)
	}
	index, apiErr := phaseIndexParam(c)
	if apiErr != nil {
		return fail(c, apiErr)
	}

	screenshot, screenshotName, err := readScreenshot(c)
	if err != nil {
		return fail(c, models.NewValidationError("could not read payment screenshot"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	session, err := pc.DB.StartSession()
	if err != nil {
		return fail(c, err)
	}
	defer session.EndSession(ctx)

	var proposal *models.Proposal
	var transaction models.Transaction
	var projectCompleted bool
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		projectCompleted = false

		var apiErr *models.APIError
		proposal, apiErr = pc.loadProposal(sc, proposalID)
		if apiErr != nil {
			return nil, apiErr
		}

		project, apiErr := pc.loadProject(sc, proposal.ProjectID)
		if apiErr != nil {
			return nil, apiErr
		}
		if project.CustomerID != actor.ID {
			return nil, models.NewAuthorizationError("only the project's customer can submit payments")
		}
		if apiErr := proposal.CanSubmitPhasePayment(index); apiErr != nil {
			return nil, apiErr
		}

		proof, err := pc.verifier.VerifyPhase(sc, proposal, index, actor)
		if err != nil {
			return nil, err
		}
		if screenshot != nil {
			fileURL, thumbURL, err := utils.SavePaymentProof(screenshot, screenshotName)
			if err != nil {
				return nil, models.NewValidationError("%v", err)
			}
			proof.ScreenshotPath = fileURL
			proof.ThumbnailPath = thumbURL
		}

		now := time.Now()
		if apiErr := proposal.ApplyPhasePayment(index, proof, now); apiErr != nil {
			return nil, apiErr
		}
		phase := proposal.Phases[index]

		result, err := pc.proposals().UpdateOne(sc,
			bson.M{
				"_id": proposal.ID,
				"status": models.ProposalAccepted,
				fmt.Sprintf("phases.%d.completed", index):       true,
				fmt.Sprintf("phases.%d.paymentApproved", index): false,
			},
			bson.M{"$set": bson.M{
				fmt.Sprintf("phases.%d.paymentSubmitted", index):   true,
				fmt.Sprintf("phases.%d.paymentSubmittedAt", index): phase.PaymentSubmittedAt,
				fmt.Sprintf("phases.%d.paymentApproved", index):    true,
				fmt.Sprintf("phases.%d.paymentApprovedAt", index):  phase.PaymentApprovedAt,
				fmt.Sprintf("phases.%d.paymentApprovedBy", index):  phase.PaymentApprovedBy,
				fmt.Sprintf("phases.%d.paymentProof", index):       phase.PaymentProof,
				"updatedAt": now,
			}},
		)
		if err != nil {
			return nil, err
		}
		if result.MatchedCount == 0 {
			return nil, models.NewStateError("payment already approved for this phase")
		}

		transaction = models.NewPhaseTransaction(project.ID, proposal.ID, project.CustomerID, index, phase, actor, now)
		if _, err := pc.transactions().InsertOne(sc, transaction); err != nil {
			return nil, err
		}

		if proposal.AllPhasesPaid() {
			if apiErr := project.ApplyAllPhasesPaid(now); apiErr != nil {
				return nil, apiErr
			}
			projectResult, err := pc.projects().UpdateOne(sc,
				bson.M{"_id": project.ID, "status": models.ProjectInProgress},
				bson.M{"$set": bson.M{
					"status":    models.ProjectCompleted,
					"endDate":   project.EndDate,
					"updatedAt": now,
				}},
			)
			if err != nil {
				return nil, err
			}
			if projectResult.MatchedCount == 0 {
				return nil, models.NewStateError("project was updated concurrently, please retry")
			}
			projectCompleted = true
		}

		return nil, nil
	})
	if err != nil {
		return fail(c, err)
	}

	message := "Phase payment confirmed"
	if projectCompleted {
		message = "Phase payment confirmed. All phases paid, project completed"
	}
	pc.logger.Printf("Phase paid: proposal=%s phase=%d amount=%d", proposal.ID.Hex(), index, transaction.Amount)
	return ok(c, http.StatusOK, message, map[string]interface{}{
		"proposal":    proposal,
		"transaction": transaction,
	})
}

// PaymentQR returns the bank transfer QR for the next payment due: the
// deposit while unpaid, otherwise the phase given by ?phase=.
func (pc *ProposalController) PaymentQR(c echo.Context) error {
	actor, err := middleware.ActorFromContext(c)
	if err != nil {
		return fail(c, models.NewAuthorizationError("authentication required"))
	}

	proposalID, apiErr := pathObjectID(c, "id")
	if apiErr != nil {
		return fail(c, apiErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	proposal, apiErr := pc.loadProposal(ctx, proposalID)
	if apiErr != nil {
		return fail(c, apiErr)
	}

	project, apiErr := pc.loadProject(ctx, proposal.ProjectID)
	if apiErr != nil {
		return fail(c, apiErr)
	}
	if apiErr := requireProjectAccess(actor, project); apiErr != nil {
		return fail(c, apiErr)
	}

	qr := models.PaymentQR{ProposalID: proposal.ID.Hex()}

	if rawPhase := c.QueryParam("phase"); rawPhase != "" {
		index, err := strconv.Atoi(rawPhase)
		if err != nil {
			return fail(c, models.NewValidationError("invalid phase index"))
		}
		if apiErr := proposal.CanSubmitPhasePayment(index); apiErr != nil {
			return fail(c, apiErr)
		}
		qr.PhaseIndex = &index
		qr.Amount = proposal.Phases[index].Amount
	} else {
		if apiErr := proposal.CanSubmitDeposit(); apiErr != nil {
			return fail(c, apiErr)
		}
		qr.Amount = proposal.DepositAmount
	}

	qr.Content = utils.BuildTransferContent(proposal.ID.Hex(), qr.Amount)
	qrImage, err := utils.GeneratePaymentQR(qr.Content)
	if err != nil {
		pc.logger.Printf("Failed to generate payment QR: %v", err)
		return fail(c, err)
	}
	qr.QRImage = qrImage

	return ok(c, http.StatusOK, "Payment QR generated", qr)
}
