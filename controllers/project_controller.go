package controllers

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lachong-dev/agiletech_backend/config"
	"github.com/lachong-dev/agiletech_backend/middleware"
	"github.com/lachong-dev/agiletech_backend/models"
	"github.com/lachong-dev/agiletech_backend/utils"
)

// ProjectController manages project records and their manual status edges
// (hold, resume, cancel). The payment-driven edges live in the proposal
// and feedback controllers.
type ProjectController struct {
	DB     *mongo.Client
	logger *log.Logger
}

func NewProjectController(db *mongo.Client) *ProjectController {
	return &ProjectController{
		DB:     db,
		logger: log.New(os.Stdout, "[PROJECTS] ", log.LstdFlags),
	}
}

func (pc *ProjectController) collection() *mongo.Collection {
	return config.GetCollection(pc.DB, "projects")
}

// ProjectCreateRequest is the staff payload for a manually created project.
type ProjectCreateRequest struct {
	Name           string `json:"name" validate:"required"`
	Description    string `json:"description,omitempty"`
	CustomerID     string `json:"customerId" validate:"required"`
	Priority       string `json:"priority,omitempty"`
	EstimatedHours int    `json:"estimatedHours,omitempty"`
	Budget         int64  `json:"budget,omitempty"`
}

// ProjectUpdateRequest covers the descriptive fields staff may edit.
// Status never moves through here.
type ProjectUpdateRequest struct {
	Name           *string `json:"name,omitempty"`
	Description    *string `json:"description,omitempty"`
	Priority       *string `json:"priority,omitempty"`
	EstimatedHours *int    `json:"estimatedHours,omitempty"`
	Budget         *int64  `json:"budget,omitempty"`
	RepositoryURL  *string `json:"repositoryUrl,omitempty"`
	StagingURL     *string `json:"stagingUrl,omitempty"`
	ProductionURL  *string `json:"productionUrl,omitempty"`
}

// CreateProject creates a project in NEGOTIATION for an existing customer.
func (pc *ProjectController) CreateProject(c echo.Context) error {
	actor, err := middleware.ActorFromContext(c)
	if err != nil {
		return fail(c, models.NewAuthorizationError("authentication required"))
	}

	var req ProjectCreateRequest
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

	customerID, err := primitive.ObjectIDFromHex(req.CustomerID)
	if err != nil {
		return fail(c, models.NewValidationError("invalid customerId"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	count, err := config.GetCollection(pc.DB, "users").CountDocuments(ctx,
		bson.M{"_id": customerID, "role": models.RoleCustomer})
	if err != nil {
		return fail(c, err)
	}
	if count == 0 {
		return fail(c, models.NewNotFoundError("customer"))
	}

	priority := models.ProjectPriority(req.Priority)
	if priority == "" {
		priority = models.PriorityMedium
	}

	now := time.Now()
	managerID := actor.ID
	project := models.Project{
		Name:           utils.SanitizeInput(req.Name),
		Description:    req.Description,
		CustomerID:     customerID,
		ManagerID:      &managerID,
		Status:         models.ProjectNegotiation,
		Priority:       priority,
		EstimatedHours: req.EstimatedHours,
		Budget:         req.Budget,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	result, err := pc.collection().InsertOne(ctx, project)
	if err != nil {
		pc.logger.Printf("Failed to create project: %v", err)
		return fail(c, err)
	}
	project.ID = result.InsertedID.(primitive.ObjectID)

	return ok(c, http.StatusCreated, "Project created successfully", project)
}

// ListProjects returns projects scoped by role: customers see their own,
// devs see projects they are on, sales and admin see everything.
// Supports ?status= filtering.
func (pc *ProjectController) ListProjects(c echo.Context) error {
	actor, err := middleware.ActorFromContext(c)
	if err != nil {
		return fail(c, models.NewAuthorizationError("authentication required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	filter := bson.M{}
	switch actor.Role {
	case models.RoleCustomer:
		filter["customerId"] = actor.ID
	case models.RoleDev:
		filter["teamMemberIds"] = actor.ID
	}
	if status := c.QueryParam("status"); status != "" {
		filter["status"] = models.ProjectStatus(status)
	}

	cursor, err := pc.collection().Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return fail(c, err)
	}
	defer cursor.Close(ctx)

	projects := []models.Project{}
	if err := cursor.All(ctx, &projects); err != nil {
		return fail(c, err)
	}

	return ok(c, http.StatusOK, "Projects retrieved successfully", projects)
}

// GetProject returns one project.
func (pc *ProjectController) GetProject(c echo.Context) error {
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
	if err := pc.collection().FindOne(ctx, bson.M{"_id": projectID}).Decode(&project); err != nil {
		return fail(c, models.NewNotFoundError("project"))
	}
	if apiErr := requireProjectAccess(actor, &project); apiErr != nil {
		return fail(c, apiErr)
	}

	return ok(c, http.StatusOK, "Project retrieved successfully", project)
}

// UpdateProject edits descriptive fields.
func (pc *ProjectController) UpdateProject(c echo.Context) error {
	projectID, apiErr := pathObjectID(c, "id")
	if apiErr != nil {
		return fail(c, apiErr)
	}

	var req ProjectUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	set := bson.M{"updatedAt": time.Now()}
	if req.Name != nil {
		set["name"] = utils.SanitizeInput(*req.Name)
	}
	if req.Description != nil {
		set["description"] = *req.Description
	}
	if req.Priority != nil {
		set["priority"] = models.ProjectPriority(*req.Priority)
	}
	if req.EstimatedHours != nil {
		set["estimatedHours"] = *req.EstimatedHours
	}
	if req.Budget != nil {
		set["budget"] = *req.Budget
	}
	if req.RepositoryURL != nil {
		set["repositoryUrl"] = *req.RepositoryURL
	}
	if req.StagingURL != nil {
		set["stagingUrl"] = *req.StagingURL
	}
	if req.ProductionURL != nil {
		set["productionUrl"] = *req.ProductionURL
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result := pc.collection().FindOneAndUpdate(ctx,
		bson.M{"_id": projectID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var project models.Project
	if err := result.Decode(&project); err != nil {
		return fail(c, models.NewNotFoundError("project"))
	}

	return ok(c, http.StatusOK, "Project updated successfully", project)
}

// HoldProject pauses active development.
func (pc *ProjectController) HoldProject(c echo.Context) error {
	return pc.applyStatusEdge(c, "Project put on hold",
		func(p *models.Project) *models.APIError { return p.ApplyHold() })
}

// ResumeProject continues a paused project.
func (pc *ProjectController) ResumeProject(c echo.Context) error {
	return pc.applyStatusEdge(c, "Project resumed",
		func(p *models.Project) *models.APIError { return p.ApplyResume() })
}

// CancelProject cancels an unfinished project. Ledger entries are kept.
func (pc *ProjectController) CancelProject(c echo.Context) error {
	return pc.applyStatusEdge(c, "Project cancelled",
		func(p *models.Project) *models.APIError { return p.ApplyCancel() })
}

// applyStatusEdge loads the project, runs the transition and persists it
// with a filter on the status it read, so racing edges fail instead of
// silently overwriting each other.
func (pc *ProjectController) applyStatusEdge(c echo.Context, message string, edge func(*models.Project) *models.APIError) error {
	projectID, apiErr := pathObjectID(c, "id")
	if apiErr != nil {
		return fail(c, apiErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var project models.Project
	if err := pc.collection().FindOne(ctx, bson.M{"_id": projectID}).Decode(&project); err != nil {
		return fail(c, models.NewNotFoundError("project"))
	}

	prior := project.Status
	if apiErr := edge(&project); apiErr != nil {
		return fail(c, apiErr)
	}

	result, err := pc.collection().UpdateOne(ctx,
		bson.M{"_id": project.ID, "status": prior},
		bson.M{"$set": bson.M{"status": project.Status, "updatedAt": time.Now()}},
	)
	if err != nil {
		return fail(c, err)
	}
	if result.MatchedCount == 0 {
		return fail(c, models.NewStateError("project was updated concurrently, please retry"))
	}

	pc.logger.Printf("Project %s: %s -> %s", project.ID.Hex(), prior, project.Status)
	return ok(c, http.StatusOK, message, project)
}
