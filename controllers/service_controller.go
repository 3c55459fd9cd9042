package controllers

import (
	"context"
	"log"
	"net/http"
	"os"
	"strings"
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

// ServiceController manages the service catalog and inbound service
// requests. Converting a request spawns a project in NEGOTIATION and
// assigns the least busy sales person as its manager.
type ServiceController struct {
	DB       *mongo.Client
	logger   *log.Logger
	assigner *services.AssignmentService
}

func NewServiceController(db *mongo.Client, assigner *services.AssignmentService) *ServiceController {
	return &ServiceController{
		DB:       db,
		logger:   log.New(os.Stdout, "[SERVICES] ", log.LstdFlags),
		assigner: assigner,
	}
}

// ServiceCreateRequest is the admin payload for a catalog entry.
type ServiceCreateRequest struct {
	Name        string `json:"name" validate:"required"`
	Category    string `json:"category,omitempty"`
	Summary     string `json:"summary,omitempty"`
	Description string `json:"description,omitempty"`
	BasePrice   int64  `json:"basePrice,omitempty"`
}

// ServiceRequestCreate is the customer inquiry payload.
type ServiceRequestCreate struct {
	ServiceID           string   `json:"serviceId" validate:"required"`
	CompanyName         string   `json:"companyName,omitempty"`
	ContactName         string   `json:"contactName" validate:"required"`
	ContactEmail        string   `json:"contactEmail" validate:"required,email"`
	ContactPhone        string   `json:"contactPhone,omitempty"`
	SystemUsersCount    int      `json:"systemUsersCount,omitempty"`
	RequiredFunctions   []string `json:"requiredFunctions,omitempty"`
	SpecialRequirements string   `json:"specialRequirements,omitempty"`
	WorkflowDescription string   `json:"workflowDescription,omitempty"`
}

func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.ReplaceAll(slug, " ", "-")
	return slug
}

// CreateService adds a catalog entry (admin only).
func (sc *ServiceController) CreateService(c echo.Context) error {
	var req ServiceCreateRequest
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

	now := time.Now()
	service := models.Service{
		Name:        utils.SanitizeInput(req.Name),
		Slug:        slugify(req.Name),
		Category:    req.Category,
		Summary:     req.Summary,
		Description: req.Description,
		BasePrice:   req.BasePrice,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	result, err := config.GetCollection(sc.DB, "services").InsertOne(ctx, service)
	if err != nil {
		sc.logger.Printf("Failed to create service: %v", err)
		return fail(c, err)
	}
	service.ID = result.InsertedID.(primitive.ObjectID)

	return ok(c, http.StatusCreated, "Service created successfully", service)
}

// ListServices returns active catalog entries. This endpoint is public.
func (sc *ServiceController) ListServices(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cursor, err := config.GetCollection(sc.DB, "services").Find(ctx,
		bson.M{"isActive": true},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return fail(c, err)
	}
	defer cursor.Close(ctx)

	servicesList := []models.Service{}
	if err := cursor.All(ctx, &servicesList); err != nil {
		return fail(c, err)
	}

	return ok(c, http.StatusOK, "Services retrieved successfully", servicesList)
}

// CreateServiceRequest records a customer inquiry for a catalog service.
func (sc *ServiceController) CreateServiceRequest(c echo.Context) error {
	actor, err := middleware.ActorFromContext(c)
	if err != nil {
		return fail(c, models.NewAuthorizationError("authentication required"))
	}

	var req ServiceRequestCreate
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

	serviceID, err := primitive.ObjectIDFromHex(req.ServiceID)
	if err != nil {
		return fail(c, models.NewValidationError("invalid serviceId"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	count, err := config.GetCollection(sc.DB, "services").CountDocuments(ctx,
		bson.M{"_id": serviceID, "isActive": true})
	if err != nil {
		return fail(c, err)
	}
	if count == 0 {
		return fail(c, models.NewNotFoundError("service"))
	}

	now := time.Now()
	request := models.ServiceRequest{
		ServiceID:           serviceID,
		CustomerUserID:      actor.ID,
		CompanyName:         utils.SanitizeInput(req.CompanyName),
		ContactName:         utils.SanitizeInput(req.ContactName),
		ContactEmail:        req.ContactEmail,
		ContactPhone:        req.ContactPhone,
		SystemUsersCount:    req.SystemUsersCount,
		RequiredFunctions:   req.RequiredFunctions,
		SpecialRequirements: req.SpecialRequirements,
		WorkflowDescription: req.WorkflowDescription,
		Status:              models.RequestPending,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	result, err := config.GetCollection(sc.DB, "serviceRequests").InsertOne(ctx, request)
	if err != nil {
		sc.logger.Printf("Failed to create service request: %v", err)
		return fail(c, err)
	}
	request.ID = result.InsertedID.(primitive.ObjectID)

	return ok(c, http.StatusCreated, "Service request submitted", request)
}

// ListServiceRequests returns requests: staff see all, customers their own.
func (sc *ServiceController) ListServiceRequests(c echo.Context) error {
	actor, err := middleware.ActorFromContext(c)
	if err != nil {
		return fail(c, models.NewAuthorizationError("authentication required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	filter := bson.M{}
	if !actor.Role.IsStaff() {
		filter["customerUserId"] = actor.ID
	}
	if status := c.QueryParam("status"); status != "" {
		filter["status"] = models.ServiceRequestStatus(status)
	}

	cursor, err := config.GetCollection(sc.DB, "serviceRequests").Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return fail(c, err)
	}
	defer cursor.Close(ctx)

	requests := []models.ServiceRequest{}
	if err := cursor.All(ctx, &requests); err != nil {
		return fail(c, err)
	}

	return ok(c, http.StatusOK, "Service requests retrieved successfully", requests)
}

// ConvertServiceRequest turns an inquiry into a project under negotiation
// and assigns the least busy sales person as manager. The request status
// and the new project commit together.
func (sc *ServiceController) ConvertServiceRequest(c echo.Context) error {
	requestID, apiErr := pathObjectID(c, "id")
	if apiErr != nil {
		return fail(c, apiErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	session, err := sc.DB.StartSession()
	if err != nil {
		return fail(c, err)
	}
	defer session.EndSession(ctx)

	var project models.Project
	_, err = session.WithTransaction(ctx, func(sess mongo.SessionContext) (interface{}, error) {
		var request models.ServiceRequest
		if err := config.GetCollection(sc.DB, "serviceRequests").FindOne(sess, bson.M{"_id": requestID}).Decode(&request); err != nil {
			return nil, models.NewNotFoundError("service request")
		}
		if apiErr := request.CanConvert(); apiErr != nil {
			return nil, apiErr
		}

		var service models.Service
		if err := config.GetCollection(sc.DB, "services").FindOne(sess, bson.M{"_id": request.ServiceID}).Decode(&service); err != nil {
			return nil, models.NewNotFoundError("service")
		}

		now := time.Now()
		project = models.Project{
			Name:        service.Name + " - " + request.ContactName,
			Description: request.WorkflowDescription,
			CustomerID:  request.CustomerUserID,
			Status:      models.ProjectNegotiation,
			Priority:    models.PriorityMedium,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		sales, err := sc.assigner.PickSales(sess)
		if err != nil {
			return nil, err
		}
		if sales != nil {
			id := sales.ID
			project.ManagerID = &id
		}

		result, err := config.GetCollection(sc.DB, "projects").InsertOne(sess, project)
		if err != nil {
			return nil, err
		}
		project.ID = result.InsertedID.(primitive.ObjectID)

		set := bson.M{
			"status":             models.RequestConverted,
			"convertedProjectId": project.ID,
			"updatedAt":          now,
		}
		if project.ManagerID != nil {
			set["assignedTo"] = *project.ManagerID
		}

		updateResult, err := config.GetCollection(sc.DB, "serviceRequests").UpdateOne(sess,
			bson.M{"_id": requestID, "status": bson.M{"$in": []models.ServiceRequestStatus{models.RequestPending, models.RequestReviewing}}},
			bson.M{"$set": set},
		)
		if err != nil {
			return nil, err
		}
		if updateResult.MatchedCount == 0 {
			return nil, models.NewStateError("service request already converted")
		}

		return nil, nil
	})
	if err != nil {
		return fail(c, err)
	}

	sc.logger.Printf("Service request %s converted to project %s", requestID.Hex(), project.ID.Hex())
	return ok(c, http.StatusCreated, "Service request converted to project", project)
}

// RejectServiceRequest declines an inquiry.
func (sc *ServiceController) RejectServiceRequest(c echo.Context) error {
	requestID, apiErr := pathObjectID(c, "id")
	if apiErr != nil {
		return fail(c, apiErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := config.GetCollection(sc.DB, "serviceRequests").UpdateOne(ctx,
		bson.M{"_id": requestID, "status": bson.M{"$in": []models.ServiceRequestStatus{models.RequestPending, models.RequestReviewing}}},
		bson.M{"$set": bson.M{"status": models.RequestRejected, "updatedAt": time.Now()}},
	)
	if err != nil {
		return fail(c, err)
	}
	if result.MatchedCount == 0 {
		return fail(c, models.NewStateError("service request cannot be rejected"))
	}

	return ok(c, http.StatusOK, "Service request rejected", nil)
}
