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
)

// FeedbackController handles the acceptance loop after delivery: the
// customer's accept/reject decision, staff responses, and the revision
// handback. One active feedback record exists per (project, customer);
// re-submissions replace it.
type FeedbackController struct {
	DB     *mongo.Client
	logger *log.Logger
}

func NewFeedbackController(db *mongo.Client) *FeedbackController {
	return &FeedbackController{
		DB:     db,
		logger: log.New(os.Stdout, "[FEEDBACK] ", log.LstdFlags),
	}
}

func (fc *FeedbackController) collection() *mongo.Collection {
	return config.GetCollection(fc.DB, "projectFeedbacks")
}

// loadedOrNewFeedback keeps the stored record when the read found one and
// starts a fresh record only when none exists. Any other read error aborts
// the transaction instead of silently restarting the record.
func loadedOrNewFeedback(feedback models.ProjectFeedback, err error, projectID, customerID primitive.ObjectID, now time.Time) (models.ProjectFeedback, error) {
	switch err {
	case nil:
		return feedback, nil
	case mongo.ErrNoDocuments:
		return models.ProjectFeedback{
			ProjectID:  projectID,
			CustomerID: customerID,
			CreatedAt:  now,
		}, nil
	default:
		return models.ProjectFeedback{}, err
	}
}

// SubmitAcceptance records the customer's decision on a delivered project.
// Accepting closes the project; rejecting reopens it for revision. The
// feedback record and the project status commit in one transaction.
func (fc *FeedbackController) SubmitAcceptance(c echo.Context) error {
	actor, err := middleware.ActorFromContext(c)
	if err != nil {
		return fail(c, models.NewAuthorizationError("authentication required"))
	}

	projectID, apiErr := pathObjectID(c, "id")
	if apiErr != nil {
		return fail(c, apiErr)
	}

	var req models.AcceptanceSubmission
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if apiErr := req.Validate(); apiErr != nil {
		return fail(c, apiErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	session, err := fc.DB.StartSession()
	if err != nil {
		return fail(c, err)
	}
	defer session.EndSession(ctx)

	var feedback models.ProjectFeedback
	var project models.Project
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if err := config.GetCollection(fc.DB, "projects").FindOne(sc, bson.M{"_id": projectID}).Decode(&project); err != nil {
			return nil, models.NewNotFoundError("project")
		}
		if project.CustomerID != actor.ID {
			return nil, models.NewAuthorizationError("only the project's customer can submit acceptance")
		}
		if !project.AcceptanceOpen() {
			return nil, models.NewStateError("project is not awaiting acceptance (status %q)", project.Status)
		}

		now := time.Now()
		prior := project.Status

		// Load or start the active feedback record for this customer
		err := fc.collection().FindOne(sc,
			bson.M{"projectId": projectID, "customerId": actor.ID}).Decode(&feedback)
		feedback, err = loadedOrNewFeedback(feedback, err, projectID, actor.ID, now)
		if err != nil {
			return nil, err
		}
		feedback.Apply(req, now)
		// A fresh decision restarts the revision cycle
		feedback.RevisionCompleted = false
		feedback.RevisionCompletedAt = nil

		if feedback.AcceptanceStatus == models.AcceptanceAccepted {
			if apiErr := project.ApplyAcceptanceAccepted(now); apiErr != nil {
				return nil, apiErr
			}
		} else {
			if apiErr := project.ApplyAcceptanceRejected(); apiErr != nil {
				return nil, apiErr
			}
		}

		opts := options.Replace().SetUpsert(true)
		if _, err := fc.collection().ReplaceOne(sc,
			bson.M{"projectId": projectID, "customerId": actor.ID},
			feedback, opts); err != nil {
			return nil, err
		}

		projectSet := bson.M{"status": project.Status, "updatedAt": now}
		if project.Status == models.ProjectCompleted {
			projectSet["endDate"] = project.EndDate
		}
		result, err := config.GetCollection(fc.DB, "projects").UpdateOne(sc,
			bson.M{"_id": project.ID, "status": prior},
			bson.M{"$set": projectSet},
		)
		if err != nil {
			return nil, err
		}
		if result.MatchedCount == 0 {
			return nil, models.NewStateError("project was updated concurrently, please retry")
		}

		return nil, nil
	})
	if err != nil {
		return fail(c, err)
	}

	message := "Project accepted. Thank you for your feedback"
	if feedback.AcceptanceStatus == models.AcceptanceRejected {
		message = "Revision requested. The team will follow up"
	}
	fc.logger.Printf("Acceptance %s: project=%s customer=%s", feedback.AcceptanceStatus, projectID.Hex(), actor.Email)
	return ok(c, http.StatusOK, message, map[string]interface{}{
		"feedback": feedback,
		"project":  project,
	})
}

// GetFeedback returns the project's feedback record.
func (fc *FeedbackController) GetFeedback(c echo.Context) error {
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
	if err := config.GetCollection(fc.DB, "projects").FindOne(ctx, bson.M{"_id": projectID}).Decode(&project); err != nil {
		return fail(c, models.NewNotFoundError("project"))
	}
	if apiErr := requireProjectAccess(actor, &project); apiErr != nil {
		return fail(c, apiErr)
	}

	var feedback models.ProjectFeedback
	if err := fc.collection().FindOne(ctx, bson.M{"projectId": projectID}).Decode(&feedback); err != nil {
		return fail(c, models.NewNotFoundError("feedback"))
	}

	return ok(c, http.StatusOK, "Feedback retrieved successfully", feedback)
}

// RespondToFeedback records a staff annotation on the feedback without
// moving the project.
func (fc *FeedbackController) RespondToFeedback(c echo.Context) error {
	actor, err := middleware.ActorFromContext(c)
	if err != nil {
		return fail(c, models.NewAuthorizationError("authentication required"))
	}

	projectID, apiErr := pathObjectID(c, "id")
	if apiErr != nil {
		return fail(c, apiErr)
	}

	var req models.FeedbackResponseRequest
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

	var feedback models.ProjectFeedback
	if err := fc.collection().FindOne(ctx, bson.M{"projectId": projectID}).Decode(&feedback); err != nil {
		return fail(c, models.NewNotFoundError("feedback"))
	}

	now := time.Now()
	feedback.ApplyResponse(req.AdminResponse, actor, now)

	_, err = fc.collection().UpdateOne(ctx,
		bson.M{"_id": feedback.ID},
		bson.M{"$set": bson.M{
			"adminResponse":    feedback.AdminResponse,
			"adminRespondedAt": feedback.AdminRespondedAt,
			"respondedBy":      feedback.RespondedBy,
			"updatedAt":        now,
		}},
	)
	if err != nil {
		return fail(c, err)
	}

	return ok(c, http.StatusOK, "Response recorded", feedback)
}

// CompleteRevision hands a revised project back to the customer for
// review. The feedback flag and the project status commit together.
func (fc *FeedbackController) CompleteRevision(c echo.Context) error {
	actor, err := middleware.ActorFromContext(c)
	if err != nil {
		return fail(c, models.NewAuthorizationError("authentication required"))
	}

	projectID, apiErr := pathObjectID(c, "id")
	if apiErr != nil {
		return fail(c, apiErr)
	}

	var req models.FeedbackResponseRequest
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

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	session, err := fc.DB.StartSession()
	if err != nil {
		return fail(c, err)
	}
	defer session.EndSession(ctx)

	var feedback models.ProjectFeedback
	var project models.Project
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if err := config.GetCollection(fc.DB, "projects").FindOne(sc, bson.M{"_id": projectID}).Decode(&project); err != nil {
			return nil, models.NewNotFoundError("project")
		}
		if err := fc.collection().FindOne(sc, bson.M{"projectId": projectID}).Decode(&feedback); err != nil {
			return nil, models.NewNotFoundError("feedback")
		}

		now := time.Now()
		if apiErr := feedback.ApplyRevisionCompleted(req.AdminResponse, actor, now); apiErr != nil {
			return nil, apiErr
		}
		if apiErr := project.ApplyRevisionCompleted(); apiErr != nil {
			return nil, apiErr
		}

		if _, err := fc.collection().UpdateOne(sc,
			bson.M{"_id": feedback.ID},
			bson.M{"$set": bson.M{
				"revisionCompleted":   true,
				"revisionCompletedAt": feedback.RevisionCompletedAt,
				"adminResponse":       feedback.AdminResponse,
				"adminRespondedAt":    feedback.AdminRespondedAt,
				"respondedBy":         feedback.RespondedBy,
				"updatedAt":           now,
			}},
		); err != nil {
			return nil, err
		}

		result, err := config.GetCollection(fc.DB, "projects").UpdateOne(sc,
			bson.M{"_id": project.ID, "status": models.ProjectRevisionRequired},
			bson.M{"$set": bson.M{"status": models.ProjectPendingAcceptance, "updatedAt": now}},
		)
		if err != nil {
			return nil, err
		}
		if result.MatchedCount == 0 {
			return nil, models.NewStateError("project is not in revision")
		}

		return nil, nil
	})
	if err != nil {
		return fail(c, err)
	}

	fc.logger.Printf("Revision completed: project=%s by=%s", projectID.Hex(), actor.Email)
	return ok(c, http.StatusOK, "Revision completed. Awaiting customer review", map[string]interface{}{
		"feedback": feedback,
		"project":  project,
	})
}
