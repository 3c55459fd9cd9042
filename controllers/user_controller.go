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
	"github.com/lachong-dev/agiletech_backend/models"
	"github.com/lachong-dev/agiletech_backend/utils"
)

// UserController handles staff user administration (admin only)
type UserController struct {
	DB     *mongo.Client
	logger *log.Logger
}

func NewUserController(db *mongo.Client) *UserController {
	return &UserController{
		DB:     db,
		logger: log.New(os.Stdout, "[USERS] ", log.LstdFlags),
	}
}

// CreateStaff creates a sales or dev account. Customer accounts go through
// signup; admins are seeded out of band.
func (uc *UserController) CreateStaff(c echo.Context) error {
	var req models.CreateStaffRequest
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

	role, valid := models.ParseRole(req.Role)
	if !valid || !role.IsStaff() || role == models.RoleAdmin {
		return fail(c, models.NewValidationError("role must be %q or %q", models.RoleSales, models.RoleDev))
	}

	email, err := utils.SanitizeEmail(req.Email)
	if err != nil {
		return fail(c, models.NewValidationError("invalid email format"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	usersCollection := config.GetCollection(uc.DB, "users")

	count, err := usersCollection.CountDocuments(ctx, bson.M{"email": email})
	if err != nil {
		return fail(c, err)
	}
	if count > 0 {
		return c.JSON(http.StatusConflict, models.Response{
			Status:  http.StatusConflict,
			Message: "Email is already registered",
			Code:    models.CodeValidation,
		})
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		return fail(c, err)
	}

	now := time.Now()
	user := models.User{
		Email:     email,
		Password:  hashedPassword,
		FullName:  utils.SanitizeInput(req.FullName),
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	result, err := usersCollection.InsertOne(ctx, user)
	if err != nil {
		uc.logger.Printf("Failed to create staff user: %v", err)
		return fail(c, err)
	}
	user.ID = result.InsertedID.(primitive.ObjectID)
	user.Password = ""

	uc.logger.Printf("Created %s account %s", role, user.Email)
	return ok(c, http.StatusCreated, "Staff user created successfully", user)
}

// ListUsers returns users, optionally filtered by ?role=
func (uc *UserController) ListUsers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	filter := bson.M{}
	if raw := c.QueryParam("role"); raw != "" {
		role, valid := models.ParseRole(raw)
		if !valid {
			return fail(c, models.NewValidationError("unknown role %q", raw))
		}
		filter["role"] = role
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetProjection(bson.M{"password": 0})

	cursor, err := config.GetCollection(uc.DB, "users").Find(ctx, filter, opts)
	if err != nil {
		return fail(c, err)
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return fail(c, err)
	}

	return ok(c, http.StatusOK, "Users retrieved successfully", users)
}

// SetUserActive activates or deactivates an account. Deactivated staff are
// skipped by auto-assignment; deactivated customers cannot log in.
func (uc *UserController) SetUserActive(c echo.Context) error {
	userID, apiErr := pathObjectID(c, "id")
	if apiErr != nil {
		return fail(c, apiErr)
	}

	var req struct {
		IsActive bool `json:"isActive"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := config.GetCollection(uc.DB, "users").UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"isActive": req.IsActive, "updatedAt": time.Now()}},
	)
	if err != nil {
		return fail(c, err)
	}
	if result.MatchedCount == 0 {
		return fail(c, models.NewNotFoundError("user"))
	}

	message := "User deactivated"
	if req.IsActive {
		message = "User activated"
	}
	return ok(c, http.StatusOK, message, nil)
}
