package controllers

import (
	"context"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lachong-dev/agiletech_backend/config"
	"github.com/lachong-dev/agiletech_backend/middleware"
	"github.com/lachong-dev/agiletech_backend/models"
	"github.com/lachong-dev/agiletech_backend/utils"
)

const (
	maxLoginAttempts   = 5
	loginLockoutWindow = 15 * time.Minute
)

// AuthController contains authentication logic
type AuthController struct {
	DB            *mongo.Client
	logger        *log.Logger
	loginAttempts map[string]struct {
		count       int
		lastAttempt time.Time
	}
	loginAttemptsMu sync.RWMutex
}

// NewAuthController creates a new auth controller
func NewAuthController(db *mongo.Client) *AuthController {
	ac := &AuthController{
		DB:     db,
		logger: log.New(os.Stdout, "[AUTH] ", log.LstdFlags),
		loginAttempts: make(map[string]struct {
			count       int
			lastAttempt time.Time
		}),
	}

	go ac.startLoginAttemptCleanupRoutine()

	return ac
}

func (ac *AuthController) startLoginAttemptCleanupRoutine() {
	ticker := time.NewTicker(30 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		ac.loginAttemptsMu.Lock()
		for email, attempt := range ac.loginAttempts {
			if time.Since(attempt.lastAttempt) > loginLockoutWindow {
				delete(ac.loginAttempts, email)
			}
		}
		ac.loginAttemptsMu.Unlock()
	}
}

func (ac *AuthController) isLockedOut(email string) bool {
	ac.loginAttemptsMu.RLock()
	defer ac.loginAttemptsMu.RUnlock()

	attempt, ok := ac.loginAttempts[email]
	if !ok {
		return false
	}
	return attempt.count >= maxLoginAttempts && time.Since(attempt.lastAttempt) < loginLockoutWindow
}

func (ac *AuthController) recordFailedLogin(email string) {
	ac.loginAttemptsMu.Lock()
	defer ac.loginAttemptsMu.Unlock()

	attempt := ac.loginAttempts[email]
	attempt.count++
	attempt.lastAttempt = time.Now()
	ac.loginAttempts[email] = attempt
}

func (ac *AuthController) clearLoginAttempts(email string) {
	ac.loginAttemptsMu.Lock()
	defer ac.loginAttemptsMu.Unlock()
	delete(ac.loginAttempts, email)
}

// Signup registers a new customer account. Staff accounts are created by
// an admin through the user management endpoints.
func (ac *AuthController) Signup(c echo.Context) error {
	var req models.SignupRequest
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

	// Validate and sanitize email
	email, err := utils.SanitizeEmail(req.Email)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid email format",
			Code:    models.CodeValidation,
		})
	}
	req.Email = email
	req.FullName = utils.SanitizeInput(req.FullName)

	if req.Phone != "" {
		phone, err := utils.SanitizePhone(req.Phone)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid phone number",
				Code:    models.CodeValidation,
			})
		}
		req.Phone = phone
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	usersCollection := config.GetCollection(ac.DB, "users")

	// Check if email is already registered
	count, err := usersCollection.CountDocuments(ctx, bson.M{"email": req.Email})
	if err != nil {
		ac.logger.Printf("Failed to check existing email: %v", err)
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
		ac.logger.Printf("Failed to hash password: %v", err)
		return fail(c, err)
	}

	now := time.Now()
	user := models.User{
		Email:     req.Email,
		Password:  hashedPassword,
		FullName:  req.FullName,
		Role:      models.RoleCustomer,
		Phone:     req.Phone,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	result, err := usersCollection.InsertOne(ctx, user)
	if err != nil {
		ac.logger.Printf("Failed to create user: %v", err)
		return fail(c, err)
	}
	user.ID = result.InsertedID.(primitive.ObjectID)

	// A customer profile keeps the company details off the user document
	customer := models.Customer{
		UserID:       user.ID,
		CompanyName:  utils.SanitizeInput(req.CompanyName),
		ContactName:  user.FullName,
		ContactEmail: user.Email,
		ContactPhone: user.Phone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := config.GetCollection(ac.DB, "customers").InsertOne(ctx, customer); err != nil {
		ac.logger.Printf("Failed to create customer profile for %s: %v", user.Email, err)
	}

	token, refreshToken, err := middleware.GenerateJWT(user)
	if err != nil {
		ac.logger.Printf("Failed to generate tokens: %v", err)
		return fail(c, err)
	}

	user.Password = ""
	return ok(c, http.StatusCreated, "Account created successfully", models.TokenResponse{
		Token:        token,
		RefreshToken: refreshToken,
		User:         user,
	})
}

// Login authenticates a user and issues tokens
func (ac *AuthController) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	email, err := utils.SanitizeEmail(req.Email)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid email format",
			Code:    models.CodeValidation,
		})
	}

	if ac.isLockedOut(email) {
		ac.logger.Printf("Login blocked for %s: too many failed attempts", email)
		return c.JSON(http.StatusTooManyRequests, models.Response{
			Status:  http.StatusTooManyRequests,
			Message: "Too many failed login attempts. Please try again later",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var user models.User
	err = config.GetCollection(ac.DB, "users").FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		ac.recordFailedLogin(email)
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid email or password",
		})
	}

	if !user.IsActive {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Account is deactivated",
			Code:    models.CodeUnauthorized,
		})
	}

	if err := utils.CheckPassword(req.Password, user.Password); err != nil {
		ac.recordFailedLogin(email)
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid email or password",
		})
	}

	ac.clearLoginAttempts(email)

	token, refreshToken, err := middleware.GenerateJWT(user)
	if err != nil {
		ac.logger.Printf("Failed to generate tokens: %v", err)
		return fail(c, err)
	}

	user.Password = ""
	return ok(c, http.StatusOK, "Login successful", models.TokenResponse{
		Token:        token,
		RefreshToken: refreshToken,
		User:         user,
	})
}

// RefreshToken exchanges a valid refresh token for a new token pair.
func (ac *AuthController) RefreshToken(c echo.Context) error {
	var req struct {
		RefreshToken string `json:"refreshToken" validate:"required"`
	}
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Refresh token is required",
		})
	}

	claims := &middleware.JwtCustomClaims{}
	token, err := jwt.ParseWithClaims(req.RefreshToken, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(middleware.GetJWTSecret()), nil
	})
	if err != nil || !token.Valid {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid or expired refresh token",
		})
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid refresh token",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var user models.User
	if err := config.GetCollection(ac.DB, "users").FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
		return fail(c, models.NewNotFoundError("user"))
	}
	if !user.IsActive {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Account is deactivated",
			Code:    models.CodeUnauthorized,
		})
	}

	newToken, newRefreshToken, err := middleware.GenerateJWT(user)
	if err != nil {
		return fail(c, err)
	}

	user.Password = ""
	return ok(c, http.StatusOK, "Token refreshed", models.TokenResponse{
		Token:        newToken,
		RefreshToken: newRefreshToken,
		User:         user,
	})
}

// Logout acknowledges a client-side logout. Tokens are stateless; the
// client discards them and the short expiry bounds the remaining window.
func (ac *AuthController) Logout(c echo.Context) error {
	if actor, err := middleware.ActorFromContext(c); err == nil {
		ac.logger.Printf("User logged out: %s", actor.Email)
	}
	return ok(c, http.StatusOK, "Logged out successfully", nil)
}

// Me returns the authenticated user's profile
func (ac *AuthController) Me(c echo.Context) error {
	actor, err := middleware.ActorFromContext(c)
	if err != nil {
		return fail(c, models.NewAuthorizationError("authentication required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var user models.User
	if err := config.GetCollection(ac.DB, "users").FindOne(ctx, bson.M{"_id": actor.ID}).Decode(&user); err != nil {
		return fail(c, models.NewNotFoundError("user"))
	}

	user.Password = ""
	return ok(c, http.StatusOK, "User retrieved successfully", user)
}

// ChangePassword updates the authenticated user's password
func (ac *AuthController) ChangePassword(c echo.Context) error {
	actor, err := middleware.ActorFromContext(c)
	if err != nil {
		return fail(c, models.NewAuthorizationError("authentication required"))
	}

	var req models.ChangePasswordRequest
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

	usersCollection := config.GetCollection(ac.DB, "users")

	var user models.User
	if err := usersCollection.FindOne(ctx, bson.M{"_id": actor.ID}).Decode(&user); err != nil {
		return fail(c, models.NewNotFoundError("user"))
	}

	if err := utils.CheckPassword(req.OldPassword, user.Password); err != nil {
		return fail(c, models.NewAuthorizationError("current password is incorrect"))
	}

	hashedPassword, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return fail(c, err)
	}

	_, err = usersCollection.UpdateOne(ctx, bson.M{"_id": actor.ID}, bson.M{
		"$set": bson.M{"password": hashedPassword, "updatedAt": time.Now()},
	})
	if err != nil {
		ac.logger.Printf("Failed to update password for %s: %v", actor.Email, err)
		return fail(c, err)
	}

	return ok(c, http.StatusOK, "Password changed successfully", nil)
}
