// middleware/jwt_middleware.go
package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lachong-dev/agiletech_backend/models"
)

// JwtCustomClaims for JWT token
type JwtCustomClaims struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
	jwt.StandardClaims
}

// Valid implements the Claims interface for Echo's JWT middleware
func (c JwtCustomClaims) Valid() error {
	if c.ExpiresAt > 0 && time.Now().Unix() > c.ExpiresAt {
		return errors.New("token is expired")
	}
	if c.NotBefore > 0 && time.Now().Unix() < c.NotBefore {
		return errors.New("token used before valid")
	}
	return nil
}

// GetJWTSecret returns the JWT secret from environment variables
func GetJWTSecret() string {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		panic("JWT_SECRET environment variable is required")
	}
	return secret
}

// JWTMiddleware returns a configured JWT middleware. On success the caller's
// identity is resolved once into an Actor with a normalized role; handlers
// read it via ActorFromContext and never re-parse role strings.
func JWTMiddleware() echo.MiddlewareFunc {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Printf("Warning: JWT_SECRET environment variable is not set")
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				return echo.NewHTTPError(echo.ErrUnauthorized.Code, "JWT configuration error")
			}
		}
	}

	return middleware.JWTWithConfig(middleware.JWTConfig{
		SigningKey: []byte(secret),
		Claims:     &JwtCustomClaims{},
		SuccessHandler: func(c echo.Context) {
			user := c.Get("user").(*jwt.Token)
			claims := user.Claims.(*JwtCustomClaims)

			role, ok := models.ParseRole(claims.Role)
			if !ok {
				c.Error(echo.NewHTTPError(echo.ErrUnauthorized.Code, "Unknown role in token"))
				return
			}

			userID, err := primitive.ObjectIDFromHex(claims.UserID)
			if err != nil {
				c.Error(echo.NewHTTPError(echo.ErrUnauthorized.Code, "Invalid user ID in token"))
				return
			}

			c.Set("actor", models.Actor{
				ID:       userID,
				Email:    claims.Email,
				FullName: claims.FullName,
				Role:     role,
			})
		},
		ErrorHandler: func(err error) error {
			log.Printf("JWT middleware error: %v", err)
			return echo.NewHTTPError(echo.ErrUnauthorized.Code, "Please provide valid credentials")
		},
	})
}

// ActorFromContext returns the authenticated caller resolved by JWTMiddleware.
func ActorFromContext(c echo.Context) (models.Actor, error) {
	actor, ok := c.Get("actor").(models.Actor)
	if !ok {
		return models.Actor{}, errors.New("no authenticated actor in context")
	}
	return actor, nil
}

// GenerateJWT generates a new JWT token with a refresh token.
func GenerateJWT(user models.User) (string, string, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return "", "", errors.New("JWT_SECRET environment variable is required")
	}

	claims := &JwtCustomClaims{
		UserID:   user.ID.Hex(),
		Email:    user.Email,
		FullName: user.FullName,
		Role:     string(user.Role),
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(24 * time.Hour).Unix(),
			IssuedAt:  time.Now().Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	refreshClaims := &JwtCustomClaims{
		UserID:   user.ID.Hex(),
		Email:    user.Email,
		FullName: user.FullName,
		Role:     string(user.Role),
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(7 * 24 * time.Hour).Unix(),
			IssuedAt:  time.Now().Unix(),
		},
	}
	refreshToken := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims)

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", "", err
	}

	refreshTokenString, err := refreshToken.SignedString([]byte(secret))
	if err != nil {
		return "", "", err
	}

	return tokenString, refreshTokenString, nil
}

// ActivityTracker updates the caller's lastActivityAt on each request.
func ActivityTracker(db *mongo.Client) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if actor, err := ActorFromContext(c); err == nil {
				go func(id primitive.ObjectID) {
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					dbName := os.Getenv("DB_NAME")
					if dbName == "" {
						dbName = "agiletech"
					}
					_, err := db.Database(dbName).Collection("users").UpdateOne(ctx,
						bson.M{"_id": id},
						bson.M{"$set": bson.M{"lastActivityAt": time.Now()}})
					if err != nil {
						log.Printf("Error updating last activity: %v", err)
					}
				}(actor.ID)
			}
			return next(c)
		}
	}
}

// RequireCapability allows only callers whose role carries the capability.
// The role was resolved once at token validation; this is a map lookup.
func RequireCapability(cap models.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, err := ActorFromContext(c)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, models.Response{
					Status:  http.StatusUnauthorized,
					Message: "Authentication required",
				})
			}
			if !actor.Role.Has(cap) {
				return c.JSON(http.StatusForbidden, models.Response{
					Status:  http.StatusForbidden,
					Code:    models.CodeUnauthorized,
					Message: "Access denied for your role",
				})
			}
			return next(c)
		}
	}
}
