package controllers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/lachong-dev/agiletech_backend/models"
)

var validate = validator.New()

// fail maps a domain error onto the response envelope. APIError carries its
// own HTTP status and stable code; anything else is reported as internal.
func fail(c echo.Context, err error) error {
	if apiErr, ok := err.(*models.APIError); ok {
		return c.JSON(apiErr.HTTPStatus(), models.Response{
			Status:  apiErr.HTTPStatus(),
			Message: apiErr.Message,
			Code:    apiErr.Code,
		})
	}
	return c.JSON(http.StatusInternalServerError, models.Response{
		Status:  http.StatusInternalServerError,
		Message: "Internal server error",
		Code:    models.CodeInternal,
	})
}

func ok(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, models.Response{
		Status:  status,
		Message: message,
		Data:    data,
	})
}

// pathObjectID parses the named path parameter as a Mongo ObjectID.
func pathObjectID(c echo.Context, name string) (primitive.ObjectID, *models.APIError) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		return primitive.NilObjectID, models.NewValidationError("invalid %s", name)
	}
	return id, nil
}
