package controllers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lachong-dev/agiletech_backend/models"
)

func TestCompleteRevisionRequiresAdminResponse(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"adminResponse":""}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(primitive.NewObjectID().Hex())
	c.Set("actor", models.Actor{ID: primitive.NewObjectID(), Role: models.RoleDev})

	fc := NewFeedbackController(nil)
	require.NoError(t, fc.CompleteRevision(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoadedOrNewFeedback(t *testing.T) {
	projectID := primitive.NewObjectID()
	customerID := primitive.NewObjectID()
	now := time.Now()

	existing := models.ProjectFeedback{
		ID:         primitive.NewObjectID(),
		ProjectID:  projectID,
		CustomerID: customerID,
		CreatedAt:  now.Add(-time.Hour),
	}

	// A successful read keeps the stored record untouched
	got, err := loadedOrNewFeedback(existing, nil, projectID, customerID, now)
	require.NoError(t, err)
	assert.Equal(t, existing, got)

	// No record yet starts a fresh one
	got, err = loadedOrNewFeedback(models.ProjectFeedback{}, mongo.ErrNoDocuments, projectID, customerID, now)
	require.NoError(t, err)
	assert.Equal(t, projectID, got.ProjectID)
	assert.Equal(t, customerID, got.CustomerID)
	assert.Equal(t, now, got.CreatedAt)

	// A transient read error must surface, not reset the record
	readErr := errors.New("connection reset by peer")
	_, err = loadedOrNewFeedback(models.ProjectFeedback{}, readErr, projectID, customerID, now)
	assert.Equal(t, readErr, err)
}
