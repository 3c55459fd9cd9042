package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func intPtr(v int) *int { return &v }

func TestAcceptanceSubmissionValidate(t *testing.T) {
	tests := []struct {
		name    string
		sub     AcceptanceSubmission
		wantErr bool
	}{
		{
			name:    "accept with rating",
			sub:     AcceptanceSubmission{AcceptanceStatus: "accepted", Rating: intPtr(5)},
			wantErr: false,
		},
		{
			name:    "accept without rating",
			sub:     AcceptanceSubmission{AcceptanceStatus: "accepted"},
			wantErr: true,
		},
		{
			name:    "accept with rating out of range",
			sub:     AcceptanceSubmission{AcceptanceStatus: "accepted", Rating: intPtr(6)},
			wantErr: true,
		},
		{
			name:    "accept with zero rating",
			sub:     AcceptanceSubmission{AcceptanceStatus: "accepted", Rating: intPtr(0)},
			wantErr: true,
		},
		{
			name:    "reject with complaint",
			sub:     AcceptanceSubmission{AcceptanceStatus: "rejected", Complaint: "login is broken"},
			wantErr: false,
		},
		{
			name:    "reject with revision details",
			sub:     AcceptanceSubmission{AcceptanceStatus: "rejected", RevisionDetails: "fix the report layout"},
			wantErr: false,
		},
		{
			name:    "reject with neither",
			sub:     AcceptanceSubmission{AcceptanceStatus: "rejected"},
			wantErr: true,
		},
		{
			name:    "unknown status",
			sub:     AcceptanceSubmission{AcceptanceStatus: "maybe"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sub.Validate()
			if tt.wantErr {
				require.NotNil(t, err)
				assert.Equal(t, CodeValidation, err.Code)
			} else {
				assert.Nil(t, err)
			}
		})
	}
}

func TestFeedbackApply(t *testing.T) {
	now := time.Now()
	f := ProjectFeedback{ProjectID: primitive.NewObjectID(), CustomerID: primitive.NewObjectID()}

	f.Apply(AcceptanceSubmission{AcceptanceStatus: "rejected", Complaint: "slow"}, now)
	assert.Equal(t, AcceptanceRejected, f.AcceptanceStatus)
	assert.NotNil(t, f.RejectedAt)
	assert.Nil(t, f.AcceptedAt)

	// Re-submission replaces the decision and swaps the timestamps
	f.Apply(AcceptanceSubmission{AcceptanceStatus: "accepted", Rating: intPtr(4)}, now.Add(time.Hour))
	assert.Equal(t, AcceptanceAccepted, f.AcceptanceStatus)
	assert.NotNil(t, f.AcceptedAt)
	assert.Nil(t, f.RejectedAt)
	require.NotNil(t, f.Rating)
	assert.Equal(t, 4, *f.Rating)
}

func TestRevisionCompleted(t *testing.T) {
	actor := Actor{ID: primitive.NewObjectID(), Email: "dev@agiletech.vn", Role: RoleDev}

	f := ProjectFeedback{AcceptanceStatus: AcceptanceAccepted}
	err := f.ApplyRevisionCompleted("done", actor, time.Now())
	require.NotNil(t, err, "only rejected feedback enters revision")
	assert.Equal(t, CodeState, err.Code)

	f = ProjectFeedback{AcceptanceStatus: AcceptanceRejected}
	require.Nil(t, f.ApplyRevisionCompleted("fixed the report layout", actor, time.Now()))
	assert.True(t, f.RevisionCompleted)
	assert.NotNil(t, f.RevisionCompletedAt)
	assert.Equal(t, "fixed the report layout", f.AdminResponse)
	require.NotNil(t, f.RespondedBy)
	assert.Equal(t, actor.ID, *f.RespondedBy)
}
