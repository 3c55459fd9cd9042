// models/feedback.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AcceptanceStatus of a project feedback record.
type AcceptanceStatus string

const (
	AcceptancePending  AcceptanceStatus = "pending"
	AcceptanceAccepted AcceptanceStatus = "accepted"
	AcceptanceRejected AcceptanceStatus = "rejected"
)

// ProjectFeedback is the customer's acceptance decision after delivery,
// one active record per (project, customer). Re-submissions before the
// project reaches a terminal state replace the record instead of
// duplicating it.
type ProjectFeedback struct {
	ID                  primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	ProjectID           primitive.ObjectID  `json:"projectId" bson:"projectId"`
	CustomerID          primitive.ObjectID  `json:"customerId" bson:"customerId"`
	AcceptanceStatus    AcceptanceStatus    `json:"acceptanceStatus" bson:"acceptanceStatus"`
	AcceptedAt          *time.Time          `json:"acceptedAt,omitempty" bson:"acceptedAt,omitempty"`
	RejectedAt          *time.Time          `json:"rejectedAt,omitempty" bson:"rejectedAt,omitempty"`
	Rating              *int                `json:"rating,omitempty" bson:"rating,omitempty"`
	Feedback            string              `json:"feedback,omitempty" bson:"feedback,omitempty"`
	Complaint           string              `json:"complaint,omitempty" bson:"complaint,omitempty"`
	RevisionDetails     string              `json:"revisionDetails,omitempty" bson:"revisionDetails,omitempty"`
	FeatureRequest      string              `json:"featureRequest,omitempty" bson:"featureRequest,omitempty"`
	UpgradeRequest      string              `json:"upgradeRequest,omitempty" bson:"upgradeRequest,omitempty"`
	AdminResponse       string              `json:"adminResponse,omitempty" bson:"adminResponse,omitempty"`
	AdminRespondedAt    *time.Time          `json:"adminRespondedAt,omitempty" bson:"adminRespondedAt,omitempty"`
	RespondedBy         *primitive.ObjectID `json:"respondedBy,omitempty" bson:"respondedBy,omitempty"`
	RevisionCompleted   bool                `json:"revisionCompleted" bson:"revisionCompleted"`
	RevisionCompletedAt *time.Time          `json:"revisionCompletedAt,omitempty" bson:"revisionCompletedAt,omitempty"`
	CreatedAt           time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt           time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// AcceptanceSubmission is the customer's acceptance request payload.
type AcceptanceSubmission struct {
	AcceptanceStatus string `json:"acceptanceStatus" validate:"required"`
	Rating           *int   `json:"rating,omitempty"`
	Feedback         string `json:"feedback,omitempty"`
	Complaint        string `json:"complaint,omitempty"`
	RevisionDetails  string `json:"revisionDetails,omitempty"`
	FeatureRequest   string `json:"featureRequest,omitempty"`
	UpgradeRequest   string `json:"upgradeRequest,omitempty"`
}

// Validate enforces the decision-dependent field requirements:
// a rating (1-5) when accepting, a complaint or revision details when rejecting.
func (s *AcceptanceSubmission) Validate() *APIError {
	switch AcceptanceStatus(s.AcceptanceStatus) {
	case AcceptanceAccepted:
		if s.Rating == nil {
			return NewValidationError("rating is required when accepting the project")
		}
		if *s.Rating < 1 || *s.Rating > 5 {
			return NewValidationError("rating must be between 1 and 5")
		}
	case AcceptanceRejected:
		if s.Complaint == "" && s.RevisionDetails == "" {
			return NewValidationError("complaint or revision details required when rejecting")
		}
	default:
		return NewValidationError("acceptanceStatus must be %q or %q", AcceptanceAccepted, AcceptanceRejected)
	}
	return nil
}

// Apply copies the submission onto the feedback record and stamps the
// mutually exclusive accepted/rejected timestamps.
func (f *ProjectFeedback) Apply(s AcceptanceSubmission, now time.Time) {
	f.AcceptanceStatus = AcceptanceStatus(s.AcceptanceStatus)
	f.Rating = s.Rating
	f.Feedback = s.Feedback
	f.Complaint = s.Complaint
	f.RevisionDetails = s.RevisionDetails
	f.FeatureRequest = s.FeatureRequest
	f.UpgradeRequest = s.UpgradeRequest
	t := now
	if f.AcceptanceStatus == AcceptanceAccepted {
		f.AcceptedAt = &t
		f.RejectedAt = nil
	} else {
		f.RejectedAt = &t
		f.AcceptedAt = nil
	}
	f.UpdatedAt = now
}

// ApplyRevisionCompleted records that staff finished the requested fixes.
func (f *ProjectFeedback) ApplyRevisionCompleted(response string, actor Actor, now time.Time) *APIError {
	if f.AcceptanceStatus != AcceptanceRejected {
		return NewStateError("revision completion only applies to rejected acceptances")
	}
	t := now
	f.RevisionCompleted = true
	f.RevisionCompletedAt = &t
	f.AdminResponse = response
	f.AdminRespondedAt = &t
	id := actor.ID
	f.RespondedBy = &id
	f.UpdatedAt = now
	return nil
}

// ApplyResponse records a staff annotation without any state transition.
func (f *ProjectFeedback) ApplyResponse(response string, actor Actor, now time.Time) {
	t := now
	f.AdminResponse = response
	f.AdminRespondedAt = &t
	id := actor.ID
	f.RespondedBy = &id
	f.UpdatedAt = now
}
