// models/service.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Service is a catalog entry the agency offers (ERP, web app, mobile app...).
type Service struct {
	ID          primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	Slug        string             `json:"slug" bson:"slug"`
	Category    string             `json:"category,omitempty" bson:"category,omitempty"`
	Summary     string             `json:"summary,omitempty" bson:"summary,omitempty"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	BasePrice   int64              `json:"basePrice,omitempty" bson:"basePrice,omitempty"`
	IsActive    bool               `json:"isActive" bson:"isActive"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// ServiceRequestStatus lifecycle of an inbound request.
type ServiceRequestStatus string

const (
	RequestPending   ServiceRequestStatus = "pending"
	RequestReviewing ServiceRequestStatus = "reviewing"
	RequestConverted ServiceRequestStatus = "converted"
	RequestRejected  ServiceRequestStatus = "rejected"
)

// ServiceRequest is a customer's inquiry for a catalog service. Converting
// it creates a Project in NEGOTIATION and assigns the least busy sales person.
type ServiceRequest struct {
	ID                  primitive.ObjectID   `json:"id,omitempty" bson:"_id,omitempty"`
	ServiceID           primitive.ObjectID   `json:"serviceId" bson:"serviceId"`
	CustomerUserID      primitive.ObjectID   `json:"customerUserId" bson:"customerUserId"`
	CompanyName         string               `json:"companyName,omitempty" bson:"companyName,omitempty"`
	ContactName         string               `json:"contactName" bson:"contactName"`
	ContactEmail        string               `json:"contactEmail" bson:"contactEmail"`
	ContactPhone        string               `json:"contactPhone,omitempty" bson:"contactPhone,omitempty"`
	SystemUsersCount    int                  `json:"systemUsersCount,omitempty" bson:"systemUsersCount,omitempty"`
	RequiredFunctions   []string             `json:"requiredFunctions,omitempty" bson:"requiredFunctions,omitempty"`
	SpecialRequirements string               `json:"specialRequirements,omitempty" bson:"specialRequirements,omitempty"`
	WorkflowDescription string               `json:"workflowDescription,omitempty" bson:"workflowDescription,omitempty"`
	Status              ServiceRequestStatus `json:"status" bson:"status"`
	AssignedTo          *primitive.ObjectID  `json:"assignedTo,omitempty" bson:"assignedTo,omitempty"`
	ConvertedProjectID  *primitive.ObjectID  `json:"convertedProjectId,omitempty" bson:"convertedProjectId,omitempty"`
	CreatedAt           time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt           time.Time            `json:"updatedAt" bson:"updatedAt"`
}

// CanConvert guards the service-request-to-project conversion.
func (r *ServiceRequest) CanConvert() *APIError {
	if r.Status == RequestConverted {
		return NewStateError("service request already converted")
	}
	if r.Status == RequestRejected {
		return NewStateError("service request was rejected")
	}
	return nil
}
