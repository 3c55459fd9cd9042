// models/customer.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Customer is the company record behind a customer user account.
type Customer struct {
	ID            primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID        primitive.ObjectID `json:"userId" bson:"userId"`
	CompanyName   string             `json:"companyName,omitempty" bson:"companyName,omitempty"`
	ContactName   string             `json:"contactName,omitempty" bson:"contactName,omitempty"`
	ContactEmail  string             `json:"contactEmail,omitempty" bson:"contactEmail,omitempty"`
	ContactPhone  string             `json:"contactPhone,omitempty" bson:"contactPhone,omitempty"`
	ZaloNumber    string             `json:"zaloNumber,omitempty" bson:"zaloNumber,omitempty"`
	Address       string             `json:"address,omitempty" bson:"address,omitempty"`
	TaxCode       string             `json:"taxCode,omitempty" bson:"taxCode,omitempty"`
	CreatedAt     time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt" bson:"updatedAt"`
}
