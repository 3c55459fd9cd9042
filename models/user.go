// models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is the closed set of user roles in the system.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleSales    Role = "sales"
	RoleDev      Role = "dev"
	RoleCustomer Role = "customer"
)

// ParseRole normalizes a raw role string into a known Role.
// Legacy aliases ("sale", "developer", "client") are folded here once,
// at the boundary, instead of being re-matched on every check.
func ParseRole(raw string) (Role, bool) {
	switch raw {
	case "admin":
		return RoleAdmin, true
	case "sales", "sale":
		return RoleSales, true
	case "dev", "developer":
		return RoleDev, true
	case "customer", "client":
		return RoleCustomer, true
	}
	return "", false
}

// IsStaff reports whether the role belongs to agency staff.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleSales || r == RoleDev
}

// Capability is a named permission resolved from a role.
type Capability string

const (
	CapManageProposals    Capability = "manage_proposals"    // create/edit/send proposals, mark phases complete
	CapManageProjects     Capability = "manage_projects"     // project status management, revision completion
	CapRecordTransactions Capability = "record_transactions" // manual transactions, approve/reject pending ones
	CapRespondFeedback    Capability = "respond_feedback"    // respond to acceptance feedback
	CapDeliverPhases      Capability = "deliver_phases"      // mark phase work and revisions complete
	CapSubmitPayments     Capability = "submit_payments"     // customer-side deposit/phase payment submission
	CapAcceptProject      Capability = "accept_project"      // customer acceptance decision
	CapViewFinance        Capability = "view_finance"        // revenue dashboard
	CapManageUsers        Capability = "manage_users"        // staff user administration
)

var roleCapabilities = map[Role]map[Capability]bool{
	RoleAdmin: {
		CapManageProposals:    true,
		CapManageProjects:     true,
		CapRecordTransactions: true,
		CapRespondFeedback:    true,
		CapDeliverPhases:      true,
		CapViewFinance:        true,
		CapManageUsers:        true,
	},
	RoleSales: {
		CapManageProposals:    true,
		CapManageProjects:     true,
		CapRecordTransactions: true,
		CapRespondFeedback:    true,
		CapDeliverPhases:      true,
	},
	RoleDev: {
		CapDeliverPhases: true,
	},
	RoleCustomer: {
		CapSubmitPayments: true,
		CapAcceptProject:  true,
	},
}

// Has reports whether the role carries the given capability.
func (r Role) Has(cap Capability) bool {
	return roleCapabilities[r][cap]
}

// User model
type User struct {
	ID             primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Email          string             `json:"email" bson:"email"`
	Password       string             `json:"password,omitempty" bson:"password"`
	FullName       string             `json:"fullName" bson:"fullName"`
	Role           Role               `json:"role" bson:"role"`
	Phone          string             `json:"phone,omitempty" bson:"phone,omitempty"`
	IsActive       bool               `json:"isActive" bson:"isActive"`
	LastActivityAt time.Time          `json:"lastActivityAt,omitempty" bson:"lastActivityAt,omitempty"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// Actor identifies the authenticated caller of a state-machine operation.
// Controllers resolve it once from the JWT claims and pass it explicitly;
// domain methods never read ambient request state.
type Actor struct {
	ID       primitive.ObjectID `json:"id"`
	Email    string             `json:"email"`
	FullName string             `json:"fullName"`
	Role     Role               `json:"role"`
}

// Response model
type Response struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}
