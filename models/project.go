// models/project.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProjectStatus tracks where a project sits in the negotiation-to-delivery flow.
type ProjectStatus string

const (
	ProjectNegotiation       ProjectStatus = "negotiation"        // created from service request, proposal being negotiated
	ProjectDeposit           ProjectStatus = "deposit"            // proposal accepted, waiting for deposit payment
	ProjectPending           ProjectStatus = "pending"            // legacy status, kept for old records
	ProjectInProgress        ProjectStatus = "in_progress"        // deposit confirmed, phases being delivered
	ProjectOnHold            ProjectStatus = "on_hold"
	ProjectPendingAcceptance ProjectStatus = "pending_acceptance" // revision done, waiting for customer sign-off
	ProjectRevisionRequired  ProjectStatus = "revision_required"  // customer rejected acceptance, fixes needed
	ProjectCompleted         ProjectStatus = "completed"
	ProjectCancelled         ProjectStatus = "cancelled"
)

// ProjectPriority levels.
type ProjectPriority string

const (
	PriorityLow    ProjectPriority = "low"
	PriorityMedium ProjectPriority = "medium"
	PriorityHigh   ProjectPriority = "high"
	PriorityUrgent ProjectPriority = "urgent"
)

// Project model for managing software projects
type Project struct {
	ID             primitive.ObjectID   `json:"id,omitempty" bson:"_id,omitempty"`
	Name           string               `json:"name" bson:"name"`
	Description    string               `json:"description,omitempty" bson:"description,omitempty"`
	CustomerID     primitive.ObjectID   `json:"customerId" bson:"customerId"`
	ManagerID      *primitive.ObjectID  `json:"managerId,omitempty" bson:"managerId,omitempty"`
	TeamMemberIDs  []primitive.ObjectID `json:"teamMemberIds,omitempty" bson:"teamMemberIds,omitempty"`
	Status         ProjectStatus        `json:"status" bson:"status"`
	Priority       ProjectPriority      `json:"priority" bson:"priority"`
	StartDate      *time.Time           `json:"startDate,omitempty" bson:"startDate,omitempty"`
	EndDate        *time.Time           `json:"endDate,omitempty" bson:"endDate,omitempty"`
	EstimatedHours int                  `json:"estimatedHours,omitempty" bson:"estimatedHours,omitempty"`
	Budget         int64                `json:"budget,omitempty" bson:"budget,omitempty"`
	RepositoryURL  string               `json:"repositoryUrl,omitempty" bson:"repositoryUrl,omitempty"`
	StagingURL     string               `json:"stagingUrl,omitempty" bson:"stagingUrl,omitempty"`
	ProductionURL  string               `json:"productionUrl,omitempty" bson:"productionUrl,omitempty"`
	CreatedAt      time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt" bson:"updatedAt"`
}

// requireStatus fails with a StateError naming the current and required states.
func (p *Project) requireStatus(op string, allowed ...ProjectStatus) *APIError {
	for _, s := range allowed {
		if p.Status == s {
			return nil
		}
	}
	return NewStateError("cannot %s: project is %q, requires one of %v", op, p.Status, allowed)
}

// ApplyProposalAccepted moves the project to DEPOSIT after the customer
// accepts a proposal. Legacy "pending" projects take this edge too.
func (p *Project) ApplyProposalAccepted() *APIError {
	if err := p.requireStatus("await deposit", ProjectNegotiation, ProjectPending); err != nil {
		return err
	}
	p.Status = ProjectDeposit
	return nil
}

// ApplyDepositConfirmed starts the project once the deposit payment clears.
func (p *Project) ApplyDepositConfirmed(now time.Time) *APIError {
	if err := p.requireStatus("start project", ProjectDeposit); err != nil {
		return err
	}
	p.Status = ProjectInProgress
	start := now
	p.StartDate = &start
	return nil
}

// ApplyAllPhasesPaid completes the project when the last phase payment
// is approved. Acceptance is still collected afterwards; rejection there
// reopens the project via REVISION_REQUIRED.
func (p *Project) ApplyAllPhasesPaid(now time.Time) *APIError {
	if err := p.requireStatus("complete project", ProjectInProgress); err != nil {
		return err
	}
	p.Status = ProjectCompleted
	end := now
	p.EndDate = &end
	return nil
}

// AcceptanceOpen reports whether the project is in a state where the
// customer may submit or revise an acceptance decision.
func (p *Project) AcceptanceOpen() bool {
	switch p.Status {
	case ProjectCompleted, ProjectPendingAcceptance, ProjectRevisionRequired:
		return true
	}
	return false
}

// ApplyAcceptanceAccepted records the customer's final sign-off.
func (p *Project) ApplyAcceptanceAccepted(now time.Time) *APIError {
	if err := p.requireStatus("accept project", ProjectCompleted, ProjectPendingAcceptance, ProjectRevisionRequired); err != nil {
		return err
	}
	p.Status = ProjectCompleted
	end := now
	p.EndDate = &end
	return nil
}

// ApplyAcceptanceRejected reopens the project for revision work.
func (p *Project) ApplyAcceptanceRejected() *APIError {
	if err := p.requireStatus("request revision", ProjectCompleted, ProjectPendingAcceptance, ProjectRevisionRequired); err != nil {
		return err
	}
	p.Status = ProjectRevisionRequired
	return nil
}

// ApplyRevisionCompleted hands the project back to the customer for review.
func (p *Project) ApplyRevisionCompleted() *APIError {
	if err := p.requireStatus("complete revision", ProjectRevisionRequired); err != nil {
		return err
	}
	p.Status = ProjectPendingAcceptance
	return nil
}

// ApplyHold pauses active development.
func (p *Project) ApplyHold() *APIError {
	if err := p.requireStatus("put on hold", ProjectInProgress); err != nil {
		return err
	}
	p.Status = ProjectOnHold
	return nil
}

// ApplyResume continues a paused project.
func (p *Project) ApplyResume() *APIError {
	if err := p.requireStatus("resume", ProjectOnHold); err != nil {
		return err
	}
	p.Status = ProjectInProgress
	return nil
}

// ApplyCancel cancels a project that has not finished. Completed and
// already-cancelled projects are terminal for this edge. Historical
// transactions are always retained regardless of cancellation.
func (p *Project) ApplyCancel() *APIError {
	if p.Status == ProjectCompleted || p.Status == ProjectCancelled {
		return NewStateError("cannot cancel: project is %q", p.Status)
	}
	p.Status = ProjectCancelled
	return nil
}
