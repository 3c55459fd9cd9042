// models/proposal.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProposalStatus lifecycle: draft -> sent -> viewed -> accepted/rejected/negotiating.
// A customer "reject" moves the proposal to negotiating so the discussion can
// continue; only accepted and rejected lock the document against staff edits.
type ProposalStatus string

const (
	ProposalDraft       ProposalStatus = "draft"
	ProposalSent        ProposalStatus = "sent"
	ProposalViewed      ProposalStatus = "viewed"
	ProposalAccepted    ProposalStatus = "accepted"
	ProposalRejected    ProposalStatus = "rejected"
	ProposalNegotiating ProposalStatus = "negotiating"
)

// MinDepositAmount is the smallest allowed deposit, in VND.
const MinDepositAmount = 500000

// PaymentProof records who submitted and who approved a payment.
// Auto-approved entries are the documented stand-in for a future
// gateway webhook; a real verifier fills the same fields.
type PaymentProof struct {
	Reference      string             `json:"reference" bson:"reference"`
	SubmittedBy    primitive.ObjectID `json:"submittedBy" bson:"submittedBy"`
	SubmittedAt    time.Time          `json:"submittedAt" bson:"submittedAt"`
	ApprovedBy     primitive.ObjectID `json:"approvedBy" bson:"approvedBy"`
	ApprovedByName string             `json:"approvedByName,omitempty" bson:"approvedByName,omitempty"`
	ApprovedAt     time.Time          `json:"approvedAt" bson:"approvedAt"`
	Amount         int64              `json:"amount" bson:"amount"`
	PhaseName      string             `json:"phaseName,omitempty" bson:"phaseName,omitempty"`
	Status         string             `json:"status" bson:"status"`
	AutoApproved   bool               `json:"autoApproved" bson:"autoApproved"`
	ScreenshotPath string             `json:"screenshotPath,omitempty" bson:"screenshotPath,omitempty"`
	ThumbnailPath  string             `json:"thumbnailPath,omitempty" bson:"thumbnailPath,omitempty"`
}

// Phase is a priced, time-boxed unit of delivery inside a proposal.
// Phases are embedded in order and addressed by index; phase i cannot be
// completed until phase i-1's payment is approved.
type Phase struct {
	Name               string              `json:"name" bson:"name"`
	Amount             int64               `json:"amount" bson:"amount"`
	Days               int                 `json:"days" bson:"days"`
	Tasks              string              `json:"tasks,omitempty" bson:"tasks,omitempty"`
	Completed          bool                `json:"completed" bson:"completed"`
	CompletedAt        *time.Time          `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	CompletedBy        *primitive.ObjectID `json:"completedBy,omitempty" bson:"completedBy,omitempty"`
	PaymentSubmitted   bool                `json:"paymentSubmitted" bson:"paymentSubmitted"`
	PaymentSubmittedAt *time.Time          `json:"paymentSubmittedAt,omitempty" bson:"paymentSubmittedAt,omitempty"`
	PaymentApproved    bool                `json:"paymentApproved" bson:"paymentApproved"`
	PaymentApprovedAt  *time.Time          `json:"paymentApprovedAt,omitempty" bson:"paymentApprovedAt,omitempty"`
	PaymentApprovedBy  *primitive.ObjectID `json:"paymentApprovedBy,omitempty" bson:"paymentApprovedBy,omitempty"`
	PaymentProof       *PaymentProof       `json:"paymentProof,omitempty" bson:"paymentProof,omitempty"`
}

// TeamMember is a named person on the proposal, for the customer to review.
type TeamMember struct {
	Name   string `json:"name" bson:"name"`
	Role   string `json:"role" bson:"role"`
	Rating int    `json:"rating,omitempty" bson:"rating,omitempty"`
}

// Proposal is a negotiable quote a sales person sends to the customer.
type Proposal struct {
	ID                primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	ProjectID         primitive.ObjectID `json:"projectId" bson:"projectId"`
	CreatedBy         primitive.ObjectID `json:"createdBy" bson:"createdBy"`
	ProjectAnalysis   string             `json:"projectAnalysis,omitempty" bson:"projectAnalysis,omitempty"`
	TotalPrice        int64              `json:"totalPrice" bson:"totalPrice"`
	Currency          string             `json:"currency" bson:"currency"`
	EstimatedStart    *time.Time         `json:"estimatedStart,omitempty" bson:"estimatedStart,omitempty"`
	EstimatedEnd      *time.Time         `json:"estimatedEnd,omitempty" bson:"estimatedEnd,omitempty"`
	EstimatedDays     int                `json:"estimatedDays,omitempty" bson:"estimatedDays,omitempty"`
	DepositAmount     int64              `json:"depositAmount" bson:"depositAmount"`
	DepositPaid       bool               `json:"depositPaid" bson:"depositPaid"`
	DepositPaidAt     *time.Time         `json:"depositPaidAt,omitempty" bson:"depositPaidAt,omitempty"`
	DepositProof      *PaymentProof      `json:"depositProof,omitempty" bson:"depositProof,omitempty"`
	PaymentSubmitted  bool               `json:"paymentSubmitted" bson:"paymentSubmitted"`
	PaymentSubmittedAt *time.Time        `json:"paymentSubmittedAt,omitempty" bson:"paymentSubmittedAt,omitempty"`
	Phases            []Phase            `json:"phases" bson:"phases"`
	TeamMembers       []TeamMember       `json:"teamMembers,omitempty" bson:"teamMembers,omitempty"`
	PaymentTerms      string             `json:"paymentTerms,omitempty" bson:"paymentTerms,omitempty"`
	ScopeOfWork       string             `json:"scopeOfWork,omitempty" bson:"scopeOfWork,omitempty"`
	Deliverables      []string           `json:"deliverables,omitempty" bson:"deliverables,omitempty"`
	TermsAndConditions string            `json:"termsAndConditions,omitempty" bson:"termsAndConditions,omitempty"`
	WarrantyTerms     string             `json:"warrantyTerms,omitempty" bson:"warrantyTerms,omitempty"`
	Status            ProposalStatus     `json:"status" bson:"status"`
	CustomerNotes     string             `json:"customerNotes,omitempty" bson:"customerNotes,omitempty"`
	CustomerApprovals map[string]bool    `json:"customerApprovals" bson:"customerApprovals"`
	AcceptedAt        *time.Time         `json:"acceptedAt,omitempty" bson:"acceptedAt,omitempty"`
	RejectedAt        *time.Time         `json:"rejectedAt,omitempty" bson:"rejectedAt,omitempty"`
	RejectionReason   string             `json:"rejectionReason,omitempty" bson:"rejectionReason,omitempty"`
	ValidUntil        *time.Time         `json:"validUntil,omitempty" bson:"validUntil,omitempty"`
	CreatedAt         time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// ValidateNew checks a proposal before it is created.
func (p *Proposal) ValidateNew() *APIError {
	if p.DepositAmount < MinDepositAmount {
		return NewValidationError("deposit amount must be at least %d VND", MinDepositAmount)
	}
	for i, ph := range p.Phases {
		if ph.Amount < 0 {
			return NewValidationError("phase %d has a negative amount", i)
		}
	}
	return nil
}

// RecalculateTotals derives the total price and estimated duration from the
// phase list plus the deposit.
func (p *Proposal) RecalculateTotals() {
	var total int64 = p.DepositAmount
	days := 0
	for _, ph := range p.Phases {
		total += ph.Amount
		days += ph.Days
	}
	p.TotalPrice = total
	p.EstimatedDays = days
}

// Responded reports whether the customer already gave a final answer.
func (p *Proposal) Responded() bool {
	return p.Status == ProposalAccepted || p.Status == ProposalRejected
}

// EditableByStaff guards full-field staff updates. Sales can keep editing
// after sending (inline negotiation flow) but not once the customer responded.
func (p *Proposal) EditableByStaff() *APIError {
	if p.Responded() {
		return NewStateError("cannot update %s proposal", p.Status)
	}
	return nil
}

// ApplySend moves a draft to sent; anything else has already gone out.
func (p *Proposal) ApplySend() *APIError {
	if p.Status != ProposalDraft {
		return NewStateError("proposal has already been sent")
	}
	p.Status = ProposalSent
	return nil
}

// MarkViewed flips a sent proposal to viewed on the customer's first read.
func (p *Proposal) MarkViewed() bool {
	if p.Status != ProposalSent {
		return false
	}
	p.Status = ProposalViewed
	return true
}

// ApplyAccept records the customer's acceptance.
func (p *Proposal) ApplyAccept(notes string, now time.Time) *APIError {
	if p.Responded() {
		return NewStateError("proposal already responded to")
	}
	p.Status = ProposalAccepted
	t := now
	p.AcceptedAt = &t
	p.CustomerNotes = notes
	return nil
}

// ApplyReject records a customer rejection, which reopens negotiation
// rather than terminating the proposal.
func (p *Proposal) ApplyReject(reason, notes string, now time.Time) *APIError {
	if p.Responded() {
		return NewStateError("proposal already responded to")
	}
	p.Status = ProposalNegotiating
	t := now
	p.RejectedAt = &t
	p.RejectionReason = reason
	p.CustomerNotes = notes
	return nil
}

// CanSubmitDeposit guards the deposit payment submission.
func (p *Proposal) CanSubmitDeposit() *APIError {
	if p.Status != ProposalAccepted {
		return NewStateError("proposal must be accepted first")
	}
	if p.DepositPaid {
		return NewStateError("deposit already paid")
	}
	return nil
}

// ApplyDepositPayment marks the deposit as submitted and approved.
func (p *Proposal) ApplyDepositPayment(proof PaymentProof, now time.Time) *APIError {
	if err := p.CanSubmitDeposit(); err != nil {
		return err
	}
	t := now
	p.PaymentSubmitted = true
	p.PaymentSubmittedAt = &t
	p.DepositPaid = true
	p.DepositPaidAt = &t
	p.DepositProof = &proof
	return nil
}

// CanCompletePhase guards the staff-side phase completion: the proposal must
// be accepted with deposit paid, the index valid, the phase not yet complete,
// and the previous phase's payment approved.
func (p *Proposal) CanCompletePhase(index int) *APIError {
	if p.Status != ProposalAccepted {
		return NewStateError("proposal must be accepted first")
	}
	if !p.DepositPaid {
		return NewStateError("deposit must be paid before starting phases")
	}
	if index < 0 || index >= len(p.Phases) {
		return NewValidationError("invalid phase index, must be 0-%d", len(p.Phases)-1)
	}
	if p.Phases[index].Completed {
		return NewStateError("phase already marked as completed")
	}
	if index > 0 && !p.Phases[index-1].PaymentApproved {
		return NewStateError("previous phase payment must be approved first")
	}
	return nil
}

// ApplyCompletePhase marks phase work as done by the given staff member.
func (p *Proposal) ApplyCompletePhase(index int, actor Actor, now time.Time) *APIError {
	if err := p.CanCompletePhase(index); err != nil {
		return err
	}
	ph := &p.Phases[index]
	ph.Completed = true
	t := now
	ph.CompletedAt = &t
	id := actor.ID
	ph.CompletedBy = &id
	return nil
}

// CanSubmitPhasePayment guards the customer-side phase payment.
func (p *Proposal) CanSubmitPhasePayment(index int) *APIError {
	if p.Status != ProposalAccepted {
		return NewStateError("proposal must be accepted first")
	}
	if index < 0 || index >= len(p.Phases) {
		return NewValidationError("invalid phase index, must be 0-%d", len(p.Phases)-1)
	}
	if !p.Phases[index].Completed {
		return NewStateError("phase must be completed by the delivery team first")
	}
	if p.Phases[index].PaymentApproved {
		return NewStateError("payment already approved for this phase")
	}
	return nil
}

// ApplyPhasePayment marks the phase payment as submitted and approved.
func (p *Proposal) ApplyPhasePayment(index int, proof PaymentProof, now time.Time) *APIError {
	if err := p.CanSubmitPhasePayment(index); err != nil {
		return err
	}
	ph := &p.Phases[index]
	t := now
	ph.PaymentSubmitted = true
	ph.PaymentSubmittedAt = &t
	ph.PaymentApproved = true
	ph.PaymentApprovedAt = &t
	approver := proof.ApprovedBy
	ph.PaymentApprovedBy = &approver
	ph.PaymentProof = &proof
	return nil
}

// AllPhasesPaid is evaluated after every phase payment, not batched, so the
// last-paid phase triggers project completion regardless of index order.
func (p *Proposal) AllPhasesPaid() bool {
	if len(p.Phases) == 0 {
		return false
	}
	for _, ph := range p.Phases {
		if !ph.PaymentApproved {
			return false
		}
	}
	return true
}
