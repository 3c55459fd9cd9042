// models/payment.go
package models

import "time"

// ProposalCreateRequest is the staff payload for a new proposal.
type ProposalCreateRequest struct {
	ProjectAnalysis    string       `json:"projectAnalysis,omitempty"`
	DepositAmount      int64        `json:"depositAmount" validate:"required,min=1"`
	Currency           string       `json:"currency,omitempty"`
	EstimatedStart     *time.Time   `json:"estimatedStart,omitempty"`
	Phases             []Phase      `json:"phases,omitempty"`
	TeamMembers        []TeamMember `json:"teamMembers,omitempty"`
	PaymentTerms       string       `json:"paymentTerms,omitempty"`
	ScopeOfWork        string       `json:"scopeOfWork,omitempty"`
	Deliverables       []string     `json:"deliverables,omitempty"`
	TermsAndConditions string       `json:"termsAndConditions,omitempty"`
	WarrantyTerms      string       `json:"warrantyTerms,omitempty"`
	ValidUntil         *time.Time   `json:"validUntil,omitempty"`
}

// ProposalUpdateRequest is the staff full-field update payload. Nil fields
// are left untouched.
type ProposalUpdateRequest struct {
	ProjectAnalysis    *string       `json:"projectAnalysis,omitempty"`
	DepositAmount      *int64        `json:"depositAmount,omitempty"`
	EstimatedStart     *time.Time    `json:"estimatedStart,omitempty"`
	Phases             *[]Phase      `json:"phases,omitempty"`
	TeamMembers        *[]TeamMember `json:"teamMembers,omitempty"`
	PaymentTerms       *string       `json:"paymentTerms,omitempty"`
	ScopeOfWork        *string       `json:"scopeOfWork,omitempty"`
	Deliverables       *[]string     `json:"deliverables,omitempty"`
	TermsAndConditions *string       `json:"termsAndConditions,omitempty"`
	WarrantyTerms      *string       `json:"warrantyTerms,omitempty"`
	ValidUntil         *time.Time    `json:"validUntil,omitempty"`

	// The one field a customer may update, regardless of proposal status.
	CustomerApprovals map[string]bool `json:"customerApprovals,omitempty"`
}

// CustomerResponseRequest carries the customer's accept/reject payload.
type CustomerResponseRequest struct {
	CustomerNotes   string `json:"customerNotes,omitempty"`
	RejectionReason string `json:"rejectionReason,omitempty"`
}

// ManualTransactionRequest records an offline payment, refund or adjustment.
type ManualTransactionRequest struct {
	ProjectID   string            `json:"projectId" validate:"required"`
	Type        string            `json:"type" validate:"required"`
	Amount      int64             `json:"amount" validate:"required,min=1"`
	PhaseIndex  *int              `json:"phaseIndex,omitempty"`
	Method      string            `json:"method,omitempty"`
	Reference   string            `json:"reference,omitempty"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// FeedbackResponseRequest is the staff response/revision payload.
type FeedbackResponseRequest struct {
	AdminResponse string `json:"adminResponse" validate:"required"`
}

// PaymentQR is a bank-transfer QR image for a pending payment, returned as
// a base64 data URL the frontend can embed directly.
type PaymentQR struct {
	ProposalID string `json:"proposalId"`
	PhaseIndex *int   `json:"phaseIndex,omitempty"`
	Amount     int64  `json:"amount"`
	Content    string `json:"content"`
	QRImage    string `json:"qrImage"`
}

// FinancialSummary aggregates a project's money state for the timeline view.
type FinancialSummary struct {
	ProjectID     string              `json:"projectId"`
	ProjectName   string              `json:"projectName"`
	ProjectStatus ProjectStatus       `json:"projectStatus"`
	ContractValue int64               `json:"contractValue"`
	TotalReceived int64               `json:"totalReceived"`
	TotalRefunded int64               `json:"totalRefunded"`
	NetReceived   int64               `json:"netReceived"`
	PendingAmount int64               `json:"pendingAmount"`
	Deposit       DepositSummary      `json:"deposit"`
	Phases        []PhaseSummary      `json:"phases"`
	Transactions  TransactionSummary  `json:"transactions"`
}

// DepositSummary is the deposit slice of a financial summary.
type DepositSummary struct {
	Amount int64      `json:"amount"`
	Paid   bool       `json:"paid"`
	PaidAt *time.Time `json:"paidAt,omitempty"`
}

// PhaseSummary is the per-phase slice of a financial summary.
type PhaseSummary struct {
	PhaseIndex      int    `json:"phaseIndex"`
	PhaseName       string `json:"phaseName"`
	Amount          int64  `json:"amount"`
	PaidAmount      int64  `json:"paidAmount"`
	Completed       bool   `json:"completed"`
	PaymentApproved bool   `json:"paymentApproved"`
}

// TransactionSummary counts ledger entries by status.
type TransactionSummary struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}
