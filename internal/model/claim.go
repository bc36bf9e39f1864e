package model

import "time"

// ClaimSubmission is the raw claim payload accepted at the pipeline entry
type ClaimSubmission struct {
	ClaimID      string        `json:"claim_id"`
	PolicyHolder string        `json:"policy_holder"`
	VendorName   string        `json:"vendor_name"`
	InvoiceItems []InvoiceItem `json:"invoice_items"`
	TotalAmount  float64       `json:"total_amount"`
}

// InvoiceItem is a single claimed line item
type InvoiceItem struct {
	Description string  `json:"item"`
	Amount      float64 `json:"amount"`
}

// Recommendation is the adjudication verdict produced by the recommendation stage
type Recommendation string

const (
	RecommendApprove Recommendation = "APPROVE"
	RecommendDeny    Recommendation = "DENY"
	RecommendError   Recommendation = "ERROR"   // Collaborator call failed
	RecommendUnknown Recommendation = "UNKNOWN" // Collaborator replied but verdict missing
)

// PriceCheckResult is the deterministic price verification outcome
type PriceCheckResult string

const (
	PriceWithinNormalRange PriceCheckResult = "WITHIN_NORMAL_RANGE"
	PriceHighAmountFlagged PriceCheckResult = "HIGH_AMOUNT_FLAGGED"
)

// Decision is the terminal outcome of a pipeline run
type Decision string

const (
	DecisionApproved       Decision = "APPROVED"
	DecisionDenied         Decision = "DENIED"
	DecisionRequiresReview Decision = "REQUIRES_REVIEW"
	DecisionInvalid        Decision = "INVALID"
	DecisionError          Decision = "ERROR"
)

// ClaimRecord accumulates the fields produced by each pipeline stage.
// One record per run; created at pipeline entry, owned exclusively by the
// run that created it, and returned in a terminal state.
type ClaimRecord struct {
	// Input
	RawInput string `json:"raw_input"`

	// Parse stage
	ClaimID      string        `json:"claim_id,omitempty"`
	PolicyHolder string        `json:"policy_holder,omitempty"`
	VendorName   string        `json:"vendor_name,omitempty"`
	InvoiceItems []InvoiceItem `json:"invoice_items,omitempty"`
	ClaimAmount  float64       `json:"claim_amount,omitempty"`

	// Validate stage
	IsValid          *bool  `json:"is_valid,omitempty"`
	ValidationReason string `json:"validation_reason,omitempty"`

	// Query generation + retrieval stages
	PolicyQueries       []string `json:"policy_queries,omitempty"`
	RetrievedPolicyText string   `json:"retrieved_policy_text,omitempty"`

	// Recommendation stage
	Recommendation          Recommendation `json:"recommendation,omitempty"`
	RecommendationReasoning string         `json:"recommendation_reasoning,omitempty"`

	// Price check stage
	PriceCheckResult PriceCheckResult `json:"price_check_result,omitempty"`

	// Terminal stage (finalize or reject)
	FinalDecision  Decision `json:"final_decision,omitempty"`
	FinalReasoning string   `json:"final_reasoning,omitempty"`

	// Observability only, never used for branching
	CurrentStage string    `json:"current_stage"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at,omitempty"`
}

// NewClaimRecord creates a record holding only the raw input
func NewClaimRecord(rawInput string) *ClaimRecord {
	return &ClaimRecord{
		RawInput:     rawInput,
		CurrentStage: "initialized",
		StartedAt:    time.Now().UTC(),
	}
}

// Valid reports the validation verdict, treating a missing verdict as invalid
func (r *ClaimRecord) Valid() bool {
	return r.IsValid != nil && *r.IsValid
}

// SetValid records the validation verdict; the first verdict wins
func (r *ClaimRecord) SetValid(valid bool, reason string) {
	if r.IsValid != nil {
		return
	}
	r.IsValid = &valid
	r.ValidationReason = reason
}
