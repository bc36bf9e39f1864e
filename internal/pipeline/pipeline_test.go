package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ppiankov/claimgate/internal/llm"
	"github.com/ppiankov/claimgate/internal/model"
)

// promptKind classifies a prompt by the stage that built it
func promptKind(prompt string) string {
	switch {
	case strings.Contains(prompt, "Parse the following insurance claim"):
		return "parse"
	case strings.Contains(prompt, "Determine if the following claim is valid"):
		return "validate"
	case strings.Contains(prompt, "Generate search queries"):
		return "queries"
	case strings.Contains(prompt, "adjudication recommendation"):
		return "recommend"
	case strings.Contains(prompt, "final decision for a claim"):
		return "finalize"
	default:
		return "unknown"
	}
}

// fakeProvider answers each stage from a canned response map; stages
// listed in failing return an error instead
type fakeProvider struct {
	responses map[string]string
	failing   map[string]bool
	prompts   []string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) IsAvailable(ctx context.Context) bool { return true }

func (f *fakeProvider) Complete(ctx context.Context, req llm.CompleteRequest) (*llm.CompleteResponse, error) {
	kind := promptKind(req.Prompt)
	f.prompts = append(f.prompts, kind)

	if f.failing[kind] {
		return nil, fmt.Errorf("fake %s outage", kind)
	}
	text, ok := f.responses[kind]
	if !ok {
		return nil, fmt.Errorf("no canned response for %s prompt", kind)
	}
	return &llm.CompleteResponse{Text: text, Model: "fake-model"}, nil
}

// fakeRetriever serves canned chunks per query
type fakeRetriever struct {
	chunks  map[string][]string
	failAll bool
	queries []string
}

func (f *fakeRetriever) Search(ctx context.Context, query string, topK int) ([]string, error) {
	f.queries = append(f.queries, query)
	if f.failAll {
		return nil, errors.New("store unavailable")
	}
	return f.chunks[query], nil
}

func goodResponses() map[string]string {
	return map[string]string{
		"parse":     `{"claim_id": "CLM-001", "policy_holder": "Jane Roe", "vendor_name": "Rapid Repairs LLC", "invoice_items": [{"item": "pipe replacement", "amount": 800}, {"item": "labor", "amount": 400}], "claim_amount": 1200}`,
		"validate":  `{"is_valid": true, "reason": ""}`,
		"queries":   `["water damage coverage", "vendor eligibility"]`,
		"recommend": `{"recommendation": "APPROVE", "reasoning": "covered peril, vendor eligible"}`,
		"finalize":  `{"final_decision": "APPROVED", "final_reasoning": "recommendation approved, amount within range"}`,
	}
}

func testConfig() *model.Config {
	cfg := model.DefaultConfig()
	cfg.Pipeline.StageTimeout = 0
	return cfg
}

func TestPipeline_ApprovedPath(t *testing.T) {
	provider := &fakeProvider{responses: goodResponses()}
	retriever := &fakeRetriever{chunks: map[string][]string{
		"water damage coverage": {"Section 4: water damage from burst pipes is covered."},
		"vendor eligibility":    {"Section 9: licensed vendors only."},
	}}

	p := New(provider, retriever, nil, testConfig(), nil)

	rec, err := p.Process(context.Background(), `{"claim_id": "CLM-001"}`)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if rec.CurrentStage != StageFinalized.String() {
		t.Errorf("expected stage finalized, got %s", rec.CurrentStage)
	}
	if rec.FinalDecision != model.DecisionApproved {
		t.Errorf("expected APPROVED, got %s", rec.FinalDecision)
	}
	if !rec.Valid() {
		t.Error("expected valid claim")
	}
	if rec.ClaimID != "CLM-001" || rec.ClaimAmount != 1200 {
		t.Errorf("parse fields not applied: %+v", rec)
	}
	if len(rec.PolicyQueries) != 2 {
		t.Errorf("expected 2 queries, got %v", rec.PolicyQueries)
	}
	if !strings.Contains(rec.RetrievedPolicyText, "burst pipes") ||
		!strings.Contains(rec.RetrievedPolicyText, "licensed vendors") {
		t.Errorf("retrieved text missing sections: %q", rec.RetrievedPolicyText)
	}
	if !strings.Contains(rec.RetrievedPolicyText, "\n\n---\n\n") {
		t.Errorf("query results not joined with separator: %q", rec.RetrievedPolicyText)
	}
	if rec.PriceCheckResult != model.PriceWithinNormalRange {
		t.Errorf("expected WITHIN_NORMAL_RANGE, got %s", rec.PriceCheckResult)
	}
	if rec.Recommendation != model.RecommendApprove {
		t.Errorf("expected APPROVE, got %s", rec.Recommendation)
	}
	if rec.CompletedAt.IsZero() {
		t.Error("expected completed timestamp")
	}
}

func TestPipeline_InvalidClaimRejected(t *testing.T) {
	responses := goodResponses()
	responses["parse"] = `{"claim_id": "CLM-002", "policy_holder": "John Doe", "vendor_name": "", "claim_amount": 500}`

	provider := &fakeProvider{responses: responses}
	retriever := &fakeRetriever{}

	p := New(provider, retriever, nil, testConfig(), nil)

	rec, err := p.Process(context.Background(), "{}")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if rec.CurrentStage != StageRejected.String() {
		t.Errorf("expected stage rejected, got %s", rec.CurrentStage)
	}
	if rec.FinalDecision != model.DecisionInvalid {
		t.Errorf("expected INVALID, got %s", rec.FinalDecision)
	}
	if !strings.Contains(rec.FinalReasoning, "vendor name is empty") {
		t.Errorf("reasoning should carry the validation reason, got %q", rec.FinalReasoning)
	}
	if rec.Valid() {
		t.Error("expected invalid claim")
	}

	// Nothing past the branch point should have run
	if len(rec.PolicyQueries) != 0 || rec.Recommendation != "" || rec.PriceCheckResult != "" {
		t.Errorf("post-validation stages ran on a rejected claim: %+v", rec)
	}
	if len(retriever.queries) != 0 {
		t.Errorf("retriever called on a rejected claim: %v", retriever.queries)
	}
}

func TestPipeline_HighAmountFlagged(t *testing.T) {
	responses := goodResponses()
	responses["parse"] = `{"claim_id": "CLM-003", "policy_holder": "Jane Roe", "vendor_name": "Rapid Repairs LLC", "claim_amount": 15000}`
	responses["finalize"] = `{"final_decision": "REQUIRES_REVIEW", "final_reasoning": "amount exceeds auto-approval threshold"}`

	provider := &fakeProvider{responses: responses}
	p := New(provider, &fakeRetriever{}, nil, testConfig(), nil)

	rec, err := p.Process(context.Background(), "{}")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if rec.PriceCheckResult != model.PriceHighAmountFlagged {
		t.Errorf("expected HIGH_AMOUNT_FLAGGED, got %s", rec.PriceCheckResult)
	}
	if rec.FinalDecision != model.DecisionRequiresReview {
		t.Errorf("expected REQUIRES_REVIEW, got %s", rec.FinalDecision)
	}
}

func TestPipeline_ParseOutageRejects(t *testing.T) {
	// Parse fails, so the derived fields stay unset and validation rejects
	provider := &fakeProvider{
		responses: goodResponses(),
		failing:   map[string]bool{"parse": true},
	}
	p := New(provider, &fakeRetriever{}, nil, testConfig(), nil)

	rec, err := p.Process(context.Background(), "{}")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if rec.CurrentStage != StageRejected.String() {
		t.Errorf("expected stage rejected, got %s", rec.CurrentStage)
	}
	if rec.FinalDecision != model.DecisionInvalid {
		t.Errorf("expected INVALID, got %s", rec.FinalDecision)
	}
}

func TestPipeline_CollaboratorOutageAfterValidation(t *testing.T) {
	// Queries, recommendation, and finalize all fail; the run must still
	// reach a terminal state with the documented sentinels
	provider := &fakeProvider{
		responses: goodResponses(),
		failing:   map[string]bool{"queries": true, "recommend": true, "finalize": true},
	}
	retriever := &fakeRetriever{}
	p := New(provider, retriever, nil, testConfig(), nil)

	rec, err := p.Process(context.Background(), "{}")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if rec.CurrentStage != StageFinalized.String() {
		t.Errorf("expected stage finalized, got %s", rec.CurrentStage)
	}
	if len(rec.PolicyQueries) != 0 {
		t.Errorf("expected empty query list, got %v", rec.PolicyQueries)
	}
	if len(retriever.queries) != 0 {
		t.Errorf("retriever should not be called with no queries: %v", retriever.queries)
	}
	if rec.Recommendation != model.RecommendError {
		t.Errorf("expected ERROR recommendation, got %s", rec.Recommendation)
	}
	if rec.RecommendationReasoning == "" {
		t.Error("expected error message in recommendation reasoning")
	}
	if rec.PriceCheckResult != model.PriceWithinNormalRange {
		t.Errorf("price check should still run, got %s", rec.PriceCheckResult)
	}
	if rec.FinalDecision != model.DecisionError {
		t.Errorf("expected ERROR decision, got %s", rec.FinalDecision)
	}
}

func TestPipeline_RetrieverOutageSkipsQueries(t *testing.T) {
	provider := &fakeProvider{responses: goodResponses()}
	retriever := &fakeRetriever{failAll: true}
	p := New(provider, retriever, nil, testConfig(), nil)

	rec, err := p.Process(context.Background(), "{}")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if rec.RetrievedPolicyText != "" {
		t.Errorf("expected empty policy text, got %q", rec.RetrievedPolicyText)
	}
	if len(retriever.queries) != 2 {
		t.Errorf("expected both queries attempted, got %v", retriever.queries)
	}
	// The run still terminates normally
	if rec.CurrentStage != StageFinalized.String() {
		t.Errorf("expected stage finalized, got %s", rec.CurrentStage)
	}
}

func TestPipeline_UnknownVerdictsSanitized(t *testing.T) {
	responses := goodResponses()
	responses["recommend"] = `{"recommendation": "MAYBE", "reasoning": "uncertain"}`
	responses["finalize"] = `{"final_decision": "ESCALATE", "final_reasoning": "send to human"}`

	provider := &fakeProvider{responses: responses}
	p := New(provider, &fakeRetriever{}, nil, testConfig(), nil)

	rec, err := p.Process(context.Background(), "{}")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if rec.Recommendation != model.RecommendUnknown {
		t.Errorf("expected UNKNOWN recommendation, got %s", rec.Recommendation)
	}
	if rec.FinalDecision != model.DecisionError {
		t.Errorf("expected ERROR decision, got %s", rec.FinalDecision)
	}
	if !strings.Contains(rec.FinalReasoning, `"ESCALATE"`) {
		t.Errorf("reasoning should name the unrecognized decision, got %q", rec.FinalReasoning)
	}
}

func TestPipeline_MaxQueriesClamped(t *testing.T) {
	responses := goodResponses()
	responses["queries"] = `["q1", "q2", "q3", "q4", "q5"]`

	provider := &fakeProvider{responses: responses}
	cfg := testConfig()
	cfg.Pipeline.MaxQueries = 3

	p := New(provider, &fakeRetriever{}, nil, cfg, nil)

	rec, err := p.Process(context.Background(), "{}")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(rec.PolicyQueries) != 3 {
		t.Errorf("expected 3 queries after clamping, got %v", rec.PolicyQueries)
	}
}

func TestPipeline_RunOnTerminalRecord(t *testing.T) {
	p := New(&fakeProvider{responses: goodResponses()}, &fakeRetriever{}, nil, testConfig(), nil)

	rec := model.NewClaimRecord("{}")
	rec.CurrentStage = StageFinalized.String()

	if err := p.Run(context.Background(), rec); !errors.Is(err, ErrTerminalState) {
		t.Errorf("expected ErrTerminalState, got %v", err)
	}
}

func TestPipeline_RunOnUnknownStage(t *testing.T) {
	p := New(&fakeProvider{responses: goodResponses()}, &fakeRetriever{}, nil, testConfig(), nil)

	rec := model.NewClaimRecord("{}")
	rec.CurrentStage = "somewhere"

	if err := p.Run(context.Background(), rec); !errors.Is(err, ErrUnknownStage) {
		t.Errorf("expected ErrUnknownStage, got %v", err)
	}
}

func TestPipeline_Cancellation(t *testing.T) {
	p := New(&fakeProvider{responses: goodResponses()}, &fakeRetriever{}, nil, testConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec, err := p.Process(ctx, "{}")
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if Stage(rec.CurrentStage).IsTerminal() {
		t.Errorf("cancelled run should not reach a terminal stage, got %s", rec.CurrentStage)
	}
}

func TestPipeline_NilProvider(t *testing.T) {
	// No provider configured: every completion stage degrades, the claim
	// is rejected by the local predicate on unset fields
	p := New(nil, &fakeRetriever{}, nil, testConfig(), nil)

	rec, err := p.Process(context.Background(), "{}")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if rec.FinalDecision != model.DecisionInvalid {
		t.Errorf("expected INVALID, got %s", rec.FinalDecision)
	}
}

func TestPipeline_LLMValidationFallsBack(t *testing.T) {
	// Model validation fails; the local predicate must still set a verdict
	provider := &fakeProvider{
		responses: goodResponses(),
		failing:   map[string]bool{"validate": true},
	}
	cfg := testConfig()
	cfg.Pipeline.LLMValidation = true

	p := New(provider, &fakeRetriever{}, nil, cfg, nil)

	rec, err := p.Process(context.Background(), "{}")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if rec.IsValid == nil {
		t.Fatal("expected a validation verdict")
	}
	if !rec.Valid() {
		t.Errorf("local predicate should accept the parsed claim: %q", rec.ValidationReason)
	}
	if rec.CurrentStage != StageFinalized.String() {
		t.Errorf("expected stage finalized, got %s", rec.CurrentStage)
	}
}
