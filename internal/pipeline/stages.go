package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/claimgate/internal/llm"
	"github.com/ppiankov/claimgate/internal/model"
)

// policySeparator joins retrieval results across queries, in query order
const policySeparator = "\n\n---\n\n"

// chunkSeparator joins the chunks returned for a single query
const chunkSeparator = "\n\n"

// parseClaim extracts structured fields from the raw submission via the
// completion service. On any failure the derived fields stay unset and
// validation rejects the claim for missing fields.
func (p *Pipeline) parseClaim(ctx context.Context, rec *model.ClaimRecord) {
	text, err := p.complete(ctx, buildParsePrompt(rec.RawInput))
	if err != nil {
		p.logger.Warn("parse stage degraded", zap.Error(err))
		return
	}

	var parsed struct {
		ClaimID      string              `json:"claim_id"`
		PolicyHolder string              `json:"policy_holder"`
		VendorName   string              `json:"vendor_name"`
		InvoiceItems []model.InvoiceItem `json:"invoice_items"`
		ClaimAmount  float64             `json:"claim_amount"`
	}
	if err := llm.DecodeJSON(text, &parsed); err != nil {
		p.logger.Warn("parse stage degraded", zap.Error(err))
		return
	}

	rec.ClaimID = parsed.ClaimID
	rec.PolicyHolder = parsed.PolicyHolder
	rec.VendorName = parsed.VendorName
	rec.InvoiceItems = parsed.InvoiceItems
	rec.ClaimAmount = parsed.ClaimAmount
}

// validatePredicate is the validity rule: all identity fields present and
// a positive claim amount. Reason is empty iff the claim is valid.
func validatePredicate(rec *model.ClaimRecord) (bool, string) {
	var problems []string
	if rec.ClaimID == "" {
		problems = append(problems, "claim ID is missing")
	}
	if rec.PolicyHolder == "" {
		problems = append(problems, "policy holder is not identified")
	}
	if rec.VendorName == "" {
		problems = append(problems, "vendor name is empty")
	}
	if rec.ClaimAmount <= 0 {
		problems = append(problems, "claim amount must be greater than 0")
	}

	if len(problems) > 0 {
		return false, strings.Join(problems, "; ")
	}
	return true, ""
}

// validateClaim sets the validation verdict. The rule is deterministic, so
// it is evaluated locally by default; with LLMValidation enabled the model
// is asked to apply the same rule, falling back to the local predicate on
// any collaborator failure. Either way the verdict is always set.
func (p *Pipeline) validateClaim(ctx context.Context, rec *model.ClaimRecord) {
	if p.cfg.Pipeline.LLMValidation && p.provider != nil {
		text, err := p.complete(ctx, buildValidatePrompt(rec))
		if err == nil {
			var verdict struct {
				IsValid bool   `json:"is_valid"`
				Reason  string `json:"reason"`
			}
			if err := llm.DecodeJSON(text, &verdict); err == nil {
				if !verdict.IsValid && verdict.Reason == "" {
					verdict.Reason = "claim failed validation"
				}
				rec.SetValid(verdict.IsValid, verdict.Reason)
				return
			}
		}
		p.logger.Warn("model validation degraded, applying local rule", zap.Error(err))
	}

	valid, reason := validatePredicate(rec)
	rec.SetValid(valid, reason)
}

// generateQueries produces up to MaxQueries policy search queries. An
// empty list is a valid outcome; retrieval then trivially yields nothing.
func (p *Pipeline) generateQueries(ctx context.Context, rec *model.ClaimRecord) {
	rec.PolicyQueries = []string{}

	text, err := p.complete(ctx, buildQueriesPrompt(rec, p.cfg.Pipeline.MaxQueries))
	if err != nil {
		p.logger.Warn("query generation degraded", zap.Error(err))
		return
	}

	queries, err := decodeQueries(text)
	if err != nil {
		p.logger.Warn("query generation degraded", zap.Error(err))
		return
	}

	if max := p.cfg.Pipeline.MaxQueries; max > 0 && len(queries) > max {
		queries = queries[:max]
	}
	rec.PolicyQueries = queries
}

// decodeQueries accepts either a bare JSON array or {"queries": [...]}
func decodeQueries(text string) ([]string, error) {
	var queries []string
	if err := llm.DecodeJSON(text, &queries); err == nil {
		return nonEmpty(queries), nil
	}

	var wrapped struct {
		Queries []string `json:"queries"`
	}
	if err := llm.DecodeJSON(text, &wrapped); err != nil {
		return nil, err
	}
	return nonEmpty(wrapped.Queries), nil
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// retrievePolicy fetches topK matches per query and concatenates the
// non-empty results in query order. Failed or empty lookups are skipped,
// never treated as errors.
func (p *Pipeline) retrievePolicy(ctx context.Context, rec *model.ClaimRecord) {
	rec.RetrievedPolicyText = ""

	if p.retriever == nil || len(rec.PolicyQueries) == 0 {
		return
	}

	var sections []string
	for _, query := range rec.PolicyQueries {
		chunks, err := p.retriever.Search(ctx, query, p.topK)
		if err != nil {
			p.logger.Warn("policy retrieval degraded for query",
				zap.String("query", query), zap.Error(err))
			continue
		}
		if text := strings.TrimSpace(strings.Join(chunks, chunkSeparator)); text != "" {
			sections = append(sections, text)
		}
	}

	rec.RetrievedPolicyText = strings.Join(sections, policySeparator)
}

// generateRecommendation asks the completion service for an adjudication
// verdict using at most PolicyContextLimit characters of policy text.
func (p *Pipeline) generateRecommendation(ctx context.Context, rec *model.ClaimRecord) {
	policyText := rec.RetrievedPolicyText
	if limit := p.cfg.Pipeline.PolicyContextLimit; limit > 0 && len(policyText) > limit {
		policyText = policyText[:limit]
	}

	text, err := p.complete(ctx, buildRecommendationPrompt(rec, policyText))
	if err != nil {
		rec.Recommendation = model.RecommendError
		rec.RecommendationReasoning = err.Error()
		p.logger.Warn("recommendation stage degraded", zap.Error(err))
		return
	}

	var result struct {
		Recommendation string `json:"recommendation"`
		Reasoning      string `json:"reasoning"`
	}
	if err := llm.DecodeJSON(text, &result); err != nil {
		rec.Recommendation = model.RecommendError
		rec.RecommendationReasoning = err.Error()
		p.logger.Warn("recommendation stage degraded", zap.Error(err))
		return
	}

	switch strings.ToUpper(strings.TrimSpace(result.Recommendation)) {
	case string(model.RecommendApprove):
		rec.Recommendation = model.RecommendApprove
	case string(model.RecommendDeny):
		rec.Recommendation = model.RecommendDeny
	default:
		rec.Recommendation = model.RecommendUnknown
	}
	rec.RecommendationReasoning = result.Reasoning
}

// CheckPrice is the deterministic price verification rule: amounts strictly
// above the threshold are flagged, the threshold itself is within range.
func CheckPrice(amount, threshold float64) model.PriceCheckResult {
	if amount > threshold {
		return model.PriceHighAmountFlagged
	}
	return model.PriceWithinNormalRange
}

// priceCheck applies CheckPrice to the record; no collaborator involved
func (p *Pipeline) priceCheck(rec *model.ClaimRecord) {
	rec.PriceCheckResult = CheckPrice(rec.ClaimAmount, p.cfg.Pipeline.HighAmountThreshold)
	if rec.PriceCheckResult == model.PriceHighAmountFlagged {
		p.logger.Warn("high claim amount flagged",
			zap.String("claim_id", rec.ClaimID),
			zap.Float64("amount", rec.ClaimAmount))
	}
}

// finalizeDecision combines the recommendation and the price check flag
// into the terminal decision via the completion service.
func (p *Pipeline) finalizeDecision(ctx context.Context, rec *model.ClaimRecord) {
	text, err := p.complete(ctx, buildFinalizePrompt(rec))
	if err != nil {
		rec.FinalDecision = model.DecisionError
		rec.FinalReasoning = err.Error()
		p.logger.Warn("finalize stage degraded", zap.Error(err))
		return
	}

	var result struct {
		FinalDecision  string `json:"final_decision"`
		FinalReasoning string `json:"final_reasoning"`
	}
	if err := llm.DecodeJSON(text, &result); err != nil {
		rec.FinalDecision = model.DecisionError
		rec.FinalReasoning = err.Error()
		p.logger.Warn("finalize stage degraded", zap.Error(err))
		return
	}

	switch strings.ToUpper(strings.TrimSpace(result.FinalDecision)) {
	case string(model.DecisionApproved):
		rec.FinalDecision = model.DecisionApproved
	case string(model.DecisionDenied):
		rec.FinalDecision = model.DecisionDenied
	case string(model.DecisionRequiresReview):
		rec.FinalDecision = model.DecisionRequiresReview
	default:
		rec.FinalDecision = model.DecisionError
		rec.FinalReasoning = fmt.Sprintf("unrecognized final decision %q", result.FinalDecision)
		return
	}
	rec.FinalReasoning = result.FinalReasoning
}

// rejectClaim is the invalid-claim terminal: a deterministic copy of the
// validation reason, no collaborator call.
func (p *Pipeline) rejectClaim(rec *model.ClaimRecord) {
	rec.FinalDecision = model.DecisionInvalid
	rec.FinalReasoning = rec.ValidationReason
}
