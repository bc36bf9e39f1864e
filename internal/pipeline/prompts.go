package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/ppiankov/claimgate/internal/model"
)

// Prompt builders for the completion-service stages. Each instructs the
// model to answer with bare JSON; the extraction fallbacks in internal/llm
// handle models that wrap it anyway.

func buildParsePrompt(rawInput string) string {
	return fmt.Sprintf(`Parse the following insurance claim submission and extract key information.

Claim submission:
%s

Extract and return ONLY a JSON object with these fields:
- claim_id: The claim identifier
- policy_holder: Name of the policy holder
- vendor_name: The service provider/vendor name
- invoice_items: List of claimed items, each {"item": string, "amount": number}
- claim_amount: Total claim amount

Return ONLY valid JSON, no explanations.`, rawInput)
}

func buildValidatePrompt(rec *model.ClaimRecord) string {
	return fmt.Sprintf(`Determine if the following claim is valid.

Claim details:
- Claim ID: %s
- Policy Holder: %s
- Vendor: %s
- Amount: $%.2f

A claim is VALID if and only if:
1. The claim ID is present
2. The policy holder is identified
3. The vendor name is not empty
4. The claim amount is greater than 0

Return ONLY a JSON object:
{
  "is_valid": true/false,
  "reason": "explanation if invalid, empty string if valid"
}`, orNA(rec.ClaimID), orNA(rec.PolicyHolder), orNA(rec.VendorName), rec.ClaimAmount)
}

func buildQueriesPrompt(rec *model.ClaimRecord, maxQueries int) string {
	items, _ := json.Marshal(rec.InvoiceItems)
	return fmt.Sprintf(`Generate search queries to retrieve relevant policy information for a claim.

Claim details:
- Vendor: %s
- Items: %s
- Amount: $%.2f

Generate up to %d specific search queries to find relevant policy sections about:
- Coverage for these types of services
- Vendor requirements
- Claim amount limits

Return ONLY a JSON array of query strings:
["query 1", "query 2"]`, orNA(rec.VendorName), items, rec.ClaimAmount, maxQueries)
}

func buildRecommendationPrompt(rec *model.ClaimRecord, policyText string) string {
	items, _ := json.Marshal(rec.InvoiceItems)
	if policyText == "" {
		policyText = "(no relevant policy text retrieved)"
	}
	return fmt.Sprintf(`Based on the policy information and claim details, provide an adjudication recommendation.

Claim details:
- Claim ID: %s
- Vendor: %s
- Amount: $%.2f
- Items: %s

Relevant policy information:
%s

Analyze the claim against the policy and provide:
1. Recommendation: APPROVE or DENY
2. Reasoning: Detailed explanation

Return ONLY a JSON object:
{
  "recommendation": "APPROVE/DENY",
  "reasoning": "detailed explanation based on policy"
}`, orNA(rec.ClaimID), orNA(rec.VendorName), rec.ClaimAmount, items, policyText)
}

func buildFinalizePrompt(rec *model.ClaimRecord) string {
	return fmt.Sprintf(`Based on all information, provide the final decision for a claim.

Claim ID: %s
Initial Recommendation: %s
Recommendation Reasoning: %s
Price Check Result: %s

Provide a final decision considering:
1. Policy compliance
2. Price verification results
3. Any red flags

Return ONLY a JSON object:
{
  "final_decision": "APPROVED/DENIED/REQUIRES_REVIEW",
  "final_reasoning": "comprehensive explanation"
}`, orNA(rec.ClaimID), rec.Recommendation, rec.RecommendationReasoning, rec.PriceCheckResult)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
