package utils

import "math"

// MandateInput carries the RFQ payload fields that feed the completeness score.
type MandateInput struct {
	KeySpecs           string
	DeliveryCountry    string
	ConditionTolerance string
	BusinessGoal       string
	RiskTolerance      string
	BudgetConfidence   string
}

const mandateCheckCount = 6

// MandateScore computes the mandate-completeness score (0-100) from six
// deterministic checks. It is computed once at RFQ creation and stored;
// later edits never recompute it.
func MandateScore(in MandateInput) int {
	passed := 0
	if len(in.KeySpecs) >= 10 {
		passed++
	}
	if len(in.DeliveryCountry) >= 2 {
		passed++
	}
	if len(in.ConditionTolerance) >= 3 {
		passed++
	}
	if len(in.BusinessGoal) >= 5 {
		passed++
	}
	if in.RiskTolerance != "" {
		passed++
	}
	if in.BudgetConfidence != "" {
		passed++
	}
	return int(math.Round(100 * float64(passed) / mandateCheckCount))
}
