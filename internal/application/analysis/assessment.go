package analysis

import (
	"strings"

	"github.com/clauselens/clauselens/internal/domain/contract"
)

// Clause-risk weights and aggregate thresholds.  Carried over from the
// reference behavior; empirically tuned.
const (
	weightMedium   = 0.3
	weightHigh     = 0.7
	weightCritical = 1.0

	thresholdCritical = 0.7
	thresholdHigh     = 0.5
	thresholdMedium   = 0.3
)

// riskFactorTerms maps clause-text markers to human-readable risk factors.
var riskFactorTerms = []struct {
	term   string
	factor string
}{
	{"unlimited liability", "contains unlimited liability exposure"},
	{"personal guarantee", "requires a personal guarantee"},
	{"liquidated damages", "imposes liquidated damages"},
	{"penalty", "imposes contractual penalties"},
	{"indemnif", "contains indemnification obligations"},
	{"limitation of liability", "limits the counterparty's liability"},
}

// BuildRiskAssessment aggregates per-clause risk into a contract-level
// assessment.  This is the only producer of the "critical" level.
func BuildRiskAssessment(doc *contract.StructuredDocument) *contract.RiskAssessment {
	assessment := &contract.RiskAssessment{Level: contract.RiskLow}
	if doc == nil || len(doc.Clauses) == 0 {
		return assessment
	}

	weighted := 0.0
	for _, cl := range doc.Clauses {
		switch cl.Risk {
		case contract.RiskMedium:
			assessment.MediumCount++
			weighted += weightMedium
		case contract.RiskHigh:
			assessment.HighRiskCount++
			weighted += weightHigh
		case contract.RiskCritical:
			// Defensive only: the clause classifier never emits critical.
			assessment.HighRiskCount++
			weighted += weightCritical
		default:
			assessment.LowRiskCount++
		}
	}
	assessment.TotalClauses = len(doc.Clauses)
	assessment.Score = weighted / float64(assessment.TotalClauses)

	switch {
	case assessment.Score >= thresholdCritical:
		assessment.Level = contract.RiskCritical
	case assessment.Score >= thresholdHigh:
		assessment.Level = contract.RiskHigh
	case assessment.Score >= thresholdMedium:
		assessment.Level = contract.RiskMedium
	default:
		assessment.Level = contract.RiskLow
	}

	assessment.Factors = collectFactors(doc.Clauses)
	assessment.Recommendations = recommend(assessment)
	return assessment
}

// collectFactors derives risk factors from the text of elevated-risk clauses.
func collectFactors(clauses []*contract.Clause) []string {
	var factors []string
	seen := map[string]bool{}
	for _, cl := range clauses {
		if cl.Risk != contract.RiskHigh && cl.Risk != contract.RiskMedium {
			continue
		}
		lower := strings.ToLower(cl.Text)
		for _, ft := range riskFactorTerms {
			if strings.Contains(lower, ft.term) && !seen[ft.factor] {
				seen[ft.factor] = true
				factors = append(factors, ft.factor)
			}
		}
	}
	return factors
}

// recommend produces canned mitigation guidance for the assessed level.
func recommend(a *contract.RiskAssessment) []string {
	var recs []string
	switch a.Level {
	case contract.RiskCritical:
		recs = append(recs,
			"Obtain legal review before execution",
			"Negotiate caps on liability and damages")
	case contract.RiskHigh:
		recs = append(recs,
			"Review high-risk clauses with counsel",
			"Consider adding a limitation of liability clause")
	case contract.RiskMedium:
		recs = append(recs,
			"Review flagged clauses before signing")
	}
	if a.HighRiskCount > 0 {
		recs = append(recs, "Prioritize renegotiation of the highest-risk clauses")
	}
	return recs
}
