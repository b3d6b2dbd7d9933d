package sectionizer

import (
	"strings"

	"github.com/clauselens/clauselens/internal/domain/contract"
)

// groupKeywords maps each semantic bucket to its indicator keywords.
// Title matches count 3x, body matches 1x; the highest-scoring bucket wins
// and miscellaneous is the default.
var groupKeywords = map[contract.SemanticGroup][]string{
	contract.GroupContractFormation: {
		"recital", "whereas", "background", "parties", "effective date",
		"execution", "witnesseth", "now therefore",
	},
	contract.GroupDefinitions: {
		"definition", "defined terms", "interpretation", "meaning", "construe",
	},
	contract.GroupCoreTerms: {
		"scope", "services", "deliverables", "performance", "obligations",
		"term of agreement", "duties", "responsibilities", "work",
	},
	contract.GroupFinancial: {
		"payment", "fee", "price", "compensation", "invoice", "expense",
		"tax", "interest", "refund", "royalty",
	},
	contract.GroupLegalCompliance: {
		"compliance", "law", "regulation", "governing law", "legal",
		"anti-corruption", "export", "sanction", "permit",
	},
	contract.GroupRiskManagement: {
		"liability", "indemnif", "limitation", "insurance", "warranty",
		"disclaimer", "damages", "risk", "force majeure",
	},
	contract.GroupIPConfidentiality: {
		"intellectual property", "confidential", "proprietary", "trade secret",
		"copyright", "patent", "trademark", "license", "non-disclosure",
	},
	contract.GroupContractManagement: {
		"amendment", "assignment", "notice", "waiver", "severability",
		"entire agreement", "counterparts", "survival", "modification",
	},
	contract.GroupDisputeResolution: {
		"dispute", "arbitration", "mediation", "jurisdiction", "venue",
		"litigation", "attorney", "remedy", "injunctive",
	},
	contract.GroupMiscellaneous: {
		"miscellaneous", "general provisions", "other",
	},
}

// bodyScanLimit bounds how much of the section body participates in group
// scoring; titles carry most of the signal.
const bodyScanLimit = 200

// classifySemanticGroup scores the title and the first part of the body
// against every bucket and returns the winner.
func classifySemanticGroup(title, content string) contract.SemanticGroup {
	titleLower := strings.ToLower(title)
	bodyLower := strings.ToLower(content)
	if len(bodyLower) > bodyScanLimit {
		bodyLower = bodyLower[:bodyScanLimit]
	}

	best := contract.GroupMiscellaneous
	bestScore := 0
	for _, group := range groupOrder {
		score := 0
		for _, kw := range groupKeywords[group] {
			if strings.Contains(titleLower, kw) {
				score += 3
			}
			if strings.Contains(bodyLower, kw) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = group
		}
	}
	return best
}

// groupOrder fixes the iteration order so scoring ties resolve
// deterministically.
var groupOrder = []contract.SemanticGroup{
	contract.GroupContractFormation,
	contract.GroupDefinitions,
	contract.GroupCoreTerms,
	contract.GroupFinancial,
	contract.GroupLegalCompliance,
	contract.GroupRiskManagement,
	contract.GroupIPConfidentiality,
	contract.GroupContractManagement,
	contract.GroupDisputeResolution,
	contract.GroupMiscellaneous,
}
