package clause

import (
	"regexp"
	"sort"
	"strings"

	"github.com/clauselens/clauselens/internal/domain/contract"
)

// CategoryGeneral is assigned when no category reaches the score threshold.
const CategoryGeneral = "general"

// minCategoryScore is the minimum winning score for a specific category.
const minCategoryScore = 2

// categoryKeywords maps each clause category to its indicator phrases.  A
// matched phrase contributes 2 points per word it contains, so multi-word
// phrases dominate single keywords.
var categoryKeywords = map[string][]string{
	"payment_terms":            {"payment", "pay", "invoice", "fee", "compensation", "remuneration"},
	"payment_schedule":         {"installment", "due date", "payment schedule", "net 30", "net 60"},
	"late_payment":             {"late payment", "interest on overdue", "past due", "late fee"},
	"pricing":                  {"price", "pricing", "rate", "cost", "charges"},
	"taxes":                    {"tax", "withholding", "vat", "sales tax", "duties"},
	"termination_cause":        {"terminate for cause", "material breach", "termination for cause", "event of default"},
	"termination_convenience":  {"terminate for convenience", "without cause", "termination for convenience"},
	"termination_notice":       {"notice of termination", "terminate upon notice", "days notice"},
	"term_duration":            {"initial term", "renewal term", "term of this agreement", "effective date", "expiration"},
	"renewal":                  {"automatic renewal", "renew", "extension of the term"},
	"liability_limitation":     {"limitation of liability", "in no event", "aggregate liability", "liability cap", "consequential damages"},
	"indemnification":          {"indemnify", "indemnification", "hold harmless", "defend"},
	"warranty_general":         {"warrant", "warranty", "as is", "merchantability", "fitness for a particular purpose"},
	"warranty_disclaimer":      {"disclaims all warranties", "without warranty", "disclaimer of warranties"},
	"insurance":                {"insurance", "coverage", "insured", "policy limits"},
	"ip_ownership":             {"intellectual property", "ownership of", "work product", "title to", "all rights"},
	"ip_license":               {"license", "licensed", "right to use", "sublicense"},
	"ip_infringement":          {"infringement", "infringe", "misappropriation"},
	"confidentiality_general":  {"confidential", "confidentiality", "non-disclosure", "proprietary information"},
	"confidentiality_duration": {"survive termination", "confidentiality obligations shall survive", "period of confidentiality"},
	"data_protection":          {"personal data", "data protection", "privacy", "gdpr", "data processing"},
	"non_compete":              {"non-compete", "noncompete", "compete with", "competitive business"},
	"non_solicitation":         {"non-solicitation", "solicit", "hire or engage"},
	"dispute_general":          {"dispute", "controversy", "claim arising"},
	"arbitration":              {"arbitration", "arbitrator", "arbitral"},
	"mediation":                {"mediation", "mediator"},
	"litigation":               {"court", "litigation", "jury trial", "venue"},
	"governing_law":            {"governing law", "governed by the laws", "laws of the state"},
	"jurisdiction":             {"jurisdiction", "exclusive jurisdiction", "submit to the courts"},
	"force_majeure":            {"force majeure", "act of god", "beyond the reasonable control"},
	"assignment_general":       {"assign", "assignment", "transfer of rights"},
	"subcontracting":           {"subcontract", "subcontractor", "delegate"},
	"amendment":                {"amendment", "amend", "modification", "modified only in writing"},
	"waiver":                   {"waiver", "waive", "no waiver"},
	"severability":             {"severability", "severable", "held invalid"},
	"entire_agreement":         {"entire agreement", "supersedes all prior", "integration"},
	"notices":                  {"notice", "notify", "written notice", "certified mail"},
	"representations":          {"represents", "representation", "represents and warrants"},
	"compliance_law":           {"comply with", "compliance with applicable", "applicable laws", "regulations"},
	"audit_rights":             {"audit", "inspect", "books and records"},
	"delivery_acceptance":      {"delivery", "deliver", "acceptance", "inspection period"},
}

var (
	// Key-term extraction: monetary amounts, percentages, durations.
	reCurrency = regexp.MustCompile(`(?i)(?:\$|USD|EUR|GBP|€|£)\s?\d[\d,]*(?:\.\d+)?(?:\s?(?:million|billion|thousand))?`)
	rePercent  = regexp.MustCompile(`\d+(?:\.\d+)?\s?(?:%|percent)`)
	reDuration = regexp.MustCompile(`(?i)\b(?:\d+|one|two|three|five|ten|thirty|sixty|ninety)\s?(?:\([0-9]+\)\s?)?(?:business\s+)?(?:day|week|month|year)s?\b`)

	// Obligation extraction: "X shall/must/will/agrees to ..." and
	// "X is/are required/obligated to ...".  The subject must start with a
	// capitalized word, so these stay case-sensitive.
	reObligationModal  = regexp.MustCompile(`\b([A-Z][\w']*(?:\s+[\w']+){0,4}?\s+(?:shall|must|will|agrees?\s+to)\s+[^.;]+)`)
	reObligationStatus = regexp.MustCompile(`\b([A-Z][\w']*(?:\s+[\w']+){0,4}?\s+(?:is|are)\s+(?:required|obligated)\s+to\s+[^.;]+)`)

	// Condition extraction: conditional connector up to the end of its
	// sentence.
	reCondition = regexp.MustCompile(`(?i)\b((?:if|provided\s+that|subject\s+to|unless|in\s+the\s+event\s+(?:that|of))\b[^.;]+)`)
)

// categoryOrder fixes iteration order so scoring ties resolve
// deterministically.
var categoryOrder = sortedCategories()

func sortedCategories() []string {
	cats := make([]string, 0, len(categoryKeywords))
	for c := range categoryKeywords {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats
}

// Classifier assigns a category to each clause and extracts its key terms,
// obligations and conditions.  Risk classification is a separate concern.
type Classifier struct{}

// NewClassifier returns a clause Classifier.
func NewClassifier() *Classifier { return &Classifier{} }

// Classify fills the clause's Category, KeyTerms, Obligations and Conditions
// fields in place.
func (c *Classifier) Classify(cl *contract.Clause) {
	if cl == nil {
		return
	}
	cl.Category = categorize(cl.Text)
	cl.KeyTerms = extractKeyTerms(cl.Text)
	cl.Obligations = extractObligations(cl.Text)
	cl.Conditions = extractConditions(cl.Text)
}

// categorize scores every category's keyword list against the clause text and
// returns the winner, or "general" when no category scores high enough.
func categorize(text string) string {
	lower := strings.ToLower(text)

	best := CategoryGeneral
	bestScore := 0
	for _, cat := range categoryOrder {
		score := 0
		for _, kw := range categoryKeywords[cat] {
			if strings.Contains(lower, kw) {
				score += 2 * len(strings.Fields(kw))
			}
		}
		if score > bestScore {
			bestScore = score
			best = cat
		}
	}
	if bestScore < minCategoryScore {
		return CategoryGeneral
	}
	return best
}

// extractKeyTerms pulls monetary amounts, percentages and durations from the
// clause, deduplicated in order of first appearance.
func extractKeyTerms(text string) []string {
	var out []string
	seen := map[string]bool{}
	for _, re := range []*regexp.Regexp{reCurrency, rePercent, reDuration} {
		for _, m := range re.FindAllString(text, -1) {
			m = strings.TrimSpace(m)
			key := strings.ToLower(m)
			if !seen[key] {
				seen[key] = true
				out = append(out, m)
			}
		}
	}
	return out
}

// extractObligations collects the duty-bearing statements in the clause.
func extractObligations(text string) []string {
	var out []string
	seen := map[string]bool{}
	for _, re := range []*regexp.Regexp{reObligationModal, reObligationStatus} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			ob := strings.TrimSpace(m[1])
			key := strings.ToLower(ob)
			if ob != "" && !seen[key] {
				seen[key] = true
				out = append(out, ob)
			}
		}
	}
	return out
}

// extractConditions collects the conditional phrases in the clause.
func extractConditions(text string) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range reCondition.FindAllStringSubmatch(text, -1) {
		cond := strings.TrimSpace(m[1])
		key := strings.ToLower(cond)
		if cond != "" && !seen[key] {
			seen[key] = true
			out = append(out, cond)
		}
	}
	return out
}
