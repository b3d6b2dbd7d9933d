package clause

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clauselens/clauselens/internal/domain/contract"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Payment shall be made within thirty days of invoice.", "payment_terms"},
		{"In no event shall the aggregate liability exceed the fees paid; consequential damages are excluded.", "liability_limitation"},
		{"Supplier shall indemnify and hold harmless the customer from third-party claims.", "indemnification"},
		{"This Agreement shall be governed by the laws of the State of New York.", "governing_law"},
		{"Any dispute shall be finally settled by binding arbitration under the AAA rules.", "arbitration"},
		{"Neither party is liable for delays caused by force majeure or acts of god.", "force_majeure"},
		{"Each party shall keep confidential all proprietary information of the other.", "confidentiality_general"},
		{"Either party may terminate for cause upon a material breach by the other.", "termination_cause"},
		{"This agreement constitutes the entire agreement and supersedes all prior understandings.", "entire_agreement"},
		{"The quick brown fox jumps over the lazy dog.", CategoryGeneral},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, categorize(tt.text), "text=%q", tt.text)
	}
}

func TestCategorize_MultiWordPhrasesOutweighSingles(t *testing.T) {
	// "limitation of liability" (3 words, 6 points) beats the single
	// insurance keyword (2 points).
	got := categorize("The limitation of liability clause also references insurance.")
	assert.Equal(t, "liability_limitation", got)
}

func TestExtractKeyTerms(t *testing.T) {
	terms := extractKeyTerms("The fee is $5,000 plus 3% interest, payable within thirty (30) days.")
	require.Len(t, terms, 3)
	assert.Contains(t, terms, "$5,000")
	assert.Contains(t, terms, "3%")
	assert.Contains(t, terms, "thirty (30) days")
}

func TestExtractKeyTerms_Dedup(t *testing.T) {
	terms := extractKeyTerms("Pay $100 now and $100 later.")
	assert.Equal(t, []string{"$100"}, terms)
}

func TestExtractKeyTerms_None(t *testing.T) {
	assert.Empty(t, extractKeyTerms("No numbers or amounts appear in this clause."))
}

func TestExtractObligations(t *testing.T) {
	text := "The Contractor shall deliver the software and documentation. " +
		"The Client is required to provide timely access to its systems."

	obligations := extractObligations(text)
	require.Len(t, obligations, 2)
	assert.Contains(t, obligations[0], "Contractor shall deliver")
	assert.Contains(t, obligations[1], "Client is required to provide")
}

func TestExtractObligations_AgreesTo(t *testing.T) {
	obligations := extractObligations("Licensee agrees to pay all applicable royalties.")
	require.Len(t, obligations, 1)
	assert.Contains(t, obligations[0], "agrees to pay")
}

func TestExtractConditions(t *testing.T) {
	text := "If the Buyer fails to pay, Seller may suspend performance; " +
		"the Buyer shall cure within ten days unless waived in writing."

	conditions := extractConditions(text)
	require.Len(t, conditions, 2)
	assert.Contains(t, conditions[0], "If the Buyer fails to pay")
	assert.Contains(t, conditions[1], "unless waived in writing")
}

func TestExtractConditions_ProvidedThat(t *testing.T) {
	conditions := extractConditions("Renewal is automatic provided that neither party objects in writing.")
	require.Len(t, conditions, 1)
	assert.Contains(t, conditions[0], "provided that neither party objects")
}

func TestClassify_FillsAllFields(t *testing.T) {
	cl := &contract.Clause{
		ID:        "S1_C1",
		SectionID: "S1",
		Text:      "The Client shall pay a fee of $10,000 within 30 days, unless the invoice is disputed in good faith.",
	}
	NewClassifier().Classify(cl)

	assert.Equal(t, "payment_terms", cl.Category)
	assert.NotEmpty(t, cl.KeyTerms)
	assert.NotEmpty(t, cl.Obligations)
	assert.NotEmpty(t, cl.Conditions)
}

func TestClassify_NilClause(t *testing.T) {
	assert.NotPanics(t, func() { NewClassifier().Classify(nil) })
}
