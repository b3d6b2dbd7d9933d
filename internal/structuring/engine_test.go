package structuring

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clauselens/clauselens/internal/domain/contract"
	"github.com/clauselens/clauselens/internal/structuring/common"
)

func newEngine() *Engine {
	return NewEngine(Options{Metrics: common.NewInMemoryMetrics()})
}

func structure(t *testing.T, text string) *contract.StructuredDocument {
	t.Helper()
	doc, err := newEngine().StructureDocument(context.Background(), text, contract.DocumentMetadata{Filename: "test.txt"})
	require.NoError(t, err)
	require.NotNil(t, doc)
	return doc
}

const sampleContract = "ARTICLE I Definitions\n" +
	"\"Agreement\" means this services agreement between the parties.\n\n" +
	"ARTICLE II Payment\n" +
	"1. Invoicing\n" +
	"The Client shall pay each invoice within thirty days of receipt.\n\n" +
	"ARTICLE III Termination\n" +
	"Either party may terminate this agreement upon sixty days written notice."

func TestStructureDocument_Idempotent(t *testing.T) {
	first := structure(t, sampleContract)
	second := structure(t, sampleContract)
	assert.Equal(t, first, second)
}

func TestStructureDocument_Coverage(t *testing.T) {
	inputs := []string{
		sampleContract,
		"This is a short contract.",
		"zzz qqq www",
		"The parties agree to everything herein.",
	}
	for _, text := range inputs {
		doc := structure(t, text)
		assert.GreaterOrEqual(t, len(doc.Sections), 1, "text=%q", text)
		assert.GreaterOrEqual(t, len(doc.Clauses), 1, "text=%q", text)
	}
}

func TestStructureDocument_CategoryAndRiskTotal(t *testing.T) {
	doc := structure(t, sampleContract)
	for _, cl := range doc.Clauses {
		assert.NotEmpty(t, cl.Category, "clause %s", cl.ID)
		assert.Contains(t, []contract.RiskLevel{
			contract.RiskLow, contract.RiskMedium, contract.RiskHigh,
		}, cl.Risk, "clause %s", cl.ID)
	}
}

func TestStructureDocument_FlatListSharesReferences(t *testing.T) {
	doc := structure(t, sampleContract)

	bySections := map[*contract.Clause]bool{}
	for _, sec := range doc.Sections {
		for _, cl := range sec.Clauses {
			bySections[cl] = true
		}
	}
	require.Len(t, doc.Clauses, len(bySections))
	for _, cl := range doc.Clauses {
		assert.True(t, bySections[cl], "flat clause %s not shared with a section", cl.ID)
	}
}

func TestStructureDocument_HierarchySoundness(t *testing.T) {
	doc := structure(t, sampleContract)

	position := map[string]int{}
	byID := map[string]*contract.Section{}
	for i, sec := range doc.Sections {
		position[sec.ID] = i
		byID[sec.ID] = sec
	}
	for _, sec := range doc.Sections {
		if sec.ParentID == "" {
			continue
		}
		parent, ok := byID[sec.ParentID]
		require.True(t, ok, "section %s has unknown parent %s", sec.ID, sec.ParentID)
		assert.Less(t, parent.Level, sec.Level)
		assert.Less(t, position[parent.ID], position[sec.ID])
	}
}

func TestStructureDocument_MergeLocality(t *testing.T) {
	text := "1. Payment is due within thirty days of receipt of invoice. " +
		"2. provided that the invoice is undisputed and correct."

	doc := structure(t, text)

	var merged *contract.Clause
	for _, cl := range doc.Clauses {
		assert.NotContains(t, strings.ToLower(cl.Text[:8]), "provided",
			"continuation clause %s survived unmerged", cl.ID)
		if cl.Merged {
			merged = cl
		}
	}
	require.NotNil(t, merged)
	assert.Equal(t, merged.SectionID+"_C1", merged.ID)
	assert.Contains(t, merged.Text, "thirty days")
	assert.Contains(t, merged.Text, "undisputed")
}

func TestStructureDocument_NumberedExample(t *testing.T) {
	text := "1. Payment shall be made within 30 days. " +
		"2. Either party may terminate with 30 days notice."

	doc := structure(t, text)
	require.GreaterOrEqual(t, len(doc.Clauses), 2)

	var paymentSeen, terminationSeen bool
	for _, cl := range doc.Clauses {
		if strings.Contains(cl.Category, "payment") {
			paymentSeen = true
		}
		if strings.Contains(cl.Category, "termination") {
			terminationSeen = true
		}
		assert.Contains(t, []contract.RiskLevel{contract.RiskLow, contract.RiskMedium}, cl.Risk)
	}
	assert.True(t, paymentSeen)
	assert.True(t, terminationSeen)
}

func TestStructureDocument_SingleSentenceExample(t *testing.T) {
	doc := structure(t, "This is a short contract.")

	require.Len(t, doc.Sections, 1)
	require.Len(t, doc.Clauses, 1)
	assert.Equal(t, "general", doc.Clauses[0].Category)
}

func TestStructureDocument_HighRiskFallbackExample(t *testing.T) {
	doc := structure(t, "The vendor assumes unlimited liability for all damages arising from its performance.")

	require.GreaterOrEqual(t, len(doc.Clauses), 1)
	assert.Equal(t, contract.RiskHigh, doc.Clauses[0].Risk)
}

func TestStructureDocument_EmptyInput(t *testing.T) {
	doc := structure(t, "")

	require.Len(t, doc.Sections, 1)
	assert.Empty(t, doc.Clauses)
	assert.Equal(t, contract.SectionTypeGeneral, doc.Sections[0].Type)
}

func TestStructureDocument_SectionFlags(t *testing.T) {
	doc := structure(t, "The Supplier shall deliver all goods by the first of each month, unless a holiday intervenes.")

	require.GreaterOrEqual(t, len(doc.Sections), 1)
	sec := doc.Sections[0]
	assert.True(t, sec.ContainsObligations)
	assert.True(t, sec.ContainsConditions)
}

func TestStructureDocument_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc, err := newEngine().StructureDocument(ctx, sampleContract, contract.DocumentMetadata{})
	assert.Nil(t, doc)
	assert.Error(t, err)
}

func TestStructureDocument_MetadataCarriedThrough(t *testing.T) {
	meta := contract.DocumentMetadata{Filename: "msa.pdf", PageCount: 12, ContractType: "services"}
	doc, err := newEngine().StructureDocument(context.Background(), sampleContract, meta)
	require.NoError(t, err)
	assert.Equal(t, meta, doc.Metadata)
}
