package clause

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clauselens/clauselens/internal/domain/contract"
)

func clauseFor(id, sectionID, text string) *contract.Clause {
	return &contract.Clause{
		ID:            id,
		SectionID:     sectionID,
		Text:          text,
		WordCount:     len(strings.Fields(text)),
		SentenceCount: 1,
	}
}

func TestMerge_ContinuationFoldsIntoPredecessor(t *testing.T) {
	clauses := []*contract.Clause{
		clauseFor("S1_C1", "S1", "Payment is due within thirty days of invoice."),
		clauseFor("S1_C2", "S1", "provided that the invoice is not disputed."),
	}

	got := NewMerger().Merge(clauses)
	require.Len(t, got, 1)
	assert.Equal(t, "S1_C1", got[0].ID)
	assert.True(t, got[0].Merged)
	assert.Contains(t, got[0].Text, "thirty days of invoice. provided that")
	assert.Equal(t, len(strings.Fields(got[0].Text)), got[0].WordCount)
	assert.Equal(t, 2, got[0].SentenceCount)
}

func TestMerge_AllConnectors(t *testing.T) {
	for _, connector := range []string{
		"provided that", "however", "notwithstanding", "subject to", "unless", "except",
	} {
		clauses := []*contract.Clause{
			clauseFor("S1_C1", "S1", "The license is perpetual and worldwide."),
			clauseFor("S1_C2", "S1", connector+" the foregoing applies only during the term."),
		}
		got := NewMerger().Merge(clauses)
		assert.Len(t, got, 1, "connector=%q", connector)
	}
}

func TestMerge_NoConnectorNoMerge(t *testing.T) {
	clauses := []*contract.Clause{
		clauseFor("S1_C1", "S1", "Payment is due within thirty days."),
		clauseFor("S1_C2", "S1", "The agreement renews automatically each year."),
	}

	got := NewMerger().Merge(clauses)
	require.Len(t, got, 2)
	assert.False(t, got[0].Merged)
	assert.False(t, got[1].Merged)
}

func TestMerge_NeverCrossesSections(t *testing.T) {
	clauses := []*contract.Clause{
		clauseFor("S1_C1", "S1", "Confidentiality obligations survive termination."),
		clauseFor("S2_C1", "S2", "however the receiving party may retain one archival copy."),
	}

	got := NewMerger().Merge(clauses)
	assert.Len(t, got, 2)
}

func TestMerge_LengthCap(t *testing.T) {
	long := strings.Repeat("The obligations described herein remain in effect. ", 12) // > 500 chars

	clauses := []*contract.Clause{
		clauseFor("S1_C1", "S1", long),
		clauseFor("S1_C2", "S1", "provided that either party may renegotiate."),
	}
	got := NewMerger().Merge(clauses)
	assert.Len(t, got, 2)

	clauses = []*contract.Clause{
		clauseFor("S1_C1", "S1", "Short lead-in clause applies."),
		clauseFor("S1_C2", "S1", "provided that this oversized continuation stays separate. "+long),
	}
	got = NewMerger().Merge(clauses)
	assert.Len(t, got, 2)
}

func TestMerge_ChainedContinuations(t *testing.T) {
	clauses := []*contract.Clause{
		clauseFor("S1_C1", "S1", "Deliverables are accepted upon inspection."),
		clauseFor("S1_C2", "S1", "unless defects are reported within ten days."),
		clauseFor("S1_C3", "S1", "however latent defects may be reported later."),
	}

	got := NewMerger().Merge(clauses)
	require.Len(t, got, 1)
	assert.Equal(t, "S1_C1", got[0].ID)
	assert.Contains(t, got[0].Text, "latent defects")
}

func TestMerge_SmallInputs(t *testing.T) {
	assert.Empty(t, NewMerger().Merge(nil))
	single := []*contract.Clause{clauseFor("S1_C1", "S1", "One clause only.")}
	assert.Equal(t, single, NewMerger().Merge(single))
}
