package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clauselens/clauselens/pkg/errors"
)

func TestNewContract(t *testing.T) {
	c, err := NewContract("msa.pdf", "This Agreement is entered into...")
	require.NoError(t, err)
	assert.Equal(t, StatusUploaded, c.Status)
	assert.NotEqual(t, "", c.ID.String())
	assert.False(t, c.CreatedAt.IsZero())
}

func TestNewContract_EmptyText(t *testing.T) {
	_, err := NewContract("empty.pdf", "")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeContractEmptyText))
}

func TestUpdateStatus_LegalTransitions(t *testing.T) {
	c, _ := NewContract("a.pdf", "text")

	require.NoError(t, c.UpdateStatus(StatusProcessing))
	require.NoError(t, c.UpdateStatus(StatusFailed))
	// Failed contracts can be retried.
	require.NoError(t, c.UpdateStatus(StatusProcessing))
	require.NoError(t, c.UpdateStatus(StatusCompleted))
}

func TestUpdateStatus_IllegalTransitions(t *testing.T) {
	c, _ := NewContract("a.pdf", "text")

	err := c.UpdateStatus(StatusCompleted) // uploaded → completed skips processing
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeContractInvalidState))

	require.NoError(t, c.UpdateStatus(StatusProcessing))
	require.NoError(t, c.UpdateStatus(StatusCompleted))

	// Completed is terminal.
	assert.Error(t, c.UpdateStatus(StatusProcessing))
	assert.Error(t, c.UpdateStatus(StatusFailed))
}

func TestCompleteAnalysis(t *testing.T) {
	c, _ := NewContract("a.pdf", "text")
	require.NoError(t, c.UpdateStatus(StatusProcessing))

	doc := &StructuredDocument{
		Sections: []*Section{{ID: "S1", Title: "Payment"}},
		Clauses:  []*Clause{{ID: "S1_C1", SectionID: "S1"}},
	}
	risk := &RiskAssessment{Level: RiskMedium, Score: 0.4, TotalClauses: 1}

	require.NoError(t, c.CompleteAnalysis(doc, risk))
	assert.Equal(t, StatusCompleted, c.Status)
	assert.NotNil(t, c.AnalyzedAt)
	assert.Equal(t, 1, c.Structured.ClauseCount())
}

func TestCompleteAnalysis_NilDocument(t *testing.T) {
	c, _ := NewContract("a.pdf", "text")
	require.NoError(t, c.UpdateStatus(StatusProcessing))

	err := c.CompleteAnalysis(nil, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeStructuringFailed))
	assert.Equal(t, StatusProcessing, c.Status)
}

func TestFailAnalysis(t *testing.T) {
	c, _ := NewContract("a.pdf", "text")
	require.NoError(t, c.UpdateStatus(StatusProcessing))
	require.NoError(t, c.FailAnalysis("model timeout"))
	assert.Equal(t, StatusFailed, c.Status)
	assert.Equal(t, "model timeout", c.FailureReason)
}

func TestRiskLevel_Severity(t *testing.T) {
	assert.Equal(t, 0, RiskLow.Severity())
	assert.Equal(t, 1, RiskMedium.Severity())
	assert.Equal(t, 2, RiskHigh.Severity())
	assert.Equal(t, 3, RiskCritical.Severity())
	assert.True(t, RiskHigh.Severity() > RiskMedium.Severity())
}

func TestRiskLevel_IsValid(t *testing.T) {
	assert.True(t, RiskLow.IsValid())
	assert.True(t, RiskCritical.IsValid())
	assert.False(t, RiskLevel("severe").IsValid())
}

func TestEvents(t *testing.T) {
	c, _ := NewContract("nda.pdf", "Confidential information shall not be disclosed.")

	up := NewContractUploadedEvent(c)
	assert.Equal(t, c.ID.String(), up.AggregateID())
	assert.Equal(t, "nda.pdf", up.Filename)

	require.NoError(t, c.UpdateStatus(StatusProcessing))
	doc := &StructuredDocument{
		Sections: []*Section{{ID: "S1"}},
		Clauses:  []*Clause{{ID: "S1_C1"}, {ID: "S1_C2"}},
	}
	require.NoError(t, c.CompleteAnalysis(doc, &RiskAssessment{Level: RiskLow}))

	an := NewContractAnalyzedEvent(c)
	assert.Equal(t, 1, an.SectionCount)
	assert.Equal(t, 2, an.ClauseCount)
	assert.Equal(t, RiskLow, an.RiskLevel)

	fail := NewContractFailedEvent(c, "boom")
	assert.Equal(t, "boom", fail.Reason)
}
