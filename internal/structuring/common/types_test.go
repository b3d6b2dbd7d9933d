package common

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegexSegmenter_Split(t *testing.T) {
	seg := NewRegexSegmenter()

	sentences := seg.Split("Payment is due in 30 days. Late payments accrue interest. The rate is 1.5% monthly.")
	require.Len(t, sentences, 3)
	assert.Equal(t, "Payment is due in 30 days.", sentences[0])
	assert.Equal(t, "Late payments accrue interest.", sentences[1])
}

func TestRegexSegmenter_ProtectsAbbreviations(t *testing.T) {
	seg := NewRegexSegmenter()

	sentences := seg.Split("Acme Inc. Shall deliver the goods. The buyer shall pay.")
	// "Inc." must not end a sentence.
	require.Len(t, sentences, 2)
	assert.Contains(t, sentences[0], "Acme Inc. Shall deliver")
}

func TestRegexSegmenter_Empty(t *testing.T) {
	seg := NewRegexSegmenter()
	assert.Nil(t, seg.Split(""))
	assert.Nil(t, seg.Split("   \n  "))
}

func TestRegexSegmenter_SingleSentence(t *testing.T) {
	seg := NewRegexSegmenter()
	sentences := seg.Split("This is a short contract.")
	require.Len(t, sentences, 1)
}

func TestNoBackend(t *testing.T) {
	b := NoBackend()
	_, err := b.Predict(context.Background(), &PredictRequest{ModelName: "x", InputData: []byte("{}")})
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.ErrorIs(t, b.Healthy(context.Background()), ErrBackendUnavailable)
	assert.NoError(t, b.Close())
}

func TestPredictRequest_Validate(t *testing.T) {
	var nilReq *PredictRequest
	assert.Error(t, nilReq.Validate())
	assert.Error(t, (&PredictRequest{InputData: []byte("x")}).Validate())
	assert.Error(t, (&PredictRequest{ModelName: "m"}).Validate())
	assert.NoError(t, (&PredictRequest{ModelName: "m", InputData: []byte("x")}).Validate())
}

func TestInMemoryMetrics(t *testing.T) {
	m := NewInMemoryMetrics()
	ctx := context.Background()

	m.RecordStructuring(ctx, 12.5, 3, 9, true)
	m.RecordRiskInference(ctx, "high", 2.0, true)
	m.RecordRiskInference(ctx, "low", 1.0, false)
	m.RecordClauseExtraction(ctx, "pattern", 4)

	runs, byLevel, fallbacks := m.Snapshot()
	assert.Equal(t, 1, runs)
	assert.Equal(t, 1, byLevel["high"])
	assert.Equal(t, 1, byLevel["low"])
	assert.Equal(t, 1, fallbacks)
}
