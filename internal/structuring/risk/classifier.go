// Package risk implements clause-level risk classification.  The primary
// path scores a clause with a small sentiment-style text classifier served by
// a ModelBackend; when the model is unavailable or fails, classification
// silently degrades to keyword matching so clause processing never aborts.
package risk

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/clauselens/clauselens/internal/domain/contract"
	"github.com/clauselens/clauselens/internal/infrastructure/monitoring/logging"
	"github.com/clauselens/clauselens/internal/structuring/common"
)

// Confidence thresholds mapping the model's "negative" score to risk tiers.
const (
	highThreshold   = 0.8
	mediumThreshold = 0.6
)

// Keyword fallback lists.  A high-risk match wins over a medium-risk match.
var (
	highRiskTerms = []string{
		"unlimited liability",
		"personal guarantee",
		"penalty",
		"liquidated damages",
	}
	mediumRiskTerms = []string{
		"indemnification",
		"limitation of liability",
		"attorney fees",
	}
)

// sentimentOutput is the decoded model response.
type sentimentOutput struct {
	Label  string             `json:"label"`
	Scores map[string]float64 `json:"scores"`
}

// Classifier assigns a risk level to a text span.  It never assigns
// "critical"; that tier is reserved for contract-level aggregation.
type Classifier struct {
	backend   common.ModelBackend
	modelName string
	log       logging.Logger
	metrics   common.StructuringMetrics
}

// NewClassifier constructs a risk Classifier.  Pass common.NoBackend() to run
// in pure keyword mode.
func NewClassifier(backend common.ModelBackend, modelName string, log logging.Logger, metrics common.StructuringMetrics) *Classifier {
	if backend == nil {
		backend = common.NoBackend()
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = common.NewNoopMetrics()
	}
	return &Classifier{backend: backend, modelName: modelName, log: log, metrics: metrics}
}

// Classify returns the risk level for text.  Model failures are logged at
// warn level and never surface to the caller.
func (c *Classifier) Classify(ctx context.Context, text string) contract.RiskLevel {
	start := time.Now()

	level, err := c.classifyWithModel(ctx, text)
	fallback := err != nil
	if fallback {
		c.log.Warn("risk model unavailable, using keyword fallback", logging.Err(err))
		level = classifyByKeywords(text)
	}

	c.metrics.RecordRiskInference(ctx, string(level), float64(time.Since(start).Milliseconds()), fallback)
	return level
}

// classifyWithModel runs the primary model path and maps the "negative"
// confidence to a risk tier.
func (c *Classifier) classifyWithModel(ctx context.Context, text string) (contract.RiskLevel, error) {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", err
	}
	resp, err := c.backend.Predict(ctx, &common.PredictRequest{
		ModelName: c.modelName,
		InputData: payload,
	})
	if err != nil {
		return "", err
	}

	raw, ok := resp.Outputs["sentiment"]
	if !ok {
		return "", common.ErrBackendUnavailable
	}
	var out sentimentOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", err
	}

	negative := out.Scores["negative"]
	switch {
	case negative > highThreshold:
		return contract.RiskHigh, nil
	case negative > mediumThreshold:
		return contract.RiskMedium, nil
	default:
		return contract.RiskLow, nil
	}
}

// classifyByKeywords is the rule-based fallback.
func classifyByKeywords(text string) contract.RiskLevel {
	lower := strings.ToLower(text)
	for _, term := range highRiskTerms {
		if strings.Contains(lower, term) {
			return contract.RiskHigh
		}
	}
	for _, term := range mediumRiskTerms {
		if strings.Contains(lower, term) {
			return contract.RiskMedium
		}
	}
	return contract.RiskLow
}
