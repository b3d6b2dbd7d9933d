// Package layout implements the optional layout-model enhancement step.  A
// document-layout model labels regions of the raw text (headers, tables,
// signature blocks); the enhancer matches those regions to the rule-built
// sections and annotates them.  It is strictly additive: any model failure
// leaves the sections exactly as the section builder produced them.
package layout

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/clauselens/clauselens/internal/domain/contract"
	"github.com/clauselens/clauselens/internal/infrastructure/monitoring/logging"
	"github.com/clauselens/clauselens/internal/structuring/common"
)

// minOverlap is the minimum token-overlap ratio for a layout element to be
// attributed to a section.
const minOverlap = 0.5

// Metadata keys written onto enhanced sections.
const (
	MetaLayoutType       = "layout_type"
	MetaLayoutConfidence = "layout_confidence"
)

// element is one region reported by the layout model.
type element struct {
	Type       string  `json:"type"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Enhancer annotates sections with layout-model output.
type Enhancer struct {
	backend   common.ModelBackend
	modelName string
	log       logging.Logger
}

// NewEnhancer builds a layout Enhancer.  With a nil backend every Enhance
// call is a no-op.
func NewEnhancer(backend common.ModelBackend, modelName string, log logging.Logger) *Enhancer {
	if backend == nil {
		backend = common.NoBackend()
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Enhancer{backend: backend, modelName: modelName, log: log}
}

// Enhance runs the layout model over rawText and annotates matching sections
// in place.  Errors are logged and swallowed; sections are never modified on
// a failed run.
func (e *Enhancer) Enhance(ctx context.Context, rawText string, sections []*contract.Section) {
	if len(sections) == 0 || strings.TrimSpace(rawText) == "" {
		return
	}

	elements, err := e.predict(ctx, rawText)
	if err != nil {
		e.log.Debug("layout enhancement skipped", logging.Err(err))
		return
	}

	annotated := 0
	for _, el := range elements {
		if sec := bestMatch(el.Text, sections); sec != nil {
			if sec.Metadata == nil {
				sec.Metadata = map[string]string{}
			}
			sec.Metadata[MetaLayoutType] = el.Type
			sec.Metadata[MetaLayoutConfidence] = formatConfidence(el.Confidence)
			annotated++
		}
	}
	e.log.Debug("layout enhancement applied",
		logging.Int("elements", len(elements)),
		logging.Int("annotated", annotated),
	)
}

func (e *Enhancer) predict(ctx context.Context, rawText string) ([]element, error) {
	payload, err := json.Marshal(map[string]string{"text": rawText})
	if err != nil {
		return nil, err
	}
	resp, err := e.backend.Predict(ctx, &common.PredictRequest{
		ModelName: e.modelName,
		InputData: payload,
	})
	if err != nil {
		return nil, err
	}
	raw, ok := resp.Outputs["elements"]
	if !ok {
		return nil, common.ErrBackendUnavailable
	}
	var elements []element
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, err
	}
	return elements, nil
}

// bestMatch returns the section whose text best covers the element's tokens,
// or nil when no section reaches the overlap floor.
func bestMatch(elementText string, sections []*contract.Section) *contract.Section {
	tokens := tokenize(elementText)
	if len(tokens) == 0 {
		return nil
	}

	var best *contract.Section
	bestRatio := 0.0
	for _, sec := range sections {
		secTokens := tokenize(sec.Title + " " + sec.Content)
		hits := 0
		for tok := range tokens {
			if secTokens[tok] {
				hits++
			}
		}
		ratio := float64(hits) / float64(len(tokens))
		if ratio > bestRatio {
			bestRatio = ratio
			best = sec
		}
	}
	if bestRatio < minOverlap {
		return nil
	}
	return best
}

func tokenize(s string) map[string]bool {
	out := map[string]bool{}
	for _, f := range strings.Fields(strings.ToLower(s)) {
		f = strings.Trim(f, ".,;:()\"'")
		if len(f) > 2 {
			out[f] = true
		}
	}
	return out
}

func formatConfidence(c float64) string {
	b, _ := json.Marshal(c)
	return string(b)
}
