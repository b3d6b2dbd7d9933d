// Package common holds the shared seams of the structuring engine: the model
// backend used for risk and layout inference, the sentence segmentation
// capability, and the metrics contract.  Concrete components (section
// builder, clause extractor, risk classifier) receive these via constructor
// injection so tests can swap in fakes.
package common

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// ---------------------------------------------------------------------------
// ModelBackend interface
// ---------------------------------------------------------------------------

// ModelBackend defines the interface for invoking inference models (risk
// classification, layout parsing).  Implementations wrap an external serving
// endpoint; the structuring engine treats every call as potentially failing
// and falls back to rule-based heuristics.
type ModelBackend interface {
	Predict(ctx context.Context, req *PredictRequest) (*PredictResponse, error)
	Healthy(ctx context.Context) error
	Close() error
}

// PredictRequest carries the input payload for model inference.
type PredictRequest struct {
	ModelName    string            `json:"model_name"`
	ModelVersion string            `json:"model_version,omitempty"`
	InputData    []byte            `json:"input_data"`
	OutputNames  []string          `json:"output_names,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Validate checks if the request is well-formed.
func (r *PredictRequest) Validate() error {
	if r == nil {
		return fmt.Errorf("nil predict request")
	}
	if r.ModelName == "" {
		return fmt.Errorf("model_name is required")
	}
	if len(r.InputData) == 0 {
		return fmt.Errorf("input_data is required")
	}
	return nil
}

// PredictResponse carries the raw outputs from model inference.
type PredictResponse struct {
	ModelName       string            `json:"model_name"`
	ModelVersion    string            `json:"model_version"`
	Outputs         map[string][]byte `json:"outputs"`
	InferenceTimeMs int64             `json:"inference_time_ms"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// ErrBackendUnavailable is returned by NoBackend for every prediction, which
// drives callers onto their rule-based fallback paths.
var ErrBackendUnavailable = fmt.Errorf("model backend unavailable")

type noBackend struct{}

func (noBackend) Predict(context.Context, *PredictRequest) (*PredictResponse, error) {
	return nil, ErrBackendUnavailable
}
func (noBackend) Healthy(context.Context) error { return ErrBackendUnavailable }
func (noBackend) Close() error                  { return nil }

// NoBackend returns a ModelBackend that always reports unavailable.  Use it
// when the engine runs in pure rule-based mode.
func NoBackend() ModelBackend { return noBackend{} }

// ---------------------------------------------------------------------------
// Sentence segmentation
// ---------------------------------------------------------------------------

// Segmenter splits running text into sentences.  The engine prefers a
// linguistic model when one is configured and degrades to RegexSegmenter
// otherwise.
type Segmenter interface {
	Split(text string) []string
}

var (
	// reSentenceBoundary matches a sentence-ending punctuation run followed
	// by whitespace and an uppercase letter, digit or opening bracket.
	reSentenceBoundary = regexp.MustCompile(`([.!?])\s+([A-Z0-9(])`)

	// reAbbrev matches common legal abbreviations whose trailing period must
	// not be treated as a sentence boundary.
	reAbbrev = regexp.MustCompile(`\b(?:Inc|Ltd|Corp|Co|No|Art|Sec|Mr|Mrs|Dr|v|vs|etc|e\.g|i\.e)\.$`)
)

// RegexSegmenter is the rule-based fallback sentence splitter.  It protects
// common legal abbreviations from being treated as boundaries.
type RegexSegmenter struct{}

// NewRegexSegmenter returns the rule-based sentence splitter.
func NewRegexSegmenter() *RegexSegmenter { return &RegexSegmenter{} }

// Split segments text into sentences.  Whitespace-only fragments are dropped.
func (s *RegexSegmenter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	// Insert a marker after genuine boundaries, then split on it.
	const marker = "␞"
	withMarkers := reSentenceBoundary.ReplaceAllString(text, "$1"+marker+"$2")

	raw := strings.Split(withMarkers, marker)
	sentences := make([]string, 0, len(raw))
	var carry string
	for _, frag := range raw {
		frag = strings.TrimSpace(frag)
		if frag == "" {
			continue
		}
		if carry != "" {
			frag = carry + " " + frag
			carry = ""
		}
		// A fragment ending in an abbreviation belongs with the next one.
		if reAbbrev.MatchString(frag) {
			carry = frag
			continue
		}
		sentences = append(sentences, frag)
	}
	if carry != "" {
		sentences = append(sentences, carry)
	}
	return sentences
}
