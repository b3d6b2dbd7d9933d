// Package structuring assembles the document-structuring pipeline: section
// building, clause extraction, classification, risk scoring, merging and the
// optional layout enhancement.  The pipeline is a pure transformation over
// one document's text; it holds no per-document state and may be invoked
// concurrently for independent documents.
package structuring

import (
	"context"
	"strings"
	"time"

	"github.com/clauselens/clauselens/internal/domain/contract"
	"github.com/clauselens/clauselens/internal/infrastructure/monitoring/logging"
	"github.com/clauselens/clauselens/internal/structuring/clause"
	"github.com/clauselens/clauselens/internal/structuring/common"
	"github.com/clauselens/clauselens/internal/structuring/layout"
	"github.com/clauselens/clauselens/internal/structuring/patterns"
	"github.com/clauselens/clauselens/internal/structuring/risk"
	"github.com/clauselens/clauselens/internal/structuring/sectionizer"
	apperrors "github.com/clauselens/clauselens/pkg/errors"
)

// Options configures an Engine.  Every field is optional: the zero value
// yields a fully rule-based engine with no model calls.
type Options struct {
	// Backend serves the risk and layout models.  Nil means rule-based only.
	Backend common.ModelBackend

	// RiskModel and LayoutModel name the served models.
	RiskModel   string
	LayoutModel string

	// EnableLayout turns on the layout enhancement step.
	EnableLayout bool

	// Segmenter overrides the sentence splitter.
	Segmenter common.Segmenter

	Logger  logging.Logger
	Metrics common.StructuringMetrics
}

// Engine runs the full structuring pipeline.
type Engine struct {
	builder    *sectionizer.Builder
	extractor  *clause.Extractor
	classifier *clause.Classifier
	merger     *clause.Merger
	risk       *risk.Classifier
	layout     *layout.Enhancer

	log     logging.Logger
	metrics common.StructuringMetrics
}

// NewEngine wires the pipeline components.
func NewEngine(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = common.NewNoopMetrics()
	}
	if opts.Backend == nil {
		opts.Backend = common.NoBackend()
	}

	e := &Engine{
		builder:    sectionizer.NewBuilder(opts.Logger),
		extractor:  clause.NewExtractor(patterns.NewLibrary(), opts.Segmenter, opts.Logger, opts.Metrics),
		classifier: clause.NewClassifier(),
		merger:     clause.NewMerger(),
		risk:       risk.NewClassifier(opts.Backend, opts.RiskModel, opts.Logger, opts.Metrics),
		log:        opts.Logger,
		metrics:    opts.Metrics,
	}
	if opts.EnableLayout {
		e.layout = layout.NewEnhancer(opts.Backend, opts.LayoutModel, opts.Logger)
	}
	return e
}

// StructureDocument converts raw contract text into the structured
// representation.  The flat clause list shares references with the section
// clause lists.  The only error path is caller cancellation; all model and
// parsing failures degrade to fallbacks.
func (e *Engine) StructureDocument(ctx context.Context, rawText string, meta contract.DocumentMetadata) (*contract.StructuredDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeStructuringFailed, "structuring cancelled")
	}
	start := time.Now()

	sections := e.builder.Build(rawText, meta)

	var flat []*contract.Clause
	for _, sec := range sections {
		clauses := e.extractor.Extract(ctx, sec)
		for _, cl := range clauses {
			e.classifier.Classify(cl)
			cl.Risk = e.risk.Classify(ctx, cl.Text)
		}
		clauses = e.merger.Merge(clauses)

		sec.Clauses = clauses
		sec.ContainsObligations = anyObligations(clauses)
		sec.ContainsConditions = anyConditions(clauses)
		flat = append(flat, clauses...)
	}

	// Sparse input that produced no valid clauses still yields one clause
	// covering the whole document.
	if len(flat) == 0 && strings.TrimSpace(rawText) != "" {
		cl := e.wholeDocumentClause(ctx, sections[0], rawText)
		sections[0].Clauses = []*contract.Clause{cl}
		sections[0].ContainsObligations = len(cl.Obligations) > 0
		sections[0].ContainsConditions = len(cl.Conditions) > 0
		flat = append(flat, cl)
	}

	if e.layout != nil {
		e.layout.Enhance(ctx, rawText, sections)
	}

	doc := &contract.StructuredDocument{
		Metadata: meta,
		Sections: sections,
		Clauses:  flat,
	}

	e.metrics.RecordStructuring(ctx, float64(time.Since(start).Milliseconds()), len(sections), len(flat), true)
	e.log.Info("document structured",
		logging.Int("sections", len(sections)),
		logging.Int("clauses", len(flat)),
		logging.Duration("took", time.Since(start)),
	)
	return doc, nil
}

// wholeDocumentClause builds the degenerate single clause used when no
// candidate survived validation.
func (e *Engine) wholeDocumentClause(ctx context.Context, sec *contract.Section, rawText string) *contract.Clause {
	text := strings.Join(strings.Fields(rawText), " ")
	cl := &contract.Clause{
		ID:            sec.ID + "_C1",
		SectionID:     sec.ID,
		Text:          text,
		Source:        "document",
		WordCount:     len(strings.Fields(text)),
		SentenceCount: 1,
	}
	e.classifier.Classify(cl)
	cl.Risk = e.risk.Classify(ctx, cl.Text)
	return cl
}

func anyObligations(clauses []*contract.Clause) bool {
	for _, cl := range clauses {
		if len(cl.Obligations) > 0 {
			return true
		}
	}
	return false
}

func anyConditions(clauses []*contract.Clause) bool {
	for _, cl := range clauses {
		if len(cl.Conditions) > 0 {
			return true
		}
	}
	return false
}
