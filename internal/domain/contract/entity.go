// Package contract implements the Contract bounded context: the aggregate
// root, the structured-document value objects produced by the structuring
// engine, and the processing-status lifecycle.  All business rules that
// concern contracts live here; infrastructure concerns (persistence, search,
// messaging) are handled by separate repository and adapter layers.
package contract

import (
	"time"

	"github.com/google/uuid"

	"github.com/clauselens/clauselens/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Enumerations
// ─────────────────────────────────────────────────────────────────────────────

// RiskLevel is the severity assigned to a clause or to a whole contract.
// Critical is reserved for contract-level aggregation and is never assigned
// to an individual clause.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// IsValid reports whether r is one of the defined risk levels.
func (r RiskLevel) IsValid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	}
	return false
}

// Severity returns a numeric rank for ordering risk levels (low = 0).
func (r RiskLevel) Severity() int {
	switch r {
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	case RiskCritical:
		return 3
	default:
		return 0
	}
}

// ProcessingStatus tracks a contract through the analysis pipeline.
type ProcessingStatus string

const (
	StatusUploaded   ProcessingStatus = "uploaded"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

// allowedTransitions defines the valid next states reachable from each status.
// Transitions not listed are illegal and will be rejected by UpdateStatus.
//
//	Uploaded ──► Processing ──► Completed
//	                 │
//	                 └──► Failed ──► Processing   (retry)
var allowedTransitions = map[ProcessingStatus][]ProcessingStatus{
	StatusUploaded:   {StatusProcessing, StatusFailed},
	StatusProcessing: {StatusCompleted, StatusFailed},
	StatusFailed:     {StatusProcessing},
	// Terminal state: no outgoing transitions.
	StatusCompleted: {},
}

// SemanticGroup is the coarse thematic bucket assigned to a section.
type SemanticGroup string

const (
	GroupContractFormation  SemanticGroup = "contract_formation"
	GroupDefinitions        SemanticGroup = "definitions"
	GroupCoreTerms          SemanticGroup = "core_terms"
	GroupFinancial          SemanticGroup = "financial"
	GroupLegalCompliance    SemanticGroup = "legal_compliance"
	GroupRiskManagement     SemanticGroup = "risk_management"
	GroupIPConfidentiality  SemanticGroup = "ip_confidentiality"
	GroupContractManagement SemanticGroup = "contract_management"
	GroupDisputeResolution  SemanticGroup = "dispute_resolution"
	GroupMiscellaneous      SemanticGroup = "miscellaneous"
)

// Section types derived from heading content.
const (
	SectionTypeDefinitions = "definitions"
	SectionTypeTerms       = "terms"
	SectionTypePayment     = "payment"
	SectionTypeTermination = "termination"
	SectionTypeGeneral     = "general"
)

// ─────────────────────────────────────────────────────────────────────────────
// Structured-document value objects
// ─────────────────────────────────────────────────────────────────────────────

// DocumentMetadata describes the raw text handed to the structuring engine by
// the text-acquisition step.  It is immutable once produced; the engine
// consumes it read-only.
type DocumentMetadata struct {
	Filename         string     `json:"filename"`
	SizeBytes        int64      `json:"size_bytes"`
	PageCount        int        `json:"page_count"`
	ExtractionMethod string     `json:"extraction_method"`
	Confidence       float64    `json:"confidence"`
	ContractType     string     `json:"contract_type,omitempty"`
	Jurisdiction     string     `json:"jurisdiction,omitempty"`
	Parties          []string   `json:"parties,omitempty"`
	EffectiveDate    *time.Time `json:"effective_date,omitempty"`
	ExpirationDate   *time.Time `json:"expiration_date,omitempty"`
}

// Section is a titled, hierarchically-positioned span of the document.
// The Section Builder creates it; the Clause Extractor populates Clauses and
// the derived obligation/condition flags afterward.  It is never mutated once
// the structured document is assembled.
type Section struct {
	// ID is the section identifier, unique within one document ("S1", "S2", …).
	ID string `json:"id"`

	Title   string `json:"title"`
	Content string `json:"content"`

	// Level is the hierarchy depth; 1 is top-level.
	Level int `json:"level"`

	// ParentID is the ID of the nearest preceding section with a strictly
	// lower level, or empty for roots.
	ParentID string `json:"parent_id,omitempty"`

	Clauses []*Clause `json:"clauses"`

	// Type is a coarse label derived from the title (definitions, payment, …).
	Type string `json:"type"`

	// ImportanceScore is in [0, 1]; higher means more legally significant.
	ImportanceScore float64 `json:"importance_score"`

	SemanticGroup SemanticGroup `json:"semantic_group"`

	// Derived from the section's clauses after extraction.
	ContainsObligations bool `json:"contains_obligations"`
	ContainsConditions  bool `json:"contains_conditions"`

	// Metadata carries free-form annotations such as the heading pattern that
	// produced this section or layout-model element groupings.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Clause is a single classified legal statement extracted from a section.
type Clause struct {
	// ID is scoped to the owning section, e.g. "S3_C2".
	ID string `json:"id"`

	// SectionID is the owning section's ID; set exactly once at creation.
	SectionID string `json:"section_id"`

	// Text is the normalized clause text (whitespace collapsed, stray leading
	// numbering stripped, terminal punctuation enforced).
	Text string `json:"text"`

	// Category is a legal taxonomy label, "general" when no category scores
	// high enough.  Always set after classification.
	Category string `json:"category"`

	// Risk is the per-clause risk level.  Always set after classification;
	// never "critical" (reserved for contract-level assessment).
	Risk RiskLevel `json:"risk_level"`

	KeyTerms    []string `json:"key_terms,omitempty"`
	Obligations []string `json:"obligations,omitempty"`
	Conditions  []string `json:"conditions,omitempty"`

	// Source records which segmentation strategy produced the clause
	// ("pattern", "sentence", "paragraph").
	Source string `json:"source,omitempty"`

	WordCount     int `json:"word_count"`
	SentenceCount int `json:"sentence_count"`

	// Merged is true when this clause absorbed a continuation clause.
	Merged bool `json:"merged,omitempty"`
}

// StructuredDocument is the engine's output: the section hierarchy plus a
// flattened clause list.  Clauses holds the same *Clause references embedded
// in Sections, not re-derived copies, so downstream code can iterate either
// the hierarchy or the flat list.
type StructuredDocument struct {
	Metadata DocumentMetadata `json:"metadata"`
	Sections []*Section       `json:"sections"`
	Clauses  []*Clause        `json:"clauses"`
}

// ClauseCount returns the number of clauses in the flat list.
func (d *StructuredDocument) ClauseCount() int {
	if d == nil {
		return 0
	}
	return len(d.Clauses)
}

// RiskAssessment is the contract-level risk aggregation computed over all
// clauses of a structured document.
type RiskAssessment struct {
	// Score is the weighted risk ratio in [0, 1].
	Score float64 `json:"score"`

	// Level is the aggregate risk level; the only producer of "critical".
	Level RiskLevel `json:"level"`

	Factors         []string `json:"factors,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`

	TotalClauses  int `json:"total_clauses"`
	HighRiskCount int `json:"high_risk_count"`
	MediumCount   int `json:"medium_risk_count"`
	LowRiskCount  int `json:"low_risk_count"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Contract aggregate root
// ─────────────────────────────────────────────────────────────────────────────

// Contract is the aggregate root of the Contract bounded context.  It owns the
// raw text, the processing lifecycle, and — once analysis completes — the
// structured document and risk assessment.
//
// Consumers must never modify fields directly; all mutations go through the
// exported methods so that lifecycle invariants are maintained.
type Contract struct {
	ID       uuid.UUID        `json:"id"`
	Filename string           `json:"filename"`
	Status   ProcessingStatus `json:"status"`

	// RawText is the extracted plain text of the contract document.
	RawText string `json:"raw_text,omitempty"`

	// ObjectKey locates the original uploaded file in object storage.
	ObjectKey string `json:"object_key,omitempty"`

	Structured *StructuredDocument `json:"structured,omitempty"`
	Risk       *RiskAssessment     `json:"risk,omitempty"`

	// FailureReason is set when Status is "failed".
	FailureReason string `json:"failure_reason,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	AnalyzedAt *time.Time `json:"analyzed_at,omitempty"`
}

// NewContract constructs a Contract in the uploaded state.  The raw text must
// be non-empty; an empty document cannot be analyzed.
func NewContract(filename, rawText string) (*Contract, error) {
	if rawText == "" {
		return nil, errors.New(errors.ErrCodeContractEmptyText, "contract raw text must not be empty")
	}
	now := time.Now().UTC()
	return &Contract{
		ID:        uuid.New(),
		Filename:  filename,
		Status:    StatusUploaded,
		RawText:   rawText,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// UpdateStatus transitions the contract to next, enforcing the lifecycle
// state machine.  Illegal transitions return ErrCodeContractInvalidState.
func (c *Contract) UpdateStatus(next ProcessingStatus) error {
	for _, allowed := range allowedTransitions[c.Status] {
		if allowed == next {
			c.Status = next
			c.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return errors.Newf(errors.ErrCodeContractInvalidState,
		"illegal status transition %s → %s", c.Status, next)
}

// CompleteAnalysis attaches the structured document and risk assessment and
// transitions the contract to completed.
func (c *Contract) CompleteAnalysis(doc *StructuredDocument, risk *RiskAssessment) error {
	if doc == nil {
		return errors.New(errors.ErrCodeStructuringFailed, "structured document must not be nil")
	}
	if err := c.UpdateStatus(StatusCompleted); err != nil {
		return err
	}
	now := time.Now().UTC()
	c.Structured = doc
	c.Risk = risk
	c.AnalyzedAt = &now
	return nil
}

// FailAnalysis transitions the contract to failed and records the reason.
func (c *Contract) FailAnalysis(reason string) error {
	if err := c.UpdateStatus(StatusFailed); err != nil {
		return err
	}
	c.FailureReason = reason
	return nil
}
