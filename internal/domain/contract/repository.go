package contract

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/clauselens/clauselens/pkg/types/common"
)

// ListFilter defines listing criteria for contracts.
type ListFilter struct {
	Status     ProcessingStatus
	RiskLevel  RiskLevel
	Pagination common.Pagination
	SortBy     string
	SortOrder  common.SortOrder
}

// ClauseQuery defines full-text search criteria for clauses.
type ClauseQuery struct {
	Text       string
	Category   string
	RiskLevel  RiskLevel
	ContractID uuid.UUID
	Limit      int
}

// ClauseHit is a single full-text search result.
type ClauseHit struct {
	ContractID uuid.UUID `json:"contract_id"`
	ClauseID   string    `json:"clause_id"`
	SectionID  string    `json:"section_id"`
	Text       string    `json:"text"`
	Category   string    `json:"category"`
	Risk       RiskLevel `json:"risk_level"`
	Score      float64   `json:"score"`
}

// SimilarClause is a vector-similarity search result.
type SimilarClause struct {
	ContractID uuid.UUID `json:"contract_id"`
	ClauseID   string    `json:"clause_id"`
	Text       string    `json:"text"`
	Distance   float64   `json:"distance"`
}

// Repository defines the persistence contract for the Contract aggregate.
type Repository interface {
	Create(ctx context.Context, c *Contract) error
	GetByID(ctx context.Context, id uuid.UUID) (*Contract, error)
	Update(ctx context.Context, c *Contract) error
	Delete(ctx context.Context, id uuid.UUID) error

	List(ctx context.Context, filter ListFilter) ([]*Contract, int64, error)
	CountByStatus(ctx context.Context) (map[ProcessingStatus]int64, error)

	// SaveStructured persists the structured document and risk assessment
	// produced by analysis, including all sections and clauses.
	SaveStructured(ctx context.Context, c *Contract) error
	GetClauses(ctx context.Context, contractID uuid.UUID) ([]*Clause, error)
	GetSections(ctx context.Context, contractID uuid.UUID) ([]*Section, error)
}

// AnalysisCache caches completed analysis results keyed by contract ID.
type AnalysisCache interface {
	GetStructured(ctx context.Context, id uuid.UUID) (*StructuredDocument, bool, error)
	SetStructured(ctx context.Context, id uuid.UUID, doc *StructuredDocument, ttl time.Duration) error
	Invalidate(ctx context.Context, id uuid.UUID) error
}

// ClauseIndex provides full-text search over clauses.
type ClauseIndex interface {
	IndexClauses(ctx context.Context, contractID uuid.UUID, clauses []*Clause) error
	Search(ctx context.Context, q ClauseQuery) ([]*ClauseHit, error)
	DeleteByContract(ctx context.Context, contractID uuid.UUID) error
}

// ClauseVectorStore stores clause embeddings for similarity search.
type ClauseVectorStore interface {
	UpsertEmbeddings(ctx context.Context, contractID uuid.UUID, clauses []*Clause, vectors [][]float32) error
	SearchSimilar(ctx context.Context, vector []float32, topK int) ([]*SimilarClause, error)
	DeleteByContract(ctx context.Context, contractID uuid.UUID) error
}

// DocumentStore persists the original uploaded files in object storage.
type DocumentStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// StructureGraph mirrors the section/clause hierarchy into a graph database
// so cross-contract structural queries can run over it.
type StructureGraph interface {
	SaveStructure(ctx context.Context, c *Contract) error
	DeleteStructure(ctx context.Context, contractID uuid.UUID) error
	RelatedSections(ctx context.Context, group SemanticGroup, limit int) ([]*Section, error)
}

// EventPublisher publishes contract lifecycle events to the message bus.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event common.DomainEvent) error
	Close() error
}
