// Package analysis provides the application-level service for contract
// analysis: upload, structuring, retrieval, search and deletion.  It sits
// between the transport layers (HTTP, CLI, worker) and the domain, and owns
// the orchestration of the structuring engine with the persistence ports.
package analysis

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clauselens/clauselens/internal/domain/contract"
	"github.com/clauselens/clauselens/internal/infrastructure/monitoring/logging"
	"github.com/clauselens/clauselens/pkg/errors"
	"github.com/clauselens/clauselens/pkg/types/common"
)

// cacheTTL bounds how long a completed analysis stays in the cache.
const cacheTTL = time.Hour

// Structurer is the engine seam: raw text in, structured document out.
type Structurer interface {
	StructureDocument(ctx context.Context, rawText string, meta contract.DocumentMetadata) (*contract.StructuredDocument, error)
}

// Service defines the contract-analysis application operations.
type Service interface {
	Upload(ctx context.Context, input *UploadInput) (*ContractSummary, error)
	Analyze(ctx context.Context, id uuid.UUID) (*AnalysisResult, error)
	Get(ctx context.Context, id uuid.UUID) (*AnalysisResult, error)
	GetStatus(ctx context.Context, id uuid.UUID) (*StatusResult, error)
	List(ctx context.Context, input *ListInput) (*ListResult, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SearchClauses(ctx context.Context, input *SearchInput) ([]*contract.ClauseHit, error)
	SimilarClauses(ctx context.Context, vector []float32, topK int) ([]*contract.SimilarClause, error)
	IndexEmbeddings(ctx context.Context, id uuid.UUID, vectors [][]float32) error
}

// UploadInput carries a new contract's text and metadata.
type UploadInput struct {
	Filename    string
	Text        string
	ContentType string
}

// ListInput carries listing criteria.
type ListInput struct {
	Status    string
	RiskLevel string
	Page      int
	PageSize  int
}

// SearchInput carries full-text clause search criteria.
type SearchInput struct {
	Query      string
	Category   string
	RiskLevel  string
	ContractID uuid.UUID
	Limit      int
}

// ContractSummary is the lightweight contract DTO returned by Upload and List.
type ContractSummary struct {
	ID            string     `json:"id"`
	Filename      string     `json:"filename"`
	Status        string     `json:"status"`
	RiskLevel     string     `json:"risk_level,omitempty"`
	ClauseCount   int        `json:"clause_count"`
	FailureReason string     `json:"failure_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	AnalyzedAt    *time.Time `json:"analyzed_at,omitempty"`
}

// AnalysisResult is the full analysis DTO.
type AnalysisResult struct {
	Contract   *ContractSummary             `json:"contract"`
	Structured *contract.StructuredDocument `json:"structured,omitempty"`
	Risk       *contract.RiskAssessment     `json:"risk,omitempty"`
}

// StatusResult reports processing progress.
type StatusResult struct {
	ID            string     `json:"id"`
	Status        string     `json:"status"`
	FailureReason string     `json:"failure_reason,omitempty"`
	AnalyzedAt    *time.Time `json:"analyzed_at,omitempty"`
}

// ListResult is a paginated contract listing.
type ListResult struct {
	Contracts  []*ContractSummary `json:"contracts"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	TotalPages int                `json:"total_pages"`
}

// serviceImpl implements Service.
type serviceImpl struct {
	repo    contract.Repository
	cache   contract.AnalysisCache
	index   contract.ClauseIndex
	vectors contract.ClauseVectorStore
	store   contract.DocumentStore
	graph   contract.StructureGraph
	events  contract.EventPublisher
	engine  Structurer
	logger  logging.Logger
}

// Deps bundles the service's collaborators.
type Deps struct {
	Repo    contract.Repository
	Cache   contract.AnalysisCache
	Index   contract.ClauseIndex
	Vectors contract.ClauseVectorStore
	Store   contract.DocumentStore
	Graph   contract.StructureGraph
	Events  contract.EventPublisher
	Engine  Structurer
	Logger  logging.Logger
}

// NewService creates the analysis application service.
func NewService(deps Deps) Service {
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	return &serviceImpl{
		repo:    deps.Repo,
		cache:   deps.Cache,
		index:   deps.Index,
		vectors: deps.Vectors,
		store:   deps.Store,
		graph:   deps.Graph,
		events:  deps.Events,
		engine:  deps.Engine,
		logger:  deps.Logger,
	}
}

func (s *serviceImpl) Upload(ctx context.Context, input *UploadInput) (*ContractSummary, error) {
	if input == nil || strings.TrimSpace(input.Text) == "" {
		return nil, errors.New(errors.ErrCodeContractEmptyText, "contract text is required")
	}
	if input.Filename == "" {
		return nil, errors.InvalidParam("filename is required")
	}

	c, err := contract.NewContract(input.Filename, input.Text)
	if err != nil {
		return nil, err
	}

	if s.store != nil {
		key := "contracts/" + c.ID.String() + "/" + input.Filename
		contentType := input.ContentType
		if contentType == "" {
			contentType = "text/plain"
		}
		reader := strings.NewReader(input.Text)
		if err := s.store.Put(ctx, key, reader, int64(len(input.Text)), contentType); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeContractStoreFailed, "store original document")
		}
		c.ObjectKey = key
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	s.publish(ctx, contract.TopicContractUploaded, contract.NewContractUploadedEvent(c))

	s.logger.Info("contract uploaded",
		logging.String("contract_id", c.ID.String()),
		logging.String("filename", c.Filename),
		logging.Int("bytes", len(input.Text)),
	)
	return toSummary(c), nil
}

// Analyze runs the structuring pipeline for one contract.  Persistence of the
// result is mandatory; cache, index and graph writes are best-effort.
func (s *serviceImpl) Analyze(ctx context.Context, id uuid.UUID) (*AnalysisResult, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := c.UpdateStatus(contract.StatusProcessing); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}

	meta := contract.DocumentMetadata{
		Filename:  c.Filename,
		SizeBytes: int64(len(c.RawText)),
	}
	doc, err := s.engine.StructureDocument(ctx, c.RawText, meta)
	if err != nil {
		s.failAnalysis(ctx, c, err)
		return nil, errors.Wrap(err, errors.ErrCodeStructuringFailed, "structure contract")
	}

	risk := BuildRiskAssessment(doc)
	if err := c.CompleteAnalysis(doc, risk); err != nil {
		return nil, err
	}
	if err := s.repo.SaveStructured(ctx, c); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetStructured(ctx, c.ID, doc, cacheTTL); err != nil {
			s.logger.Warn("cache write failed", logging.String("contract_id", c.ID.String()), logging.Err(err))
		}
	}
	if s.index != nil {
		if err := s.index.IndexClauses(ctx, c.ID, doc.Clauses); err != nil {
			s.logger.Warn("clause indexing failed", logging.String("contract_id", c.ID.String()), logging.Err(err))
		}
	}
	if s.graph != nil {
		if err := s.graph.SaveStructure(ctx, c); err != nil {
			s.logger.Warn("structure graph write failed", logging.String("contract_id", c.ID.String()), logging.Err(err))
		}
	}
	s.publish(ctx, contract.TopicContractAnalyzed, contract.NewContractAnalyzedEvent(c))

	s.logger.Info("contract analyzed",
		logging.String("contract_id", c.ID.String()),
		logging.Int("sections", len(doc.Sections)),
		logging.Int("clauses", len(doc.Clauses)),
		logging.String("risk_level", string(risk.Level)),
	)
	return &AnalysisResult{Contract: toSummary(c), Structured: doc, Risk: risk}, nil
}

func (s *serviceImpl) failAnalysis(ctx context.Context, c *contract.Contract, cause error) {
	if err := c.FailAnalysis(cause.Error()); err != nil {
		s.logger.Error("failed to mark contract failed", logging.String("contract_id", c.ID.String()), logging.Err(err))
		return
	}
	if err := s.repo.Update(ctx, c); err != nil {
		s.logger.Error("failed to persist failure state", logging.String("contract_id", c.ID.String()), logging.Err(err))
	}
	s.publish(ctx, contract.TopicContractFailed, contract.NewContractFailedEvent(c, cause.Error()))
}

func (s *serviceImpl) Get(ctx context.Context, id uuid.UUID) (*AnalysisResult, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// The repository may hydrate metadata only; sections mark a full document.
	doc := c.Structured
	if (doc == nil || len(doc.Sections) == 0) && c.Status == contract.StatusCompleted {
		doc = s.loadStructured(ctx, c)
	}
	return &AnalysisResult{Contract: toSummary(c), Structured: doc, Risk: c.Risk}, nil
}

// loadStructured recovers the structured document from the cache, falling
// back to reassembly from the persisted sections and clauses.
func (s *serviceImpl) loadStructured(ctx context.Context, c *contract.Contract) *contract.StructuredDocument {
	if s.cache != nil {
		if doc, ok, err := s.cache.GetStructured(ctx, c.ID); err == nil && ok {
			return doc
		}
	}

	sections, err := s.repo.GetSections(ctx, c.ID)
	if err != nil || len(sections) == 0 {
		return nil
	}
	clauses, err := s.repo.GetClauses(ctx, c.ID)
	if err != nil {
		return nil
	}

	bySection := map[string][]*contract.Clause{}
	for _, cl := range clauses {
		bySection[cl.SectionID] = append(bySection[cl.SectionID], cl)
	}
	for _, sec := range sections {
		sec.Clauses = bySection[sec.ID]
	}

	meta := contract.DocumentMetadata{Filename: c.Filename}
	if c.Structured != nil {
		meta = c.Structured.Metadata
	}
	doc := &contract.StructuredDocument{
		Metadata: meta,
		Sections: sections,
		Clauses:  clauses,
	}
	if s.cache != nil {
		if err := s.cache.SetStructured(ctx, c.ID, doc, cacheTTL); err != nil {
			s.logger.Warn("cache backfill failed", logging.String("contract_id", c.ID.String()), logging.Err(err))
		}
	}
	return doc
}

func (s *serviceImpl) GetStatus(ctx context.Context, id uuid.UUID) (*StatusResult, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &StatusResult{
		ID:            c.ID.String(),
		Status:        string(c.Status),
		FailureReason: c.FailureReason,
		AnalyzedAt:    c.AnalyzedAt,
	}, nil
}

func (s *serviceImpl) List(ctx context.Context, input *ListInput) (*ListResult, error) {
	if input == nil {
		input = &ListInput{}
	}
	page := common.Pagination{Page: input.Page, PageSize: input.PageSize}
	if page.Page <= 0 {
		page.Page = 1
	}
	if page.PageSize <= 0 {
		page.PageSize = 20
	}
	if page.PageSize > 100 {
		page.PageSize = 100
	}

	filter := contract.ListFilter{
		Status:     contract.ProcessingStatus(input.Status),
		RiskLevel:  contract.RiskLevel(input.RiskLevel),
		Pagination: page,
	}
	contracts, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	summaries := make([]*ContractSummary, len(contracts))
	for i, c := range contracts {
		summaries[i] = toSummary(c)
	}
	totalPages := int((total + int64(page.PageSize) - 1) / int64(page.PageSize))
	return &ListResult{
		Contracts:  summaries,
		Total:      total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: totalPages,
	}, nil
}

// Delete removes a contract and all derived artifacts.  The repository
// delete is authoritative; failures cleaning derived stores are logged.
func (s *serviceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	cleanup := []struct {
		name string
		fn   func() error
	}{
		{"cache", func() error {
			if s.cache == nil {
				return nil
			}
			return s.cache.Invalidate(ctx, id)
		}},
		{"index", func() error {
			if s.index == nil {
				return nil
			}
			return s.index.DeleteByContract(ctx, id)
		}},
		{"vectors", func() error {
			if s.vectors == nil {
				return nil
			}
			return s.vectors.DeleteByContract(ctx, id)
		}},
		{"graph", func() error {
			if s.graph == nil {
				return nil
			}
			return s.graph.DeleteStructure(ctx, id)
		}},
		{"object store", func() error {
			if s.store == nil || c.ObjectKey == "" {
				return nil
			}
			return s.store.Delete(ctx, c.ObjectKey)
		}},
	}
	for _, step := range cleanup {
		if err := step.fn(); err != nil {
			s.logger.Warn("cleanup failed",
				logging.String("contract_id", id.String()),
				logging.String("store", step.name),
				logging.Err(err),
			)
		}
	}
	return nil
}

func (s *serviceImpl) SearchClauses(ctx context.Context, input *SearchInput) ([]*contract.ClauseHit, error) {
	if input == nil || strings.TrimSpace(input.Query) == "" {
		return nil, errors.InvalidParam("search query is required")
	}
	if s.index == nil {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "clause index not configured")
	}
	limit := input.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.index.Search(ctx, contract.ClauseQuery{
		Text:       input.Query,
		Category:   input.Category,
		RiskLevel:  contract.RiskLevel(input.RiskLevel),
		ContractID: input.ContractID,
		Limit:      limit,
	})
}

func (s *serviceImpl) SimilarClauses(ctx context.Context, vector []float32, topK int) ([]*contract.SimilarClause, error) {
	if len(vector) == 0 {
		return nil, errors.InvalidParam("query vector is required")
	}
	if s.vectors == nil {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "vector store not configured")
	}
	if topK <= 0 || topK > 100 {
		topK = 10
	}
	return s.vectors.SearchSimilar(ctx, vector, topK)
}

// IndexEmbeddings stores externally produced clause embeddings.  The vector
// count must match the contract's clause count.
func (s *serviceImpl) IndexEmbeddings(ctx context.Context, id uuid.UUID, vectors [][]float32) error {
	if s.vectors == nil {
		return errors.New(errors.ErrCodeServiceUnavailable, "vector store not configured")
	}
	clauses, err := s.repo.GetClauses(ctx, id)
	if err != nil {
		return err
	}
	if len(clauses) != len(vectors) {
		return errors.Newf(errors.ErrCodeValidation,
			"embedding count %d does not match clause count %d", len(vectors), len(clauses))
	}
	return s.vectors.UpsertEmbeddings(ctx, id, clauses, vectors)
}

func (s *serviceImpl) publish(ctx context.Context, topic string, event common.DomainEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, topic, event); err != nil {
		s.logger.Warn("event publish failed", logging.String("topic", topic), logging.Err(err))
	}
}

func toSummary(c *contract.Contract) *ContractSummary {
	if c == nil {
		return nil
	}
	summary := &ContractSummary{
		ID:            c.ID.String(),
		Filename:      c.Filename,
		Status:        string(c.Status),
		ClauseCount:   c.Structured.ClauseCount(),
		FailureReason: c.FailureReason,
		CreatedAt:     c.CreatedAt,
		AnalyzedAt:    c.AnalyzedAt,
	}
	if c.Risk != nil {
		summary.RiskLevel = string(c.Risk.Level)
	}
	return summary
}
