package analysis

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clauselens/clauselens/internal/domain/contract"
	apperrors "github.com/clauselens/clauselens/pkg/errors"
	"github.com/clauselens/clauselens/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fakes
// ─────────────────────────────────────────────────────────────────────────────

type fakeRepo struct {
	contracts map[uuid.UUID]*contract.Contract
	sections  map[uuid.UUID][]*contract.Section
	clauses   map[uuid.UUID][]*contract.Clause
	saved     int
	updated   int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		contracts: map[uuid.UUID]*contract.Contract{},
		sections:  map[uuid.UUID][]*contract.Section{},
		clauses:   map[uuid.UUID][]*contract.Clause{},
	}
}

func (r *fakeRepo) Create(_ context.Context, c *contract.Contract) error {
	r.contracts[c.ID] = c
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*contract.Contract, error) {
	c, ok := r.contracts[id]
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodeContractNotFound, "contract not found")
	}
	return c, nil
}

func (r *fakeRepo) Update(_ context.Context, c *contract.Contract) error {
	r.contracts[c.ID] = c
	r.updated++
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.contracts, id)
	return nil
}

func (r *fakeRepo) List(_ context.Context, _ contract.ListFilter) ([]*contract.Contract, int64, error) {
	var out []*contract.Contract
	for _, c := range r.contracts {
		out = append(out, c)
	}
	return out, int64(len(out)), nil
}

func (r *fakeRepo) CountByStatus(_ context.Context) (map[contract.ProcessingStatus]int64, error) {
	counts := map[contract.ProcessingStatus]int64{}
	for _, c := range r.contracts {
		counts[c.Status]++
	}
	return counts, nil
}

func (r *fakeRepo) SaveStructured(_ context.Context, c *contract.Contract) error {
	r.contracts[c.ID] = c
	if c.Structured != nil {
		r.sections[c.ID] = c.Structured.Sections
		r.clauses[c.ID] = c.Structured.Clauses
	}
	r.saved++
	return nil
}

func (r *fakeRepo) GetClauses(_ context.Context, id uuid.UUID) ([]*contract.Clause, error) {
	return r.clauses[id], nil
}

func (r *fakeRepo) GetSections(_ context.Context, id uuid.UUID) ([]*contract.Section, error) {
	return r.sections[id], nil
}

type fakeCache struct {
	docs        map[uuid.UUID]*contract.StructuredDocument
	sets        int
	invalidated int
	setErr      error
}

func newFakeCache() *fakeCache {
	return &fakeCache{docs: map[uuid.UUID]*contract.StructuredDocument{}}
}

func (f *fakeCache) GetStructured(_ context.Context, id uuid.UUID) (*contract.StructuredDocument, bool, error) {
	doc, ok := f.docs[id]
	return doc, ok, nil
}

func (f *fakeCache) SetStructured(_ context.Context, id uuid.UUID, doc *contract.StructuredDocument, _ time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.docs[id] = doc
	f.sets++
	return nil
}

func (f *fakeCache) Invalidate(_ context.Context, id uuid.UUID) error {
	delete(f.docs, id)
	f.invalidated++
	return nil
}

type fakeIndex struct {
	indexed map[uuid.UUID][]*contract.Clause
	hits    []*contract.ClauseHit
	deleted int
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{indexed: map[uuid.UUID][]*contract.Clause{}}
}

func (f *fakeIndex) IndexClauses(_ context.Context, id uuid.UUID, clauses []*contract.Clause) error {
	f.indexed[id] = clauses
	return nil
}

func (f *fakeIndex) Search(_ context.Context, _ contract.ClauseQuery) ([]*contract.ClauseHit, error) {
	return f.hits, nil
}

func (f *fakeIndex) DeleteByContract(_ context.Context, id uuid.UUID) error {
	delete(f.indexed, id)
	f.deleted++
	return nil
}

type fakeVectors struct {
	upserts int
	deleted int
	similar []*contract.SimilarClause
}

func (f *fakeVectors) UpsertEmbeddings(_ context.Context, _ uuid.UUID, _ []*contract.Clause, _ [][]float32) error {
	f.upserts++
	return nil
}

func (f *fakeVectors) SearchSimilar(_ context.Context, _ []float32, _ int) ([]*contract.SimilarClause, error) {
	return f.similar, nil
}

func (f *fakeVectors) DeleteByContract(_ context.Context, _ uuid.UUID) error {
	f.deleted++
	return nil
}

type fakeStore struct {
	objects map[string][]byte
	deleted []string
}

func newFakeStore() *fakeStore { return &fakeStore{objects: map[string][]byte{}} }

func (f *fakeStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.objects[key] = data
	return nil
}

func (f *fakeStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, apperrors.NotFound("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStore) PresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://example.test/" + key, nil
}

type fakeGraph struct {
	saved   int
	deleted int
}

func (f *fakeGraph) SaveStructure(_ context.Context, _ *contract.Contract) error {
	f.saved++
	return nil
}

func (f *fakeGraph) DeleteStructure(_ context.Context, _ uuid.UUID) error {
	f.deleted++
	return nil
}

func (f *fakeGraph) RelatedSections(_ context.Context, _ contract.SemanticGroup, _ int) ([]*contract.Section, error) {
	return nil, nil
}

type fakeEvents struct {
	topics []string
}

func (f *fakeEvents) Publish(_ context.Context, topic string, _ common.DomainEvent) error {
	f.topics = append(f.topics, topic)
	return nil
}

func (f *fakeEvents) Close() error { return nil }

type fakeEngine struct {
	doc *contract.StructuredDocument
	err error
}

func (f *fakeEngine) StructureDocument(_ context.Context, _ string, meta contract.DocumentMetadata) (*contract.StructuredDocument, error) {
	if f.err != nil {
		return nil, f.err
	}
	doc := *f.doc
	doc.Metadata = meta
	return &doc, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Harness
// ─────────────────────────────────────────────────────────────────────────────

type harness struct {
	svc     Service
	repo    *fakeRepo
	cache   *fakeCache
	index   *fakeIndex
	vectors *fakeVectors
	store   *fakeStore
	graph   *fakeGraph
	events  *fakeEvents
	engine  *fakeEngine
}

func sampleDoc() *contract.StructuredDocument {
	sec := &contract.Section{ID: "S1", Title: "Payment", Level: 1}
	clauses := []*contract.Clause{
		{ID: "S1_C1", SectionID: "S1", Text: "Payment is due in thirty days.", Category: "payment_terms", Risk: contract.RiskLow},
		{ID: "S1_C2", SectionID: "S1", Text: "Supplier accepts unlimited liability for defects.", Category: "general", Risk: contract.RiskHigh},
	}
	sec.Clauses = clauses
	return &contract.StructuredDocument{Sections: []*contract.Section{sec}, Clauses: clauses}
}

func newHarness() *harness {
	h := &harness{
		repo:    newFakeRepo(),
		cache:   newFakeCache(),
		index:   newFakeIndex(),
		vectors: &fakeVectors{},
		store:   newFakeStore(),
		graph:   &fakeGraph{},
		events:  &fakeEvents{},
		engine:  &fakeEngine{doc: sampleDoc()},
	}
	h.svc = NewService(Deps{
		Repo:    h.repo,
		Cache:   h.cache,
		Index:   h.index,
		Vectors: h.vectors,
		Store:   h.store,
		Graph:   h.graph,
		Events:  h.events,
		Engine:  h.engine,
	})
	return h
}

func (h *harness) upload(t *testing.T) uuid.UUID {
	t.Helper()
	summary, err := h.svc.Upload(context.Background(), &UploadInput{
		Filename: "msa.txt",
		Text:     "The parties agree to the terms herein.",
	})
	require.NoError(t, err)
	id, err := uuid.Parse(summary.ID)
	require.NoError(t, err)
	return id
}

// ─────────────────────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestUpload(t *testing.T) {
	h := newHarness()
	id := h.upload(t)

	c := h.repo.contracts[id]
	require.NotNil(t, c)
	assert.Equal(t, contract.StatusUploaded, c.Status)
	assert.NotEmpty(t, c.ObjectKey)
	assert.Contains(t, h.store.objects, c.ObjectKey)
	assert.Equal(t, []string{contract.TopicContractUploaded}, h.events.topics)
}

func TestUpload_EmptyText(t *testing.T) {
	h := newHarness()
	_, err := h.svc.Upload(context.Background(), &UploadInput{Filename: "x.txt", Text: "   "})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeContractEmptyText))
}

func TestUpload_MissingFilename(t *testing.T) {
	h := newHarness()
	_, err := h.svc.Upload(context.Background(), &UploadInput{Text: "some contract text"})
	assert.Error(t, err)
}

func TestAnalyze(t *testing.T) {
	h := newHarness()
	id := h.upload(t)

	result, err := h.svc.Analyze(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, string(contract.StatusCompleted), result.Contract.Status)
	require.NotNil(t, result.Risk)
	assert.Equal(t, 2, result.Risk.TotalClauses)
	assert.Equal(t, 1, result.Risk.HighRiskCount)

	assert.Equal(t, 1, h.repo.saved)
	assert.Equal(t, 1, h.cache.sets)
	assert.Len(t, h.index.indexed[id], 2)
	assert.Equal(t, 1, h.graph.saved)
	assert.Contains(t, h.events.topics, contract.TopicContractAnalyzed)
}

func TestAnalyze_EngineFailure(t *testing.T) {
	h := newHarness()
	id := h.upload(t)
	h.engine.err = apperrors.New(apperrors.ErrCodeStructuringFailed, "boom")

	_, err := h.svc.Analyze(context.Background(), id)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeStructuringFailed))

	c := h.repo.contracts[id]
	assert.Equal(t, contract.StatusFailed, c.Status)
	assert.NotEmpty(t, c.FailureReason)
	assert.Contains(t, h.events.topics, contract.TopicContractFailed)
}

func TestAnalyze_CacheFailureIsNonFatal(t *testing.T) {
	h := newHarness()
	id := h.upload(t)
	h.cache.setErr = apperrors.New(apperrors.ErrCodeCacheError, "redis down")

	_, err := h.svc.Analyze(context.Background(), id)
	assert.NoError(t, err)
	assert.Equal(t, contract.StatusCompleted, h.repo.contracts[id].Status)
}

func TestAnalyze_NotFound(t *testing.T) {
	h := newHarness()
	_, err := h.svc.Analyze(context.Background(), uuid.New())
	assert.True(t, apperrors.IsNotFound(err))
}

func TestGet_ReassemblesFromRepository(t *testing.T) {
	h := newHarness()
	id := h.upload(t)
	_, err := h.svc.Analyze(context.Background(), id)
	require.NoError(t, err)

	// Simulate a fresh load: the aggregate row carries no document and the
	// cache is cold, so Get must reassemble from the persisted rows.
	h.repo.contracts[id].Structured = nil
	h.cache.docs = map[uuid.UUID]*contract.StructuredDocument{}

	result, err := h.svc.Get(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, result.Structured)
	assert.Len(t, result.Structured.Clauses, 2)
	assert.Contains(t, h.cache.docs, id, "reassembled document should backfill the cache")
}

func TestGet_ServesFromCache(t *testing.T) {
	h := newHarness()
	id := h.upload(t)
	_, err := h.svc.Analyze(context.Background(), id)
	require.NoError(t, err)

	c := h.repo.contracts[id]
	c.Structured = nil

	result, err := h.svc.Get(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, result.Structured)
	assert.Len(t, result.Structured.Clauses, 2)
}

func TestGetStatus(t *testing.T) {
	h := newHarness()
	id := h.upload(t)

	status, err := h.svc.GetStatus(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, string(contract.StatusUploaded), status.Status)
}

func TestList_DefaultsPagination(t *testing.T) {
	h := newHarness()
	h.upload(t)
	h.upload(t)

	result, err := h.svc.List(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Total)
	assert.Equal(t, 1, result.Page)
	assert.Equal(t, 20, result.PageSize)
	assert.Equal(t, 1, result.TotalPages)
}

func TestDelete_CleansDerivedStores(t *testing.T) {
	h := newHarness()
	id := h.upload(t)
	_, err := h.svc.Analyze(context.Background(), id)
	require.NoError(t, err)

	require.NoError(t, h.svc.Delete(context.Background(), id))

	assert.NotContains(t, h.repo.contracts, id)
	assert.Equal(t, 1, h.cache.invalidated)
	assert.Equal(t, 1, h.index.deleted)
	assert.Equal(t, 1, h.vectors.deleted)
	assert.Equal(t, 1, h.graph.deleted)
	assert.Len(t, h.store.deleted, 1)
}

func TestSearchClauses(t *testing.T) {
	h := newHarness()
	h.index.hits = []*contract.ClauseHit{{ClauseID: "S1_C1", Text: "Payment is due.", Score: 1.2}}

	hits, err := h.svc.SearchClauses(context.Background(), &SearchInput{Query: "payment"})
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	_, err = h.svc.SearchClauses(context.Background(), &SearchInput{Query: "  "})
	assert.Error(t, err)
}

func TestSimilarClauses(t *testing.T) {
	h := newHarness()
	h.vectors.similar = []*contract.SimilarClause{{ClauseID: "S1_C2", Distance: 0.12}}

	similar, err := h.svc.SimilarClauses(context.Background(), []float32{0.1, 0.2}, 5)
	require.NoError(t, err)
	assert.Len(t, similar, 1)

	_, err = h.svc.SimilarClauses(context.Background(), nil, 5)
	assert.Error(t, err)
}

func TestIndexEmbeddings(t *testing.T) {
	h := newHarness()
	id := h.upload(t)
	_, err := h.svc.Analyze(context.Background(), id)
	require.NoError(t, err)

	err = h.svc.IndexEmbeddings(context.Background(), id, [][]float32{{0.1}, {0.2}})
	require.NoError(t, err)
	assert.Equal(t, 1, h.vectors.upserts)

	err = h.svc.IndexEmbeddings(context.Background(), id, [][]float32{{0.1}})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
}
