//go:build integration

// Package integration exercises the analysis pipeline end to end against a
// real PostgreSQL instance.  Requires Docker; run with
//
//	go test -tags integration ./test/integration/...
package integration

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clauselens/clauselens/internal/application/analysis"
	"github.com/clauselens/clauselens/internal/domain/contract"
	"github.com/clauselens/clauselens/internal/infrastructure/database/postgres/repositories"
	"github.com/clauselens/clauselens/internal/infrastructure/monitoring/logging"
	"github.com/clauselens/clauselens/internal/structuring"
	"github.com/clauselens/clauselens/pkg/errors"
)

const sampleContract = `SERVICE AGREEMENT

1. Payment Terms
The Client shall pay all invoices within thirty (30) days of receipt.
Late payments shall accrue interest at a rate of 1.5% per month.

2. Termination
Either party may terminate this Agreement with sixty (60) days written notice.
Upon termination, the Client must pay for all services rendered to date.

3. Limitation of Liability
In no event shall either party be liable for indirect or consequential damages.
The total liability under this Agreement shall not exceed the fees paid.
`

func newService(t *testing.T, extra func(*analysis.Deps)) analysis.Service {
	t.Helper()

	pool := startPostgres(t)
	log := logging.NewNopLogger()

	deps := analysis.Deps{
		Repo:   repositories.NewContractRepository(pool, log),
		Engine: structuring.NewEngine(structuring.Options{Logger: log}),
		Logger: log,
	}
	if extra != nil {
		extra(&deps)
	}
	return analysis.NewService(deps)
}

func TestAnalysisPipeline(t *testing.T) {
	cache := newMemCache()
	index := newMemIndex()
	store := newMemStore()
	pub := &memPublisher{}

	svc := newService(t, func(d *analysis.Deps) {
		d.Cache = cache
		d.Index = index
		d.Store = store
		d.Events = pub
	})
	ctx := context.Background()

	// Upload.
	summary, err := svc.Upload(ctx, &analysis.UploadInput{
		Filename: "service-agreement.txt",
		Text:     sampleContract,
	})
	require.NoError(t, err)
	assert.Equal(t, string(contract.StatusUploaded), summary.Status)

	id, err := uuid.Parse(summary.ID)
	require.NoError(t, err)

	// The original document landed in object storage.
	obj, err := store.Get(ctx, "contracts/"+summary.ID+"/service-agreement.txt")
	require.NoError(t, err)
	obj.Close()

	// Analyze.
	result, err := svc.Analyze(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, result.Structured)
	require.NotNil(t, result.Risk)
	assert.NotEmpty(t, result.Structured.Sections)
	assert.NotEmpty(t, result.Structured.Clauses)
	assert.Equal(t, string(contract.StatusCompleted), result.Contract.Status)

	// Status reflects the completed run.
	status, err := svc.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, string(contract.StatusCompleted), status.Status)
	require.NotNil(t, status.AnalyzedAt)

	// Get serves the persisted result.
	got, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Len(t, got.Structured.Clauses, len(result.Structured.Clauses))

	// Listing by status finds the contract.
	list, err := svc.List(ctx, &analysis.ListInput{
		Status: string(contract.StatusCompleted), Page: 1, PageSize: 10,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, list.Total)

	// Clauses were indexed for full-text search.
	hits, err := svc.SearchClauses(ctx, &analysis.SearchInput{Query: "terminate", Limit: 10})
	require.NoError(t, err)
	assert.NotEmpty(t, hits)

	// Both lifecycle events were published.
	topics := pub.published()
	assert.Contains(t, topics, contract.TopicContractUploaded)
	assert.Contains(t, topics, contract.TopicContractAnalyzed)

	// Delete removes the contract and its derived data.
	require.NoError(t, svc.Delete(ctx, id))
	_, err = svc.GetStatus(ctx, id)
	assert.True(t, errors.IsNotFound(err))
}

func TestAnalysisPipeline_AnalyzeUnknownContract(t *testing.T) {
	svc := newService(t, nil)

	_, err := svc.Analyze(context.Background(), uuid.New())
	assert.True(t, errors.IsNotFound(err))
}

func TestContractRepository_RoundTrip(t *testing.T) {
	pool := startPostgres(t)
	log := logging.NewNopLogger()
	repo := repositories.NewContractRepository(pool, log)
	ctx := context.Background()

	c, err := contract.NewContract("nda.txt", "Confidential information stays confidential.")
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, c))

	// Duplicate create violates the primary key.
	assert.Error(t, repo.Create(ctx, c))

	loaded, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Filename, loaded.Filename)
	assert.Equal(t, contract.StatusUploaded, loaded.Status)

	// Persist a structured document with sections and clauses.
	require.NoError(t, loaded.UpdateStatus(contract.StatusProcessing))
	doc := &contract.StructuredDocument{
		Sections: []*contract.Section{
			{ID: "sec-1", Title: "Confidentiality", Content: "All information is confidential.", Level: 1},
		},
		Clauses: []*contract.Clause{
			{
				ID: "cl-1", SectionID: "sec-1",
				Text:     "All information is confidential.",
				Category: "confidentiality", Risk: contract.RiskMedium,
			},
		},
	}
	risk := &contract.RiskAssessment{Score: 0.4, Level: contract.RiskMedium, TotalClauses: 1}
	require.NoError(t, loaded.CompleteAnalysis(doc, risk))
	require.NoError(t, repo.SaveStructured(ctx, loaded))

	sections, err := repo.GetSections(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, "Confidentiality", sections[0].Title)

	clauses, err := repo.GetClauses(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, clauses, 1)
	assert.Equal(t, contract.RiskMedium, clauses[0].Risk)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, counts[contract.StatusCompleted])

	// Delete cascades to sections and clauses.
	require.NoError(t, repo.Delete(ctx, c.ID))
	sections, err = repo.GetSections(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, sections)

	_, err = repo.GetByID(ctx, c.ID)
	assert.True(t, errors.IsNotFound(err))
}
