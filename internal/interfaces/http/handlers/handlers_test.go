package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clauselens/clauselens/internal/application/analysis"
	"github.com/clauselens/clauselens/internal/domain/contract"
	"github.com/clauselens/clauselens/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeService lets each test script the application layer.
type fakeService struct {
	uploadFn  func(ctx context.Context, input *analysis.UploadInput) (*analysis.ContractSummary, error)
	analyzeFn func(ctx context.Context, id uuid.UUID) (*analysis.AnalysisResult, error)
	getFn     func(ctx context.Context, id uuid.UUID) (*analysis.AnalysisResult, error)
	statusFn  func(ctx context.Context, id uuid.UUID) (*analysis.StatusResult, error)
	listFn    func(ctx context.Context, input *analysis.ListInput) (*analysis.ListResult, error)
	deleteFn  func(ctx context.Context, id uuid.UUID) error
	searchFn  func(ctx context.Context, input *analysis.SearchInput) ([]*contract.ClauseHit, error)
	similarFn func(ctx context.Context, vector []float32, topK int) ([]*contract.SimilarClause, error)
	indexFn   func(ctx context.Context, id uuid.UUID, vectors [][]float32) error
}

func (f *fakeService) Upload(ctx context.Context, input *analysis.UploadInput) (*analysis.ContractSummary, error) {
	return f.uploadFn(ctx, input)
}

func (f *fakeService) Analyze(ctx context.Context, id uuid.UUID) (*analysis.AnalysisResult, error) {
	return f.analyzeFn(ctx, id)
}

func (f *fakeService) Get(ctx context.Context, id uuid.UUID) (*analysis.AnalysisResult, error) {
	return f.getFn(ctx, id)
}

func (f *fakeService) GetStatus(ctx context.Context, id uuid.UUID) (*analysis.StatusResult, error) {
	return f.statusFn(ctx, id)
}

func (f *fakeService) List(ctx context.Context, input *analysis.ListInput) (*analysis.ListResult, error) {
	return f.listFn(ctx, input)
}

func (f *fakeService) Delete(ctx context.Context, id uuid.UUID) error {
	return f.deleteFn(ctx, id)
}

func (f *fakeService) SearchClauses(ctx context.Context, input *analysis.SearchInput) ([]*contract.ClauseHit, error) {
	return f.searchFn(ctx, input)
}

func (f *fakeService) SimilarClauses(ctx context.Context, vector []float32, topK int) ([]*contract.SimilarClause, error) {
	return f.similarFn(ctx, vector, topK)
}

func (f *fakeService) IndexEmbeddings(ctx context.Context, id uuid.UUID, vectors [][]float32) error {
	return f.indexFn(ctx, id, vectors)
}

func contractRouter(svc analysis.Service) *gin.Engine {
	h := NewContractHandler(svc, nil)
	r := gin.New()
	r.POST("/contracts", h.Upload)
	r.GET("/contracts", h.List)
	r.GET("/contracts/:id", h.Get)
	r.DELETE("/contracts/:id", h.Delete)
	r.POST("/contracts/:id/analyze", h.Analyze)
	r.GET("/contracts/:id/status", h.Status)
	r.PUT("/contracts/:id/embeddings", h.IndexEmbeddings)
	return r
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Pagination *struct {
		Page     int   `json:"page"`
		PageSize int   `json:"page_size"`
		Total    int64 `json:"total"`
	} `json:"pagination"`
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

// ─────────────────────────────────────────────────────────────────────────────
// Upload
// ─────────────────────────────────────────────────────────────────────────────

func TestUpload_JSON(t *testing.T) {
	var captured *analysis.UploadInput
	svc := &fakeService{
		uploadFn: func(_ context.Context, input *analysis.UploadInput) (*analysis.ContractSummary, error) {
			captured = input
			return &analysis.ContractSummary{ID: "c1", Filename: input.Filename, Status: "uploaded"}, nil
		},
	}

	rec, env := doJSON(t, contractRouter(svc), http.MethodPost, "/contracts", uploadRequest{
		Filename: "msa.txt",
		Text:     "This Agreement is made between the parties.",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, env.Success)
	require.NotNil(t, captured)
	assert.Equal(t, "msa.txt", captured.Filename)

	var summary analysis.ContractSummary
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, "uploaded", summary.Status)
}

func TestUpload_Multipart(t *testing.T) {
	var captured *analysis.UploadInput
	svc := &fakeService{
		uploadFn: func(_ context.Context, input *analysis.UploadInput) (*analysis.ContractSummary, error) {
			captured = input
			return &analysis.ContractSummary{ID: "c1", Filename: input.Filename}, nil
		},
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "nda.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("The receiving party shall keep information confidential."))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/contracts", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	contractRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, captured)
	assert.Equal(t, "nda.txt", captured.Filename)
	assert.Contains(t, captured.Text, "confidential")
}

func TestUpload_ServiceErrorMapsToStatus(t *testing.T) {
	svc := &fakeService{
		uploadFn: func(context.Context, *analysis.UploadInput) (*analysis.ContractSummary, error) {
			return nil, errors.New(errors.ErrCodeContractEmptyText, "contract text is required")
		},
	}

	rec, env := doJSON(t, contractRouter(svc), http.MethodPost, "/contracts", uploadRequest{Filename: "x"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, string(errors.ErrCodeContractEmptyText), env.Error.Code)
	assert.Equal(t, "contract text is required", env.Error.Message)
}

// ─────────────────────────────────────────────────────────────────────────────
// Get / Status / Delete
// ─────────────────────────────────────────────────────────────────────────────

func TestGet_InvalidID(t *testing.T) {
	rec, env := doJSON(t, contractRouter(&fakeService{}), http.MethodGet, "/contracts/not-a-uuid", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, string(errors.ErrCodeBadRequest), env.Error.Code)
}

func TestGet_NotFound(t *testing.T) {
	svc := &fakeService{
		getFn: func(context.Context, uuid.UUID) (*analysis.AnalysisResult, error) {
			return nil, errors.New(errors.ErrCodeContractNotFound, "contract not found")
		},
	}

	rec, env := doJSON(t, contractRouter(svc), http.MethodGet, "/contracts/"+uuid.NewString(), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, string(errors.ErrCodeContractNotFound), env.Error.Code)
}

func TestStatus_OK(t *testing.T) {
	id := uuid.New()
	svc := &fakeService{
		statusFn: func(_ context.Context, got uuid.UUID) (*analysis.StatusResult, error) {
			assert.Equal(t, id, got)
			return &analysis.StatusResult{ID: got.String(), Status: "processing"}, nil
		},
	}

	rec, env := doJSON(t, contractRouter(svc), http.MethodGet, "/contracts/"+id.String()+"/status", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var status analysis.StatusResult
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, "processing", status.Status)
}

func TestDelete_OK(t *testing.T) {
	deleted := uuid.Nil
	svc := &fakeService{
		deleteFn: func(_ context.Context, id uuid.UUID) error {
			deleted = id
			return nil
		},
	}

	id := uuid.New()
	rec, _ := doJSON(t, contractRouter(svc), http.MethodDelete, "/contracts/"+id.String(), nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, deleted)
}

// ─────────────────────────────────────────────────────────────────────────────
// List
// ─────────────────────────────────────────────────────────────────────────────

func TestList_PassesFiltersAndPaginates(t *testing.T) {
	var captured *analysis.ListInput
	svc := &fakeService{
		listFn: func(_ context.Context, input *analysis.ListInput) (*analysis.ListResult, error) {
			captured = input
			return &analysis.ListResult{
				Contracts: []*analysis.ContractSummary{{ID: "c1"}, {ID: "c2"}},
				Total:     12, Page: 2, PageSize: 2, TotalPages: 6,
			}, nil
		},
	}

	rec, env := doJSON(t, contractRouter(svc), http.MethodGet,
		"/contracts?status=completed&risk_level=high&page=2&page_size=2", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured)
	assert.Equal(t, "completed", captured.Status)
	assert.Equal(t, "high", captured.RiskLevel)
	assert.Equal(t, 2, captured.Page)

	require.NotNil(t, env.Pagination)
	assert.Equal(t, int64(12), env.Pagination.Total)
	assert.Equal(t, 2, env.Pagination.Page)
}

// ─────────────────────────────────────────────────────────────────────────────
// Embeddings
// ─────────────────────────────────────────────────────────────────────────────

func TestIndexEmbeddings_RequiresVectors(t *testing.T) {
	rec, env := doJSON(t, contractRouter(&fakeService{}), http.MethodPut,
		"/contracts/"+uuid.NewString()+"/embeddings", indexEmbeddingsRequest{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(errors.ErrCodeBadRequest), env.Error.Code)
}

func TestIndexEmbeddings_OK(t *testing.T) {
	svc := &fakeService{
		indexFn: func(_ context.Context, _ uuid.UUID, vectors [][]float32) error {
			assert.Len(t, vectors, 2)
			return nil
		},
	}

	rec, _ := doJSON(t, contractRouter(svc), http.MethodPut,
		"/contracts/"+uuid.NewString()+"/embeddings",
		indexEmbeddingsRequest{Vectors: [][]float32{{0.1, 0.2}, {0.3, 0.4}}})

	assert.Equal(t, http.StatusOK, rec.Code)
}
