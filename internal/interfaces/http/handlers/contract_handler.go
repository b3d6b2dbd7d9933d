package handlers

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/clauselens/clauselens/internal/application/analysis"
	"github.com/clauselens/clauselens/internal/infrastructure/monitoring/logging"
	"github.com/clauselens/clauselens/pkg/types/common"
)

// ContractHandler serves the contract lifecycle endpoints.
type ContractHandler struct {
	service analysis.Service
	log     logging.Logger
}

// NewContractHandler builds a ContractHandler.
func NewContractHandler(service analysis.Service, log logging.Logger) *ContractHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ContractHandler{service: service, log: log}
}

type uploadRequest struct {
	Filename    string `json:"filename"`
	Text        string `json:"text"`
	ContentType string `json:"content_type"`
}

type indexEmbeddingsRequest struct {
	Vectors [][]float32 `json:"vectors"`
}

// Upload accepts a contract as JSON ({filename, text}) or as a multipart form
// with a "file" part, registers it, and returns its summary.
//
//	POST /api/v1/contracts
func (h *ContractHandler) Upload(c *gin.Context) {
	input, ok := h.parseUpload(c)
	if !ok {
		return
	}

	summary, err := h.service.Upload(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, summary)
}

func (h *ContractHandler) parseUpload(c *gin.Context) (*analysis.UploadInput, bool) {
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		fh, err := c.FormFile("file")
		if err != nil {
			respondBadRequest(c, "multipart upload requires a \"file\" part")
			return nil, false
		}
		f, err := fh.Open()
		if err != nil {
			respondBadRequest(c, "cannot open uploaded file")
			return nil, false
		}
		defer f.Close()

		text, err := io.ReadAll(f)
		if err != nil {
			respondBadRequest(c, "cannot read uploaded file")
			return nil, false
		}
		return &analysis.UploadInput{
			Filename:    fh.Filename,
			Text:        string(text),
			ContentType: fh.Header.Get("Content-Type"),
		}, true
	}

	var req uploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return nil, false
	}
	return &analysis.UploadInput{
		Filename:    req.Filename,
		Text:        req.Text,
		ContentType: req.ContentType,
	}, true
}

// Analyze runs the structuring pipeline synchronously and returns the result.
//
//	POST /api/v1/contracts/:id/analyze
func (h *ContractHandler) Analyze(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	result, err := h.service.Analyze(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

// Get returns the full analysis of a contract.
//
//	GET /api/v1/contracts/:id
func (h *ContractHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	result, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

// Status returns just the processing state, cheap enough to poll.
//
//	GET /api/v1/contracts/:id/status
func (h *ContractHandler) Status(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	status, err := h.service.GetStatus(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, status)
}

// List returns a page of contract summaries, filterable by status and risk.
//
//	GET /api/v1/contracts?status=&risk_level=&page=&page_size=
func (h *ContractHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	result, err := h.service.List(c.Request.Context(), &analysis.ListInput{
		Status:    c.Query("status"),
		RiskLevel: c.Query("risk_level"),
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondPage(c, result.Contracts, common.Pagination{
		Page:     result.Page,
		PageSize: result.PageSize,
		Total:    result.Total,
	})
}

// Delete removes a contract and all derived data.
//
//	DELETE /api/v1/contracts/:id
func (h *ContractHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"deleted": id.String()})
}

// IndexEmbeddings attaches externally computed clause embeddings so the
// similarity endpoint can serve the contract.
//
//	PUT /api/v1/contracts/:id/embeddings
func (h *ContractHandler) IndexEmbeddings(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req indexEmbeddingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	if len(req.Vectors) == 0 {
		respondBadRequest(c, "vectors are required")
		return
	}

	if err := h.service.IndexEmbeddings(c.Request.Context(), id, req.Vectors); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"indexed": len(req.Vectors)})
}
