package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clauselens/clauselens/internal/application/analysis"
	"github.com/clauselens/clauselens/internal/infrastructure/monitoring/logging"
)

// SearchHandler serves clause search endpoints.
type SearchHandler struct {
	service analysis.Service
	log     logging.Logger
}

// NewSearchHandler builds a SearchHandler.
func NewSearchHandler(service analysis.Service, log logging.Logger) *SearchHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &SearchHandler{service: service, log: log}
}

type searchRequest struct {
	Query      string `json:"query"`
	Category   string `json:"category"`
	RiskLevel  string `json:"risk_level"`
	ContractID string `json:"contract_id"`
	Limit      int    `json:"limit"`
}

type similarRequest struct {
	Vector []float32 `json:"vector"`
	TopK   int       `json:"top_k"`
}

// Search runs full-text clause search with optional category, risk and
// contract filters.
//
//	POST /api/v1/clauses/search
func (h *SearchHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	input := &analysis.SearchInput{
		Query:     req.Query,
		Category:  req.Category,
		RiskLevel: req.RiskLevel,
		Limit:     req.Limit,
	}
	if req.ContractID != "" {
		id, err := uuid.Parse(req.ContractID)
		if err != nil {
			respondBadRequest(c, "invalid contract_id")
			return
		}
		input.ContractID = id
	}

	hits, err := h.service.SearchClauses(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, hits)
}

// Similar returns the clauses nearest to an embedding vector.
//
//	POST /api/v1/clauses/similar
func (h *SearchHandler) Similar(c *gin.Context) {
	var req similarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	if len(req.Vector) == 0 {
		respondBadRequest(c, "vector is required")
		return
	}

	matches, err := h.service.SimilarClauses(c.Request.Context(), req.Vector, req.TopK)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, matches)
}
