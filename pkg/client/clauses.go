package client

import "context"

// ClauseSearchRequest is a full-text clause search.
type ClauseSearchRequest struct {
	Query      string `json:"query"`
	Category   string `json:"category,omitempty"`
	RiskLevel  string `json:"risk_level,omitempty"`
	ContractID string `json:"contract_id,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

// ClauseHit is a single full-text search result.
type ClauseHit struct {
	ContractID string  `json:"contract_id"`
	ClauseID   string  `json:"clause_id"`
	SectionID  string  `json:"section_id"`
	Text       string  `json:"text"`
	Category   string  `json:"category"`
	RiskLevel  string  `json:"risk_level"`
	Score      float64 `json:"score"`
}

// SimilarClausesRequest is a vector-similarity search.
type SimilarClausesRequest struct {
	Vector []float32 `json:"vector"`
	TopK   int       `json:"top_k,omitempty"`
}

// SimilarClause is a vector-similarity search result.
type SimilarClause struct {
	ContractID string  `json:"contract_id"`
	ClauseID   string  `json:"clause_id"`
	Text       string  `json:"text"`
	Distance   float64 `json:"distance"`
}

// SearchClauses runs full-text clause search across analyzed contracts.
func (c *Client) SearchClauses(ctx context.Context, req *ClauseSearchRequest) ([]*ClauseHit, error) {
	var hits []*ClauseHit
	if err := c.post(ctx, "/api/v1/clauses/search", req, &hits); err != nil {
		return nil, err
	}
	return hits, nil
}

// SimilarClauses returns the clauses nearest to an embedding vector.
func (c *Client) SimilarClauses(ctx context.Context, req *SimilarClausesRequest) ([]*SimilarClause, error) {
	var matches []*SimilarClause
	if err := c.post(ctx, "/api/v1/clauses/similar", req, &matches); err != nil {
		return nil, err
	}
	return matches, nil
}
