package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// ContractSummary is the lightweight contract record returned by upload and
// list calls.
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

// AnalysisResult is the full analysis payload.  Structured carries the raw
// section/clause tree; decode it into your own types or inspect it as JSON.
type AnalysisResult struct {
	Contract   *ContractSummary `json:"contract"`
	Structured json.RawMessage  `json:"structured,omitempty"`
	Risk       json.RawMessage  `json:"risk,omitempty"`
}

// ContractStatus reports processing progress, cheap enough to poll.
type ContractStatus struct {
	ID            string     `json:"id"`
	Status        string     `json:"status"`
	FailureReason string     `json:"failure_reason,omitempty"`
	AnalyzedAt    *time.Time `json:"analyzed_at,omitempty"`
}

// UploadContractRequest registers a new contract.
type UploadContractRequest struct {
	Filename    string `json:"filename"`
	Text        string `json:"text"`
	ContentType string `json:"content_type,omitempty"`
}

// ListContractsRequest filters and paginates a contract listing.
type ListContractsRequest struct {
	Status    string
	RiskLevel string
	Page      int
	PageSize  int
}

// ContractList is one page of contract summaries.
type ContractList struct {
	Contracts  []*ContractSummary
	Pagination Pagination
}

// UploadContract registers a contract for analysis.
func (c *Client) UploadContract(ctx context.Context, req *UploadContractRequest) (*ContractSummary, error) {
	var summary ContractSummary
	if err := c.post(ctx, "/api/v1/contracts", req, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// AnalyzeContract runs the structuring pipeline synchronously.
func (c *Client) AnalyzeContract(ctx context.Context, id string) (*AnalysisResult, error) {
	var result AnalysisResult
	if err := c.post(ctx, fmt.Sprintf("/api/v1/contracts/%s/analyze", url.PathEscape(id)), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetContract fetches a contract's full analysis.
func (c *Client) GetContract(ctx context.Context, id string) (*AnalysisResult, error) {
	var result AnalysisResult
	if err := c.get(ctx, fmt.Sprintf("/api/v1/contracts/%s", url.PathEscape(id)), &result, nil); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetContractStatus fetches just the processing state.
func (c *Client) GetContractStatus(ctx context.Context, id string) (*ContractStatus, error) {
	var status ContractStatus
	if err := c.get(ctx, fmt.Sprintf("/api/v1/contracts/%s/status", url.PathEscape(id)), &status, nil); err != nil {
		return nil, err
	}
	return &status, nil
}

// ListContracts returns a page of contract summaries.
func (c *Client) ListContracts(ctx context.Context, req *ListContractsRequest) (*ContractList, error) {
	q := url.Values{}
	if req != nil {
		if req.Status != "" {
			q.Set("status", req.Status)
		}
		if req.RiskLevel != "" {
			q.Set("risk_level", req.RiskLevel)
		}
		if req.Page > 0 {
			q.Set("page", strconv.Itoa(req.Page))
		}
		if req.PageSize > 0 {
			q.Set("page_size", strconv.Itoa(req.PageSize))
		}
	}

	path := "/api/v1/contracts"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}

	list := &ContractList{}
	if err := c.get(ctx, path, &list.Contracts, &list.Pagination); err != nil {
		return nil, err
	}
	return list, nil
}

// DeleteContract removes a contract and all derived data.
func (c *Client) DeleteContract(ctx context.Context, id string) error {
	return c.del(ctx, fmt.Sprintf("/api/v1/contracts/%s", url.PathEscape(id)))
}

// IndexEmbeddings attaches clause embeddings computed outside the server.
func (c *Client) IndexEmbeddings(ctx context.Context, id string, vectors [][]float32) error {
	body := map[string]interface{}{"vectors": vectors}
	return c.put(ctx, fmt.Sprintf("/api/v1/contracts/%s/embeddings", url.PathEscape(id)), body, nil)
}
