package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/opensearch-project/opensearch-go/v3/opensearchapi"

	"github.com/clauselens/clauselens/internal/domain/contract"
	"github.com/clauselens/clauselens/internal/infrastructure/monitoring/logging"
	"github.com/clauselens/clauselens/pkg/errors"
)

const defaultSearchLimit = 20

// clauseMapping defines the clause index schema.  Text is analyzed with the
// english analyzer so "terminates" matches "termination" clauses.
const clauseMapping = `{
	"settings": {
		"number_of_shards": 1,
		"number_of_replicas": 1
	},
	"mappings": {
		"properties": {
			"contract_id": {"type": "keyword"},
			"clause_id":   {"type": "keyword"},
			"section_id":  {"type": "keyword"},
			"text":        {"type": "text", "analyzer": "english"},
			"category":    {"type": "keyword"},
			"risk_level":  {"type": "keyword"},
			"key_terms":   {"type": "keyword"},
			"merged":      {"type": "boolean"}
		}
	}
}`

// clauseDoc is the indexed representation of one clause.
type clauseDoc struct {
	ContractID string   `json:"contract_id"`
	ClauseID   string   `json:"clause_id"`
	SectionID  string   `json:"section_id"`
	Text       string   `json:"text"`
	Category   string   `json:"category"`
	RiskLevel  string   `json:"risk_level"`
	KeyTerms   []string `json:"key_terms,omitempty"`
	Merged     bool     `json:"merged"`
}

// ClauseIndex implements contract.ClauseIndex on a single OpenSearch index.
type ClauseIndex struct {
	client *opensearchapi.Client
	index  string
	log    logging.Logger
}

var _ contract.ClauseIndex = (*ClauseIndex)(nil)

// NewClauseIndex builds the index adapter and creates the index if needed.
func NewClauseIndex(ctx context.Context, client *opensearchapi.Client, indexPrefix string, log logging.Logger) (*ClauseIndex, error) {
	if indexPrefix == "" {
		indexPrefix = "clauselens-"
	}
	ci := &ClauseIndex{client: client, index: indexPrefix + "clauses", log: log}

	_, err := client.Indices.Create(ctx, opensearchapi.IndicesCreateReq{
		Index: ci.index,
		Body:  strings.NewReader(clauseMapping),
	})
	if err != nil && !strings.Contains(err.Error(), "resource_already_exists_exception") {
		return nil, errors.Wrap(err, errors.ErrCodeIndexingFailed, "create clause index")
	}
	return ci, nil
}

// IndexClauses bulk-indexes the clauses of one contract.  Document IDs are
// contractID:clauseID so re-analysis overwrites prior versions in place.
func (ci *ClauseIndex) IndexClauses(ctx context.Context, contractID uuid.UUID, clauses []*contract.Clause) error {
	if len(clauses) == 0 {
		return nil
	}

	body, err := buildBulkBody(ci.index, contractID, clauses)
	if err != nil {
		return err
	}

	resp, err := ci.client.Bulk(ctx, opensearchapi.BulkReq{Body: bytes.NewReader(body)})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeIndexingFailed, "bulk index clauses")
	}
	if resp.Errors {
		return errors.New(errors.ErrCodeIndexingFailed,
			fmt.Sprintf("bulk indexing reported item failures for contract %s", contractID))
	}

	ci.log.Debug("clauses indexed",
		logging.String("contract_id", contractID.String()),
		logging.Int("count", len(clauses)),
	)
	return nil
}

// Search runs a full-text query with optional category, risk, and contract
// filters.
func (ci *ClauseIndex) Search(ctx context.Context, q contract.ClauseQuery) ([]*contract.ClauseHit, error) {
	body, err := buildSearchBody(q)
	if err != nil {
		return nil, err
	}

	resp, err := ci.client.Search(ctx, &opensearchapi.SearchReq{
		Indices: []string{ci.index},
		Body:    bytes.NewReader(body),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSearchFailed, "search clauses")
	}

	hits := make([]*contract.ClauseHit, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		var doc clauseDoc
		if err := json.Unmarshal(h.Source, &doc); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSearchFailed, "decode search hit")
		}
		cid, err := uuid.Parse(doc.ContractID)
		if err != nil {
			continue
		}
		hits = append(hits, &contract.ClauseHit{
			ContractID: cid,
			ClauseID:   doc.ClauseID,
			SectionID:  doc.SectionID,
			Text:       doc.Text,
			Category:   doc.Category,
			Risk:       contract.RiskLevel(doc.RiskLevel),
			Score:      float64(h.Score),
		})
	}
	return hits, nil
}

// DeleteByContract removes every indexed clause of one contract.
func (ci *ClauseIndex) DeleteByContract(ctx context.Context, contractID uuid.UUID) error {
	body, err := json.Marshal(map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{"contract_id": contractID.String()},
		},
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeIndexingFailed, "marshal delete query")
	}

	_, err = ci.client.Document.DeleteByQuery(ctx, opensearchapi.DocumentDeleteByQueryReq{
		Indices: []string{ci.index},
		Body:    bytes.NewReader(body),
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeIndexingFailed, "delete clauses by contract")
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Request bodies
// ─────────────────────────────────────────────────────────────────────────────

func buildBulkBody(index string, contractID uuid.UUID, clauses []*contract.Clause) ([]byte, error) {
	var buf bytes.Buffer
	for _, cl := range clauses {
		action := map[string]interface{}{
			"index": map[string]interface{}{
				"_index": index,
				"_id":    contractID.String() + ":" + cl.ID,
			},
		}
		actionLine, err := json.Marshal(action)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeIndexingFailed, "marshal bulk action")
		}
		docLine, err := json.Marshal(clauseDoc{
			ContractID: contractID.String(),
			ClauseID:   cl.ID,
			SectionID:  cl.SectionID,
			Text:       cl.Text,
			Category:   cl.Category,
			RiskLevel:  string(cl.Risk),
			KeyTerms:   cl.KeyTerms,
			Merged:     cl.Merged,
		})
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeIndexingFailed, "marshal clause document")
		}
		buf.Write(actionLine)
		buf.WriteByte('\n')
		buf.Write(docLine)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func buildSearchBody(q contract.ClauseQuery) ([]byte, error) {
	must := []map[string]interface{}{
		{"match": map[string]interface{}{"text": q.Text}},
	}

	var filter []map[string]interface{}
	if q.Category != "" {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{"category": q.Category},
		})
	}
	if q.RiskLevel != "" {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{"risk_level": string(q.RiskLevel)},
		})
	}
	if q.ContractID != uuid.Nil {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{"contract_id": q.ContractID.String()},
		})
	}

	boolQuery := map[string]interface{}{"must": must}
	if len(filter) > 0 {
		boolQuery["filter"] = filter
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	body := map[string]interface{}{
		"size":  limit,
		"query": map[string]interface{}{"bool": boolQuery},
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSearchFailed, "marshal search query")
	}
	return data, nil
}
