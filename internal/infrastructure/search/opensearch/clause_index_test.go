package opensearch

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clauselens/clauselens/internal/domain/contract"
)

func TestBuildBulkBody(t *testing.T) {
	contractID := uuid.New()
	clauses := []*contract.Clause{
		{ID: "S1_C1", SectionID: "S1", Text: "Payment is due within thirty days.",
			Category: "payment_terms", Risk: contract.RiskLow, KeyTerms: []string{"thirty days"}},
		{ID: "S2_C1", SectionID: "S2", Text: "Either party may terminate for cause.",
			Category: "termination_cause", Risk: contract.RiskMedium, Merged: true},
	}

	body, err := buildBulkBody("clauselens-clauses", contractID, clauses)
	require.NoError(t, err)

	// NDJSON: action line then document line, per clause.
	scanner := bufio.NewScanner(bytes.NewReader(body))
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.Len(t, lines, 4)

	var action struct {
		Index struct {
			Index string `json:"_index"`
			ID    string `json:"_id"`
		} `json:"index"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &action))
	assert.Equal(t, "clauselens-clauses", action.Index.Index)
	assert.Equal(t, contractID.String()+":S1_C1", action.Index.ID)

	var doc clauseDoc
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &doc))
	assert.Equal(t, "payment_terms", doc.Category)
	assert.Equal(t, "low", doc.RiskLevel)
	assert.Equal(t, []string{"thirty days"}, doc.KeyTerms)

	require.NoError(t, json.Unmarshal([]byte(lines[3]), &doc))
	assert.True(t, doc.Merged)
}

func TestBuildSearchBody(t *testing.T) {
	contractID := uuid.New()
	body, err := buildSearchBody(contract.ClauseQuery{
		Text:       "limitation of liability",
		Category:   "liability_limitation",
		RiskLevel:  contract.RiskHigh,
		ContractID: contractID,
		Limit:      5,
	})
	require.NoError(t, err)

	var q struct {
		Size  int `json:"size"`
		Query struct {
			Bool struct {
				Must   []map[string]map[string]string `json:"must"`
				Filter []map[string]map[string]string `json:"filter"`
			} `json:"bool"`
		} `json:"query"`
	}
	require.NoError(t, json.Unmarshal(body, &q))

	assert.Equal(t, 5, q.Size)
	require.Len(t, q.Query.Bool.Must, 1)
	assert.Equal(t, "limitation of liability", q.Query.Bool.Must[0]["match"]["text"])
	require.Len(t, q.Query.Bool.Filter, 3)
	assert.Equal(t, "liability_limitation", q.Query.Bool.Filter[0]["term"]["category"])
	assert.Equal(t, "high", q.Query.Bool.Filter[1]["term"]["risk_level"])
	assert.Equal(t, contractID.String(), q.Query.Bool.Filter[2]["term"]["contract_id"])
}

func TestBuildSearchBody_Defaults(t *testing.T) {
	body, err := buildSearchBody(contract.ClauseQuery{Text: "indemnify"})
	require.NoError(t, err)

	var q map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &q))
	assert.Equal(t, float64(defaultSearchLimit), q["size"])

	boolQ := q["query"].(map[string]interface{})["bool"].(map[string]interface{})
	_, hasFilter := boolQ["filter"]
	assert.False(t, hasFilter)
}
