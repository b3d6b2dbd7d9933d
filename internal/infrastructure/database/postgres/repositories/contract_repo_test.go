package repositories

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clauselens/clauselens/internal/domain/contract"
	apperrors "github.com/clauselens/clauselens/pkg/errors"
	"github.com/clauselens/clauselens/pkg/types/common"
)

func TestBuildListWhere(t *testing.T) {
	where, args := buildListWhere(contract.ListFilter{})
	assert.Empty(t, where)
	assert.Empty(t, args)

	where, args = buildListWhere(contract.ListFilter{Status: contract.StatusCompleted})
	assert.Equal(t, " WHERE status = $1", where)
	assert.Equal(t, []interface{}{"completed"}, args)

	where, args = buildListWhere(contract.ListFilter{
		Status:    contract.StatusCompleted,
		RiskLevel: contract.RiskHigh,
	})
	assert.Equal(t, " WHERE status = $1 AND risk->>'level' = $2", where)
	assert.Equal(t, []interface{}{"completed", "high"}, args)
}

func TestBuildOrderBy(t *testing.T) {
	assert.Equal(t, " ORDER BY created_at DESC", buildOrderBy(contract.ListFilter{}))
	assert.Equal(t, " ORDER BY filename ASC", buildOrderBy(contract.ListFilter{
		SortBy:    "filename",
		SortOrder: common.SortAsc,
	}))
	// Unknown sort columns fall back to created_at rather than reaching SQL.
	assert.Equal(t, " ORDER BY created_at DESC", buildOrderBy(contract.ListFilter{
		SortBy: "raw_text; DROP TABLE contracts",
	}))
}

func TestMarshalJSONB_EmptyValuesBecomeNull(t *testing.T) {
	data, err := marshalJSONB([]string(nil))
	require.NoError(t, err)
	assert.Nil(t, data)

	data, err = marshalJSONB(map[string]string{})
	require.NoError(t, err)
	assert.Nil(t, data)

	data, err = marshalJSONB([]string{"net 30"})
	require.NoError(t, err)
	assert.JSONEq(t, `["net 30"]`, string(data))
}

func TestUnmarshalJSONB_NullLeavesZeroValue(t *testing.T) {
	var terms []string
	require.NoError(t, unmarshalJSONB(nil, &terms))
	assert.Nil(t, terms)

	require.NoError(t, unmarshalJSONB([]byte(`["penalty"]`), &terms))
	assert.Equal(t, []string{"penalty"}, terms)
}

func TestMarshalContractJSON(t *testing.T) {
	c, err := contract.NewContract("nda.pdf", "The parties shall keep all terms confidential.")
	require.NoError(t, err)

	metadata, risk, err := marshalContractJSON(c)
	require.NoError(t, err)
	assert.Nil(t, metadata)
	assert.Nil(t, risk)

	c.Structured = &contract.StructuredDocument{
		Metadata: contract.DocumentMetadata{Filename: "nda.pdf", PageCount: 3},
	}
	c.Risk = &contract.RiskAssessment{Level: contract.RiskMedium, Score: 0.31}

	metadata, risk, err = marshalContractJSON(c)
	require.NoError(t, err)
	assert.Contains(t, string(metadata), `"page_count":3`)
	assert.Contains(t, string(risk), `"level":"medium"`)
}

func TestContractNotFound(t *testing.T) {
	id := uuid.New()
	err := contractNotFound(id)

	assert.True(t, apperrors.IsNotFound(err))
	assert.Equal(t, apperrors.ErrCodeContractNotFound, apperrors.GetCode(err))
	assert.Contains(t, err.Error(), id.String())
}
