package milvus

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/clauselens/clauselens/internal/config"
	"github.com/clauselens/clauselens/internal/domain/contract"
	"github.com/clauselens/clauselens/internal/infrastructure/monitoring/logging"
	"github.com/clauselens/clauselens/pkg/errors"
)

const (
	fieldID         = "id"
	fieldContractID = "contract_id"
	fieldClauseID   = "clause_id"
	fieldText       = "text"
	fieldEmbedding  = "embedding"

	maxTextLength = 4096
	defaultTopK   = 10
	searchEf      = 64
)

// ClauseVectorStore implements contract.ClauseVectorStore on one Milvus
// collection with an HNSW index over cosine distance.
type ClauseVectorStore struct {
	client     client.Client
	collection string
	dim        int
	log        logging.Logger
}

var _ contract.ClauseVectorStore = (*ClauseVectorStore)(nil)

// NewClauseVectorStore ensures the clause collection and index exist and
// loads the collection for search.
func NewClauseVectorStore(ctx context.Context, c client.Client, cfg config.MilvusConfig, log logging.Logger) (*ClauseVectorStore, error) {
	prefix := cfg.CollectionPrefix
	if prefix == "" {
		prefix = "clauselens_"
	}
	dim := cfg.EmbeddingDim
	if dim <= 0 {
		dim = 768
	}
	s := &ClauseVectorStore{
		client:     c,
		collection: prefix + "clauses",
		dim:        dim,
		log:        log,
	}
	if err := s.ensureCollection(ctx, cfg); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ClauseVectorStore) ensureCollection(ctx context.Context, cfg config.MilvusConfig) error {
	exists, err := s.client.HasCollection(ctx, s.collection)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeVectorStoreFailed, "check collection")
	}
	if !exists {
		schema := entity.NewSchema().
			WithName(s.collection).
			WithDescription("clause embeddings for similarity search").
			WithField(entity.NewField().WithName(fieldID).
				WithDataType(entity.FieldTypeVarChar).WithMaxLength(128).WithIsPrimaryKey(true)).
			WithField(entity.NewField().WithName(fieldContractID).
				WithDataType(entity.FieldTypeVarChar).WithMaxLength(64)).
			WithField(entity.NewField().WithName(fieldClauseID).
				WithDataType(entity.FieldTypeVarChar).WithMaxLength(64)).
			WithField(entity.NewField().WithName(fieldText).
				WithDataType(entity.FieldTypeVarChar).WithMaxLength(maxTextLength)).
			WithField(entity.NewField().WithName(fieldEmbedding).
				WithDataType(entity.FieldTypeFloatVector).WithDim(int64(s.dim)))

		if err := s.client.CreateCollection(ctx, schema, 2); err != nil {
			return errors.Wrap(err, errors.ErrCodeVectorStoreFailed, "create collection")
		}

		m := cfg.HNSWM
		if m <= 0 {
			m = 16
		}
		efConstruction := cfg.HNSWEfConstruction
		if efConstruction <= 0 {
			efConstruction = 200
		}
		idx, err := entity.NewIndexHNSW(entity.COSINE, m, efConstruction)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeVectorStoreFailed, "build index definition")
		}
		if err := s.client.CreateIndex(ctx, s.collection, fieldEmbedding, idx, false); err != nil {
			return errors.Wrap(err, errors.ErrCodeVectorStoreFailed, "create index")
		}
		s.log.Info("created clause vector collection",
			logging.String("collection", s.collection),
			logging.Int("dim", s.dim),
		)
	}

	if err := s.client.LoadCollection(ctx, s.collection, false); err != nil {
		return errors.Wrap(err, errors.ErrCodeVectorStoreFailed, "load collection")
	}
	return nil
}

// UpsertEmbeddings writes one embedding per clause.  Vector count and
// dimension must match the clause list and the collection schema.
func (s *ClauseVectorStore) UpsertEmbeddings(ctx context.Context, contractID uuid.UUID, clauses []*contract.Clause, vectors [][]float32) error {
	if len(clauses) != len(vectors) {
		return errors.New(errors.ErrCodeVectorDimMismatch,
			fmt.Sprintf("got %d vectors for %d clauses", len(vectors), len(clauses)))
	}
	if len(clauses) == 0 {
		return nil
	}

	ids := make([]string, len(clauses))
	contractIDs := make([]string, len(clauses))
	clauseIDs := make([]string, len(clauses))
	texts := make([]string, len(clauses))
	for i, cl := range clauses {
		if len(vectors[i]) != s.dim {
			return errors.New(errors.ErrCodeVectorDimMismatch,
				fmt.Sprintf("vector %d has dimension %d, collection expects %d", i, len(vectors[i]), s.dim))
		}
		ids[i] = contractID.String() + ":" + cl.ID
		contractIDs[i] = contractID.String()
		clauseIDs[i] = cl.ID
		texts[i] = truncate(cl.Text, maxTextLength)
	}

	_, err := s.client.Upsert(ctx, s.collection, "",
		entity.NewColumnVarChar(fieldID, ids),
		entity.NewColumnVarChar(fieldContractID, contractIDs),
		entity.NewColumnVarChar(fieldClauseID, clauseIDs),
		entity.NewColumnVarChar(fieldText, texts),
		entity.NewColumnFloatVector(fieldEmbedding, s.dim, vectors),
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeVectorStoreFailed, "upsert embeddings")
	}

	s.log.Debug("embeddings upserted",
		logging.String("contract_id", contractID.String()),
		logging.Int("count", len(clauses)),
	)
	return nil
}

// SearchSimilar returns the topK nearest clauses to vector across all
// contracts.
func (s *ClauseVectorStore) SearchSimilar(ctx context.Context, vector []float32, topK int) ([]*contract.SimilarClause, error) {
	if len(vector) != s.dim {
		return nil, errors.New(errors.ErrCodeVectorDimMismatch,
			fmt.Sprintf("query vector has dimension %d, collection expects %d", len(vector), s.dim))
	}
	if topK <= 0 {
		topK = defaultTopK
	}

	sp, err := entity.NewIndexHNSWSearchParam(searchEf)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeVectorStoreFailed, "build search params")
	}

	results, err := s.client.Search(ctx, s.collection, nil, "",
		[]string{fieldContractID, fieldClauseID, fieldText},
		[]entity.Vector{entity.FloatVector(vector)},
		fieldEmbedding, entity.COSINE, topK, sp,
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeVectorStoreFailed, "vector search")
	}

	var similar []*contract.SimilarClause
	for _, res := range results {
		contractCol := res.Fields.GetColumn(fieldContractID)
		clauseCol := res.Fields.GetColumn(fieldClauseID)
		textCol := res.Fields.GetColumn(fieldText)
		if contractCol == nil || clauseCol == nil || textCol == nil {
			continue
		}
		for i := 0; i < res.ResultCount; i++ {
			rawContract, err := contractCol.Get(i)
			if err != nil {
				continue
			}
			cid, err := uuid.Parse(fmt.Sprint(rawContract))
			if err != nil {
				continue
			}
			rawClause, _ := clauseCol.Get(i)
			rawText, _ := textCol.Get(i)
			similar = append(similar, &contract.SimilarClause{
				ContractID: cid,
				ClauseID:   fmt.Sprint(rawClause),
				Text:       fmt.Sprint(rawText),
				Distance:   float64(res.Scores[i]),
			})
		}
	}
	return similar, nil
}

// DeleteByContract removes every embedding stored for one contract.
func (s *ClauseVectorStore) DeleteByContract(ctx context.Context, contractID uuid.UUID) error {
	expr := fieldContractID + " == " + strconv.Quote(contractID.String())
	if err := s.client.Delete(ctx, s.collection, "", expr); err != nil {
		return errors.Wrap(err, errors.ErrCodeVectorStoreFailed, "delete embeddings by contract")
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
