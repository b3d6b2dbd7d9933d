// Package repositories contains the pgx-backed implementations of the domain
// persistence interfaces.
package repositories

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clauselens/clauselens/internal/domain/contract"
	"github.com/clauselens/clauselens/internal/infrastructure/monitoring/logging"
	"github.com/clauselens/clauselens/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// ContractRepository
// ─────────────────────────────────────────────────────────────────────────────

// ContractRepository persists the Contract aggregate in PostgreSQL.  The
// structured document is stored relationally (sections and clauses rows) so
// clauses can be queried without loading whole documents; the risk assessment
// and document metadata are JSONB columns on the contracts row.
type ContractRepository struct {
	pool *pgxpool.Pool
	log  logging.Logger
}

var _ contract.Repository = (*ContractRepository)(nil)

// NewContractRepository creates a ContractRepository backed by pool.
func NewContractRepository(pool *pgxpool.Pool, log logging.Logger) *ContractRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ContractRepository{pool: pool, log: log}
}

// ─────────────────────────────────────────────────────────────────────────────
// CRUD
// ─────────────────────────────────────────────────────────────────────────────

func (r *ContractRepository) Create(ctx context.Context, c *contract.Contract) error {
	metadata, risk, err := marshalContractJSON(c)
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO contracts (
			id, filename, status, raw_text, object_key, metadata, risk,
			failure_reason, created_at, updated_at, analyzed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = r.pool.Exec(ctx, q,
		c.ID, c.Filename, string(c.Status), c.RawText, c.ObjectKey,
		metadata, risk, c.FailureReason, c.CreatedAt, c.UpdatedAt, c.AnalyzedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "insert contract")
	}
	return nil
}

func (r *ContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*contract.Contract, error) {
	const q = `
		SELECT id, filename, status, raw_text, object_key, metadata, risk,
		       failure_reason, created_at, updated_at, analyzed_at
		FROM contracts
		WHERE id = $1`

	c, err := scanContract(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if stderrIsNoRows(err) {
			return nil, contractNotFound(id)
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "query contract")
	}
	return c, nil
}

func (r *ContractRepository) Update(ctx context.Context, c *contract.Contract) error {
	metadata, risk, err := marshalContractJSON(c)
	if err != nil {
		return err
	}

	const q = `
		UPDATE contracts
		SET filename = $2, status = $3, raw_text = $4, object_key = $5,
		    metadata = $6, risk = $7, failure_reason = $8,
		    updated_at = $9, analyzed_at = $10
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, q,
		c.ID, c.Filename, string(c.Status), c.RawText, c.ObjectKey,
		metadata, risk, c.FailureReason, c.UpdatedAt, c.AnalyzedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "update contract")
	}
	if tag.RowsAffected() == 0 {
		return contractNotFound(c.ID)
	}
	return nil
}

func (r *ContractRepository) Delete(ctx context.Context, id uuid.UUID) error {
	// sections and clauses cascade via foreign keys.
	tag, err := r.pool.Exec(ctx, `DELETE FROM contracts WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "delete contract")
	}
	if tag.RowsAffected() == 0 {
		return contractNotFound(id)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Listing
// ─────────────────────────────────────────────────────────────────────────────

// sortColumns whitelists sortable columns to keep user input out of SQL.
var sortColumns = map[string]string{
	"created_at":  "created_at",
	"updated_at":  "updated_at",
	"analyzed_at": "analyzed_at",
	"filename":    "filename",
	"status":      "status",
}

func (r *ContractRepository) List(ctx context.Context, filter contract.ListFilter) ([]*contract.Contract, int64, error) {
	where, args := buildListWhere(filter)

	var total int64
	countQ := "SELECT COUNT(*) FROM contracts" + where
	if err := r.pool.QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "count contracts")
	}

	q := `
		SELECT id, filename, status, raw_text, object_key, metadata, risk,
		       failure_reason, created_at, updated_at, analyzed_at
		FROM contracts` + where + buildOrderBy(filter) +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, filter.Pagination.PageSize, filter.Pagination.Offset())

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "list contracts")
	}
	defer rows.Close()

	var contracts []*contract.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "scan contract row")
		}
		contracts = append(contracts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "iterate contract rows")
	}
	return contracts, total, nil
}

func (r *ContractRepository) CountByStatus(ctx context.Context) (map[contract.ProcessingStatus]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM contracts GROUP BY status`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "count contracts by status")
	}
	defer rows.Close()

	counts := make(map[contract.ProcessingStatus]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "scan status count")
		}
		counts[contract.ProcessingStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "iterate status counts")
	}
	return counts, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Structured document
// ─────────────────────────────────────────────────────────────────────────────

// SaveStructured persists the structured document atomically: the contracts
// row is updated, prior sections and clauses are replaced, and new rows are
// bulk-inserted.  Clause rows go in via COPY since large contracts produce
// hundreds of them.
func (r *ContractRepository) SaveStructured(ctx context.Context, c *contract.Contract) error {
	if c.Structured == nil {
		return errors.New(errors.ErrCodeContractStoreFailed, "contract has no structured document")
	}

	metadata, risk, err := marshalContractJSON(c)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "begin transaction")
	}
	defer tx.Rollback(ctx)

	const updateQ = `
		UPDATE contracts
		SET status = $2, metadata = $3, risk = $4, failure_reason = $5,
		    updated_at = $6, analyzed_at = $7
		WHERE id = $1`
	tag, err := tx.Exec(ctx, updateQ,
		c.ID, string(c.Status), metadata, risk, c.FailureReason, c.UpdatedAt, c.AnalyzedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "update contract for structured save")
	}
	if tag.RowsAffected() == 0 {
		return contractNotFound(c.ID)
	}

	// Replace, don't merge: re-analysis regenerates the whole hierarchy.
	if _, err := tx.Exec(ctx, `DELETE FROM clauses WHERE contract_id = $1`, c.ID); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "delete prior clauses")
	}
	if _, err := tx.Exec(ctx, `DELETE FROM sections WHERE contract_id = $1`, c.ID); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "delete prior sections")
	}

	if err := insertSections(ctx, tx, c.ID, c.Structured.Sections); err != nil {
		return err
	}
	if err := copyClauses(ctx, tx, c.ID, c.Structured.Clauses); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "commit structured save")
	}

	r.log.Debug("structured document saved",
		logging.String("contract_id", c.ID.String()),
		logging.Int("sections", len(c.Structured.Sections)),
		logging.Int("clauses", len(c.Structured.Clauses)),
	)
	return nil
}

func insertSections(ctx context.Context, tx pgx.Tx, contractID uuid.UUID, sections []*contract.Section) error {
	const q = `
		INSERT INTO sections (
			contract_id, section_id, title, content, level, parent_id, type,
			importance_score, semantic_group, contains_obligations,
			contains_conditions, metadata, position
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	for i, s := range sections {
		meta, err := marshalJSONB(s.Metadata)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeContractStoreFailed, "marshal section metadata")
		}
		_, err = tx.Exec(ctx, q,
			contractID, s.ID, s.Title, s.Content, s.Level, s.ParentID, s.Type,
			s.ImportanceScore, string(s.SemanticGroup), s.ContainsObligations,
			s.ContainsConditions, meta, i,
		)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "insert section")
		}
	}
	return nil
}

func copyClauses(ctx context.Context, tx pgx.Tx, contractID uuid.UUID, clauses []*contract.Clause) error {
	if len(clauses) == 0 {
		return nil
	}

	columns := []string{
		"contract_id", "clause_id", "section_id", "text", "category",
		"risk_level", "key_terms", "obligations", "conditions", "source",
		"word_count", "sentence_count", "merged", "position",
	}
	rows := make([][]interface{}, 0, len(clauses))
	for i, cl := range clauses {
		keyTerms, err := marshalJSONB(cl.KeyTerms)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeContractStoreFailed, "marshal clause key terms")
		}
		obligations, err := marshalJSONB(cl.Obligations)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeContractStoreFailed, "marshal clause obligations")
		}
		conditions, err := marshalJSONB(cl.Conditions)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeContractStoreFailed, "marshal clause conditions")
		}
		rows = append(rows, []interface{}{
			contractID, cl.ID, cl.SectionID, cl.Text, cl.Category,
			string(cl.Risk), keyTerms, obligations, conditions, cl.Source,
			cl.WordCount, cl.SentenceCount, cl.Merged, i,
		})
	}

	_, err := tx.CopyFrom(ctx, pgx.Identifier{"clauses"}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "copy clauses")
	}
	return nil
}

func (r *ContractRepository) GetSections(ctx context.Context, contractID uuid.UUID) ([]*contract.Section, error) {
	const q = `
		SELECT section_id, title, content, level, parent_id, type,
		       importance_score, semantic_group, contains_obligations,
		       contains_conditions, metadata
		FROM sections
		WHERE contract_id = $1
		ORDER BY position`

	rows, err := r.pool.Query(ctx, q, contractID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "query sections")
	}
	defer rows.Close()

	var sections []*contract.Section
	for rows.Next() {
		s := &contract.Section{}
		var group string
		var meta []byte
		err := rows.Scan(&s.ID, &s.Title, &s.Content, &s.Level, &s.ParentID,
			&s.Type, &s.ImportanceScore, &group, &s.ContainsObligations,
			&s.ContainsConditions, &meta)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "scan section row")
		}
		s.SemanticGroup = contract.SemanticGroup(group)
		if err := unmarshalJSONB(meta, &s.Metadata); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeContractStoreFailed, "unmarshal section metadata")
		}
		sections = append(sections, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "iterate section rows")
	}
	return sections, nil
}

func (r *ContractRepository) GetClauses(ctx context.Context, contractID uuid.UUID) ([]*contract.Clause, error) {
	const q = `
		SELECT clause_id, section_id, text, category, risk_level, key_terms,
		       obligations, conditions, source, word_count, sentence_count, merged
		FROM clauses
		WHERE contract_id = $1
		ORDER BY position`

	rows, err := r.pool.Query(ctx, q, contractID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "query clauses")
	}
	defer rows.Close()

	var clauses []*contract.Clause
	for rows.Next() {
		cl := &contract.Clause{}
		var risk string
		var keyTerms, obligations, conditions []byte
		err := rows.Scan(&cl.ID, &cl.SectionID, &cl.Text, &cl.Category, &risk,
			&keyTerms, &obligations, &conditions, &cl.Source,
			&cl.WordCount, &cl.SentenceCount, &cl.Merged)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "scan clause row")
		}
		cl.Risk = contract.RiskLevel(risk)
		if err := unmarshalJSONB(keyTerms, &cl.KeyTerms); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeContractStoreFailed, "unmarshal clause key terms")
		}
		if err := unmarshalJSONB(obligations, &cl.Obligations); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeContractStoreFailed, "unmarshal clause obligations")
		}
		if err := unmarshalJSONB(conditions, &cl.Conditions); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeContractStoreFailed, "unmarshal clause conditions")
		}
		clauses = append(clauses, cl)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "iterate clause rows")
	}
	return clauses, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func buildListWhere(filter contract.ListFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.RiskLevel != "" {
		args = append(args, string(filter.RiskLevel))
		conds = append(conds, fmt.Sprintf("risk->>'level' = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func buildOrderBy(filter contract.ListFilter) string {
	column, ok := sortColumns[filter.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if filter.SortOrder == "asc" {
		direction = "ASC"
	}
	return fmt.Sprintf(" ORDER BY %s %s", column, direction)
}

func marshalContractJSON(c *contract.Contract) (metadata, risk []byte, err error) {
	if c.Structured != nil {
		metadata, err = json.Marshal(c.Structured.Metadata)
		if err != nil {
			return nil, nil, errors.Wrap(err, errors.ErrCodeContractStoreFailed, "marshal document metadata")
		}
	}
	if c.Risk != nil {
		risk, err = json.Marshal(c.Risk)
		if err != nil {
			return nil, nil, errors.Wrap(err, errors.ErrCodeContractStoreFailed, "marshal risk assessment")
		}
	}
	return metadata, risk, nil
}

// marshalJSONB encodes v for a JSONB column, mapping empty values to SQL NULL.
func marshalJSONB(v interface{}) ([]byte, error) {
	switch t := v.(type) {
	case []string:
		if len(t) == 0 {
			return nil, nil
		}
	case map[string]string:
		if len(t) == 0 {
			return nil, nil
		}
	}
	return json.Marshal(v)
}

func unmarshalJSONB(data []byte, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// scanner abstracts pgx.Row and pgx.Rows for shared contract scanning.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanContract(row scanner) (*contract.Contract, error) {
	c := &contract.Contract{}
	var status string
	var metadata, risk []byte
	err := row.Scan(&c.ID, &c.Filename, &status, &c.RawText, &c.ObjectKey,
		&metadata, &risk, &c.FailureReason, &c.CreatedAt, &c.UpdatedAt, &c.AnalyzedAt)
	if err != nil {
		return nil, err
	}
	c.Status = contract.ProcessingStatus(status)
	if len(risk) > 0 {
		c.Risk = &contract.RiskAssessment{}
		if err := json.Unmarshal(risk, c.Risk); err != nil {
			return nil, fmt.Errorf("unmarshal risk assessment: %w", err)
		}
	}
	if len(metadata) > 0 {
		doc := &contract.StructuredDocument{}
		if err := json.Unmarshal(metadata, &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal document metadata: %w", err)
		}
		// Sections and clauses are loaded on demand via GetSections/GetClauses.
		c.Structured = doc
	}
	return c, nil
}

// contractNotFound builds the canonical missing-contract error.  The code is
// ErrCodeContractNotFound so errors.IsNotFound recognizes it downstream.
func contractNotFound(id uuid.UUID) error {
	return errors.Newf(errors.ErrCodeContractNotFound, "contract %s not found", id)
}

func stderrIsNoRows(err error) bool {
	return stderrors.Is(err, pgx.ErrNoRows)
}
