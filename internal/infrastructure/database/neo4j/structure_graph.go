package neo4j

import (
	"context"

	"github.com/google/uuid"

	"github.com/clauselens/clauselens/internal/domain/contract"
	"github.com/clauselens/clauselens/internal/infrastructure/monitoring/logging"
	"github.com/clauselens/clauselens/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// StructureGraph
// ─────────────────────────────────────────────────────────────────────────────

// Graph model:
//
//	(Contract {id})-[:HAS_SECTION]->(Section {key, id, title, ...})
//	(Section)-[:HAS_CLAUSE]->(Clause {key, id, category, risk_level})
//	(Section)-[:CHILD_OF]->(Section)
//
// Section and clause keys are prefixed with the contract ID since section IDs
// ("S1", "S2") repeat across contracts.
type StructureGraph struct {
	driver Driver
	log    logging.Logger
}

var _ contract.StructureGraph = (*StructureGraph)(nil)

// NewStructureGraph builds the graph adapter on top of driver.
func NewStructureGraph(driver Driver, log logging.Logger) *StructureGraph {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &StructureGraph{driver: driver, log: log}
}

const saveContractCypher = `
	MERGE (c:Contract {id: $contract_id})
	SET c.filename = $filename, c.status = $status`

const saveSectionsCypher = `
	MATCH (c:Contract {id: $contract_id})
	UNWIND $sections AS sec
	MERGE (s:Section {key: sec.key})
	SET s.id = sec.id, s.title = sec.title, s.level = sec.level,
	    s.type = sec.type, s.semantic_group = sec.semantic_group,
	    s.importance = sec.importance
	MERGE (c)-[:HAS_SECTION]->(s)`

const saveHierarchyCypher = `
	UNWIND $links AS link
	MATCH (child:Section {key: link.child}), (parent:Section {key: link.parent})
	MERGE (child)-[:CHILD_OF]->(parent)`

const saveClausesCypher = `
	UNWIND $clauses AS cl
	MATCH (s:Section {key: cl.section_key})
	MERGE (n:Clause {key: cl.key})
	SET n.id = cl.id, n.category = cl.category, n.risk_level = cl.risk_level,
	    n.merged = cl.merged
	MERGE (s)-[:HAS_CLAUSE]->(n)`

const deleteStructureCypher = `
	MATCH (c:Contract {id: $contract_id})
	OPTIONAL MATCH (c)-[:HAS_SECTION]->(s:Section)
	OPTIONAL MATCH (s)-[:HAS_CLAUSE]->(cl:Clause)
	DETACH DELETE c, s, cl`

const relatedSectionsCypher = `
	MATCH (s:Section {semantic_group: $group})
	RETURN s.id AS id, s.title AS title, s.level AS level, s.type AS type,
	       s.semantic_group AS semantic_group, s.importance AS importance
	ORDER BY s.importance DESC
	LIMIT $limit`

// SaveStructure mirrors the contract's section/clause hierarchy into the
// graph, replacing whatever was stored before.
func (g *StructureGraph) SaveStructure(ctx context.Context, c *contract.Contract) error {
	if c.Structured == nil {
		return errors.New(errors.ErrCodeGraphStoreFailed, "contract has no structured document")
	}

	session := g.driver.NewSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx Transaction) (any, error) {
		// Re-analysis may shrink the hierarchy, so drop stale nodes first.
		if _, err := tx.Run(ctx, deleteStructureCypher, map[string]any{
			"contract_id": c.ID.String(),
		}); err != nil {
			return nil, err
		}
		if _, err := tx.Run(ctx, saveContractCypher, map[string]any{
			"contract_id": c.ID.String(),
			"filename":    c.Filename,
			"status":      string(c.Status),
		}); err != nil {
			return nil, err
		}
		if _, err := tx.Run(ctx, saveSectionsCypher, map[string]any{
			"contract_id": c.ID.String(),
			"sections":    sectionParams(c),
		}); err != nil {
			return nil, err
		}
		if links := hierarchyParams(c); len(links) > 0 {
			if _, err := tx.Run(ctx, saveHierarchyCypher, map[string]any{
				"links": links,
			}); err != nil {
				return nil, err
			}
		}
		if clauses := clauseParams(c); len(clauses) > 0 {
			if _, err := tx.Run(ctx, saveClausesCypher, map[string]any{
				"clauses": clauses,
			}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeGraphStoreFailed, "save contract structure")
	}

	g.log.Debug("contract structure saved to graph",
		logging.String("contract_id", c.ID.String()),
		logging.Int("sections", len(c.Structured.Sections)),
	)
	return nil
}

// DeleteStructure removes the contract and everything hanging off it.
func (g *StructureGraph) DeleteStructure(ctx context.Context, contractID uuid.UUID) error {
	session := g.driver.NewSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx Transaction) (any, error) {
		return tx.Run(ctx, deleteStructureCypher, map[string]any{
			"contract_id": contractID.String(),
		})
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeGraphStoreFailed, "delete contract structure")
	}
	return nil
}

// RelatedSections returns sections across all contracts sharing a semantic
// group, most important first.
func (g *StructureGraph) RelatedSections(ctx context.Context, group contract.SemanticGroup, limit int) ([]*contract.Section, error) {
	if limit <= 0 {
		limit = 10
	}

	session := g.driver.NewSession(ctx)
	defer session.Close(ctx)

	res, err := session.ExecuteRead(ctx, func(tx Transaction) (any, error) {
		result, err := tx.Run(ctx, relatedSectionsCypher, map[string]any{
			"group": string(group),
			"limit": limit,
		})
		if err != nil {
			return nil, err
		}

		var sections []*contract.Section
		for result.Next(ctx) {
			rec := result.Record()
			sections = append(sections, sectionFromRecord(rec.AsMap()))
		}
		return sections, result.Err()
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeGraphStoreFailed, "query related sections")
	}
	return res.([]*contract.Section), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Parameter mapping
// ─────────────────────────────────────────────────────────────────────────────

func sectionKey(contractID uuid.UUID, sectionID string) string {
	return contractID.String() + ":" + sectionID
}

func sectionParams(c *contract.Contract) []map[string]any {
	params := make([]map[string]any, 0, len(c.Structured.Sections))
	for _, s := range c.Structured.Sections {
		params = append(params, map[string]any{
			"key":            sectionKey(c.ID, s.ID),
			"id":             s.ID,
			"title":          s.Title,
			"level":          s.Level,
			"type":           s.Type,
			"semantic_group": string(s.SemanticGroup),
			"importance":     s.ImportanceScore,
		})
	}
	return params
}

func hierarchyParams(c *contract.Contract) []map[string]any {
	var links []map[string]any
	for _, s := range c.Structured.Sections {
		if s.ParentID == "" {
			continue
		}
		links = append(links, map[string]any{
			"child":  sectionKey(c.ID, s.ID),
			"parent": sectionKey(c.ID, s.ParentID),
		})
	}
	return links
}

func clauseParams(c *contract.Contract) []map[string]any {
	params := make([]map[string]any, 0, len(c.Structured.Clauses))
	for _, cl := range c.Structured.Clauses {
		params = append(params, map[string]any{
			"key":         c.ID.String() + ":" + cl.ID,
			"id":          cl.ID,
			"section_key": sectionKey(c.ID, cl.SectionID),
			"category":    cl.Category,
			"risk_level":  string(cl.Risk),
			"merged":      cl.Merged,
		})
	}
	return params
}

func sectionFromRecord(m map[string]any) *contract.Section {
	s := &contract.Section{}
	if v, ok := m["id"].(string); ok {
		s.ID = v
	}
	if v, ok := m["title"].(string); ok {
		s.Title = v
	}
	if v, ok := m["level"].(int64); ok {
		s.Level = int(v)
	}
	if v, ok := m["type"].(string); ok {
		s.Type = v
	}
	if v, ok := m["semantic_group"].(string); ok {
		s.SemanticGroup = contract.SemanticGroup(v)
	}
	if v, ok := m["importance"].(float64); ok {
		s.ImportanceScore = v
	}
	return s
}
