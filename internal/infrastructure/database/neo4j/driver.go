// Package neo4j mirrors contract structure into a graph database so
// cross-contract structural queries can run over it.
package neo4j

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/clauselens/clauselens/internal/config"
	"github.com/clauselens/clauselens/internal/infrastructure/monitoring/logging"
	"github.com/clauselens/clauselens/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Driver abstraction
// ─────────────────────────────────────────────────────────────────────────────

// Result abstracts neo4j.ResultWithContext for testing.
type Result interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
	Err() error
}

// Transaction abstracts neo4j.ManagedTransaction for testing.
type Transaction interface {
	Run(ctx context.Context, cypher string, params map[string]any) (Result, error)
}

// Session runs read or write transactions against one database.
type Session interface {
	ExecuteRead(ctx context.Context, work func(Transaction) (any, error)) (any, error)
	ExecuteWrite(ctx context.Context, work func(Transaction) (any, error)) (any, error)
	Close(ctx context.Context) error
}

// Driver opens sessions and manages the underlying connection pool.
type Driver interface {
	NewSession(ctx context.Context) Session
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
}

// ─────────────────────────────────────────────────────────────────────────────
// neo4j-go-driver implementation
// ─────────────────────────────────────────────────────────────────────────────

type stdResult struct{ res neo4j.ResultWithContext }

func (r *stdResult) Next(ctx context.Context) bool { return r.res.Next(ctx) }
func (r *stdResult) Record() *neo4j.Record         { return r.res.Record() }
func (r *stdResult) Err() error                    { return r.res.Err() }

type stdTransaction struct{ tx neo4j.ManagedTransaction }

func (t *stdTransaction) Run(ctx context.Context, cypher string, params map[string]any) (Result, error) {
	res, err := t.tx.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return &stdResult{res: res}, nil
}

type stdSession struct{ s neo4j.SessionWithContext }

func (s *stdSession) ExecuteRead(ctx context.Context, work func(Transaction) (any, error)) (any, error) {
	return s.s.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return work(&stdTransaction{tx: tx})
	})
}

func (s *stdSession) ExecuteWrite(ctx context.Context, work func(Transaction) (any, error)) (any, error) {
	return s.s.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return work(&stdTransaction{tx: tx})
	})
}

func (s *stdSession) Close(ctx context.Context) error { return s.s.Close(ctx) }

type stdDriver struct {
	d        neo4j.DriverWithContext
	database string
}

func (d *stdDriver) NewSession(ctx context.Context) Session {
	return &stdSession{s: d.d.NewSession(ctx, neo4j.SessionConfig{DatabaseName: d.database})}
}

func (d *stdDriver) VerifyConnectivity(ctx context.Context) error {
	return d.d.VerifyConnectivity(ctx)
}

func (d *stdDriver) Close(ctx context.Context) error { return d.d.Close(ctx) }

// NewDriver connects to Neo4j and verifies connectivity.
func NewDriver(ctx context.Context, cfg config.Neo4jConfig, log logging.Logger) (Driver, error) {
	d, err := neo4j.NewDriverWithContext(cfg.URI,
		neo4j.BasicAuth(cfg.User, cfg.Password, ""),
		func(c *neo4j.Config) {
			if cfg.MaxConnectionPoolSize > 0 {
				c.MaxConnectionPoolSize = cfg.MaxConnectionPoolSize
			}
			if cfg.ConnectionTimeout > 0 {
				c.ConnectionAcquisitionTimeout = cfg.ConnectionTimeout
			}
		},
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeGraphStoreFailed, "create neo4j driver")
	}
	if err := d.VerifyConnectivity(ctx); err != nil {
		d.Close(ctx)
		return nil, errors.Wrap(err, errors.ErrCodeGraphStoreFailed, "neo4j unreachable")
	}

	log.Info("neo4j driver connected",
		logging.String("uri", cfg.URI),
		logging.String("database", cfg.Database),
	)
	return &stdDriver{d: d, database: cfg.Database}, nil
}
