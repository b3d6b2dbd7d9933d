//go:build integration

package integration

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/clauselens/clauselens/internal/domain/contract"
	"github.com/clauselens/clauselens/pkg/types/common"
)

// startPostgres launches a PostgreSQL 16 container, applies the repository
// migrations and returns a connected pool.
func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "clauselens_test",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://test:test@%s:%s/clauselens_test?sslmode=disable", host, port.Port())
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	applyMigrations(t, pool)
	return pool
}

// applyMigrations executes every up migration in lexical order.
func applyMigrations(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()

	entries, err := os.ReadDir(filepath.Join("..", "..", "migrations"))
	require.NoError(t, err)

	var ups []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			ups = append(ups, entry.Name())
		}
	}
	sort.Strings(ups)
	require.NotEmpty(t, ups)

	for _, name := range ups {
		ddl, err := os.ReadFile(filepath.Join("..", "..", "migrations", name))
		require.NoError(t, err)
		_, err = pool.Exec(ctx, string(ddl))
		require.NoError(t, err, "migration %s", name)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// In-memory fakes for the non-Postgres ports
// ─────────────────────────────────────────────────────────────────────────────

type memCache struct {
	mu   sync.Mutex
	docs map[uuid.UUID]*contract.StructuredDocument
}

func newMemCache() *memCache {
	return &memCache{docs: map[uuid.UUID]*contract.StructuredDocument{}}
}

func (c *memCache) GetStructured(_ context.Context, id uuid.UUID) (*contract.StructuredDocument, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.docs[id]
	return doc, ok, nil
}

func (c *memCache) SetStructured(_ context.Context, id uuid.UUID, doc *contract.StructuredDocument, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[id] = doc
	return nil
}

func (c *memCache) Invalidate(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.docs, id)
	return nil
}

type memIndex struct {
	mu      sync.Mutex
	clauses map[uuid.UUID][]*contract.Clause
}

func newMemIndex() *memIndex {
	return &memIndex{clauses: map[uuid.UUID][]*contract.Clause{}}
}

func (i *memIndex) IndexClauses(_ context.Context, contractID uuid.UUID, clauses []*contract.Clause) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.clauses[contractID] = clauses
	return nil
}

func (i *memIndex) Search(_ context.Context, q contract.ClauseQuery) ([]*contract.ClauseHit, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	var hits []*contract.ClauseHit
	for contractID, clauses := range i.clauses {
		for _, cl := range clauses {
			if !strings.Contains(strings.ToLower(cl.Text), strings.ToLower(q.Text)) {
				continue
			}
			hits = append(hits, &contract.ClauseHit{
				ContractID: contractID,
				ClauseID:   cl.ID,
				SectionID:  cl.SectionID,
				Text:       cl.Text,
				Category:   cl.Category,
				Risk:       cl.Risk,
				Score:      1,
			})
		}
	}
	return hits, nil
}

func (i *memIndex) DeleteByContract(_ context.Context, contractID uuid.UUID) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.clauses, contractID)
	return nil
}

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStore() *memStore { return &memStore{objects: map[string][]byte{}} }

func (s *memStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = raw
	return nil
}

func (s *memStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.objects[key]
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memStore) PresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "memory://" + key, nil
}

type memPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *memPublisher) Publish(_ context.Context, topic string, _ common.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
}

func (p *memPublisher) Close() error { return nil }

func (p *memPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.topics...)
}
