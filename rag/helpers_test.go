package rag

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openTestSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func openMockPostgres(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

// fakeEmbedder 实现 Embedder
type fakeEmbedder struct {
	vec   []float64
	err   error
	calls atomic.Int64
}

func (e *fakeEmbedder) Embed(context.Context, string) ([]float64, error) {
	e.calls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	return e.vec, nil
}

// fakeIndex 实现 VectorIndex
type fakeIndex struct {
	matches []Match
	err     error
	errs    []error // 依次返回，耗尽后用 err
	queries []VectorQuery
	spans   []trace.SpanContext
	mu      sync.Mutex
}

func (f *fakeIndex) Query(ctx context.Context, q VectorQuery) ([]Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	f.spans = append(f.spans, trace.SpanContextFromContext(ctx))
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	out := make([]Match, len(f.matches))
	copy(out, f.matches)
	return out, nil
}

// fakeGraphStore 实现 GraphStore
type fakeGraphStore struct {
	neighbors map[string][]Fact
	failing   map[string]error
	entities  []GraphEntity
	searchErr error

	mu      sync.Mutex
	lookups []string
	limits  []int
}

func (g *fakeGraphStore) Neighbors(_ context.Context, id string, limit int) ([]Fact, error) {
	g.mu.Lock()
	g.lookups = append(g.lookups, id)
	g.limits = append(g.limits, limit)
	g.mu.Unlock()
	if err, ok := g.failing[id]; ok {
		return nil, err
	}
	facts := g.neighbors[id]
	if len(facts) > limit {
		facts = facts[:limit]
	}
	return facts, nil
}

func (g *fakeGraphStore) SearchEntities(_ context.Context, _ string, limit int) ([]GraphEntity, error) {
	if g.searchErr != nil {
		return nil, g.searchErr
	}
	if len(g.entities) > limit {
		return g.entities[:limit], nil
	}
	return g.entities, nil
}

func (g *fakeGraphStore) lookupCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.lookups)
}
