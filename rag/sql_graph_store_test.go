package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func seededSQLGraph(t *testing.T) *SQLGraphStore {
	t.Helper()
	store := NewSQLGraphStore(openTestSQLite(t), zap.NewNop())
	ctx := context.Background()
	require.NoError(t, store.EnsureSchema(ctx))

	nodes := []GraphNode{
		{ID: "city_hanoi", Name: "Hanoi", Description: "Capital city of Vietnam", Type: "City", City: "Hanoi"},
		{ID: "attraction_1", Name: "Hoan Kiem Lake", Description: "Lake in the historic centre", Type: "Attraction", City: "Hanoi"},
		{ID: "attraction_2", Name: "Temple of Literature", Description: "Confucian temple", Type: "Attraction", City: "Hanoi"},
		{ID: "hotel_1", Name: "Old Quarter Inn", Description: "Budget hotel", Type: "Hotel", City: "Hanoi"},
	}
	edges := []GraphEdge{
		{SourceID: "attraction_1", TargetID: "city_hanoi", Relation: "LOCATED_IN"},
		{SourceID: "attraction_2", TargetID: "city_hanoi", Relation: "LOCATED_IN"},
		{SourceID: "hotel_1", TargetID: "attraction_1", Relation: "NEAR"},
	}
	require.NoError(t, store.Import(ctx, nodes, edges))
	return store
}

func TestSQLGraphStore_NeighborsBothDirections(t *testing.T) {
	store := seededSQLGraph(t)

	facts, err := store.Neighbors(context.Background(), "attraction_1", 20)
	require.NoError(t, err)
	require.Len(t, facts, 2)

	assert.Equal(t, Fact{
		SourceID:    "attraction_1",
		Relation:    "LOCATED_IN",
		TargetID:    "city_hanoi",
		TargetName:  "Hanoi",
		Description: "Capital city of Vietnam",
	}, facts[0])
	assert.Equal(t, "NEAR", facts[1].Relation)
	assert.Equal(t, "hotel_1", facts[1].TargetID)

	limited, err := store.Neighbors(context.Background(), "city_hanoi", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := store.Neighbors(context.Background(), "unknown", 20)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLGraphStore_ImportIsIdempotent(t *testing.T) {
	store := seededSQLGraph(t)
	ctx := context.Background()

	require.NoError(t, store.Import(ctx,
		[]GraphNode{{ID: "city_hanoi", Name: "Hà Nội", Description: "Capital"}},
		[]GraphEdge{{SourceID: "attraction_1", TargetID: "city_hanoi", Relation: "LOCATED_IN"}},
	))

	facts, err := store.Neighbors(ctx, "attraction_1", 20)
	require.NoError(t, err)
	require.Len(t, facts, 2)
	assert.Equal(t, "Hà Nội", facts[0].TargetName)
}

func TestSQLGraphStore_SearchEntities(t *testing.T) {
	store := seededSQLGraph(t)

	entities, err := store.SearchEntities(context.Background(), "temple", 5)
	require.NoError(t, err)
	require.NotEmpty(t, entities)
	assert.Equal(t, "attraction_2", entities[0].ID)
	assert.Equal(t, "Attraction", entities[0].Type)

	none, err := store.SearchEntities(context.Background(), "  ", 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLGraphStore_SearchFallsBackToLike(t *testing.T) {
	db, mock := openMockPostgres(t)
	store := NewSQLGraphStore(db, zap.NewNop())

	mock.ExpectQuery(`ts_rank`).
		WillReturnError(errors.New(`ERROR: text search configuration "simple" does not exist`))
	mock.ExpectQuery(`LIKE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "type", "score"}).
			AddRow("attraction_1", "Hoan Kiem Lake", "lake", "Attraction", 1.0))

	entities, err := store.SearchEntities(context.Background(), "Hoan Kiem", 3)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "attraction_1", entities[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLGraphStore_SearchOtherErrorsPropagate(t *testing.T) {
	db, mock := openMockPostgres(t)
	store := NewSQLGraphStore(db, zap.NewNop())

	mock.ExpectQuery(`ts_rank`).WillReturnError(errors.New("connection refused"))

	_, err := store.SearchEntities(context.Background(), "Hue", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLGraphStore_NeighborsError(t *testing.T) {
	db, mock := openMockPostgres(t)
	store := NewSQLGraphStore(db, zap.NewNop())

	mock.ExpectQuery(`FROM graph_relations`).WillReturnError(errors.New("boom"))

	_, err := store.Neighbors(context.Background(), "a", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query neighbors of a")
}

func TestFTSQuery(t *testing.T) {
	assert.Equal(t, `"hoan" OR "kiem"`, ftsQuery("hoan  kiem"))
	assert.Equal(t, `"say" OR """hi"""`, ftsQuery(`say "hi"`))
}
