package pgstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-client/internal/remote"
)

func TestBuildQueryBare(t *testing.T) {
	sql, args, err := buildQuery(remote.Query{Collection: "rooms"})
	require.NoError(t, err)

	assert.Equal(t, "SELECT id, data FROM documents WHERE collection = $1 ORDER BY id", sql)
	assert.Equal(t, []any{"rooms"}, args)
}

func TestBuildQueryEqualityFilter(t *testing.T) {
	sql, args, err := buildQuery(remote.Query{
		Collection: "requests",
		Filters: []remote.Filter{
			{Field: "toUid", Op: remote.OpEqual, Value: "u1"},
			{Field: "status", Op: remote.OpEqual, Value: "pending"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT id, data FROM documents WHERE collection = $1"+
			" AND data -> $2 = $3::jsonb"+
			" AND data -> $4 = $5::jsonb"+
			" ORDER BY id",
		sql)
	assert.Equal(t, []any{"requests", "toUid", `"u1"`, "status", `"pending"`}, args)
}

func TestBuildQueryArrayContains(t *testing.T) {
	sql, args, err := buildQuery(remote.Query{
		Collection: "chats",
		Filters:    []remote.Filter{{Field: "participants", Op: remote.OpArrayContains, Value: "u1"}},
	})
	require.NoError(t, err)

	assert.Contains(t, sql, "data -> $2 @> $3::jsonb")
	assert.Equal(t, []any{"chats", "participants", `"u1"`}, args)
}

func TestBuildQueryOrderAndLimit(t *testing.T) {
	sql, args, err := buildQuery(remote.Query{
		Collection: "stories",
		OrderBy:    "createdAt",
		Descending: true,
		Limit:      20,
	})
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT id, data FROM documents WHERE collection = $1 ORDER BY data -> $2 DESC, id LIMIT $3",
		sql)
	assert.Equal(t, []any{"stories", "createdAt", 20}, args)
}

func TestBuildQueryNumericFilterValue(t *testing.T) {
	_, args, err := buildQuery(remote.Query{
		Collection: "rooms",
		Filters:    []remote.Filter{{Field: "viewers", Op: remote.OpEqual, Value: 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, "3", args[2])
}

func TestBuildQueryUnknownOperator(t *testing.T) {
	_, _, err := buildQuery(remote.Query{
		Collection: "rooms",
		Filters:    []remote.Filter{{Field: "viewers", Op: ">", Value: 3}},
	})
	require.Error(t, err)
}
