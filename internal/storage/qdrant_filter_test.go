package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/filter"
)

func TestToQdrantFilter_Nil(t *testing.T) {
	f, never, err := toQdrantFilter(nil)
	require.NoError(t, err)
	assert.False(t, never)
	assert.Nil(t, f)
}

func TestToQdrantFilter_Comparison(t *testing.T) {
	f, never, err := toQdrantFilter(filter.Eq("filename", "a.docx"))
	require.NoError(t, err)
	assert.False(t, never)
	require.Len(t, f.Must, 1)

	field := f.Must[0].GetField()
	require.NotNil(t, field)
	assert.Equal(t, "filename", field.Key)
	assert.Equal(t, "a.docx", field.Match.GetKeyword())
}

func TestToQdrantFilter_Types(t *testing.T) {
	for _, expr := range []filter.Expr{
		filter.Eq("ParagraphId", 2),
		filter.Eq("locked", false),
		filter.Eq("date", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
	} {
		_, never, err := toQdrantFilter(expr)
		require.NoError(t, err, expr.String())
		assert.False(t, never)
	}
}

func TestToQdrantFilter_EmptyMembership(t *testing.T) {
	none, err := filter.AnyIn("groups", nil)
	require.NoError(t, err)

	_, never, err := toQdrantFilter(none)
	require.NoError(t, err)
	assert.True(t, never)

	_, never, err = toQdrantFilter(filter.And(filter.Eq("language", "English"), none))
	require.NoError(t, err)
	assert.True(t, never, "and with an unsatisfiable branch never matches")

	f, never, err := toQdrantFilter(filter.Or(filter.Eq("language", "English"), none))
	require.NoError(t, err)
	assert.False(t, never, "or drops the unsatisfiable branch")
	require.NotNil(t, f)
}

func TestToQdrantFilter_Group(t *testing.T) {
	groups, err := filter.AnyIn("groups", []string{"legal", "hr"})
	require.NoError(t, err)

	f, _, err := toQdrantFilter(filter.And(filter.Eq("language", "German"), groups))
	require.NoError(t, err)
	require.Len(t, f.Must, 1)

	nested := f.Must[0].GetFilter()
	require.NotNil(t, nested)
	assert.Len(t, nested.Must, 2)
}

func TestPointIDStable(t *testing.T) {
	assert.Equal(t, pointID("contract-1"), pointID("contract-1"))
	assert.NotEqual(t, pointID("contract-1"), pointID("contract-2"))
}

func TestToPayload(t *testing.T) {
	schema := testSchema("docs")
	payload := toPayload(schema, testDoc("a-1", "a.docx", 1, "text", []float32{1, 0, 0, 0}))

	_, hasVector := payload["embedding"]
	assert.False(t, hasVector)
	assert.Equal(t, int64(1), payload["ParagraphId"])
	assert.Equal(t, []any{"k-a-1"}, payload["keyphrases"])
}
