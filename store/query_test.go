package store

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestParseListQueryDefaults(t *testing.T) {
	q := ParseListQuery(url.Values{})

	assert.Equal(t, bson.M{}, q.Filter)
	assert.Equal(t, bson.D{{Key: "createdAt", Value: -1}}, q.Sort)
	assert.Equal(t, bson.D{{Key: "createdAt", Value: 0}}, q.Projection)
	assert.Equal(t, int64(1), q.Page)
	assert.Equal(t, int64(100), q.Limit)
	assert.Equal(t, int64(0), q.Skip)
}

func TestParseListQueryFilter(t *testing.T) {
	values := url.Values{
		"difficulty": []string{"easy"},
		"price":      []string{"497"},
		"duration":   []string{"gte:5", "lt:10"},
	}
	q := ParseListQuery(values)

	assert.Equal(t, "easy", q.Filter["difficulty"])
	assert.Equal(t, float64(497), q.Filter["price"])
	assert.Equal(t, bson.M{"$gte": float64(5), "$lt": float64(10)}, q.Filter["duration"])
}

func TestParseListQueryFilterPassesThroughUnknowns(t *testing.T) {
	values := url.Values{
		// not a recognized operator: kept verbatim as an equality match
		"name": []string{"like:Explorer"},
		// recognized operator with a non-numeric operand: operand kept as-is
		"duration": []string{"gte:abc"},
		// unknown field: no schema validation at this layer
		"bogusField": []string{"42"},
	}
	q := ParseListQuery(values)

	assert.Equal(t, "like:Explorer", q.Filter["name"])
	assert.Equal(t, bson.M{"$gte": "abc"}, q.Filter["duration"])
	assert.Equal(t, float64(42), q.Filter["bogusField"])
}

func TestParseListQuerySort(t *testing.T) {
	q := ParseListQuery(url.Values{"sort": []string{"-ratingsAverage,price"}})

	require.Len(t, q.Sort, 2)
	assert.Equal(t, bson.E{Key: "ratingsAverage", Value: -1}, q.Sort[0])
	assert.Equal(t, bson.E{Key: "price", Value: 1}, q.Sort[1])
}

func TestParseListQueryFields(t *testing.T) {
	q := ParseListQuery(url.Values{"fields": []string{"name,price"}})

	assert.Equal(t, bson.D{
		{Key: "name", Value: 1},
		{Key: "price", Value: 1},
	}, q.Projection)
}

func TestParseListQueryPagination(t *testing.T) {
	q := ParseListQuery(url.Values{"page": []string{"2"}, "limit": []string{"5"}})
	assert.Equal(t, int64(5), q.Skip)
	assert.Equal(t, int64(5), q.Limit)

	q = ParseListQuery(url.Values{"page": []string{"3"}, "limit": []string{"5"}})
	assert.Equal(t, int64(10), q.Skip)

	// garbage falls back to defaults instead of erroring
	q = ParseListQuery(url.Values{"page": []string{"zero"}, "limit": []string{"-3"}})
	assert.Equal(t, int64(1), q.Page)
	assert.Equal(t, int64(100), q.Limit)
}

func TestParseListQueryReservedKeysNotFilters(t *testing.T) {
	values := url.Values{
		"page":   []string{"2"},
		"sort":   []string{"price"},
		"limit":  []string{"10"},
		"fields": []string{"name"},
	}
	q := ParseListQuery(values)

	assert.Empty(t, q.Filter)
}
