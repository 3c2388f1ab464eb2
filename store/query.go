package store

import (
	"net/url"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

const (
	defaultPage  = int64(1)
	defaultLimit = int64(100)
)

// page, sort, limit and fields drive the query shape; everything else is a
// filter condition.
var reservedParams = map[string]bool{
	"page":   true,
	"sort":   true,
	"limit":  true,
	"fields": true,
}

var rangeOperators = map[string]string{
	"gte": "$gte",
	"gt":  "$gt",
	"lte": "$lte",
	"lt":  "$lt",
}

// ListQuery is a translated query string, ready to run against a collection.
// Construction has no side effects; execution is the caller's job.
type ListQuery struct {
	Filter     bson.M
	Sort       bson.D
	Projection bson.D
	Page       int64
	Limit      int64
	Skip       int64
}

// ParseListQuery translates request query parameters into filter, sort,
// projection and pagination. Values are passed through untyped apart from a
// numeric coercion; a field or value the schema cannot serve fails at the
// database, not here.
func ParseListQuery(values url.Values) ListQuery {
	q := ListQuery{
		Filter:     parseFilter(values),
		Sort:       parseSort(values.Get("sort")),
		Projection: parseFields(values.Get("fields")),
	}
	q.Page = parsePositive(values.Get("page"), defaultPage)
	q.Limit = parsePositive(values.Get("limit"), defaultLimit)
	q.Skip = (q.Page - 1) * q.Limit
	return q
}

func parseFilter(values url.Values) bson.M {
	filter := bson.M{}
	for key, vals := range values {
		if reservedParams[key] {
			continue
		}
		for _, val := range vals {
			if op, rest, ok := splitOperator(val); ok {
				m, _ := filter[key].(bson.M)
				if m == nil {
					m = bson.M{}
				}
				m[op] = coerceValue(rest)
				filter[key] = m
			} else {
				filter[key] = coerceValue(val)
			}
		}
	}
	return filter
}

// splitOperator recognizes the "gte:5" comparison form.
func splitOperator(val string) (op, rest string, ok bool) {
	name, rest, found := strings.Cut(val, ":")
	if !found {
		return "", "", false
	}
	mongoOp, known := rangeOperators[name]
	if !known {
		return "", "", false
	}
	return mongoOp, rest, true
}

// coerceValue turns numeric-looking strings into numbers so comparisons work
// against number-typed fields. Everything else stays a string.
func coerceValue(val string) interface{} {
	if n, err := strconv.ParseFloat(val, 64); err == nil {
		return n
	}
	return val
}

// parseSort handles "-ratingsAverage,price": left-to-right priority, leading
// '-' for descending. Default is newest first.
func parseSort(sortParam string) bson.D {
	if sortParam == "" {
		return bson.D{{Key: "createdAt", Value: -1}}
	}
	var sort bson.D
	for _, field := range strings.Split(sortParam, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		order := 1
		if strings.HasPrefix(field, "-") {
			order = -1
			field = field[1:]
		}
		sort = append(sort, bson.E{Key: field, Value: order})
	}
	if len(sort) == 0 {
		return bson.D{{Key: "createdAt", Value: -1}}
	}
	return sort
}

// parseFields builds an include-list projection. Without one, everything is
// returned except createdAt, which is hidden from default projections.
func parseFields(fieldsParam string) bson.D {
	if fieldsParam == "" {
		return bson.D{{Key: "createdAt", Value: 0}}
	}
	var projection bson.D
	for _, field := range strings.Split(fieldsParam, ",") {
		field = strings.TrimSpace(strings.TrimPrefix(field, "-"))
		if field == "" {
			continue
		}
		projection = append(projection, bson.E{Key: field, Value: 1})
	}
	if len(projection) == 0 {
		return bson.D{{Key: "createdAt", Value: 0}}
	}
	return projection
}

func parsePositive(val string, fallback int64) int64 {
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
