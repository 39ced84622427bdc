package store

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/jobtrail/internal/model"
)

// index is a declared secondary attribute of a collection, backed by a
// SQLite expression index over the record body.
type index struct {
	collection string
	name       string
}

var indexes = map[string][]string{
	model.CollectionApplications: {"applicationDate"},
	model.CollectionInterviews:   {model.FieldApplicationID},
	model.CollectionStatusCodes:  {"code", "isActive"},
}

func declaredIndexes() []index {
	var out []index
	for collection, names := range indexes {
		for _, name := range names {
			out = append(out, index{collection: collection, name: name})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].sqlName() < out[j].sqlName() })
	return out
}

func lookupIndex(kind model.Kind, name string) (index, error) {
	collection := kind.Collection()
	if collection == "" {
		return index{}, fmt.Errorf("%w: %q", ErrUnknownCollection, kind)
	}
	for _, n := range indexes[collection] {
		if n == name {
			return index{collection: collection, name: name}, nil
		}
	}
	return index{}, fmt.Errorf("%w: %s.%s", ErrUnknownIndex, collection, name)
}

// IndexNames returns the declared index names of a kind.
func IndexNames(kind model.Kind) []string {
	return append([]string(nil), indexes[kind.Collection()]...)
}

func (i index) sqlName() string {
	return "idx_records_" + strings.ToLower(i.name)
}

// expr must be textually identical in CREATE INDEX and in queries for
// SQLite to use the index.
func (i index) expr() string {
	return fmt.Sprintf("json_extract(body, '$.%s')", i.name)
}

// indexValue maps a lookup value to what json_extract yields for it.
func indexValue(v any) (any, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case int64:
		return val, nil
	case int:
		return int64(val), nil
	case bool:
		if val {
			return int64(1), nil
		}
		return int64(0), nil
	}
	return nil, fmt.Errorf("unsupported index value type %T", v)
}
