package model

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// FieldIDName is the key under which a record's id appears in its JSON form.
const FieldIDName = "id"

// FieldApplicationID is the Interview foreign key to its parent Application.
const FieldApplicationID = "applicationId"

// FieldType is the value type a record field accepts.
type FieldType int

const (
	FieldString FieldType = iota + 1
	FieldInt
	FieldBool
)

func (t FieldType) String() string {
	switch t {
	case FieldString:
		return "string"
	case FieldInt:
		return "integer"
	case FieldBool:
		return "boolean"
	}
	return "unknown"
}

var schemas = map[Kind]map[string]FieldType{
	KindApplication: {
		"companyName":     FieldString,
		"roleTitle":       FieldString,
		"applicationDate": FieldString,
		"statusCode":      FieldString,
		"jobUrl":          FieldString,
		"notes":           FieldString,
	},
	KindInterview: {
		FieldApplicationID:    FieldInt,
		"interviewerName":     FieldString,
		"interviewerPosition": FieldString,
		"interviewDate":       FieldString,
		"interviewTime":       FieldString,
		"interviewerEmail":    FieldString,
		"interviewerPhone":    FieldString,
		"interviewNotes":      FieldString,
	},
	KindStatusCode: {
		"code":     FieldString,
		"label":    FieldString,
		"isActive": FieldBool,
	},
}

// FieldNames returns the declared field names of a kind, sorted.
func (k Kind) FieldNames() []string {
	names := make([]string, 0, len(schemas[k]))
	for name := range schemas[k] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FieldType returns the declared type of a field.
func (k Kind) FieldType(name string) (FieldType, bool) {
	t, ok := schemas[k][name]
	return t, ok
}

// FieldError reports a field that does not fit the kind's schema.
type FieldError struct {
	Kind  Kind
	Field string
	Msg   string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s.%s: %s", e.Kind, e.Field, e.Msg)
}

// Fields holds a record's kind-specific values. Values are string, int64 or
// bool as declared by the kind's schema.
type Fields map[string]any

// Clone returns a shallow copy. Values are immutable scalars, so this is a
// full copy in practice.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// IsProvisional reports whether id was issued locally and never synced.
func IsProvisional(id int64) bool {
	return id < 0
}

// Record is a single stored record of any kind.
type Record struct {
	Kind   Kind
	ID     int64
	Fields Fields
}

// IsProvisional reports whether the record's id is provisional.
func (r Record) IsProvisional() bool {
	return IsProvisional(r.ID)
}

// ApplicationID returns the parent application id of an Interview.
func (r Record) ApplicationID() (int64, bool) {
	if r.Kind != KindInterview {
		return 0, false
	}
	v, ok := r.Fields[FieldApplicationID].(int64)
	return v, ok
}

// Merge returns a copy of r with fields overlaid. The id is never changed.
// A nil value removes the field.
func (r Record) Merge(fields Fields) Record {
	out := Record{Kind: r.Kind, ID: r.ID, Fields: r.Fields.Clone()}
	for k, v := range fields {
		if v == nil {
			delete(out.Fields, k)
			continue
		}
		out.Fields[k] = v
	}
	return out
}

// Map returns the record as a flat map including its id.
func (r Record) Map() map[string]any {
	m := make(map[string]any, len(r.Fields)+1)
	for k, v := range r.Fields {
		m[k] = v
	}
	m[FieldIDName] = r.ID
	return m
}

// MarshalJSON renders the record in canonical form with its id inlined.
func (r Record) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(r.Map())
}

// String renders a compact single-line description, e.g.
// "application -1 companyName=Acme roleTitle=SRE".
func (r Record) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d", r.Kind, r.ID)
	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, r.Fields[k])
	}
	return b.String()
}

// NormalizeFields validates fields against the kind's schema and coerces
// numeric values to int64. The id key is rejected; ids are not fields.
// A nil value is kept so that Merge can use it to clear a field.
func NormalizeFields(kind Kind, fields Fields) (Fields, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown record kind %q", kind)
	}
	out := make(Fields, len(fields))
	for name, raw := range fields {
		if name == FieldIDName {
			return nil, &FieldError{Kind: kind, Field: name, Msg: "id is not a settable field"}
		}
		typ, ok := kind.FieldType(name)
		if !ok {
			return nil, &FieldError{Kind: kind, Field: name, Msg: "unknown field"}
		}
		if raw == nil {
			out[name] = nil
			continue
		}
		v, err := coerce(typ, raw)
		if err != nil {
			return nil, &FieldError{Kind: kind, Field: name, Msg: err.Error()}
		}
		out[name] = v
	}
	return out, nil
}

// ParseFieldValue converts a textual value (CLI flag, seed file) to the
// field's declared type.
func ParseFieldValue(kind Kind, name, raw string) (any, error) {
	typ, ok := kind.FieldType(name)
	if !ok {
		return nil, &FieldError{Kind: kind, Field: name, Msg: "unknown field"}
	}
	switch typ {
	case FieldInt:
		v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, &FieldError{Kind: kind, Field: name, Msg: fmt.Sprintf("invalid integer %q", raw)}
		}
		return v, nil
	case FieldBool:
		v, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, &FieldError{Kind: kind, Field: name, Msg: fmt.Sprintf("invalid boolean %q", raw)}
		}
		return v, nil
	}
	return raw, nil
}

func coerce(typ FieldType, raw any) (any, error) {
	switch typ {
	case FieldString:
		if s, ok := raw.(string); ok {
			return s, nil
		}
	case FieldBool:
		if b, ok := raw.(bool); ok {
			return b, nil
		}
	case FieldInt:
		switch v := raw.(type) {
		case int64:
			return v, nil
		case int:
			return int64(v), nil
		case int32:
			return int64(v), nil
		case json.Number:
			n, err := v.Int64()
			if err != nil {
				return nil, fmt.Errorf("invalid integer %s", v)
			}
			return n, nil
		case float64:
			if v != math.Trunc(v) || v > math.MaxInt64 || v < math.MinInt64 {
				return nil, fmt.Errorf("invalid integer %v", v)
			}
			return int64(v), nil
		}
	}
	return nil, fmt.Errorf("expected %s, got %T", typ, raw)
}
