package acctreview

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record is one raw row keyed by field name. After projection it holds only
// declared fields, and every value is a string, int64, Money, bool or nil.
type Record map[string]any

// decodeRecord decodes a JSON object into a Record, coercing values into the
// cell domain.
func decodeRecord(raw []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("row is not an object")
	}
	rec := make(Record, len(obj))
	for k, v := range obj {
		cell, err := toCell(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		rec[k] = cell
	}
	return rec, nil
}

func toCell(v any) (any, error) {
	switch val := v.(type) {
	case nil, string, bool:
		return val, nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, nil
		}
		return NewMoney(val.String())
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}
}

// cellString renders a cell value as text.
func cellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// project keeps the declared fields of rec, in a new Record. Absent fields are
// set to nil when optional is true and reported as an error otherwise.
func project(rec Record, fields []string, optional bool) (Record, error) {
	out := make(Record, len(fields))
	for _, f := range fields {
		v, ok := rec[f]
		if !ok {
			if !optional {
				return nil, &NormalizeError{Field: f, Err: fmt.Errorf("missing field")}
			}
			v = nil
		}
		out[f] = v
	}
	return out, nil
}
