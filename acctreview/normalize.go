package acctreview

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// transform mutates a record in place. Derive transforms run on the raw record
// before projection, convert transforms on the projected one.
type transform func(Record) error

// Normalize parses raw and returns its table. The header always equals d.Fields.
func (d Descriptor) Normalize(raw []byte) (*Table, error) {
	records, err := d.Parse(raw)
	if err != nil {
		return nil, err
	}
	return Tabulate(d.Fields, records)
}

// Parse decodes raw according to d.Format and returns the projected,
// converted records in payload order.
func (d Descriptor) Parse(raw []byte) ([]Record, error) {
	records, err := d.decode(raw)
	if err != nil {
		return nil, d.fail(err)
	}

	derive := d.deriveSteps()
	convert := d.convertSteps()

	out := make([]Record, 0, len(records))
	for _, rec := range records {
		for _, step := range derive {
			if err := step(rec); err != nil {
				return nil, d.fail(err)
			}
		}
		projected, err := project(rec, d.Fields, d.Optional)
		if err != nil {
			return nil, d.fail(err)
		}
		for _, step := range convert {
			if err := step(projected); err != nil {
				return nil, d.fail(err)
			}
		}
		out = append(out, projected)
	}
	return out, nil
}

// Tabulate lays records out in field order. Every record must carry every field.
func Tabulate(fields []string, records []Record) (*Table, error) {
	rows := make([][]any, 0, len(records))
	for i, rec := range records {
		row := make([]any, len(fields))
		for j, f := range fields {
			v, ok := rec[f]
			if !ok {
				return nil, &NormalizeError{Field: f, Err: fmt.Errorf("row %d: missing field", i)}
			}
			row[j] = v
		}
		rows = append(rows, row)
	}
	return NewTable(fields, rows)
}

func (d Descriptor) decode(raw []byte) ([]Record, error) {
	switch d.Format {
	case FormatFlat:
		return decodeFlat(raw, d.DataKey)
	case FormatPaged:
		return decodePaged(raw, d.DataKey)
	case FormatCheck:
		return decodeChecks(raw, d.CheckID)
	case FormatPriceList:
		return decodePriceList(raw)
	default:
		return nil, fmt.Errorf("unsupported format %s", d.Format)
	}
}

func (d Descriptor) deriveSteps() []transform {
	var steps []transform
	if d.InstanceField != "" {
		steps = append(steps, splitInstance(d.InstanceField))
	}
	return steps
}

func (d Descriptor) convertSteps() []transform {
	var steps []transform
	if len(d.MoneyFields) > 0 {
		steps = append(steps, parseMoneyFields(d.MoneyFields))
	}
	if len(d.DateFields) > 0 {
		steps = append(steps, reformatDateFields(d.DateFields))
	}
	return steps
}

func (d Descriptor) fail(err error) error {
	var ne *NormalizeError
	if errors.As(err, &ne) {
		if ne.Source == "" {
			ne.Source = d.Slug
		}
		return ne
	}
	return &NormalizeError{Source: d.Slug, Err: err}
}

func decodeFlat(raw []byte, key string) ([]Record, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("payload is not valid JSON")
	}
	res := gjson.GetBytes(raw, key)
	if !res.Exists() {
		return nil, fmt.Errorf("property %q not found", key)
	}
	return decodeArray(res, key)
}

// decodePaged concatenates the key arrays of every page, in page order.
func decodePaged(raw []byte, key string) ([]Record, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("payload is not valid JSON")
	}
	root := gjson.ParseBytes(raw)
	if !root.IsArray() {
		return nil, fmt.Errorf("paged payload is not an array of pages")
	}
	var records []Record
	for i, page := range root.Array() {
		res := page.Get(key)
		if !res.Exists() {
			return nil, fmt.Errorf("page %d: property %q not found", i, key)
		}
		pageRecords, err := decodeArray(res, key)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		records = append(records, pageRecords...)
	}
	return records, nil
}

func decodeArray(res gjson.Result, key string) ([]Record, error) {
	if !res.IsArray() {
		return nil, fmt.Errorf("property %q is not an array", key)
	}
	var records []Record
	var err error
	res.ForEach(func(_, value gjson.Result) bool {
		var rec Record
		rec, err = decodeRecord([]byte(value.Raw))
		if err != nil {
			err = fmt.Errorf("row %d: %w", len(records), err)
			return false
		}
		records = append(records, rec)
		return true
	})
	return records, err
}

// splitInstance derives the instance id (text before the first space) and the
// instance name (text inside the first parentheses) from a combined field.
func splitInstance(field string) transform {
	return func(rec Record) error {
		v, ok := rec[field]
		if !ok {
			return &NormalizeError{Field: field, Err: fmt.Errorf("missing field")}
		}
		s := strings.TrimSpace(cellString(v))

		id := s
		if i := strings.IndexByte(s, ' '); i >= 0 {
			id = s[:i]
		}
		name := ""
		if open := strings.IndexByte(s, '('); open >= 0 {
			if end := strings.IndexByte(s[open+1:], ')'); end >= 0 {
				name = s[open+1 : open+1+end]
			}
		}

		rec[InstanceIDField] = id
		rec[InstanceNameField] = name
		return nil
	}
}

func parseMoneyFields(fields []string) transform {
	return func(rec Record) error {
		for _, f := range fields {
			var (
				m   Money
				err error
			)
			switch v := rec[f].(type) {
			case nil, Money:
				continue
			case string:
				m, err = ParseMoney(v)
			case int64:
				m, err = NewMoney(strconv.FormatInt(v, 10))
			default:
				err = fmt.Errorf("unexpected %T value", v)
			}
			if err != nil {
				return &NormalizeError{Field: f, Err: err}
			}
			rec[f] = m
		}
		return nil
	}
}

// reformatDateFields rewrites ISO timestamps for display. Null and empty
// values are left untouched.
func reformatDateFields(fields []string) transform {
	return func(rec Record) error {
		for _, f := range fields {
			switch v := rec[f].(type) {
			case nil:
				continue
			case string:
				if v == "" {
					continue
				}
				s, err := ReformatDate(v)
				if err != nil {
					return &NormalizeError{Field: f, Err: err}
				}
				rec[f] = s
			default:
				return &NormalizeError{Field: f, Err: fmt.Errorf("unexpected %T value", v)}
			}
		}
		return nil
	}
}
