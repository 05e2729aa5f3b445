package acctreview

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	checksKey       = "BestPracticeChecks"
	checkIDKey      = "CheckId"
	checkResultsKey = "Results"
)

// anchorWrappers are hyperlink fragments that some vendors embed in check
// result cells. They are removed, in raw and JSON-escaped form, before decoding.
var anchorWrappers = [][]byte{
	[]byte(`<a href=\"`),
	[]byte(`\" target=\"_blank\"`),
	[]byte(`<a href="`),
	[]byte(`" target="_blank"`),
}

func stripAnchors(raw []byte) []byte {
	for _, w := range anchorWrappers {
		raw = bytes.ReplaceAll(raw, w, nil)
	}
	return raw
}

// decodeChecks returns the rows of the check block matching checkID. When the
// payload holds a single block its rows are returned whatever its id.
func decodeChecks(raw []byte, checkID int) ([]Record, error) {
	raw = stripAnchors(raw)
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("payload is not valid JSON")
	}
	checks := gjson.GetBytes(raw, checksKey)
	if !checks.Exists() {
		return nil, fmt.Errorf("property %q not found", checksKey)
	}
	if !checks.IsArray() {
		return nil, fmt.Errorf("property %q is not an array", checksKey)
	}

	blocks := checks.Array()
	filter := len(blocks) > 1

	var records []Record
	for i, block := range blocks {
		if filter && block.Get(checkIDKey).Int() != int64(checkID) {
			continue
		}
		results := block.Get(checkResultsKey)
		if !results.Exists() {
			continue
		}
		if !results.IsArray() {
			return nil, fmt.Errorf("check %d: property %q is not an array", i, checkResultsKey)
		}
		for j, line := range results.Array() {
			rec, err := decodeCheckRow(line.String())
			if err != nil {
				return nil, fmt.Errorf("check %d row %d: %w", i, j, err)
			}
			records = append(records, rec)
		}
	}
	return records, nil
}

// decodeCheckRow splits "Key1: Value1 | Key2: Value2" into a record. Values
// may contain further colons; only the first separates key and value.
func decodeCheckRow(line string) (Record, error) {
	rec := make(Record)
	for _, segment := range strings.Split(line, "|") {
		if strings.TrimSpace(segment) == "" {
			continue
		}
		key, value, ok := strings.Cut(segment, ":")
		if !ok {
			return nil, fmt.Errorf("segment %q has no key separator", strings.TrimSpace(segment))
		}
		rec[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return rec, nil
}
