package agentsessions

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ErrNotObject is returned by DecodeObject for lines whose top-level JSON
// value is not an object.
var ErrNotObject = errors.New("line is not a JSON object")

// ErrFieldType is returned by DecodeObject when a known field holds a JSON
// value its Go type cannot take.
var ErrFieldType = errors.New("unexpected field type")

// Fields holds JSON object members in their original order.
type Fields = orderedmap.OrderedMap[string, json.RawMessage]

// DecodeObject decodes a single JSON object line into known and returns the
// members whose keys are not listed in knownKeys, in document order.
func DecodeObject(line []byte, known any, knownKeys ...string) (*Fields, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || line[0] != '{' {
		return nil, ErrNotObject
	}

	extras := orderedmap.New[string, json.RawMessage]()
	if err := json.Unmarshal(line, extras); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(line, known); err != nil {
		return extras, fmt.Errorf("%w: %v", ErrFieldType, err)
	}
	for _, key := range knownKeys {
		extras.Delete(key)
	}
	return extras, nil
}

// LooseString is a string field that accepts any JSON value. Values other
// than strings decode to "".
type LooseString string

func (s *LooseString) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		*s = ""
		return nil
	}
	*s = LooseString(v)
	return nil
}

// String returns the decoded text.
func (s LooseString) String() string { return string(s) }

// OpaqueEntry is the entry for an object line whose known fields could not be
// read. The whole line is shown pretty-printed, under its "type" when that is
// a string.
func OpaqueEntry(line []byte) Entry {
	entry := Entry{
		Kind:     EntryOther,
		Category: CategoryEvent,
		Whole:    append(json.RawMessage(nil), bytes.TrimSpace(line)...),
	}
	if t := gjson.GetBytes(line, "type"); t.Type == gjson.String && t.String() != "" {
		entry.Category = t.String()
	}
	if ts := gjson.GetBytes(line, "timestamp"); ts.Type == gjson.String {
		entry.Timestamp = ts.String()
	}
	return entry
}

// ObjectFields decodes raw as a JSON object, preserving member order. It
// returns nil when raw is not an object.
func ObjectFields(raw json.RawMessage) *Fields {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil
	}
	fields := orderedmap.New[string, json.RawMessage]()
	if err := json.Unmarshal(raw, fields); err != nil {
		return nil
	}
	return fields
}

// FieldString returns the string member key of fields, or "" when it is
// absent or not a string.
func FieldString(fields *Fields, key string) string {
	if fields == nil {
		return ""
	}
	raw, ok := fields.Get(key)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// Without returns a copy of fields minus the given keys, or nil when nothing
// is left.
func Without(fields *Fields, keys ...string) *Fields {
	if fields == nil {
		return nil
	}
	out := orderedmap.New[string, json.RawMessage]()
	for pair := fields.Oldest(); pair != nil; pair = pair.Next() {
		out.Set(pair.Key, pair.Value)
	}
	for _, key := range keys {
		out.Delete(key)
	}
	if out.Len() == 0 {
		return nil
	}
	return out
}

// PrettyJSON indents raw for display, keeping member order. Invalid JSON is
// returned as-is.
func PrettyJSON(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

// IsNullJSON reports whether raw is empty or the JSON literal null.
func IsNullJSON(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// ParseTimestamp parses an RFC3339 timestamp, with or without fractional
// seconds. Anything else yields the zero time.
func ParseTimestamp(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts
	}
	return time.Time{}
}
