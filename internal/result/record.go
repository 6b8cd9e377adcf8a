package result

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field is one column value of a table row.
type Field struct {
	Column string
	Value  string
}

// Record is a table row keyed by column name. It marshals to a JSON object
// whose keys keep the table's column order.
type Record []Field

// Get returns the value for column, if present.
func (r Record) Get(column string) (string, bool) {
	for _, f := range r {
		if f.Column == column {
			return f.Value, true
		}
	}
	return "", false
}

func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Column)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("record: expected object, got %v", tok)
	}

	fields := Record{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("record: expected key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("record %q: %w", key, err)
		}
		fields = append(fields, Field{Column: key, Value: scalarString(raw)})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = fields
	return nil
}

// scalarString keeps strings as-is, maps null to "" and falls back to the
// raw JSON text for numbers and booleans.
func scalarString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}
