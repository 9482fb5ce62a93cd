package converter

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field is one caller-supplied key with an already encoded JSON value.
type Field struct {
	Key   string
	Value json.RawMessage
}

// Fields are extension fields merged into the endpoint ahead of the fixed
// schema. Order is preserved in the output.
type Fields []Field

// Get returns the last value stored under key.
func (f Fields) Get(key string) (json.RawMessage, bool) {
	for i := len(f) - 1; i >= 0; i-- {
		if f[i].Key == key {
			return f[i].Value, true
		}
	}
	return nil, false
}

// Keys returns the field keys in order, duplicates included.
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for _, field := range f {
		keys = append(keys, field.Key)
	}
	return keys
}

// With returns a copy of f with key set to the JSON encoding of value.
func (f Fields) With(key string, value any) (Fields, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encoding field %q: %w", key, err)
	}
	out := make(Fields, len(f), len(f)+1)
	copy(out, f)
	return append(out, Field{Key: key, Value: raw}), nil
}

// object is a JSON object that remembers insertion order.
// Setting an existing key replaces its value without moving it.
type object struct {
	keys   []string
	values map[string]any
}

func newObject() *object {
	return &object{values: make(map[string]any)}
}

func (o *object) set(key string, value any) {
	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

func (o *object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeJSON(&buf, key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := encodeJSON(&buf, o.values[key]); err != nil {
			return nil, fmt.Errorf("encoding %q: %w", key, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// encodeJSON appends the compact encoding of v to buf, leaving '<', '>'
// and '&' unescaped.
func encodeJSON(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1)
	return nil
}
