package fields

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// ErrorPrefix starts every in-slot field error message.
const ErrorPrefix = "Error: "

// Value is a validated field: either the (possibly normalized) extracted value or
// an error message. Both serialize into the field's own slot.
type Value struct {
	raw     any
	message string
	invalid bool
}

// Valid wraps an accepted value.
func Valid(v any) Value { return Value{raw: v} }

// Invalid wraps an error message; it serializes as that string.
func Invalid(msg string) Value { return Value{message: msg, invalid: true} }

func (v Value) IsValid() bool { return !v.invalid }

// Raw returns the accepted value, or nil for invalid values.
func (v Value) Raw() any { return v.raw }

// Message returns the error message of an invalid value.
func (v Value) Message() string { return v.message }

// Interface returns what the value serializes as.
func (v Value) Interface() any {
	if v.invalid {
		return v.message
	}
	return v.raw
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// IsErrorString reports whether raw is a field error produced by a previous
// validation pass.
func IsErrorString(raw any) bool {
	s, ok := raw.(string)
	return ok && strings.HasPrefix(s, ErrorPrefix)
}

// Fields is an ordered set of validated values.
type Fields struct {
	keys   []string
	values map[string]Value
}

func newFields(n int) *Fields {
	return &Fields{keys: make([]string, 0, n), values: make(map[string]Value, n)}
}

func (f *Fields) set(key string, v Value) {
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = v
}

// Get returns the value stored under key.
func (f *Fields) Get(key string) (Value, bool) {
	if f == nil {
		return Value{}, false
	}
	v, ok := f.values[key]
	return v, ok
}

// Keys returns field names in output order.
func (f *Fields) Keys() []string {
	if f == nil {
		return nil
	}
	out := make([]string, len(f.keys))
	copy(out, f.keys)
	return out
}

func (f *Fields) Len() int {
	if f == nil {
		return 0
	}
	return len(f.keys)
}

// Invalid returns field name to error message for every invalid field.
func (f *Fields) Invalid() map[string]string {
	out := map[string]string{}
	if f == nil {
		return out
	}
	for _, k := range f.keys {
		if v := f.values[k]; !v.IsValid() {
			out[k] = v.Message()
		}
	}
	return out
}

// Map flattens the fields into their serialized form.
func (f *Fields) Map() map[string]any {
	out := make(map[string]any, f.Len())
	if f == nil {
		return out
	}
	for _, k := range f.keys {
		out[k] = f.values[k].Interface()
	}
	return out
}

// MarshalJSON writes the fields as an object in output order.
func (f *Fields) MarshalJSON() ([]byte, error) {
	if f == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range f.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := f.values[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// orderKeys puts schema fields first, in schema order, then any extra keys sorted.
func orderKeys(values map[string]any, schema Schema) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, field := range schema.Fields {
		if _, ok := values[field.Name]; ok {
			out = append(out, field.Name)
			seen[field.Name] = struct{}{}
		}
	}
	var extra []string
	for k := range values {
		if _, ok := seen[k]; !ok {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}
