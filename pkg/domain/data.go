package domain

import (
	"strconv"
)

// NamespaceSystem holds values written by the router itself (channel phone,
// case ID, checklist, verification session) rather than by a flow step.
const NamespaceSystem = "system"

// Data is the captured session data, partitioned by namespace (the owning
// flow) so fields never collide across flow hand-offs.
//
// Values are restricted to JSON-compatible shapes: string, bool, numbers,
// []any, []string, map[string]any and nested combinations of those.
type Data map[string]map[string]any

// Get returns the raw value of a field.
func (d Data) Get(ns, field string) (any, bool) {
	if d == nil {
		return nil, false
	}
	fields, ok := d[ns]
	if !ok {
		return nil, false
	}
	v, ok := fields[field]
	return v, ok
}

// Has reports whether the field is present with a non-empty value.
func (d Data) Has(ns, field string) bool {
	v, ok := d.Get(ns, field)
	if !ok || v == nil {
		return false
	}
	if s, isString := v.(string); isString {
		return s != ""
	}
	return true
}

// String returns a field as a string. Numbers are formatted, other shapes yield "".
func (d Data) String(ns, field string) string {
	v, ok := d.Get(ns, field)
	if !ok {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	}
	return ""
}

// Strings returns a field holding a list of strings. JSON round-trips turn
// []string into []any, both are accepted.
func (d Data) Strings(ns, field string) []string {
	v, ok := d.Get(ns, field)
	if !ok {
		return nil
	}
	switch val := v.(type) {
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Map returns a field holding a nested object.
func (d Data) Map(ns, field string) map[string]any {
	v, ok := d.Get(ns, field)
	if !ok {
		return nil
	}
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return nil
}

// Set writes a field, allocating the namespace on demand.
func (d Data) Set(ns, field string, value any) {
	fields, ok := d[ns]
	if !ok {
		fields = make(map[string]any)
		d[ns] = fields
	}
	fields[field] = value
}

// Delete removes a field. Empty namespaces are dropped.
func (d Data) Delete(ns, field string) {
	fields, ok := d[ns]
	if !ok {
		return
	}
	delete(fields, field)
	if len(fields) == 0 {
		delete(d, ns)
	}
}

// Namespace returns a copy of every field of one namespace.
func (d Data) Namespace(ns string) map[string]any {
	fields, ok := d[ns]
	if !ok {
		return map[string]any{}
	}
	return cloneMap(fields)
}

// DropNamespace removes a whole namespace.
func (d Data) DropNamespace(ns string) {
	delete(d, ns)
}

// Merge writes every field of src into the namespace.
func (d Data) Merge(ns string, src map[string]any) {
	for k, v := range src {
		d.Set(ns, k, cloneValue(v))
	}
}

// Clone returns a deep copy. No nested map or slice is shared with the receiver.
func (d Data) Clone() Data {
	if d == nil {
		return Data{}
	}
	out := make(Data, len(d))
	for ns, fields := range d {
		out[ns] = cloneMap(fields)
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	case map[string]string:
		out := make(map[string]string, len(val))
		for k, s := range val {
			out[k] = s
		}
		return out
	}
	return v
}
