package audit

import (
	"bytes"
	"encoding"
	"encoding/json"
	"reflect"
	"strings"
)

const sensitiveKeyMarker = "password"

func isSensitiveKey(k string) bool {
	return strings.Contains(strings.ToLower(k), sensitiveKeyMarker)
}

// Redact returns a copy of v with every map key containing "password" (any case) removed,
// at any depth. Values that cannot be serialized (funcs, channels) are dropped as well.
func Redact(v any) any {
	out, ok := scrub(v)
	if !ok {
		return nil
	}
	return out
}

func scrub(v any) (any, bool) {
	if v == nil {
		return nil, true
	}
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if isSensitiveKey(k) {
				continue
			}
			if s, ok := scrub(val); ok {
				out[k] = s
			}
		}
		return out, true
	case []any:
		out := make([]any, 0, len(t))
		for _, val := range t {
			if s, ok := scrub(val); ok {
				out = append(out, s)
			}
		}
		return out, true
	case error:
		return t.Error(), true
	case json.Marshaler, encoding.TextMarshaler:
		return v, true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128:
		return nil, false
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, true
		}
		return scrub(rv.Elem().Interface())
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v, true
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key().String()
			if isSensitiveKey(k) {
				continue
			}
			if s, ok := scrub(iter.Value().Interface()); ok {
				out[k] = s
			}
		}
		return out, true
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return v, true
		}
		out := make([]any, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			if s, ok := scrub(rv.Index(i).Interface()); ok {
				out = append(out, s)
			}
		}
		return out, true
	}
	return v, true
}

const unserializableDetails = `{"erro":"details not serializable"}`

// encodeDetails serializes a payload with redaction applied twice: once on the raw
// structure and once on its JSON form, which also catches struct fields whose JSON
// names contain "password".
func encodeDetails(d Details) string {
	if d == nil {
		return "{}"
	}
	clean, _ := scrub(map[string]any(d))
	b, err := json.Marshal(clean)
	if err != nil {
		return unserializableDetails
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return unserializableDetails
	}
	generic, _ = scrub(generic)
	b, err = json.Marshal(generic)
	if err != nil {
		return unserializableDetails
	}
	return string(b)
}
