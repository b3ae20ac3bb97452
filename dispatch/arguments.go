package dispatch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
)

// Arguments is the caller-supplied argument set of one call: either an
// ordered list of positional values or a set of named values.
//
// The zero value is an empty positional set.
type Arguments struct {
	positional []any
	named      map[string]any
	isNamed    bool
}

// Positional returns a positional argument set.
func Positional(values ...any) Arguments {
	return Arguments{positional: values}
}

// Named returns a named argument set. Use ArgumentsOf to apply the
// positional-key classification to a decoded map.
func Named(values map[string]any) Arguments {
	if values == nil {
		values = map[string]any{}
	}
	return Arguments{named: values, isNamed: true}
}

// IsNamed reports whether the set is keyed by parameter name.
func (a Arguments) IsNamed() bool {
	return a.isNamed
}

// Len returns the number of supplied values.
func (a Arguments) Len() int {
	if a.isNamed {
		return len(a.named)
	}
	return len(a.positional)
}

// At returns the positional value at index i.
func (a Arguments) At(i int) (any, bool) {
	if a.isNamed || i < 0 || i >= len(a.positional) {
		return nil, false
	}
	return a.positional[i], true
}

// Get returns the named value for name.
func (a Arguments) Get(name string) (any, bool) {
	if !a.isNamed {
		return nil, false
	}
	v, ok := a.named[name]
	return v, ok
}

// Values returns the positional values in order. For a named set it
// returns nil.
func (a Arguments) Values() []any {
	if a.isNamed {
		return nil
	}
	return a.positional
}

// lookup selects the raw value for the parameter at position pos. A null
// value is reported as absent.
func (a Arguments) lookup(pos int, name string) (any, bool) {
	var v any
	var ok bool
	if a.isNamed {
		v, ok = a.Get(name)
	} else {
		v, ok = a.At(pos)
	}
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// ErrUnstructuredParams is returned when params is neither an array nor an
// object.
var ErrUnstructuredParams = errors.New("dispatch: params must be an array or an object")

// ParseArguments decodes JSON-RPC params.
//
// An array is positional. An object is positional only if its keys are
// exactly "0", "1", ... "n-1" in document order; otherwise it is named.
// Empty or null params yield an empty positional set. Numbers are decoded as
// json.Number so value types can choose their own representation.
func ParseArguments(raw json.RawMessage) (Arguments, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Positional(), nil
	}

	switch raw[0] {
	case '[':
		var values []any
		if err := decodeJSON(raw, &values); err != nil {
			return Arguments{}, err
		}
		return Positional(values...), nil
	case '{':
		keys, err := objectKeys(raw)
		if err != nil {
			return Arguments{}, err
		}
		var values map[string]any
		if err := decodeJSON(raw, &values); err != nil {
			return Arguments{}, err
		}
		if !sequentialKeys(keys) {
			return Named(values), nil
		}
		positional := make([]any, len(keys))
		for i, k := range keys {
			positional[i] = values[k]
		}
		return Positional(positional...), nil
	default:
		return Arguments{}, ErrUnstructuredParams
	}
}

// ArgumentsOf classifies an already-decoded params value, as produced by a
// non-JSON codec. Slices are positional. Maps are positional if their key set
// is exactly the integers 0..n-1 (as integers or decimal strings), otherwise
// named by the string form of each key. nil yields an empty positional set.
func ArgumentsOf(v any) (Arguments, error) {
	if v == nil {
		return Positional(), nil
	}
	switch t := v.(type) {
	case Arguments:
		return t, nil
	case []any:
		return Positional(t...), nil
	case map[string]any:
		return classifyMap(reflect.ValueOf(t))
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		values := make([]any, rv.Len())
		for i := range values {
			values[i] = rv.Index(i).Interface()
		}
		return Positional(values...), nil
	case reflect.Map:
		return classifyMap(rv)
	default:
		return Arguments{}, ErrUnstructuredParams
	}
}

func classifyMap(rv reflect.Value) (Arguments, error) {
	n := rv.Len()
	byIndex := make([]any, n)
	seen := make([]bool, n)
	positional := true
	named := make(map[string]any, n)

	iter := rv.MapRange()
	for iter.Next() {
		name, idx, ok := mapKey(iter.Key())
		if !ok {
			return Arguments{}, fmt.Errorf("dispatch: unsupported params key type %s", iter.Key().Type())
		}
		val := iter.Value().Interface()
		named[name] = val
		if positional && idx >= 0 && idx < n && !seen[idx] {
			byIndex[idx] = val
			seen[idx] = true
		} else {
			positional = false
		}
	}

	if positional {
		return Positional(byIndex...), nil
	}
	return Named(named), nil
}

// mapKey returns the string form of a map key and its index if the key is
// a non-negative integer (or its canonical decimal string), or -1.
func mapKey(k reflect.Value) (string, int, bool) {
	if k.Kind() == reflect.Interface {
		k = k.Elem()
	}
	switch k.Kind() {
	case reflect.String:
		s := k.String()
		return s, indexKey(s), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i := k.Int()
		idx := -1
		if i >= 0 && i <= int64(^uint(0)>>1) {
			idx = int(i)
		}
		return strconv.FormatInt(i, 10), idx, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := k.Uint()
		idx := -1
		if u <= uint64(^uint(0)>>1) {
			idx = int(u)
		}
		return strconv.FormatUint(u, 10), idx, true
	default:
		return "", -1, false
	}
}

// indexKey parses a canonical non-negative decimal ("0", "12"; not "01",
// "+1" or "-0").
func indexKey(s string) int {
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return -1
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return -1
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}

func sequentialKeys(keys []string) bool {
	for i, k := range keys {
		if k != strconv.Itoa(i) {
			return false
		}
	}
	return true
}

func decodeJSON(raw []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("dispatch: trailing data after params")
	}
	return nil
}

// objectKeys returns the top-level keys of a JSON object in document order.
func objectKeys(raw []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("dispatch: unexpected object key %v", tok)
		}
		keys = append(keys, key)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}
