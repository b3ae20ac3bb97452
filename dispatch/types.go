package dispatch

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
)

// TypeConstructor is the single-value constructor of a value type. It
// receives the raw argument (or the parameter's default) and returns the
// expanded value.
type TypeConstructor func(raw any) (any, error)

// Names of the value types every Registry starts with.
const (
	TypeInt    = "int"
	TypeFloat  = "float"
	TypeString = "string"
	TypeBool   = "bool"
)

func builtinTypes() map[string]TypeConstructor {
	return map[string]TypeConstructor{
		TypeInt:    func(raw any) (any, error) { return ToInt(raw) },
		TypeFloat:  func(raw any) (any, error) { return ToFloat(raw) },
		TypeString: func(raw any) (any, error) { return toString(raw) },
		TypeBool:   func(raw any) (any, error) { return toBool(raw) },
	}
}

// ToInt converts a decoded number into an int64. Fractional or out of range
// values are rejected.
func ToInt(raw any) (int64, error) {
	switch v := raw.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", v.String())
		}
		return floatToInt(f)
	case float32:
		return floatToInt(float64(v))
	case float64:
		return floatToInt(v)
	}

	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if rv.Uint() > math.MaxInt64 {
			return 0, fmt.Errorf("integer out of range: %d", rv.Uint())
		}
		return int64(rv.Uint()), nil
	}
	return 0, fmt.Errorf("expected integer, got %T", raw)
}

func floatToInt(f float64) (int64, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("expected integer, got %v", f)
	}
	return int64(f), nil
}

// ToFloat converts a decoded number into a float64.
func ToFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", v.String())
		}
		return f, nil
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	}

	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	}
	return 0, fmt.Errorf("expected number, got %T", raw)
}

func toString(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	}
	return "", fmt.Errorf("expected string, got %T", raw)
}

func toBool(raw any) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	}
	return false, fmt.Errorf("expected bool, got %T", raw)
}
