package dispatch

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var errNotSupported = NewError(-32001, "Not supported.")

// mathGroup mirrors a typical API group: typed integer params, a default, an
// ordinary failure and a reportable failure.
type mathGroup struct{}

func (m *mathGroup) Methods() map[string]Method {
	return map[string]Method{
		"subtract": {
			Params: []Param{Required("a").As(TypeInt), Required("b").As(TypeInt)},
			Func: func(_ context.Context, args []any) (any, error) {
				return args[0].(int64) - args[1].(int64), nil
			},
		},
		"pow": {
			Params: []Param{Required("a").As(TypeInt), Optional("b", 2).As(TypeInt)},
			Func: func(_ context.Context, args []any) (any, error) {
				result := int64(1)
				for i := int64(0); i < args[1].(int64); i++ {
					result *= args[0].(int64)
				}
				return result, nil
			},
		},
		"divide": {
			Params: []Param{Required("a").As(TypeFloat), Required("b").As(TypeFloat)},
			Func: func(_ context.Context, args []any) (any, error) {
				if args[1].(float64) == 0 {
					return nil, errors.New("Division by zero.")
				}
				return args[0].(float64) / args[1].(float64), nil
			},
		},
		"add": {
			Params: []Param{Required("a"), Required("b")},
			Func: func(context.Context, []any) (any, error) {
				return nil, errNotSupported
			},
		},
		"multiply": {
			Params: []Param{Required("a").As(TypeInt), Required("b").As(TypeInt)},
			Func: func(_ context.Context, args []any) (any, error) {
				return args[0].(int64) * args[1].(int64), nil
			},
		},
		"raw": {
			Params: []Param{Required("value"), Optional("note", nil)},
			Func: func(_ context.Context, args []any) (any, error) {
				return args, nil
			},
		},
		"coded": {
			Func: func(context.Context, []any) (any, error) {
				return nil, &codedError{msg: "quota exceeded", code: 429}
			},
		},
		"wrapped": {
			Func: func(context.Context, []any) (any, error) {
				return nil, fmt.Errorf("wrapped: %w", errNotSupported)
			},
		},
		"crash": {
			Func: func(context.Context, []any) (any, error) {
				panic("boom")
			},
		},
	}
}

// badTable constructs fine but panics when asked for its methods.
type badTable struct{}

func (badTable) Methods() map[string]Method { panic("method table exploded") }

type codedError struct {
	msg  string
	code int
}

func (e *codedError) Error() string  { return e.msg }
func (e *codedError) ErrorCode() int { return e.code }

// testMath is registered under an alternate namespace where add works.
type testMath struct{}

func (m *testMath) Methods() map[string]Method {
	return map[string]Method{
		"add": {
			Params: []Param{Required("a").As(TypeInt), Required("b").As(TypeInt)},
			Func: func(_ context.Context, args []any) (any, error) {
				return args[0].(int64) + args[1].(int64), nil
			},
		},
	}
}

type deviceIdentifier struct {
	deviceID   string
	macAddress string
}

var (
	deviceIDPattern  = regexp.MustCompile(`^id\{(\d+)\}$`)
	macAddressRegexp = regexp.MustCompile(`(?i)^mac\{([a-f0-9]+)\}$`)
)

func newDeviceIdentifier(raw any) (any, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("expected string, got %T", raw)
	}
	if m := deviceIDPattern.FindStringSubmatch(s); m != nil {
		return &deviceIdentifier{deviceID: m[1], macAddress: "dummy"}, nil
	}
	if m := macAddressRegexp.FindStringSubmatch(s); m != nil {
		return &deviceIdentifier{deviceID: "dummy", macAddress: strings.ToLower(m[1])}, nil
	}
	return nil, fmt.Errorf("malformed device identifier %q", s)
}

type offsite struct{}

func (o *offsite) Methods() map[string]Method {
	return map[string]Method{
		"getTargetType": {
			Params: []Param{Required("identifier").As("DeviceIdentifier")},
			Func: func(_ context.Context, args []any) (any, error) {
				id := args[0].(*deviceIdentifier)
				return "deviceID=" + id.deviceID + ", mac=" + id.macAddress, nil
			},
		},
		"invalidEndpoint": {
			Params: []Param{Required("invalid").As("InvalidClassName")},
			Func: func(context.Context, []any) (any, error) {
				return "this code is never reached", nil
			},
		},
		"explode": {
			Params: []Param{Optional("value", "x").As("Exploding")},
			Func: func(context.Context, []any) (any, error) {
				return "this code is never reached", nil
			},
		},
	}
}

// counter records calls on its own instance; a shared instance would
// return values above 1.
type counter struct {
	calls int
}

func (c *counter) Methods() map[string]Method {
	return map[string]Method{
		"hit": {
			Func: func(context.Context, []any) (any, error) {
				c.calls++
				return c.calls, nil
			},
		},
	}
}

// newTestRegistry registers the fixtures under the "API" and "Test"
// namespaces.
func newTestRegistry() *Registry {
	reg := NewRegistry()
	reg.MustRegister("API.Math", func() (Group, error) { return &mathGroup{}, nil })
	reg.MustRegister("API.Counter", func() (Group, error) { return &counter{}, nil })
	reg.MustRegister("API.Broken", func() (Group, error) { return nil, errors.New("no database") })
	reg.MustRegister("API.Panicky", func() (Group, error) { panic("constructor exploded") })
	reg.MustRegister("API.BadTable", func() (Group, error) { return badTable{}, nil })
	reg.MustRegister("Test.Math", func() (Group, error) { return &testMath{}, nil })
	reg.MustRegister("Test.Offsite", func() (Group, error) { return &offsite{}, nil })
	reg.MustRegister("Test.Share.Nas", func() (Group, error) { return &testMath{}, nil })
	reg.MustRegisterType("DeviceIdentifier", newDeviceIdentifier)
	reg.MustRegisterType("Exploding", func(any) (any, error) { panic("bad constructor") })
	return reg
}

// staticMathMapper always resolves to multiply and passes positional values
// through.
type staticMathMapper struct{}

func (staticMathMapper) Callable(string) (*Handle, error) {
	g := &mathGroup{}
	return &Handle{Group: "API.Math", Selector: "multiply", Instance: g, Method: g.Methods()["multiply"]}, nil
}

func (staticMathMapper) Arguments(_ *Handle, args Arguments) ([]any, error) {
	values := args.Values()
	out := make([]any, len(values))
	for i, v := range values {
		n, err := ToInt(v)
		if err != nil {
			return nil, ArgumentError("invalid params", err)
		}
		out[i] = n
	}
	return out, nil
}
