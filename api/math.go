package api

import (
	"context"
	"errors"
	"math"

	"github.com/mnehpets/onerpc/dispatch"
)

// ErrNotSupported is returned by entry points that exist but are disabled.
var ErrNotSupported = dispatch.NewError(-32001, "Not supported.")

var (
	errDivisionByZero  = errors.New("Division by zero.")
	errIntegerOverflow = errors.New("Integer overflow.")
)

type mathGroup struct{}

func newMath() (dispatch.Group, error) {
	return mathGroup{}, nil
}

func (mathGroup) Methods() map[string]dispatch.Method {
	ints := []dispatch.Param{
		dispatch.Required("a").As(dispatch.TypeInt),
		dispatch.Required("b").As(dispatch.TypeInt),
	}
	return map[string]dispatch.Method{
		"add": {
			Params: ints,
			Func: func(context.Context, []any) (any, error) {
				return nil, ErrNotSupported
			},
		},
		"subtract": {
			Params: ints,
			Func: func(_ context.Context, args []any) (any, error) {
				return subtract(args[0].(int64), args[1].(int64))
			},
		},
		"multiply": {
			Params: ints,
			Func: func(_ context.Context, args []any) (any, error) {
				return multiply(args[0].(int64), args[1].(int64))
			},
		},
		"divide": {
			Params: []dispatch.Param{
				dispatch.Required("a").As(dispatch.TypeFloat),
				dispatch.Required("b").As(dispatch.TypeFloat),
			},
			Func: func(_ context.Context, args []any) (any, error) {
				b := args[1].(float64)
				if b == 0 {
					return nil, errDivisionByZero
				}
				return args[0].(float64) / b, nil
			},
		},
		"pow": {
			Params: []dispatch.Param{
				dispatch.Required("a").As(dispatch.TypeFloat),
				dispatch.Optional("b", 2).As(dispatch.TypeFloat),
			},
			Func: func(_ context.Context, args []any) (any, error) {
				return math.Pow(args[0].(float64), args[1].(float64)), nil
			},
		},
	}
}

func subtract(a, b int64) (int64, error) {
	r := a - b
	if (b > 0 && r > a) || (b < 0 && r < a) {
		return 0, errIntegerOverflow
	}
	return r, nil
}

func multiply(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	r := a * b
	if r/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, errIntegerOverflow
	}
	return r, nil
}
