package api

import (
	"context"

	"github.com/mnehpets/onerpc/dispatch"
)

// nasGroup sits two levels deep, reachable as "share/nas/<method>".
type nasGroup struct{}

func newNas() (dispatch.Group, error) {
	return nasGroup{}, nil
}

func (nasGroup) Methods() map[string]dispatch.Method {
	return map[string]dispatch.Method{
		"add": {
			Params: []dispatch.Param{
				dispatch.Required("a").As(dispatch.TypeInt),
				dispatch.Required("b").As(dispatch.TypeInt),
			},
			Func: func(_ context.Context, args []any) (any, error) {
				return args[0].(int64) + args[1].(int64), nil
			},
		},
		"describe": {
			Params: []dispatch.Param{
				dispatch.Required("name").As(dispatch.TypeString),
				dispatch.Optional("readOnly", false).As(dispatch.TypeBool),
			},
			Func: func(_ context.Context, args []any) (any, error) {
				return map[string]any{
					"name":     args[0],
					"readOnly": args[1],
				}, nil
			},
		},
	}
}
