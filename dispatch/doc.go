// Package dispatch resolves JSON-RPC method names to entry points, binds
// caller arguments to their parameters and invokes them.
//
// # Handler Groups
//
// A handler group is registered under a fully-qualified identifier together
// with a factory. The factory is called once per call; the group it returns
// lists its entry points with an explicit parameter table:
//
//	dispatch.Register("API.Math", dispatch.GroupFunc(map[string]dispatch.Method{
//	    "pow": {
//	        Params: []dispatch.Param{
//	            dispatch.Required("a").As(dispatch.TypeInt),
//	            dispatch.Optional("b", 2).As(dispatch.TypeInt),
//	        },
//	        Func: func(ctx context.Context, args []any) (any, error) {
//	            return pow(args[0].(int64), args[1].(int64)), nil
//	        },
//	    },
//	}))
//
// # Method Names
//
// SimpleMapper splits a method name on its separator ("/" by default). Every
// segment but the last is capitalized and joined with the namespace to form
// the group identifier; the last segment selects the entry point:
//
//	math/pow            -> API.Math, pow
//	v1/device/ownCloud/getStatus -> API.V1.Device.OwnCloud, getStatus
//
// # Arguments
//
// Arguments may be positional or named. Named arguments are reordered into
// declaration order, omitted optional parameters take their defaults, and
// unknown names are ignored. A parameter with a Type is expanded by that value
// type's constructor, including when its default is used.
//
// # Errors
//
// Every failure returned by Evaluate carries an *Error:
//   - KindMethod (CodeMethodNotFound): the name does not resolve.
//   - KindArgument (CodeInvalidParams): a required parameter is missing, or a
//     value type is unknown or rejects the value.
//   - KindEvaluation: the entry point failed with an ordinary error; its
//     message is kept, and its code if it has an ErrorCode method.
//   - KindApplication: the entry point returned an *Error (or an error
//     wrapping one), which is passed through unchanged.
package dispatch
