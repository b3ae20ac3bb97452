package dispatch

import "context"

// Param describes one declared parameter of an entry point. Its position is
// its index in Method.Params.
type Param struct {
	Name string
	// Optional parameters take Default when the caller omits them.
	Optional bool
	Default  any
	// Type names a value type registered with the Registry. The raw value
	// (or the default) is passed to that type's constructor. An empty Type
	// passes the raw value through unchanged.
	Type string
}

// Required declares a parameter the caller must supply.
func Required(name string) Param {
	return Param{Name: name}
}

// Optional declares a parameter that falls back to def when omitted.
func Optional(name string, def any) Param {
	return Param{Name: name, Optional: true, Default: def}
}

// As returns a copy of p expanded into the named value type.
func (p Param) As(typeName string) Param {
	p.Type = typeName
	return p
}

// Func is the body of an entry point. args has exactly one value per
// declared parameter, in declaration order, already expanded into the
// declared value types.
type Func func(ctx context.Context, args []any) (any, error)

// Method is an entry point: its parameter table and its body.
type Method struct {
	Params []Param
	Func   Func
}

// Group is a handler group: a set of entry points reachable under one method
// name prefix. A Group is created fresh for every call, so the Funcs it
// returns may close over per-call instance state.
type Group interface {
	Methods() map[string]Method
}

// Factory creates a handler group. It is the zero-argument constructor the
// mapper calls once per resolution.
type Factory func() (Group, error)

// GroupFunc adapts a method table to a Factory for stateless groups.
func GroupFunc(methods map[string]Method) Factory {
	return func() (Group, error) {
		return methodTable(methods), nil
	}
}

type methodTable map[string]Method

func (t methodTable) Methods() map[string]Method {
	return t
}
