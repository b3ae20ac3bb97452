package dispatch

// Mapper resolves method names to entry points and binds caller arguments to
// their parameters. Implementations must be safe for concurrent use.
type Mapper interface {
	// Callable resolves a method name. Failures are MethodErrors.
	Callable(method string) (*Handle, error)
	// Arguments reconciles args with the entry point's parameters and
	// returns one value per parameter in declaration order. Failures are
	// ArgumentErrors.
	Arguments(h *Handle, args Arguments) ([]any, error)
}

// Handle is a resolved entry point: a fresh handler group instance and the
// selected method on it.
type Handle struct {
	// Group is the fully-qualified handler group identifier.
	Group    string
	Selector string
	Instance Group
	Method   Method
}
