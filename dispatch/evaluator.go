package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// Evaluator runs one call: it resolves the method through a Mapper, binds the
// arguments, invokes the entry point and normalizes its failure.
//
// An Evaluator holds no per-call state and is safe for concurrent use.
type Evaluator struct {
	mapper Mapper
	logger *slog.Logger
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithLogger sets the logger used for invocation panics and debug traces.
func WithLogger(logger *slog.Logger) EvaluatorOption {
	return func(e *Evaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEvaluator creates an Evaluator. A nil mapper selects a SimpleMapper over
// DefaultRegistry with the default namespace and separator.
func NewEvaluator(mapper Mapper, opts ...EvaluatorOption) *Evaluator {
	if mapper == nil {
		// The defaults always validate.
		mapper, _ = NewMapper(DefaultRegistry)
	}
	e := &Evaluator{
		mapper: mapper,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate calls method with args and returns its result.
//
// Resolution failures are MethodErrors and binding failures are
// ArgumentErrors. If the entry point fails with a reportable error (one
// carrying an *Error) that error is returned unchanged; any other failure is
// returned as an EvaluationError.
func (e *Evaluator) Evaluate(ctx context.Context, method string, args Arguments) (any, error) {
	h, err := e.mapper.Callable(method)
	if err != nil {
		return nil, err
	}
	values, err := e.mapper.Arguments(h, args)
	if err != nil {
		return nil, err
	}

	e.logger.DebugContext(ctx, "dispatch: invoke",
		slog.String("method", method),
		slog.String("group", h.Group),
		slog.String("selector", h.Selector),
		slog.Int("args", len(values)),
	)
	return e.invoke(ctx, h, values)
}

func (e *Evaluator) invoke(ctx context.Context, h *Handle, args []any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.ErrorContext(ctx, "dispatch: handler panic",
				slog.String("group", h.Group),
				slog.String("selector", h.Selector),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			result = nil
			err = &Error{
				Kind:    KindEvaluation,
				Code:    CodeInternalError,
				Message: "internal error",
				Err:     fmt.Errorf("panic: %v", r),
			}
		}
	}()

	if h.Method.Func == nil {
		return nil, NewInternalError("entry point has no body")
	}
	result, err = h.Method.Func(ctx, args)
	if err == nil {
		return result, nil
	}
	if _, ok := AsError(err); ok {
		return nil, err
	}
	return nil, EvaluationError(err)
}
