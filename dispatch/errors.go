package dispatch

import (
	"errors"
	"fmt"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Configuration errors. These are returned while wiring a dispatcher at
// startup and never reach an RPC caller.
var (
	ErrInvalidSeparator = errors.New("dispatch: separator must be one non-alphanumeric character")
	ErrDuplicateGroup   = errors.New("dispatch: handler group already registered")
	ErrDuplicateType    = errors.New("dispatch: value type already registered")
	ErrNilFactory       = errors.New("dispatch: nil factory")
)

// Kind tags the origin of an Error.
type Kind int

const (
	// KindApplication is a failure defined by a handler and reported verbatim.
	KindApplication Kind = iota
	// KindProtocol is a malformed envelope, reported by the transport.
	KindProtocol
	// KindMethod means the method name could not be resolved to an entry point.
	KindMethod
	// KindArgument means the arguments could not be reconciled with the
	// entry point's parameters.
	KindArgument
	// KindEvaluation wraps a handler failure that was not itself reportable.
	KindEvaluation
)

func (k Kind) String() string {
	switch k {
	case KindApplication:
		return "application"
	case KindProtocol:
		return "protocol"
	case KindMethod:
		return "method"
	case KindArgument:
		return "argument"
	case KindEvaluation:
		return "evaluation"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is an RPC-reportable failure. Its Code, Message and Data are
// serialized into the JSON-RPC error object; Err is kept for logging only.
//
// Any error for which errors.As finds an *Error is reportable, so handlers may
// wrap an *Error with additional context and it still passes through the
// Evaluator unchanged.
type Error struct {
	Kind    Kind   `json:"-" cbor:"-"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Err     error  `json:"-" cbor:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return "dispatch: error: <nil>"
	}
	if e.Err != nil {
		if cause := e.Err.Error(); cause != e.Message {
			return e.Message + ": " + cause
		}
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError creates a handler-defined reportable error.
func NewError(code int, message string) *Error {
	return &Error{Kind: KindApplication, Code: code, Message: message}
}

// NewParseError reports an envelope that is not valid JSON (or CBOR).
func NewParseError(message string) *Error {
	return &Error{Kind: KindProtocol, Code: CodeParseError, Message: message}
}

// NewInvalidRequestError reports an envelope that is not a valid request object.
func NewInvalidRequestError(message string) *Error {
	return &Error{Kind: KindProtocol, Code: CodeInvalidRequest, Message: message}
}

// NewInternalError reports a failure inside the dispatcher itself.
func NewInternalError(message string) *Error {
	return &Error{Kind: KindEvaluation, Code: CodeInternalError, Message: message}
}

// MethodError reports a method name that does not resolve to an entry point.
func MethodError(method string, cause error) *Error {
	return &Error{
		Kind:    KindMethod,
		Code:    CodeMethodNotFound,
		Message: "method not found: " + method,
		Err:     cause,
	}
}

// ArgumentError reports arguments that cannot be bound to the entry point's
// parameters.
func ArgumentError(message string, cause error) *Error {
	return &Error{
		Kind:    KindArgument,
		Code:    CodeInvalidParams,
		Message: message,
		Err:     cause,
	}
}

// EvaluationError wraps a handler failure that is not reportable. The
// message is the failure's message; the code comes from an ErrorCode method
// if the failure has one, and is 0 otherwise.
func EvaluationError(err error) *Error {
	code := 0
	var coder interface{ ErrorCode() int }
	if errors.As(err, &coder) {
		code = coder.ErrorCode()
	}
	return &Error{
		Kind:    KindEvaluation,
		Code:    code,
		Message: err.Error(),
		Err:     err,
	}
}

// AsError reports whether err carries an *Error and returns it.
func AsError(err error) (*Error, bool) {
	var rpcErr *Error
	if errors.As(err, &rpcErr) && rpcErr != nil {
		return rpcErr, true
	}
	return nil, false
}

// IsKind reports whether err carries an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	rpcErr, ok := AsError(err)
	return ok && rpcErr.Kind == kind
}
