package jsonrpc

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/mnehpets/onerpc/dispatch"
	"github.com/mnehpets/onerpc/endpoint"
)

// Version is the only protocol version accepted in the "jsonrpc" member.
const Version = "2.0"

// Evaluator runs a single call. *dispatch.Evaluator implements it.
type Evaluator interface {
	Evaluate(ctx context.Context, method string, args dispatch.Arguments) (any, error)
}

// EvaluatorFunc adapts a function to an Evaluator.
type EvaluatorFunc func(ctx context.Context, method string, args dispatch.Arguments) (any, error)

func (f EvaluatorFunc) Evaluate(ctx context.Context, method string, args dispatch.Arguments) (any, error) {
	return f(ctx, method, args)
}

// JSONRPCEndpoint serves JSON-RPC 2.0 requests by handing each call to an
// Evaluator.
// Use endpoint.Handler(e.Endpoint, processors...) to create an http.Handler.
type JSONRPCEndpoint struct {
	evaluator Evaluator
	logger    *slog.Logger
	maxBatch  int
}

// Option configures a JSONRPCEndpoint.
type Option func(*JSONRPCEndpoint)

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *JSONRPCEndpoint) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMaxBatch limits the number of requests in a batch. Larger batches are
// rejected with an invalid request error. n <= 0 means no limit.
func WithMaxBatch(n int) Option {
	return func(e *JSONRPCEndpoint) {
		e.maxBatch = n
	}
}

// NewEndpoint creates an endpoint that evaluates calls with ev.
func NewEndpoint(ev Evaluator, opts ...Option) *JSONRPCEndpoint {
	e := &JSONRPCEndpoint{
		evaluator: ev,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// rpcParams captures the raw request body. It is parsed by the endpoint
// itself because JSON-RPC reports parse errors in a response object, not as
// an HTTP status.
type rpcParams struct {
	Body []byte `body:"" maxLength:"1048576"`
}

// Endpoint is the endpoint function that processes JSON-RPC requests.
// Pass to endpoint.Handler() to create an http.Handler.
func (e *JSONRPCEndpoint) Endpoint(w http.ResponseWriter, r *http.Request, params rpcParams) (endpoint.Renderer, error) {
	if r.Method != http.MethodPost {
		return nil, endpoint.Error(http.StatusMethodNotAllowed, "JSON-RPC requires POST method", nil)
	}

	// Per JSON-RPC over HTTP, Content-Type must be application/json; CBOR is
	// accepted as a compact alternative.
	c, ok := codecFor(endpoint.MediaType(r))
	if !ok {
		return nil, endpoint.Error(http.StatusUnsupportedMediaType, "Content-Type must be application/json or application/cbor", nil)
	}

	return e.handleBody(r.Context(), c, params.Body), nil
}

// handleBody processes the request body and returns a renderer.
func (e *JSONRPCEndpoint) handleBody(ctx context.Context, c codec, body []byte) endpoint.Renderer {
	elems, batch, perr := c.split(body)
	if perr != nil {
		return c.renderer(newErrorResponse(nil, perr))
	}
	if batch && len(elems) == 0 {
		return c.renderer(newErrorResponse(nil, dispatch.NewInvalidRequestError("invalid request")))
	}
	if e.maxBatch > 0 && len(elems) > e.maxBatch {
		return c.renderer(newErrorResponse(nil, dispatch.NewInvalidRequestError("batch too large")))
	}

	responses := make([]any, 0, len(elems))
	for _, elem := range elems {
		if resp := e.handleRequest(ctx, c, elem); resp != nil {
			responses = append(responses, resp)
		}
	}

	// No responses means all requests were notifications.
	if len(responses) == 0 {
		return &endpoint.NoContentRenderer{}
	}
	if !batch {
		return c.renderer(responses[0])
	}
	return c.renderer(responses)
}

// handleRequest evaluates one request and returns its response, or nil for
// a notification.
func (e *JSONRPCEndpoint) handleRequest(ctx context.Context, c codec, elem []byte) any {
	req, derr := c.decode(elem)
	if derr != nil {
		var id any
		if req != nil {
			id = req.id
		}
		e.logger.DebugContext(ctx, "jsonrpc: invalid request", "error", derr)
		return newErrorResponse(id, derr)
	}

	if req.jsonrpc != Version {
		return newErrorResponse(req.id, dispatch.NewInvalidRequestError("invalid request"))
	}
	if req.method == "" {
		return newErrorResponse(req.id, dispatch.NewInvalidRequestError("method required"))
	}

	result, err := e.evaluate(ctx, req)

	// Notification: no id means no response expected.
	if req.notification() {
		if err != nil {
			e.logger.DebugContext(ctx, "jsonrpc: notification failed", "method", req.method, "error", err)
		}
		return nil
	}
	if err != nil {
		return newErrorResponse(req.id, e.mapError(ctx, req.method, err))
	}
	return &successResponse{JSONRPC: Version, Result: result, ID: req.id}
}

func (e *JSONRPCEndpoint) evaluate(ctx context.Context, req *request) (any, error) {
	if e.evaluator == nil {
		return nil, dispatch.NewInternalError("internal error")
	}
	return e.evaluator.Evaluate(ctx, req.method, req.params)
}

// mapError converts any error to a JSON-RPC error.
// Reportable errors keep their code; other errors become InternalError.
func (e *JSONRPCEndpoint) mapError(ctx context.Context, method string, err error) *dispatch.Error {
	if rpcErr, ok := dispatch.AsError(err); ok {
		return rpcErr
	}
	e.logger.ErrorContext(ctx, "jsonrpc: unreportable error", "method", method, "error", err)
	return &dispatch.Error{
		Kind:    dispatch.KindEvaluation,
		Code:    dispatch.CodeInternalError,
		Message: "internal error",
		Err:     err,
	}
}

type successResponse struct {
	JSONRPC string `json:"jsonrpc"`
	Result  any    `json:"result"`
	ID      any    `json:"id"`
}

type errorResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Error   *dispatch.Error `json:"error"`
	ID      any             `json:"id"`
}

func newErrorResponse(id any, err *dispatch.Error) *errorResponse {
	return &errorResponse{JSONRPC: Version, Error: err, ID: id}
}
