package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/mnehpets/onerpc/endpoint"
)

// RequestIDHeader carries the request id on requests and responses.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLength bounds ids accepted from clients.
const maxRequestIDLength = 128

type requestIDKey struct{}

// WithRequestID returns a copy of ctx carrying id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id stored by RequestIDProcessor,
// or "" if there is none.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestIDProcessor assigns every request an id, stores it in the request
// context and echoes it in the X-Request-ID response header.
//
// An id supplied by the client is reused when TrustIncoming is set and the
// value is short printable ASCII; otherwise a random UUID is generated.
type RequestIDProcessor struct {
	TrustIncoming bool
}

// NewRequestIDProcessor creates a RequestIDProcessor.
func NewRequestIDProcessor(trustIncoming bool) *RequestIDProcessor {
	return &RequestIDProcessor{TrustIncoming: trustIncoming}
}

// Process implements endpoint.Processor.
func (p *RequestIDProcessor) Process(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
	id := ""
	if p.TrustIncoming {
		if in := r.Header.Get(RequestIDHeader); validRequestID(in) {
			id = in
		}
	}
	if id == "" {
		id = uuid.New().String()
	}

	w.Header().Set(RequestIDHeader, id)
	return next(w, r.WithContext(WithRequestID(r.Context(), id)))
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}

var _ endpoint.Processor = (*RequestIDProcessor)(nil)
