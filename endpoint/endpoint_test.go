package endpoint

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type headerProcessor struct {
	Key   string
	Value string
}

func (hp headerProcessor) Process(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
	w.Header().Add(hp.Key, hp.Value)
	return next(w, r)
}

func TestHandler_Constructors(t *testing.T) {
	h1 := Handler(func(_ http.ResponseWriter, _ *http.Request, _ struct{}) (Renderer, error) {
		return &StringRenderer{Body: "h1"}, nil
	})
	hf := HandleFunc(func(_ http.ResponseWriter, _ *http.Request, _ struct{}) (Renderer, error) {
		return &StringRenderer{Body: "hf"}, nil
	})
	type params struct {
		Trace string `header:"X-Trace"`
	}
	h2 := EndpointHandler[*params]{
		Endpoint: func(_ http.ResponseWriter, _ *http.Request, p *params) (Renderer, error) {
			return &StringRenderer{Body: p.Trace}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-Trace", "h2")

	rec := httptest.NewRecorder()
	h1.ServeHTTP(rec, req)
	if rec.Body.String() != "h1" {
		t.Errorf("Handler: got %q", rec.Body.String())
	}
	rec = httptest.NewRecorder()
	hf(rec, req)
	if rec.Body.String() != "hf" {
		t.Errorf("HandleFunc: got %q", rec.Body.String())
	}
	rec = httptest.NewRecorder()
	h2.ServeHTTP(rec, req)
	if rec.Body.String() != "h2" {
		t.Errorf("EndpointHandler: got %q", rec.Body.String())
	}
}

func TestHandler_ProcessorsRunInOrder(t *testing.T) {
	h := Handler(func(w http.ResponseWriter, _ *http.Request, _ struct{}) (Renderer, error) {
		return &StringRenderer{Body: strings.Join(w.Header().Values("X-Order"), ",")}, nil
	}, headerProcessor{"X-Order", "1"}, headerProcessor{"X-Order", "2"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if got := rec.Body.String(); got != "1,2" {
		t.Fatalf("expected processors in order, got %q", got)
	}
}

type ctxKey struct{}

func TestHandler_ProcessorReplacesRequest(t *testing.T) {
	p := ProcessorFunc(func(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
		return next(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, "from-processor")))
	})
	h := Handler(func(_ http.ResponseWriter, r *http.Request, _ struct{}) (Renderer, error) {
		v, _ := r.Context().Value(ctxKey{}).(string)
		return &StringRenderer{Body: v}, nil
	}, p)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if got := rec.Body.String(); got != "from-processor" {
		t.Fatalf("expected context value, got %q", got)
	}
}

func TestHandler_ProcessorShortCircuits(t *testing.T) {
	called := false
	p := ProcessorFunc(func(http.ResponseWriter, *http.Request, func(http.ResponseWriter, *http.Request) error) error {
		return Error(http.StatusTooManyRequests, "slow down", nil)
	})
	h := Handler(func(_ http.ResponseWriter, _ *http.Request, _ struct{}) (Renderer, error) {
		called = true
		return &StringRenderer{Body: "ok"}, nil
	}, p)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if called {
		t.Fatal("endpoint should not run after a processor error")
	}
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status %d, got %d", http.StatusTooManyRequests, rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "slow down" {
		t.Fatalf("expected body %q, got %q", "slow down", got)
	}
}

func TestHandler_Errors(t *testing.T) {
	tests := []struct {
		name       string
		h          http.Handler
		wantStatus int
		wantBody   string
	}{
		{
			name:       "NilEndpoint",
			h:          &EndpointHandler[struct{}]{},
			wantStatus: http.StatusInternalServerError,
			wantBody:   "endpoint: nil EndpointFunc",
		},
		{
			name: "NilProcessor",
			h: Handler(func(_ http.ResponseWriter, _ *http.Request, _ struct{}) (Renderer, error) {
				return &StringRenderer{Body: "ok"}, nil
			}, nil),
			wantStatus: http.StatusInternalServerError,
			wantBody:   "endpoint: nil processor",
		},
		{
			name: "NilRenderer",
			h: Handler(func(_ http.ResponseWriter, _ *http.Request, _ struct{}) (Renderer, error) {
				return nil, nil
			}),
			wantStatus: http.StatusInternalServerError,
			wantBody:   "endpoint: nil renderer",
		},
		{
			name: "PlainError",
			h: Handler(func(_ http.ResponseWriter, _ *http.Request, _ struct{}) (Renderer, error) {
				return nil, errors.New("boom")
			}),
			wantStatus: http.StatusInternalServerError,
			wantBody:   "boom",
		},
		{
			name: "EndpointErrorDefaultMessage",
			h: Handler(func(_ http.ResponseWriter, _ *http.Request, _ struct{}) (Renderer, error) {
				return nil, Error(http.StatusMethodNotAllowed, "", nil)
			}),
			wantStatus: http.StatusMethodNotAllowed,
			wantBody:   "Method Not Allowed",
		},
		{
			name: "InvalidStatus",
			h: Handler(func(_ http.ResponseWriter, _ *http.Request, _ struct{}) (Renderer, error) {
				return nil, &EndpointError{Status: 42, Message: "odd"}
			}),
			wantStatus: http.StatusInternalServerError,
			wantBody:   "odd",
		},
		{
			name: "NoContent",
			h: Handler(func(_ http.ResponseWriter, _ *http.Request, _ struct{}) (Renderer, error) {
				return nil, Error(http.StatusNoContent, "", nil)
			}),
			wantStatus: http.StatusNoContent,
			wantBody:   "",
		},
		{
			name: "UnmarshalError",
			h: Handler(func(_ http.ResponseWriter, _ *http.Request, _ string) (Renderer, error) {
				return &StringRenderer{Body: "unreachable"}, nil
			}),
			wantStatus: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantBody != "" || tt.wantStatus == http.StatusNoContent {
				if got := strings.TrimSpace(rec.Body.String()); got != tt.wantBody {
					t.Fatalf("expected body %q, got %q", tt.wantBody, got)
				}
			}
		})
	}
}

func TestEndpointError(t *testing.T) {
	cause := errors.New("cause")
	err := Error(http.StatusBadRequest, "bad", cause)
	if got := err.Error(); got != "bad: cause" {
		t.Errorf("Error(): got %q", got)
	}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}

	// Wrapping an EndpointError keeps the inner status.
	again := Error(http.StatusInternalServerError, "outer", err)
	var ee *EndpointError
	if !errors.As(again, &ee) || ee.Status != http.StatusBadRequest {
		t.Errorf("expected inner status to survive, got %v", again)
	}

	if got := (&EndpointError{Status: 999}).Error(); got != "unknown error" {
		t.Errorf("unknown status: got %q", got)
	}
	if got := (&EndpointError{Status: http.StatusNotFound}).Error(); got != "Not Found" {
		t.Errorf("status text: got %q", got)
	}
	var nilErr *EndpointError
	if nilErr.Unwrap() != nil || nilErr.Error() == "" {
		t.Error("nil EndpointError should be safe to use")
	}
}

type closingRenderer struct {
	Renderer
	closeCalled bool
}

func (cr *closingRenderer) Close() error {
	cr.closeCalled = true
	return nil
}

func TestRendererCleanup(t *testing.T) {
	t.Run("cleanup on success", func(t *testing.T) {
		cr := &closingRenderer{Renderer: &StringRenderer{Body: "ok"}}
		h := HandleFunc(func(_ http.ResponseWriter, _ *http.Request, _ struct{}) (Renderer, error) {
			return cr, nil
		})

		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		if !cr.closeCalled {
			t.Error("expected Close() to be called")
		}
		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
	})

	t.Run("cleanup on render error", func(t *testing.T) {
		cr := &closingRenderer{
			Renderer: RendererFunc(func(w http.ResponseWriter, r *http.Request) error {
				return errors.New("render failed")
			}),
		}
		h := HandleFunc(func(_ http.ResponseWriter, _ *http.Request, _ struct{}) (Renderer, error) {
			return cr, nil
		})

		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		if !cr.closeCalled {
			t.Error("expected Close() to be called even on render error")
		}
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", rec.Code)
		}
	})
}
