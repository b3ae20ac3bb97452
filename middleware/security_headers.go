package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/mnehpets/onerpc/endpoint"
)

// SecurityHeadersProcessor sets security headers suited to an RPC endpoint,
// which only ever returns JSON or CBOR.
//
// Default configuration for NewSecurityHeadersProcessor:
//   - HSTS: max-age=31536000; includeSubDomains (1 year, with subdomains)
//   - Referrer-Policy: no-referrer
//   - X-Content-Type-Options: nosniff
//   - Content-Security-Policy: default-src 'none'; frame-ancestors 'none'
//   - Cross-Origin-Resource-Policy: same-origin
//   - Cache-Control: no-store
//
// Browsers calling the endpoint from another origin need CORS; see
// WithCORS. The processor answers CORS preflight (OPTIONS) requests itself.
type SecurityHeadersProcessor struct {
	// HSTS configures the Strict-Transport-Security header.
	// Set to nil to disable.
	HSTS *HSTSConfig

	// ReferrerPolicy sets the Referrer-Policy header.
	// Set to empty string to disable.
	ReferrerPolicy string

	// ContentTypeOptions sets X-Content-Type-Options: nosniff.
	ContentTypeOptions bool

	// ContentSecurityPolicy sets the Content-Security-Policy header.
	// Set to empty string to disable.
	ContentSecurityPolicy string

	// CrossOriginResourcePolicy sets the Cross-Origin-Resource-Policy header.
	// Set to empty string to disable. CORS-enabled deployments usually
	// want "cross-origin".
	CrossOriginResourcePolicy string

	// CacheControl sets the Cache-Control header. RPC results are
	// per-call, so the default forbids caching.
	CacheControl string

	// CORS configures Cross-Origin Resource Sharing headers.
	// Set to nil to disable CORS headers.
	CORS *CORSConfig
}

// HSTSConfig configures HTTP Strict Transport Security.
type HSTSConfig struct {
	// MaxAge specifies the duration (in seconds) that the browser should remember
	// that a site is only to be accessed using HTTPS.
	MaxAge int

	// IncludeSubDomains indicates whether HSTS applies to subdomains.
	IncludeSubDomains bool

	// Preload indicates whether the site should be included in browsers' HSTS preload lists.
	// Only use if you've submitted your domain to the HSTS preload list.
	Preload bool
}

// CORSConfig configures Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	// AllowedOrigins specifies allowed origins for CORS requests.
	// Use "*" to allow any origin.
	AllowedOrigins []string

	// AllowedMethods specifies allowed HTTP methods for preflight requests.
	AllowedMethods []string

	// AllowedHeaders specifies allowed request headers for preflight requests.
	AllowedHeaders []string

	// ExposedHeaders specifies response headers readable by the caller.
	ExposedHeaders []string

	// AllowCredentials indicates whether credentials (cookies, auth headers) can be sent.
	AllowCredentials bool

	// MaxAge indicates how long (in seconds) preflight request results can be cached.
	MaxAge int
}

// NewCORSConfig returns a CORSConfig for JSON-RPC callers from origins:
// POST with a JSON or CBOR body, and the request id exposed to scripts.
func NewCORSConfig(origins ...string) *CORSConfig {
	return &CORSConfig{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         3600,
	}
}

// SecurityHeadersOption is a functional option for configuring SecurityHeadersProcessor.
type SecurityHeadersOption func(*SecurityHeadersProcessor)

// NewSecurityHeadersProcessor creates a SecurityHeadersProcessor with defaults for RPC APIs.
func NewSecurityHeadersProcessor(opts ...SecurityHeadersOption) *SecurityHeadersProcessor {
	p := &SecurityHeadersProcessor{
		HSTS: &HSTSConfig{
			MaxAge:            31536000, // 1 year
			IncludeSubDomains: true,
		},
		ReferrerPolicy:            "no-referrer",
		ContentTypeOptions:        true,
		ContentSecurityPolicy:     "default-src 'none'; frame-ancestors 'none'",
		CrossOriginResourcePolicy: "same-origin",
		CacheControl:              "no-store",
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// WithHSTS configures HSTS settings.
func WithHSTS(maxAge int, includeSubDomains, preload bool) SecurityHeadersOption {
	return func(p *SecurityHeadersProcessor) {
		p.HSTS = &HSTSConfig{
			MaxAge:            maxAge,
			IncludeSubDomains: includeSubDomains,
			Preload:           preload,
		}
	}
}

// WithoutHSTS disables HSTS headers, e.g. for plain-HTTP development servers.
func WithoutHSTS() SecurityHeadersOption {
	return func(p *SecurityHeadersProcessor) {
		p.HSTS = nil
	}
}

// WithCacheControl sets the Cache-Control header.
func WithCacheControl(value string) SecurityHeadersOption {
	return func(p *SecurityHeadersProcessor) {
		p.CacheControl = value
	}
}

// WithCORS configures CORS headers for cross-origin access. It also relaxes
// Cross-Origin-Resource-Policy so that allowed origins can read responses.
func WithCORS(config *CORSConfig) SecurityHeadersOption {
	return func(p *SecurityHeadersProcessor) {
		p.CORS = config
		if config != nil && p.CrossOriginResourcePolicy == "same-origin" {
			p.CrossOriginResourcePolicy = "cross-origin"
		}
	}
}

// Process implements endpoint.Processor.
func (p *SecurityHeadersProcessor) Process(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
	h := w.Header()
	if hsts := formatHSTS(p.HSTS); hsts != "" {
		h.Set("Strict-Transport-Security", hsts)
	}
	if p.ReferrerPolicy != "" {
		h.Set("Referrer-Policy", p.ReferrerPolicy)
	}
	if p.ContentTypeOptions {
		h.Set("X-Content-Type-Options", "nosniff")
	}
	if p.ContentSecurityPolicy != "" {
		h.Set("Content-Security-Policy", p.ContentSecurityPolicy)
	}
	if p.CrossOriginResourcePolicy != "" {
		h.Set("Cross-Origin-Resource-Policy", p.CrossOriginResourcePolicy)
	}
	if p.CacheControl != "" {
		h.Set("Cache-Control", p.CacheControl)
	}

	if p.CORS != nil {
		setCORSHeaders(w, r, p.CORS)

		// Short-circuit CORS Preflight requests.
		// A preflight request is an OPTIONS request with an Origin and Access-Control-Request-Method.
		if r.Method == http.MethodOptions &&
			r.Header.Get("Origin") != "" &&
			r.Header.Get("Access-Control-Request-Method") != "" {
			return endpoint.Error(http.StatusNoContent, "", nil)
		}
	}

	return next(w, r)
}

// formatHSTS formats the HSTS header value.
func formatHSTS(config *HSTSConfig) string {
	if config == nil || config.MaxAge <= 0 {
		return ""
	}

	parts := []string{"max-age=" + strconv.Itoa(config.MaxAge)}
	if config.IncludeSubDomains {
		parts = append(parts, "includeSubDomains")
	}
	if config.Preload {
		parts = append(parts, "preload")
	}
	return strings.Join(parts, "; ")
}

// setCORSHeaders sets CORS headers based on the configuration.
func setCORSHeaders(w http.ResponseWriter, r *http.Request, config *CORSConfig) {
	// Without an Origin header this is not a cross-origin request.
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	h := w.Header()

	for _, allowed := range config.AllowedOrigins {
		if allowed == "*" {
			// The CORS spec forbids '*' with credentials.
			if config.AllowCredentials {
				continue
			}
			h.Set("Access-Control-Allow-Origin", "*")
			break
		} else if allowed == origin {
			h.Set("Access-Control-Allow-Origin", origin)
			// The response now depends on the Origin header.
			h.Add("Vary", "Origin")
			break
		}
	}

	if config.AllowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	if len(config.ExposedHeaders) > 0 {
		h.Set("Access-Control-Expose-Headers", strings.Join(config.ExposedHeaders, ", "))
	}

	// Preflight-specific headers
	if r.Method == http.MethodOptions {
		if len(config.AllowedMethods) > 0 {
			h.Set("Access-Control-Allow-Methods", strings.Join(config.AllowedMethods, ", "))
		}
		if len(config.AllowedHeaders) > 0 {
			h.Set("Access-Control-Allow-Headers", strings.Join(config.AllowedHeaders, ", "))
		}
		if config.MaxAge > 0 {
			h.Set("Access-Control-Max-Age", strconv.Itoa(config.MaxAge))
		}
	}
}

var _ endpoint.Processor = (*SecurityHeadersProcessor)(nil)
