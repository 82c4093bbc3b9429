package protocol

import (
	"context"
	"time"
)

// Request is the unified request type passed through the pipeline.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Params  map[string]string
	Body    []byte
	Auth    *AuthConfig

	// ProxyURL overrides the client-level proxy for this request.
	ProxyURL string

	// Timeout
	Timeout time.Duration
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	Type     string // none, basic, bearer, apikey
	Username string
	Password string
	Token    string
	APIKey   string
	APIValue string
	APIIn    string // header, query
}

// Response is the unified response type.
type Response struct {
	StatusCode  int
	Status      string
	Headers     map[string]string
	Body        []byte
	ContentType string
	Size        int64
	Proto       string
	TLS         bool

	// Err carries a failure a pipeline stage chose to report in-band
	// instead of returning an error (e.g. a script assertion failure
	// attached to an otherwise complete response).
	Err string
}

// Handler executes one request. From the point of view of a middleware,
// a Handler is "the rest of the pipeline".
type Handler func(ctx context.Context, req *Request) (*Response, error)

// Middleware wraps a Handler with additional behavior.
type Middleware func(Handler) Handler

// Chain composes middleware around a handler. The first middleware is the
// outermost: Chain(h, a, b) behaves as a(b(h)).
func Chain(h Handler, mw ...Middleware) Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}
