package capture

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Event is one captured request/response exchange. An Event is built by the
// Interceptor while the exchange is in flight and is immutable once appended
// to a Store.
type Event struct {
	ID              string
	Timestamp       time.Time
	Method          string
	URL             string
	RequestHeaders  map[string]string
	RequestBody     []byte
	StatusCode      int
	StatusText      string
	ResponseHeaders map[string]string
	ResponseBody    []byte
	Elapsed         time.Duration
	Timeline        []Mark
	Err             string
}

// NewEvent creates a partial event from an outgoing request. Response,
// timing and error fields are filled in at finalization.
func NewEvent(method, url string, headers map[string]string, body []byte) Event {
	return Event{
		ID:             uuid.New().String(),
		Timestamp:      time.Now(),
		Method:         method,
		URL:            url,
		RequestHeaders: cloneHeaders(headers),
		RequestBody:    cloneBytes(body),
	}
}

// IsSuccess reports whether the response status code is in the 2xx range.
func (e Event) IsSuccess() bool {
	return e.StatusCode >= 200 && e.StatusCode < 300
}

// IsError reports whether the exchange failed. A failed exchange may still
// carry response fields when a response was observed before the failure.
func (e Event) IsError() bool {
	return e.Err != ""
}

// RequestText returns the request body decoded as UTF-8 text. Invalid byte
// sequences are replaced; an absent body decodes to "".
func (e Event) RequestText() string {
	return decodeText(e.RequestBody)
}

// ResponseText returns the response body decoded as UTF-8 text.
func (e Event) ResponseText() string {
	return decodeText(e.ResponseBody)
}

func decodeText(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return strings.ToValidUTF8(string(b), string(utf8.RuneError))
}

func cloneHeaders(h map[string]string) map[string]string {
	if h == nil {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
