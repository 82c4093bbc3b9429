package eventjson

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"
	"unicode/utf8"

	"github.com/sadopc/wiretap/internal/capture"
	"github.com/tidwall/pretty"
)

// Body encodings used in exported documents.
const (
	EncodingUTF8   = "utf-8"
	EncodingBase64 = "base64"
)

// Document is the portable JSON form of one captured exchange. Every event
// field is preserved; bodies are carried in a text-safe encoding.
type Document struct {
	ID              string            `json:"id"`
	Timestamp       string            `json:"timestamp"`
	Method          string            `json:"method"`
	URL             string            `json:"url"`
	RequestHeaders  map[string]string `json:"requestHeaders"`
	RequestBody     Body              `json:"requestBody"`
	StatusCode      int               `json:"statusCode"`
	StatusText      string            `json:"statusText"`
	ResponseHeaders map[string]string `json:"responseHeaders"`
	ResponseBody    Body              `json:"responseBody"`
	ElapsedMillis   float64           `json:"elapsedMillis"`
	Timeline        []TimelinePoint   `json:"timeline"`
	Error           *string           `json:"error"`
}

// Body carries a byte body: raw text when the bytes are valid UTF-8,
// base64 otherwise.
type Body struct {
	Encoding string `json:"encoding"`
	Data     string `json:"data"`
}

// TimelinePoint is one named mark on the exchange timeline.
type TimelinePoint struct {
	Name         string  `json:"name"`
	OffsetMillis float64 `json:"offsetMillis"`
}

// FromEvent converts an event to its document form.
func FromEvent(e capture.Event) Document {
	doc := Document{
		ID:              e.ID,
		Timestamp:       e.Timestamp.Format(time.RFC3339Nano),
		Method:          e.Method,
		URL:             e.URL,
		RequestHeaders:  e.RequestHeaders,
		RequestBody:     encodeBody(e.RequestBody),
		StatusCode:      e.StatusCode,
		StatusText:      e.StatusText,
		ResponseHeaders: e.ResponseHeaders,
		ResponseBody:    encodeBody(e.ResponseBody),
		ElapsedMillis:   millis(e.Elapsed),
	}
	for _, m := range e.Timeline {
		doc.Timeline = append(doc.Timeline, TimelinePoint{
			Name:         m.Name,
			OffsetMillis: millis(m.Offset),
		})
	}
	if e.Err != "" {
		errStr := e.Err
		doc.Error = &errStr
	}
	return doc
}

// Event converts a document back to an event.
func (d Document) Event() (capture.Event, error) {
	ts, err := time.Parse(time.RFC3339Nano, d.Timestamp)
	if err != nil {
		return capture.Event{}, fmt.Errorf("parsing timestamp: %w", err)
	}

	reqBody, err := d.RequestBody.decode()
	if err != nil {
		return capture.Event{}, fmt.Errorf("decoding request body: %w", err)
	}
	respBody, err := d.ResponseBody.decode()
	if err != nil {
		return capture.Event{}, fmt.Errorf("decoding response body: %w", err)
	}

	e := capture.Event{
		ID:              d.ID,
		Timestamp:       ts,
		Method:          d.Method,
		URL:             d.URL,
		RequestHeaders:  d.RequestHeaders,
		RequestBody:     reqBody,
		StatusCode:      d.StatusCode,
		StatusText:      d.StatusText,
		ResponseHeaders: d.ResponseHeaders,
		ResponseBody:    respBody,
		Elapsed:         duration(d.ElapsedMillis),
	}
	for _, p := range d.Timeline {
		e.Timeline = append(e.Timeline, capture.Mark{
			Name:   p.Name,
			Offset: duration(p.OffsetMillis),
		})
	}
	if d.Error != nil {
		e.Err = *d.Error
	}
	return e, nil
}

// Export writes one event as a pretty-printed JSON document. Write failures
// are returned to the caller and have no effect on stored history.
func Export(w io.Writer, e capture.Event) error {
	data, err := json.Marshal(FromEvent(e))
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	if _, err := w.Write(pretty.Pretty(data)); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}
	return nil
}

// Parse reads a document produced by Export back into an event.
func Parse(data []byte) (capture.Event, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return capture.Event{}, fmt.Errorf("decoding document: %w", err)
	}
	return doc.Event()
}

func encodeBody(b []byte) Body {
	if len(b) == 0 {
		return Body{Encoding: EncodingUTF8, Data: ""}
	}
	if utf8.Valid(b) {
		return Body{Encoding: EncodingUTF8, Data: string(b)}
	}
	return Body{Encoding: EncodingBase64, Data: base64.StdEncoding.EncodeToString(b)}
}

func (b Body) decode() ([]byte, error) {
	switch b.Encoding {
	case EncodingBase64:
		return base64.StdEncoding.DecodeString(b.Data)
	case EncodingUTF8, "":
		if b.Data == "" {
			return nil, nil
		}
		return []byte(b.Data), nil
	default:
		return nil, fmt.Errorf("unknown body encoding: %s", b.Encoding)
	}
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func duration(ms float64) time.Duration {
	return time.Duration(math.Round(ms * float64(time.Millisecond)))
}
