package eventjson

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/sadopc/wiretap/internal/capture"
)

func sampleEvent() capture.Event {
	return capture.Event{
		ID:             "2b1f9d8e-3c44-4b5a-9a10-000000000001",
		Timestamp:      time.Date(2026, 8, 25, 10, 30, 0, 123456789, time.UTC),
		Method:         "POST",
		URL:            "https://api.example.com/users",
		RequestHeaders: map[string]string{"Content-Type": "application/json"},
		RequestBody:    []byte(`{"name":"test"}`),
		StatusCode:     201,
		StatusText:     "201 Created",
		ResponseHeaders: map[string]string{
			"Content-Type": "application/json",
			"X-Request-Id": "abc123",
		},
		ResponseBody: []byte(`{"id":1}`),
		Elapsed:      150 * time.Millisecond,
		Timeline: []capture.Mark{
			{Name: "dns", Offset: 5 * time.Millisecond},
			{Name: "connect", Offset: 20 * time.Millisecond},
			{Name: "first_byte", Offset: 120 * time.Millisecond},
		},
	}
}

func TestExportRoundTrip(t *testing.T) {
	want := sampleEvent()

	var buf bytes.Buffer
	if err := Export(&buf, want); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	got, err := Parse(buf.Bytes())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if !got.Timestamp.Equal(want.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, want.Timestamp)
	}
	// Normalize the wall-clock representation before whole-value comparison.
	got.Timestamp = want.Timestamp

	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\n got %#v\nwant %#v", got, want)
	}
}

func TestExportRoundTripWithError(t *testing.T) {
	want := sampleEvent()
	want.Err = "reading response: unexpected EOF"

	var buf bytes.Buffer
	if err := Export(&buf, want); err != nil {
		t.Fatal(err)
	}
	got, err := Parse(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if got.Err != want.Err {
		t.Errorf("Err = %q, want %q", got.Err, want.Err)
	}
}

func TestExportBinaryBodyUsesBase64(t *testing.T) {
	e := sampleEvent()
	e.ResponseBody = []byte{0x89, 'P', 'N', 'G', 0xff, 0x00}

	doc := FromEvent(e)
	if doc.ResponseBody.Encoding != EncodingBase64 {
		t.Fatalf("encoding = %s, want base64", doc.ResponseBody.Encoding)
	}
	if doc.RequestBody.Encoding != EncodingUTF8 {
		t.Fatalf("request body encoding = %s, want utf-8", doc.RequestBody.Encoding)
	}

	back, err := doc.Event()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(back.ResponseBody, e.ResponseBody) {
		t.Errorf("binary body did not survive the round trip: %x", back.ResponseBody)
	}
}

func TestExportDocumentShape(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&buf, sampleEvent()); err != nil {
		t.Fatal(err)
	}

	var raw map[string]any
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatalf("exported document is not valid JSON: %v", err)
	}

	for _, key := range []string{
		"id", "timestamp", "method", "url", "requestHeaders", "requestBody",
		"statusCode", "statusText", "responseHeaders", "responseBody",
		"elapsedMillis", "timeline", "error",
	} {
		if _, ok := raw[key]; !ok {
			t.Errorf("document missing field %q", key)
		}
	}

	if raw["error"] != nil {
		t.Errorf("error should be null for a clean exchange, got %v", raw["error"])
	}
	if raw["elapsedMillis"].(float64) != 150 {
		t.Errorf("elapsedMillis = %v, want 150", raw["elapsedMillis"])
	}

	timeline := raw["timeline"].([]any)
	first := timeline[0].(map[string]any)
	if first["name"] != "dns" || first["offsetMillis"].(float64) != 5 {
		t.Errorf("unexpected first timeline point: %v", first)
	}
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestExportSurfacesWriteFailure(t *testing.T) {
	err := Export(failingWriter{}, sampleEvent())
	if err == nil {
		t.Fatal("expected write failure to surface")
	}
}
