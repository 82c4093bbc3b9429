package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sadopc/wiretap/internal/capture"
	"github.com/sadopc/wiretap/internal/protocol"
)

func TestClient_GET(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "GET" {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Query().Get("page") != "1" {
			t.Error("expected page=1 query param")
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(200)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer server.Close()

	client := New()
	resp, err := client.Execute(context.Background(), &protocol.Request{
		Method:  "GET",
		URL:     server.URL + "/test",
		Params:  map[string]string{"page": "1"},
		Headers: map[string]string{"Accept": "application/json"},
	})

	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if resp.ContentType != "application/json" {
		t.Errorf("expected application/json, got %s", resp.ContentType)
	}
	if resp.Headers["Content-Type"] != "application/json" {
		t.Errorf("flattened headers missing Content-Type: %v", resp.Headers)
	}

	var body map[string]string
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		t.Fatalf("body unmarshal failed: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status=ok, got %s", body["status"])
	}
}

func TestClient_POST(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("expected POST, got %s", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		var data map[string]string
		json.Unmarshal(body, &data)
		if data["name"] != "test" {
			t.Errorf("expected name=test, got %s", data["name"])
		}
		w.WriteHeader(201)
		w.Write([]byte(`{"id":1}`))
	}))
	defer server.Close()

	client := New()
	resp, err := client.Execute(context.Background(), &protocol.Request{
		Method:  "POST",
		URL:     server.URL + "/users",
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    []byte(`{"name":"test"}`),
	})

	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if resp.StatusCode != 201 {
		t.Errorf("expected 201, got %d", resp.StatusCode)
	}
	if resp.Size != int64(len(resp.Body)) {
		t.Errorf("Size = %d, body is %d bytes", resp.Size, len(resp.Body))
	}
}

func TestClient_Validate(t *testing.T) {
	client := New()

	if err := client.Validate(&protocol.Request{Method: "GET"}); err == nil {
		t.Error("expected error for missing URL")
	}
	if err := client.Validate(&protocol.Request{URL: "https://x"}); err == nil {
		t.Error("expected error for missing method")
	}
	if err := client.Validate(&protocol.Request{Method: "GET", URL: "https://x"}); err != nil {
		t.Errorf("valid request rejected: %v", err)
	}
}

func TestClient_BasicAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "admin" || pass != "secret" {
			w.WriteHeader(401)
			return
		}
		w.WriteHeader(200)
	}))
	defer server.Close()

	client := New()
	resp, err := client.Execute(context.Background(), &protocol.Request{
		Method: "GET",
		URL:    server.URL,
		Auth:   &protocol.AuthConfig{Type: "basic", Username: "admin", Password: "secret"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestClient_RecordsTimelineMarks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	tl := capture.NewTimeline(time.Now())
	ctx := capture.WithTimeline(context.Background(), tl)

	client := New()
	if _, err := client.Execute(ctx, &protocol.Request{Method: "GET", URL: server.URL}); err != nil {
		t.Fatal(err)
	}

	marks := tl.Marks()
	if len(marks) == 0 {
		t.Fatal("expected timeline marks from the exchange")
	}

	names := make(map[string]bool)
	for i, m := range marks {
		names[m.Name] = true
		if i > 0 && m.Offset < marks[i-1].Offset {
			t.Errorf("mark %q out of order", m.Name)
		}
	}
	if !names[MarkFirstByte] {
		t.Errorf("missing %s mark: %v", MarkFirstByte, marks)
	}
	if !names[MarkTransfer] {
		t.Errorf("missing %s mark: %v", MarkTransfer, marks)
	}
}

func TestClient_ContextCancellation(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := New()
	_, err := client.Execute(ctx, &protocol.Request{Method: "GET", URL: server.URL})
	if err == nil {
		t.Fatal("expected error from canceled context")
	}
}

func TestClient_UnsupportedProxyScheme(t *testing.T) {
	client := New()
	client.SetProxy("ftp://proxy.example.com:21", "")

	_, err := client.Execute(context.Background(), &protocol.Request{Method: "GET", URL: "https://x"})
	if err == nil {
		t.Fatal("expected error for unsupported proxy scheme")
	}
}
