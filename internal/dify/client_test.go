package dify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRunWorkflowRequestShape(t *testing.T) {
	var gotAuth, gotAccept, gotContentType string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/workflows/run" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		gotContentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {\"event\":\"workflow_started\"}\n\n")
	}))
	defer srv.Close()

	c := NewClient(testLogger(t), srv.URL, "key-123")
	body, err := c.RunWorkflow(context.Background(), map[string]any{"topic": "knee arthroscopy"}, "user-1")
	if err != nil {
		t.Fatalf("RunWorkflow: %v", err)
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(raw), "workflow_started") {
		t.Fatalf("stream body = %q", raw)
	}

	if gotAuth != "Bearer key-123" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if gotAccept != "text/event-stream" {
		t.Fatalf("Accept = %q", gotAccept)
	}
	if gotContentType != "application/json" {
		t.Fatalf("Content-Type = %q", gotContentType)
	}
	if gotBody["response_mode"] != "streaming" {
		t.Fatalf("response_mode = %v", gotBody["response_mode"])
	}
	if gotBody["user"] != "user-1" {
		t.Fatalf("user = %v", gotBody["user"])
	}
	inputs, ok := gotBody["inputs"].(map[string]any)
	if !ok || inputs["topic"] != "knee arthroscopy" {
		t.Fatalf("inputs = %v", gotBody["inputs"])
	}
}

func TestRunWorkflowNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "upstream exploded")
	}))
	defer srv.Close()

	c := NewClient(testLogger(t), srv.URL, "key")
	_, err := c.RunWorkflow(context.Background(), nil, "u")
	if err == nil {
		t.Fatal("expected error")
	}
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("error type = %T", err)
	}
	if reqErr.StatusCode != http.StatusBadGateway || !strings.Contains(reqErr.Body, "upstream exploded") {
		t.Fatalf("RequestError = %+v", reqErr)
	}
}

func TestUploadFile(t *testing.T) {
	content := []byte{0xFF, 0xD8, 0xFF, 0x00, 0x01} // binary, not base64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files/upload" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("user"); got != "user-1" {
			t.Errorf("user field = %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("file part: %v", err)
			http.Error(w, "bad", http.StatusBadRequest)
			return
		}
		defer file.Close()
		if header.Filename != "xray.jpg" {
			t.Errorf("filename = %q", header.Filename)
		}
		if ct := header.Header.Get("Content-Type"); ct != "image/jpeg" {
			t.Errorf("part content-type = %q", ct)
		}
		raw, _ := io.ReadAll(file)
		if string(raw) != string(content) {
			t.Errorf("file bytes = %v, want %v", raw, content)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "upload-42"})
	}))
	defer srv.Close()

	c := NewClient(testLogger(t), srv.URL, "key")
	id, err := c.UploadFile(context.Background(), FileUpload{
		Name:     "xray.jpg",
		MimeType: "image/jpeg",
		Bytes:    content,
	}, "user-1")
	if err != nil {
		t.Fatalf("UploadFile: %v", err)
	}
	if id != "upload-42" {
		t.Fatalf("id = %q", id)
	}
}

func TestUploadFileMissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "{}")
	}))
	defer srv.Close()

	c := NewClient(testLogger(t), srv.URL, "key")
	_, err := c.UploadFile(context.Background(), FileUpload{Name: "a", Bytes: []byte("x")}, "u")
	var upErr *UploadError
	if !errors.As(err, &upErr) {
		t.Fatalf("error = %v (%T)", err, err)
	}
	if upErr.Reason != "upload response missing id" {
		t.Fatalf("reason = %q", upErr.Reason)
	}
}

func TestUploadFileNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(testLogger(t), srv.URL, "key")
	_, err := c.UploadFile(context.Background(), FileUpload{Name: "a", Bytes: []byte("x")}, "u")
	var upErr *UploadError
	if !errors.As(err, &upErr) {
		t.Fatalf("error = %v (%T)", err, err)
	}
	if upErr.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d", upErr.StatusCode)
	}
}

func TestUploadFileEmpty(t *testing.T) {
	c := NewClient(testLogger(t), "http://127.0.0.1:1", "key")
	_, err := c.UploadFile(context.Background(), FileUpload{Name: "a"}, "u")
	var upErr *UploadError
	if !errors.As(err, &upErr) || upErr.Reason != "empty file" {
		t.Fatalf("error = %v", err)
	}
}
