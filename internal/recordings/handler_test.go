package recordings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func newTestRouter(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc, _, _, _ := newTestService(t)
	router := gin.New()
	NewHandler(svc, nil).Register(router)
	return router, svc
}

func decodeEnvelope(t *testing.T, body *bytes.Buffer) map[string]any {
	t.Helper()
	var envelope struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
		Error   string         `json:"error"`
	}
	if err := json.Unmarshal(body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, body.String())
	}
	return envelope.Data
}

func TestUploadEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("video", "greeting.webm")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write([]byte("fake clip bytes")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/recordings", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (%s)", w.Code, w.Body.String())
	}
	data := decodeEnvelope(t, w.Body)
	if data["processingStatus"] != "PROCESSING" {
		t.Fatalf("processingStatus = %v, want PROCESSING", data["processingStatus"])
	}
	if data["filename"] != "greeting.webm" {
		t.Fatalf("filename = %v", data["filename"])
	}
	if _, err := uuid.Parse(data["uuid"].(string)); err != nil {
		t.Fatalf("uuid = %v: %v", data["uuid"], err)
	}
}

func TestUploadRequiresVideoField(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/recordings", strings.NewReader("not multipart"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestDetailEndpoint(t *testing.T) {
	router, svc := newTestRouter(t)
	rec, err := svc.Submit(context.Background(), strings.NewReader("clip"), "clip.webm", "video/webm", 4)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/recordings/"+rec.ID.String(), nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	data := decodeEnvelope(t, w.Body)
	if data["uuid"] != rec.ID.String() || data["processingStatus"] != "PROCESSING" {
		t.Fatalf("unexpected detail payload: %v", data)
	}
	if _, present := data["processingError"]; !present {
		t.Fatalf("detail payload must carry processingError (nullable): %v", data)
	}
}

func TestDetailUnknownIdentity(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/recordings/"+uuid.NewString(), nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/recordings/not-a-uuid", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for malformed id", w.Code)
	}
}

func TestStreamEndpoint(t *testing.T) {
	router, svc := newTestRouter(t)

	content := make([]byte, 100)
	for i := range content {
		content[i] = byte(i)
	}
	rec, err := svc.Submit(context.Background(), bytes.NewReader(content), "clip.webm", "video/webm;codecs=vp8,opus", 100)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	streamURL := "/recordings/" + rec.ID.String() + "/stream"

	t.Run("full content", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, streamURL, nil))

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		if got := w.Header().Get("Accept-Ranges"); got != "bytes" {
			t.Fatalf("Accept-Ranges = %q", got)
		}
		if got := w.Header().Get("Content-Type"); got != "video/webm" {
			t.Fatalf("Content-Type = %q, want codec parameters stripped", got)
		}
		if got := w.Header().Get("Content-Length"); got != "100" {
			t.Fatalf("Content-Length = %q, want 100", got)
		}
		if !bytes.Equal(w.Body.Bytes(), content) {
			t.Fatal("full body mismatch")
		}
	})

	t.Run("open-ended range", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, streamURL, nil)
		req.Header.Set("Range", "bytes=0-")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusPartialContent {
			t.Fatalf("status = %d, want 206", w.Code)
		}
		if got := w.Header().Get("Content-Range"); got != "bytes 0-99/100" {
			t.Fatalf("Content-Range = %q", got)
		}
		if !bytes.Equal(w.Body.Bytes(), content) {
			t.Fatal("open-ended range body mismatch")
		}
	})

	t.Run("interior range", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, streamURL, nil)
		req.Header.Set("Range", "bytes=10-19")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusPartialContent {
			t.Fatalf("status = %d, want 206", w.Code)
		}
		if got := w.Header().Get("Content-Range"); got != "bytes 10-19/100" {
			t.Fatalf("Content-Range = %q", got)
		}
		if got := w.Header().Get("Content-Length"); got != "10" {
			t.Fatalf("Content-Length = %q, want 10", got)
		}
		if !bytes.Equal(w.Body.Bytes(), content[10:20]) {
			t.Fatalf("range body = %v, want bytes [10,19]", w.Body.Bytes())
		}
	})

	t.Run("end clamped to artifact", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, streamURL, nil)
		req.Header.Set("Range", "bytes=90-200")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusPartialContent {
			t.Fatalf("status = %d, want 206", w.Code)
		}
		if got := w.Header().Get("Content-Range"); got != "bytes 90-99/100" {
			t.Fatalf("Content-Range = %q", got)
		}
		if !bytes.Equal(w.Body.Bytes(), content[90:]) {
			t.Fatal("clamped range body mismatch")
		}
	})

	t.Run("start beyond artifact rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, streamURL, nil)
		req.Header.Set("Range", "bytes=150-200")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusRequestedRangeNotSatisfiable {
			t.Fatalf("status = %d, want 416", w.Code)
		}
		if got := w.Header().Get("Content-Range"); got != "bytes */100" {
			t.Fatalf("Content-Range = %q, want bytes */100", got)
		}
	})

	t.Run("multi-range rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, streamURL, nil)
		req.Header.Set("Range", "bytes=0-10,20-30")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusRequestedRangeNotSatisfiable {
			t.Fatalf("status = %d, want 416", w.Code)
		}
	})

	t.Run("unknown identity", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/recordings/%s/stream", uuid.NewString()), nil))
		if w.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", w.Code)
		}
	})
}

func TestBaseContentType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"video/webm", "video/webm"},
		{"video/webm;codecs=vp8,opus", "video/webm"},
		{"video/mp4; codecs=avc1", "video/mp4"},
		{"", "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := baseContentType(tt.in); got != tt.want {
			t.Errorf("baseContentType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
