package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ironsheep/quiz-tapper/internal/detection"
	"github.com/ironsheep/quiz-tapper/internal/geometry"
	"github.com/ironsheep/quiz-tapper/internal/screen"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type stubDetector struct {
	an  *screen.Analysis
	err error
}

func (s stubDetector) Analyze(image.Image) (*screen.Analysis, error) { return s.an, s.err }

func pngUpload(t *testing.T, field string) (*bytes.Buffer, string) {
	t.Helper()
	var img bytes.Buffer
	if err := png.Encode(&img, image.NewGray(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatal(err)
	}
	return multipartBody(t, field, img.Bytes())
}

func multipartBody(t *testing.T, field string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile(field, "screen.png")
	if err != nil {
		t.Fatal(err)
	}
	part.Write(data)
	w.Close()
	return &body, w.FormDataContentType()
}

func do(t *testing.T, h http.Handler, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/match", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := NewHandler(stubDetector{}, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["status"] != "ok" {
		t.Errorf("body: got %s", rec.Body.String())
	}
}

func TestMatchOK(t *testing.T) {
	m := &detection.LayoutMatch{Core: geometry.NewRect(0, 28, 8, 56)}
	for i := range m.Choices {
		m.Choices[i] = geometry.NewRect(1, 100+i*20, 6, 1)
	}
	h := NewHandler(stubDetector{an: &screen.Analysis{Match: m}}, nil)

	body, ct := pngUpload(t, "image")
	rec := do(t, h, body, ct)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}
	var rep screen.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &rep); err != nil {
		t.Fatal(err)
	}
	if !rep.Matched || rep.Core == nil || *rep.Core != m.Core || len(rep.Choices) != 4 {
		t.Errorf("report: got %+v", rep)
	}
}

func TestMatchFailures(t *testing.T) {
	failure := &detection.DetectionFailure{
		Reason:     detection.ReasonGap,
		Candidates: []geometry.Rect{geometry.NewRect(143, 1340, 803, 120)},
	}

	tests := []struct {
		name       string
		detector   stubDetector
		field      string
		data       []byte
		wantStatus int
		wantReason string
	}{
		{"layout not matched", stubDetector{an: &screen.Analysis{Failure: failure}}, "image", nil, http.StatusUnprocessableEntity, "gap"},
		{"core invariant", stubDetector{an: &screen.Analysis{}, err: fmt.Errorf("height 0: %w", detection.ErrCoreInvariant)}, "image", nil, http.StatusInternalServerError, ""},
		{"extractor error", stubDetector{err: errors.New("boom")}, "image", nil, http.StatusInternalServerError, ""},
		{"wrong field", stubDetector{}, "file", nil, http.StatusBadRequest, ""},
		{"not an image", stubDetector{}, "image", []byte("hello"), http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body *bytes.Buffer
			var ct string
			if tt.data != nil {
				body, ct = multipartBody(t, tt.field, tt.data)
			} else {
				body, ct = pngUpload(t, tt.field)
			}
			rec := do(t, NewHandler(tt.detector, nil), body, ct)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status: got %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if resp.Error == "" {
				t.Error("error body has no error field")
			}
			if tt.wantReason != "" {
				if resp.Reason == nil || resp.Reason.String() != tt.wantReason {
					t.Errorf("reason: got %v, want %s", resp.Reason, tt.wantReason)
				}
				if len(resp.Candidates) != 1 || resp.Candidates[0].Left != 143 {
					t.Errorf("candidates: got %v", resp.Candidates)
				}
			}
		})
	}
}

func TestServeShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, "127.0.0.1:0", NewHandler(stubDetector{}, nil), nil) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
