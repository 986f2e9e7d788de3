package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/faceid/internal/advisor"
	"github.com/kozaktomas/faceid/internal/logging"
	"github.com/kozaktomas/faceid/internal/recognition"
)

var testLogger = logging.Discard()

// fakeRecognizer returns a fixed result and counts calls
type fakeRecognizer struct {
	result *recognition.Result
	err    error
	calls  int
	got    []byte
}

func (f *fakeRecognizer) Recognize(ctx context.Context, image []byte) (*recognition.Result, error) {
	f.calls++
	f.got = image
	return f.result, f.err
}

// fakeDispatcher records dispatched profiles
type fakeDispatcher struct {
	mu       sync.Mutex
	profiles []advisor.Profile
}

func (f *fakeDispatcher) Dispatch(p advisor.Profile) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles = append(f.profiles, p)
	return true
}

func (f *fakeDispatcher) dispatched() []advisor.Profile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]advisor.Profile(nil), f.profiles...)
}

// fakeAsker records the last call and returns a canned answer
type fakeAsker struct {
	answer   string
	err      error
	calls    int
	profile  advisor.Profile
	question string
}

func (f *fakeAsker) Ask(ctx context.Context, profile advisor.Profile, question string) (string, error) {
	f.calls++
	f.profile = profile
	f.question = question
	return f.answer, f.err
}

// multipartRequest builds a POST with a single file field
func multipartRequest(t *testing.T, path, field string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if field != "" {
		fw, err := mw.CreateFormFile(field, "face.jpg")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(content); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	} else if err := mw.WriteField("other", "value"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}

// countingGenerator is an advisor.Generator that always answers with no text
type countingGenerator struct {
	calls int
}

func (g *countingGenerator) Name() string { return "counting" }

func (g *countingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.calls++
	return "", nil
}
