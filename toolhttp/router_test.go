package toolhttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yuanjiao014278andrewjones/nexus-sdk-sub001/fqn"
)

type addInput struct {
	A int `json:"a"`
	B int `json:"b"`
}

type addOutput struct {
	Ok  *okResult  `json:"Ok,omitempty"`
	Err *errResult `json:"Err,omitempty"`
}

type okResult struct {
	Sum int `json:"sum"`
}

type errResult struct {
	Reason string `json:"reason"`
}

type addTool struct {
	path   string
	status int
}

func (addTool) FQN() fqn.ToolFqn { return fqn.MustParse("xyz.dummy.adder@1") }
func (t addTool) Path() string   { return t.path }
func (addTool) InputSchema() json.RawMessage  { return json.RawMessage(`{"type":"object"}`) }
func (addTool) OutputSchema() json.RawMessage { return json.RawMessage(`{"oneOf":[]}`) }
func (t addTool) Health(context.Context) int  { return t.status }

func (addTool) Invoke(_ context.Context, in addInput) addOutput {
	return addOutput{Ok: &okResult{Sum: in.A + in.B}}
}

func TestHealthDefaultsTo200(t *testing.T) {
	router := NewRouter()
	Mount[addInput, addOutput](router, addTool{status: http.StatusOK})
	mux := router.Finalize()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHealthReflectsToolStatus(t *testing.T) {
	router := NewRouter()
	Mount[addInput, addOutput](router, addTool{status: http.StatusServiceUnavailable})
	mux := router.Finalize()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestInvokeSuccess(t *testing.T) {
	router := NewRouter()
	Mount[addInput, addOutput](router, addTool{status: http.StatusOK})
	mux := router.Finalize()

	body := strings.NewReader(`{"a":2,"b":3}`)
	req := httptest.NewRequest(http.MethodPost, "/invoke", body)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var out addOutput
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Ok == nil || out.Ok.Sum != 5 {
		t.Fatalf("unexpected output: %+v", out)
	}
}

func TestInvokeMalformedInputReturns422(t *testing.T) {
	router := NewRouter()
	Mount[addInput, addOutput](router, addTool{status: http.StatusOK})
	mux := router.Finalize()

	body := strings.NewReader(`{"a":"not-a-number"}`)
	req := httptest.NewRequest(http.MethodPost, "/invoke", body)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	var payload map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if payload["error"] != "input_deserialization_error" {
		t.Fatalf("unexpected error body: %+v", payload)
	}
}

func TestMetaRequiresHostHeader(t *testing.T) {
	router := NewRouter()
	Mount[addInput, addOutput](router, addTool{status: http.StatusOK})
	mux := router.Finalize()

	req := httptest.NewRequest(http.MethodGet, "/meta", nil)
	req.Host = ""
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 when Host is empty, got %d", rec.Code)
	}
}

func TestMetaUsesHttpSchemeForLocalhost(t *testing.T) {
	router := NewRouter()
	Mount[addInput, addOutput](router, addTool{status: http.StatusOK})
	mux := router.Finalize()

	req := httptest.NewRequest(http.MethodGet, "/meta", nil)
	req.Host = "localhost:8080"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var meta metaResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &meta); err != nil {
		t.Fatalf("decode meta: %v", err)
	}
	if meta.FQN != "xyz.dummy.adder@1" {
		t.Fatalf("unexpected fqn: %s", meta.FQN)
	}
	if meta.URL != "http://localhost:8080/" {
		t.Fatalf("unexpected url: %s", meta.URL)
	}
}

func TestMetaUsesHttpsSchemeForNonLocalhost(t *testing.T) {
	router := NewRouter()
	Mount[addInput, addOutput](router, addTool{status: http.StatusOK})
	mux := router.Finalize()

	req := httptest.NewRequest(http.MethodGet, "/meta", nil)
	req.Host = "tools.example.com"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var meta metaResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &meta); err != nil {
		t.Fatalf("decode meta: %v", err)
	}
	if meta.URL != "https://tools.example.com/" {
		t.Fatalf("unexpected url: %s", meta.URL)
	}
}

func TestToolMountedUnderBasePath(t *testing.T) {
	router := NewRouter()
	Mount[addInput, addOutput](router, addTool{path: "add", status: http.StatusOK})
	mux := router.Finalize()

	req := httptest.NewRequest(http.MethodGet, "/add/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for namespaced health, got %d", rec.Code)
	}

	// Finalize still adds a default root /health since no tool is mounted
	// at the router root.
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected default root health 200, got %d", rec.Code)
	}
}
