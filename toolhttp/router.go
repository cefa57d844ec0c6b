// Package toolhttp is the thin HTTP surface a tool binary exposes so the
// workflow engine can discover and invoke it: GET /health, GET /meta, and
// POST /invoke, each optionally namespaced under a tool-chosen base path
// so several tools can share one process.
package toolhttp

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/yuanjiao014278andrewjones/nexus-sdk-sub001/fqn"
)

// Tool is implemented by a single tool's business logic. In and Out are
// the tool's request and response payload types; Out's JSON schema must
// describe a tagged union (an "oneOf" of result variants) so callers can
// distinguish success from failure without a side-channel status code.
type Tool[In, Out any] interface {
	FQN() fqn.ToolFqn

	// Path is the base path this tool is mounted under, e.g. "/add". An
	// empty string mounts the tool at the router root.
	Path() string

	// InputSchema and OutputSchema are the tool's pre-built JSON Schema
	// documents, returned verbatim in /meta.
	InputSchema() json.RawMessage
	OutputSchema() json.RawMessage

	// Health reports the HTTP status code describing this tool's
	// current readiness (e.g. http.StatusOK, or 503 if a downstream
	// dependency is unavailable).
	Health(ctx context.Context) int

	// Invoke runs the tool's logic. Errors are expected to be carried
	// inside Out as a variant, not returned separately; a deserialization
	// failure of In is handled by the router before Invoke is called.
	Invoke(ctx context.Context, input In) Out
}

// Router mounts one or more tools' routes onto a chi.Mux and tracks
// whether a root-level health check has been registered, so Finalize can
// add a default one if not.
type Router struct {
	mux           *chi.Mux
	hasRootHealth bool
}

// NewRouter constructs an empty Router with request logging and a JSON
// Content-Type applied to every response.
func NewRouter() *Router {
	mux := chi.NewRouter()
	mux.Use(requestLogger)
	mux.Use(jsonContentType)
	return &Router{mux: mux}
}

// Mux returns the underlying chi.Mux, ready to pass to http.ListenAndServe.
func (r *Router) Mux() *chi.Mux { return r.mux }

// Finalize adds a default GET /health returning 200 if no tool mounted one
// at the router root, mirroring the bootstrap fallback every tool runtime
// provides so orchestration-level health probes never 404.
func (r *Router) Finalize() *chi.Mux {
	if !r.hasRootHealth {
		r.mux.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	}
	return r.mux
}

// Mount registers tool's /health, /meta, and /invoke handlers under its
// Path() on r.
func Mount[In, Out any](r *Router, tool Tool[In, Out]) {
	base := normalizeBasePath(tool.Path())
	if base == "" {
		r.hasRootHealth = true
	}

	r.mux.Get(joinPath(base, "health"), healthHandler(tool))
	r.mux.Get(joinPath(base, "meta"), metaHandler(tool))
	r.mux.Post(joinPath(base, "invoke"), invokeHandler(tool))
}

func normalizeBasePath(p string) string {
	return strings.Trim(p, "/")
}

func joinPath(base, leaf string) string {
	if base == "" {
		return "/" + leaf
	}
	return "/" + base + "/" + leaf
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Info("tool http request")
		next.ServeHTTP(w, r)
	})
}

func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func healthHandler[In, Out any](tool Tool[In, Out]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(tool.Health(r.Context()))
	}
}

// metaResponse is the /meta payload: enough for a caller to both identify
// the tool and validate input/output against its declared schemas.
type metaResponse struct {
	FQN          string          `json:"fqn"`
	URL          string          `json:"url"`
	InputSchema  json.RawMessage `json:"input_schema"`
	OutputSchema json.RawMessage `json:"output_schema"`
}

func metaHandler[In, Out any](tool Tool[In, Out]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Host == "" {
			writeJSONStatus(w, http.StatusBadRequest, map[string]string{
				"error":   "host_header_required",
				"details": "Host header is required.",
			})
			return
		}

		basePath, ok := strings.CutSuffix(r.URL.Path, "meta")
		if !ok {
			writeJSONStatus(w, http.StatusBadRequest, map[string]string{
				"error":   "invalid_path",
				"details": "Meta path must end with 'meta'.",
			})
			return
		}

		scheme := "https"
		if hostOnly(r.Host) == "localhost" {
			scheme = "http"
		}

		writeJSONStatus(w, http.StatusOK, metaResponse{
			FQN:          tool.FQN().String(),
			URL:          scheme + "://" + r.Host + basePath,
			InputSchema:  tool.InputSchema(),
			OutputSchema: tool.OutputSchema(),
		})
	}
}

// hostOnly strips an optional ":port" suffix from a Host header value.
func hostOnly(hostport string) string {
	if i := strings.LastIndex(hostport, ":"); i != -1 {
		return hostport[:i]
	}
	return hostport
}

func invokeHandler[In, Out any](tool Tool[In, Out]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input In
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			writeJSONStatus(w, http.StatusUnprocessableEntity, map[string]string{
				"error":   "input_deserialization_error",
				"details": err.Error(),
			})
			return
		}

		output := tool.Invoke(r.Context(), input)
		writeJSONStatus(w, http.StatusOK, output)
	}
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
