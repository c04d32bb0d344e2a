// Package server exposes the generation pipeline over HTTP and websocket.
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/kayz/slidefit/internal/assemble"
	"github.com/kayz/slidefit/internal/generate"
	"github.com/kayz/slidefit/internal/logger"
	"github.com/kayz/slidefit/internal/persist"
	"github.com/kayz/slidefit/internal/synth"
	"github.com/kayz/slidefit/internal/variant"
)

// statusClientClosed is used when the caller went away mid-request.
const statusClientClosed = 499

// maxRequestBytes bounds a request body.
const maxRequestBytes = 1 << 20

// Generator runs one generation request.
type Generator interface {
	Generate(ctx context.Context, req generate.Request, opts ...synth.Option) (*generate.Response, error)
}

// Variants lists and resolves variant specs.
type Variants interface {
	Get(variantID string) (*variant.Spec, error)
	List() []*variant.Spec
}

// Checker validates a variant against its template.
type Checker interface {
	CheckVariant(spec *variant.Spec) (assemble.VariantCheck, error)
}

// History reads stored generations. Optional.
type History interface {
	ListGenerations(limit int) ([]persist.Summary, error)
	GetGeneration(id string) (*persist.Generation, error)
}

type Server struct {
	generator Generator
	variants  Variants
	checker   Checker
	history   History
	startedAt time.Time
}

func NewServer(generator Generator, variants Variants, checker Checker, history History) *Server {
	return &Server{
		generator: generator,
		variants:  variants,
		checker:   checker,
		history:   history,
		startedAt: time.Now().UTC(),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	mux.HandleFunc("GET /api/generate/stream", s.handleStream)
	mux.HandleFunc("GET /api/variants", s.handleVariants)
	mux.HandleFunc("GET /api/variants/{id}/validate", s.handleValidate)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/history/{id}", s.handleHistoryItem)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	return mux
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	payload := map[string]any{
		"ok":         true,
		"started_at": s.startedAt.Format(time.RFC3339),
		"uptime_sec": int(time.Since(s.startedAt).Seconds()),
		"goroutines": runtime.NumGoroutine(),
	}
	if s.variants != nil {
		payload["variants"] = len(s.variants.List())
	}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mem, err := p.MemoryInfo(); err == nil {
			payload["rss_bytes"] = mem.RSS
		}
		if cpu, err := p.CPUPercent(); err == nil {
			payload["cpu_percent"] = cpu
		}
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if s.generator == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "generator is not initialized"})
		return
	}

	var req generate.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, &generate.Response{Success: false, Error: "invalid json body"})
		return
	}

	resp, err := s.generator.Generate(r.Context(), req)
	if err != nil {
		writeJSON(w, statusFor(err), resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVariants(w http.ResponseWriter, _ *http.Request) {
	if s.variants == nil {
		writeJSON(w, http.StatusOK, []*variant.Spec{})
		return
	}
	writeJSON(w, http.StatusOK, s.variants.List())
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	if s.variants == nil || s.checker == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "registry is not initialized"})
		return
	}
	spec, err := s.variants.Get(r.PathValue("id"))
	if err != nil {
		writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	check, err := s.checker.CheckVariant(spec)
	if err != nil {
		writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":    check.OK(),
		"check": check,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "history is disabled"})
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	list, err := s.history.ListGenerations(limit)
	if err != nil {
		logger.Error("[Server] list history: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if list == nil {
		list = []persist.Summary{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleHistoryItem(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "history is disabled"})
		return
	}
	g, err := s.history.GetGeneration(r.PathValue("id"))
	if errors.Is(err, sql.ErrNoRows) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "generation not found"})
		return
	}
	if err != nil {
		logger.Error("[Server] get history item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// statusFor maps a pipeline error to an HTTP status.
func statusFor(err error) int {
	var notFound *variant.NotFoundError
	if errors.As(err, &notFound) {
		return http.StatusNotFound
	}
	switch generate.Classify(err) {
	case generate.KindConfig:
		return http.StatusBadRequest
	case generate.KindAssembly:
		return http.StatusInternalServerError
	case generate.KindCanceled:
		return statusClientClosed
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
