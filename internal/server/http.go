package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/mxdocs-extractor/constants"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/common"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/metrics"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/pipeline"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/repository"
)

// Recognizer runs one document through the extraction pipeline.
type Recognizer interface {
	Process(ctx context.Context, req pipeline.Request) (*pipeline.Extraction, error)
}

// JobReader exposes stored extraction jobs.
type JobReader interface {
	Get(ctx context.Context, id uuid.UUID) (*repository.Job, error)
	List(ctx context.Context, docType constants.DocumentType, limit int) ([]repository.Job, error)
}

// HealthChecker reports whether a dependency is usable.
type HealthChecker interface {
	HealthCheck(ctx context.Context, timeout time.Duration) error
}

type Server struct {
	recognizer   Recognizer
	jobs         JobReader
	health       HealthChecker
	metrics      *metrics.Metrics
	timeout      time.Duration
	maxBodyBytes int64
	logger       *slog.Logger
}

type Option func(*Server)

func WithJobs(jobs JobReader) Option { return func(s *Server) { s.jobs = jobs } }

func WithHealth(h HealthChecker) Option { return func(s *Server) { s.health = h } }

func WithMetrics(m *metrics.Metrics) Option { return func(s *Server) { s.metrics = m } }

func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

func NewServer(recognizer Recognizer, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		recognizer:   recognizer,
		timeout:      3 * time.Minute,
		maxBodyBytes: 25 << 20,
		logger:       logger,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler returns the HTTP routes wrapped in request ID and access log middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /ocr_recognize", s.handleRecognize)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.jobs != nil {
		mux.HandleFunc("GET /jobs", s.handleListJobs)
		mux.HandleFunc("GET /jobs/{id}", s.handleGetJob)
	}
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return s.withRequestID(s.withAccessLog(mux))
}

type recognizeRequest struct {
	Filename   string `json:"filename"`
	DocType    string `json:"doc_type"`
	FileBase64 string `json:"file_base64"`
}

type successResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) handleRecognize(w http.ResponseWriter, r *http.Request) {
	logger := common.LoggerFromContext(r.Context(), s.logger)

	var body recognizeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Detail: "El archivo excede el tamaño máximo permitido."})
			return
		}
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: "El cuerpo de la solicitud no es un JSON válido."})
		return
	}

	req, err := pipeline.NewRequest(body.Filename, body.DocType, body.FileBase64)
	if err != nil {
		logger.Info("http.recognize.invalid", "error", err)
		s.writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	ext, err := s.recognizer.Process(ctx, req)
	if err != nil {
		logger.Warn("http.recognize.failed", "filename", req.Filename, "doc_type", req.DocType, "error", err)
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Status: "success", Data: ext})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health.HealthCheck(r.Context(), 2*time.Second); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "id must be a UUID"})
		return
	}
	job, err := s.jobs.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Detail: "job not found"})
			return
		}
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobView(job))
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var docType constants.DocumentType
	if raw := q.Get("doc_type"); raw != "" {
		dt, ok := constants.ParseDocumentType(raw)
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "unknown doc_type"})
			return
		}
		docType = dt
	}
	limit := 50
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "limit must be between 1 and 500"})
			return
		}
		limit = n
	}
	jobs, err := s.jobs.List(r.Context(), docType, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]jobResponse, 0, len(jobs))
	for i := range jobs {
		out = append(out, jobView(&jobs[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": out})
}

type jobResponse struct {
	ID         string          `json:"id"`
	Filename   string          `json:"filename"`
	DocType    string          `json:"doc_type"`
	Status     string          `json:"status"`
	Strategy   string          `json:"strategy,omitempty"`
	NumPages   int             `json:"num_pages"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	StartedAt  string          `json:"started_at"`
	FinishedAt string          `json:"finished_at,omitempty"`
}

func jobView(j *repository.Job) jobResponse {
	out := jobResponse{
		ID:        j.ID.String(),
		Filename:  j.Filename,
		DocType:   string(j.DocType),
		Status:    string(j.Status),
		Strategy:  j.Strategy,
		NumPages:  j.NumPages,
		Error:     j.ErrorMessage,
		StartedAt: j.StartedAt.UTC().Format(time.RFC3339),
	}
	if json.Valid(j.ResultJSON) {
		out.Result = j.ResultJSON
	}
	if j.FinishedAt != nil {
		out.FinishedAt = j.FinishedAt.UTC().Format(time.RFC3339)
	}
	return out
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	writeJSON(w, common.HTTPStatus(err), errorResponse{Detail: common.UserMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
