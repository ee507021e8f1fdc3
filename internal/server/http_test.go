package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/mxdocs-extractor/constants"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/common"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/metrics"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/pipeline"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/repository"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/router"
)

type fakeRecognizer struct {
	got       pipeline.Request
	requestID string
	ext       *pipeline.Extraction
	err       error
}

func (f *fakeRecognizer) Process(ctx context.Context, req pipeline.Request) (*pipeline.Extraction, error) {
	f.got = req
	f.requestID = common.RequestIDFromContext(ctx)
	return f.ext, f.err
}

type fakeHealth struct{ err error }

func (f fakeHealth) HealthCheck(context.Context, time.Duration) error { return f.err }

type fakeJobs struct{ jobs []repository.Job }

func (f *fakeJobs) Get(_ context.Context, id uuid.UUID) (*repository.Job, error) {
	for i := range f.jobs {
		if f.jobs[i].ID == id {
			return &f.jobs[i], nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeJobs) List(_ context.Context, dt constants.DocumentType, limit int) ([]repository.Job, error) {
	var out []repository.Job
	for _, j := range f.jobs {
		if dt == "" || j.DocType == dt {
			out = append(out, j)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func recognizeBody(t *testing.T, filename, docType, content string) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(map[string]string{
		"filename":    filename,
		"doc_type":    docType,
		"file_base64": base64.StdEncoding.EncodeToString([]byte(content)),
	})
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func do(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var body map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestRecognize_Success(t *testing.T) {
	rec := &fakeRecognizer{ext: &pipeline.Extraction{
		Filename: "acuse.jpg",
		DocType:  constants.IMSS,
		Status:   constants.JobStatusSucceeded,
		Pages:    []*pipeline.PageResult{{Strategy: router.StrategyVision, Content: "[]"}},
	}}
	h := NewServer(rec, nil).Handler()

	req := httptest.NewRequest(http.MethodPost, "/ocr_recognize", recognizeBody(t, "acuse.jpg", "imss", "jpeg-bytes"))
	req.Header.Set(HeaderRequestID, "req-123")
	resp, body := do(t, h, req)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "req-123", resp.Header().Get(HeaderRequestID))
	assert.Equal(t, "success", body["status"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "acuse.jpg", data["filename"])
	assert.Equal(t, string(router.StrategyVision), data["process_type"])

	assert.Equal(t, constants.IMSS, rec.got.DocType)
	assert.Equal(t, []byte("jpeg-bytes"), rec.got.Content)
	assert.Equal(t, "req-123", rec.requestID)
}

func TestRecognize_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		procErr    error
		wantStatus int
		wantDetail string
	}{
		{
			name:       "malformed json",
			body:       `{"filename":`,
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "El cuerpo de la solicitud no es un JSON válido.",
		},
		{
			name:       "unknown doc type",
			body:       `{"filename":"a.pdf","doc_type":"CFE","file_base64":"YQ=="}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "Tipo de documento no reconocido. Por favor, proporciona un tipo valido: IMSS, INFONAVIT, SAT",
		},
		{
			name:       "quality rejection",
			body:       `{"filename":"a.pdf","doc_type":"SAT","file_base64":"YQ=="}`,
			procErr:    common.NewAppError(common.CodeQuality, "Calidad insuficiente", common.ErrQualityReject),
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "Calidad insuficiente",
		},
		{
			name:       "backend failure",
			body:       `{"filename":"a.pdf","doc_type":"SAT","file_base64":"YQ=="}`,
			procErr:    common.NewAppError(common.CodeBackend, "Error al procesar el documento", common.ErrBackend),
			wantStatus: http.StatusInternalServerError,
			wantDetail: "Error al procesar el documento",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewServer(&fakeRecognizer{err: tt.procErr}, nil).Handler()
			req := httptest.NewRequest(http.MethodPost, "/ocr_recognize", strings.NewReader(tt.body))
			resp, body := do(t, h, req)
			assert.Equal(t, tt.wantStatus, resp.Code)
			assert.Equal(t, tt.wantDetail, body["detail"])
			assert.NotEmpty(t, resp.Header().Get(HeaderRequestID))
		})
	}
}

func TestRecognize_BodyTooLarge(t *testing.T) {
	h := NewServer(&fakeRecognizer{}, nil, WithMaxBodyBytes(16)).Handler()
	req := httptest.NewRequest(http.MethodPost, "/ocr_recognize", recognizeBody(t, "a.pdf", "SAT", strings.Repeat("x", 64)))
	resp, _ := do(t, h, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.Code)
}

func TestRecognize_MethodNotAllowed(t *testing.T) {
	h := NewServer(&fakeRecognizer{}, nil).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ocr_recognize", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthz(t *testing.T) {
	ok := NewServer(&fakeRecognizer{}, nil, WithHealth(fakeHealth{})).Handler()
	resp, body := do(t, ok, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "ok", body["status"])

	down := NewServer(&fakeRecognizer{}, nil, WithHealth(fakeHealth{err: errors.New("db down")})).Handler()
	resp, _ = do(t, down, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestJobs(t *testing.T) {
	finished := time.Date(2025, 6, 15, 10, 1, 0, 0, time.UTC)
	id := uuid.New()
	jobs := &fakeJobs{jobs: []repository.Job{
		{
			ID: id, Filename: "a.pdf", DocType: constants.SAT, Status: constants.JobStatusSucceeded,
			NumPages: 1, ResultJSON: []byte(`{"filename":"a.pdf"}`),
			StartedAt: finished.Add(-time.Minute), FinishedAt: &finished,
		},
		{ID: uuid.New(), Filename: "b.jpg", DocType: constants.IMSS, Status: constants.JobStatusRejected, ErrorMessage: "Calidad insuficiente"},
	}}
	h := NewServer(&fakeRecognizer{}, nil, WithJobs(jobs)).Handler()

	resp, body := do(t, h, httptest.NewRequest(http.MethodGet, "/jobs/"+id.String(), nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "SUCCEEDED", body["status"])
	assert.Equal(t, map[string]any{"filename": "a.pdf"}, body["result"])
	assert.Equal(t, "2025-06-15T10:01:00Z", body["finished_at"])

	resp, _ = do(t, h, httptest.NewRequest(http.MethodGet, "/jobs/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp, _ = do(t, h, httptest.NewRequest(http.MethodGet, "/jobs/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp, body = do(t, h, httptest.NewRequest(http.MethodGet, "/jobs?doc_type=imss", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	list := body["jobs"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, "Calidad insuficiente", list[0].(map[string]any)["error"])

	resp, _ = do(t, h, httptest.NewRequest(http.MethodGet, "/jobs?limit=0", nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	h := NewServer(&fakeRecognizer{}, nil, WithMetrics(m)).Handler()

	do(t, h, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "GET /healthz")
}
