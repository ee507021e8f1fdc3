package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorders(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordRouting("SAT", "chat_completions_entity_extraction", 97)
	m.RecordRouting("SAT", "", 40)
	m.RecordFieldErrors("SAT", []string{"curp", "rfc", "curp"})
	m.RecordBackend("openai", time.Second, 100, 20, nil)
	m.RecordBackend("openai", time.Second, 0, 0, errors.New("down"))
	m.RecordDocument("SAT", "SUCCEEDED")
	m.RecordHTTP("POST", "/ocr_recognize", 422, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.pagesRoutedTotal.WithLabelValues("SAT", "chat_completions_entity_extraction")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pagesRejected.WithLabelValues("SAT")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.fieldErrorsTotal.WithLabelValues("SAT", "curp")))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.backendTokens.WithLabelValues("openai", "prompt")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.documentsTotal.WithLabelValues("SAT", "SUCCEEDED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("POST", "/ocr_recognize", "4xx")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRouting("SAT", "", 0)
		m.RecordDocument("SAT", "FAILED")
		m.RecordBackend("gemini", 0, 0, 0, nil)
		m.RecordFieldErrors("SAT", []string{"x"})
		m.RecordHTTP("GET", "/healthz", 200, 0)
	})
}

func TestHandler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.RecordDocument("IMSS", "PARTIAL")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `mxdocs_documents_total{doc_type="IMSS",status="PARTIAL"} 1`)
}
