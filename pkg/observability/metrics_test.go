package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// TestMetricsRegistered verifies that all metrics are registered in the
// default registry and appear once observed.
func TestMetricsRegistered(t *testing.T) {
	expected := map[string]bool{
		"mmbridge_requests_total":               false,
		"mmbridge_request_duration_seconds":     false,
		"mmbridge_streaming_connections_active": false,
		"mmbridge_provider_requests_total":      false,
		"mmbridge_provider_latency_seconds":     false,
		"mmbridge_provider_tokens_total":        false,
		"mmbridge_quota_deductions_total":       false,
		"mmbridge_ratelimit_rejected_total":     false,
	}

	// Vectors only appear after first observation.
	RequestsTotal.WithLabelValues("GET", "2xx", "test").Inc()
	RequestDuration.WithLabelValues("GET", "test").Observe(0.1)
	ProviderRequestsTotal.WithLabelValues("minimax", "test", "ok").Inc()
	ProviderLatency.WithLabelValues("minimax", "test").Observe(0.1)
	ProviderTokensTotal.WithLabelValues("minimax", "test", "input").Add(10)
	QuotaDeductionsTotal.WithLabelValues("minimax", "trial", QuotaApplied).Inc()
	RateLimitRejectedTotal.WithLabelValues("default").Inc()

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("unexpected gather error: %v", err)
	}

	for _, mf := range families {
		if _, ok := expected[mf.GetName()]; ok {
			expected[mf.GetName()] = true
		}
	}

	for name, found := range expected {
		if !found {
			t.Errorf("metric %q not found in default registry", name)
		}
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	QuotaDeductionsTotal.WithLabelValues("minimax", "exposed", QuotaSkipped).Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `mmbridge_quota_deductions_total{provider="minimax",quota_type="exposed",result="skipped"}`) {
		t.Errorf("expected quota counter in exposition output")
	}
}

// TestMiddlewareRecordsRequestCount verifies that the middleware increments
// the request counter for a known route.
func TestMiddlewareRecordsRequestCount(t *testing.T) {
	before := counterValue(t, RequestsTotal, "POST", "2xx", "/v1/chat/messages")

	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), "/v1/chat/messages")

	req := httptest.NewRequest("POST", "/v1/chat/messages", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	after := counterValue(t, RequestsTotal, "POST", "2xx", "/v1/chat/messages")
	if after-before != 1 {
		t.Errorf("expected request count to increase by 1, got delta=%f", after-before)
	}
}

func TestMiddlewareUnknownRouteCollapsed(t *testing.T) {
	before := counterValue(t, RequestsTotal, "GET", "4xx", otherRoute)

	handler := MetricsMiddleware(http.NotFoundHandler(), "/v1/chat/messages")
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/random/abc123", nil))

	after := counterValue(t, RequestsTotal, "GET", "4xx", otherRoute)
	if after-before != 1 {
		t.Errorf("expected other-route count to increase by 1, got delta=%f", after-before)
	}
}

// TestMiddlewareRecordsDuration verifies that the middleware records
// a request duration observation.
func TestMiddlewareRecordsDuration(t *testing.T) {
	before := histogramCount(t, RequestDuration, "POST", "/v1/chat/messages")

	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}), "/v1/chat/messages")

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/v1/chat/messages", nil))

	after := histogramCount(t, RequestDuration, "POST", "/v1/chat/messages")
	if after-before != 1 {
		t.Errorf("expected histogram sample count to increase by 1, got delta=%d", after-before)
	}
}

// TestMiddlewareStreamingGauge verifies that the gauge is raised while an
// event-stream response is being written and lowered afterwards.
func TestMiddlewareStreamingGauge(t *testing.T) {
	baseline := gaugeValue(t, StreamingConnections)

	var during float64
	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		during = gaugeValue(t, StreamingConnections)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/v1/chat/messages", nil))
	after := gaugeValue(t, StreamingConnections)

	if during != baseline+1 {
		t.Errorf("expected streaming gauge=%f during request, got %f", baseline+1, during)
	}
	if after != baseline {
		t.Errorf("expected streaming gauge=%f after request, got %f", baseline, after)
	}
}

func TestMiddlewareJSONResponseNotStreaming(t *testing.T) {
	baseline := gaugeValue(t, StreamingConnections)

	var during float64
	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("{}"))
		during = gaugeValue(t, StreamingConnections)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/v1/chat/messages", nil))

	if during != baseline {
		t.Errorf("expected gauge unchanged for JSON response, got %f (baseline %f)", during, baseline)
	}
}

// TestMiddlewareCapturesStatusCode verifies that non-200 status codes are
// captured in the status label.
func TestMiddlewareCapturesStatusCode(t *testing.T) {
	before := counterValue(t, RequestsTotal, "POST", "4xx", "/v1/chat/messages")

	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}), "/v1/chat/messages")

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/v1/chat/messages", nil))

	after := counterValue(t, RequestsTotal, "POST", "4xx", "/v1/chat/messages")
	if after-before != 1 {
		t.Errorf("expected 4xx count to increase by 1, got delta=%f", after-before)
	}
}

// TestStatusWriterFlush verifies that Flush delegates to the underlying writer.
func TestStatusWriterFlush(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec, status: http.StatusOK}

	sw.Flush()

	if !rec.Flushed {
		t.Error("expected underlying writer to be flushed")
	}
}

// counterValue reads the current value of a CounterVec for the given labels.
func counterValue(t *testing.T, cv *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	c, err := cv.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("getting counter metric: %v", err)
	}
	if err := c.(prometheus.Metric).Write(m); err != nil {
		t.Fatalf("writing counter metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

// histogramCount reads the observation count from a HistogramVec.
func histogramCount(t *testing.T, hv *prometheus.HistogramVec, labels ...string) uint64 {
	t.Helper()
	m := &dto.Metric{}
	obs, err := hv.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("getting histogram metric: %v", err)
	}
	if err := obs.(prometheus.Metric).Write(m); err != nil {
		t.Fatalf("writing histogram metric: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

// gaugeValue reads the current value of a Gauge.
func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := g.Write(m); err != nil {
		t.Fatalf("writing gauge metric: %v", err)
	}
	return m.GetGauge().GetValue()
}
