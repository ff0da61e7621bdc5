package monitoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"WARN", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestLogger_TimestampKey(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, slog.LevelInfo)
	logger.RequestLogger("GET", "/health", "127.0.0.1", 200, 3*time.Millisecond)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Contains(t, entry, "timestamp")
	assert.NotContains(t, entry, "time")
	assert.Equal(t, "HTTP Request", entry["msg"])
	assert.Equal(t, float64(200), entry["status"])
}

func TestMetrics_Recorders(t *testing.T) {
	m := NewMetrics()

	m.RecordAnalysis("member", nil, true, time.Millisecond)
	m.RecordAnalysis("member", errors.New("boom"), false, time.Millisecond)
	m.RecordDropped("duplicate", 2)
	m.RecordDropped("bot", 0)
	m.RecordSkipped(1)
	m.RecordNormalized("code", 3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.analysisRequests.WithLabelValues("member", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.analysisRequests.WithLabelValues("member", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.partialResults.WithLabelValues("member")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.eventsDropped.WithLabelValues("duplicate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.foldsSkipped))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.activitiesNormalized.WithLabelValues("code")))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() {
		nilMetrics.RecordSkipped(1)
		nilMetrics.RecordRequest("/", "GET", 200, time.Millisecond)
	})
}

func TestMonitoringMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	m := NewMetrics()
	var buf bytes.Buffer
	router := gin.New()
	router.Use(MonitoringMiddleware(m, NewLoggerTo(&buf, slog.LevelInfo)))
	router.GET("/members/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/members/42", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("/members/:id", "GET", "204")))
	assert.Contains(t, buf.String(), `"path":"/members/42"`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "teampulse_http_requests_total"))
}
