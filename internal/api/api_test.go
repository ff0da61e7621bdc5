package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/teampulse/internal/analysis"
	"github.com/ZanzyTHEbar/teampulse/internal/identity"
	"github.com/ZanzyTHEbar/teampulse/internal/monitoring"
	"github.com/ZanzyTHEbar/teampulse/internal/normalize"
	"github.com/ZanzyTHEbar/teampulse/internal/ratelimit"
	"github.com/ZanzyTHEbar/teampulse/internal/resilience"
	"github.com/ZanzyTHEbar/teampulse/internal/types"
)

type memberSource struct {
	invalidations int
}

func (m *memberSource) Load(context.Context) (*identity.Index, error) {
	return identity.NewIndex([]types.Member{
		{ID: "m-x", DisplayName: "Xavier", Identifiers: map[types.SourceType]string{types.SourceCode: "xav", types.SourceChat: "U1"}, Projects: []string{"api"}},
		{ID: "m-y", DisplayName: "Yan", Identifiers: map[types.SourceType]string{types.SourceChat: "U2"}, RecordingName: "Suah Kim", Projects: []string{"api"}},
		{ID: "m-z", DisplayName: "Zed"},
	}), nil
}

func (m *memberSource) Invalidate(context.Context) error {
	m.invalidations++
	return nil
}

type projectSource struct{}

func (projectSource) Projects(context.Context) (normalize.StaticProjects, error) {
	p := normalize.StaticProjects{}
	p.Add(normalize.ResourceRepository, "org/api", "api")
	return p, nil
}

type eventSource struct {
	err error
}

func (e eventSource) Events(context.Context, time.Time, time.Time) ([]normalize.RawSourceEvent, error) {
	if e.err != nil {
		return nil, e.err
	}
	return []normalize.RawSourceEvent{
		{ID: "c1", Source: types.SourceCode, Type: "commit", Actor: "xav", Timestamp: "2024-03-03T10:00:00Z",
			Metadata: map[string]any{"repository": "org/api"}},
		{ID: "pr1", Source: types.SourceCode, Type: "pull_request", Actor: "xav", Timestamp: "2024-03-05T10:00:00Z",
			Metadata: map[string]any{"repository": "org/api", "number": "12", "merged": true}},
		{ID: "mt1", Source: types.SourceMeeting, Participants: []string{"Xavier", "Suah Kim"},
			Timestamp: "2024-03-06T09:00:00Z", Metadata: map[string]any{"meeting_id": "standup"}},
		{ID: "bad", Source: types.SourceChat, Actor: "U1", Timestamp: "not a time"},
	}, nil
}

type poolStats struct{}

func (poolStats) GetPoolStats() map[string]any {
	return map[string]any{"open_connections": 1}
}

func testRouter(t *testing.T, events eventSource, limiter *ratelimit.RateLimiter) (*gin.Engine, *memberSource) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	members := &memberSource{}
	retry := resilience.DefaultRetryConfig()
	retry.InitialDelay = time.Millisecond
	retry.MaxDelay = time.Millisecond

	analyzer := analysis.NewAnalyzer(analysis.DefaultConfig(), members, projectSource{}, events, nil).
		WithClock(func() time.Time { return time.Date(2024, 3, 7, 12, 0, 0, 0, time.UTC) }).
		WithRetry(retry)

	return NewRouter(Options{
		Analyzer: analyzer,
		Metrics:  monitoring.NewMetrics(),
		Limiter:  limiter,
		Pool:     poolStats{},
	}), members
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestHealthEndpoint(t *testing.T) {
	r, _ := testRouter(t, eventSource{}, nil)

	w := get(r, "/health")
	assert.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, body, "database")
	assert.Contains(t, body, "version")
	assert.Contains(t, body, "compression")
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := testRouter(t, eventSource{}, nil)

	get(r, "/api/v1/members/m-x/analytics?days=7")
	w := get(r, "/metrics")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "teampulse_http_requests_total")
}

func TestMemberAnalyticsEndpoint(t *testing.T) {
	r, _ := testRouter(t, eventSource{}, nil)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantDays   int
	}{
		{"seven days", "/api/v1/members/m-x/analytics?days=7", http.StatusOK, 7},
		{"default window", "/api/v1/members/m-x/analytics", http.StatusOK, 28},
		{"member without activity", "/api/v1/members/m-z/analytics?days=14", http.StatusOK, 14},
		{"explicit range", "/api/v1/members/m-x/analytics?start=2024-03-01&end=2024-03-03", http.StatusOK, 3},
		{"unknown member", "/api/v1/members/ghost/analytics", http.StatusNotFound, 0},
		{"bad days", "/api/v1/members/m-x/analytics?days=abc", http.StatusBadRequest, 0},
		{"zero days", "/api/v1/members/m-x/analytics?days=0", http.StatusBadRequest, 0},
		{"window too long", "/api/v1/members/m-x/analytics?days=1000", http.StatusBadRequest, 0},
		{"bad timezone", "/api/v1/members/m-x/analytics?tz=Nowhere/Land", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(r, tt.path)
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			body := decode(t, w)
			if tt.wantStatus != http.StatusOK {
				assert.EqualValues(t, tt.wantStatus, body["http_status"])
				assert.NotEmpty(t, body["message"])
				assert.NotContains(t, body, "Cause")
				return
			}

			trends, ok := body["daily_trends"].([]any)
			require.True(t, ok, "daily_trends is always an array")
			assert.Len(t, trends, tt.wantDays)
			for _, field := range []string{"total_activities", "by_source", "by_type", "recent_activities", "weekly_trends", "diagnostics", "contribution"} {
				assert.Contains(t, body, field)
			}
		})
	}
}

func TestErrorResponsesOverRealConnection(t *testing.T) {
	r, _ := testRouter(t, eventSource{}, nil)
	srv := httptest.NewServer(r)
	defer srv.Close()

	tests := []struct {
		path       string
		wantStatus int
		category   string
	}{
		{"/api/v1/members/ghost/analytics", http.StatusNotFound, "not_found"},
		{"/api/v1/projects/nowhere/analytics", http.StatusNotFound, "not_found"},
		{"/api/v1/members/m-x/analytics?days=abc", http.StatusBadRequest, "validation"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			var body map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.category, body["category"])
		})
	}
}

func TestMemberAnalyticsEndpoint_Payload(t *testing.T) {
	r, _ := testRouter(t, eventSource{}, nil)

	w := get(r, "/api/v1/members/m-x/analytics?days=7")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "Xavier", body["display_name"])
	assert.Equal(t, float64(3), body["total_activities"])
	assert.Equal(t, float64(2), body["by_source"].(map[string]any)["code"])

	contribution := body["contribution"].(map[string]any)
	assert.Equal(t, 3.0, contribution["score"])

	diagnostics := body["diagnostics"].(map[string]any)
	assert.Equal(t, float64(1), diagnostics["dropped"].(map[string]any)["malformed"])
}

func TestCollaborationEndpoint(t *testing.T) {
	r, _ := testRouter(t, eventSource{}, nil)

	w := get(r, "/api/v1/members/m-x/collaboration?days=7")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, float64(1), body["totalCollaborators"])
	assert.Equal(t, float64(7), body["timeRangeDays"])
	top := body["topCollaborators"].([]any)
	require.Len(t, top, 1)
	first := top[0].(map[string]any)
	assert.Equal(t, "Yan", first["collaboratorName"])
	assert.Equal(t, 5.0, first["totalScore"])

	for _, bad := range []string{"abc", "-1", "NaN", "nan", "Inf", "-Inf", "+Inf", "1e400"} {
		w = get(r, "/api/v1/members/m-x/collaboration?min_score="+bad)
		assert.Equal(t, http.StatusBadRequest, w.Code, "min_score=%s", bad)
	}

	w = get(r, "/api/v1/members/m-x/collaboration?min_score=6")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["topCollaborators"])
}

func TestProjectAnalyticsEndpoint(t *testing.T) {
	r, _ := testRouter(t, eventSource{}, nil)

	w := get(r, "/api/v1/projects/api/analytics?days=7")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(2), body["total_activities"])
	assert.Len(t, body["daily_trends"], 7)
	assert.Len(t, body["contributors"], 2)

	w = get(r, "/api/v1/projects/missing/analytics")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDashboardEndpoint(t *testing.T) {
	r, _ := testRouter(t, eventSource{}, nil)

	w := get(r, "/api/v1/dashboard?days=7&limit=1")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, float64(4), body["total_activities"])
	leaderboard := body["leaderboard"].(map[string]any)
	assert.Equal(t, float64(3), leaderboard["total"])
	assert.Len(t, leaderboard["entries"], 1)
}

func TestActivitiesEndpoint(t *testing.T) {
	r, _ := testRouter(t, eventSource{}, nil)

	w := get(r, "/api/v1/activities?days=7&member_name=suah")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(1), body["total"])
	acts := body["activities"].([]any)
	require.Len(t, acts, 1)
	assert.Equal(t, "meeting", acts[0].(map[string]any)["source"])

	w = get(r, "/api/v1/activities?source=fax")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = get(r, "/api/v1/activities?limit=-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvalidateDirectoryEndpoint(t *testing.T) {
	r, members := testRouter(t, eventSource{}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/directory/invalidate", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, members.invalidations)
}

func TestEventStoreUnavailable(t *testing.T) {
	r, _ := testRouter(t, eventSource{err: stderrors.New("connection refused")}, nil)

	w := get(r, "/api/v1/members/m-x/analytics?days=7")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "unavailable"), w.Body.String())
}

func TestRateLimiting(t *testing.T) {
	limiter := ratelimit.NewRateLimiter(ratelimit.Config{LimitPerMin: 1, BurstMultiplier: 1}, nil)
	defer limiter.Close()
	r, _ := testRouter(t, eventSource{}, limiter)

	w := get(r, "/api/v1/dashboard?days=7")
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(r, "/api/v1/dashboard?days=7")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	w = get(r, "/health")
	assert.Equal(t, http.StatusOK, w.Code, "health is never limited")
}
