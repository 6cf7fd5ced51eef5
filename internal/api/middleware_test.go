package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestRequestID(t *testing.T) {
	s := testServer(t)

	tests := []struct {
		name     string
		header   string
		wantEcho bool
	}{
		{"client id reused", "desk-42", true},
		{"missing id generated", "", false},
		{"overlong id replaced", strings.Repeat("x", maxRequestIDLen+1), false},
		{"unprintable id replaced", "bad id", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
			if tt.header != "" {
				req.Header.Set("X-Request-ID", tt.header)
			}
			rec := httptest.NewRecorder()
			s.buildRouter().ServeHTTP(rec, req)

			got := rec.Header().Get("X-Request-ID")
			if tt.wantEcho {
				if got != tt.header {
					t.Errorf("X-Request-ID = %q, want %q", got, tt.header)
				}
				return
			}
			if _, err := uuid.Parse(got); err != nil {
				t.Errorf("X-Request-ID = %q, want a generated UUID", got)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	s := testServer(t)
	s.cfg.CORS.AllowedOrigins = []string{"http://desk.local"}

	send := func(method, origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/api/v1/points", nil)
		req.Header.Set("Origin", origin)
		rec := httptest.NewRecorder()
		s.buildRouter().ServeHTTP(rec, req)
		return rec
	}

	rec := send(http.MethodOptions, "http://desk.local")
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://desk.local" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != defaultCORSMethods {
		t.Errorf("Allow-Methods = %q, want defaults", got)
	}

	rec = send(http.MethodGet, "http://elsewhere")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("disallowed origin got Allow-Origin %q", got)
	}
	if rec.Header().Get("Vary") != "Origin" {
		t.Error("Vary: Origin missing")
	}
}

func TestLimitBody(t *testing.T) {
	s := testServer(t)

	body := `{"name":"` + strings.Repeat("a", maxRequestBodySize) + `","type":"output","channels":2}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/points", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.buildRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("oversized body status = %d, want 400", rec.Code)
	}
	if got := len(s.matrix.Points()); got != 0 {
		t.Errorf("points = %d, want none created", got)
	}
}

func TestRecoverPanics(t *testing.T) {
	s := testServer(t)
	h := s.withRequestID(s.recoverPanics(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("fader exploded")
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if e := decode[Error](t, rec); e.Code != ErrCodeInternal {
		t.Errorf("error code = %q, want %q", e.Code, ErrCodeInternal)
	}
}

func TestAccessLog_RecordsRoutePattern(t *testing.T) {
	s := testServer(t)
	do(t, s, http.MethodGet, "/api/v1/points/does-not-exist", nil)

	rec := do(t, s, http.MethodGet, "/metrics", nil)
	body := rec.Body.String()
	found := false
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "mixroute_api_requests_total{") &&
			strings.Contains(line, `code="404"`) &&
			strings.Contains(line, `route="/api/v1/points/{id}`) {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("request counter for the point route missing from:\n%s", grepLines(body, "mixroute_api_requests_total"))
	}
	if !strings.Contains(body, "mixroute_api_request_duration_seconds_bucket") {
		t.Error("latency histogram missing")
	}
}

func grepLines(s, substr string) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.Contains(line, substr) {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
