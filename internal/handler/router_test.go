package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zhouzirui/z-interview/backend/internal/metrics"
	"github.com/zhouzirui/z-interview/backend/internal/model/persona"
	interviewService "github.com/zhouzirui/z-interview/backend/internal/service/interview"
	"github.com/zhouzirui/z-interview/backend/internal/service/status"
)

func TestAPIRouter(t *testing.T) {
	r := NewRouter(API{
		Personas: persona.NewMemoryStore(persona.Seed()),
		Registry: interviewService.NewRegistry(),
	})

	tests := []struct {
		path string
		want int
	}{
		{"/api/interviewers", http.StatusOK},
		{"/api/sessions", http.StatusOK},
		{"/api/sessions/unknown", http.StatusNotFound},
		{"/api/interview/ws/room", http.StatusNotFound},
	}
	for _, tt := range tests {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if resp.Code != tt.want {
			t.Errorf("GET %s = %d, want %d", tt.path, resp.Code, tt.want)
		}
	}
}

func TestStatusRouter(t *testing.T) {
	recorder := metrics.New()
	recorder.SessionStarted()
	r := NewStatusRouter(status.NewTracker(), recorder)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("ping = %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/status", nil))
	if !strings.Contains(resp.Body.String(), `"running":false`) {
		t.Fatalf("unexpected status body %s", resp.Body.String())
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(resp.Body.String(), "interview_sessions_started_total 1") {
		t.Fatalf("metrics missing started counter:\n%s", resp.Body.String())
	}
}
