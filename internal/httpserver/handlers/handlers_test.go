package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/antenna/internal/httpserver/deps"
	"github.com/MrSnakeDoc/antenna/internal/logger"
	"github.com/MrSnakeDoc/antenna/internal/service"
	"github.com/MrSnakeDoc/antenna/internal/streaming"
)

type stubFeeder struct{}

func (stubFeeder) StartFeed(s *service.Service, instance int) service.Code { return service.CodeOK }
func (stubFeeder) StopFeed(s *service.Service)                             {}
func (stubFeeder) Enlist(s *service.Service, list *service.InstanceList)   {}
func (stubFeeder) SourceInfo(s *service.Service) streaming.SourceInfo {
	return streaming.SourceInfo{Adapter: "adapter0", Mux: "mux", Service: "svc"}
}

func testDeps(t *testing.T) deps.Deps {
	t.Helper()
	log := logger.New("error", false)
	core := service.NewCore(log)
	s := core.NewService(service.Params{ID: "svc-1", ServiceID: 1, Enabled: true, Feeder: stubFeeder{}})
	s.MakeNicename()

	return deps.Deps{
		Logger:    log,
		StartTime: time.Now().Add(-time.Minute),
		Version:   "test",
		TimeNow:   time.Now,
		Core:      core,
	}
}

func TestHealthz(t *testing.T) {
	d := testDeps(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	Healthz(d)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %v, want %v", rec.Code, http.StatusOK)
	}
	var resp struct {
		Status        string  `json:"status"`
		UptimeSeconds float64 `json:"uptime_seconds"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
	if resp.UptimeSeconds <= 0 {
		t.Errorf("uptime = %v, want > 0", resp.UptimeSeconds)
	}
}

func TestReadyzWithoutStore(t *testing.T) {
	d := testDeps(t)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	Readyz(d)(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %v, want %v", rec.Code, http.StatusOK)
	}
}

func TestServicesList(t *testing.T) {
	d := testDeps(t)

	req := httptest.NewRequest(http.MethodGet, "/api/services", nil)
	rec := httptest.NewRecorder()
	Services(d)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %v, want %v", rec.Code, http.StatusOK)
	}
	var infos []service.Info
	if err := json.NewDecoder(rec.Body).Decode(&infos); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("got %v services, want 1", len(infos))
	}
	if infos[0].ID != "svc-1" || infos[0].State != "idle" {
		t.Errorf("service info = %+v", infos[0])
	}
}

func newRouter(d deps.Deps) chi.Router {
	r := chi.NewRouter()
	r.Get("/api/services/{id}", ServiceByID(d))
	r.Patch("/api/services/{id}/enabled", SetEnabled(d))
	return r
}

func TestServiceByID(t *testing.T) {
	d := testDeps(t)
	r := newRouter(d)

	req := httptest.NewRequest(http.MethodGet, "/api/services/svc-1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %v, want %v", rec.Code, http.StatusOK)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/services/missing", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status for unknown id = %v, want %v", rec.Code, http.StatusNotFound)
	}
}

func TestSetEnabled(t *testing.T) {
	d := testDeps(t)
	r := newRouter(d)

	req := httptest.NewRequest(http.MethodPatch, "/api/services/svc-1/enabled",
		strings.NewReader(`{"enabled": false}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %v, want %v", rec.Code, http.StatusOK)
	}
	if d.Core.Find("svc-1").IsEnabled() {
		t.Error("service still enabled after disable request")
	}
}

func TestSetEnabledBadBody(t *testing.T) {
	d := testDeps(t)
	r := newRouter(d)

	req := httptest.NewRequest(http.MethodPatch, "/api/services/svc-1/enabled",
		strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %v, want %v", rec.Code, http.StatusBadRequest)
	}
}
