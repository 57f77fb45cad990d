package daemon

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/osctools/dcocal/pkg/config"
	"github.com/osctools/dcocal/pkg/dco"
	"github.com/osctools/dcocal/pkg/events"
	"github.com/osctools/dcocal/pkg/hw/sim"
	"github.com/osctools/dcocal/pkg/types"
)

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRoutes(t *testing.T) {
	dev := sim.New(sim.Options{})
	conf = testConf(t, nil)
	hub = events.NewHub()
	ctrl = NewController(dev, dev, dev, conf, hub)
	router := setupRoutes()

	w := get(t, router, "/state")
	if w.Code != http.StatusOK {
		t.Fatalf("/state returned %d", w.Code)
	}
	var info types.StateInfo
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
		t.Fatalf("bad /state payload: %v", err)
	}
	if info.State != string(StateBoot) {
		t.Errorf("state %q before Run, want BOOT", info.State)
	}

	w = get(t, router, "/targets")
	if w.Code != http.StatusOK {
		t.Fatalf("/targets returned %d", w.Code)
	}
	var targets []dco.Target
	if err := json.Unmarshal(w.Body.Bytes(), &targets); err != nil {
		t.Fatalf("bad /targets payload: %v", err)
	}
	if len(targets) != dco.NumTargets {
		t.Errorf("got %d targets, want %d", len(targets), dco.NumTargets)
	}

	if w = get(t, router, "/history"); w.Code != http.StatusNotFound {
		t.Errorf("/history returned %d with diagnostics off, want 404", w.Code)
	}
	conf.SetDiagnostics(true)
	if w = get(t, router, "/history"); w.Code != http.StatusOK {
		t.Errorf("/history returned %d with diagnostics on", w.Code)
	}

	w = get(t, router, "/config")
	if w.Code != http.StatusOK {
		t.Fatalf("/config returned %d", w.Code)
	}
	var raw config.RawFileConfig
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("bad /config payload: %v", err)
	}
	if raw.Diagnostics == nil || !*raw.Diagnostics {
		t.Error("config payload does not reflect the diagnostics override")
	}

	if w = get(t, router, "/version"); w.Code != http.StatusOK {
		t.Errorf("/version returned %d", w.Code)
	}
}
