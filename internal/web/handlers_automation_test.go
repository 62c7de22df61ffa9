//go:build !no_automation

package web

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"zcl-node/internal/automation"
)

func setupAutomationServer(t *testing.T) (*testEnv, *automation.Engine) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mgr, err := automation.NewManager(t.TempDir(), logger)
	if err != nil {
		t.Fatal(err)
	}
	var engine *automation.Engine
	env := setupTestServer(t, "", func(s *Server) {
		engine = automation.NewEngine(s.node, mgr, logger, automation.Config{CallTimeout: time.Second})
		WithAutomation(engine, mgr)(s)
	})
	engine.Start()
	t.Cleanup(engine.Stop)
	return env, engine
}

func TestAutomationCRUD(t *testing.T) {
	env, _ := setupAutomationServer(t)

	w := env.do(t, "GET", "/api/automations", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list: status = %d", w.Code)
	}
	if got := decode[[]automation.Script](t, w); len(got) != 0 {
		t.Errorf("expected no scripts, got %d", len(got))
	}

	w = env.do(t, "POST", "/api/automations", `{"name": "Night Light", "lua_code": "zcl.log('loaded')"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body = %s", w.Code, w.Body.String())
	}
	created := decode[automation.Script](t, w)
	if created.ID == "" || created.Meta.Name != "Night Light" {
		t.Fatalf("created = %+v", created)
	}

	w = env.do(t, "GET", "/api/automations/"+created.ID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get: status = %d", w.Code)
	}

	w = env.do(t, "PUT", "/api/automations/"+created.ID, `{"name": "Night Light", "description": "dim at night", "lua_code": "-- nothing"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update: status = %d", w.Code)
	}
	if got := decode[automation.Script](t, w); got.Meta.Description != "dim at night" {
		t.Errorf("description = %q", got.Meta.Description)
	}

	w = env.do(t, "DELETE", "/api/automations/"+created.ID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete: status = %d", w.Code)
	}
	w = env.do(t, "GET", "/api/automations/"+created.ID, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete: status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestAutomationCreateRequiresName(t *testing.T) {
	env, _ := setupAutomationServer(t)
	w := env.do(t, "POST", "/api/automations", `{"lua_code": ""}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestAutomationToggleAndRunning(t *testing.T) {
	env, engine := setupAutomationServer(t)

	w := env.do(t, "POST", "/api/automations", `{"name": "Level Guard", "enabled": true, "lua_code": "zcl.on_check(8, 0, function(c) return c.new <= 200 end)"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body = %s", w.Code, w.Body.String())
	}
	id := decode[automation.Script](t, w).ID

	w = env.do(t, "GET", "/api/automations/running", "")
	if got := decode[[]string](t, w); len(got) != 1 || got[0] != id {
		t.Errorf("running = %v, want [%s]", got, id)
	}

	w = env.do(t, "PUT", "/api/endpoints/1/clusters/8/attributes/0", `{"value": 250}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("vetoed write: status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if got := decode[map[string]string](t, w)["status"]; got != "INVALID_VALUE" {
		t.Errorf("zcl status = %q", got)
	}

	w = env.do(t, "POST", "/api/automations/"+id+"/toggle", "")
	if w.Code != http.StatusOK {
		t.Fatalf("toggle: status = %d", w.Code)
	}
	if got := decode[automation.Script](t, w); got.Meta.Enabled {
		t.Error("script still enabled after toggle")
	}
	if got := engine.Running(); len(got) != 0 {
		t.Errorf("running after toggle = %v", got)
	}

	w = env.do(t, "PUT", "/api/endpoints/1/clusters/8/attributes/0", `{"value": 250}`)
	if w.Code != http.StatusOK {
		t.Errorf("write after disable: status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestAutomationRunInline(t *testing.T) {
	env, _ := setupAutomationServer(t)

	w := env.do(t, "POST", "/api/automations/_inline/run", `{"lua_code": "zcl.write(1, 8, 0, 17) zcl.log(tostring(zcl.read(1, 8, 0)))"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var res automation.RunResult
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if !res.OK {
		t.Fatalf("run failed: %s", res.Error)
	}
	if len(res.Logs) != 1 || res.Logs[0] != "17" {
		t.Errorf("logs = %v", res.Logs)
	}

	v, err := env.n.ReadAttribute(1, 8, 0)
	if err != nil {
		t.Fatal(err)
	}
	if v.Uint() != 17 {
		t.Errorf("CurrentLevel = %d, want 17", v.Uint())
	}

	w = env.do(t, "POST", "/api/automations/_inline/run", `{"lua_code": "error('boom')"}`)
	var bad automation.RunResult
	if err := json.NewDecoder(w.Body).Decode(&bad); err != nil {
		t.Fatal(err)
	}
	if bad.OK || bad.Error == "" {
		t.Errorf("expected failure, got %+v", bad)
	}
}
