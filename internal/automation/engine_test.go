//go:build !no_automation

package automation

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"zcl-node/internal/ncp"
	"zcl-node/internal/node"
	"zcl-node/internal/zcl"
	"zcl-node/internal/zcl/clusters"

	lua "github.com/yuin/gopher-lua"
)

var testEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type fixture struct {
	n      *node.Node
	link   *ncp.Loopback
	clock  *node.ManualClock
	mgr    *Manager
	engine *Engine
}

func newFixture(t *testing.T, scripts ...string) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
	reg := zcl.NewRegistry(logger)
	if err := clusters.RegisterAll(reg); err != nil {
		t.Fatal(err)
	}
	f := &fixture{link: ncp.NewLoopback(8), clock: node.NewManualClock(testEpoch)}
	f.n = node.New(reg, f.link, node.WithLogger(logger), node.WithClock(f.clock))
	eps := []node.EndpointConfig{
		{ID: 1, ProfileID: ncp.ProfileHA, DeviceID: 0x0101, Servers: []uint16{clusters.Basic.ID, clusters.OnOff.ID, clusters.LevelControl.ID}},
		{ID: 2, ProfileID: ncp.ProfileHA, DeviceID: 0x0103, Clients: []uint16{clusters.OnOff.ID}},
	}
	for _, ep := range eps {
		if err := f.n.RegisterEndpoint(ep); err != nil {
			t.Fatal(err)
		}
	}

	var err error
	f.mgr, err = NewManager(t.TempDir(), logger)
	if err != nil {
		t.Fatal(err)
	}
	for i, code := range scripts {
		s := &Script{ID: string(rune('a' + i)), Meta: ScriptMeta{Name: "test", Enabled: true}, LuaCode: code}
		if _, err := f.mgr.Save(s); err != nil {
			t.Fatal(err)
		}
	}
	f.engine = NewEngine(f.n, f.mgr, logger, Config{CallTimeout: 200 * time.Millisecond})
	f.engine.Start()
	t.Cleanup(func() {
		f.engine.Stop()
		f.n.Close()
	})
	return f
}

func (f *fixture) level(t *testing.T) uint64 {
	t.Helper()
	v, err := f.n.ReadAttribute(1, clusters.LevelControl.ID, clusters.LevelCurrentLevel)
	if err != nil {
		t.Fatal(err)
	}
	return v.Uint()
}

func (f *fixture) waitLevel(t *testing.T, want uint64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if f.level(t) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("level = %d, want %d", f.level(t), want)
}

func TestEngineStartsEnabledScripts(t *testing.T) {
	f := newFixture(t, `zcl.log("loaded")`)
	if _, err := f.mgr.Save(&Script{ID: "off", Meta: ScriptMeta{Name: "off"}, LuaCode: `error("never")`}); err != nil {
		t.Fatal(err)
	}
	if err := f.engine.ReloadScript("off"); err != nil {
		t.Fatalf("reload disabled script: %v", err)
	}
	got := f.engine.Running()
	if len(got) != 1 || got[0] != "a" {
		t.Errorf("running = %v, want [a]", got)
	}

	f.engine.StopScript("a")
	if got := f.engine.Running(); len(got) != 0 {
		t.Errorf("running after stop = %v", got)
	}
}

func TestEngineCheckHookVetoesWrite(t *testing.T) {
	f := newFixture(t, `
zcl.on_check(8, 0, function(c)
  if c.new < 10 then return false end
  if c.new == 200 then return zcl.READ_ONLY end
  if c.new == 201 then return "too bright" end
end)`)

	err := f.n.WriteAttribute(1, clusters.LevelControl.ID, clusters.LevelCurrentLevel, zcl.U8(5))
	if zcl.StatusOf(err) != zcl.StatusInvalidValue {
		t.Errorf("write 5 status = %v, want INVALID_VALUE", zcl.StatusOf(err))
	}
	err = f.n.WriteAttribute(1, clusters.LevelControl.ID, clusters.LevelCurrentLevel, zcl.U8(200))
	if zcl.StatusOf(err) != zcl.StatusReadOnly {
		t.Errorf("write 200 status = %v, want READ_ONLY", zcl.StatusOf(err))
	}
	err = f.n.WriteAttribute(1, clusters.LevelControl.ID, clusters.LevelCurrentLevel, zcl.U8(201))
	if err == nil || !strings.Contains(err.Error(), "too bright") {
		t.Errorf("write 201 err = %v", err)
	}
	if err := f.n.WriteAttribute(1, clusters.LevelControl.ID, clusters.LevelCurrentLevel, zcl.U8(20)); err != nil {
		t.Fatalf("write 20: %v", err)
	}
	if got := f.level(t); got != 20 {
		t.Errorf("level = %d, want 20", got)
	}

	f.engine.Stop()
	if err := f.n.WriteAttribute(1, clusters.LevelControl.ID, clusters.LevelCurrentLevel, zcl.U8(5)); err != nil {
		t.Errorf("write after stop: %v", err)
	}
}

func TestEngineWriteHookRunsInSameTransaction(t *testing.T) {
	f := newFixture(t, `
zcl.on_write(6, 0, function(c)
  local ok, err = zcl.write(c.endpoint, 8, 0, c.new and 254 or 1)
  if not ok then error(err) end
end)
zcl.on_write(6, 0x4003, function(c)
  error("start-up behaviour is fixed")
end)`)

	if err := f.n.WriteAttribute(1, clusters.OnOff.ID, clusters.OnOffAttr, zcl.Bool(true)); err != nil {
		t.Fatal(err)
	}
	if got := f.level(t); got != 254 {
		t.Errorf("level after on = %d, want 254", got)
	}
	if err := f.n.WriteAttribute(1, clusters.OnOff.ID, clusters.OnOffAttr, zcl.Bool(false)); err != nil {
		t.Fatal(err)
	}
	if got := f.level(t); got != 1 {
		t.Errorf("level after off = %d, want 1", got)
	}

	err := f.n.WriteAttribute(1, clusters.OnOff.ID, clusters.OnOffStartUpOnOff, zcl.E8(1))
	if zcl.StatusOf(err) != zcl.StatusFailure {
		t.Errorf("status = %v, want FAILURE", zcl.StatusOf(err))
	}
	v, _ := f.n.ReadAttribute(1, clusters.OnOff.ID, clusters.OnOffStartUpOnOff)
	if !v.IsInvalid() {
		t.Errorf("StartUpOnOff = %s, want rolled back", v)
	}
}

func TestEngineEventHandler(t *testing.T) {
	f := newFixture(t, `
zcl.on("attribute_changed", {cluster=6, attribute=0}, function(ev)
  if ev.value then zcl.write(1, 8, 0, 42) end
end)`)

	if err := f.n.WriteAttribute(1, clusters.OnOff.ID, clusters.OnOffAttr, zcl.Bool(true)); err != nil {
		t.Fatal(err)
	}
	f.waitLevel(t, 42)
}

func TestEngineAfterUsesNodeClock(t *testing.T) {
	f := newFixture(t, `
local started = zcl.now()
zcl.after(5, function()
  zcl.write(1, 8, 0, zcl.now() - started)
end)`)

	f.clock.Advance(4 * time.Second)
	if got := f.level(t); got == 5 {
		t.Fatal("timer fired early")
	}
	f.clock.Advance(time.Second)
	if got := f.level(t); got != 5 {
		t.Errorf("level = %d, want 5", got)
	}
}

func TestEngineSend(t *testing.T) {
	f := newFixture(t, `
local seq, err = zcl.send(2, {addr=0x1234, endpoint=3}, 6, 1, {})
if not seq then error(err) end
local _, err2 = zcl.send(2, "coordinator", 6, 0x40, {Bogus=1})
if not err2 then error("expected an error") end
`)

	sent := f.link.Drain()
	if len(sent) != 1 {
		t.Fatalf("sent %d frames, want 1", len(sent))
	}
	req := sent[0]
	if req.DstAddr != 0x1234 || req.DstEP != 3 || req.SrcEP != 2 || req.Cluster != clusters.OnOff.ID {
		t.Errorf("request = %+v", req)
	}
	if len(req.Payload) != 3 || req.Payload[0] != 0x01 || req.Payload[2] != clusters.OnOffCmdOn {
		t.Errorf("payload = % X, want 01 <seq> 01", req.Payload)
	}
}

func TestEngineLoadErrors(t *testing.T) {
	f := newFixture(t)
	cases := map[string]string{
		"syntax":  `zcl.log(`,
		"runtime": `error("boom")`,
		"late hook": `zcl.after(1, function() zcl.on_check(6, nil, function() end) end)
error("x")`,
	}
	for name, code := range cases {
		if _, err := f.mgr.Save(&Script{ID: "bad", Meta: ScriptMeta{Enabled: true}, LuaCode: code}); err != nil {
			t.Fatal(err)
		}
		if err := f.engine.ReloadScript("bad"); err == nil {
			t.Errorf("%s: reload succeeded", name)
		}
	}
	if got := f.engine.Running(); len(got) != 0 {
		t.Errorf("running = %v", got)
	}
}

func TestRunLuaCode(t *testing.T) {
	f := newFixture(t)

	res := f.engine.RunLuaCode(`
zcl.log("a")
system.log("warn", "b")
zcl.on("x", {v=1}, function(ev) zcl.log("ev " .. ev.type .. ev.v) end)
zcl.on_check(6, nil, function() return false end)
`)
	if !res.OK {
		t.Fatalf("run failed: %s", res.Error)
	}
	want := []string{"a", "[warn] b", "ev x1"}
	if strings.Join(res.Logs, "|") != strings.Join(want, "|") {
		t.Errorf("logs = %q, want %q", res.Logs, want)
	}
	if err := f.n.WriteAttribute(1, clusters.OnOff.ID, clusters.OnOffAttr, zcl.Bool(true)); err != nil {
		t.Errorf("one-shot hook was installed: %v", err)
	}

	res = f.engine.RunLuaCode(`error("boom")`)
	if res.OK || !strings.Contains(res.Error, "boom") {
		t.Errorf("error run = %+v", res)
	}

	res = f.engine.RunLuaCode(`while true do end`)
	if res.OK || !strings.Contains(res.Error, "timeout") {
		t.Errorf("busy loop = %+v", res)
	}

	res = f.engine.RunLuaCode(`os.exit(1)`)
	if res.OK {
		t.Error("sandbox let os through")
	}
}

func TestGoToLua(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	tests := []struct {
		name string
		val  any
		want lua.LValueType
	}{
		{"nil", nil, lua.LTNil},
		{"bool", true, lua.LTBool},
		{"string", "hello", lua.LTString},
		{"int", 42, lua.LTNumber},
		{"uint64", uint64(0xFFFF), lua.LTNumber},
		{"float64", 3.14, lua.LTNumber},
		{"map", map[string]any{"a": 1}, lua.LTTable},
		{"slice", []any{1, 2, 3}, lua.LTTable},
		{"unknown", struct{}{}, lua.LTString},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := goToLua(L, tt.val).Type(); got != tt.want {
				t.Errorf("goToLua(%v) type = %v, want %v", tt.val, got, tt.want)
			}
		})
	}
}

func TestLuaToGo(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	if err := L.DoString(`x = {1, 2, "three"}; y = {Level=10, Name="n", On=true}`); err != nil {
		t.Fatal(err)
	}
	list, ok := luaToGo(L.GetGlobal("x")).([]any)
	if !ok || len(list) != 3 || list[0] != float64(1) || list[2] != "three" {
		t.Errorf("list = %#v", list)
	}
	m, ok := luaToGo(L.GetGlobal("y")).(map[string]any)
	if !ok || m["Level"] != float64(10) || m["Name"] != "n" || m["On"] != true {
		t.Errorf("map = %#v", m)
	}
	if luaToGo(lua.LNil) != nil {
		t.Error("nil did not map to nil")
	}
}

func TestMatchesHandler(t *testing.T) {
	data := eventData(node.AttributeEvent{Endpoint: 1, Cluster: 6, Attribute: 0, Name: "OnOff", Value: zcl.Bool(true), Origin: node.OriginRemote})

	tests := []struct {
		name   string
		filter map[string]any
		want   bool
	}{
		{"no filter", nil, true},
		{"cluster", map[string]any{"cluster": float64(6)}, true},
		{"wrong cluster", map[string]any{"cluster": float64(8)}, false},
		{"origin", map[string]any{"origin": "remote", "endpoint": float64(1)}, true},
		{"missing key", map[string]any{"group": float64(1)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := luaEventHandler{eventType: node.EventAttributeChanged, filter: tt.filter}
			if got := matchesHandler(h, data); got != tt.want {
				t.Errorf("matchesHandler = %v, want %v", got, tt.want)
			}
		})
	}
	if data["value"] != true || data["name"] != "OnOff" {
		t.Errorf("event data = %v", data)
	}
}
