//go:build !no_automation

// Package automation runs Lua scripts against a node. Scripts register
// attribute check and write hooks, react to node events and schedule work on
// the node clock. Every Lua call runs with the node locked, so a script sees
// and changes attributes in the same transaction as the write that woke it.
package automation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"zcl-node/internal/node"

	lua "github.com/yuin/gopher-lua"
)

// Config tunes the engine.
type Config struct {
	// CallTimeout bounds one Lua call, including the top-level load.
	CallTimeout time.Duration
	// QueueSize is the per-script backlog of pending event callbacks.
	QueueSize int
}

func (c *Config) withDefaults() {
	if c.CallTimeout <= 0 {
		c.CallTimeout = time.Second
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
}

// RunResult is the result of a one-shot script execution.
type RunResult struct {
	OK       bool     `json:"ok"`
	Error    string   `json:"error,omitempty"`
	Logs     []string `json:"logs"`
	Duration string   `json:"duration"`
}

type hookKind uint8

const (
	hookCheck hookKind = iota
	hookWrite
)

func (k hookKind) String() string {
	if k == hookCheck {
		return "check"
	}
	return "write"
}

type hookKey struct {
	kind    hookKind
	cluster uint16
}

// luaHook is a Lua attribute hook. attr < 0 matches every attribute.
type luaHook struct {
	kind    hookKind
	cluster uint16
	attr    int
	fn      *lua.LFunction
}

// luaEventHandler is a registered Lua callback for a node event type.
type luaEventHandler struct {
	eventType string
	filter    map[string]any
	fn        *lua.LFunction
}

// scriptVM is the Lua state of one script.
type scriptVM struct {
	id       string
	state    *lua.LState
	commands chan func(tx *node.Tx)
	ctx      context.Context
	cancel   context.CancelFunc

	mu       sync.Mutex // protects handlers
	handlers []luaEventHandler

	// Guarded by the node lock.
	tx      *node.Tx
	loading bool
	closed  bool
	hooks   []luaHook
	timers  []func() bool
	logs    *[]string
}

func (vm *scriptVM) shutdown() {
	if vm.closed {
		return
	}
	vm.closed = true
	for _, stop := range vm.timers {
		stop()
	}
	vm.timers = nil
	vm.state.Close()
}

// Engine manages script VMs on a node.
type Engine struct {
	n       *node.Node
	manager *Manager
	logger  *slog.Logger
	cfg     Config

	mu     sync.Mutex
	vms    map[string]*scriptVM
	hooked map[hookKey]bool
	unsub  func()
}

// NewEngine creates an automation engine for n.
func NewEngine(n *node.Node, mgr *Manager, logger *slog.Logger, cfg Config) *Engine {
	cfg.withDefaults()
	return &Engine{
		n:       n,
		manager: mgr,
		logger:  logger.With("component", "automation"),
		cfg:     cfg,
		vms:     make(map[string]*scriptVM),
		hooked:  make(map[hookKey]bool),
	}
}

// Start subscribes to node events and loads all enabled scripts.
func (e *Engine) Start() {
	e.unsub = e.n.Events().OnAll(e.dispatchEvent)

	scripts, err := e.manager.List()
	if err != nil {
		e.logger.Error("load scripts", "err", err)
		return
	}
	started := 0
	for _, s := range scripts {
		if !s.Meta.Enabled {
			continue
		}
		if err := e.startScript(s); err != nil {
			e.logger.Error("start script", "id", s.ID, "err", err)
			continue
		}
		started++
	}
	e.logger.Info("automation engine started", "scripts", started)
}

// Stop unloads every script and unsubscribes from node events. Hooks stay
// installed on the node but find no scripts to run.
func (e *Engine) Stop() {
	e.mu.Lock()
	vms := e.vms
	e.vms = make(map[string]*scriptVM)
	e.mu.Unlock()

	if e.unsub != nil {
		e.unsub()
		e.unsub = nil
	}
	for _, vm := range vms {
		e.closeVM(vm)
	}
	e.logger.Info("automation engine stopped")
}

// Running returns the IDs of loaded scripts, sorted.
func (e *Engine) Running() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.vms))
	for id := range e.vms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ReloadScript stops the running copy of a script, if any, and starts it
// again from disk when it is enabled.
func (e *Engine) ReloadScript(id string) error {
	e.stopScript(id)

	s, err := e.manager.Get(id)
	if err != nil {
		return fmt.Errorf("get script: %w", err)
	}
	if !s.Meta.Enabled {
		return nil
	}
	return e.startScript(s)
}

// StopScript unloads a running script.
func (e *Engine) StopScript(id string) {
	e.stopScript(id)
}

// RunScript executes a saved script once in a throwaway VM.
func (e *Engine) RunScript(id string) *RunResult {
	start := time.Now()
	s, err := e.manager.Get(id)
	if err != nil {
		return &RunResult{OK: false, Error: err.Error(), Duration: time.Since(start).String()}
	}
	return e.RunLuaCode(s.LuaCode)
}

// RunLuaCode executes code once in a throwaway VM and captures its log
// output. Event handlers it registers are invoked with a synthetic event;
// attribute hooks are recorded but never installed. Attribute writes the
// code makes are real.
func (e *Engine) RunLuaCode(code string) *RunResult {
	start := time.Now()
	var logs []string

	vm := e.newVM("run")
	vm.logs = &logs
	defer vm.cancel()

	result := func(err error) *RunResult {
		r := &RunResult{OK: err == nil, Logs: logs, Duration: time.Since(start).String()}
		if err != nil {
			r.Error = err.Error()
			if strings.Contains(r.Error, "context deadline exceeded") {
				r.Error = fmt.Sprintf("timeout (%s)", e.cfg.CallTimeout)
			}
			e.logger.Warn("script run failed", "err", r.Error)
		}
		return r
	}

	err := e.n.Do(func(tx *node.Tx) error {
		defer vm.shutdown()
		if err := e.load(vm, tx, code); err != nil {
			return err
		}
		vm.mu.Lock()
		handlers := append([]luaEventHandler(nil), vm.handlers...)
		vm.mu.Unlock()
		for _, h := range handlers {
			data := make(map[string]any, len(h.filter)+1)
			for k, v := range h.filter {
				data[k] = v
			}
			if _, err := e.call(vm, tx, h.fn, 0, eventTable(vm.state, h.eventType, data)); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, node.ErrClosed) {
		vm.shutdown()
	}
	return result(err)
}

func (e *Engine) newVM(id string) *scriptVM {
	ctx, cancel := context.WithCancel(context.Background())
	L := lua.NewState(lua.Options{SkipOpenLibs: false})

	// Sandbox: remove libs that reach outside the process.
	for _, name := range []string{"os", "io", "loadfile", "dofile", "require", "load", "debug", "package"} {
		L.SetGlobal(name, lua.LNil)
	}

	vm := &scriptVM{
		id:       id,
		state:    L,
		commands: make(chan func(*node.Tx), e.cfg.QueueSize),
		ctx:      ctx,
		cancel:   cancel,
	}
	registerZCLModule(L, vm, e)
	registerSystemModule(L, vm, e)
	return vm
}

func (e *Engine) startScript(s *Script) error {
	vm := e.newVM(s.ID)

	err := e.n.Do(func(tx *node.Tx) error {
		if err := e.load(vm, tx, s.LuaCode); err != nil {
			vm.shutdown()
			return err
		}
		return nil
	})
	if err != nil {
		vm.cancel()
		if errors.Is(err, node.ErrClosed) {
			vm.shutdown()
		}
		return fmt.Errorf("execute script %s: %w", s.ID, err)
	}

	e.mu.Lock()
	e.vms[s.ID] = vm
	e.mu.Unlock()
	e.installHooks(vm)

	go func() {
		for {
			select {
			case <-vm.ctx.Done():
				return
			case fn := <-vm.commands:
				err := e.n.Do(func(tx *node.Tx) error {
					if !vm.closed {
						fn(tx)
					}
					return nil
				})
				if err != nil {
					e.logger.Debug("script callback dropped", "id", vm.id, "err", err)
				}
			}
		}
	}()

	e.logger.Info("script started", "id", s.ID, "name", s.Meta.Name, "hooks", len(vm.hooks))
	return nil
}

func (e *Engine) stopScript(id string) {
	e.mu.Lock()
	vm, ok := e.vms[id]
	delete(e.vms, id)
	e.mu.Unlock()

	if ok {
		e.closeVM(vm)
		e.logger.Info("script stopped", "id", id)
	}
}

func (e *Engine) closeVM(vm *scriptVM) {
	vm.cancel()
	err := e.n.Do(func(*node.Tx) error { vm.shutdown(); return nil })
	if errors.Is(err, node.ErrClosed) {
		vm.shutdown()
	}
}

// installHooks registers one node hook per (kind, cluster) the first time a
// script asks for it. The node has no way to remove a hook, so the engine
// keeps its own per-script tables behind them.
func (e *Engine) installHooks(vm *scriptVM) {
	var missing []hookKey
	e.mu.Lock()
	for _, h := range vm.hooks {
		k := hookKey{h.kind, h.cluster}
		if !e.hooked[k] {
			e.hooked[k] = true
			missing = append(missing, k)
		}
	}
	e.mu.Unlock()

	for _, k := range missing {
		h := e.runHooks(k.kind)
		if k.kind == hookCheck {
			e.n.OnCheck(k.cluster, h)
		} else {
			e.n.OnWrite(k.cluster, h)
		}
		e.logger.Debug("hook installed", "kind", k.kind, "cluster", fmt.Sprintf("0x%04X", k.cluster))
	}
}

// snapshot returns the loaded VMs in ID order.
func (e *Engine) snapshot() []*scriptVM {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*scriptVM, 0, len(e.vms))
	for _, vm := range e.vms {
		out = append(out, vm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (e *Engine) runHooks(kind hookKind) node.Hook {
	return func(tx *node.Tx, c node.Change) error {
		for _, vm := range e.snapshot() {
			if vm.closed {
				continue
			}
			for _, h := range vm.hooks {
				if h.kind != kind || h.cluster != c.Cluster || (h.attr >= 0 && uint16(h.attr) != c.Attr.ID) {
					continue
				}
				ret, err := e.call(vm, tx, h.fn, 1, changeTable(vm.state, c))
				if err != nil {
					e.logger.Warn("script hook failed", "id", vm.id, "kind", kind, "attr", c.Attr.Name, "err", err)
					return fmt.Errorf("script %s: %w", vm.id, err)
				}
				if kind == hookCheck {
					if err := verdict(vm.id, c, ret[0]); err != nil {
						return err
					}
				}
			}
		}
		return nil
	}
}

// load runs the top level of a script, which registers its hooks and
// handlers.
func (e *Engine) load(vm *scriptVM, tx *node.Tx, code string) error {
	fn, err := vm.state.LoadString(code)
	if err != nil {
		return err
	}
	vm.loading = true
	defer func() { vm.loading = false }()
	_, err = e.call(vm, tx, fn, 0)
	return err
}

// call invokes fn with tx as the script's current transaction. Only the
// outermost call arms the timeout; hooks fired by a script's own writes run
// nested inside it.
func (e *Engine) call(vm *scriptVM, tx *node.Tx, fn *lua.LFunction, nret int, args ...lua.LValue) ([]lua.LValue, error) {
	L := vm.state
	prev := vm.tx
	vm.tx = tx
	defer func() { vm.tx = prev }()

	if prev == nil {
		ctx, cancel := context.WithTimeout(vm.ctx, e.cfg.CallTimeout)
		defer cancel()
		L.SetContext(ctx)
		defer L.RemoveContext()
	}

	top := L.GetTop()
	if err := L.CallByParam(lua.P{Fn: fn, NRet: nret, Protect: true}, args...); err != nil {
		L.SetTop(top)
		return nil, err
	}
	out := make([]lua.LValue, nret)
	for i := range out {
		out[i] = L.Get(top + 1 + i)
	}
	L.SetTop(top)
	return out, nil
}

// dispatchEvent queues the Lua handlers matching a node event.
func (e *Engine) dispatchEvent(event node.Event) {
	var data map[string]any
	for _, vm := range e.snapshot() {
		vm.mu.Lock()
		handlers := append([]luaEventHandler(nil), vm.handlers...)
		vm.mu.Unlock()

		for _, h := range handlers {
			if h.eventType != event.Type {
				continue
			}
			if data == nil {
				data = eventData(event.Data)
			}
			if !matchesHandler(h, data) {
				continue
			}
			fn, typ := h.fn, event.Type
			select {
			case <-vm.ctx.Done():
			case vm.commands <- func(tx *node.Tx) {
				if _, err := e.call(vm, tx, fn, 0, eventTable(vm.state, typ, data)); err != nil {
					e.logger.Error("lua handler error", "id", vm.id, "event", typ, "err", err)
				}
			}:
			default:
				e.logger.Warn("script command channel full, dropping event", "id", vm.id, "event", event.Type)
			}
		}
	}
}

func matchesHandler(h luaEventHandler, data map[string]any) bool {
	for k, want := range h.filter {
		if data[k] != want {
			return false
		}
	}
	return true
}

// eventData flattens an event payload through its JSON form, so Lua sees the
// same field names as websocket and MQTT clients.
func eventData(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return map[string]any{"value": v}
	}
	return m
}

func eventTable(L *lua.LState, typ string, data map[string]any) *lua.LTable {
	t := L.NewTable()
	for k, v := range data {
		t.RawSetString(k, goToLua(L, v))
	}
	t.RawSetString("type", lua.LString(typ))
	return t
}

func changeTable(L *lua.LState, c node.Change) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("endpoint", lua.LNumber(c.Endpoint))
	t.RawSetString("cluster", lua.LNumber(c.Cluster))
	t.RawSetString("attribute", lua.LNumber(c.Attr.ID))
	t.RawSetString("name", lua.LString(c.Attr.Name))
	t.RawSetString("old", goToLua(L, c.Old.Interface()))
	t.RawSetString("new", goToLua(L, c.New.Interface()))
	t.RawSetString("origin", lua.LString(c.Origin))
	return t
}

// goToLua converts a Go value to a Lua value.
func goToLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case string:
		return lua.LString(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case uint8:
		return lua.LNumber(val)
	case uint16:
		return lua.LNumber(val)
	case uint32:
		return lua.LNumber(val)
	case uint64:
		return lua.LNumber(val)
	case int8:
		return lua.LNumber(val)
	case int16:
		return lua.LNumber(val)
	case int32:
		return lua.LNumber(val)
	case float32:
		return lua.LNumber(val)
	case map[string]any:
		t := L.NewTable()
		for k, vv := range val {
			t.RawSetString(k, goToLua(L, vv))
		}
		return t
	case []any:
		t := L.NewTable()
		for i, vv := range val {
			t.RawSetInt(i+1, goToLua(L, vv))
		}
		return t
	default:
		return lua.LString(fmt.Sprintf("%v", val))
	}
}

// luaToGo converts a Lua value to the plain Go form zcl.FromInterface and
// zcl.ArgsFromMap accept. A table with array items becomes a slice.
func luaToGo(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		return float64(val)
	case lua.LString:
		return string(val)
	case *lua.LTable:
		if n := val.MaxN(); n > 0 {
			out := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				out = append(out, luaToGo(val.RawGetInt(i)))
			}
			return out
		}
		out := make(map[string]any)
		val.ForEach(func(k, vv lua.LValue) {
			if ks, ok := k.(lua.LString); ok {
				out[string(ks)] = luaToGo(vv)
			}
		})
		return out
	}
	return nil
}
