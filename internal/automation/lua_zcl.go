//go:build !no_automation

package automation

import (
	"fmt"
	"slices"
	"time"

	"zcl-node/internal/ncp"
	"zcl-node/internal/node"
	"zcl-node/internal/zcl"

	lua "github.com/yuin/gopher-lua"
)

const (
	maxHandlersPerScript = 100
	maxTimersPerScript   = 256
)

// registerZCLModule registers the `zcl` global table in a Lua state.
func registerZCLModule(L *lua.LState, vm *scriptVM, e *Engine) {
	fns := map[string]lua.LGFunction{
		"on":        func(L *lua.LState) int { return zclOn(L, vm) },
		"on_check":  func(L *lua.LState) int { return zclHook(L, vm, hookCheck) },
		"on_write":  func(L *lua.LState) int { return zclHook(L, vm, hookWrite) },
		"read":      func(L *lua.LState) int { return zclRead(L, vm) },
		"write":     func(L *lua.LState) int { return zclWrite(L, vm) },
		"send":      func(L *lua.LState) int { return zclSend(L, vm, e) },
		"after":     func(L *lua.LState) int { return zclAfter(L, vm, e) },
		"log":       func(L *lua.LState) int { return zclLog(L, vm, e) },
		"endpoints": func(L *lua.LState) int { return zclEndpoints(L, vm) },
		"now":       func(L *lua.LState) int { return zclNow(L, vm) },
	}
	mod := L.NewTable()
	for name, fn := range fns {
		mod.RawSetString(name, L.NewFunction(fn))
	}
	for name, s := range map[string]zcl.Status{
		"SUCCESS":               zcl.StatusSuccess,
		"FAILURE":               zcl.StatusFailure,
		"INVALID_VALUE":         zcl.StatusInvalidValue,
		"READ_ONLY":             zcl.StatusReadOnly,
		"NOT_AUTHORIZED":        zcl.StatusNotAuthorized,
		"UNSUPPORTED_ATTRIBUTE": zcl.StatusUnsupportedAttribute,
		"ACTION_DENIED":         zcl.StatusActionDenied,
		"INSUFFICIENT_SPACE":    zcl.StatusInsufficientSpace,
	} {
		mod.RawSetString(name, lua.LNumber(s))
	}
	L.SetGlobal("zcl", mod)
}

// current returns the transaction the running Lua call belongs to.
func (vm *scriptVM) current(L *lua.LState) *node.Tx {
	if vm.tx == nil {
		L.RaiseError("zcl: no active transaction")
	}
	return vm.tx
}

func checkU8(L *lua.LState, n int) uint8 {
	v := L.CheckInt(n)
	if v < 0 || v > 0xFF {
		L.ArgError(n, "must be 0-255")
	}
	return uint8(v)
}

func checkU16(L *lua.LState, n int) uint16 {
	v := L.CheckInt(n)
	if v < 0 || v > 0xFFFF {
		L.ArgError(n, "must be 0-65535")
	}
	return uint16(v)
}

// pushErr pushes nil (or false), the message and the ZCL status of err.
func pushErr(L *lua.LState, first lua.LValue, err error) int {
	L.Push(first)
	L.Push(lua.LString(err.Error()))
	L.Push(lua.LNumber(zcl.StatusOf(err)))
	return 3
}

// zcl.on(type, filter, callback)
func zclOn(L *lua.LState, vm *scriptVM) int {
	eventType := L.CheckString(1)
	filterTable := L.OptTable(2, L.NewTable())
	fn := L.CheckFunction(3)

	h := luaEventHandler{eventType: eventType, filter: make(map[string]any), fn: fn}
	filterTable.ForEach(func(k, v lua.LValue) {
		key, ok := k.(lua.LString)
		if !ok {
			return
		}
		switch val := v.(type) {
		case lua.LNumber:
			h.filter[string(key)] = float64(val)
		case lua.LString:
			h.filter[string(key)] = string(val)
		case lua.LBool:
			h.filter[string(key)] = bool(val)
		}
	})

	vm.mu.Lock()
	defer vm.mu.Unlock()
	if len(vm.handlers) >= maxHandlersPerScript {
		L.RaiseError("too many handlers (max %d)", maxHandlersPerScript)
		return 0
	}
	vm.handlers = append(vm.handlers, h)
	return 0
}

// zcl.on_check(cluster, attr|nil, fn(change)) and zcl.on_write(...)
//
// A check hook vetoes a write by returning false, a status number or a
// message string. A write hook that raises an error rolls the write back.
func zclHook(L *lua.LState, vm *scriptVM, kind hookKind) int {
	cluster := checkU16(L, 1)
	attr := -1
	if L.Get(2) != lua.LNil {
		attr = int(checkU16(L, 2))
	}
	fn := L.CheckFunction(3)
	if !vm.loading {
		L.RaiseError("zcl.on_%s must be called while the script loads", kind)
		return 0
	}
	if len(vm.hooks) >= maxHandlersPerScript {
		L.RaiseError("too many hooks (max %d)", maxHandlersPerScript)
		return 0
	}
	vm.hooks = append(vm.hooks, luaHook{kind: kind, cluster: cluster, attr: attr, fn: fn})
	return 0
}

// verdict turns a check hook's return value into a write error.
func verdict(id string, c node.Change, ret lua.LValue) error {
	switch v := ret.(type) {
	case lua.LBool:
		if !bool(v) {
			return zcl.Errorf(zcl.StatusInvalidValue, "script %s rejected %s = %s", id, c.Attr.Name, c.New)
		}
	case lua.LNumber:
		if s := zcl.Status(v); s != zcl.StatusSuccess {
			return zcl.Errorf(s, "script %s rejected %s = %s", id, c.Attr.Name, c.New)
		}
	case lua.LString:
		return zcl.Errorf(zcl.StatusInvalidValue, "script %s: %s", id, string(v))
	}
	return nil
}

// zcl.read(ep, cluster, attr) -> value | nil, err, status
func zclRead(L *lua.LState, vm *scriptVM) int {
	tx := vm.current(L)
	v, err := tx.Get(checkU8(L, 1), checkU16(L, 2), checkU16(L, 3))
	if err != nil {
		return pushErr(L, lua.LNil, err)
	}
	L.Push(goToLua(L, v.Interface()))
	return 1
}

// zcl.write(ep, cluster, attr, value) -> true | false, err, status
func zclWrite(L *lua.LState, vm *scriptVM) int {
	tx := vm.current(L)
	ep, cluster, attr := checkU8(L, 1), checkU16(L, 2), checkU16(L, 3)
	def, err := tx.Registry().Attribute(cluster, attr, 0)
	if err != nil {
		return pushErr(L, lua.LFalse, err)
	}
	v, err := zcl.FromInterface(def.Type, luaToGo(L.Get(4)))
	if err != nil {
		return pushErr(L, lua.LFalse, zcl.Errorf(zcl.StatusInvalidDataType, "%v", err))
	}
	if err := tx.Set(ep, cluster, attr, v); err != nil {
		return pushErr(L, lua.LFalse, err)
	}
	L.Push(lua.LTrue)
	return 1
}

// destination reads a Lua destination: "coordinator", or a table with
// addr/endpoint, group, or ieee/endpoint.
func destination(L *lua.LState, n int) node.Destination {
	switch v := L.Get(n).(type) {
	case lua.LString:
		if v == "coordinator" {
			return node.Coordinator
		}
	case *lua.LTable:
		num := func(key string) (uint64, bool) {
			x, ok := v.RawGetString(key).(lua.LNumber)
			return uint64(x), ok
		}
		ep, _ := num("endpoint")
		if g, ok := num("group"); ok {
			return node.Destination{Mode: ncp.AddrGroup, Addr: uint16(g)}
		}
		if s, ok := v.RawGetString("ieee").(lua.LString); ok {
			ieee, err := zcl.FromInterface(zcl.TypeEUI64, string(s))
			if err != nil {
				L.ArgError(n, err.Error())
			}
			return node.Destination{Mode: ncp.AddrIEEE, IEEE: ieee.Uint(), Endpoint: uint8(ep)}
		}
		if a, ok := num("addr"); ok {
			return node.Destination{Mode: ncp.AddrShort, Addr: uint16(a), Endpoint: uint8(ep)}
		}
	}
	L.ArgError(n, `destination must be "coordinator" or a table with addr, group or ieee`)
	return node.Destination{}
}

// zcl.send(ep, dst, cluster, cmd, fields) -> seq | nil, err, status
//
// The direction follows the local side of the cluster: a server endpoint
// sends to clients, anything else sends to servers.
func zclSend(L *lua.LState, vm *scriptVM, e *Engine) int {
	tx := vm.current(L)
	ep := checkU8(L, 1)
	dst := destination(L, 2)
	cluster := checkU16(L, 3)
	cmd := checkU8(L, 4)

	dir := zcl.DirectionToServer
	if cfg, ok := tx.Endpoint(ep); ok && slices.Contains(cfg.Servers, cluster) {
		dir = zcl.DirectionToClient
	}
	b, err := tx.Build(cluster, cmd, dir)
	if err != nil {
		return pushErr(L, lua.LNil, err)
	}
	fields, _ := luaToGo(L.Get(5)).(map[string]any)
	args, err := zcl.ArgsFromMap(b.Def().Params, fields)
	if err != nil {
		return pushErr(L, lua.LNil, err)
	}
	seq, err := tx.Command(node.Command{Endpoint: ep, Dst: dst, Frame: b.Args(args)})
	if err != nil {
		e.logger.Warn("script send failed", "id", vm.id, "cluster", fmt.Sprintf("0x%04X", cluster), "cmd", cmd, "err", err)
		return pushErr(L, lua.LNil, err)
	}
	L.Push(lua.LNumber(seq))
	return 1
}

// zcl.after(seconds, callback) runs callback on the node clock.
func zclAfter(L *lua.LState, vm *scriptVM, e *Engine) int {
	tx := vm.current(L)
	seconds := L.CheckNumber(1)
	fn := L.CheckFunction(2)
	if len(vm.timers) >= maxTimersPerScript {
		L.RaiseError("too many timers (max %d)", maxTimersPerScript)
		return 0
	}
	d := time.Duration(float64(seconds) * float64(time.Second))
	vm.timers = append(vm.timers, tx.After(d, func(tx *node.Tx) {
		if vm.closed {
			return
		}
		if _, err := e.call(vm, tx, fn, 0); err != nil {
			e.logger.Error("after callback error", "id", vm.id, "err", err)
		}
	}))
	return 0
}

// zcl.log(msg)
func zclLog(L *lua.LState, vm *scriptVM, e *Engine) int {
	msg := L.CheckString(1)
	if vm.logs != nil {
		*vm.logs = append(*vm.logs, msg)
	}
	e.logger.Info("script log", "id", vm.id, "msg", msg)
	return 0
}

// zcl.endpoints() returns {id, profile, device, servers, clients} tables.
func zclEndpoints(L *lua.LState, vm *scriptVM) int {
	tx := vm.current(L)
	out := L.NewTable()
	for ep := 1; ep <= 0xFF; ep++ {
		cfg, ok := tx.Endpoint(uint8(ep))
		if !ok {
			continue
		}
		t := L.NewTable()
		t.RawSetString("id", lua.LNumber(cfg.ID))
		t.RawSetString("profile", lua.LNumber(cfg.ProfileID))
		t.RawSetString("device", lua.LNumber(cfg.DeviceID))
		servers, clients := L.NewTable(), L.NewTable()
		for _, c := range cfg.Servers {
			servers.Append(lua.LNumber(c))
		}
		for _, c := range cfg.Clients {
			clients.Append(lua.LNumber(c))
		}
		t.RawSetString("servers", servers)
		t.RawSetString("clients", clients)
		out.Append(t)
	}
	L.Push(out)
	return 1
}

// zcl.now() returns the node clock in ZCL UTC seconds.
func zclNow(L *lua.LState, vm *scriptVM) int {
	L.Push(lua.LNumber(vm.current(L).Now()))
	return 1
}
