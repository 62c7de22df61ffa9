package handlers

import (
	"time"

	"zcl-node/internal/node"
	"zcl-node/internal/zcl"
	"zcl-node/internal/zcl/clusters"
)

// OffWithEffect identifiers.
const (
	EffectDelayedAllOff = 0x00
	EffectDyingLight    = 0x01
)

// Level options bit: run level commands while the light is off.
const optExecuteIfOff = 0x01

const maxLevel = 0xFE

func isOn(tx *node.Tx, ep uint8) bool {
	return tx.Value(ep, clusters.OnOff.ID, clusters.OnOffAttr).Bool()
}

// setOnOff switches ep when it hosts On/Off. A Level-only endpoint is left alone.
func setOnOff(tx *node.Tx, ep uint8, on bool) error {
	if !tx.HasCluster(ep, clusters.OnOff.ID) {
		return nil
	}
	return tx.Set(ep, clusters.OnOff.ID, clusters.OnOffAttr, zcl.Bool(on))
}

// drive says who is writing CurrentLevel on an endpoint and so how the write
// couples to On/Off.
type drive uint8

const (
	driveExternal  drive = iota // anything but a level command
	driveCoupled                // a level command with On/Off
	driveUncoupled              // a level command without On/Off
)

// driving runs fn with the level writes on ep attributed to d.
func (h *Handlers) driving(ep uint8, d drive, fn func() error) error {
	prev, ok := h.drives[ep]
	h.drives[ep] = d
	defer func() {
		if ok {
			h.drives[ep] = prev
		} else {
			delete(h.drives, ep)
		}
	}()
	return fn()
}

func (h *Handlers) setLevel(tx *node.Tx, ep uint8, v int64, withOnOff bool) error {
	d := driveUncoupled
	if withOnOff {
		d = driveCoupled
	}
	return h.driving(ep, d, func() error {
		return tx.Set(ep, clusters.LevelControl.ID, clusters.LevelCurrentLevel, zcl.U8(uint8(v)))
	})
}

// levelWritten is the Level Control write hook coupling CurrentLevel to
// On/Off.
func (h *Handlers) levelWritten(tx *node.Tx, c node.Change) error {
	if c.Attr.ID != clusters.LevelCurrentLevel || c.New.IsInvalid() || c.New.IsNull() {
		return nil
	}
	return h.couple(tx, c.Endpoint, int64(c.New.Uint()), h.drives[c.Endpoint])
}

// couple switches ep on above the minimum level. Only a level command with
// On/Off switches it off at the minimum.
func (h *Handlers) couple(tx *node.Tx, ep uint8, level int64, d drive) error {
	if d == driveUncoupled {
		return nil
	}
	lo, _ := levelBounds(tx, ep)
	var on bool
	switch {
	case level > lo:
		on = true
	case d != driveCoupled:
		return nil
	}
	return h.driving(ep, driveCoupled, func() error { return setOnOff(tx, ep, on) })
}

// onOffWritten is the On/Off write hook: switching on restores a valid
// OnLevel unless a level command did the switching.
func (h *Handlers) onOffWritten(tx *node.Tx, c node.Change) error {
	ep := c.Endpoint
	if c.Attr.ID != clusters.OnOffAttr || !c.New.Bool() || !tx.HasCluster(ep, clusters.LevelControl.ID) {
		return nil
	}
	if _, ok := h.drives[ep]; ok {
		return nil
	}
	if ol := tx.Value(ep, clusters.LevelControl.ID, clusters.LevelOnLevel); !ol.IsInvalid() && !ol.IsNull() {
		return h.moveTo(tx, ep, int64(ol.Uint()), 0, false)
	}
	return nil
}

func (h *Handlers) installOnOff(n *node.Node) {
	c := clusters.OnOff.ID
	n.OnWrite(c, h.onOffWritten)
	n.HandleCommand(c, zcl.DirectionToServer, clusters.OnOffCmdOff, func(tx *node.Tx, req *node.Request) error {
		return h.switchOff(tx, req.Endpoint)
	})
	n.HandleCommand(c, zcl.DirectionToServer, clusters.OnOffCmdOn, func(tx *node.Tx, req *node.Request) error {
		return h.switchOn(tx, req.Endpoint)
	})
	n.HandleCommand(c, zcl.DirectionToServer, clusters.OnOffCmdToggle, func(tx *node.Tx, req *node.Request) error {
		if isOn(tx, req.Endpoint) {
			return h.switchOff(tx, req.Endpoint)
		}
		return h.switchOn(tx, req.Endpoint)
	})
	n.HandleCommand(c, zcl.DirectionToServer, clusters.OnOffCmdOffWithEffect, func(tx *node.Tx, req *node.Request) error {
		effect := uint8(req.Args.Uint("EffectIdentifier"))
		if effect != EffectDelayedAllOff && effect != EffectDyingLight {
			return zcl.Errorf(zcl.StatusInvalidField, "off effect 0x%02X", effect)
		}
		ep := req.Endpoint
		if tx.Value(ep, c, clusters.OnOffGlobalSceneCtrl).Bool() {
			if err := tx.Set(ep, c, clusters.OnOffGlobalSceneCtrl, zcl.Bool(false)); err != nil {
				return err
			}
		}
		tx.Emit(EventOffEffect, EffectEvent{Endpoint: ep, Effect: effect, Variant: uint8(req.Args.Uint("EffectVariant"))})
		return h.switchOff(tx, ep)
	})
	n.HandleCommand(c, zcl.DirectionToServer, clusters.OnOffCmdOnWithRecall, func(tx *node.Tx, req *node.Request) error {
		ep := req.Endpoint
		if tx.Value(ep, c, clusters.OnOffGlobalSceneCtrl).Bool() {
			return nil
		}
		if err := tx.Set(ep, c, clusters.OnOffGlobalSceneCtrl, zcl.Bool(true)); err != nil {
			return err
		}
		return h.switchOn(tx, ep)
	})
	n.HandleCommand(c, zcl.DirectionToServer, clusters.OnOffCmdOnWithTimedOff, h.onWithTimedOff)
}

// switchOn turns ep on. A zero OnTime clears OffWaitTime; the write hook
// restores OnLevel.
func (h *Handlers) switchOn(tx *node.Tx, ep uint8) error {
	c := clusters.OnOff.ID
	if tx.Value(ep, c, clusters.OnOffOnTime).Uint() == 0 {
		if err := tx.Set(ep, c, clusters.OnOffOffWaitTime, zcl.U16(0)); err != nil {
			return err
		}
	}
	if err := tx.Set(ep, c, clusters.OnOffGlobalSceneCtrl, zcl.Bool(true)); err != nil {
		return err
	}
	return setOnOff(tx, ep, true)
}

func (h *Handlers) switchOff(tx *node.Tx, ep uint8) error {
	h.cancel(key(ep, clusters.OnOff.ID))
	if err := tx.Set(ep, clusters.OnOff.ID, clusters.OnOffOnTime, zcl.U16(0)); err != nil {
		return err
	}
	return setOnOff(tx, ep, false)
}

func (h *Handlers) onWithTimedOff(tx *node.Tx, req *node.Request) error {
	c := clusters.OnOff.ID
	ep := req.Endpoint
	on := isOn(tx, ep)
	if req.Args.Uint("OnOffControl")&0x01 != 0 && !on {
		return nil
	}
	onTime := req.Args.Uint("OnTime")
	offWait := req.Args.Uint("OffWaitTime")
	if onTime == 0xFFFF || offWait == 0xFFFF {
		return zcl.Errorf(zcl.StatusInvalidValue, "timed off: OnTime 0x%04X OffWaitTime 0x%04X", onTime, offWait)
	}

	curWait := tx.Value(ep, c, clusters.OnOffOffWaitTime).Uint()
	if curWait > 0 && !on {
		if offWait < curWait {
			if err := tx.Set(ep, c, clusters.OnOffOffWaitTime, zcl.U16(uint16(offWait))); err != nil {
				return err
			}
		}
	} else {
		if cur := tx.Value(ep, c, clusters.OnOffOnTime).Uint(); cur > onTime {
			onTime = cur
		}
		if err := tx.Set(ep, c, clusters.OnOffOnTime, zcl.U16(uint16(onTime))); err != nil {
			return err
		}
		if err := tx.Set(ep, c, clusters.OnOffOffWaitTime, zcl.U16(uint16(offWait))); err != nil {
			return err
		}
		if err := setOnOff(tx, ep, true); err != nil {
			return err
		}
	}
	h.timedTick(tx, ep)
	return nil
}

// timedTick counts OnTime down while on, switches off when it runs out and
// then counts OffWaitTime down, one tenth of a second per tick.
func (h *Handlers) timedTick(tx *node.Tx, ep uint8) {
	c := clusters.OnOff.ID
	h.schedule(tx, key(ep, c), Tick, func(tx *node.Tx) {
		onTime := tx.Value(ep, c, clusters.OnOffOnTime).Uint()
		offWait := tx.Value(ep, c, clusters.OnOffOffWaitTime).Uint()
		var err error
		switch {
		case isOn(tx, ep) && onTime > 0:
			onTime--
			err = tx.Set(ep, c, clusters.OnOffOnTime, zcl.U16(uint16(onTime)))
			if err == nil && onTime == 0 {
				err = setOnOff(tx, ep, false)
			}
		case !isOn(tx, ep) && offWait > 0:
			err = tx.Set(ep, c, clusters.OnOffOffWaitTime, zcl.U16(uint16(offWait-1)))
		default:
			return
		}
		if err != nil {
			h.logger.Warn("timed off", "ep", ep, "err", err)
			return
		}
		h.timedTick(tx, ep)
	})
}

func (h *Handlers) installLevel(n *node.Node) {
	l := clusters.LevelControl.ID
	n.OnWrite(l, h.levelWritten)
	moveToLevel := func(withOnOff bool) node.CommandHandler {
		return func(tx *node.Tx, req *node.Request) error {
			if !h.levelAllowed(tx, req, withOnOff) {
				return nil
			}
			return h.moveTo(tx, req.Endpoint, int64(req.Args.Uint("Level")), h.transitionTime(tx, req), withOnOff)
		}
	}
	move := func(withOnOff bool) node.CommandHandler {
		return func(tx *node.Tx, req *node.Request) error {
			if !h.levelAllowed(tx, req, withOnOff) {
				return nil
			}
			return h.move(tx, req, withOnOff)
		}
	}
	step := func(withOnOff bool) node.CommandHandler {
		return func(tx *node.Tx, req *node.Request) error {
			if !h.levelAllowed(tx, req, withOnOff) {
				return nil
			}
			size := int64(req.Args.Uint("StepSize"))
			switch req.Args.Uint("StepMode") {
			case 0x00:
			case 0x01:
				size = -size
			default:
				return zcl.Errorf(zcl.StatusInvalidField, "step mode %d", req.Args.Uint("StepMode"))
			}
			lo, hi := levelBounds(tx, req.Endpoint)
			target := clamp(currentLevel(tx, req.Endpoint, lo, hi)+size, lo, hi)
			return h.moveTo(tx, req.Endpoint, target, h.transitionTime(tx, req), withOnOff)
		}
	}
	stop := func(withOnOff bool) node.CommandHandler {
		return func(tx *node.Tx, req *node.Request) error {
			if !h.levelAllowed(tx, req, withOnOff) {
				return nil
			}
			h.cancel(key(req.Endpoint, l))
			return tx.Set(req.Endpoint, l, clusters.LevelRemainingTime, zcl.U16(0))
		}
	}

	n.HandleCommand(l, zcl.DirectionToServer, clusters.LevelCmdMoveToLevel, moveToLevel(false))
	n.HandleCommand(l, zcl.DirectionToServer, clusters.LevelCmdMoveToLevelWithOnOff, moveToLevel(true))
	n.HandleCommand(l, zcl.DirectionToServer, clusters.LevelCmdMove, move(false))
	n.HandleCommand(l, zcl.DirectionToServer, clusters.LevelCmdMoveWithOnOff, move(true))
	n.HandleCommand(l, zcl.DirectionToServer, clusters.LevelCmdStep, step(false))
	n.HandleCommand(l, zcl.DirectionToServer, clusters.LevelCmdStepWithOnOff, step(true))
	n.HandleCommand(l, zcl.DirectionToServer, clusters.LevelCmdStop, stop(false))
	n.HandleCommand(l, zcl.DirectionToServer, clusters.LevelCmdStopWithOnOff, stop(true))
}

// levelAllowed applies the ExecuteIfOff option to a level command. Commands
// with On/Off always run; the others only while on unless the option,
// possibly overridden by the command's OptionsMask/OptionsOverride, is set.
func (h *Handlers) levelAllowed(tx *node.Tx, req *node.Request, withOnOff bool) bool {
	ep := req.Endpoint
	if withOnOff || !tx.HasCluster(ep, clusters.OnOff.ID) || isOn(tx, ep) {
		return true
	}
	opts := tx.Value(ep, clusters.LevelControl.ID, clusters.LevelOptions).Uint()
	if req.Args.Has("OptionsMask") && req.Args.Has("OptionsOverride") {
		mask := req.Args.Uint("OptionsMask")
		opts = opts&^mask | req.Args.Uint("OptionsOverride")&mask
	}
	return opts&optExecuteIfOff != 0
}

// transitionTime returns the command's transition in tenths of a second;
// 0xFFFF selects OnOffTransitionTime.
func (h *Handlers) transitionTime(tx *node.Tx, req *node.Request) uint64 {
	t := req.Args.Uint("TransitionTime")
	if t == 0xFFFF {
		t = tx.Value(req.Endpoint, clusters.LevelControl.ID, clusters.LevelOnOffTransitionTime).Uint()
	}
	return t
}

func levelBounds(tx *node.Tx, ep uint8) (lo, hi int64) {
	l := clusters.LevelControl.ID
	lo = int64(tx.Value(ep, l, clusters.LevelMinLevel).Uint())
	hi = int64(tx.Value(ep, l, clusters.LevelMaxLevel).Uint())
	if hi == 0 || hi > maxLevel {
		hi = maxLevel
	}
	if lo > hi {
		lo = hi
	}
	return lo, hi
}

// currentLevel returns CurrentLevel clamped to [lo, hi]; an unknown level
// counts as lo.
func currentLevel(tx *node.Tx, ep uint8, lo, hi int64) int64 {
	v := tx.Value(ep, clusters.LevelControl.ID, clusters.LevelCurrentLevel)
	if v.IsInvalid() || v.IsNull() {
		return lo
	}
	return clamp(int64(v.Uint()), lo, hi)
}

func clamp(v, lo, hi int64) int64 {
	return max(lo, min(v, hi))
}

// moveTo drives CurrentLevel to target over tenths of a second. With On/Off
// coupling the level write hook switches the endpoint on with the first
// step above the minimum and off once it settles at the minimum.
func (h *Handlers) moveTo(tx *node.Tx, ep uint8, target int64, tenths uint64, withOnOff bool) error {
	l := clusters.LevelControl.ID
	lo, hi := levelBounds(tx, ep)
	target = clamp(target, lo, hi)
	done := func(tx *node.Tx) {
		if err := tx.Set(ep, l, clusters.LevelRemainingTime, zcl.U16(0)); err != nil {
			h.logger.Warn("level remaining time", "ep", ep, "err", err)
		}
	}

	cur := currentLevel(tx, ep, lo, hi)
	if tenths == 0 || cur == target {
		h.cancel(key(ep, l))
		if cur == target && withOnOff {
			// an unchanged level runs no hook
			if err := h.couple(tx, ep, target, driveCoupled); err != nil {
				return err
			}
		}
		if err := h.setLevel(tx, ep, target, withOnOff); err != nil {
			return err
		}
		done(tx)
		return nil
	}

	steps := target - cur
	if steps < 0 {
		steps = -steps
	}
	step := time.Duration(tenths) * Tick / time.Duration(steps)
	if err := tx.Set(ep, l, clusters.LevelRemainingTime, zcl.U16(uint16(tenths))); err != nil {
		return err
	}
	h.ramp(tx, key(ep, l), cur, target, step, func(tx *node.Tx, v, left int64) error {
		if err := h.setLevel(tx, ep, v, withOnOff); err != nil {
			return err
		}
		return tx.Set(ep, l, clusters.LevelRemainingTime, zcl.U16(uint16(time.Duration(left)*step/Tick)))
	}, done)
	return nil
}

// move runs CurrentLevel towards the maximum or minimum at Rate units per
// second until it arrives or a Stop comes in.
func (h *Handlers) move(tx *node.Tx, req *node.Request, withOnOff bool) error {
	l := clusters.LevelControl.ID
	ep := req.Endpoint
	lo, hi := levelBounds(tx, ep)
	var target int64
	switch mode := req.Args.Uint("MoveMode"); mode {
	case 0x00:
		target = hi
	case 0x01:
		target = lo
	default:
		return zcl.Errorf(zcl.StatusInvalidField, "move mode %d", mode)
	}

	rate := req.Args.Uint("Rate")
	if rate == 0xFF {
		def := tx.Value(ep, l, clusters.LevelDefaultMoveRate)
		if def.IsInvalid() || def.IsNull() || def.Uint() == 0 {
			return h.moveTo(tx, ep, target, 0, withOnOff)
		}
		rate = def.Uint()
	}
	if rate == 0 {
		return nil
	}
	cur := currentLevel(tx, ep, lo, hi)
	if cur == target {
		return h.moveTo(tx, ep, target, 0, withOnOff)
	}
	h.ramp(tx, key(ep, l), cur, target, time.Second/time.Duration(rate), func(tx *node.Tx, v, _ int64) error {
		return h.setLevel(tx, ep, v, withOnOff)
	}, nil)
	return nil
}
