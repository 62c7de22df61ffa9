// Package handlers implements the server-side behaviour of the standard
// clusters a device endpoint usually hosts. Install wires it into a node:
// command handlers for the cluster-specific commands, check hooks for
// cross-attribute constraints and write hooks for side effects.
package handlers

import (
	"log/slog"
	"time"

	"zcl-node/internal/node"
	"zcl-node/internal/zcl"
	"zcl-node/internal/zcl/clusters"
)

// Tick is the step of every clock-driven transition (tenths of a second on
// the wire).
const Tick = 100 * time.Millisecond

// Effect event names emitted through the node event bus.
const (
	EventIdentifyEffect = "identify_effect"
	EventOffEffect      = "off_effect"
	EventFactoryReset   = "factory_reset"
	EventLockChanged    = "lock_changed"
)

// EffectEvent is the payload of EventIdentifyEffect and EventOffEffect.
type EffectEvent struct {
	Endpoint uint8 `json:"endpoint"`
	Effect   uint8 `json:"effect"`
	Variant  uint8 `json:"variant"`
}

// LockEvent is the payload of EventLockChanged.
type LockEvent struct {
	Endpoint uint8  `json:"endpoint"`
	State    uint8  `json:"state"`
	Source   uint16 `json:"source"`
}

// timerKey names one running transition. Clusters with independent motions
// (lift and tilt) use distinct slots.
type timerKey struct {
	ep      uint8
	cluster uint16
	slot    uint8
}

func key(ep uint8, cluster uint16) timerKey { return timerKey{ep: ep, cluster: cluster} }

type timer struct {
	stop func() bool
}

// Handlers holds the per-endpoint timers of running transitions. Its state is
// only touched from node callbacks, which run with the node locked.
type Handlers struct {
	logger *slog.Logger
	timers map[timerKey]*timer
	locks  map[uint8]*lockState
	drives map[uint8]drive
}

// Install registers every cluster behaviour on n and returns the handler set.
func Install(n *node.Node) *Handlers {
	h := &Handlers{
		logger: n.Logger().With("component", "handlers"),
		timers: make(map[timerKey]*timer),
		drives: make(map[uint8]drive),
	}
	h.installBasic(n)
	h.installIdentify(n)
	h.installGroups(n)
	h.installOnOff(n)
	h.installLevel(n)
	h.installDoorLock(n)
	h.installCovering(n)
	h.installThermostat(n)
	return h
}

// schedule runs fn after d, replacing any timer running under k.
func (h *Handlers) schedule(tx *node.Tx, k timerKey, d time.Duration, fn func(tx *node.Tx)) {
	h.cancel(k)
	t := &timer{}
	h.timers[k] = t
	t.stop = tx.After(d, func(tx *node.Tx) {
		if h.timers[k] != t {
			return
		}
		delete(h.timers, k)
		fn(tx)
	})
}

func (h *Handlers) cancel(k timerKey) bool {
	t := h.timers[k]
	if t == nil {
		return false
	}
	t.stop()
	delete(h.timers, k)
	return true
}

// Running reports whether a transition is in progress on (ep, cluster).
func (h *Handlers) Running(ep uint8, cluster uint16) bool {
	return h.timers[key(ep, cluster)] != nil
}

// ramp moves a value one unit per step from towards to, calling set for each
// intermediate value and done once it arrives.
func (h *Handlers) ramp(tx *node.Tx, k timerKey, from, to int64, step time.Duration, set func(tx *node.Tx, v, left int64) error, done func(tx *node.Tx)) {
	if from == to {
		h.cancel(k)
		if done != nil {
			done(tx)
		}
		return
	}
	dir := int64(1)
	if to < from {
		dir = -1
	}
	h.schedule(tx, k, step, func(tx *node.Tx) {
		next := from + dir
		if err := set(tx, next, (to-next)*dir); err != nil {
			h.logger.Warn("transition stopped", "ep", k.ep, "cluster", clusterName(tx, k.cluster), "err", err)
			return
		}
		h.ramp(tx, k, next, to, step, set, done)
	})
}

func clusterName(tx *node.Tx, id uint16) string {
	if c := tx.Registry().Cluster(id); c != nil {
		return c.Name
	}
	return "unknown"
}

func (h *Handlers) installBasic(n *node.Node) {
	n.HandleCommand(clusters.Basic.ID, zcl.DirectionToServer, clusters.BasicCmdResetToFactoryDefaults, func(tx *node.Tx, req *node.Request) error {
		for k := range h.timers {
			if k.ep == req.Endpoint {
				h.cancel(k)
			}
		}
		tx.RemoveAllGroups(req.Endpoint)
		if err := tx.ResetToDefaults(req.Endpoint); err != nil {
			return err
		}
		h.logger.Info("factory reset", "ep", req.Endpoint)
		tx.Emit(EventFactoryReset, EffectEvent{Endpoint: req.Endpoint})
		return nil
	})
}
