package handlers

import (
	"bytes"
	"time"

	"zcl-node/internal/node"
	"zcl-node/internal/zcl"
	"zcl-node/internal/zcl/clusters"
)

// Door Lock attributes the handlers consult.
const (
	lockAutoRelockTime   uint16 = 0x0023
	lockRequirePINForRF  uint16 = 0x0033
	lockNumberOfPINUsers uint16 = 0x0012
)

const (
	lockDefaultPINUsers     = 8
	lockUserStatusAvailable = 0x00
	lockUserStatusEnabled   = 0x01

	lockStatusSuccess = 0x00
	lockStatusFailure = 0x01
)

// CoveringStep is the time a window covering takes to travel one percent.
const CoveringStep = 100 * time.Millisecond

const tiltSlot = 1

type pinUser struct {
	status uint8
	kind   uint8
	code   []byte
}

type lockState struct {
	users map[uint16]pinUser
}

func (h *Handlers) lock(ep uint8) *lockState {
	if h.locks == nil {
		h.locks = make(map[uint8]*lockState)
	}
	ls := h.locks[ep]
	if ls == nil {
		ls = &lockState{users: make(map[uint16]pinUser)}
		h.locks[ep] = ls
	}
	return ls
}

// pinAccepted checks the PIN of an RF lock operation when the lock requires one.
func (h *Handlers) pinAccepted(tx *node.Tx, req *node.Request) bool {
	ep := req.Endpoint
	if !tx.Value(ep, clusters.DoorLock.ID, lockRequirePINForRF).Bool() {
		return true
	}
	pin := req.Args.Bytes("PINCode")
	if len(pin) == 0 {
		return false
	}
	for _, u := range h.lock(ep).users {
		if u.status == lockUserStatusEnabled && bytes.Equal(u.code, pin) {
			return true
		}
	}
	return false
}

func lockReply(tx *node.Tx, req *node.Request, status uint8) error {
	return tx.Reply(req, req.Def.ID, zcl.Args{}.Set("Status", zcl.E8(status)))
}

func (h *Handlers) setLock(tx *node.Tx, req *node.Request, state uint8) error {
	ep := req.Endpoint
	if err := tx.Set(ep, clusters.DoorLock.ID, clusters.DoorLockAttrLockState, zcl.E8(state)); err != nil {
		return err
	}
	tx.Emit(EventLockChanged, LockEvent{Endpoint: ep, State: state, Source: req.Source.SrcAddr})
	return nil
}

// relock locks ep again after secs seconds.
func (h *Handlers) relock(tx *node.Tx, ep uint8, secs uint64) {
	if secs == 0 {
		return
	}
	h.schedule(tx, key(ep, clusters.DoorLock.ID), time.Duration(secs)*time.Second, func(tx *node.Tx) {
		if err := tx.Set(ep, clusters.DoorLock.ID, clusters.DoorLockAttrLockState, zcl.E8(clusters.LockStateLocked)); err != nil {
			h.logger.Warn("relock", "ep", ep, "err", err)
			return
		}
		tx.Emit(EventLockChanged, LockEvent{Endpoint: ep, State: clusters.LockStateLocked})
	})
}

func (h *Handlers) installDoorLock(n *node.Node) {
	d := clusters.DoorLock.ID
	operate := func(state func(tx *node.Tx, ep uint8) uint8) node.CommandHandler {
		return func(tx *node.Tx, req *node.Request) error {
			if !h.pinAccepted(tx, req) {
				return lockReply(tx, req, lockStatusFailure)
			}
			ep := req.Endpoint
			st := state(tx, ep)
			h.cancel(key(ep, d))
			if err := h.setLock(tx, req, st); err != nil {
				return err
			}
			switch {
			case req.Def.ID == clusters.DoorLockCmdUnlockTimed:
				h.relock(tx, ep, req.Args.Uint("Timeout"))
			case st == clusters.LockStateUnlocked:
				h.relock(tx, ep, tx.Value(ep, d, lockAutoRelockTime).Uint())
			}
			return lockReply(tx, req, lockStatusSuccess)
		}
	}
	fixed := func(st uint8) func(*node.Tx, uint8) uint8 {
		return func(*node.Tx, uint8) uint8 { return st }
	}
	n.HandleCommand(d, zcl.DirectionToServer, clusters.DoorLockCmdLock, operate(fixed(clusters.LockStateLocked)))
	n.HandleCommand(d, zcl.DirectionToServer, clusters.DoorLockCmdUnlock, operate(fixed(clusters.LockStateUnlocked)))
	n.HandleCommand(d, zcl.DirectionToServer, clusters.DoorLockCmdUnlockTimed, operate(fixed(clusters.LockStateUnlocked)))
	n.HandleCommand(d, zcl.DirectionToServer, clusters.DoorLockCmdToggle, operate(func(tx *node.Tx, ep uint8) uint8 {
		if tx.Value(ep, d, clusters.DoorLockAttrLockState).Uint() == clusters.LockStateLocked {
			return clusters.LockStateUnlocked
		}
		return clusters.LockStateLocked
	}))

	n.HandleCommand(d, zcl.DirectionToServer, clusters.DoorLockCmdSetPINCode, func(tx *node.Tx, req *node.Request) error {
		id := uint16(req.Args.Uint("UserID"))
		if int(id) >= pinCapacity(tx, req.Endpoint) {
			return lockReply(tx, req, lockStatusFailure)
		}
		status := uint8(req.Args.Uint("UserStatus"))
		if status == lockUserStatusAvailable {
			status = lockUserStatusEnabled
		}
		h.lock(req.Endpoint).users[id] = pinUser{
			status: status,
			kind:   uint8(req.Args.Uint("UserType")),
			code:   append([]byte(nil), req.Args.Bytes("PIN")...),
		}
		return lockReply(tx, req, lockStatusSuccess)
	})
	n.HandleCommand(d, zcl.DirectionToServer, clusters.DoorLockCmdGetPINCode, func(tx *node.Tx, req *node.Request) error {
		id := uint16(req.Args.Uint("UserID"))
		if int(id) >= pinCapacity(tx, req.Endpoint) {
			return zcl.Errorf(zcl.StatusInvalidField, "user %d out of range", id)
		}
		u, ok := h.lock(req.Endpoint).users[id]
		if !ok {
			u = pinUser{status: lockUserStatusAvailable, kind: 0xFF}
		}
		return tx.Reply(req, clusters.DoorLockCmdGetPINCode, zcl.Args{}.
			Set("UserID", zcl.U16(id)).
			Set("UserStatus", zcl.U8(u.status)).
			Set("UserType", zcl.E8(u.kind)).
			Set("Code", zcl.Octets(zcl.TypeOctetStr, u.code)))
	})
	n.HandleCommand(d, zcl.DirectionToServer, clusters.DoorLockCmdClearPINCode, func(tx *node.Tx, req *node.Request) error {
		id := uint16(req.Args.Uint("UserID"))
		if int(id) >= pinCapacity(tx, req.Endpoint) {
			return lockReply(tx, req, lockStatusFailure)
		}
		delete(h.lock(req.Endpoint).users, id)
		return lockReply(tx, req, lockStatusSuccess)
	})
	n.HandleCommand(d, zcl.DirectionToServer, clusters.DoorLockCmdClearAllPINCodes, func(tx *node.Tx, req *node.Request) error {
		clear(h.lock(req.Endpoint).users)
		return lockReply(tx, req, lockStatusSuccess)
	})
}

func pinCapacity(tx *node.Tx, ep uint8) int {
	if n := tx.Value(ep, clusters.DoorLock.ID, lockNumberOfPINUsers).Uint(); n > 0 {
		return int(n)
	}
	return lockDefaultPINUsers
}

// covering position attributes for the lift and tilt axes.
type axis struct {
	slot   uint8
	pct    uint16
	pos    uint16
	open   uint16
	closed uint16
	arg    string
}

var (
	liftAxis = axis{slot: 0, pct: clusters.CoveringLiftPercentage, pos: 0x0003, open: 0x0010, closed: 0x0011, arg: "LiftValue"}
	tiltAxis = axis{slot: tiltSlot, pct: clusters.CoveringTiltPercentage, pos: 0x0004, open: 0x0012, closed: 0x0013, arg: "TiltValue"}
)

// limits returns the installed open and closed limits of an axis.
func (a axis) limits(tx *node.Tx, ep uint8) (open, closed int64) {
	c := clusters.WindowCovering.ID
	return int64(tx.Value(ep, c, a.open).Uint()), int64(tx.Value(ep, c, a.closed).Uint())
}

func (a axis) position(tx *node.Tx, ep uint8, pct int64) int64 {
	open, closed := a.limits(tx, ep)
	return open + (closed-open)*pct/100
}

func (a axis) percent(tx *node.Tx, ep uint8, value int64) int64 {
	open, closed := a.limits(tx, ep)
	if closed == open {
		return 0
	}
	return clamp((value-open)*100/(closed-open), 0, 100)
}

// goTo moves an axis to pct percent closed, one percent per CoveringStep.
func (h *Handlers) goTo(tx *node.Tx, ep uint8, a axis, pct int64) error {
	c := clusters.WindowCovering.ID
	if pct < 0 || pct > 100 {
		return zcl.Errorf(zcl.StatusInvalidField, "covering percentage %d", pct)
	}
	cur := tx.Value(ep, c, a.pct)
	from := int64(cur.Uint())
	if cur.IsInvalid() || cur.IsNull() {
		from = 0
	}
	h.ramp(tx, timerKey{ep: ep, cluster: c, slot: a.slot}, from, pct, CoveringStep, func(tx *node.Tx, v, _ int64) error {
		if err := tx.Set(ep, c, a.pct, zcl.U8(uint8(v))); err != nil {
			return err
		}
		return tx.Set(ep, c, a.pos, zcl.U16(uint16(a.position(tx, ep, v))))
	}, nil)
	return nil
}

func (h *Handlers) installCovering(n *node.Node) {
	c := clusters.WindowCovering.ID
	n.HandleCommand(c, zcl.DirectionToServer, clusters.CoveringCmdUpOpen, func(tx *node.Tx, req *node.Request) error {
		return h.goTo(tx, req.Endpoint, liftAxis, 0)
	})
	n.HandleCommand(c, zcl.DirectionToServer, clusters.CoveringCmdDownClose, func(tx *node.Tx, req *node.Request) error {
		return h.goTo(tx, req.Endpoint, liftAxis, 100)
	})
	n.HandleCommand(c, zcl.DirectionToServer, clusters.CoveringCmdStop, func(tx *node.Tx, req *node.Request) error {
		h.cancel(timerKey{ep: req.Endpoint, cluster: c, slot: liftAxis.slot})
		h.cancel(timerKey{ep: req.Endpoint, cluster: c, slot: tiltAxis.slot})
		return nil
	})
	n.HandleCommand(c, zcl.DirectionToServer, clusters.CoveringCmdGoToLiftPct, func(tx *node.Tx, req *node.Request) error {
		return h.goTo(tx, req.Endpoint, liftAxis, int64(req.Args.Uint("PercentageLiftValue")))
	})
	n.HandleCommand(c, zcl.DirectionToServer, clusters.CoveringCmdGoToTiltPct, func(tx *node.Tx, req *node.Request) error {
		return h.goTo(tx, req.Endpoint, tiltAxis, int64(req.Args.Uint("PercentageTiltValue")))
	})
	byValue := func(a axis) node.CommandHandler {
		return func(tx *node.Tx, req *node.Request) error {
			return h.goTo(tx, req.Endpoint, a, a.percent(tx, req.Endpoint, int64(req.Args.Uint(a.arg))))
		}
	}
	n.HandleCommand(c, zcl.DirectionToServer, clusters.CoveringCmdGoToLiftValue, byValue(liftAxis))
	n.HandleCommand(c, zcl.DirectionToServer, clusters.CoveringCmdGoToTiltValue, byValue(tiltAxis))
}
