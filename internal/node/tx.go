package node

import (
	"log/slog"
	"sort"
	"time"

	"zcl-node/internal/zcl"
)

// Tx is the view of the node that hooks, handlers and timer callbacks get.
// It is only valid for the duration of the callback it was passed to.
type Tx struct {
	n *Node
}

// Get returns the value of a standard attribute.
func (tx *Tx) Get(ep uint8, cluster, attr uint16) (zcl.Value, error) {
	return tx.GetManufacturer(ep, cluster, attr, 0)
}

// GetManufacturer returns the value of a manufacturer-specific attribute.
func (tx *Tx) GetManufacturer(ep uint8, cluster, attr, mfr uint16) (zcl.Value, error) {
	inst, err := tx.n.lookup(ep, cluster, attr, mfr)
	if err != nil {
		return zcl.Value{}, err
	}
	return inst.value, nil
}

// Value returns the attribute value, or the null value when it is absent.
func (tx *Tx) Value(ep uint8, cluster, attr uint16) zcl.Value {
	v, _ := tx.Get(ep, cluster, attr)
	return v
}

// Set writes a standard attribute with local origin, running check and write hooks.
func (tx *Tx) Set(ep uint8, cluster, attr uint16, v zcl.Value) error {
	return tx.n.write(ep, cluster, attr, 0, v, OriginLocal)
}

// SetManufacturer writes a manufacturer-specific attribute with local origin.
func (tx *Tx) SetManufacturer(ep uint8, cluster, attr, mfr uint16, v zcl.Value) error {
	return tx.n.write(ep, cluster, attr, mfr, v, OriginLocal)
}

// Reply queues the cluster-specific response id to req, addressed back to
// its sender with the request's sequence number. The default response for
// req is then suppressed.
func (tx *Tx) Reply(req *Request, id uint8, args zcl.Args) error {
	n := tx.n
	dir := req.Header.Control.Direction.Reverse()
	mfr := uint16(0)
	if req.Header.Control.ManufacturerSpecific {
		mfr = req.Header.Manufacturer
	}
	def, err := n.reg.Command(req.Cluster, id, dir, mfr)
	if err != nil {
		return err
	}
	b := zcl.NewCommandBuilder(req.Cluster, def).Seq(req.Header.Seq).DisableDefaultResponse(true).Args(args)
	payload, err := n.finishFrame(b)
	if err != nil {
		return err
	}
	n.queue(req.Source.Reply(payload), def.Name)
	if !req.responded {
		req.responded = true
		tx.OnRollback(func() { req.responded = false })
	}
	return nil
}

// Command queues an unsolicited command and returns its sequence number.
func (tx *Tx) Command(cmd Command) (uint8, error) {
	req, err := tx.n.buildCommand(cmd)
	if err != nil {
		return 0, err
	}
	tx.n.queue(req, cmd.Frame.Def().Name)
	return cmd.Frame.Header().Seq, nil
}

// Build starts a frame for a standard command from the registry.
func (tx *Tx) Build(cluster uint16, id uint8, dir zcl.CommandDirection) (*zcl.CommandBuilder, error) {
	return tx.n.reg.Build(cluster, id, dir)
}

// Now returns ZCL UTC seconds.
func (tx *Tx) Now() uint32 { return tx.n.clock.Now() }

// After runs fn with the node locked once d has elapsed. The returned
// function cancels it.
func (tx *Tx) After(d time.Duration, fn func(tx *Tx)) func() bool {
	n := tx.n
	stop := n.clock.AfterFunc(d, func() {
		n.mu.Lock()
		defer n.unlock()
		if n.closed {
			return
		}
		defer n.finish()
		if err := n.guard(func() error { fn(&Tx{n: n}); return nil }); err != nil {
			n.logger.Error("timer callback failed", "err", err)
		}
	})
	tx.OnRollback(func() { stop() })
	return stop
}

// OnRollback registers fn to run if the write being made is rolled back,
// as when a later record of an undivided Write Attributes fails. Hooks use
// it to restore state they keep outside the attribute table. Outside a
// write, fn is dropped when the operation ends.
func (tx *Tx) OnRollback(fn func()) {
	tx.n.journal = append(tx.n.journal, undo{fn: fn})
}

// Registry returns the cluster registry.
func (tx *Tx) Registry() *zcl.Registry { return tx.n.reg }

// Logger returns the node logger.
func (tx *Tx) Logger() *slog.Logger { return tx.n.logger }

// Emit queues an event for delivery after the operation.
func (tx *Tx) Emit(typ string, data any) { tx.n.emit(typ, data) }

// HasCluster reports whether ep hosts cluster on either side.
func (tx *Tx) HasCluster(ep uint8, cluster uint16) bool {
	e := tx.n.endpoints[ep]
	return e != nil && e.clusters[cluster] != nil
}

// Endpoint returns the configuration of ep.
func (tx *Tx) Endpoint(ep uint8) (EndpointConfig, bool) {
	e := tx.n.endpoints[ep]
	if e == nil {
		return EndpointConfig{}, false
	}
	return e.cfg, true
}

// ResetToDefaults restores every attribute on ep to its default value
// without running hooks.
func (tx *Tx) ResetToDefaults(ep uint8) error { return tx.n.resetEndpoint(ep) }

// AddGroup adds ep to group. An existing membership is duplicate-exists.
func (tx *Tx) AddGroup(ep uint8, group uint16, name string) error {
	e := tx.n.endpoints[ep]
	if e == nil {
		return zcl.Errorf(zcl.StatusNotFound, "endpoint %d not registered", ep)
	}
	if group == 0 || group > 0xFFF7 {
		return zcl.Errorf(zcl.StatusInvalidValue, "group 0x%04X out of range", group)
	}
	if _, ok := e.groups[group]; ok {
		return zcl.Errorf(zcl.StatusDuplicateExists, "endpoint %d already in group 0x%04X", ep, group)
	}
	if len(e.groups) >= GroupCapacity {
		return zcl.Errorf(zcl.StatusInsufficientSpace, "endpoint %d group table full", ep)
	}
	e.groups[group] = name
	return nil
}

// RemoveGroup removes ep from group and reports whether it was a member.
func (tx *Tx) RemoveGroup(ep uint8, group uint16) bool {
	e := tx.n.endpoints[ep]
	if e == nil {
		return false
	}
	_, ok := e.groups[group]
	delete(e.groups, group)
	return ok
}

// RemoveAllGroups clears the group table of ep.
func (tx *Tx) RemoveAllGroups(ep uint8) {
	if e := tx.n.endpoints[ep]; e != nil {
		clear(e.groups)
	}
}

// Groups returns the groups ep belongs to, ascending.
func (tx *Tx) Groups(ep uint8) []uint16 {
	e := tx.n.endpoints[ep]
	if e == nil {
		return nil
	}
	out := make([]uint16, 0, len(e.groups))
	for g := range e.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// GroupName returns the name ep stored for group.
func (tx *Tx) GroupName(ep uint8, group uint16) (string, bool) {
	e := tx.n.endpoints[ep]
	if e == nil {
		return "", false
	}
	name, ok := e.groups[group]
	return name, ok
}

// GroupFree returns how many more groups ep can join.
func (tx *Tx) GroupFree(ep uint8) int {
	e := tx.n.endpoints[ep]
	if e == nil {
		return 0
	}
	return GroupCapacity - len(e.groups)
}
