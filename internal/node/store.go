package node

import (
	"errors"
	"fmt"

	"zcl-node/internal/zcl"
)

// undo is one journal entry: either an attribute value to restore or a
// callback registered through Tx.OnRollback.
type undo struct {
	inst *instance
	old  zcl.Value
	fn   func()
}

// savepoint is a position in the current operation that rollback returns to.
// Frames and events queued after it are dropped with the journal.
type savepoint struct {
	journal int
	outbox  int
	queued  int
}

func (n *Node) savepoint() savepoint {
	return savepoint{journal: len(n.journal), outbox: len(n.outbox), queued: len(n.queued)}
}

// touch records the value an attribute had before the current operation.
type touch struct {
	ep      uint8
	cluster uint16
	ci      *clusterInst
	inst    *instance
	old     zcl.Value
	origin  Origin
}

func (n *Node) lookup(ep uint8, cluster, id, mfr uint16) (*instance, error) {
	_, inst, err := n.lookupFull(ep, cluster, id, mfr)
	return inst, err
}

func (n *Node) lookupFull(ep uint8, cluster, id, mfr uint16) (*clusterInst, *instance, error) {
	e := n.endpoints[ep]
	if e == nil {
		return nil, nil, zcl.Errorf(zcl.StatusNotFound, "endpoint %d not registered", ep)
	}
	ci := e.clusters[cluster]
	if ci == nil {
		return nil, nil, fmt.Errorf("endpoint %d cluster 0x%04X: %w", ep, cluster, zcl.ErrUnknownCluster)
	}
	inst := ci.attr(id, mfr)
	if inst == nil {
		return ci, nil, fmt.Errorf("endpoint %d cluster 0x%04X attribute 0x%04X: %w", ep, cluster, id, zcl.ErrUnknownAttribute)
	}
	return ci, inst, nil
}

// validate applies the descriptor's value rules to v.
func validate(def *zcl.AttributeDef, v zcl.Value) error {
	if v.IsInvalid() {
		if !def.AllowInvalid {
			return zcl.Errorf(zcl.StatusInvalidValue, "attribute 0x%04X: invalid value not allowed", def.ID)
		}
		return nil
	}
	if !v.Fits() {
		return zcl.Errorf(zcl.StatusInvalidValue, "attribute 0x%04X: %s does not fit", def.ID, v)
	}
	if def.Bounded() && !v.InRange(def.Min, def.Max) {
		return zcl.Errorf(zcl.StatusInvalidValue, "attribute 0x%04X: %s outside [%s, %s]", def.ID, v, def.Min, def.Max)
	}
	return nil
}

// coerce converts a locally supplied value to the attribute type.
func coerce(def *zcl.AttributeDef, v zcl.Value) (zcl.Value, error) {
	out, err := v.As(def.Type)
	if errors.Is(err, zcl.ErrOverflow) {
		return zcl.Value{}, &zcl.StatusError{Status: zcl.StatusInvalidValue, Err: err}
	}
	return out, err
}

// asStatus keeps a StatusError as is and maps anything else to fallback.
func asStatus(err error, fallback zcl.Status) error {
	var se *zcl.StatusError
	if errors.As(err, &se) {
		return err
	}
	return &zcl.StatusError{Status: fallback, Err: err}
}

// write is the attribute store's set operation.
func (n *Node) write(ep uint8, cluster, id, mfr uint16, v zcl.Value, origin Origin) error {
	ci, inst, err := n.lookupFull(ep, cluster, id, mfr)
	if err != nil {
		return err
	}
	def := inst.def
	if origin == OriginRemote {
		switch {
		case def.Access&zcl.AccessInternal != 0:
			return zcl.Errorf(zcl.StatusUnsupportedAttribute, "attribute 0x%04X is internal", id)
		case !def.IsWritable():
			return zcl.Errorf(zcl.StatusReadOnly, "attribute 0x%04X is read only", id)
		case v.Type() != def.Type:
			return zcl.Errorf(zcl.StatusInvalidDataType, "attribute 0x%04X: got %s, want %s", id, v.Type(), def.Type)
		}
	} else if v, err = coerce(def, v); err != nil {
		return err
	}
	if err := validate(def, v); err != nil {
		return err
	}
	if inst.value.Equal(v) {
		return nil
	}
	if n.depth >= maxWriteDepth {
		return zcl.Errorf(zcl.StatusLimitReached, "attribute 0x%04X: write hooks nested too deep", id)
	}
	n.depth++
	defer func() { n.depth-- }()

	c := Change{Endpoint: ep, Cluster: cluster, Attr: def, Old: inst.value, New: v, Origin: origin}
	tx := &Tx{n: n}
	for _, h := range n.checks[cluster] {
		if err := n.guard(func() error { return h(tx, c) }); err != nil {
			return asStatus(err, zcl.StatusInvalidValue)
		}
	}

	sp := n.savepoint()
	n.commit(ep, cluster, ci, inst, v, origin)
	for _, h := range n.writes[cluster] {
		if err := n.guard(func() error { return h(tx, c) }); err != nil {
			n.rollback(sp)
			return asStatus(err, zcl.StatusFailure)
		}
	}
	return nil
}

// commit stores v without hooks, journaling the old value.
func (n *Node) commit(ep uint8, cluster uint16, ci *clusterInst, inst *instance, v zcl.Value, origin Origin) {
	n.journal = append(n.journal, undo{inst: inst, old: inst.value})
	if t, ok := n.touched[inst]; ok {
		t.origin = origin
	} else {
		t := &touch{ep: ep, cluster: cluster, ci: ci, inst: inst, old: inst.value, origin: origin}
		n.touched[inst] = t
		n.touches = append(n.touches, t)
	}
	inst.value = v
}

// rollback undoes everything journaled since sp, newest first, and drops the
// frames and events queued after it.
func (n *Node) rollback(sp savepoint) {
	for i := len(n.journal) - 1; i >= sp.journal; i-- {
		u := n.journal[i]
		if u.fn != nil {
			n.guard(func() error { u.fn(); return nil })
			continue
		}
		u.inst.value = u.old
	}
	n.journal = n.journal[:sp.journal]
	clear(n.outbox[sp.outbox:])
	n.outbox = n.outbox[:sp.outbox]
	clear(n.queued[sp.queued:])
	n.queued = n.queued[:sp.queued]
}

// resetEndpoint restores every attribute of ep to its default.
func (n *Node) resetEndpoint(ep uint8) error {
	e := n.endpoints[ep]
	if e == nil {
		return zcl.Errorf(zcl.StatusNotFound, "endpoint %d not registered", ep)
	}
	for _, cid := range e.order {
		ci := e.clusters[cid]
		for _, k := range ci.order {
			inst := ci.attrs[k]
			if def := inst.def.DefaultValue(); !inst.value.Equal(def) {
				n.commit(ep, cid, ci, inst, def, OriginLocal)
			}
		}
	}
	return nil
}

// finish ends an operation: it drops the undo journal, publishes every
// attribute whose value differs from where it started, persists it and
// evaluates reporting, then sends due reports.
func (n *Node) finish() {
	now := n.clock.Now()
	for _, t := range n.touches {
		if t.inst.value.Equal(t.old) {
			continue
		}
		def := t.inst.def
		n.emit(EventAttributeChanged, AttributeEvent{
			Endpoint:     t.ep,
			Cluster:      t.cluster,
			Attribute:    def.ID,
			Manufacturer: def.Manufacturer,
			Name:         def.Name,
			Value:        t.inst.value,
			Origin:       t.origin,
		})
		if def.IsPersistent() {
			n.storeValue(t.ep, t.cluster, t.inst)
		}
		n.changed(t, now)
	}
	n.journal = n.journal[:0]
	n.touches = n.touches[:0]
	clear(n.touched)
	n.flushReports(now)
}

func attrPersistKey(ep uint8, cluster uint16, def *zcl.AttributeDef) string {
	if def.Access&zcl.AccessSingle != 0 {
		ep = 0
	}
	key := fmt.Sprintf("attr/%02X/%04X/%04X", ep, cluster, def.ID)
	if def.Manufacturer != 0 {
		key += fmt.Sprintf("/%04X", def.Manufacturer)
	}
	return key
}

// loadValue returns the persisted value of a persist-flagged attribute, or
// its default.
func (n *Node) loadValue(ep uint8, cluster uint16, def *zcl.AttributeDef) zcl.Value {
	dflt := def.DefaultValue()
	if n.persist == nil || !def.IsPersistent() {
		return dflt
	}
	key := attrPersistKey(ep, cluster, def)
	data, err := n.persist.PersistRead(key)
	if err != nil {
		n.logger.Warn("persisted attribute unreadable", "key", key, "err", err)
		return dflt
	}
	if len(data) < 1 {
		return dflt
	}
	if zcl.DataType(data[0]) != def.Type {
		n.logger.Warn("persisted attribute type changed", "key", key, "stored", zcl.DataType(data[0]), "want", def.Type)
		return dflt
	}
	v, err := zcl.Unmarshal(def.Type, data[1:])
	if err != nil || validate(def, v) != nil {
		n.logger.Warn("persisted attribute rejected", "key", key, "err", err)
		return dflt
	}
	return v
}

func (n *Node) storeValue(ep uint8, cluster uint16, inst *instance) {
	if n.persist == nil {
		return
	}
	key := attrPersistKey(ep, cluster, inst.def)
	b, err := zcl.Marshal(inst.value)
	if err == nil {
		err = n.persist.PersistWrite(key, append([]byte{byte(inst.def.Type)}, b...))
	}
	if err != nil {
		n.logger.Warn("persist attribute failed", "key", key, "err", err)
	}
}
