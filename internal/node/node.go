// Package node hosts ZCL endpoints on top of a lower-stack link: it owns the
// attribute store, dispatches inbound frames, answers profile-wide commands,
// calls cluster command handlers and drives attribute reporting.
//
// Every entry point is serialised behind one mutex. Hooks, command handlers and
// timer callbacks run with that mutex held and get a *Tx for store access.
// Outbound frames and events are queued while the mutex is held and handed to
// the link once it is released, in the order they were produced.
package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"zcl-node/internal/ncp"
	"zcl-node/internal/zcl"
)

// Reserved endpoint ids.
const (
	EndpointZDO         uint8 = 0x00
	EndpointGreenPower  uint8 = 0xF2
	EndpointBroadcast   uint8 = 0xFF
	maxEndpoint         uint8 = 0xF0
	maxWriteDepth             = 8
	defaultSendTimeout        = 5 * time.Second
	defaultReportPeriod       = time.Second
)

// GroupCapacity is the number of groups an endpoint can join.
const GroupCapacity = 16

// ErrClosed is returned by entry points after Close.
var ErrClosed = errors.New("node: closed")

// Origin tells hooks where a write came from.
type Origin string

const (
	OriginLocal  Origin = "local"
	OriginRemote Origin = "remote"
)

// Persister stores attribute values and reporting configurations flagged for
// persistence. PersistRead returns nil data and no error for an absent key;
// PersistWrite with nil data removes the key.
type Persister interface {
	PersistRead(key string) ([]byte, error)
	PersistWrite(key string, data []byte) error
}

// Destination addresses an outbound frame.
type Destination struct {
	Mode     ncp.AddrMode
	Addr     uint16 // short or group address
	IEEE     uint64
	Endpoint uint8
}

// Coordinator is the default destination for reports.
var Coordinator = Destination{Mode: ncp.AddrShort, Addr: 0x0000, Endpoint: 1}

// EndpointConfig describes a local endpoint.
type EndpointConfig struct {
	ID            uint8
	ProfileID     uint16
	DeviceID      uint16
	DeviceVersion uint8
	Servers       []uint16
	Clients       []uint16
	// DefaultReporting starts every attribute that declares reporting
	// defaults with that configuration, addressed to the report target.
	DefaultReporting bool
}

// Change describes one attribute write as seen by hooks.
type Change struct {
	Endpoint uint8
	Cluster  uint16
	Attr     *zcl.AttributeDef
	Old      zcl.Value
	New      zcl.Value
	Origin   Origin
}

// Hook inspects or reacts to an attribute write. A check hook returning an
// error rejects the write; a write hook returning an error rolls it back
// together with every write the hook made.
type Hook func(tx *Tx, c Change) error

// CommandHandler handles one cluster-specific command. The returned error is
// mapped to the default response status with zcl.StatusOf.
type CommandHandler func(tx *Tx, req *Request) error

// Request is an inbound cluster-specific command.
type Request struct {
	Endpoint uint8
	Cluster  uint16
	Source   ncp.Indication
	Header   zcl.Header
	Def      *zcl.CommandDef
	Args     zcl.Args

	responded bool
}

// Responded reports whether a specific response has been queued for req.
func (r *Request) Responded() bool { return r.responded }

type cmdKey struct {
	cluster uint16
	dir     zcl.CommandDirection
	id      uint8
	mfr     uint16
}

type attrKey struct {
	id  uint16
	mfr uint16
}

type singletonKey struct {
	cluster uint16
	attrKey
}

type instance struct {
	def    *zcl.AttributeDef
	value  zcl.Value
	report *reportState
}

type clusterInst struct {
	def    *zcl.Cluster
	server bool
	client bool
	attrs  map[attrKey]*instance
	order  []attrKey
}

func (ci *clusterInst) attr(id, mfr uint16) *instance {
	return ci.attrs[attrKey{id, mfr}]
}

// dir returns the direction of frames this cluster instance generates.
func (ci *clusterInst) dir() zcl.CommandDirection {
	if ci.server {
		return zcl.DirectionToClient
	}
	return zcl.DirectionToServer
}

type endpoint struct {
	cfg      EndpointConfig
	clusters map[uint16]*clusterInst
	order    []uint16
	groups   map[uint16]string
}

type outbound struct {
	req  ncp.DataRequest
	what string
}

// Node is a set of local ZCL endpoints bound to a link.
type Node struct {
	mu      sync.Mutex
	sendMu  sync.Mutex
	reg     *zcl.Registry
	link    ncp.Link
	logger  *slog.Logger
	clock   Clock
	persist Persister
	events  *EventBus

	frameSize    int
	sendTimeout  time.Duration
	reportPeriod time.Duration
	reportTarget Destination

	endpoints  map[uint8]*endpoint
	epOrder    []uint8
	singletons map[singletonKey]*instance
	checks     map[uint16][]Hook
	writes     map[uint16][]Hook
	handlers   map[cmdKey]CommandHandler
	receiving  map[recvKey]*recvState
	seq        uint8
	closed     bool

	// per-operation state, guarded by mu
	journal []undo
	touched map[*instance]*touch
	touches []*touch
	due     []*dueReport
	depth   int
	outbox  []outbound
	queued  []Event
}

// Option configures a Node.
type Option func(*Node)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(n *Node) { n.logger = l } }

// WithClock replaces the system clock.
func WithClock(c Clock) Option { return func(n *Node) { n.clock = c } }

// WithPersister stores persist-flagged attributes and reporting configs in p.
func WithPersister(p Persister) Option { return func(n *Node) { n.persist = p } }

// WithReportTarget sets where reports go when no peer configured them.
func WithReportTarget(d Destination) Option { return func(n *Node) { n.reportTarget = d } }

// WithFrameSize bounds every outbound frame.
func WithFrameSize(size int) Option { return func(n *Node) { n.frameSize = size } }

// WithSendTimeout bounds each link send.
func WithSendTimeout(d time.Duration) Option { return func(n *Node) { n.sendTimeout = d } }

// WithReportPeriod sets how often Run evaluates periodic reports.
func WithReportPeriod(d time.Duration) Option { return func(n *Node) { n.reportPeriod = d } }

// New creates a node over reg and link.
func New(reg *zcl.Registry, link ncp.Link, opts ...Option) *Node {
	n := &Node{
		reg:          reg,
		link:         link,
		logger:       slog.Default(),
		clock:        SystemClock{},
		frameSize:    zcl.DefaultFrameSize,
		sendTimeout:  defaultSendTimeout,
		reportPeriod: defaultReportPeriod,
		reportTarget: Coordinator,
		endpoints:    make(map[uint8]*endpoint),
		singletons:   make(map[singletonKey]*instance),
		checks:       make(map[uint16][]Hook),
		writes:       make(map[uint16][]Hook),
		handlers:     make(map[cmdKey]CommandHandler),
		receiving:    make(map[recvKey]*recvState),
		touched:      make(map[*instance]*touch),
	}
	for _, o := range opts {
		o(n)
	}
	n.events = NewEventBus(n.logger)
	return n
}

// Events returns the node's event bus.
func (n *Node) Events() *EventBus { return n.events }

// Registry returns the cluster registry.
func (n *Node) Registry() *zcl.Registry { return n.reg }

// Logger returns the node logger.
func (n *Node) Logger() *slog.Logger { return n.logger }

// Clock returns the node clock.
func (n *Node) Clock() Clock { return n.clock }

// RegisterEndpoint instantiates the attributes of every cluster cfg lists.
// A cluster missing from the registry is a configuration error.
func (n *Node) RegisterEndpoint(cfg EndpointConfig) error {
	if cfg.ID == EndpointZDO || cfg.ID > maxEndpoint {
		return fmt.Errorf("node: endpoint %d out of range", cfg.ID)
	}
	if cfg.ProfileID == 0 {
		cfg.ProfileID = ncp.ProfileHA
	}

	n.mu.Lock()
	defer n.unlock()
	if n.closed {
		return ErrClosed
	}
	if _, ok := n.endpoints[cfg.ID]; ok {
		return fmt.Errorf("node: endpoint %d already registered", cfg.ID)
	}

	ep := &endpoint{cfg: cfg, clusters: make(map[uint16]*clusterInst), groups: make(map[uint16]string)}
	add := func(id uint16, server bool) error {
		def := n.reg.Cluster(id)
		if def == nil {
			return fmt.Errorf("node: endpoint %d cluster 0x%04X: %w", cfg.ID, id, zcl.ErrUnknownCluster)
		}
		ci := ep.clusters[id]
		if ci == nil {
			ci = n.instantiate(cfg.ID, def)
			ep.clusters[id] = ci
			ep.order = append(ep.order, id)
		}
		if server {
			ci.server = true
		} else {
			ci.client = true
		}
		return nil
	}
	for _, id := range cfg.Servers {
		if err := add(id, true); err != nil {
			return err
		}
	}
	for _, id := range cfg.Clients {
		if err := add(id, false); err != nil {
			return err
		}
	}
	sort.Slice(ep.order, func(i, j int) bool { return ep.order[i] < ep.order[j] })

	n.endpoints[cfg.ID] = ep
	n.epOrder = append(n.epOrder, cfg.ID)
	sort.Slice(n.epOrder, func(i, j int) bool { return n.epOrder[i] < n.epOrder[j] })

	now := n.clock.Now()
	for _, cid := range ep.order {
		ci := ep.clusters[cid]
		for _, k := range ci.order {
			inst := ci.attrs[k]
			if inst.report != nil || !inst.def.IsReportable() {
				continue
			}
			if rc, ok := n.loadReporting(cfg.ID, cid, inst, now); ok {
				inst.report = rc
				continue
			}
			if cfg.DefaultReporting && inst.def.Report != nil {
				inst.report = newReportState(inst.def, inst.def.Report.Min, inst.def.Report.Max, inst.def.Report.Change, n.reportTarget, inst.value, now)
			}
		}
	}
	n.logger.Info("endpoint registered", "endpoint", cfg.ID, "device", fmt.Sprintf("0x%04X", cfg.DeviceID), "clusters", len(ep.order))
	return nil
}

func (n *Node) instantiate(ep uint8, def *zcl.Cluster) *clusterInst {
	ci := &clusterInst{def: def, attrs: make(map[attrKey]*instance)}
	table := def.Attributes()
	for i := range table {
		a := &table[i]
		k := attrKey{a.ID, a.Manufacturer}
		var inst *instance
		if a.Access&zcl.AccessSingle != 0 {
			sk := singletonKey{def.ID, k}
			inst = n.singletons[sk]
			if inst == nil {
				inst = &instance{def: a, value: n.loadValue(ep, def.ID, a)}
				n.singletons[sk] = inst
			}
		} else {
			inst = &instance{def: a, value: n.loadValue(ep, def.ID, a)}
		}
		ci.attrs[k] = inst
		ci.order = append(ci.order, k)
	}
	return ci
}

// Announce registers every local endpoint with the lower stack.
func (n *Node) Announce(ctx context.Context) error {
	n.mu.Lock()
	var sds []ncp.SimpleDescriptor
	for _, id := range n.epOrder {
		ep := n.endpoints[id]
		sd := ncp.SimpleDescriptor{
			Endpoint:  id,
			ProfileID: ep.cfg.ProfileID,
			DeviceID:  ep.cfg.DeviceID,
			Version:   ep.cfg.DeviceVersion,
		}
		for _, cid := range ep.order {
			ci := ep.clusters[cid]
			if ci.server {
				sd.InClusters = append(sd.InClusters, cid)
			}
			if ci.client {
				sd.OutClusters = append(sd.OutClusters, cid)
			}
		}
		sds = append(sds, sd)
	}
	n.mu.Unlock()

	for _, sd := range sds {
		if err := n.link.RegisterEndpoint(ctx, sd); err != nil {
			return fmt.Errorf("announce endpoint %d: %w", sd.Endpoint, err)
		}
	}
	return nil
}

// Endpoints returns the registered endpoint ids in ascending order.
func (n *Node) Endpoints() []uint8 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]uint8(nil), n.epOrder...)
}

// Endpoint returns the configuration of ep.
func (n *Node) Endpoint(ep uint8) (EndpointConfig, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	e := n.endpoints[ep]
	if e == nil {
		return EndpointConfig{}, false
	}
	return e.cfg, true
}

// SendDirection returns the direction of commands sent from the local side
// of cluster on ep: a server cluster talks to clients, anything else to
// servers.
func (n *Node) SendDirection(ep uint8, cluster uint16) zcl.CommandDirection {
	n.mu.Lock()
	defer n.mu.Unlock()
	if e := n.endpoints[ep]; e != nil && slices.Contains(e.cfg.Servers, cluster) {
		return zcl.DirectionToClient
	}
	return zcl.DirectionToServer
}

// OnCheck adds a check hook for cluster.
func (n *Node) OnCheck(cluster uint16, h Hook) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.checks[cluster] = append(n.checks[cluster], h)
}

// OnWrite adds a post-write hook for cluster.
func (n *Node) OnWrite(cluster uint16, h Hook) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.writes[cluster] = append(n.writes[cluster], h)
}

// HandleCommand installs the handler for a standard cluster command arriving
// in dir. A later call for the same command replaces the handler.
func (n *Node) HandleCommand(cluster uint16, dir zcl.CommandDirection, cmd uint8, h CommandHandler) {
	n.HandleManufacturerCommand(cluster, dir, cmd, 0, h)
}

// HandleManufacturerCommand installs the handler for a manufacturer-specific command.
func (n *Node) HandleManufacturerCommand(cluster uint16, dir zcl.CommandDirection, cmd uint8, mfr uint16, h CommandHandler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[cmdKey{cluster, dir, cmd, mfr}] = h
}

// Do runs fn with the node locked. Writes fn makes are reported and persisted
// once it returns, whether or not it fails.
func (n *Node) Do(fn func(tx *Tx) error) error {
	n.mu.Lock()
	defer n.unlock()
	if n.closed {
		return ErrClosed
	}
	defer n.finish()
	return n.guard(func() error { return fn(&Tx{n: n}) })
}

// ReadAttribute returns the current value of a standard attribute.
func (n *Node) ReadAttribute(ep uint8, cluster, attr uint16) (zcl.Value, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	inst, err := n.lookup(ep, cluster, attr, 0)
	if err != nil {
		return zcl.Value{}, err
	}
	return inst.value, nil
}

// WriteAttribute writes a standard attribute with local origin. Access bits
// are not enforced; type, bounds and check hooks are.
func (n *Node) WriteAttribute(ep uint8, cluster, attr uint16, v zcl.Value) error {
	return n.Do(func(tx *Tx) error { return tx.Set(ep, cluster, attr, v) })
}

// Close stops the node. Pending timers become no-ops. The link is not closed.
func (n *Node) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	return nil
}

// guard runs fn and turns a panic into a software-failure status.
func (n *Node) guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("handler panic", "panic", r)
			err = zcl.Errorf(zcl.StatusSoftwareFailure, "panic: %v", r)
		}
	}()
	return fn()
}

func (n *Node) nextSeq() uint8 {
	n.seq++
	return n.seq
}

func (n *Node) emit(typ string, data any) {
	n.queued = append(n.queued, Event{Type: typ, Data: data})
}

func (n *Node) queue(req ncp.DataRequest, what string) {
	n.outbox = append(n.outbox, outbound{req: req, what: what})
}

// unlock releases n.mu and delivers what the operation queued. Frames go out
// under sendMu so operations reach the link in lock order; events follow once
// sendMu is released so handlers may call back into the node.
func (n *Node) unlock() {
	out, evs := n.outbox, n.queued
	n.outbox, n.queued = nil, nil
	if len(out) == 0 {
		n.mu.Unlock()
	} else {
		n.sendMu.Lock()
		n.mu.Unlock()
		for _, o := range out {
			n.transmit(o)
		}
		n.sendMu.Unlock()
	}
	for _, e := range evs {
		n.events.Emit(e)
	}
}

func (n *Node) transmit(o outbound) {
	ctx, cancel := context.WithTimeout(context.Background(), n.sendTimeout)
	defer cancel()
	if _, err := n.link.Send(ctx, o.req); err != nil {
		n.logger.Warn("send failed", "what", o.what, "dst", fmt.Sprintf("0x%04X", o.req.DstAddr),
			"cluster", fmt.Sprintf("0x%04X", o.req.Cluster), "err", err)
		n.events.Emit(Event{Type: EventSendError, Data: ErrorEvent{Cluster: o.req.Cluster, Peer: o.req.DstAddr, Error: err.Error()}})
		return
	}
	n.logger.Debug("frame sent", "what", o.what, "dst", fmt.Sprintf("0x%04X", o.req.DstAddr),
		"cluster", fmt.Sprintf("0x%04X", o.req.Cluster), "len", len(o.req.Payload))
}

// Run consumes indications until ctx is done or in is closed, and evaluates
// periodic reports on a ticker.
func (n *Node) Run(ctx context.Context, in <-chan ncp.Indication) error {
	ticker := time.NewTicker(n.reportPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ind, ok := <-in:
			if !ok {
				return nil
			}
			if err := n.Deliver(ind); err != nil {
				n.logger.Debug("frame rejected", "src", fmt.Sprintf("0x%04X", ind.SrcAddr), "err", err)
			}
		case <-ticker.C:
			n.ReportTick(n.clock.Now())
		}
	}
}
