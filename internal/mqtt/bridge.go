//go:build !no_mqtt

package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"zcl-node/internal/ncp"
	"zcl-node/internal/node"
	"zcl-node/internal/zcl"
	"zcl-node/internal/zcl/clusters"
)

// Config holds MQTT bridge configuration.
type Config struct {
	Broker      string
	Username    string
	Password    string
	TopicPrefix string
	NodeID      string // HA node id and MQTT client id
	Name        string // HA device name
}

// Bridge mirrors the local endpoints of a node to MQTT with HA autodiscovery.
//
// Topics, relative to the prefix:
//
//	bridge/state               online/offline, retained
//	bridge/event               non-attribute node events
//	<ep>                       HA state object, retained
//	<ep>/set                   HA commands ({"state": "ON", "brightness": 128})
//	<ep>/<cluster>             attribute values by name, retained
//	<ep>/<cluster>/set         attribute writes by name or 0xNNNN id
//	<ep>/<cluster>/command     {"command": name|id, "dst": {...}, "fields": {...}}
//	<ep>/<cluster>/result      outcome of set and command requests
type Bridge struct {
	client pahomqtt.Client
	node   *node.Node
	prefix string
	nodeID string
	name   string
	logger *slog.Logger
	unsub  func()

	mu       sync.Mutex
	clusters map[string]map[string]any // "<ep>/<cluster>" -> attribute name -> value
	states   map[uint8]map[string]any  // endpoint -> HA property map
}

// NewBridge creates and connects an MQTT bridge.
func NewBridge(n *node.Node, cfg Config, logger *slog.Logger) (*Bridge, error) {
	b := newBridge(n, nil, cfg, logger)

	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(b.nodeID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(b.prefix+"/bridge/state", "offline", 1, true).
		SetOnConnectHandler(func(_ pahomqtt.Client) {
			b.logger.Info("MQTT connected")
			b.publishBridgeState("online")
			b.publishAll()
			b.subscribeCommands()
		}).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			b.logger.Warn("MQTT connection lost", "err", err)
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	// The connect handler may fire before Connect returns.
	b.client = pahomqtt.NewClient(opts)
	token := b.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return b, nil
}

func newBridge(n *node.Node, client pahomqtt.Client, cfg Config, logger *slog.Logger) *Bridge {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "zcl-node"
	}
	if cfg.NodeID == "" {
		cfg.NodeID = "zcl_node"
	}
	if cfg.Name == "" {
		cfg.Name = cfg.NodeID
	}
	return &Bridge{
		client:   client,
		node:     n,
		prefix:   cfg.TopicPrefix,
		nodeID:   sanitize(cfg.NodeID),
		name:     cfg.Name,
		logger:   logger.With("component", "mqtt"),
		clusters: make(map[string]map[string]any),
		states:   make(map[uint8]map[string]any),
	}
}

// Start subscribes to node events and begins MQTT publishing.
func (b *Bridge) Start() {
	b.unsub = b.node.Events().OnAll(b.handleEvent)
	b.logger.Info("MQTT bridge started", "prefix", b.prefix)
}

// Stop publishes offline state, unsubscribes, and disconnects.
func (b *Bridge) Stop() {
	if b.unsub != nil {
		b.unsub()
	}
	b.publishBridgeState("offline")
	b.client.Disconnect(1000)
	b.logger.Info("MQTT bridge stopped")
}

// RemoveDiscovery clears the retained HA entities of ep.
func (b *Bridge) RemoveDiscovery(ep uint8) {
	for _, msg := range buildRemoveDiscovery(b.nodeID, ep) {
		b.publish(msg.Topic, msg.Payload, true)
	}
	b.mu.Lock()
	delete(b.states, ep)
	b.mu.Unlock()
}

func (b *Bridge) handleEvent(event node.Event) {
	if event.Type == node.EventAttributeChanged {
		if ae, ok := event.Data.(node.AttributeEvent); ok {
			b.handleAttribute(ae)
		}
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		b.logger.Warn("marshal event", "type", event.Type, "err", err)
		return
	}
	b.publish(b.prefix+"/bridge/event", payload, false)
}

func (b *Bridge) handleAttribute(ae node.AttributeEvent) {
	if ae.Manufacturer != 0 {
		return
	}
	b.updateCluster(ae.Endpoint, ae.Cluster, map[string]any{ae.Name: ae.Value.Interface()})
	if p := lookupProperty(ae.Cluster, ae.Attribute); p != nil {
		b.updateState(ae.Endpoint, map[string]any{p.name: p.convert(ae.Value)})
	}
}

func clusterKey(ep uint8, cluster uint16) string {
	return fmt.Sprintf("%d/%04X", ep, cluster)
}

func (b *Bridge) updateCluster(ep uint8, cluster uint16, values map[string]any) {
	key := clusterKey(ep, cluster)
	b.mu.Lock()
	state, ok := b.clusters[key]
	if !ok {
		state = make(map[string]any)
		b.clusters[key] = state
	}
	for k, v := range values {
		state[k] = v
	}
	payload := mustJSON(state)
	b.mu.Unlock()

	b.publish(b.prefix+"/"+key, payload, true)
}

func (b *Bridge) updateState(ep uint8, values map[string]any) {
	b.mu.Lock()
	state, ok := b.states[ep]
	if !ok {
		state = make(map[string]any)
		b.states[ep] = state
	}
	for k, v := range values {
		state[k] = v
	}
	payload := mustJSON(state)
	b.mu.Unlock()

	b.publish(fmt.Sprintf("%s/%d", b.prefix, ep), payload, true)
}

func (b *Bridge) publishBridgeState(state string) {
	b.publish(b.prefix+"/bridge/state", []byte(state), true)
}

// device builds the HA device block from the Basic cluster of ep.
func (b *Bridge) device(ep uint8) haDevice {
	dev := haDevice{Identifiers: []string{b.nodeID}, Name: b.name}
	if v, err := b.node.ReadAttribute(ep, clusters.Basic.ID, clusters.BasicManufacturerName); err == nil {
		dev.Manufacturer = v.Str()
	}
	if v, err := b.node.ReadAttribute(ep, clusters.Basic.ID, clusters.BasicModelIdentifier); err == nil {
		dev.Model = v.Str()
	}
	if v, err := b.node.ReadAttribute(ep, clusters.Basic.ID, clusters.BasicSWBuildID); err == nil {
		dev.SWVersion = v.Str()
	}
	return dev
}

// publishAll publishes discovery and the current value of every attribute of
// every local server cluster.
func (b *Bridge) publishAll() {
	reg := b.node.Registry()
	for _, ep := range b.node.Endpoints() {
		cfg, ok := b.node.Endpoint(ep)
		if !ok {
			continue
		}
		for _, msg := range buildDiscovery(b.nodeID, ep, cfg.Servers, b.device(ep), b.prefix) {
			b.publish(msg.Topic, msg.Payload, true)
		}

		props := make(map[string]any)
		for _, id := range cfg.Servers {
			c := reg.Cluster(id)
			if c == nil {
				continue
			}
			values := make(map[string]any)
			for _, def := range c.Attributes() {
				if def.Manufacturer != 0 || !def.IsReadable() {
					continue
				}
				v, err := b.node.ReadAttribute(ep, id, def.ID)
				if err != nil {
					continue
				}
				values[def.Name] = v.Interface()
				if p := lookupProperty(id, def.ID); p != nil {
					props[p.name] = p.convert(v)
				}
			}
			if len(values) > 0 {
				b.updateCluster(ep, id, values)
			}
		}
		if len(props) > 0 {
			b.updateState(ep, props)
		}
		b.logger.Info("published HA discovery", "endpoint", ep, "clusters", len(cfg.Servers))
	}
}

func (b *Bridge) subscribeCommands() {
	subs := map[string]func(topic string, payload []byte){
		b.prefix + "/+/set":       b.handleStateCommand,
		b.prefix + "/+/+/set":     b.handleAttributeSet,
		b.prefix + "/+/+/command": b.handleClusterCommand,
	}
	for filter, fn := range subs {
		fn := fn
		token := b.client.Subscribe(filter, 1, func(_ pahomqtt.Client, msg pahomqtt.Message) {
			fn(msg.Topic(), msg.Payload())
		})
		go func(filter string) {
			if !token.WaitTimeout(5*time.Second) || token.Error() != nil {
				b.logger.Warn("MQTT subscribe failed", "topic", filter, "err", token.Error())
			}
		}(filter)
	}
}

// parseTopic splits "<prefix>/<ep>[/<cluster>]/<verb>".
func (b *Bridge) parseTopic(topic string) (ep uint8, cluster uint16, hasCluster bool, err error) {
	rest, ok := strings.CutPrefix(topic, b.prefix+"/")
	if !ok {
		return 0, 0, false, fmt.Errorf("topic %q outside prefix", topic)
	}
	parts := strings.Split(rest, "/")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, false, fmt.Errorf("topic %q: unexpected shape", topic)
	}
	e, err := strconv.ParseUint(parts[0], 10, 8)
	if err != nil {
		return 0, 0, false, fmt.Errorf("topic %q: endpoint: %w", topic, err)
	}
	if len(parts) == 2 {
		return uint8(e), 0, false, nil
	}
	c, err := strconv.ParseUint(parts[1], 16, 16)
	if err != nil {
		return 0, 0, false, fmt.Errorf("topic %q: cluster: %w", topic, err)
	}
	return uint8(e), uint16(c), true, nil
}

type result struct {
	OK     bool              `json:"ok"`
	Seq    *uint8            `json:"seq,omitempty"`
	Status string            `json:"status,omitempty"`
	Error  string            `json:"error,omitempty"`
	Fields map[string]string `json:"fields,omitempty"` // per-attribute statuses
}

func (b *Bridge) publishResult(ep uint8, cluster uint16, r result) {
	b.publish(fmt.Sprintf("%s/%s/result", b.prefix, clusterKey(ep, cluster)), mustJSON(r), false)
}

func errResult(err error) result {
	return result{Status: zcl.StatusOf(err).String(), Error: err.Error()}
}

// attributeByKey resolves a name or "0xNNNN" id within a cluster.
func attributeByKey(c *zcl.Cluster, key string) *zcl.AttributeDef {
	if s, ok := strings.CutPrefix(strings.ToLower(key), "0x"); ok {
		id, err := strconv.ParseUint(s, 16, 16)
		if err != nil {
			return nil
		}
		return c.Attribute(uint16(id), 0)
	}
	for _, def := range c.Attributes() {
		if def.Manufacturer == 0 && strings.EqualFold(def.Name, key) {
			return c.Attribute(def.ID, 0)
		}
	}
	return nil
}

// handleAttributeSet writes every attribute of the payload in one node
// transaction. Each attribute is checked and written on its own; the
// per-attribute statuses are published as the result.
func (b *Bridge) handleAttributeSet(topic string, payload []byte) {
	ep, cluster, _, err := b.parseTopic(topic)
	if err != nil {
		b.logger.Warn("bad set topic", "topic", topic, "err", err)
		return
	}
	var values map[string]any
	if err := json.Unmarshal(payload, &values); err != nil {
		b.publishResult(ep, cluster, result{Error: "invalid JSON: " + err.Error()})
		return
	}
	fields, err := b.writeAttributes(ep, cluster, values)
	if err != nil {
		b.publishResult(ep, cluster, errResult(err))
		return
	}
	r := result{OK: true, Fields: fields}
	for _, s := range fields {
		if s != zcl.StatusSuccess.String() {
			r.OK = false
		}
	}
	b.publishResult(ep, cluster, r)
}

func (b *Bridge) writeAttributes(ep uint8, cluster uint16, values map[string]any) (map[string]string, error) {
	c := b.node.Registry().Cluster(cluster)
	if c == nil {
		return nil, zcl.Errorf(zcl.StatusUnsupportedCluster, "cluster 0x%04X", cluster)
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	fields := make(map[string]string, len(values))
	err := b.node.Do(func(tx *node.Tx) error {
		if !tx.HasCluster(ep, cluster) {
			return zcl.Errorf(zcl.StatusUnsupportedCluster, "endpoint %d has no cluster 0x%04X", ep, cluster)
		}
		for _, k := range keys {
			def := attributeByKey(c, k)
			if def == nil {
				fields[k] = zcl.StatusUnsupportedAttribute.String()
				continue
			}
			v, err := zcl.FromInterface(def.Type, values[k])
			if err != nil {
				fields[k] = zcl.StatusInvalidDataType.String()
				continue
			}
			fields[k] = zcl.StatusOf(tx.Set(ep, cluster, def.ID, v)).String()
		}
		return nil
	})
	return fields, err
}

type commandRequest struct {
	Command json.RawMessage `json:"command"`
	Dst     *dstSpec        `json:"dst,omitempty"`
	Fields  map[string]any  `json:"fields,omitempty"`
}

type dstSpec struct {
	Addr     *uint16 `json:"addr,omitempty"`
	Group    *uint16 `json:"group,omitempty"`
	IEEE     string  `json:"ieee,omitempty"`
	Endpoint uint8   `json:"endpoint,omitempty"`
}

func (d *dstSpec) destination() (node.Destination, error) {
	switch {
	case d == nil:
		return node.Coordinator, nil
	case d.Group != nil:
		return node.Destination{Mode: ncp.AddrGroup, Addr: *d.Group}, nil
	case d.IEEE != "":
		v, err := zcl.FromInterface(zcl.TypeEUI64, d.IEEE)
		if err != nil {
			return node.Destination{}, err
		}
		return node.Destination{Mode: ncp.AddrIEEE, IEEE: v.Uint(), Endpoint: d.Endpoint}, nil
	case d.Addr != nil:
		return node.Destination{Mode: ncp.AddrShort, Addr: *d.Addr, Endpoint: d.Endpoint}, nil
	}
	return node.Destination{}, errors.New("dst needs addr, group or ieee")
}

// resolveCommand finds a command by name or id, preferring the direction
// the local side of the cluster sends.
func resolveCommand(c *zcl.Cluster, raw json.RawMessage, dir zcl.CommandDirection) (*zcl.CommandDef, error) {
	var id float64
	if err := json.Unmarshal(raw, &id); err == nil {
		if id < 0 || id > 0xFF {
			return nil, zcl.Errorf(zcl.StatusInvalidField, "command %v out of range", id)
		}
		if def := c.Command(uint8(id), dir, 0); def != nil {
			return def, nil
		}
		return nil, zcl.Errorf(zcl.StatusUnsupClusterCommand, "cluster 0x%04X has no %s command 0x%02X", c.ID, dir, uint8(id))
	}
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return nil, zcl.Errorf(zcl.StatusInvalidField, "command must be a name or id")
	}
	for _, def := range c.Commands(dir) {
		if def.Manufacturer == 0 && strings.EqualFold(def.Name, name) {
			return c.Command(def.ID, dir, 0), nil
		}
	}
	return nil, zcl.Errorf(zcl.StatusUnsupClusterCommand, "cluster 0x%04X has no %s command %q", c.ID, dir, name)
}

func (b *Bridge) handleClusterCommand(topic string, payload []byte) {
	ep, cluster, _, err := b.parseTopic(topic)
	if err != nil {
		b.logger.Warn("bad command topic", "topic", topic, "err", err)
		return
	}
	var req commandRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		b.publishResult(ep, cluster, result{Error: "invalid JSON: " + err.Error()})
		return
	}
	seq, err := b.sendCommand(ep, cluster, req)
	if err != nil {
		b.logger.Warn("command failed", "endpoint", ep, "cluster", fmt.Sprintf("0x%04X", cluster), "err", err)
		b.publishResult(ep, cluster, errResult(err))
		return
	}
	b.publishResult(ep, cluster, result{OK: true, Seq: &seq, Status: zcl.StatusSuccess.String()})
}

func (b *Bridge) sendCommand(ep uint8, cluster uint16, req commandRequest) (uint8, error) {
	if _, ok := b.node.Endpoint(ep); !ok {
		return 0, zcl.Errorf(zcl.StatusNotFound, "endpoint %d", ep)
	}
	c := b.node.Registry().Cluster(cluster)
	if c == nil {
		return 0, zcl.Errorf(zcl.StatusUnsupportedCluster, "cluster 0x%04X", cluster)
	}
	dir := b.node.SendDirection(ep, cluster)
	def, err := resolveCommand(c, req.Command, dir)
	if err != nil {
		return 0, err
	}
	dst, err := req.Dst.destination()
	if err != nil {
		return 0, zcl.Errorf(zcl.StatusInvalidField, "%v", err)
	}
	args, err := zcl.ArgsFromMap(def.Params, req.Fields)
	if err != nil {
		return 0, err
	}
	builder, err := b.node.Registry().Build(cluster, def.ID, dir)
	if err != nil {
		return 0, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return b.node.SendCommand(ctx, node.Command{Endpoint: ep, Dst: dst, Frame: builder.Args(args)})
}

// handleStateCommand applies an HA command to the local OnOff and Level
// attributes of the endpoint.
func (b *Bridge) handleStateCommand(topic string, payload []byte) {
	ep, _, _, err := b.parseTopic(topic)
	if err != nil {
		b.logger.Warn("bad state topic", "topic", topic, "err", err)
		return
	}
	var cmd map[string]any
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.logger.Warn("invalid command JSON", "endpoint", ep, "err", err)
		return
	}

	err = b.node.Do(func(tx *node.Tx) error {
		if state, ok := cmd["state"].(string); ok {
			var on bool
			switch strings.ToUpper(state) {
			case "ON":
				on = true
			case "OFF":
			case "TOGGLE":
				on = !tx.Value(ep, clusters.OnOff.ID, clusters.OnOffAttr).Bool()
			default:
				return fmt.Errorf("unknown state %q", state)
			}
			if err := tx.Set(ep, clusters.OnOff.ID, clusters.OnOffAttr, zcl.Bool(on)); err != nil {
				return err
			}
		}
		if brightness, ok := toFloat64(cmd["brightness"]); ok {
			level := min(max(brightness, 1), 254)
			if err := tx.Set(ep, clusters.LevelControl.ID, clusters.LevelCurrentLevel, zcl.U8(uint8(level))); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		b.logger.Warn("state command failed", "endpoint", ep, "err", err)
	}
}

func (b *Bridge) publish(topic string, payload []byte, retained bool) {
	token := b.client.Publish(topic, 1, retained, payload)
	go func() {
		if !token.WaitTimeout(5 * time.Second) {
			b.logger.Warn("MQTT publish timeout", "topic", topic)
		} else if err := token.Error(); err != nil {
			b.logger.Warn("MQTT publish error", "topic", topic, "err", err)
		}
	}()
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint8:
		return float64(n), true
	default:
		return 0, false
	}
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
