//go:build !no_mqtt

package mqtt

import (
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"zcl-node/internal/ncp"
	"zcl-node/internal/node"
	"zcl-node/internal/zcl"
	"zcl-node/internal/zcl/clusters"
)

type doneToken struct{}

func (doneToken) Wait() bool                     { return true }
func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (doneToken) Error() error { return nil }

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type published struct {
	payload  []byte
	retained bool
}

// fakeClient records publishes and routes deliveries to subscriptions.
type fakeClient struct {
	pahomqtt.Client

	mu   sync.Mutex
	last map[string]published
	subs map[string]pahomqtt.MessageHandler
}

func newFakeClient() *fakeClient {
	return &fakeClient{last: make(map[string]published), subs: make(map[string]pahomqtt.MessageHandler)}
}

func (c *fakeClient) Publish(topic string, _ byte, retained bool, payload any) pahomqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	var b []byte
	switch p := payload.(type) {
	case []byte:
		b = p
	case string:
		b = []byte(p)
	}
	c.last[topic] = published{payload: b, retained: retained}
	return doneToken{}
}

func (c *fakeClient) Subscribe(filter string, _ byte, cb pahomqtt.MessageHandler) pahomqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs[filter] = cb
	return doneToken{}
}

func (c *fakeClient) Disconnect(uint) {}

func matchTopic(filter, topic string) bool {
	f, t := strings.Split(filter, "/"), strings.Split(topic, "/")
	if len(f) != len(t) {
		return false
	}
	for i := range f {
		if f[i] != "+" && f[i] != t[i] {
			return false
		}
	}
	return true
}

func (c *fakeClient) deliver(t *testing.T, topic, payload string) {
	t.Helper()
	c.mu.Lock()
	var cb pahomqtt.MessageHandler
	for filter, h := range c.subs {
		if matchTopic(filter, topic) {
			cb = h
		}
	}
	c.mu.Unlock()
	if cb == nil {
		t.Fatalf("no subscription matches %s", topic)
	}
	cb(c, fakeMessage{topic: topic, payload: []byte(payload)})
}

func (c *fakeClient) json(t *testing.T, topic string) map[string]any {
	t.Helper()
	c.mu.Lock()
	p, ok := c.last[topic]
	c.mu.Unlock()
	if !ok {
		t.Fatalf("nothing published on %s", topic)
	}
	var m map[string]any
	if err := json.Unmarshal(p.payload, &m); err != nil {
		t.Fatalf("unmarshal %s: %v", topic, err)
	}
	return m
}

type fixture struct {
	n      *node.Node
	link   *ncp.Loopback
	client *fakeClient
	bridge *Bridge
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := zcl.NewRegistry(logger)
	if err := clusters.RegisterAll(reg); err != nil {
		t.Fatal(err)
	}
	f := &fixture{link: ncp.NewLoopback(8), client: newFakeClient()}
	f.n = node.New(reg, f.link, node.WithLogger(logger), node.WithClock(node.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))))
	eps := []node.EndpointConfig{
		{ID: 1, ProfileID: ncp.ProfileHA, DeviceID: 0x0101, Servers: []uint16{clusters.Basic.ID, clusters.OnOff.ID, clusters.LevelControl.ID}},
		{ID: 2, ProfileID: ncp.ProfileHA, DeviceID: 0x0103, Clients: []uint16{clusters.OnOff.ID}},
		{ID: 3, ProfileID: ncp.ProfileHA, DeviceID: 0x0302, Servers: []uint16{clusters.TemperatureMeasurement.ID, clusters.RelativeHumidity.ID}},
	}
	for _, ep := range eps {
		if err := f.n.RegisterEndpoint(ep); err != nil {
			t.Fatal(err)
		}
	}
	f.bridge = newBridge(f.n, f.client, Config{TopicPrefix: "zcl-node", NodeID: "Kitchen Node", Name: "Kitchen"}, logger)
	f.bridge.Start()
	f.bridge.subscribeCommands()
	t.Cleanup(func() {
		f.bridge.Stop()
		f.n.Close()
	})
	return f
}

func TestDiscoveryLight(t *testing.T) {
	dev := haDevice{Identifiers: []string{"zcl_node"}, Name: "Lamp", Manufacturer: "ACME"}
	msgs := buildDiscovery("zcl_node", 1, []uint16{0x0000, 0x0006, 0x0008}, dev, "zcl-node")
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Topic != "homeassistant/light/zcl_node/1_light/config" {
		t.Errorf("topic = %q", msgs[0].Topic)
	}

	var payload haDiscovery
	if err := json.Unmarshal(msgs[0].Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.UniqueID != "zcl_node_1_light" {
		t.Errorf("unique_id = %q", payload.UniqueID)
	}
	if payload.StateTopic != "zcl-node/1" {
		t.Errorf("state_topic = %q", payload.StateTopic)
	}
	if payload.CommandTopic != "zcl-node/1/set" {
		t.Errorf("command_topic = %q", payload.CommandTopic)
	}
	if payload.BrightnessScale != 254 {
		t.Errorf("brightness_scale = %d", payload.BrightnessScale)
	}
	if payload.Device.Manufacturer != "ACME" {
		t.Errorf("device.manufacturer = %q", payload.Device.Manufacturer)
	}
}

func TestDiscoverySwitchWithoutLevel(t *testing.T) {
	msgs := buildDiscovery("n", 4, []uint16{0x0006}, haDevice{Name: "Plug"}, "p")
	if len(msgs) != 1 || msgs[0].Topic != "homeassistant/switch/n/4_switch/config" {
		t.Fatalf("unexpected discovery: %+v", msgs)
	}
	var payload haDiscovery
	if err := json.Unmarshal(msgs[0].Payload, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.PayloadOn != `{"state":"ON"}` {
		t.Errorf("payload_on = %q", payload.PayloadOn)
	}
}

func TestDiscoverySensors(t *testing.T) {
	msgs := buildDiscovery("n", 3, []uint16{0x0402, 0x0405, 0x0406}, haDevice{Name: "Room"}, "p")
	byTopic := make(map[string]haDiscovery)
	for _, m := range msgs {
		var payload haDiscovery
		if err := json.Unmarshal(m.Payload, &payload); err != nil {
			t.Fatal(err)
		}
		byTopic[m.Topic] = payload
	}
	if len(byTopic) != 3 {
		t.Fatalf("expected 3 entities, got %d", len(byTopic))
	}

	temp, ok := byTopic["homeassistant/sensor/n/3_temperature/config"]
	if !ok {
		t.Fatal("temperature discovery not found")
	}
	if temp.Name != "Room Temperature" {
		t.Errorf("name = %q", temp.Name)
	}
	if temp.UnitOfMeasurement != "°C" || temp.DeviceClass != "temperature" || temp.StateClass != "measurement" {
		t.Errorf("unexpected temperature payload: %+v", temp)
	}
	if temp.ValueTemplate != "{{ value_json.temperature }}" {
		t.Errorf("value_template = %q", temp.ValueTemplate)
	}

	occ, ok := byTopic["homeassistant/binary_sensor/n/3_occupancy/config"]
	if !ok {
		t.Fatal("occupancy discovery not found")
	}
	if occ.PayloadOn != "ON" || occ.UnitOfMeasurement != "" {
		t.Errorf("unexpected occupancy payload: %+v", occ)
	}
}

func TestRemoveDiscovery(t *testing.T) {
	msgs := buildRemoveDiscovery("n", 2)
	found := false
	for _, m := range msgs {
		if len(m.Payload) != 0 {
			t.Errorf("%s: payload should be empty", m.Topic)
		}
		if m.Topic == "homeassistant/sensor/n/2_temperature/config" {
			found = true
		}
	}
	if !found {
		t.Error("temperature removal missing")
	}
}

func TestPropertyConverters(t *testing.T) {
	tests := []struct {
		cluster, attr uint16
		v             zcl.Value
		name          string
		want          any
	}{
		{0x0006, 0x0000, zcl.Bool(true), "state", "ON"},
		{0x0006, 0x0000, zcl.Bool(false), "state", "OFF"},
		{0x0008, 0x0000, zcl.U8(128), "brightness", uint64(128)},
		{0x0402, 0x0000, zcl.S16(2150), "temperature", 21.5},
		{0x0402, 0x0000, zcl.S16(-550), "temperature", -5.5},
		{0x0402, 0x0000, zcl.Invalid(zcl.TypeInt16), "temperature", nil},
		{0x0405, 0x0000, zcl.U16(4512), "humidity", 45.12},
		{0x0400, 0x0000, zcl.U16(10001), "illuminance", 10.0},
		{0x0400, 0x0000, zcl.U16(0), "illuminance", nil},
		{0x0406, 0x0000, zcl.M8(0x01), "occupancy", true},
		{0x0001, 0x0021, zcl.U8(200), "battery", 100.0},
		{0x0500, 0x0002, zcl.M16(0x0004), "zone_status", false},
	}
	for _, tt := range tests {
		p := lookupProperty(tt.cluster, tt.attr)
		if p == nil {
			t.Fatalf("no property for 0x%04X/0x%04X", tt.cluster, tt.attr)
		}
		if p.name != tt.name {
			t.Errorf("0x%04X/0x%04X name = %q, want %q", tt.cluster, tt.attr, p.name, tt.name)
		}
		if got := p.convert(tt.v); got != tt.want {
			t.Errorf("%s(%v) = %v (%T), want %v (%T)", tt.name, tt.v, got, got, tt.want, tt.want)
		}
	}
	if lookupProperty(0x0006, 0x4003) != nil {
		t.Error("StartUpOnOff should not map to a property")
	}
}

func TestSanitize(t *testing.T) {
	if got := sanitize("Kitchen Node"); got != "kitchen_node" {
		t.Errorf("sanitize = %q", got)
	}
}

func TestParseTopic(t *testing.T) {
	b := &Bridge{prefix: "zcl-node"}
	ep, cluster, has, err := b.parseTopic("zcl-node/3/0402/set")
	if err != nil || ep != 3 || cluster != 0x0402 || !has {
		t.Errorf("got %d 0x%04X %v %v", ep, cluster, has, err)
	}
	ep, _, has, err = b.parseTopic("zcl-node/7/set")
	if err != nil || ep != 7 || has {
		t.Errorf("got %d %v %v", ep, has, err)
	}
	for _, bad := range []string{"other/1/set", "zcl-node/x/set", "zcl-node/1/zz/set", "zcl-node/1/2/3/set"} {
		if _, _, _, err := b.parseTopic(bad); err == nil {
			t.Errorf("%s: expected error", bad)
		}
	}
}

func TestAttributeChangePublishes(t *testing.T) {
	f := newFixture(t)
	if err := f.n.WriteAttribute(1, clusters.OnOff.ID, clusters.OnOffAttr, zcl.Bool(true)); err != nil {
		t.Fatal(err)
	}

	state := f.client.json(t, "zcl-node/1")
	if state["state"] != "ON" {
		t.Errorf("state = %v", state["state"])
	}
	values := f.client.json(t, "zcl-node/1/0006")
	if values["OnOff"] != true {
		t.Errorf("OnOff = %v", values["OnOff"])
	}
	if !f.client.last["zcl-node/1/0006"].retained {
		t.Error("cluster state should be retained")
	}
}

func TestPublishAll(t *testing.T) {
	f := newFixture(t)
	f.bridge.publishAll()

	if _, ok := f.client.last["homeassistant/light/kitchen_node/1_light/config"]; !ok {
		t.Error("light discovery missing")
	}
	if _, ok := f.client.last["homeassistant/sensor/kitchen_node/3_temperature/config"]; !ok {
		t.Error("temperature discovery missing")
	}
	state := f.client.json(t, "zcl-node/1")
	if state["state"] != "OFF" {
		t.Errorf("state = %v", state["state"])
	}
	if v, ok := state["brightness"]; !ok || v != nil {
		t.Errorf("brightness = %v, want null for the invalid default", v)
	}
	basic := f.client.json(t, "zcl-node/1/0000")
	if basic["ZCLVersion"] != float64(8) {
		t.Errorf("ZCLVersion = %v", basic["ZCLVersion"])
	}
}

func TestAttributeSet(t *testing.T) {
	f := newFixture(t)
	f.client.deliver(t, "zcl-node/1/0008/set", `{"CurrentLevel": 42, "0x4000": 7, "Bogus": 1, "MinLevel": "x"}`)

	v, err := f.n.ReadAttribute(1, clusters.LevelControl.ID, clusters.LevelCurrentLevel)
	if err != nil {
		t.Fatal(err)
	}
	if v.Uint() != 42 {
		t.Errorf("CurrentLevel = %d, want 42", v.Uint())
	}

	res := f.client.json(t, "zcl-node/1/0008/result")
	if res["ok"] != false {
		t.Errorf("ok = %v", res["ok"])
	}
	fields, _ := res["fields"].(map[string]any)
	want := map[string]string{
		"CurrentLevel": "SUCCESS",
		"0x4000":       "SUCCESS",
		"Bogus":        "UNSUPPORTED_ATTRIBUTE",
		"MinLevel":     "INVALID_DATA_TYPE",
	}
	for k, s := range want {
		if fields[k] != s {
			t.Errorf("%s = %v, want %s", k, fields[k], s)
		}
	}
}

func TestAttributeSetUnknownCluster(t *testing.T) {
	f := newFixture(t)
	f.client.deliver(t, "zcl-node/1/0402/set", `{"MeasuredValue": 1}`)
	res := f.client.json(t, "zcl-node/1/0402/result")
	if res["status"] != "UNSUPPORTED_CLUSTER" {
		t.Errorf("status = %v", res["status"])
	}
}

func TestStateCommand(t *testing.T) {
	f := newFixture(t)
	f.client.deliver(t, "zcl-node/1/set", `{"state": "TOGGLE", "brightness": 300}`)

	on, _ := f.n.ReadAttribute(1, clusters.OnOff.ID, clusters.OnOffAttr)
	if !on.Bool() {
		t.Error("expected on after toggle")
	}
	level, _ := f.n.ReadAttribute(1, clusters.LevelControl.ID, clusters.LevelCurrentLevel)
	if level.Uint() != 254 {
		t.Errorf("level = %d, want 254", level.Uint())
	}
	state := f.client.json(t, "zcl-node/1")
	if state["state"] != "ON" || state["brightness"] != float64(254) {
		t.Errorf("state = %v", state)
	}

	f.client.deliver(t, "zcl-node/1/set", `{"state": "off"}`)
	on, _ = f.n.ReadAttribute(1, clusters.OnOff.ID, clusters.OnOffAttr)
	if on.Bool() {
		t.Error("expected off")
	}
}

func TestClusterCommand(t *testing.T) {
	f := newFixture(t)
	f.client.deliver(t, "zcl-node/2/0006/command", `{"command": "On", "dst": {"addr": 4660, "endpoint": 3}}`)

	sent := f.link.Drain()
	if len(sent) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(sent))
	}
	req := sent[0]
	if req.DstAddr != 0x1234 || req.DstEP != 3 || req.SrcEP != 2 || req.Cluster != 0x0006 {
		t.Errorf("unexpected request: %+v", req)
	}
	if len(req.Payload) != 3 || req.Payload[0] != 0x01 || req.Payload[2] != 0x01 {
		t.Errorf("payload = % X", req.Payload)
	}
	res := f.client.json(t, "zcl-node/2/0006/result")
	if res["ok"] != true || res["seq"] != float64(req.Payload[1]) {
		t.Errorf("result = %v", res)
	}
}

func TestClusterCommandByIDWithFields(t *testing.T) {
	f := newFixture(t)
	f.client.deliver(t, "zcl-node/2/0006/command", `{"command": 64, "dst": {"group": 5}, "fields": {"EffectIdentifier": 1, "EffectVariant": 0}}`)

	sent := f.link.Drain()
	if len(sent) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(sent))
	}
	if sent[0].Mode != ncp.AddrGroup || sent[0].DstAddr != 5 {
		t.Errorf("unexpected destination: %+v", sent[0])
	}
	want := []byte{0x40, 0x01, 0x00}
	if got := sent[0].Payload[2:]; string(got) != string(want) {
		t.Errorf("payload tail = % X, want % X", got, want)
	}
}

func TestClusterCommandErrors(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		payload string
		status  string
	}{
		{`{"command": "Dance"}`, "UNSUP_CLUSTER_COMMAND"},
		{`{"command": "On", "dst": {"endpoint": 1}}`, "INVALID_FIELD"},
		{`{"command": 64, "fields": {"Bogus": 1}}`, "INVALID_FIELD"},
	}
	for _, tt := range tests {
		f.client.deliver(t, "zcl-node/2/0006/command", tt.payload)
		res := f.client.json(t, "zcl-node/2/0006/result")
		if res["ok"] == true || res["status"] != tt.status {
			t.Errorf("%s: result = %v, want %s", tt.payload, res, tt.status)
		}
	}
	if n := len(f.link.Drain()); n != 0 {
		t.Errorf("expected no frames, got %d", n)
	}
}

func TestBridgeEvent(t *testing.T) {
	f := newFixture(t)
	f.n.Events().Emit(node.Event{Type: node.EventSendError, Data: node.ErrorEvent{Cluster: 6, Peer: 1, Error: "boom"}})
	ev := f.client.json(t, "zcl-node/bridge/event")
	if ev["type"] != node.EventSendError {
		t.Errorf("type = %v", ev["type"])
	}
}
