//go:build !no_mqtt

package mqtt

import (
	"fmt"
	"math"
	"strings"

	"zcl-node/internal/zcl"
)

// discoveryMsg is a Home Assistant MQTT discovery payload.
type discoveryMsg struct {
	Topic   string // e.g. "homeassistant/sensor/zcl_node/1_temperature/config"
	Payload []byte // JSON, empty means delete
}

// haDevice is the "device" block in HA discovery.
type haDevice struct {
	Identifiers  []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Model        string   `json:"model,omitempty"`
	Name         string   `json:"name"`
	SWVersion    string   `json:"sw_version,omitempty"`
}

// haDiscovery is a generic HA discovery payload.
type haDiscovery struct {
	Name                string   `json:"name"`
	UniqueID            string   `json:"unique_id"`
	StateTopic          string   `json:"state_topic"`
	CommandTopic        string   `json:"command_topic,omitempty"`
	AvailabilityTopic   string   `json:"availability_topic"`
	ValueTemplate       string   `json:"value_template,omitempty"`
	UnitOfMeasurement   string   `json:"unit_of_measurement,omitempty"`
	DeviceClass         string   `json:"device_class,omitempty"`
	StateClass          string   `json:"state_class,omitempty"`
	PayloadOn           string   `json:"payload_on,omitempty"`
	PayloadOff          string   `json:"payload_off,omitempty"`
	BrightnessScale     int      `json:"brightness_scale,omitempty"`
	SupportedColorModes []string `json:"supported_color_modes,omitempty"`
	Schema              string   `json:"schema,omitempty"`
	Device              haDevice `json:"device"`
}

// property maps one attribute onto a key of an endpoint's HA state object.
type property struct {
	cluster uint16
	attr    uint16
	name    string
	convert func(zcl.Value) any

	// discovery
	component   string // sensor, binary_sensor; empty for light/switch state
	label       string
	deviceClass string
	unit        string
}

var properties = []property{
	{cluster: 0x0006, attr: 0x0000, name: "state", convert: onOffState},
	{cluster: 0x0008, attr: 0x0000, name: "brightness", convert: plain},
	{cluster: 0x0402, attr: 0x0000, name: "temperature", convert: hundredths,
		component: "sensor", label: "Temperature", deviceClass: "temperature", unit: "°C"},
	{cluster: 0x0405, attr: 0x0000, name: "humidity", convert: hundredths,
		component: "sensor", label: "Humidity", deviceClass: "humidity", unit: "%"},
	{cluster: 0x0403, attr: 0x0000, name: "pressure", convert: plain,
		component: "sensor", label: "Pressure", deviceClass: "pressure", unit: "hPa"},
	{cluster: 0x0400, attr: 0x0000, name: "illuminance", convert: lux,
		component: "sensor", label: "Illuminance", deviceClass: "illuminance", unit: "lx"},
	{cluster: 0x0406, attr: 0x0000, name: "occupancy", convert: bit0,
		component: "binary_sensor", label: "Occupancy", deviceClass: "occupancy"},
	{cluster: 0x0001, attr: 0x0021, name: "battery", convert: halfPercent,
		component: "sensor", label: "Battery", deviceClass: "battery", unit: "%"},
	{cluster: 0x0500, attr: 0x0002, name: "zone_status", convert: bit0,
		component: "binary_sensor", label: "Zone", deviceClass: "safety"},
	{cluster: 0x0201, attr: 0x0000, name: "local_temperature", convert: hundredths,
		component: "sensor", label: "Local Temperature", deviceClass: "temperature", unit: "°C"},
	{cluster: 0x0702, attr: 0x0000, name: "energy", convert: plain,
		component: "sensor", label: "Energy", deviceClass: "energy"},
}

// lookupProperty maps a cluster/attribute pair to its HA property.
func lookupProperty(cluster, attr uint16) *property {
	for i := range properties {
		if properties[i].cluster == cluster && properties[i].attr == attr {
			return &properties[i]
		}
	}
	return nil
}

func plain(v zcl.Value) any { return v.Interface() }

func onOffState(v zcl.Value) any {
	if v.IsInvalid() {
		return nil
	}
	if v.Bool() {
		return "ON"
	}
	return "OFF"
}

func hundredths(v zcl.Value) any {
	if v.IsInvalid() {
		return nil
	}
	return float64(v.Int()) / 100
}

func halfPercent(v zcl.Value) any {
	if v.IsInvalid() {
		return nil
	}
	return float64(v.Uint()) / 2
}

// lux inverts MeasuredValue = 10000*log10(lx) + 1.
func lux(v zcl.Value) any {
	if v.IsInvalid() || v.Uint() == 0 {
		return nil
	}
	return math.Round(math.Pow(10, float64(v.Uint()-1)/10000))
}

func bit0(v zcl.Value) any {
	if v.IsInvalid() {
		return nil
	}
	return v.Uint()&1 != 0
}

// sanitize keeps only characters safe in MQTT topics and HA object ids.
func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			return r
		}
		return '_'
	}, strings.ToLower(name))
}

// buildDiscovery generates HA discovery messages for a local endpoint from
// the server clusters it hosts.
func buildDiscovery(nodeID string, ep uint8, servers []uint16, dev haDevice, prefix string) []discoveryMsg {
	has := make(map[uint16]bool, len(servers))
	for _, c := range servers {
		has[c] = true
	}
	avail := prefix + "/bridge/state"
	stateTopic := fmt.Sprintf("%s/%d", prefix, ep)
	objPrefix := fmt.Sprintf("%d_", ep)

	var msgs []discoveryMsg
	switch {
	case has[0x0006] && has[0x0008]:
		msgs = append(msgs, buildLight(nodeID, objPrefix, dev, stateTopic, avail))
	case has[0x0006]:
		msgs = append(msgs, buildSwitch(nodeID, objPrefix, dev, stateTopic, avail))
	}
	for _, p := range properties {
		if p.component == "" || !has[p.cluster] {
			continue
		}
		msgs = append(msgs, buildSensor(nodeID, objPrefix, dev, stateTopic, avail, p))
	}
	return msgs
}

func buildSensor(nodeID, objPrefix string, dev haDevice, stateTopic, avail string, p property) discoveryMsg {
	obj := objPrefix + p.name
	payload := haDiscovery{
		Name:              dev.Name + " " + p.label,
		UniqueID:          nodeID + "_" + obj,
		StateTopic:        stateTopic,
		AvailabilityTopic: avail,
		DeviceClass:       p.deviceClass,
		Device:            dev,
	}
	if p.component == "binary_sensor" {
		payload.ValueTemplate = fmt.Sprintf("{{ 'ON' if value_json.%s else 'OFF' }}", p.name)
		payload.PayloadOn = "ON"
		payload.PayloadOff = "OFF"
	} else {
		payload.ValueTemplate = fmt.Sprintf("{{ value_json.%s }}", p.name)
		payload.UnitOfMeasurement = p.unit
		payload.StateClass = "measurement"
		if p.deviceClass == "energy" {
			payload.StateClass = "total_increasing"
		}
	}
	return discoveryMsg{
		Topic:   fmt.Sprintf("homeassistant/%s/%s/%s/config", p.component, nodeID, obj),
		Payload: mustJSON(payload),
	}
}

func buildLight(nodeID, objPrefix string, dev haDevice, stateTopic, avail string) discoveryMsg {
	obj := objPrefix + "light"
	payload := haDiscovery{
		Name:                dev.Name,
		UniqueID:            nodeID + "_" + obj,
		StateTopic:          stateTopic,
		CommandTopic:        stateTopic + "/set",
		AvailabilityTopic:   avail,
		SupportedColorModes: []string{"brightness"},
		BrightnessScale:     254,
		Schema:              "json",
		Device:              dev,
	}
	return discoveryMsg{Topic: fmt.Sprintf("homeassistant/light/%s/%s/config", nodeID, obj), Payload: mustJSON(payload)}
}

func buildSwitch(nodeID, objPrefix string, dev haDevice, stateTopic, avail string) discoveryMsg {
	obj := objPrefix + "switch"
	payload := haDiscovery{
		Name:              dev.Name,
		UniqueID:          nodeID + "_" + obj,
		StateTopic:        stateTopic,
		CommandTopic:      stateTopic + "/set",
		AvailabilityTopic: avail,
		ValueTemplate:     "{{ value_json.state }}",
		PayloadOn:         `{"state":"ON"}`,
		PayloadOff:        `{"state":"OFF"}`,
		Device:            dev,
	}
	return discoveryMsg{Topic: fmt.Sprintf("homeassistant/switch/%s/%s/config", nodeID, obj), Payload: mustJSON(payload)}
}

// buildRemoveDiscovery generates empty retained messages that remove every
// entity an endpoint could have published.
func buildRemoveDiscovery(nodeID string, ep uint8) []discoveryMsg {
	obj := fmt.Sprintf("%d_", ep)
	msgs := []discoveryMsg{
		{Topic: fmt.Sprintf("homeassistant/light/%s/%slight/config", nodeID, obj)},
		{Topic: fmt.Sprintf("homeassistant/switch/%s/%sswitch/config", nodeID, obj)},
	}
	for _, p := range properties {
		if p.component != "" {
			msgs = append(msgs, discoveryMsg{Topic: fmt.Sprintf("homeassistant/%s/%s/%s%s/config", p.component, nodeID, obj, p.name)})
		}
	}
	return msgs
}
