package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, `
link:
  port: /dev/ttyACM0
endpoints:
  - id: 1
    profile_id: 0x0104
    device_id: 0x0100
    servers: [0x0000, 0x0006]
node:
  report_period: 500ms
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Link.Type != "serial" || cfg.Link.Baud != 460800 {
		t.Errorf("link = %+v", cfg.Link)
	}
	if cfg.Web.Listen != "127.0.0.1:8080" || cfg.Store.Path != "zcl-node.db" || cfg.MQTT.TopicPrefix != "zcl-node" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.Node.ReportPeriod != 500*time.Millisecond {
		t.Errorf("report_period = %v", cfg.Node.ReportPeriod)
	}
	if len(cfg.Endpoints) != 1 || cfg.Endpoints[0].ProfileID != 0x0104 || len(cfg.Endpoints[0].Servers) != 2 {
		t.Errorf("endpoints = %+v", cfg.Endpoints)
	}
	if err := cfg.validate(); err != nil {
		t.Errorf("validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"no port", "endpoints: [{id: 1}]", "link.port"},
		{"unknown link", "link: {type: usb}\nendpoints: [{id: 1}]", "unknown link type"},
		{"no endpoints", "link: {type: loopback}", "at least one endpoint"},
		{"reserved endpoint", "link: {type: loopback}\nendpoints: [{id: 255}]", "reserved"},
		{"duplicate endpoint", "link: {type: loopback}\nendpoints: [{id: 1}, {id: 1}]", "twice"},
		{"ota endpoint", "link: {type: loopback}\nendpoints: [{id: 1}]\nota: {enabled: true, endpoint: 2}", "ota.endpoint"},
		{"mqtt broker", "link: {type: loopback}\nendpoints: [{id: 1}]\nmqtt: {enabled: true}", "mqtt.broker"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := loadConfig(writeConfig(t, tt.body))
			if err != nil {
				t.Fatal(err)
			}
			err = cfg.validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
