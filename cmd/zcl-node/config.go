package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type EndpointConfig struct {
	ID               uint8    `yaml:"id"`
	ProfileID        uint16   `yaml:"profile_id"`
	DeviceID         uint16   `yaml:"device_id"`
	DeviceVersion    uint8    `yaml:"device_version"`
	Servers          []uint16 `yaml:"servers"`
	Clients          []uint16 `yaml:"clients"`
	DefaultReporting bool     `yaml:"default_reporting"`
}

type AddressConfig struct {
	Addr     uint16 `yaml:"addr"`
	Endpoint uint8  `yaml:"endpoint"`
}

type Config struct {
	Link struct {
		Type string `yaml:"type"` // "serial" or "loopback"
		Port string `yaml:"port"`
		Baud int    `yaml:"baud"`
	} `yaml:"link"`
	Node struct {
		ReportPeriod time.Duration `yaml:"report_period"`
		SendTimeout  time.Duration `yaml:"send_timeout"`
		FrameSize    int           `yaml:"frame_size"`
		// ReportTarget receives reports nobody configured. Defaults to the
		// coordinator.
		ReportTarget *AddressConfig `yaml:"report_target"`
	} `yaml:"node"`
	Endpoints []EndpointConfig `yaml:"endpoints"`
	OTA       struct {
		Enabled          bool          `yaml:"enabled"`
		Endpoint         uint8         `yaml:"endpoint"`
		ManufacturerCode uint16        `yaml:"manufacturer_code"`
		ImageType        uint16        `yaml:"image_type"`
		HardwareVersion  uint16        `yaml:"hardware_version"`
		Dir              string        `yaml:"dir"`
		MaxImageSize     uint32        `yaml:"max_image_size"`
		Server           AddressConfig `yaml:"server"`
		QueryOnStart     bool          `yaml:"query_on_start"`
	} `yaml:"ota"`
	IAS struct {
		Zones []struct {
			Endpoint    uint8  `yaml:"endpoint"`
			ZoneType    uint16 `yaml:"zone_type"`
			AutoEnroll  bool   `yaml:"auto_enroll"`
			CIEEndpoint uint8  `yaml:"cie_endpoint"`
		} `yaml:"zones"`
		Panel *struct {
			Endpoint  uint8         `yaml:"endpoint"`
			Code      string        `yaml:"code"`
			ExitDelay time.Duration `yaml:"exit_delay"`
		} `yaml:"panel"`
	} `yaml:"ias"`
	Web struct {
		Listen         string   `yaml:"listen"`
		APIKey         string   `yaml:"api_key"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"web"`
	Store struct {
		Path string `yaml:"path"`
	} `yaml:"store"`
	MQTT struct {
		Enabled     bool   `yaml:"enabled"`
		Broker      string `yaml:"broker"`
		Username    string `yaml:"username"`
		Password    string `yaml:"password"`
		TopicPrefix string `yaml:"topic_prefix"`
		NodeID      string `yaml:"node_id"`
		Name        string `yaml:"name"`
	} `yaml:"mqtt"`
	Automation struct {
		CallTimeout time.Duration `yaml:"call_timeout"`
		QueueSize   int           `yaml:"queue_size"`
	} `yaml:"automation"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	ScriptsDir string `yaml:"scripts_dir"`
}

func (c *Config) validate() error {
	switch c.Link.Type {
	case "serial":
		if c.Link.Port == "" {
			return fmt.Errorf("link.port is required for a serial link")
		}
	case "loopback":
	default:
		return fmt.Errorf("unknown link type: %q (supported: serial, loopback)", c.Link.Type)
	}
	if len(c.Endpoints) == 0 {
		return fmt.Errorf("at least one endpoint is required")
	}
	seen := make(map[uint8]bool)
	for _, ep := range c.Endpoints {
		if ep.ID == 0 || ep.ID == 0xFF {
			return fmt.Errorf("endpoint id %d is reserved", ep.ID)
		}
		if seen[ep.ID] {
			return fmt.Errorf("endpoint %d declared twice", ep.ID)
		}
		seen[ep.ID] = true
	}
	if c.OTA.Enabled && !seen[c.OTA.Endpoint] {
		return fmt.Errorf("ota.endpoint %d is not a configured endpoint", c.OTA.Endpoint)
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	return nil
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Link.Type == "" {
		cfg.Link.Type = "serial"
	}
	if cfg.Link.Baud == 0 {
		cfg.Link.Baud = 460800
	}
	if cfg.Web.Listen == "" {
		cfg.Web.Listen = "127.0.0.1:8080"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "zcl-node.db"
	}
	if cfg.OTA.Dir == "" {
		cfg.OTA.Dir = "ota"
	}
	if cfg.ScriptsDir == "" {
		cfg.ScriptsDir = "scripts"
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "zcl-node"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	return &cfg, nil
}

func newLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(cfg.Log.Format) {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
