package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"zcl-node/internal/handlers"
	"zcl-node/internal/ias"
	"zcl-node/internal/ncp"
	"zcl-node/internal/node"
	"zcl-node/internal/ota"
	"zcl-node/internal/store"
	"zcl-node/internal/web"
	"zcl-node/internal/zcl"
	"zcl-node/internal/zcl/clusters"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to the YAML config")
	flag.Parse()

	// Temporary logger for config loading errors.
	bootLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		bootLogger.Error("load config", "err", err)
		os.Exit(1)
	}
	if err := cfg.validate(); err != nil {
		bootLogger.Error("invalid config", "err", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)
	logger.Info("zcl-node starting", "version", version)

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", "err", err)
		os.Exit(1)
	}
	logger.Info("goodbye")
}

func run(cfg *Config, logger *slog.Logger) error {
	registry := zcl.NewRegistry(logger)
	if err := clusters.RegisterAll(registry); err != nil {
		return fmt.Errorf("register clusters: %w", err)
	}
	logger.Info("ZCL registry initialized", "clusters", len(registry.All()))

	db, err := store.NewBoltStore(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	link, err := createLink(cfg, logger)
	if err != nil {
		return fmt.Errorf("create link: %w", err)
	}
	defer link.Close()

	opts := []node.Option{node.WithLogger(logger), node.WithPersister(db)}
	if t := cfg.Node.ReportTarget; t != nil {
		opts = append(opts, node.WithReportTarget(node.Destination{Mode: ncp.AddrShort, Addr: t.Addr, Endpoint: t.Endpoint}))
	}
	if cfg.Node.ReportPeriod > 0 {
		opts = append(opts, node.WithReportPeriod(cfg.Node.ReportPeriod))
	}
	if cfg.Node.SendTimeout > 0 {
		opts = append(opts, node.WithSendTimeout(cfg.Node.SendTimeout))
	}
	if cfg.Node.FrameSize > 0 {
		opts = append(opts, node.WithFrameSize(cfg.Node.FrameSize))
	}
	n := node.New(registry, link, opts...)
	defer n.Close()

	for _, ep := range cfg.Endpoints {
		err := n.RegisterEndpoint(node.EndpointConfig{
			ID:               ep.ID,
			ProfileID:        ep.ProfileID,
			DeviceID:         ep.DeviceID,
			DeviceVersion:    ep.DeviceVersion,
			Servers:          ep.Servers,
			Clients:          ep.Clients,
			DefaultReporting: ep.DefaultReporting,
		})
		if err != nil {
			return fmt.Errorf("register endpoint %d: %w", ep.ID, err)
		}
	}

	handlers.Install(n)
	otaClient, err := installOTA(n, db, cfg)
	if err != nil {
		return err
	}
	if err := installIAS(n, cfg); err != nil {
		return err
	}

	if err := recordStart(db, cfg); err != nil {
		logger.Warn("record node state", "err", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	announceCtx, announceCancel := context.WithTimeout(ctx, 30*time.Second)
	err = n.Announce(announceCtx)
	announceCancel()
	if err != nil {
		return err
	}

	runDone := make(chan error, 1)
	go func() { runDone <- n.Run(ctx, link.Indications()) }()

	if otaClient != nil && cfg.OTA.QueryOnStart {
		server := node.Destination{Mode: ncp.AddrShort, Addr: cfg.OTA.Server.Addr, Endpoint: cfg.OTA.Server.Endpoint}
		if err := otaClient.Query(server, 30*time.Minute); err != nil {
			logger.Warn("ota query", "err", err)
		}
	}

	// Start automation engine (no-op when built with no_automation tag).
	auto, autoWebOpts := initAutomation(n, cfg, logger)

	webOpts := []web.ServerOption{web.WithStore(db), web.WithVersion(version)}
	if cfg.Web.APIKey != "" {
		webOpts = append(webOpts, web.WithAPIKey(cfg.Web.APIKey))
	}
	if len(cfg.Web.AllowedOrigins) > 0 {
		webOpts = append(webOpts, web.WithAllowedOrigins(cfg.Web.AllowedOrigins))
	}
	webOpts = append(webOpts, autoWebOpts...)
	webServer := web.NewServer(n, logger, webOpts...)

	httpServer := &http.Server{
		Addr:         cfg.Web.Listen,
		Handler:      webServer,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		logger.Info("web server starting", "addr", cfg.Web.Listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", "err", err)
		}
	}()

	// Start MQTT bridge (no-op when built with no_mqtt tag).
	mqtt := initMQTT(n, cfg, logger)

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-runDone:
		logger.Error("node stopped", "err", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	auto.Stop()
	mqtt.Stop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", "err", err)
	}
	webServer.Stop()
	return nil
}

func createLink(cfg *Config, logger *slog.Logger) (ncp.Link, error) {
	switch cfg.Link.Type {
	case "serial":
		logger.Info("using ZBOSS serial link", "port", cfg.Link.Port, "baud", cfg.Link.Baud)
		l, err := ncp.OpenSerial(cfg.Link.Port, cfg.Link.Baud, logger)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := l.Reset(ctx); err != nil {
			l.Close()
			return nil, fmt.Errorf("reset NCP: %w", err)
		}
		if _, err := l.Init(ctx); err != nil {
			l.Close()
			return nil, fmt.Errorf("init NCP: %w", err)
		}
		return l, nil
	case "loopback":
		logger.Warn("using loopback link, frames are not transmitted")
		return ncp.NewLoopback(64), nil
	default:
		return nil, fmt.Errorf("unknown link type: %q", cfg.Link.Type)
	}
}

func installOTA(n *node.Node, db store.Store, cfg *Config) (*ota.Client, error) {
	if !cfg.OTA.Enabled {
		return nil, nil
	}
	ep := cfg.OTA.Endpoint
	client := ota.New(n, ota.Config{
		Endpoint:         ep,
		ManufacturerCode: cfg.OTA.ManufacturerCode,
		ImageType:        cfg.OTA.ImageType,
		HardwareVersion:  cfg.OTA.HardwareVersion,
		MaxImageSize:     cfg.OTA.MaxImageSize,
		Apply: func(img ota.Image, path string) error {
			return db.UpdateNodeState(func(st *store.NodeState) error {
				st.Images = append(st.Images, store.ImageRecord{
					Endpoint:  ep,
					Image:     img.String(),
					Path:      path,
					AppliedAt: time.Now().UTC(),
				})
				return nil
			})
		},
	}, ota.FileSink{Dir: cfg.OTA.Dir})
	return client, nil
}

func installIAS(n *node.Node, cfg *Config) error {
	if len(cfg.IAS.Zones) > 0 {
		zones := make([]ias.ZoneConfig, 0, len(cfg.IAS.Zones))
		for _, z := range cfg.IAS.Zones {
			zones = append(zones, ias.ZoneConfig{
				Endpoint:    z.Endpoint,
				ZoneType:    z.ZoneType,
				AutoEnroll:  z.AutoEnroll,
				CIEEndpoint: z.CIEEndpoint,
			})
		}
		if _, err := ias.InstallZones(n, zones...); err != nil {
			return fmt.Errorf("install IAS zones: %w", err)
		}
	}
	if p := cfg.IAS.Panel; p != nil {
		_, err := ias.InstallPanel(n, ias.PanelConfig{Endpoint: p.Endpoint, Code: p.Code, ExitDelay: p.ExitDelay})
		if err != nil {
			return fmt.Errorf("install IAS panel: %w", err)
		}
	}
	return nil
}

// recordStart bumps the start counter and snapshots the endpoint layout.
func recordStart(db store.Store, cfg *Config) error {
	return db.UpdateNodeState(func(st *store.NodeState) error {
		st.Version = version
		st.StartedAt = time.Now().UTC()
		st.Starts++
		st.Endpoints = st.Endpoints[:0]
		for _, ep := range cfg.Endpoints {
			st.Endpoints = append(st.Endpoints, store.EndpointRecord{
				ID:        ep.ID,
				ProfileID: ep.ProfileID,
				DeviceID:  ep.DeviceID,
				Servers:   ep.Servers,
				Clients:   ep.Clients,
			})
		}
		return nil
	})
}
