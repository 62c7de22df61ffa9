//go:build !no_automation

package main

import (
	"log/slog"

	"zcl-node/internal/automation"
	"zcl-node/internal/node"
	"zcl-node/internal/web"
)

type autoStopper struct {
	engine *automation.Engine
}

func (a *autoStopper) Stop() {
	if a.engine != nil {
		a.engine.Stop()
	}
}

func initAutomation(n *node.Node, cfg *Config, logger *slog.Logger) (*autoStopper, []web.ServerOption) {
	scriptMgr, err := automation.NewManager(cfg.ScriptsDir, logger)
	if err != nil {
		logger.Error("create script manager", "err", err)
		return &autoStopper{}, nil
	}

	engine := automation.NewEngine(n, scriptMgr, logger, automation.Config{
		CallTimeout: cfg.Automation.CallTimeout,
		QueueSize:   cfg.Automation.QueueSize,
	})
	engine.Start()

	opts := []web.ServerOption{
		web.WithAutomation(engine, scriptMgr),
	}
	return &autoStopper{engine: engine}, opts
}
