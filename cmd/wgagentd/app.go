package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aurabx/wgagentd/config"
	"github.com/aurabx/wgagentd/internal"
	"github.com/aurabx/wgagentd/internal/control"
	"github.com/aurabx/wgagentd/internal/osnet"
	"github.com/aurabx/wgagentd/internal/tunnel"
	"github.com/aurabx/wgagentd/internal/werrors"
)

// MARK: newApplication
func newApplication(configPath string) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := internal.NewLogger(cfg.Log.Level)
	health := internal.NewHealthChecker()
	osAPI := osnet.New()
	supervisor := tunnel.NewSupervisor(osAPI, logger)

	app := &Application{
		configPath: configPath,
		cfg:        cfg,
		logger:     logger,
		health:     health,
		osAPI:      osAPI,
		supervisor: supervisor,
	}

	app.control = control.NewServer(cfg.Server.ControlSocket, supervisor, app.resolveDescriptor, logger)
	return app, nil
}

// MARK: resolveDescriptor
// The control protocol's connect/reload actions carry only a network
// name; this agent resolves that name against the static config file
// rather than accepting an inline config object, since SPEC_FULL.md's
// networks are provisioned ahead of time, not uploaded over the wire.
func (app *Application) resolveDescriptor(network string, _ json.RawMessage) (tunnel.Descriptor, error) {
	netCfg, ok := app.cfg.Network(network)
	if !ok {
		return tunnel.Descriptor{}, werrors.New(werrors.NotFound, "network "+network+" is not configured")
	}
	return netCfg.ToDescriptor(network)
}

// MARK: start
func (app *Application) start(ctx context.Context) error {
	app.logger.Info("starting wgagentd")

	if missing := app.osAPI.CheckCapabilities(); len(missing) > 0 {
		app.logger.Warn("missing platform capabilities, tunnels may fail to start", "missing", missing)
	}

	app.connectConfiguredNetworks()

	if err := app.startControlServer(ctx); err != nil {
		return fmt.Errorf("starting control server: %w", err)
	}

	app.health.SetReady(true)
	return app.startManagementServer(ctx)
}

// MARK: connectConfiguredNetworks
// Brings up every network present in the config file at startup; a
// failure on one network is logged and does not prevent the others
// from starting.
func (app *Application) connectConfiguredNetworks() {
	for name := range app.cfg.Networks {
		desc, err := app.resolveDescriptor(name, nil)
		if err != nil {
			app.logger.Error("resolving network config failed", "network", name, "error", err)
			continue
		}
		if _, err := app.supervisor.Connect(desc); err != nil {
			app.logger.Error("connecting network at startup failed", "network", name, "error", err)
			continue
		}
		app.logger.Info("connected network", "network", name)
	}
}

// MARK: startControlServer
func (app *Application) startControlServer(ctx context.Context) error {
	app.waitGroup.Add(1)
	go func() {
		defer app.waitGroup.Done()
		if err := app.control.Serve(ctx); err != nil {
			app.logger.Error("control server exited", "error", err)
		}
	}()
	return nil
}

// MARK: handleReload
// Reloads the config file, connects every listed network that is not
// yet known to the supervisor, and reloads (stop then start) every
// listed network that is, whether or not its settings changed; networks
// removed from the file are left running (an explicit disconnect is
// required to tear them down).
func (app *Application) handleReload() {
	app.logger.Info("received SIGHUP, reloading configuration")

	newCfg, err := config.Load(app.configPath)
	if err != nil {
		app.logger.Error("failed to reload config", "error", err)
		return
	}
	app.cfg = newCfg

	for name := range newCfg.Networks {
		desc, err := app.resolveDescriptor(name, nil)
		if err != nil {
			app.logger.Error("resolving network config during reload failed", "network", name, "error", err)
			continue
		}
		if _, err := app.supervisor.Status(name); err != nil {
			if _, connErr := app.supervisor.Connect(desc); connErr != nil {
				app.logger.Error("connecting new network during reload failed", "network", name, "error", connErr)
			}
			continue
		}
		if _, err := app.supervisor.Reload(desc); err != nil {
			app.logger.Error("reloading network failed", "network", name, "error", err)
		}
	}

	app.logger.Info("configuration reloaded successfully")
}
