package main

import (
	"context"
	"net/http"
	"sync"

	"github.com/aurabx/wgagentd/config"
	"github.com/aurabx/wgagentd/internal"
	"github.com/aurabx/wgagentd/internal/control"
	"github.com/aurabx/wgagentd/internal/osnet"
	"github.com/aurabx/wgagentd/internal/tunnel"
)

// Application wires together the loaded config, the tunnel supervisor,
// the control protocol server, and the health-check HTTP endpoint.
type Application struct {
	configPath string
	cfg        *config.Config
	logger     *internal.Logger
	health     *internal.HealthChecker
	osAPI      *osnet.Linux
	supervisor *tunnel.Supervisor
	control    *control.Server
	httpServer *http.Server

	ctx       context.Context
	cancel    context.CancelFunc
	waitGroup sync.WaitGroup
}
