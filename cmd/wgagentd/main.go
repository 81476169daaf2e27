package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/aurabx/wgagentd/version"
)

// MARK: main
func main() {
	var (
		configPath = flag.String("config", "/etc/wgagentd/config.yaml", "Path to configuration file")
		showVer    = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVer {
		fmt.Printf("wgagentd v%s\n", version.AsString())
		os.Exit(0)
	}

	app, err := newApplication(*configPath)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	app.ctx = ctx
	app.cancel = cancel
	defer cancel()

	if err := app.start(ctx); err != nil {
		log.Fatalf("failed to start application: %v", err)
	}

	app.handleSignals()
	app.waitGroup.Wait()
}
