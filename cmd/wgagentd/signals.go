package main

import (
	"os"
	"os/signal"
	"syscall"
)

// MARK: handleSignals
func (app *Application) handleSignals() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	app.waitGroup.Add(1)
	go func() {
		defer app.waitGroup.Done()

		for {
			select {
			case sig := <-sigChan:
				switch sig {
				case syscall.SIGHUP:
					app.handleReload()
				case syscall.SIGINT, syscall.SIGTERM:
					app.logger.Info("received shutdown signal", "signal", sig)
					app.supervisor.StopAll()
					app.cancel()
					return
				}
			case <-app.ctx.Done():
				return
			}
		}
	}()
}
