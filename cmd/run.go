// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cli/browser"
	"github.com/spf13/cobra"

	"pulse/internal/config"
	applog "pulse/internal/log"
	"pulse/internal/metrics"
	"pulse/internal/server"
	"pulse/internal/session"
	"pulse/internal/transport"
	"pulse/internal/transport/udp"
	"pulse/internal/tui"
	"pulse/pkg/build"
)

const (
	defaultLogFile  = "pulse.log"
	shutdownTimeout = 5 * time.Second
)

func newRunCommand(opts *options) *cobra.Command {
	var (
		tuiMode     bool
		openBrowser bool
		noStart     bool
	)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Measure live until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *opts.cfg
			if cmd.Flags().Changed("open") {
				cfg.Server.OpenBrowser = openBrowser
			}
			return runLive(cmd.Context(), &cfg, tuiMode, !noStart)
		},
	}

	runCmd.Flags().BoolVarP(&tuiMode, "tui", "t", false, "Show the terminal monitor")
	runCmd.Flags().BoolVarP(&openBrowser, "open", "o", false, "Open the dashboard in the browser")
	runCmd.Flags().BoolVar(&noStart, "no-start", false, "Wait for a start request instead of starting a session")
	return runCmd
}

// runLive runs the engine with every configured consumer attached. The program flow:
//
//  1. Startup: build the source, controller, transports and HTTP server.
//  2. Running: the driver ticks the session, the publisher fans estimates out and
//     the server answers requests until a signal arrives or the monitor quits.
//  3. Shutdown: stop the server, the session and the publisher, in that order.
func runLive(parent context.Context, cfg *config.Config, tuiMode, autoStart bool) error {
	if parent == nil {
		parent = context.Background()
	}

	// ==================== STARTUP ====================

	if tuiMode {
		closeLog, err := redirectLog(cfg.LogFile)
		if err != nil {
			return err
		}
		defer closeLog()
	}

	source, err := cfg.Source.NewSource()
	if err != nil {
		return err
	}

	m := metrics.New()
	sessionOpts := []session.Option{session.WithObserver(m)}
	if cfg.Engine.SpectralCheck {
		sessionOpts = append(sessionOpts, session.WithSpectralCheck())
	}
	ctrl, err := session.NewController(cfg.Engine.RPPG(), source, sessionOpts...)
	if err != nil {
		return err
	}
	driver := session.NewDriver(ctrl, cfg.Engine.TickInterval)

	transports, ws, err := buildTransports(cfg.Transport)
	if err != nil {
		return err
	}

	var publisher *transport.Publisher
	if len(transports) > 0 {
		publisher, err = transport.NewPublisher(cfg.Transport.PublishInterval, ctrl, transports...)
		if err != nil {
			closeAll(transports)
			return err
		}
	}

	var srv *server.Server
	if cfg.Server.Enabled {
		srvOpts := server.Options{
			Address:   cfg.Server.Address,
			Estimates: ctrl,
			Controls:  driver,
			Metrics:   m.Handler(),
		}
		if ws != nil {
			srvOpts.WebSocket = ws
		}
		if srv, err = server.New(srvOpts); err != nil {
			closeAll(transports)
			return err
		}
	}

	// ==================== RUNNING ====================

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	driverCtx, stopDriver := context.WithCancel(context.Background())
	driverDone := make(chan struct{})
	go func() {
		defer close(driverDone)
		driver.Run(driverCtx)
	}()

	if publisher != nil {
		publisher.Start()
	}

	serverErr := make(chan error, 1)
	if srv != nil {
		go func() {
			serverErr <- srv.ListenAndServe()
		}()
		if cfg.Server.OpenBrowser {
			url := server.DashboardURL(cfg.Server.Address)
			if err := browser.OpenURL(url); err != nil {
				applog.Warnf("Run: Could not open %s: %v", url, err)
			}
		}
	}

	if autoStart {
		if err := driver.Start(ctx); err != nil {
			applog.Errorf("Run: Failed to start session: %v", err)
		}
	}

	var runErr error
	if tuiMode {
		monitorErr := make(chan error, 1)
		go func() {
			monitorErr <- tui.Run(ctrl, driver, build.Get().Version)
		}()
		select {
		case runErr = <-monitorErr:
		case runErr = <-serverErr:
		case <-ctx.Done():
		}
	} else {
		applog.Infof("Run: Measuring, press Ctrl+C to stop")
		select {
		case runErr = <-serverErr:
		case <-ctx.Done():
		}
	}

	// ==================== SHUTDOWN ====================

	applog.Infof("Run: Shutting down")
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			applog.Errorf("Run: Error stopping server: %v", err)
		}
		cancel()
	}

	stopDriver()
	<-driverDone

	if publisher != nil {
		// Push the final Idle estimate once polling has stopped and before the
		// transports close.
		if err := publisher.Stop(); err != nil {
			applog.Errorf("Run: Error stopping publisher: %v", err)
		}
		publisher.PublishIfChanged()
		if err := publisher.Close(); err != nil {
			applog.Errorf("Run: Error closing publisher: %v", err)
		}
	}
	return runErr
}

// buildTransports dials every enabled transport. The WebSocket transport is also
// returned on its own so the server can mount it.
func buildTransports(cfg config.TransportConfig) ([]transport.Transport, *transport.WebSocketTransport, error) {
	var (
		transports []transport.Transport
		ws         *transport.WebSocketTransport
	)

	fail := func(err error) ([]transport.Transport, *transport.WebSocketTransport, error) {
		closeAll(transports)
		return nil, nil, err
	}

	if cfg.LogEstimates {
		transports = append(transports, transport.NewLoggingTransport())
	}
	if cfg.WebSocketEnabled {
		ws = transport.NewWebSocketTransport()
		transports = append(transports, ws)
	}
	if cfg.UDPEnabled {
		t, err := udp.Dial(cfg.UDPTargetAddress)
		if err != nil {
			return fail(fmt.Errorf("udp transport: %w", err))
		}
		transports = append(transports, t)
	}
	if cfg.NATSEnabled {
		t, err := transport.DialNATS(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			return fail(fmt.Errorf("nats transport: %w", err))
		}
		transports = append(transports, t)
	}
	if cfg.MQTTEnabled {
		t, err := transport.DialMQTT(cfg.MQTTBroker, cfg.MQTTClientID, cfg.MQTTTopic)
		if err != nil {
			return fail(fmt.Errorf("mqtt transport: %w", err))
		}
		transports = append(transports, t)
	}
	return transports, ws, nil
}

func closeAll(transports []transport.Transport) {
	for _, t := range transports {
		if err := t.Close(); err != nil {
			applog.Warnf("Run: Error closing %T: %v", t, err)
		}
	}
}

// redirectLog sends log output to path while the monitor owns the terminal.
func redirectLog(path string) (func(), error) {
	if path == "" {
		path = defaultLogFile
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	applog.Configure(f, true)
	return func() {
		applog.Configure(os.Stderr, false)
		if err := f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			fmt.Fprintf(os.Stderr, "error closing log file: %v\n", err)
		}
	}, nil
}
