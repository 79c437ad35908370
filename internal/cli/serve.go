package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/roach88/contriblog/internal/server"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string

	// ready, when set, receives the bound address once the listener is up.
	ready func(addr string)
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a read-only HTTP view of the log",
		Long: `Serve the contribution log over HTTP until interrupted.

Endpoints:
  GET /v1/healthz  backend health
  GET /v1/address  derived log address and bump
  GET /v1/log      the whole log
  GET /metrics     Prometheus metrics

Example:
  contriblog serve --addr :8080
  contriblog serve --backend pebble --data-dir /var/lib/contriblog`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", ":8080", "listen address")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	sess, err := opts.openLedger(cmd, reg)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.ledger.CheckHealth(cmd.Context()); err != nil {
		return WrapExitError(ExitCommandError, "ledger backend is not readable", err)
	}
	if err := sess.ledger.RefreshMetrics(cmd.Context()); err != nil {
		sess.logger.Warn("log metrics unavailable", "error", err)
	}

	// Setup signal handling for graceful shutdown
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			sess.logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	sess.logger.Info("serving", "addr", opts.Addr, "backend", sess.cfg.Backend, "data_dir", sess.cfg.DataDir)
	fmt.Fprintf(cmd.OutOrStdout(), "Serving contribution log on %s\n", opts.Addr)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	srv := server.New(sess.ledger, reg, sess.logger)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx, opts.Addr) }()

	if opts.ready != nil || opts.Verbose {
		go announce(ctx, srv, opts, cmd)
	}

	if err := <-errCh; err != nil {
		return WrapExitError(ExitCommandError, "server error", err)
	}
	sess.logger.Info("server stopped gracefully")
	return nil
}

// announce waits for the listener to bind and reports its address.
func announce(ctx context.Context, srv *server.Server, opts *ServeOptions, cmd *cobra.Command) {
	for {
		if addr := srv.Addr(); addr != nil {
			opts.formatter(cmd).VerboseLog("listening on %s", addr)
			if opts.ready != nil {
				opts.ready(addr.String())
			}
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(10 * time.Millisecond):
		}
	}
}
