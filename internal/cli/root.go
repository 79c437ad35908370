package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/contriblog/internal/config"
	"github.com/roach88/contriblog/internal/ledger"
	"github.com/roach88/contriblog/internal/metrics"
	"github.com/roach88/contriblog/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	DataDir    string
	Backend    string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the contriblog CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "contriblog",
		Short: "contriblog - authority-gated contribution log",
		Long: `An append-only log of code contributions kept in one program-derived
account. Only the authority that initialized the log may append to it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "", "ledger data directory (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "account backend sqlite|pebble (overrides config)")

	cmd.AddCommand(NewKeygenCommand(opts))
	cmd.AddCommand(NewAddressCommand(opts))
	cmd.AddCommand(NewAirdropCommand(opts))
	cmd.AddCommand(NewBalanceCommand(opts))
	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewLogCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// formatter returns the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// loadConfig resolves defaults, the config file, CONTRIBLOG_* variables and
// the global flags, in that order.
func (o *RootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	config.FromEnv(&cfg)
	if o.DataDir != "" {
		cfg.DataDir = o.DataDir
	}
	if o.Backend != "" {
		cfg.Backend = o.Backend
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "invalid config", err)
	}
	return cfg, nil
}

// session is an open ledger plus everything that must be closed with it.
type session struct {
	cfg    config.Config
	ledger *ledger.Ledger
	logger *slog.Logger
	closer func() error
}

// Close releases the backend, logging any error.
func (s *session) Close() {
	if err := s.closer(); err != nil {
		s.logger.Error("error closing ledger backend", "error", err)
	}
}

// openLedger opens the configured backend and builds a ledger over it.
// reg may be nil; when set, storage and transaction metrics register on it.
func (o *RootOptions) openLedger(cmd *cobra.Command, reg prometheus.Registerer) (*session, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger(cmd.ErrOrStderr(), o.Verbose)

	var (
		m    *metrics.Metrics
		hook store.MetricsHook
	)
	if reg != nil {
		m = metrics.New(reg)
		hook = m
	}

	backend, err := cfg.OpenBackend(hook)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open ledger backend", err)
	}
	opts, err := cfg.LedgerOptions()
	if err != nil {
		_ = backend.Close()
		return nil, WrapExitError(ExitCommandError, "invalid config", err)
	}
	opts = append(opts, ledger.WithLogger(logger), ledger.WithMetrics(m))

	logger.Debug("ledger opened", "backend", cfg.Backend, "data_dir", cfg.DataDir)
	return &session{
		cfg:    cfg,
		ledger: ledger.New(backend, opts...),
		logger: logger,
		closer: backend.Close,
	}, nil
}
