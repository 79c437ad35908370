package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/contriblog/internal/ledger"
	"github.com/roach88/contriblog/internal/program"
	"github.com/roach88/contriblog/internal/store"
	"github.com/roach88/contriblog/internal/store/pebblestore"
)

// OpenBackend opens the configured account backend under DataDir, creating
// the directory if needed. hook may be nil.
func (c Config) OpenBackend(hook store.MetricsHook) (store.Backend, error) {
	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	switch c.Backend {
	case BackendSQLite:
		s, err := store.Open(filepath.Join(c.DataDir, "ledger.db"))
		if err != nil {
			return nil, err
		}
		if hook != nil {
			s.SetMetrics(hook)
		}
		return s, nil
	case BackendPebble:
		mode, err := pebblestore.ParseFsyncMode(c.Fsync)
		if err != nil {
			return nil, err
		}
		db, err := pebblestore.Open(pebblestore.Options{
			DataDir: filepath.Join(c.DataDir, "pebble"),
			Fsync:   mode,
			Metrics: hook,
		})
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("config: unknown backend %q", c.Backend)
	}
}

// LedgerOptions translates the program id, rent schedule and resource
// limits into ledger options.
func (c Config) LedgerOptions() ([]ledger.Option, error) {
	id, err := c.programID()
	if err != nil {
		return nil, err
	}
	return []ledger.Option{
		ledger.WithProgramID(id),
		ledger.WithRent(ledger.Rent{
			LamportsPerByteYear: c.Rent.LamportsPerByteYear,
			ExemptionYears:      c.Rent.ExemptionYears,
			AccountOverhead:     c.Rent.AccountOverhead,
		}),
		ledger.WithLimits(program.Limits{
			MaxAccountSize:   int(c.MaxAccountSize.Bytes()),
			MaxGrowthPerCall: int(c.MaxGrowthPerCall.Bytes()),
		}),
	}, nil
}

// Logger builds the slog logger described by Log. verbose forces Debug.
func (c Config) Logger(w io.Writer, verbose bool) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
