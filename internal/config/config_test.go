package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/c2h5oh/datasize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/contriblog/internal/ledger"
	"github.com/roach88/contriblog/internal/store"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, ledger.DefaultProgramID.String(), cfg.ProgramID)
	assert.Equal(t, uint64(10<<20), cfg.MaxAccountSize.Bytes())
	assert.Equal(t, uint64(10<<10), cfg.MaxGrowthPerCall.Bytes())
	assert.Equal(t, uint64(3480), cfg.Rent.LamportsPerByteYear)
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
backend: pebble
dataDir: /var/lib/contriblog
rent:
  lamportsPerByteYear: 10
maxAccountSize: 1MB
maxGrowthPerCall: 512
fsync: never
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendPebble, cfg.Backend)
	assert.Equal(t, "/var/lib/contriblog", cfg.DataDir)
	assert.Equal(t, uint64(10), cfg.Rent.LamportsPerByteYear)
	// untouched keys keep their defaults
	assert.Equal(t, uint64(2), cfg.Rent.ExemptionYears)
	assert.Equal(t, datasize.MB, cfg.MaxAccountSize)
	assert.Equal(t, datasize.ByteSize(512), cfg.MaxGrowthPerCall)
	assert.Equal(t, "never", cfg.Fsync)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, "\n"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsSchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown key", "colour: blue\n"},
		{"unknown backend", "backend: postgres\n"},
		{"bad program id", "programId: not-base58-0OIl\n"},
		{"bad size", "maxAccountSize: lots\n"},
		{"negative size", "maxGrowthPerCall: -1\n"},
		{"bad fsync", "fsync: sometimes\n"},
		{"nested unknown key", "log:\n  colour: blue\n"},
		{"zero rent", "rent:\n  exemptionYears: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestValidateCrossField(t *testing.T) {
	cfg := Default()
	cfg.MaxGrowthPerCall = 2 * datasize.MB
	cfg.MaxAccountSize = datasize.MB
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")

	cfg = Default()
	cfg.ProgramID = "xyz"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Backend = "memory"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Rent.AccountOverhead = -1
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accountOverhead")

	cfg = Default()
	cfg.Rent.AccountOverhead = 0
	assert.NoError(t, cfg.Validate())
}

func TestFromEnv_NegativeOverheadRejected(t *testing.T) {
	t.Setenv("CONTRIBLOG_RENT_ACCOUNT_OVERHEAD", "-200")

	cfg := Default()
	FromEnv(&cfg)
	assert.Equal(t, -200, cfg.Rent.AccountOverhead)
	assert.Error(t, cfg.Validate())
}

func TestFromEnv(t *testing.T) {
	t.Setenv("CONTRIBLOG_BACKEND", "pebble")
	t.Setenv("CONTRIBLOG_DATA_DIR", "/tmp/x")
	t.Setenv("CONTRIBLOG_MAX_ACCOUNT_SIZE", "2MB")
	t.Setenv("CONTRIBLOG_MAX_GROWTH_PER_CALL", "not-a-size")
	t.Setenv("CONTRIBLOG_RENT_ACCOUNT_OVERHEAD", "64")
	t.Setenv("CONTRIBLOG_LOG_LEVEL", "warn")

	cfg := Default()
	FromEnv(&cfg)
	assert.Equal(t, BackendPebble, cfg.Backend)
	assert.Equal(t, "/tmp/x", cfg.DataDir)
	assert.Equal(t, 2*datasize.MB, cfg.MaxAccountSize)
	assert.Equal(t, 10*datasize.KB, cfg.MaxGrowthPerCall)
	assert.Equal(t, 64, cfg.Rent.AccountOverhead)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLedgerOptions(t *testing.T) {
	cfg := Default()
	cfg.DataDir = t.TempDir()
	cfg.Rent.LamportsPerByteYear = 1
	cfg.Rent.ExemptionYears = 1
	cfg.Rent.AccountOverhead = 0

	opts, err := cfg.LedgerOptions()
	require.NoError(t, err)

	backend, err := cfg.OpenBackend(nil)
	require.NoError(t, err)
	defer backend.Close()

	l := ledger.New(backend, opts...)
	assert.Equal(t, ledger.DefaultProgramID, l.ProgramID())
	assert.Equal(t, uint64(44), l.Rent().MinimumBalance(44))
}

func TestOpenBackendBothKinds(t *testing.T) {
	for _, backend := range []string{BackendSQLite, BackendPebble} {
		t.Run(backend, func(t *testing.T) {
			cfg := Default()
			cfg.Backend = backend
			cfg.DataDir = filepath.Join(t.TempDir(), "nested", "dir")
			cfg.Fsync = "never"

			b, err := cfg.OpenBackend(store.NoopMetrics{})
			require.NoError(t, err)
			t.Cleanup(func() { _ = b.Close() })

			require.NoError(t, b.View(context.Background(), func(tx store.Tx) error {
				_, ok, err := tx.GetAccount(ledger.DefaultProgramID)
				assert.False(t, ok)
				return err
			}))
		})
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Default()

	cfg.Logger(&buf, false).Debug("hidden")
	assert.Empty(t, buf.String())

	cfg.Logger(&buf, true).Debug("shown")
	assert.Contains(t, buf.String(), "msg=shown")

	buf.Reset()
	cfg.Log.Format = "json"
	cfg.Logger(&buf, false).Info("hello")
	assert.True(t, strings.HasPrefix(buf.String(), "{"))
}

func writeConfig(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "contriblog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}
