package config

import (
	"os"
	"strconv"

	"github.com/c2h5oh/datasize"
)

// FromEnv overlays CONTRIBLOG_* environment variables onto cfg.
// Values that do not parse are ignored.
func FromEnv(cfg *Config) {
	if v := os.Getenv("CONTRIBLOG_BACKEND"); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv("CONTRIBLOG_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("CONTRIBLOG_PROGRAM_ID"); v != "" {
		cfg.ProgramID = v
	}
	if v := os.Getenv("CONTRIBLOG_RENT_LAMPORTS_PER_BYTE_YEAR"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Rent.LamportsPerByteYear = n
		}
	}
	if v := os.Getenv("CONTRIBLOG_RENT_EXEMPTION_YEARS"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Rent.ExemptionYears = n
		}
	}
	if v := os.Getenv("CONTRIBLOG_RENT_ACCOUNT_OVERHEAD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Rent.AccountOverhead = n
		}
	}
	if v := os.Getenv("CONTRIBLOG_MAX_ACCOUNT_SIZE"); v != "" {
		var size datasize.ByteSize
		if err := size.UnmarshalText([]byte(v)); err == nil {
			cfg.MaxAccountSize = size
		}
	}
	if v := os.Getenv("CONTRIBLOG_MAX_GROWTH_PER_CALL"); v != "" {
		var size datasize.ByteSize
		if err := size.UnmarshalText([]byte(v)); err == nil {
			cfg.MaxGrowthPerCall = size
		}
	}
	if v := os.Getenv("CONTRIBLOG_FSYNC"); v != "" {
		cfg.Fsync = v
	}
	if v := os.Getenv("CONTRIBLOG_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("CONTRIBLOG_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}
