package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
	"github.com/c2h5oh/datasize"
	"gopkg.in/yaml.v3"

	"github.com/roach88/contriblog/internal/ir"
	"github.com/roach88/contriblog/internal/ledger"
)

//go:embed schema.cue
var schemaSource string

// Backend names.
const (
	BackendSQLite = "sqlite"
	BackendPebble = "pebble"
)

// Config is the top-level configuration loaded from file and env.
type Config struct {
	Backend          string            `yaml:"backend"`
	DataDir          string            `yaml:"dataDir"`
	ProgramID        string            `yaml:"programId"`
	Rent             RentConfig        `yaml:"rent"`
	MaxAccountSize   datasize.ByteSize `yaml:"maxAccountSize"`
	MaxGrowthPerCall datasize.ByteSize `yaml:"maxGrowthPerCall"`
	// Fsync applies to the pebble backend only.
	Fsync string    `yaml:"fsync"`
	Log   LogConfig `yaml:"log"`
}

// RentConfig mirrors ledger.Rent.
type RentConfig struct {
	LamportsPerByteYear uint64 `yaml:"lamportsPerByteYear"`
	ExemptionYears      uint64 `yaml:"exemptionYears"`
	AccountOverhead     int    `yaml:"accountOverhead"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns built-in defaults.
func Default() Config {
	rent := ledger.DefaultRent()
	return Config{
		Backend:   BackendSQLite,
		DataDir:   ".contriblog",
		ProgramID: ledger.DefaultProgramID.String(),
		Rent: RentConfig{
			LamportsPerByteYear: rent.LamportsPerByteYear,
			ExemptionYears:      rent.ExemptionYears,
			AccountOverhead:     rent.AccountOverhead,
		},
		MaxAccountSize:   10 * datasize.MB,
		MaxGrowthPerCall: 10 * datasize.KB,
		Fsync:            "always",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML configuration file over Default. If path is empty,
// returns defaults.
//
// The document is checked against the embedded CUE schema before it is
// decoded, so unknown keys and out-of-range values are reported with their
// position in the file.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(path, b)
}

// Parse validates and decodes a YAML document. filename is only used in
// error messages.
func Parse(filename string, data []byte) (Config, error) {
	cfg := Default()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}
	if err := validateSchema(filename, data); err != nil {
		return Config{}, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", filename, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateSchema(filename string, data []byte) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	file, err := cueyaml.Extract(filename, data)
	if err != nil {
		return fmt.Errorf("parse config %s: %w", filename, err)
	}
	doc := ctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("parse config %s: %w", filename, err)
	}

	if err := def.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config %s: %s", filename, cueerrors.Details(err, nil))
	}
	return nil
}

// Validate checks cross-field constraints the schema cannot express and
// values that may have come from the environment.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendSQLite, BackendPebble:
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	if c.DataDir == "" {
		return errors.New("config: dataDir is required")
	}
	if _, err := c.programID(); err != nil {
		return err
	}
	if c.MaxAccountSize == 0 || c.MaxGrowthPerCall == 0 {
		return errors.New("config: maxAccountSize and maxGrowthPerCall must be positive")
	}
	if c.MaxGrowthPerCall > c.MaxAccountSize {
		return fmt.Errorf("config: maxGrowthPerCall %s exceeds maxAccountSize %s",
			c.MaxGrowthPerCall.HR(), c.MaxAccountSize.HR())
	}
	if c.Rent.LamportsPerByteYear == 0 || c.Rent.ExemptionYears == 0 {
		return errors.New("config: rent.lamportsPerByteYear and rent.exemptionYears must be positive")
	}
	if c.Rent.AccountOverhead < 0 {
		return fmt.Errorf("config: rent.accountOverhead must not be negative, got %d", c.Rent.AccountOverhead)
	}
	switch c.Fsync {
	case "", "always", "interval", "never":
	default:
		return fmt.Errorf("config: unknown fsync mode %q", c.Fsync)
	}
	return nil
}

func (c Config) programID() (ir.Pubkey, error) {
	id, err := ir.ParsePubkey(c.ProgramID)
	if err != nil {
		return ir.Pubkey{}, fmt.Errorf("config: programId: %w", err)
	}
	return id, nil
}
