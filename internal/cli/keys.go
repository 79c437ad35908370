package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/contriblog/internal/address"
	"github.com/roach88/contriblog/internal/ir"
	"github.com/roach88/contriblog/internal/ledger"
)

// KeygenOptions holds flags for the keygen command.
type KeygenOptions struct {
	*RootOptions
	Out string
}

// KeygenResult is the output of the keygen command.
type KeygenResult struct {
	Path    string    `json:"path"`
	Pubkey  ir.Pubkey `json:"pubkey"`
	Created bool      `json:"created"`
}

// NewKeygenCommand creates the keygen command.
func NewKeygenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &KeygenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Create a signing keypair",
		Long: `Create an ed25519 signing keypair and write it to --out with mode 0600.

If the file already exists it is loaded and its public key is printed;
an existing keypair is never overwritten.

Example:
  contriblog keygen --out alice.key`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeygen(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Out, "out", "id.key", "keypair file to create")

	return cmd
}

func runKeygen(opts *KeygenOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	kp, created, err := ledger.LoadOrGenerateKeypair(opts.Out)
	if err != nil {
		return WrapExitError(ExitCommandError, "keygen failed", err)
	}

	result := KeygenResult{Path: opts.Out, Pubkey: kp.Public(), Created: created}
	return formatter.Render(result, "", func(w io.Writer) {
		if created {
			fmt.Fprintf(w, "Wrote keypair to %s\n", opts.Out)
		} else {
			fmt.Fprintf(w, "Keypair %s already exists\n", opts.Out)
		}
		fmt.Fprintf(w, "pubkey: %s\n", kp.Public())
	})
}

// AddressResult is the output of the address command.
type AddressResult struct {
	ProgramID ir.Pubkey `json:"program_id"`
	Address   ir.Pubkey `json:"address"`
	Bump      uint8     `json:"bump"`
	Seed      string    `json:"seed"`
}

// NewAddressCommand creates the address command.
func NewAddressCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "address",
		Short: "Print the log slot address",
		Long: `Derive the program-derived address of the contribution log from the
configured program id. The derivation needs no ledger access.

Example:
  contriblog address
  contriblog address --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAddress(rootOpts, cmd)
		},
	}
	return cmd
}

func runAddress(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	programID, err := ir.ParsePubkey(cfg.ProgramID)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid program id", err)
	}
	derived, err := address.LogState(programID)
	if err != nil {
		return WrapExitError(ExitCommandError, "address derivation failed", err)
	}

	result := AddressResult{
		ProgramID: programID,
		Address:   derived.Address,
		Bump:      derived.Bump,
		Seed:      address.LogStateSeed,
	}
	return formatter.Render(result, "", func(w io.Writer) {
		fmt.Fprintf(w, "program: %s\n", result.ProgramID)
		fmt.Fprintf(w, "address: %s\n", result.Address)
		fmt.Fprintf(w, "bump:    %d\n", result.Bump)
	})
}

// resolvePubkey returns the key named by a base58 string or, failing that,
// by a keypair file.
func resolvePubkey(key, keypairPath string) (ir.Pubkey, error) {
	switch {
	case key != "" && keypairPath != "":
		return ir.Pubkey{}, NewExitError(ExitCommandError, "pass either a public key or --keypair, not both")
	case key != "":
		pk, err := ir.ParsePubkey(key)
		if err != nil {
			return ir.Pubkey{}, WrapExitError(ExitCommandError, "invalid public key", err)
		}
		return pk, nil
	case keypairPath != "":
		kp, err := ledger.LoadKeypair(keypairPath)
		if err != nil {
			return ir.Pubkey{}, WrapExitError(ExitCommandError, "failed to load keypair", err)
		}
		return kp.Public(), nil
	default:
		return ir.Pubkey{}, NewExitError(ExitCommandError, "a public key or --keypair is required")
	}
}
