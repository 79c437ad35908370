package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/contriblog/internal/ir"
)

// BalanceResult is the output of the airdrop and balance commands.
type BalanceResult struct {
	Pubkey   ir.Pubkey `json:"pubkey"`
	Lamports uint64    `json:"lamports"`
}

// AirdropOptions holds flags for the airdrop command.
type AirdropOptions struct {
	*RootOptions
	To       string
	Keypair  string
	Lamports uint64
}

// NewAirdropCommand creates the airdrop command.
func NewAirdropCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AirdropOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "airdrop",
		Short: "Credit lamports to an account",
		Long: `Credit lamports to a system account so it can pay rent for the log.

Example:
  contriblog airdrop --keypair alice.key --lamports 10000000000
  contriblog airdrop --to 9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin --lamports 5000`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAirdrop(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.To, "to", "", "recipient public key (base58)")
	cmd.Flags().StringVar(&opts.Keypair, "keypair", "", "recipient keypair file")
	cmd.Flags().Uint64Var(&opts.Lamports, "lamports", 0, "amount to credit (required)")
	_ = cmd.MarkFlagRequired("lamports")

	return cmd
}

func runAirdrop(opts *AirdropOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if opts.Lamports == 0 {
		return NewExitError(ExitCommandError, "--lamports must be positive")
	}
	to, err := resolvePubkey(opts.To, opts.Keypair)
	if err != nil {
		return err
	}

	sess, err := opts.openLedger(cmd, nil)
	if err != nil {
		return err
	}
	defer sess.Close()

	balance, err := sess.ledger.Airdrop(cmd.Context(), to, opts.Lamports)
	if err != nil {
		return WrapExitError(ExitFailure, "airdrop failed", err)
	}

	result := BalanceResult{Pubkey: to, Lamports: balance}
	return formatter.Render(result, "", func(w io.Writer) {
		fmt.Fprintf(w, "Credited %d lamports to %s\n", opts.Lamports, to)
		fmt.Fprintf(w, "balance: %d\n", balance)
	})
}

// BalanceOptions holds flags for the balance command.
type BalanceOptions struct {
	*RootOptions
	Keypair string
}

// NewBalanceCommand creates the balance command.
func NewBalanceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BalanceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "balance [pubkey]",
		Short: "Print the lamport balance of an account",
		Long: `Print the lamport balance of an account. Accounts that were never
credited hold zero.

Example:
  contriblog balance --keypair alice.key
  contriblog balance 9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var key string
			if len(args) == 1 {
				key = args[0]
			}
			return runBalance(opts, key, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Keypair, "keypair", "", "keypair file of the account")

	return cmd
}

func runBalance(opts *BalanceOptions, key string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	pk, err := resolvePubkey(key, opts.Keypair)
	if err != nil {
		return err
	}

	sess, err := opts.openLedger(cmd, nil)
	if err != nil {
		return err
	}
	defer sess.Close()

	lamports, err := sess.ledger.Balance(cmd.Context(), pk)
	if err != nil {
		return WrapExitError(ExitFailure, "balance lookup failed", err)
	}

	result := BalanceResult{Pubkey: pk, Lamports: lamports}
	return formatter.Render(result, "", func(w io.Writer) {
		fmt.Fprintf(w, "%d\n", lamports)
	})
}
