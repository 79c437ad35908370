package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/contriblog/internal/ledger"
	"github.com/roach88/contriblog/internal/program"
)

// TxOptions holds flags shared by the transaction commands.
type TxOptions struct {
	*RootOptions
	Keypair string
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TxOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the contribution log",
		Long: `Submit an initialize transaction signed by --keypair.

The signer becomes the log authority and pays rent for the empty log.
The log can be initialized exactly once.

Exit codes:
  0 - Transaction committed
  1 - Transaction rejected (ALREADY_INITIALIZED, INSUFFICIENT_FUNDS, ...)
  2 - Command error

Example:
  contriblog init --keypair alice.key`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return submit(opts, ledger.InstructionInitialize, "", cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Keypair, "keypair", "", "signer keypair file (required)")
	_ = cmd.MarkFlagRequired("keypair")

	return cmd
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TxOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log <code-hash>",
		Short: "Append a contribution record",
		Long: `Submit a log_contribution transaction signed by --keypair.

Only the log authority may append. The code hash is stored verbatim and
must be between 1 and 64 bytes. The signer pays rent for the added bytes.

Exit codes:
  0 - Transaction committed
  1 - Transaction rejected (AUTHORITY_MISMATCH, EMPTY_CODE_HASH, ...)
  2 - Command error

Example:
  contriblog log --keypair alice.key abc123`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return submit(opts, ledger.InstructionLogContribution, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Keypair, "keypair", "", "signer keypair file (required)")
	_ = cmd.MarkFlagRequired("keypair")

	return cmd
}

func submit(opts *TxOptions, instr ledger.Instruction, codeHash string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	kp, err := ledger.LoadKeypair(opts.Keypair)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load keypair", err)
	}

	sess, err := opts.openLedger(cmd, nil)
	if err != nil {
		return err
	}
	defer sess.Close()

	tx, err := ledger.NewTransaction(sess.ledger.ProgramID(), kp, instr, codeHash)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build transaction", err)
	}
	formatter.VerboseLog("submitting %s as %s (tx %s)", instr, kp.Public(), tx.ID)

	rcpt, err := sess.ledger.Submit(cmd.Context(), tx)
	if err != nil {
		var perr *program.Error
		if !errors.As(err, &perr) {
			return WrapExitError(ExitCommandError, "transaction could not be executed", err)
		}
		if ferr := formatter.Error(string(perr.Code), perr.Message, rcpt); ferr != nil {
			return ferr
		}
		return WrapExitError(ExitFailure, fmt.Sprintf("%s rejected", instr), perr)
	}

	return formatter.Render(rcpt, rcpt.TxID, func(w io.Writer) {
		writeReceipt(w, rcpt)
	})
}

func writeReceipt(w io.Writer, rcpt ledger.Receipt) {
	fmt.Fprintf(w, "%s committed\n", rcpt.Instruction)
	fmt.Fprintf(w, "  tx:        %s\n", rcpt.TxID)
	fmt.Fprintf(w, "  signer:    %s\n", rcpt.Signer)
	fmt.Fprintf(w, "  timestamp: %d\n", rcpt.Timestamp)
	fmt.Fprintf(w, "  count:     %d\n", rcpt.Count)
	fmt.Fprintf(w, "  space:     %d\n", rcpt.Space)
	fmt.Fprintf(w, "  rent paid: %d\n", rcpt.RentPaid)
	for _, line := range rcpt.Logs {
		fmt.Fprintf(w, "  log: %s\n", line)
	}
}
