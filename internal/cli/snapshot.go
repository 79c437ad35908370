package cli

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/cobra"

	"github.com/roach88/contriblog/internal/codec"
	"github.com/roach88/contriblog/internal/ir"
	"github.com/roach88/contriblog/internal/program"
)

// gzipMagic prefixes every gzip stream.
var gzipMagic = []byte{0x1f, 0x8b}

// LogView is the output of the show command.
type LogView struct {
	// Address and Lamports are unknown when reading a snapshot.
	Address       *ir.Pubkey              `json:"address,omitempty"`
	Lamports      *uint64                 `json:"lamports,omitempty"`
	Authority     ir.Pubkey               `json:"authority"`
	Count         int                     `json:"count"`
	Space         int                     `json:"space"`
	Digest        string                  `json:"digest"`
	Contributions []ir.ContributionRecord `json:"contributions"`
}

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	From string
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the whole contribution log",
		Long: `Print the authority and every contribution record in append order.

With --from, decode a snapshot written by "contriblog export" instead of
reading the ledger. Gzip-compressed snapshots are detected automatically.

Example:
  contriblog show
  contriblog show --format json
  contriblog show --from log.snap.gz`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "decode a snapshot file instead of the ledger")

	return cmd
}

func runShow(opts *ShowOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	var (
		view LogView
		err  error
	)
	if opts.From != "" {
		view, err = viewSnapshot(opts.From)
	} else {
		view, err = viewLedger(opts, cmd)
	}
	if err != nil {
		var perr *program.Error
		if errors.As(err, &perr) {
			if ferr := formatter.Error(string(perr.Code), perr.Message, nil); ferr != nil {
				return ferr
			}
			return WrapExitError(ExitFailure, "cannot read log", perr)
		}
		return err
	}

	return formatter.Render(view, "", func(w io.Writer) {
		writeLogView(w, view)
	})
}

func viewLedger(opts *ShowOptions, cmd *cobra.Command) (LogView, error) {
	sess, err := opts.openLedger(cmd, nil)
	if err != nil {
		return LogView{}, err
	}
	defer sess.Close()

	addr, acct, err := sess.ledger.Slot(cmd.Context())
	if err != nil {
		return LogView{}, err
	}
	view, err := decodeView(acct.Data)
	if err != nil {
		return LogView{}, err
	}
	view.Address = &addr
	view.Lamports = &acct.Lamports
	return view, nil
}

func viewSnapshot(path string) (LogView, error) {
	raw, err := readSnapshot(path)
	if err != nil {
		return LogView{}, WrapExitError(ExitCommandError, "failed to read snapshot", err)
	}
	return decodeView(raw)
}

func decodeView(slot []byte) (LogView, error) {
	state, n, err := codec.DecodeState(slot)
	if err != nil {
		return LogView{}, program.NewCorruptLayoutError(err)
	}
	contributions := state.Contributions
	if contributions == nil {
		contributions = []ir.ContributionRecord{}
	}
	return LogView{
		Authority:     state.Authority,
		Count:         state.Len(),
		Space:         len(slot),
		Digest:        ir.SlotDigest(slot[:n]),
		Contributions: contributions,
	}, nil
}

// readSnapshot returns the slot bytes stored at path, inflating them if
// the file is gzip-compressed.
func readSnapshot(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	head, err := br.Peek(len(gzipMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if !bytes.Equal(head, gzipMagic) {
		return io.ReadAll(br)
	}

	zr, err := gzip.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

func writeLogView(w io.Writer, view LogView) {
	if view.Address != nil {
		fmt.Fprintf(w, "address:   %s\n", view.Address)
	}
	fmt.Fprintf(w, "authority: %s\n", view.Authority)
	fmt.Fprintf(w, "records:   %d\n", view.Count)
	fmt.Fprintf(w, "space:     %d bytes\n", view.Space)
	if view.Lamports != nil {
		fmt.Fprintf(w, "lamports:  %d\n", *view.Lamports)
	}
	fmt.Fprintf(w, "digest:    %s\n", view.Digest)
	for i, rec := range view.Contributions {
		fmt.Fprintf(w, "[%d] %d %s %q\n", i, rec.Timestamp, rec.Contributor, rec.CodeHash)
	}
}

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Out  string
	Gzip bool
}

// ExportResult is the output of the export command.
type ExportResult struct {
	Path       string `json:"path"`
	Bytes      int    `json:"bytes"`
	Compressed bool   `json:"compressed"`
	Count      int    `json:"count"`
	Digest     string `json:"digest"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a snapshot of the log slot",
		Long: `Write the encoded log to --out. Only the logical length is written;
unused trailing capacity is dropped. The snapshot can be decoded later
with "contriblog show --from".

Example:
  contriblog export --out log.snap
  contriblog export --out log.snap.gz --gzip`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "snapshot file (required)")
	cmd.Flags().BoolVar(&opts.Gzip, "gzip", false, "gzip-compress the snapshot")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	sess, err := opts.openLedger(cmd, nil)
	if err != nil {
		return err
	}
	defer sess.Close()

	_, acct, err := sess.ledger.Slot(cmd.Context())
	if err != nil {
		var perr *program.Error
		if errors.As(err, &perr) {
			if ferr := formatter.Error(string(perr.Code), perr.Message, nil); ferr != nil {
				return ferr
			}
			return WrapExitError(ExitFailure, "cannot export log", perr)
		}
		return WrapExitError(ExitCommandError, "failed to read log slot", err)
	}
	logical, err := codec.Logical(acct.Data)
	if err != nil {
		return WrapExitError(ExitFailure, "cannot export log", program.NewCorruptLayoutError(err))
	}
	state, _, err := codec.DecodeState(logical)
	if err != nil {
		return WrapExitError(ExitFailure, "cannot export log", program.NewCorruptLayoutError(err))
	}

	if err := writeSnapshot(opts.Out, logical, opts.Gzip); err != nil {
		return WrapExitError(ExitCommandError, "failed to write snapshot", err)
	}
	formatter.VerboseLog("wrote %d logical bytes of %d allocated", len(logical), len(acct.Data))

	result := ExportResult{
		Path:       opts.Out,
		Bytes:      len(logical),
		Compressed: opts.Gzip,
		Count:      state.Len(),
		Digest:     ir.SlotDigest(logical),
	}
	return formatter.Render(result, "", func(w io.Writer) {
		fmt.Fprintf(w, "Exported %d records (%d bytes) to %s\n", result.Count, result.Bytes, result.Path)
	})
}

func writeSnapshot(path string, data []byte, compress bool) error {
	if !compress {
		return os.WriteFile(path, data, 0644)
	}

	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return err
	}
	if _, err := zw.Write(data); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}
