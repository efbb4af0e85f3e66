package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/ledgerq/internal/engine"
)

// ReplayMismatch is a call replay could not reproduce.
type ReplayMismatch struct {
	CallID string `json:"call_id"`
	Seq    int64  `json:"seq"`
	Reason string `json:"reason"`
}

// ReplayResult holds the replay outcome of an instance.
type ReplayResult struct {
	Instance   string           `json:"instance"`
	Calls      int              `json:"calls"`
	Head       string           `json:"head"`
	OK         bool             `json:"ok"`
	Mismatches []ReplayMismatch `json:"mismatches"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the call log and verify every recorded call",
		Long: `Replay the call log of the configured instance from its initial state.

Each call's public transcript is re-executed against the state the
previous call left; its reads must reproduce their recorded results, and
the resulting root, commitment and digest must match the log.

Exit codes:
  0 - Every call replayed to its recorded outcome
  1 - Replay found mismatches, or the descriptor changed since deploy
  2 - Command error (database not found, instance not deployed, etc.)

Examples:
  ledgerq replay --db ./ledgerq.db
  ledgerq replay --db ./ledgerq.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(rootOpts, cmd)
		},
	}
	return cmd
}

func runReplay(opts *RootOptions, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	h, err := openHost(opts, cmd, f)
	if err != nil {
		return err
	}
	defer h.Close()

	report, err := engine.Replay(cmd.Context(), h.store, h.contract, h.Address())
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return commandError(f, ErrCodeNotFound, fmt.Sprintf("instance %s is not deployed", h.Address()), nil)
	case engine.IsSpecMismatch(err), engine.IsCorruptSnapshot(err):
		_ = f.Error(ErrCodeInvalid, err.Error(), nil)
		return WrapExitError(ExitFailure, "replay failed", err)
	case err != nil:
		return commandError(f, ErrCodeGeneric, "replaying call log", err)
	}

	result := ReplayResult{
		Instance:   report.Instance,
		Calls:      report.Calls,
		Head:       report.Head,
		OK:         report.OK(),
		Mismatches: make([]ReplayMismatch, 0, len(report.Mismatches)),
	}
	for _, m := range report.Mismatches {
		result.Mismatches = append(result.Mismatches, ReplayMismatch(m))
	}
	f.VerboseLog("Replayed %d call(s) of %s", result.Calls, result.Instance)

	if err := f.Success(result, func(w io.Writer) {
		if result.OK {
			fmt.Fprintf(w, "✓ Replayed %d call(s), head %s\n", result.Calls, result.Head)
			return
		}
		fmt.Fprintf(w, "✗ Replay found %d mismatch(es) in %d call(s)\n\n", len(result.Mismatches), result.Calls)
		for _, m := range result.Mismatches {
			fmt.Fprintf(w, "  seq %d (%s): %s\n", m.Seq, m.CallID, m.Reason)
		}
	}); err != nil {
		return err
	}

	if !result.OK {
		return NewExitError(ExitFailure, fmt.Sprintf("replay found %d mismatch(es)", len(result.Mismatches)))
	}
	return nil
}
