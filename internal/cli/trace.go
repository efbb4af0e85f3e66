package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/ledgerq/internal/ir"
	"github.com/roach88/ledgerq/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Circuit    string // optional - filter to one circuit
	From       int64  // first seq, 0 = open
	To         int64  // last seq, 0 = open
	MinGas     uint64 // only calls costing at least this much
	Transcript bool   // include the recorded transcripts
}

// TraceCall is one committed call in the timeline.
type TraceCall struct {
	Seq        int64           `json:"seq"`
	ID         string          `json:"id"`
	Circuit    string          `json:"circuit"`
	Args       []any           `json:"args"`
	GasCost    uint64          `json:"gas_cost"`
	PreRoot    string          `json:"pre_root"`
	PostRoot   string          `json:"post_root"`
	Commitment string          `json:"commitment"`
	Digest     string          `json:"digest"`
	Transcript json.RawMessage `json:"transcript,omitempty"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Calls     int            `json:"calls"`
	TotalGas  uint64         `json:"total_gas"`
	ByCircuit map[string]int `json:"by_circuit"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Instance string      `json:"instance"`
	Timeline []TraceCall `json:"timeline"`
	Stats    TraceStats  `json:"stats"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "List the committed calls of the configured instance",
		Long: `List the committed calls of the configured instance in seq order.

Examples:
  ledgerq trace --db ./ledgerq.db
  ledgerq trace --db ./ledgerq.db --circuit test_verification
  ledgerq trace --db ./ledgerq.db --from 10 --to 20 --min-gas 100
  ledgerq trace --db ./ledgerq.db --transcript --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Circuit, "circuit", "", "only show calls to this circuit")
	cmd.Flags().Int64Var(&opts.From, "from", 0, "first seq to show")
	cmd.Flags().Int64Var(&opts.To, "to", 0, "last seq to show")
	cmd.Flags().Uint64Var(&opts.MinGas, "min-gas", 0, "only show calls costing at least this much gas")
	cmd.Flags().BoolVar(&opts.Transcript, "transcript", false, "include the recorded public transcripts")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	if opts.From < 0 || opts.To < 0 || (opts.To != 0 && opts.From > opts.To) {
		return commandError(f, ErrCodeInvalid, fmt.Sprintf("invalid seq range [%d, %d]", opts.From, opts.To), nil)
	}

	h, err := openHost(opts.RootOptions, cmd, f)
	if err != nil {
		return err
	}
	defer h.Close()

	calls, err := h.store.QueryCalls(cmd.Context(), h.Address(), traceFilter(opts))
	if err != nil {
		return commandError(f, ErrCodeGeneric, "reading call log", err)
	}

	result := buildTrace(h.Address(), calls, opts.Transcript)

	return f.Success(result, func(w io.Writer) {
		if len(result.Timeline) == 0 {
			fmt.Fprintf(w, "No calls recorded for %s.\n", result.Instance)
			return
		}
		fmt.Fprintf(w, "Trace of %s\n\n", result.Instance)
		for _, c := range result.Timeline {
			fmt.Fprintf(w, "[%d] %s %v  gas=%d  %s\n", c.Seq, c.Circuit, c.Args, c.GasCost, c.ID)
			fmt.Fprintf(w, "     %s -> %s\n", shortHash(c.PreRoot), shortHash(c.PostRoot))
			if len(c.Transcript) > 0 {
				fmt.Fprintf(w, "     %s\n", c.Transcript)
			}
		}

		fmt.Fprintf(w, "\n%d call(s), %d gas\n", result.Stats.Calls, result.Stats.TotalGas)
		names := make([]string, 0, len(result.Stats.ByCircuit))
		for name := range result.Stats.ByCircuit {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "  %s: %d\n", name, result.Stats.ByCircuit[name])
		}
	})
}

func traceFilter(opts *TraceOptions) store.Predicate {
	var preds []store.Predicate
	if opts.Circuit != "" {
		preds = append(preds, store.CircuitIs{Circuit: opts.Circuit})
	}
	if opts.From != 0 || opts.To != 0 {
		preds = append(preds, store.SeqRange{From: opts.From, To: opts.To})
	}
	if opts.MinGas > 0 {
		preds = append(preds, store.GasAtLeast{Gas: opts.MinGas})
	}
	return store.And{Predicates: preds}
}

func buildTrace(instance string, calls []ir.CallRecord, withTranscript bool) TraceResult {
	result := TraceResult{
		Instance: instance,
		Timeline: make([]TraceCall, 0, len(calls)),
		Stats:    TraceStats{ByCircuit: make(map[string]int)},
	}
	for _, c := range calls {
		tc := TraceCall{
			Seq:        c.Seq,
			ID:         c.ID,
			Circuit:    c.Circuit,
			Args:       c.Args,
			GasCost:    c.GasCost,
			PreRoot:    c.PreRoot,
			PostRoot:   c.PostRoot,
			Commitment: c.Commitment,
			Digest:     c.Digest,
		}
		if tc.Args == nil {
			tc.Args = []any{}
		}
		if withTranscript {
			tc.Transcript = json.RawMessage(c.Transcript)
		}
		result.Timeline = append(result.Timeline, tc)
		result.Stats.Calls++
		result.Stats.TotalGas += c.GasCost
		result.Stats.ByCircuit[c.Circuit]++
	}
	return result
}

func shortHash(h string) string {
	if len(h) <= 12 {
		return h
	}
	return h[:12]
}
