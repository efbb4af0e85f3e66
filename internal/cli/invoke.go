package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/ledgerq/internal/codec"
	"github.com/roach88/ledgerq/internal/engine"
	"github.com/roach88/ledgerq/internal/ir"
)

// InvokeOptions holds flags for the invoke command.
type InvokeOptions struct {
	*RootOptions
	Args string
}

// CallInfo describes a committed call.
type CallInfo struct {
	CallID     string `json:"call_id"`
	Circuit    string `json:"circuit"`
	Seq        int64  `json:"seq"`
	Result     any    `json:"result,omitempty"`
	GasCost    uint64 `json:"gas_cost"`
	PreRoot    string `json:"pre_root"`
	PostRoot   string `json:"post_root"`
	Commitment string `json:"commitment"`
	Digest     string `json:"digest"`
}

// NewInvokeCommand creates the invoke command.
func NewInvokeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InvokeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "invoke <circuit>",
		Short: "Invoke a circuit and commit it to the call log",
		Long: `Invoke a circuit of the configured instance, deploying it first if needed.

Arguments are a JSON array in native form: numbers as JSON numbers or
decimal strings, booleans, byte blocks as 0x-prefixed hex, vectors as
arrays and structs as objects.

Example:
  ledgerq invoke verify_and_record_nationality \
    --args '[{"id":1,"issuer":"123456789012345678901234567890", ...}, 1677609600]'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInvoke(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Args, "args", "[]", "circuit arguments as a JSON array")

	return cmd
}

func runInvoke(opts *InvokeOptions, circuit string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	raw, err := parseArgsJSON(opts.Args)
	if err != nil {
		return commandError(f, ErrCodeInvalid, "invalid --args JSON", err)
	}

	h, err := openHost(opts.RootOptions, cmd, f)
	if err != nil {
		return err
	}
	defer h.Close()

	eng, err := h.Engine(cmd.Context())
	if err != nil {
		return commandError(f, ErrCodeLoadFailed, "deploying instance", err)
	}

	out, err := eng.InvokeNative(cmd.Context(), circuit, raw)
	if code, ok := rejectionCode(err); ok {
		_ = f.Error(ErrCodeCallRejected, err.Error(), map[string]string{"code": code, "circuit": circuit})
		return WrapExitError(ExitFailure, "call rejected", err)
	}
	if err != nil {
		return commandError(f, ErrCodeGeneric, "invoking "+circuit, err)
	}

	info := CallInfo{
		CallID:     out.CallID,
		Circuit:    circuit,
		Seq:        out.Seq,
		GasCost:    out.GasCost,
		PreRoot:    out.PreRoot,
		PostRoot:   out.PostRoot,
		Commitment: out.Commitment,
		Digest:     out.Digest,
	}
	if out.Result != nil {
		info.Result = codec.ToNative(out.Result)
	}

	return f.Success(info, func(w io.Writer) {
		fmt.Fprintf(w, "✓ %s committed as seq %d (%s)\n", circuit, info.Seq, info.CallID)
		if info.Result != nil {
			fmt.Fprintf(w, "  result     %v\n", info.Result)
		}
		fmt.Fprintf(w, "  gas        %d\n", info.GasCost)
		fmt.Fprintf(w, "  root       %s\n", info.PostRoot)
		fmt.Fprintf(w, "  commitment %s\n", info.Commitment)
	})
}

// parseArgsJSON decodes a JSON array keeping numbers exact.
func parseArgsJSON(s string) ([]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var raw []any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if raw == nil {
		raw = []any{}
	}
	return raw, nil
}

// rejectionCode reports the code of an error that rejected a call: a
// runtime error raised by the contract or a budget refusal by the engine.
func rejectionCode(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	if code := ir.CodeOf(err); code != "" {
		return string(code), true
	}
	if engine.IsGasExceeded(err) {
		return string(engine.ErrCodeGasExceeded), true
	}
	return "", false
}
