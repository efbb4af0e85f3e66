package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/ledgerq/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompiledContract is a contract descriptor with its spec hash.
type CompiledContract struct {
	Spec     *ir.ContractSpec `json:"spec"`
	SpecHash string           `json:"spec_hash"`
}

// CompilationResult holds the compiled contracts.
type CompilationResult struct {
	Contracts []CompiledContract `json:"contracts"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <path>",
		Short: "Compile CUE contract descriptors to canonical JSON",
		Long: `Compile CUE contract descriptors to their canonical JSON form.

path is a .cue file or a directory of them. Each contract is checked
against the descriptor schema and validated; the output carries the spec
hash the call log pins instances to.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	loaded, errs := LoadContracts(path, LoadModeCollectAll)
	if len(errs) > 0 {
		return reportLoadErrors(f, errs)
	}
	f.VerboseLog("Compiled %d file(s) from %s", len(loaded.Files), path)

	result := &CompilationResult{}
	for _, spec := range loaded.Contracts {
		hash, err := spec.Hash()
		if err != nil {
			return commandError(f, ErrCodeGeneric, fmt.Sprintf("hashing %s", spec.Name), err)
		}
		f.VerboseLog("Compiled contract: %s (%s)", spec.Name, hash)
		result.Contracts = append(result.Contracts, CompiledContract{Spec: spec, SpecHash: hash})
	}

	if opts.Output != "" {
		if err := writeCanonical(result.Contracts, opts.Output); err != nil {
			return commandError(f, ErrCodeWriteFailed, "writing output file", err)
		}
	}

	return f.Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "✓ Compiled %d contract(s)\n\n", len(result.Contracts))
		for _, c := range result.Contracts {
			fmt.Fprintf(w, "  %s: %d ledger field(s), %d circuit(s), %d witness(es)\n",
				c.Spec.Name, len(c.Spec.Ledger), len(c.Spec.Circuits), len(c.Spec.Witnesses))
			fmt.Fprintf(w, "    spec hash %s\n", c.SpecHash)
		}
		if opts.Output != "" {
			fmt.Fprintf(w, "\nWrote canonical JSON to %s\n", opts.Output)
		}
	})
}

// writeCanonical writes the contracts to filename as RFC 8785 canonical
// JSON.
func writeCanonical(contracts []CompiledContract, filename string) error {
	list := make([]any, len(contracts))
	for i, c := range contracts {
		spec, err := c.Spec.Canonical()
		if err != nil {
			return err
		}
		list[i] = map[string]any{
			"spec":      json.RawMessage(spec),
			"spec_hash": c.SpecHash,
		}
	}
	data, err := ir.MarshalCanonical(map[string]any{"contracts": list})
	if err != nil {
		return err
	}
	return os.WriteFile(filename, append(data, '\n'), 0o644)
}
