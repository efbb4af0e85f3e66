package cli

import (
	"fmt"
	"io"
	"math/big"

	"github.com/spf13/cobra"

	"github.com/roach88/ledgerq/internal/circuits"
	"github.com/roach88/ledgerq/internal/compiler"
	"github.com/roach88/ledgerq/internal/ir"
)

// ContractReport is the validation outcome of one contract.
type ContractReport struct {
	Name     string `json:"name"`
	SpecHash string `json:"spec_hash"`

	// Builtin is set when a builtin contract of the same name exists;
	// MatchesBuiltin tells whether the descriptors are identical.
	Builtin        bool `json:"builtin"`
	MatchesBuiltin bool `json:"matches_builtin"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <path>",
		Short: "Validate CUE contract descriptors",
		Long: `Validate CUE contract descriptors without producing output files.

Beyond the schema and descriptor checks done by compile, validate checks
that each contract can run on this runtime: its runtime version must be
compatible and its field bound must match.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	loaded, errs := LoadContracts(path, LoadModeCollectAll)
	if loaded == nil {
		return reportLoadErrors(f, errs)
	}

	var reports []ContractReport
	for _, spec := range loaded.Contracts {
		f.VerboseLog("Validating contract: %s", spec.Name)
		report, err := checkRuntime(opts.registry, spec)
		if err != nil {
			errs = append(errs, &LoadError{Code: ErrCodeInvalid, Message: fmt.Sprintf("%s: %v", spec.Name, err)})
			continue
		}
		reports = append(reports, report)
	}
	if len(errs) > 0 {
		return reportLoadErrors(f, errs)
	}

	return f.Success(reports, func(w io.Writer) {
		fmt.Fprintf(w, "✓ All %d contract(s) valid\n", len(reports))
		for _, r := range reports {
			suffix := ""
			switch {
			case r.Builtin && r.MatchesBuiltin:
				suffix = " (builtin)"
			case r.Builtin:
				suffix = " (differs from builtin)"
			}
			fmt.Fprintf(w, "  %s %s%s\n", r.Name, r.SpecHash, suffix)
		}
	})
}

// checkRuntime checks that spec can be hosted by this runtime.
func checkRuntime(reg *circuits.Registry, spec *ir.ContractSpec) (ContractReport, error) {
	if err := ir.CheckRuntimeVersion(spec.RuntimeVersion, ir.RuntimeVersion); err != nil {
		return ContractReport{}, err
	}
	maxField, ok := new(big.Int).SetString(spec.MaxField, 10)
	if !ok {
		return ContractReport{}, fmt.Errorf("invalid max field %q", spec.MaxField)
	}
	if err := ir.CheckMaxField(maxField); err != nil {
		return ContractReport{}, err
	}
	if _, err := compiler.BuildRegistry(spec); err != nil {
		return ContractReport{}, err
	}

	hash, err := spec.Hash()
	if err != nil {
		return ContractReport{}, err
	}
	report := ContractReport{Name: spec.Name, SpecHash: hash}

	if b, ok := reg.Lookup(spec.Name); ok {
		report.Builtin = true
		builtin, err := b.Spec()
		if err != nil {
			return ContractReport{}, err
		}
		builtinHash, err := builtin.Hash()
		if err != nil {
			return ContractReport{}, err
		}
		report.MatchesBuiltin = builtinHash == hash
	}
	return report, nil
}
