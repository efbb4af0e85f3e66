package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// InstanceInfo describes a deployed instance.
type InstanceInfo struct {
	Address        string `json:"address"`
	Contract       string `json:"contract"`
	SpecHash       string `json:"spec_hash"`
	RuntimeVersion string `json:"runtime_version"`
	InitialRoot    string `json:"initial_root"`
	Head           string `json:"head"`
	Seq            int64  `json:"seq"`
}

// NewDeployCommand creates the deploy command.
func NewDeployCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the configured contract into the call log",
		Long: `Deploy the configured builtin contract at the configured address.

If the call log already holds the instance, deploy resumes it instead:
the stored descriptor hash and initial root must match, and the latest
snapshot must hash to its recorded root.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(rootOpts, cmd)
		},
	}
	return cmd
}

func runDeploy(opts *RootOptions, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)

	h, err := openHost(opts, cmd, f)
	if err != nil {
		return err
	}
	defer h.Close()

	eng, err := h.Engine(cmd.Context())
	if err != nil {
		return commandError(f, ErrCodeLoadFailed, "deploying instance", err)
	}
	head, err := eng.Head()
	if err != nil {
		return commandError(f, ErrCodeGeneric, "reading state root", err)
	}

	inst := eng.Instance()
	info := InstanceInfo{
		Address:        inst.Address,
		Contract:       inst.Contract,
		SpecHash:       inst.SpecHash,
		RuntimeVersion: inst.RuntimeVersion,
		InitialRoot:    inst.InitialRoot,
		Head:           head,
		Seq:            eng.Seq(),
	}
	return f.Success(info, func(w io.Writer) {
		if info.Seq == 0 {
			fmt.Fprintf(w, "✓ Deployed %s at %s\n", info.Contract, info.Address)
		} else {
			fmt.Fprintf(w, "✓ Resumed %s at %s (seq %d)\n", info.Contract, info.Address, info.Seq)
		}
		fmt.Fprintf(w, "  spec hash %s\n", info.SpecHash)
		fmt.Fprintf(w, "  head      %s\n", info.Head)
	})
}
