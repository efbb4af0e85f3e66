package transcript

import (
	"fmt"

	"github.com/roach88/ledgerq/internal/ir"
	"github.com/roach88/ledgerq/internal/vm"
)

// Replay re-executes the public transcript of p against ctx. Every popeq
// carries its recorded result, so any divergence in what the ledger returns
// is a TRANSCRIPT_INVARIANT_VIOLATION. It returns the resulting context.
func Replay(in *vm.Interpreter, ctx vm.QueryContext, p ProofData) (vm.QueryContext, error) {
	if got, want := countReads(p.PublicTranscript), p.ReadCount(); got != want {
		return vm.QueryContext{}, ir.NewTranscriptViolation("replay",
			fmt.Sprintf("%d of %d popeq operations carry a result", got, want))
	}
	res, err := in.Run(ctx, p.PublicTranscript)
	if err != nil {
		return vm.QueryContext{}, fmt.Errorf("replay: %w", err)
	}
	return res.Context, nil
}
