package transcript

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/roach88/ledgerq/internal/ir"
	"github.com/roach88/ledgerq/internal/vm"
)

// Builder accumulates the transcript of one call. It is not safe for
// concurrent use; a call is single-threaded.
type Builder struct {
	in       *vm.Interpreter
	ctx      vm.QueryContext
	proof    ProofData
	gas      uint64
	finished bool
	logger   zerolog.Logger
}

// NewBuilder starts a transcript for a call with the given encoded input,
// executing against ctx.
func NewBuilder(in *vm.Interpreter, ctx vm.QueryContext, input ir.AlignedValue, logger zerolog.Logger) *Builder {
	return &Builder{
		in:  in,
		ctx: ctx,
		proof: ProofData{
			Input:                    input.Clone(),
			PublicTranscript:         vm.Program{},
			PrivateTranscriptOutputs: []ir.AlignedValue{},
		},
		logger: logger,
	}
}

// Context returns the working context, including writes made so far.
func (b *Builder) Context() vm.QueryContext { return b.ctx }

// GasCost returns the total cost of the queries run so far.
func (b *Builder) GasCost() uint64 { return b.gas }

// Query runs prog against the working context and appends it to the public
// transcript with popeq results filled in. It returns the values read.
//
// On error the working context is unchanged and nothing is recorded.
func (b *Builder) Query(prog vm.Program) ([]ir.AlignedValue, error) {
	if b.finished {
		return nil, ir.NewTranscriptViolation("query", "transcript already finished")
	}

	res, err := b.in.Run(b.ctx, prog)
	if err != nil {
		return nil, err
	}
	reads := res.Reads()

	filled, err := backfill(prog, reads)
	if err != nil {
		return nil, err
	}

	b.proof.PublicTranscript = append(b.proof.PublicTranscript, filled...)
	b.ctx = res.Context
	b.gas += res.GasCost
	b.logger.Debug().
		Int("ops", len(prog)).
		Int("reads", len(reads)).
		Uint64("gas", res.GasCost).
		Msg("query recorded")
	return reads, nil
}

// RecordPrivate appends a witness output to the private transcript.
func (b *Builder) RecordPrivate(v ir.AlignedValue) error {
	if b.finished {
		return ir.NewTranscriptViolation("witness", "transcript already finished")
	}
	b.proof.PrivateTranscriptOutputs = append(b.proof.PrivateTranscriptOutputs, v.Clone())
	return nil
}

// Finish sets the call output and returns the completed transcript. The
// builder cannot be used afterwards.
func (b *Builder) Finish(output ir.AlignedValue) (ProofData, error) {
	if b.finished {
		return ProofData{}, ir.NewTranscriptViolation("finish", "transcript already finished")
	}
	if got, want := countReads(b.proof.PublicTranscript), b.proof.ReadCount(); got != want {
		return ProofData{}, ir.NewTranscriptViolation("finish", fmt.Sprintf("%d filled reads for %d popeq operations", got, want))
	}
	b.finished = true
	out := output.Clone()
	b.proof.Output = &out
	return b.proof, nil
}

// backfill copies prog and fills each popeq result from reads in order.
// The counts must agree exactly.
func backfill(prog vm.Program, reads []ir.AlignedValue) (vm.Program, error) {
	filled := prog.Clone()
	next := 0
	for i, op := range filled {
		pe, ok := op.(vm.Popeq)
		if !ok {
			continue
		}
		if next >= len(reads) {
			return nil, ir.NewTranscriptViolation("query", fmt.Sprintf("popeq %d has no read event", next))
		}
		r := reads[next].Clone()
		pe.Result = &r
		filled[i] = pe
		next++
	}
	if next != len(reads) {
		return nil, ir.NewTranscriptViolation("query", fmt.Sprintf("%d read events for %d popeq operations", len(reads), next))
	}
	return filled, nil
}

func countReads(prog vm.Program) int {
	n := 0
	for _, op := range prog {
		if pe, ok := op.(vm.Popeq); ok && pe.Result != nil {
			n++
		}
	}
	return n
}
