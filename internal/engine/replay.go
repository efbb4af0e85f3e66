// Replay
//
// A committed call is fully described by its public transcript: the
// programs it ran, with every read result filled in. Replaying a call
// re-executes those programs against the pre-state and checks that each
// read reproduces its recorded result. The circuit itself does not run, so
// neither witnesses nor private state are needed.
//
// Replay walks the call log in seq order starting from the instance's
// initial state and, for each call, checks:
//
//   - the pre_root equals the root the previous call left
//   - the digest binds (pre_root, transcript, seq)
//   - the commitment matches the public transcript
//   - re-execution yields the recorded post_root
//   - the stored post_state snapshot hashes to post_root
//
// A mismatch is reported and replay continues from the recorded snapshot,
// so one divergence does not hide later ones.

package engine

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/roach88/ledgerq/internal/contract"
	"github.com/roach88/ledgerq/internal/ir"
	"github.com/roach88/ledgerq/internal/state"
	"github.com/roach88/ledgerq/internal/store"
	"github.com/roach88/ledgerq/internal/transcript"
	"github.com/roach88/ledgerq/internal/vm"
)

// ReplayReport is the result of replaying an instance's call log.
type ReplayReport struct {
	Instance string
	Calls    int

	// Head is the root replay ended at.
	Head string

	Mismatches []Mismatch
}

// Mismatch is a call whose recorded outcome replay could not reproduce.
type Mismatch struct {
	CallID string
	Seq    int64
	Reason string
}

// OK reports whether every call replayed to its recorded outcome.
func (r ReplayReport) OK() bool { return len(r.Mismatches) == 0 }

// Replay verifies the engine's call log.
func (e *Engine) Replay(ctx context.Context) (ReplayReport, error) {
	if e.store == nil {
		return ReplayReport{}, &RuntimeError{
			Code:     ErrCodeNoStore,
			Message:  "replay needs a call log",
			Instance: e.instance.Address,
		}
	}
	report, err := Replay(ctx, e.store, e.contract, e.instance.Address)
	if err != nil {
		return report, err
	}
	ev := e.logger.Info()
	if !report.OK() {
		ev = e.logger.Warn()
	}
	ev.Int("calls", report.Calls).Int("mismatches", len(report.Mismatches)).Str("head", report.Head).Msg("replay finished")
	return report, nil
}

// Replay verifies the call log of the instance at address against c.
func Replay(ctx context.Context, s *store.Store, c *contract.Contract, address string) (ReplayReport, error) {
	h, err := s.GetHistory(ctx, address)
	if err != nil {
		return ReplayReport{}, err
	}

	specHash, err := c.Spec().Hash()
	if err != nil {
		return ReplayReport{}, err
	}
	if specHash != h.Instance.SpecHash {
		return ReplayReport{}, NewSpecMismatchError(address, h.Instance.SpecHash, specHash)
	}

	cur, err := decodeSnapshot(address, "", h.Instance.InitialState, h.Instance.InitialRoot)
	if err != nil {
		return ReplayReport{}, err
	}
	addr, err := ir.ParseContractAddress(address)
	if err != nil {
		return ReplayReport{}, err
	}

	report := ReplayReport{Instance: address, Calls: len(h.Calls), Head: h.Instance.InitialRoot}
	for _, b := range h.Breaks {
		report.Mismatches = append(report.Mismatches, Mismatch{CallID: b.CallID, Seq: b.Seq, Reason: b.Reason})
	}

	for _, call := range h.Calls {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		next, reasons := replayCall(c.Interpreter(), vm.QueryContext{State: cur, Address: addr}, call)
		for _, r := range reasons {
			report.Mismatches = append(report.Mismatches, Mismatch{CallID: call.ID, Seq: call.Seq, Reason: r})
		}
		if next == nil {
			// Fall back to the recorded snapshot.
			snap, err := decodeSnapshot(address, call.ID, call.PostState, call.PostRoot)
			if err != nil {
				return report, err
			}
			next = snap
		}
		cur = next
		report.Head = call.PostRoot
	}
	return report, nil
}

// replayCall re-executes one call. It returns the replayed post-state, or
// nil when the call did not replay cleanly, and the reasons it did not.
func replayCall(in *vm.Interpreter, qctx vm.QueryContext, call ir.CallRecord) (state.Value, []string) {
	var reasons []string

	preRoot, err := state.RootHash(qctx.State)
	if err != nil {
		return nil, []string{err.Error()}
	}
	if preRoot != call.PreRoot {
		reasons = append(reasons, fmt.Sprintf("pre_root %s, replayed state is %s", call.PreRoot, preRoot))
	}

	digest, err := ir.CallDigest(call.PreRoot, call.Transcript, call.Seq)
	if err != nil {
		return nil, append(reasons, err.Error())
	}
	if digest != call.Digest {
		reasons = append(reasons, fmt.Sprintf("digest %s, recomputed %s", call.Digest, digest))
	}

	p, err := transcript.Parse(call.Transcript)
	if err != nil {
		return nil, append(reasons, err.Error())
	}
	commitment, err := p.Commitment()
	if err != nil {
		return nil, append(reasons, err.Error())
	}
	if got := hex.EncodeToString(commitment); got != call.Commitment {
		reasons = append(reasons, fmt.Sprintf("commitment %s, recomputed %s", call.Commitment, got))
	}

	out, err := transcript.Replay(in, qctx, p)
	if err != nil {
		return nil, append(reasons, err.Error())
	}
	postRoot, err := state.RootHash(out.State)
	if err != nil {
		return nil, append(reasons, err.Error())
	}
	if postRoot != call.PostRoot {
		reasons = append(reasons, fmt.Sprintf("post_root %s, replayed %s", call.PostRoot, postRoot))
		return nil, reasons
	}
	return out.State, reasons
}
