package store

import (
	"context"
	"fmt"

	"github.com/roach88/ledgerq/internal/ir"
)

// History is the complete log of one instance, for replay and recovery.
type History struct {
	Instance ir.Instance
	Calls    []ir.CallRecord
	LastSeq  int64

	// Head is the root after the last call, or the initial root.
	Head string

	// Breaks lists calls whose pre_root is not the previous post_root, or
	// whose seq does not follow the previous one. A consistent log has none.
	Breaks []Break
}

// Break is a discontinuity in the call chain.
type Break struct {
	CallID string
	Seq    int64
	Reason string
}

// GetHistory reads an instance and all its calls and checks that the calls
// form an unbroken chain from the initial root.
func (s *Store) GetHistory(ctx context.Context, address string) (History, error) {
	inst, err := s.ReadInstance(ctx, address)
	if err != nil {
		return History{}, fmt.Errorf("get history: %w", err)
	}
	calls, err := s.ReadCalls(ctx, address)
	if err != nil {
		return History{}, fmt.Errorf("get history: %w", err)
	}

	h := History{Instance: inst, Calls: calls, Head: inst.InitialRoot}
	for _, call := range calls {
		if call.PreRoot != h.Head {
			h.Breaks = append(h.Breaks, Break{
				CallID: call.ID,
				Seq:    call.Seq,
				Reason: fmt.Sprintf("pre_root %s does not match previous root %s", call.PreRoot, h.Head),
			})
		}
		if call.Seq <= h.LastSeq {
			h.Breaks = append(h.Breaks, Break{
				CallID: call.ID,
				Seq:    call.Seq,
				Reason: fmt.Sprintf("seq %d does not follow %d", call.Seq, h.LastSeq),
			})
		}
		h.Head = call.PostRoot
		h.LastSeq = call.Seq
	}
	return h, nil
}

// IsConsistent reports whether the history has no breaks.
func (h History) IsConsistent() bool { return len(h.Breaks) == 0 }
