package store

import (
	"context"
	"testing"
)

func TestGetHistory_Consistent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestInstance(t, s, "ct1")

	for _, c := range []struct {
		id        string
		seq       int64
		pre, post string
	}{
		{"c1", 1, "root-0", "root-1"},
		{"c2", 2, "root-1", "root-2"},
	} {
		if err := s.WriteCall(ctx, createTestCall(c.id, "ct1", c.seq, c.pre, c.post)); err != nil {
			t.Fatal(err)
		}
	}

	h, err := s.GetHistory(ctx, "ct1")
	if err != nil {
		t.Fatalf("GetHistory() failed: %v", err)
	}
	if !h.IsConsistent() {
		t.Errorf("Breaks = %+v, want none", h.Breaks)
	}
	if h.Head != "root-2" || h.LastSeq != 2 || len(h.Calls) != 2 {
		t.Errorf("history = head %s, seq %d, calls %d", h.Head, h.LastSeq, len(h.Calls))
	}
}

func TestGetHistory_DetectsBrokenChain(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestInstance(t, s, "ct1")

	if err := s.WriteCall(ctx, createTestCall("c1", "ct1", 1, "root-0", "root-1")); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteCall(ctx, createTestCall("c2", "ct1", 2, "root-9", "root-2")); err != nil {
		t.Fatal(err)
	}

	h, err := s.GetHistory(ctx, "ct1")
	if err != nil {
		t.Fatalf("GetHistory() failed: %v", err)
	}
	if len(h.Breaks) != 1 || h.Breaks[0].CallID != "c2" {
		t.Errorf("Breaks = %+v, want one break at c2", h.Breaks)
	}
}

func TestGetHistory_EmptyLog(t *testing.T) {
	s := createTestStore(t)
	inst := createTestInstance(t, s, "ct1")

	h, err := s.GetHistory(context.Background(), "ct1")
	if err != nil {
		t.Fatalf("GetHistory() failed: %v", err)
	}
	if h.Head != inst.InitialRoot || h.LastSeq != 0 {
		t.Errorf("empty history = head %s, seq %d", h.Head, h.LastSeq)
	}
}

func TestGetHistory_UnknownInstance(t *testing.T) {
	s := createTestStore(t)
	if _, err := s.GetHistory(context.Background(), "missing"); err == nil {
		t.Error("expected error for unknown instance")
	}
}
