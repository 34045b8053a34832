package audit_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/l2bridge/goswitch/internal/audit"
	"github.com/l2bridge/goswitch/internal/frame"
	"github.com/l2bridge/goswitch/internal/stp"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestStore(t *testing.T) *audit.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.db")
	s, err := audit.Open(path, discardLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndReadTransitions(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	t1 := stp.Transition{Trunk: "rr-a", State: stp.Designated, RootID: 1, RootCost: 0, RootPort: ""}
	t2 := stp.Transition{Trunk: "rr-b", State: stp.Blocking, RootID: 1, RootCost: 10, RootPort: "rr-a"}

	if err := s.RecordTransition(ctx, t1, now); err != nil {
		t.Fatalf("RecordTransition 1: %v", err)
	}
	if err := s.RecordTransition(ctx, t2, now.Add(time.Second)); err != nil {
		t.Fatalf("RecordTransition 2: %v", err)
	}

	recs, err := s.RecentTransitions(ctx, 10)
	if err != nil {
		t.Fatalf("RecentTransitions: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("len(recs) = %d, want 2", len(recs))
	}
	if recs[0].Trunk != "rr-b" || recs[0].State != "blocking" {
		t.Fatalf("newest-first ordering wrong: %+v", recs[0])
	}
	if recs[1].Trunk != "rr-a" || recs[1].State != "designated" {
		t.Fatalf("second record wrong: %+v", recs[1])
	}
}

func TestRecordMACFirstSeenIsIdempotent(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()
	mac := frame.MAC{0xde, 0xad, 0xbe, 0xef, 0x00, 0x01}

	if err := s.RecordMACFirstSeen(ctx, mac, "r-0", time.Now()); err != nil {
		t.Fatalf("first RecordMACFirstSeen: %v", err)
	}
	if err := s.RecordMACFirstSeen(ctx, mac, "r-1", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("second RecordMACFirstSeen: %v", err)
	}
	// No read API is exposed for mac_first_seen beyond this insert path;
	// the assertion here is simply that the second call does not error
	// out on the primary key conflict.
}

func TestRunConsumesUntilChannelClosed(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	ch := make(chan stp.Transition, 1)
	ch <- stp.Transition{Trunk: "rr-a", State: stp.Designated}
	close(ch)

	done := make(chan struct{})
	go func() {
		s.Run(ctx, ch)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after channel closed")
	}

	recs, err := s.RecentTransitions(ctx, 10)
	if err != nil {
		t.Fatalf("RecentTransitions: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("len(recs) = %d, want 1", len(recs))
	}
}
