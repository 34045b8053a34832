package mactable_test

import (
	"testing"

	"github.com/l2bridge/goswitch/internal/frame"
	"github.com/l2bridge/goswitch/internal/mactable"
)

func TestLearnAndLookup(t *testing.T) {
	t.Parallel()

	tbl := mactable.New()
	a := frame.MAC{0xaa, 0xaa, 0xaa, 0xaa, 0xaa, 0xaa}

	if _, ok := tbl.Lookup(a); ok {
		t.Fatal("Lookup on empty table: want miss")
	}

	tbl.Learn(a, "r-0")
	got, ok := tbl.Lookup(a)
	if !ok || got != "r-0" {
		t.Fatalf("Lookup(a) = %q, %v, want r-0, true", got, ok)
	}
}

func TestLearnOverwrites(t *testing.T) {
	t.Parallel()

	tbl := mactable.New()
	a := frame.MAC{0xaa, 0xaa, 0xaa, 0xaa, 0xaa, 0xaa}

	tbl.Learn(a, "r-0")
	tbl.Learn(a, "r-1")

	got, _ := tbl.Lookup(a)
	if got != "r-1" {
		t.Fatalf("Lookup(a) after relearn = %q, want r-1", got)
	}
}

func TestSnapshotIsIndependent(t *testing.T) {
	t.Parallel()

	tbl := mactable.New()
	a := frame.MAC{0xaa, 0xaa, 0xaa, 0xaa, 0xaa, 0xaa}
	tbl.Learn(a, "r-0")

	snap := tbl.Snapshot()
	snap[a] = "mutated"

	got, _ := tbl.Lookup(a)
	if got != "r-0" {
		t.Fatalf("mutating snapshot affected table: got %q", got)
	}
	if len(tbl.Snapshot()) != 1 {
		t.Fatalf("Len() = %d, want 1", tbl.Len())
	}
}
