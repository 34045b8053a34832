// Package mactable implements the switch's MAC learning table: a
// mapping from source hardware address to the name of the interface
// where it was last observed. Entries never expire -- this bridge does
// not implement MAC table aging.
//
// Table is written by the forwarding goroutine (see internal/forwarding)
// and read concurrently by the admin API and the metrics snapshotter, so it
// guards its map with a mutex, unlike the STP engine's state machine
// which additionally needs to coordinate notification fan-out.
package mactable

import (
	"sync"

	"github.com/l2bridge/goswitch/internal/frame"
)

// Table is a MAC-to-interface-name learning table.
type Table struct {
	mu      sync.RWMutex
	entries map[frame.MAC]string
}

// New returns an empty Table.
func New() *Table {
	return &Table{entries: make(map[frame.MAC]string)}
}

// Learn unconditionally overwrites the entry for src with ingress,
// recording the most recent interface the address was seen on.
func (t *Table) Learn(src frame.MAC, ingress string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[src] = ingress
}

// Lookup returns the interface name last associated with dst, and
// whether an entry exists at all. A miss on a unicast destination is
// not an error; callers fall back to flooding.
func (t *Table) Lookup(dst frame.MAC) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	name, ok := t.entries[dst]
	return name, ok
}

// Len reports the number of learned entries, for metrics.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Snapshot returns a copy of every learned entry, for the admin API.
// The returned map is safe for the caller to retain and
// mutate; it shares no state with the table.
func (t *Table) Snapshot() map[frame.MAC]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[frame.MAC]string, len(t.entries))
	for mac, name := range t.entries {
		out[mac] = name
	}
	return out
}
