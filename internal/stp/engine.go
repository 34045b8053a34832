// Package stp implements the switch's spanning-tree discipline: bridge
// identity, root election, and per-trunk Blocking/Designated state,
// driven by periodic BPDU emission and BPDU reception.
//
// Engine's scalar fields and its trunk-state map are read by the BPDU
// timer goroutine and read/written by the forwarding goroutine; every
// accessor takes the engine's mutex. The learning table in package
// mactable carries its own lock: the forwarding goroutine writes it and
// the admin API reads it.
package stp

import (
	"log/slog"
	"sync"

	"github.com/l2bridge/goswitch/internal/frame"
)

// State is a trunk port's spanning-tree state. Access ports have no
// STP state at all; they are never subject to blocking.
type State uint8

const (
	// Blocking trunks are never chosen as a data-frame egress. Data
	// frames that arrive on a Blocking trunk are still learned from and
	// forwarded, and BPDUs are still sent and accepted on it.
	Blocking State = iota

	// Designated trunks are eligible data-plane egress candidates.
	Designated
)

// String returns "blocking" or "designated", used in logs and the
// admin API.
func (s State) String() string {
	if s == Designated {
		return "designated"
	}
	return "blocking"
}

// Transition describes one observable change to the engine's state,
// emitted on the channel returned by Transitions() for external
// consumers (the audit log, the admin websocket stream) to react to
// without coupling them into the hot forwarding path.
type Transition struct {
	// Trunk is the trunk whose state changed. A Transition is emitted
	// only for a trunk state change; root-field changes alone emit none.
	Trunk    string
	State    State
	RootID   uint32
	RootCost uint32
	RootPort string
}

// notifyBacklog bounds the transition channel so a slow or absent
// consumer can never block the forwarding goroutine; entries beyond
// the backlog are dropped (reported as a counter via metrics, not
// re-queued).
const notifyBacklog = 64

// defaultPathCostPerHop matches the reference implementation's fixed
// per-hop cost, used unless WithPathCostPerHop overrides it.
const defaultPathCostPerHop = 10

// Engine is one switch's spanning-tree state machine.
type Engine struct {
	ownBridgeID    uint32
	pathCostPerHop uint32

	mu           sync.Mutex
	rootBridgeID uint32
	rootPathCost uint32
	rootPort     string // "" means no root port (we are root, or just initialized)
	trunkState   map[string]State

	logger  *slog.Logger
	notify  chan Transition
	dropped func() // called when a Transition is dropped for a full channel; nil-safe
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithDropHook registers a callback invoked whenever a Transition is
// dropped because no consumer has drained Transitions() in time. Used
// by the metrics collector to count it.
func WithDropHook(f func()) Option {
	return func(e *Engine) { e.dropped = f }
}

// WithPathCostPerHop overrides the cost added to a received root path
// cost before advertising it onward, configurable via config.STPConfig
// instead of the reference implementation's hard-coded 10.
func WithPathCostPerHop(cost uint32) Option {
	return func(e *Engine) { e.pathCostPerHop = cost }
}

// New creates an Engine for a switch whose bridge id is ownBridgeID,
// with the given trunk interface names. Every trunk starts Blocking
// and then, because a fresh engine always believes itself root
// (root_bridge_id == own_bridge_id at init), is immediately flipped to
// Designated -- exactly the two-step initialization the reference
// implementation performs.
func New(ownBridgeID uint32, trunkNames []string, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		ownBridgeID:    ownBridgeID,
		pathCostPerHop: defaultPathCostPerHop,
		rootBridgeID:   ownBridgeID,
		rootPathCost:   0,
		rootPort:       "",
		trunkState:     make(map[string]State, len(trunkNames)),
		logger:         logger.With(slog.String("component", "stp")),
		notify:         make(chan Transition, notifyBacklog),
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, name := range trunkNames {
		e.trunkState[name] = Blocking
	}
	if e.ownBridgeID == e.rootBridgeID {
		for name := range e.trunkState {
			e.trunkState[name] = Designated
		}
	}
	return e
}

// Transitions returns a channel of state-change notifications. The
// channel is never closed by Engine; callers should range over it for
// the life of the switch process.
func (e *Engine) Transitions() <-chan Transition {
	return e.notify
}

// OwnBridgeID returns this switch's constant bridge identity.
func (e *Engine) OwnBridgeID() uint32 {
	return e.ownBridgeID
}

// Snapshot is a consistent, point-in-time copy of the engine's shared
// state, used both to compose an outgoing BPDU and to render the admin
// API's STP view.
type Snapshot struct {
	OwnBridgeID  uint32
	RootBridgeID uint32
	RootPathCost uint32
	RootPort     string
	TrunkState   map[string]State
}

// Snapshot returns a copy of the current bridge state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	states := make(map[string]State, len(e.trunkState))
	for k, v := range e.trunkState {
		states[k] = v
	}
	return Snapshot{
		OwnBridgeID:  e.ownBridgeID,
		RootBridgeID: e.rootBridgeID,
		RootPathCost: e.rootPathCost,
		RootPort:     e.rootPort,
		TrunkState:   states,
	}
}

// IsRoot reports whether this switch currently believes itself to be
// the root bridge.
func (e *Engine) IsRoot() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ownBridgeID == e.rootBridgeID
}

// TrunkState returns a trunk's current STP state. ok is false if name
// is not a registered trunk.
func (e *Engine) TrunkState(name string) (state State, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	state, ok = e.trunkState[name]
	return state, ok
}

// PeriodicEmitTargets returns the trunk names the BPDU timer should
// send a hello to right now: every trunk, if and only if this switch
// currently believes itself root. A non-root switch emits nothing on
// the timer tick -- only a root-loss BPDU reception triggers an
// off-cycle emission, via HandleBPDU's return value.
func (e *Engine) PeriodicEmitTargets() (targets []string, snap Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ownBridgeID != e.rootBridgeID {
		return nil, Snapshot{}
	}
	return e.allTrunkNamesLocked(), e.snapshotLocked()
}

func (e *Engine) allTrunkNamesLocked() []string {
	names := make([]string, 0, len(e.trunkState))
	for name := range e.trunkState {
		names = append(names, name)
	}
	return names
}

// HandleBPDU applies a received BPDU to the engine's state.
//
// ingress is the name of the trunk the BPDU arrived on; the reference
// implementation never checks that the ingress interface actually is a
// trunk before indexing its per-trunk state map by that name, on the
// theory that BPDUs only ever arrive on inter-switch (trunk) links.
// Neither this engine nor the forwarding engine, which dispatches every
// frame addressed to BPDUMulticast here regardless of ingress kind,
// checks it.
//
// It returns the trunk names that must immediately receive a
// re-transmitted BPDU carrying the returned snapshot (non-empty only
// when this BPDU caused the switch to adopt a new, better root), and
// the post-update snapshot. The snapshot is the zero Snapshot when the
// BPDU was ignored (same root with no root port yet, or unrelated).
func (e *Engine) HandleBPDU(ingress string, pkt frame.BPDU) (reEmit []string, snap Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case pkt.RootBridgeID < e.rootBridgeID:
		reEmit = e.adoptNewRootLocked(ingress, pkt)

	case pkt.RootBridgeID == e.rootBridgeID:
		if e.rootPort == "" {
			// No root port yet recorded even though the packet agrees
			// on the current root id: nothing to compare against.
			return nil, Snapshot{}
		}
		switch {
		case ingress == e.rootPort && pkt.RootPathCost+e.pathCostPerHop < e.rootPathCost:
			e.rootPathCost = pkt.RootPathCost + e.pathCostPerHop
		case ingress != e.rootPort && pkt.RootPathCost > e.rootPathCost:
			e.setTrunkStateLocked(ingress, Designated)
		}

	case pkt.OwnBridgeID == e.ownBridgeID:
		// Hearing our own identity reflected back means there is a
		// loop through this trunk.
		e.setTrunkStateLocked(ingress, Blocking)

	default:
		// Packet names neither a better root, the current root, nor
		// ourselves: nothing in this engine's state depends on it.
		return nil, Snapshot{}
	}

	e.forceDesignatedIfRootLocked()
	return reEmit, e.snapshotLocked()
}

// adoptNewRootLocked installs pkt's root as the new best root. Caller
// holds e.mu.
func (e *Engine) adoptNewRootLocked(ingress string, pkt frame.BPDU) (reEmit []string) {
	firstLossOfRoot := e.ownBridgeID == e.rootBridgeID

	e.rootBridgeID = pkt.RootBridgeID
	e.rootPathCost = pkt.RootPathCost + e.pathCostPerHop
	e.rootPort = ingress

	if firstLossOfRoot {
		for name := range e.trunkState {
			if name != ingress {
				e.setTrunkStateLocked(name, Blocking)
			}
		}
	}
	e.setTrunkStateLocked(ingress, Designated)

	return e.allTrunkNamesLocked()
}

// forceDesignatedIfRootLocked re-asserts the invariant that a root
// bridge has every trunk Designated. Caller holds e.mu.
func (e *Engine) forceDesignatedIfRootLocked() {
	if e.ownBridgeID != e.rootBridgeID {
		return
	}
	for name := range e.trunkState {
		e.setTrunkStateLocked(name, Designated)
	}
}

// setTrunkStateLocked updates a trunk's state and, if it actually
// changed, emits a Transition. Caller holds e.mu.
func (e *Engine) setTrunkStateLocked(name string, state State) {
	if e.trunkState[name] == state {
		return
	}
	e.trunkState[name] = state

	t := Transition{
		Trunk:    name,
		State:    state,
		RootID:   e.rootBridgeID,
		RootCost: e.rootPathCost,
		RootPort: e.rootPort,
	}
	select {
	case e.notify <- t:
	default:
		if e.dropped != nil {
			e.dropped()
		}
		e.logger.Warn("stp transition notification dropped, consumer too slow",
			slog.String("trunk", name), slog.String("state", state.String()))
	}
}
