// Package forwarding implements the switch's per-frame dispatch: MAC
// learning, BPDU interception, and VLAN-aware unicast/flood delivery
// across access and trunk ports.
//
// Engine itself holds no mutex of its own. It is the only writer of the
// mactable.Table (other goroutines, such as the admin API, only read it
// through the table's own lock) and delegates all STP state reads and
// writes to *stp.Engine, which is safe for concurrent use. This mirrors the reference implementation's single
// receive loop touching both tables directly, translated into two
// separately-synchronized collaborators instead of one global lock.
package forwarding

import (
	"fmt"
	"log/slog"

	"github.com/l2bridge/goswitch/internal/frame"
	"github.com/l2bridge/goswitch/internal/mactable"
	"github.com/l2bridge/goswitch/internal/ports"
	"github.com/l2bridge/goswitch/internal/stp"
)

// Sender delivers a raw frame out a named local interface. Implemented
// by package linklayer.
type Sender interface {
	Send(ifaceName string, raw []byte) error
}

// MetricsRecorder receives per-frame counters as the forwarding engine
// processes them. Implemented by *metrics.Collector; nil-safe so tests
// can omit it entirely.
type MetricsRecorder interface {
	IncFramesSent(iface string)
	IncFramesDropped(iface, kind string)
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) IncFramesSent(string)        {}
func (noopMetricsRecorder) IncFramesDropped(string, string) {}

// Engine dispatches received frames for one switch.
type Engine struct {
	registry  *ports.Registry
	stpEngine *stp.Engine
	table     *mactable.Table
	sender    Sender
	switchMAC frame.MAC
	logger    *slog.Logger
	metrics   MetricsRecorder
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithMetrics records per-candidate send/drop outcomes against m.
func WithMetrics(m MetricsRecorder) Option {
	return func(e *Engine) { e.metrics = m }
}

// New builds a forwarding Engine. registry and stpEngine must already
// be fully initialized; table is typically freshly constructed via
// mactable.New.
func New(registry *ports.Registry, stpEngine *stp.Engine, table *mactable.Table, sender Sender, switchMAC frame.MAC, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		registry:  registry,
		stpEngine: stpEngine,
		table:     table,
		sender:    sender,
		switchMAC: switchMAC,
		logger:    logger.With(slog.String("component", "forwarding")),
		metrics:   noopMetricsRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HandleFrame processes one frame received on ingressName. It always
// learns the source address first, then either feeds the frame to the
// STP engine (destination BPDUMulticast) or forwards it as data,
// exactly as the reference implementation's single receive loop does.
func (e *Engine) HandleFrame(ingressName string, raw []byte) error {
	hdr, err := frame.Parse(raw)
	if err != nil {
		return fmt.Errorf("forwarding: parse frame from %s: %w", ingressName, err)
	}

	e.table.Learn(hdr.Src, ingressName)

	if hdr.Dst == frame.BPDUMulticast {
		return e.handleBPDU(ingressName, raw)
	}

	if frame.IsUnicast(hdr.Dst) {
		return e.forwardUnicast(ingressName, hdr, raw)
	}
	return e.flood(ingressName, hdr, raw, nil)
}

func (e *Engine) handleBPDU(ingressName string, raw []byte) error {
	bpdu, err := frame.ParseBPDU(raw)
	if err != nil {
		return fmt.Errorf("forwarding: parse bpdu from %s: %w", ingressName, err)
	}

	reEmit, snap := e.stpEngine.HandleBPDU(ingressName, bpdu)
	for _, trunk := range reEmit {
		out := frame.ComposeBPDU(e.switchMAC, snap.RootBridgeID, snap.OwnBridgeID, snap.RootPathCost)
		if err := e.sender.Send(trunk, out); err != nil {
			e.logger.Warn("failed to re-emit bpdu", slog.String("trunk", trunk), slog.Any("err", err))
		}
	}
	return nil
}

// SendHello composes and transmits a BPDU on every trunk this switch
// currently believes it should advertise on (i.e. every trunk, if and
// only if it is root). Intended to be called once a second by the
// switch's composition root.
func (e *Engine) SendHello() {
	targets, snap := e.stpEngine.PeriodicEmitTargets()
	for _, trunk := range targets {
		out := frame.ComposeBPDU(e.switchMAC, snap.RootBridgeID, snap.OwnBridgeID, snap.RootPathCost)
		if err := e.sender.Send(trunk, out); err != nil {
			e.logger.Warn("failed to send hello", slog.String("trunk", trunk), slog.Any("err", err))
		}
	}
}

// forwardUnicast looks up hdr.Dst in the learning table. A hit is
// delivered to that single interface (subject to the usual VLAN/STP
// eligibility check); a miss is flooded to every other interface,
// exactly like the reference implementation's unknown-unicast branch.
func (e *Engine) forwardUnicast(ingressName string, hdr frame.Header, raw []byte) error {
	target, ok := e.table.Lookup(hdr.Dst)
	if !ok {
		return e.flood(ingressName, hdr, raw, nil)
	}
	return e.flood(ingressName, hdr, raw, []string{target})
}

// flood delivers raw to every candidate egress interface other than
// ingressName. If only is non-nil, it restricts the candidate set to
// those names (used for a known-unicast hit, where there is exactly
// one candidate but the same per-candidate eligibility rule applies).
func (e *Engine) flood(ingressName string, hdr frame.Header, raw []byte, only []string) error {
	ingressPort, ok := e.registry.Port(ingressName)
	if !ok {
		return fmt.Errorf("forwarding: unregistered ingress interface %q", ingressName)
	}
	if ingressPort.Kind == ports.Unmanaged {
		return nil
	}

	candidates := only
	if candidates == nil {
		for _, p := range e.registry.All() {
			if p.Name != ingressName {
				candidates = append(candidates, p.Name)
			}
		}
	}

	for _, name := range candidates {
		if name == ingressName {
			continue
		}
		egressPort, ok := e.registry.Port(name)
		if !ok {
			continue
		}

		out, send := e.shape(ingressPort, egressPort, hdr, raw)
		if !send {
			e.metrics.IncFramesDropped(name, dropReason(egressPort, e.stpEngine))
			continue
		}
		if err := e.sender.Send(name, out); err != nil {
			e.logger.Warn("failed to send frame", slog.String("iface", name), slog.Any("err", err))
			continue
		}
		e.metrics.IncFramesSent(name)
	}
	return nil
}

// dropReason classifies why shape rejected an egress candidate, purely
// for the dropped-frame metric's label; it duplicates none of shape's
// decision logic, just characterizes the outcome after the fact.
func dropReason(egress ports.Port, stpEngine *stp.Engine) string {
	if egress.Kind == ports.Trunk {
		if state, ok := stpEngine.TrunkState(egress.Name); !ok || state != stp.Designated {
			return "trunk_blocking"
		}
	}
	return "vlan_mismatch"
}

// shape decides, for one ingress/egress pair, whether a frame should
// be delivered and in what on-wire shape: tagged, untagged, or
// unmodified. It consolidates the near-duplicated VLAN bookkeeping the
// reference implementation repeats across its known-unicast,
// unknown-unicast-flood, and broadcast-flood branches into a single
// rule evaluated once per egress candidate, regardless of which branch
// produced that candidate.
func (e *Engine) shape(ingress, egress ports.Port, hdr frame.Header, raw []byte) (out []byte, send bool) {
	switch egress.Kind {
	case ports.Trunk:
		state, ok := e.stpEngine.TrunkState(egress.Name)
		if !ok || state != stp.Designated {
			return nil, false
		}
		if ingress.Kind == ports.Access {
			return frame.InsertTag(raw, ingress.VLAN), true
		}
		return raw, true

	case ports.Access:
		switch ingress.Kind {
		case ports.Access:
			if ingress.VLAN != egress.VLAN {
				return nil, false
			}
			return raw, true
		case ports.Trunk:
			if !hdr.Tagged || hdr.VLAN != egress.VLAN {
				return nil, false
			}
			return frame.StripTag(raw), true
		default:
			// Neither access nor trunk; registry never classifies a
			// live ingress this way, preserved only to mirror the
			// reference implementation's unconditional fallback send.
			return raw, true
		}

	default: // ports.Unmanaged
		return nil, false
	}
}
