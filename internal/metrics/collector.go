// Package metrics exposes the switch's Prometheus instrumentation:
// per-interface frame counters, the size of the MAC learning table,
// spanning-tree state, and root-election churn.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	namespace = "goswitch"
	subsystem = "bridge"
)

// Label names.
const (
	labelIface = "iface"
	labelKind  = "kind"
)

// Collector holds every Prometheus metric this switch exports.
type Collector struct {
	// FramesReceived counts frames received per ingress interface.
	FramesReceived *prometheus.CounterVec

	// FramesSent counts frames transmitted per egress interface.
	FramesSent *prometheus.CounterVec

	// FramesDropped counts frames dropped by the VLAN eligibility rule
	// or a blocking trunk, per interface they would have egressed on.
	FramesDropped *prometheus.CounterVec

	// MACTableSize is the current number of learned source addresses.
	MACTableSize prometheus.Gauge

	// TrunkState is 1 if a trunk is Designated, 0 if Blocking.
	TrunkState *prometheus.GaugeVec

	// IsRoot is 1 if this switch currently believes it is the root
	// bridge, 0 otherwise.
	IsRoot prometheus.Gauge

	// RootChanges counts how many times this switch has adopted a new
	// root bridge id, a proxy for network instability.
	RootChanges prometheus.Counter

	// STPNotificationsDropped counts spanning-tree transition
	// notifications dropped because no consumer drained them in time.
	STPNotificationsDropped prometheus.Counter
}

// NewCollector creates a Collector with every metric registered against
// reg. If reg is nil, prometheus.DefaultRegisterer is used.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := newMetrics()

	reg.MustRegister(
		c.FramesReceived,
		c.FramesSent,
		c.FramesDropped,
		c.MACTableSize,
		c.TrunkState,
		c.IsRoot,
		c.RootChanges,
		c.STPNotificationsDropped,
	)

	return c
}

func newMetrics() *Collector {
	return &Collector{
		FramesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "frames_received_total",
			Help:      "Total frames received, by ingress interface.",
		}, []string{labelIface}),

		FramesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "frames_sent_total",
			Help:      "Total frames transmitted, by egress interface.",
		}, []string{labelIface}),

		FramesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "frames_dropped_total",
			Help:      "Total candidate deliveries rejected by VLAN eligibility or a blocking trunk.",
		}, []string{labelIface, labelKind}),

		MACTableSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "mac_table_size",
			Help:      "Number of learned source addresses.",
		}),

		TrunkState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "trunk_state",
			Help:      "1 if a trunk is Designated, 0 if Blocking.",
		}, []string{labelIface}),

		IsRoot: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "is_root",
			Help:      "1 if this switch currently believes itself the root bridge.",
		}),

		RootChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "root_changes_total",
			Help:      "Total times this switch adopted a new root bridge id.",
		}),

		STPNotificationsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "stp_notifications_dropped_total",
			Help:      "Total spanning-tree transition notifications dropped by a slow consumer.",
		}),
	}
}

// IncFramesReceived increments the received-frame counter for iface.
func (c *Collector) IncFramesReceived(iface string) {
	c.FramesReceived.WithLabelValues(iface).Inc()
}

// IncFramesSent increments the sent-frame counter for iface.
func (c *Collector) IncFramesSent(iface string) {
	c.FramesSent.WithLabelValues(iface).Inc()
}

// IncFramesDropped increments the dropped-frame counter for a candidate
// egress interface, labeled with the reason kind ("vlan_mismatch" or
// "trunk_blocking").
func (c *Collector) IncFramesDropped(iface, kind string) {
	c.FramesDropped.WithLabelValues(iface, kind).Inc()
}

// SetMACTableSize records the current learning table size.
func (c *Collector) SetMACTableSize(n int) {
	c.MACTableSize.Set(float64(n))
}

// SetTrunkState records whether a trunk is currently Designated.
func (c *Collector) SetTrunkState(iface string, designated bool) {
	v := 0.0
	if designated {
		v = 1.0
	}
	c.TrunkState.WithLabelValues(iface).Set(v)
}

// SetIsRoot records whether this switch currently believes itself root.
func (c *Collector) SetIsRoot(isRoot bool) {
	v := 0.0
	if isRoot {
		v = 1.0
	}
	c.IsRoot.Set(v)
}

// IncRootChanges increments the root-churn counter.
func (c *Collector) IncRootChanges() {
	c.RootChanges.Inc()
}

// IncSTPNotificationsDropped increments the dropped-notification
// counter. Passed to stp.WithDropHook.
func (c *Collector) IncSTPNotificationsDropped() {
	c.STPNotificationsDropped.Inc()
}
