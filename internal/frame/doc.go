// Package frame implements parsing and serialization of Ethernet II
// frames, the single 802.1Q-style VLAN tag this bridge understands, and
// the bridge's own BPDU wire format.
package frame
