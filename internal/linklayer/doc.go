// Package linklayer abstracts sending and receiving raw Ethernet
// frames on named local interfaces.
//
// LinkLayer is deliberately minimal: the forwarding engine only ever
// needs to send a frame out a named interface and receive a stream of
// (interface, frame) pairs. Production use is backed by an AF_PACKET
// raw socket per trunk/access interface (rawsock_linux.go) with
// interface enumeration performed over NETLINK_ROUTE
// (rtnetlink_linux.go); tests and local development use the in-memory
// Simulated bus defined here, which needs no elevated privileges and
// no real NICs.
package linklayer
