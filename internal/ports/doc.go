// Package ports holds the switch's port registry: the fixed, immutable
// set of local interfaces classified as access or trunk ports, and the
// bidirectional mapping between an interface's numeric id (assigned by
// the link layer) and its name (assigned by the port configuration).
package ports
