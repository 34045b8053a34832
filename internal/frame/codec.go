package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// MAC is a 6-byte Ethernet hardware address. The zero value is the
// all-zeros address, not a valid assigned address.
type MAC [6]byte

// String returns the canonical colon-separated lowercase hex form, e.g.
// "aa:bb:cc:dd:ee:ff". This form is used only for logging and as an
// alternate map key; the 6 raw bytes are the canonical comparison form.
func (m MAC) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// Broadcast is the reserved all-ones destination address.
var Broadcast = MAC{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// BPDUMulticast is the reserved bridge-group multicast address this
// bridge uses as the destination of every BPDU it sends or recognizes
// on receipt. It does not interoperate with real 802.1D bridges, which
// use the same address for a different on-wire payload.
var BPDUMulticast = MAC{0x01, 0x80, 0xc2, 0x00, 0x00, 0x00}

// IsUnicast reports whether dst is a unicast destination, i.e. the I/G
// (individual/group) bit -- bit 0 of the first octet -- is clear.
func IsUnicast(dst MAC) bool {
	return dst[0]&0x01 == 0
}

// TPID is the 16-bit EtherType value this bridge uses to recognize a
// following 802.1Q-shaped tag. The IEEE-standard value is 0x8100; this
// system, inherited unchanged from its reference implementation, uses
// 0x8200 instead. The value is self-consistent (both Parse and
// InsertTag agree on it) but frames built by this bridge will not be
// recognized as tagged by real 802.1Q hardware. See DESIGN.md for the
// interoperability tradeoff.
const TPID uint16 = 0x8200

const (
	// headerLen is the size of an untagged Ethernet II header: 6-byte
	// destination, 6-byte source, 2-byte EtherType.
	headerLen = 14

	// taggedHeaderLen is headerLen plus the 4-byte 802.1Q-shaped tag
	// (2-byte TPID, 2-byte TCI).
	taggedHeaderLen = 18

	// tagLen is the width in bytes of a single VLAN tag.
	tagLen = 4

	// vlanIDMask isolates the low 12 bits of the TCI that carry the VID.
	// Priority and DEI, the remaining 4 bits, are always zero on frames
	// this bridge constructs and are ignored on frames it parses.
	vlanIDMask = 0x0fff
)

// ErrShortFrame indicates the byte slice is too short to contain a
// valid Ethernet header (14 bytes untagged, 18 bytes tagged).
var ErrShortFrame = errors.New("frame: too short to be a valid ethernet header")

// Header is the result of parsing an Ethernet II frame's leading
// bytes: the two hardware addresses, the inner EtherType, and the
// VLAN tag if one was present.
type Header struct {
	Dst    MAC
	Src    MAC
	Ether  uint16
	Tagged bool
	VLAN   uint16 // valid only when Tagged
}

// Parse reads the destination, source, EtherType, and (if present) the
// VLAN tag from the start of b. It does not copy b; Dst and Src are
// decoded by value but the frame bytes themselves are left untouched
// for the caller to forward, mutate, or discard. The fixed-offset
// byte-cursor read here, and the splice-and-copy in InsertTag/StripTag
// below, follow the same shape as Frame.UnmarshalBinary/MarshalBinary
// in the ethernet package this bridge's VLAN tagging is patterned
// after -- offsets differ (this tag's TPID is 0x8200, not 0x8100, and
// carries no priority bits) but the read/write cursor discipline does
// not.
//
// Frames shorter than 14 bytes, or shorter than 18 bytes when bytes
// 12-13 (the 13th/14th bytes) carry TPID, are malformed and rejected.
func Parse(b []byte) (Header, error) {
	if len(b) < headerLen {
		return Header{}, ErrShortFrame
	}

	var h Header
	copy(h.Dst[:], b[0:6])
	copy(h.Src[:], b[6:12])

	ether := binary.BigEndian.Uint16(b[12:14])
	if ether != TPID {
		h.Ether = ether
		return h, nil
	}

	if len(b) < taggedHeaderLen {
		return Header{}, ErrShortFrame
	}

	tci := binary.BigEndian.Uint16(b[14:16])
	h.Tagged = true
	h.VLAN = tci & vlanIDMask
	h.Ether = binary.BigEndian.Uint16(b[16:18])

	return h, nil
}

// InsertTag returns a new frame with a VLAN tag carrying vlanID spliced
// in after the 12-byte address prefix. Priority and DEI are zero. The
// result is 4 bytes longer than b. b must already be untagged; the
// caller is responsible for that precondition (this bridge never
// double-tags a frame).
func InsertTag(b []byte, vlanID uint16) []byte {
	out := make([]byte, len(b)+tagLen)
	copy(out[0:12], b[0:12])
	binary.BigEndian.PutUint16(out[12:14], TPID)
	binary.BigEndian.PutUint16(out[14:16], vlanID&vlanIDMask)
	copy(out[16:], b[12:])
	return out
}

// StripTag returns a new frame with the 4-byte VLAN tag removed from
// after the 12-byte address prefix. The result is 4 bytes shorter than
// b. The caller must have already verified, via Parse, that b carries
// a tag; StripTag does not check.
func StripTag(b []byte) []byte {
	out := make([]byte, len(b)-tagLen)
	copy(out[0:12], b[0:12])
	copy(out[12:], b[16:])
	return out
}

// -------------------------------------------------------------------------
// BPDU wire format
// -------------------------------------------------------------------------

// bpduPayloadLen is the number of bytes following the 12-byte address
// prefix in a BPDU: three big-endian uint32 fields, no LLC/SNAP header
// and no 802.1D configuration-BPDU TLVs.
const bpduPayloadLen = 12

// BPDULen is the total length of a BPDU this bridge emits.
const BPDULen = 12 + bpduPayloadLen

// ErrShortBPDU indicates a frame addressed to BPDUMulticast was too
// short to contain the three 32-bit bridge-state fields.
var ErrShortBPDU = errors.New("frame: too short to be a valid bpdu")

// ComposeBPDU builds a complete BPDU frame: destination BPDUMulticast,
// the given source MAC, then root bridge id, own bridge id, and root
// path cost as consecutive big-endian uint32 fields. The field order
// is fixed as (root, own, cost) and the address order is fixed as
// (dst, src) -- standard Ethernet order -- matching one of the two
// orderings the reference implementation used inconsistently across
// its send paths.
func ComposeBPDU(src MAC, rootBridgeID, ownBridgeID, rootPathCost uint32) []byte {
	b := make([]byte, BPDULen)
	copy(b[0:6], BPDUMulticast[:])
	copy(b[6:12], src[:])
	binary.BigEndian.PutUint32(b[12:16], rootBridgeID)
	binary.BigEndian.PutUint32(b[16:20], ownBridgeID)
	binary.BigEndian.PutUint32(b[20:24], rootPathCost)
	return b
}

// BPDU holds the three fields carried by a received BPDU.
type BPDU struct {
	RootBridgeID uint32
	OwnBridgeID  uint32
	RootPathCost uint32
}

// ParseBPDU extracts the three bridge-state fields from a frame
// already known (by destination address) to be a BPDU. b must include
// the 12-byte address prefix; the fields are read from offsets 12, 16,
// and 20.
func ParseBPDU(b []byte) (BPDU, error) {
	if len(b) < BPDULen {
		return BPDU{}, ErrShortBPDU
	}
	return BPDU{
		RootBridgeID: binary.BigEndian.Uint32(b[12:16]),
		OwnBridgeID:  binary.BigEndian.Uint32(b[16:20]),
		RootPathCost: binary.BigEndian.Uint32(b[20:24]),
	}, nil
}
