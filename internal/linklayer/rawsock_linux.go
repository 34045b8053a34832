//go:build linux

package linklayer

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"golang.org/x/sys/unix"
)

// htons converts a uint16 from host to network byte order.
func htons(v uint16) uint16 { return (v << 8) | (v >> 8) }

// rawSocket is one AF_PACKET SOCK_RAW socket bound to a single local
// interface in promiscuous mode, receiving every EtherType including
// this bridge's non-standard 0x8200 tag and the BPDU multicast.
type rawSocket struct {
	fd     int
	ifName string
}

// newRawSocket opens an AF_PACKET/SOCK_RAW socket bound to ifName and
// puts it in promiscuous mode via PACKET_ADD_MEMBERSHIP, the same
// socket(2)/bind(2)/setsockopt(2) sequence a raw Ethernet listener
// needs regardless of which upper-layer protocol it is sniffing for.
func newRawSocket(ifName string) (*rawSocket, error) {
	ifi, err := net.InterfaceByName(ifName)
	if err != nil {
		return nil, fmt.Errorf("linklayer: lookup interface %s: %w", ifName, err)
	}

	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(htons(unix.ETH_P_ALL)))
	if err != nil {
		return nil, fmt.Errorf("linklayer: open raw socket on %s: %w (requires CAP_NET_RAW)", ifName, err)
	}

	addr := &unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_ALL),
		Ifindex:  ifi.Index,
	}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("linklayer: bind to %s: %w", ifName, err)
	}

	mreq := &unix.PacketMreq{Ifindex: int32(ifi.Index), Type: unix.PACKET_MR_PROMISC}
	if err := unix.SetsockoptPacketMreq(fd, unix.SOL_PACKET, unix.PACKET_ADD_MEMBERSHIP, mreq); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("linklayer: enable promiscuous mode on %s: %w", ifName, err)
	}

	// A receive timeout lets recvLoop recheck its context on an idle link.
	if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &unix.Timeval{Sec: 1}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("linklayer: set receive timeout on %s: %w", ifName, err)
	}

	return &rawSocket{fd: fd, ifName: ifName}, nil
}

func (r *rawSocket) send(raw []byte) error {
	ifi, err := net.InterfaceByName(r.ifName)
	if err != nil {
		return fmt.Errorf("linklayer: lookup interface %s: %w", r.ifName, err)
	}
	addr := &unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_ALL),
		Ifindex:  ifi.Index,
		Halen:    6,
	}
	copy(addr.Addr[:], raw[0:6])
	if err := unix.Sendto(r.fd, raw, 0, addr); err != nil {
		return fmt.Errorf("linklayer: sendto %s: %w", r.ifName, err)
	}
	return nil
}

func (r *rawSocket) close() error {
	return unix.Close(r.fd)
}

// RawSocketBridge is a LinkLayer backed by one AF_PACKET raw socket per
// managed interface. It is the production transport when this bridge
// runs against real NICs instead of the Simulated in-memory bus.
type RawSocketBridge struct {
	out    chan Frame
	logger *slog.Logger

	mu      sync.Mutex
	sockets map[string]*rawSocket
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

// NewRawSocketBridge opens a raw socket on every name in ifaceNames and
// starts one receive goroutine per socket, each pushing frames into a
// single shared Frames() channel.
func NewRawSocketBridge(ctx context.Context, ifaceNames []string, logger *slog.Logger) (*RawSocketBridge, error) {
	ctx, cancel := context.WithCancel(ctx)
	b := &RawSocketBridge{
		out:     make(chan Frame, recvQueueSize),
		logger:  logger.With(slog.String("component", "linklayer.rawsocket")),
		sockets: make(map[string]*rawSocket, len(ifaceNames)),
		cancel:  cancel,
	}

	for _, name := range ifaceNames {
		sock, err := newRawSocket(name)
		if err != nil {
			b.closeAll()
			cancel()
			return nil, err
		}
		b.sockets[name] = sock

		b.wg.Add(1)
		go b.recvLoop(ctx, sock)
	}

	return b, nil
}

func (b *RawSocketBridge) recvLoop(ctx context.Context, sock *rawSocket) {
	defer b.wg.Done()

	buf := make([]byte, 2048)
	for {
		if ctx.Err() != nil {
			return
		}
		n, _, err := unix.Recvfrom(sock.fd, buf, 0)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			b.logger.Warn("recv error", slog.String("iface", sock.ifName), slog.Any("err", err))
			continue
		}
		if n <= 0 {
			continue
		}
		cp := make([]byte, n)
		copy(cp, buf[:n])

		select {
		case b.out <- Frame{Iface: sock.ifName, Data: cp}:
		default:
			b.logger.Warn("receive queue full, frame dropped", slog.String("iface", sock.ifName))
		}
	}
}

// Send transmits raw out the named interface's raw socket.
func (b *RawSocketBridge) Send(ifaceName string, raw []byte) error {
	b.mu.Lock()
	sock, ok := b.sockets[ifaceName]
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("linklayer: no socket for interface %q", ifaceName)
	}
	return sock.send(raw)
}

// Frames returns the shared channel of frames received across every
// managed interface.
func (b *RawSocketBridge) Frames() <-chan Frame {
	return b.out
}

// Close stops every receive goroutine and closes every socket.
func (b *RawSocketBridge) Close() error {
	b.cancel()
	b.wg.Wait()
	b.closeAll()
	close(b.out)
	return nil
}

func (b *RawSocketBridge) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for name, sock := range b.sockets {
		if err := sock.close(); err != nil {
			b.logger.Warn("error closing socket", slog.String("iface", name), slog.Any("err", err))
		}
	}
}
