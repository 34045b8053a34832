//go:build !linux

package linklayer

import (
	"context"
	"errors"
	"log/slog"
)

// ErrUnsupportedPlatform indicates the production link-layer backends
// (AF_PACKET raw sockets, rtnetlink interface discovery) are only
// implemented for Linux. Non-Linux builds can still use Simulated.
var ErrUnsupportedPlatform = errors.New("linklayer: raw sockets and rtnetlink discovery are linux-only")

// EnumerateInterfaces always fails on non-Linux platforms.
func EnumerateInterfaces() (map[int]string, error) {
	return nil, ErrUnsupportedPlatform
}

// NewRawSocketBridge always fails on non-Linux platforms.
func NewRawSocketBridge(_ context.Context, _ []string, _ *slog.Logger) (*RawSocketBridge, error) {
	return nil, ErrUnsupportedPlatform
}

// RawSocketBridge is a placeholder type on this platform so
// callers can reference *linklayer.RawSocketBridge in portable code
// without a build tag of their own.
type RawSocketBridge struct{}

// Send never succeeds on this platform.
func (*RawSocketBridge) Send(string, []byte) error { return ErrUnsupportedPlatform }

// Frames returns a permanently empty, already-closed channel.
func (*RawSocketBridge) Frames() <-chan Frame {
	ch := make(chan Frame)
	close(ch)
	return ch
}

// Close is a no-op on this platform.
func (*RawSocketBridge) Close() error { return nil }
