package linklayer_test

import (
	"testing"
	"time"

	"github.com/l2bridge/goswitch/internal/linklayer"
)

func TestSendOnUnconnectedInterfaceIsDropped(t *testing.T) {
	t.Parallel()

	s := linklayer.NewSimulated()
	if err := s.Send("r-0", []byte("hello")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case f := <-s.Frames():
		t.Fatalf("unexpected frame received: %+v", f)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestConnectDeliversAcrossInstances(t *testing.T) {
	t.Parallel()

	a := linklayer.NewSimulated()
	b := linklayer.NewSimulated()
	linklayer.Connect(a, "rr-a-b", b, "rr-b-a")

	if err := a.Send("rr-a-b", []byte("ping")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case f := <-b.Frames():
		if f.Iface != "rr-b-a" || string(f.Data) != "ping" {
			t.Fatalf("got %+v, want iface=rr-b-a data=ping", f)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
	}
}

func TestConnectIsBidirectional(t *testing.T) {
	t.Parallel()

	a := linklayer.NewSimulated()
	b := linklayer.NewSimulated()
	linklayer.Connect(a, "rr-a-b", b, "rr-b-a")

	if err := b.Send("rr-b-a", []byte("pong")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case f := <-a.Frames():
		if f.Iface != "rr-a-b" || string(f.Data) != "pong" {
			t.Fatalf("got %+v, want iface=rr-a-b data=pong", f)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
	}
}

func TestSendAfterCloseFails(t *testing.T) {
	t.Parallel()

	s := linklayer.NewSimulated()
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Send("r-0", []byte("x")); err != linklayer.ErrClosed {
		t.Fatalf("Send after close = %v, want ErrClosed", err)
	}
}
