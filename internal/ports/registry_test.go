package ports_test

import (
	"errors"
	"testing"

	"github.com/l2bridge/goswitch/internal/ports"
	"github.com/l2bridge/goswitch/internal/switchcfg"
)

func testConfig() switchcfg.PortConfig {
	return switchcfg.PortConfig{
		Priority: 1,
		Access: []switchcfg.AccessPort{
			{Name: "r-0", VLAN: 10},
			{Name: "r-1", VLAN: 20},
		},
		Trunk: []switchcfg.TrunkPort{
			{Name: "rr-0-1", Token: "trunk1"},
		},
	}
}

func TestNewRegistry(t *testing.T) {
	t.Parallel()

	names := map[int]string{0: "r-0", 1: "r-1", 2: "rr-0-1", 3: "eth-extra"}
	reg, err := ports.NewRegistry(names, testConfig())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	if got := reg.Kind("r-0"); got != ports.Access {
		t.Errorf("Kind(r-0) = %v, want Access", got)
	}
	if got := reg.Kind("rr-0-1"); got != ports.Trunk {
		t.Errorf("Kind(rr-0-1) = %v, want Trunk", got)
	}
	if got := reg.Kind("eth-extra"); got != ports.Unmanaged {
		t.Errorf("Kind(eth-extra) = %v, want Unmanaged", got)
	}

	p, ok := reg.Port("r-0")
	if !ok || p.VLAN != 10 {
		t.Errorf("Port(r-0) = %+v, ok=%v", p, ok)
	}

	id, ok := reg.IDOf("rr-0-1")
	if !ok || id != 2 {
		t.Errorf("IDOf(rr-0-1) = %d, ok=%v", id, ok)
	}
	name, ok := reg.NameOf(2)
	if !ok || name != "rr-0-1" {
		t.Errorf("NameOf(2) = %q, ok=%v", name, ok)
	}

	trunks := reg.TrunkNames()
	if len(trunks) != 1 || trunks[0] != "rr-0-1" {
		t.Errorf("TrunkNames() = %v", trunks)
	}

	if len(reg.Interfaces()) != 4 {
		t.Errorf("Interfaces() len = %d, want 4", len(reg.Interfaces()))
	}
}

func TestNewRegistryUnknownConfiguredInterface(t *testing.T) {
	t.Parallel()

	names := map[int]string{0: "r-0"}
	_, err := ports.NewRegistry(names, testConfig())
	if !errors.Is(err, ports.ErrUnknownConfiguredInterface) {
		t.Fatalf("NewRegistry: err = %v, want ErrUnknownConfiguredInterface", err)
	}
}

func TestRegistryUnknownNameReturnsUnmanaged(t *testing.T) {
	t.Parallel()

	reg, err := ports.NewRegistry(map[int]string{0: "r-0"}, switchcfg.PortConfig{
		Priority: 1,
		Access:   []switchcfg.AccessPort{{Name: "r-0", VLAN: 10}},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if got := reg.Kind("does-not-exist"); got != ports.Unmanaged {
		t.Errorf("Kind(does-not-exist) = %v, want Unmanaged", got)
	}
}
