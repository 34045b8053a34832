package ports

import (
	"errors"
	"fmt"

	"github.com/l2bridge/goswitch/internal/switchcfg"
)

// Kind classifies a registered interface.
type Kind uint8

const (
	// Unmanaged means the interface exists at the link layer but was not
	// named in the port configuration. It is never used as an ingress or
	// egress candidate.
	Unmanaged Kind = iota

	// Access is an untagged endpoint belonging to a single VLAN.
	Access

	// Trunk is a tagged inter-switch link. Trunk ports additionally carry
	// spanning-tree state, owned by package stp, not by the registry.
	Trunk
)

// String returns a lowercase label, used in logging and in the admin API.
func (k Kind) String() string {
	switch k {
	case Access:
		return "access"
	case Trunk:
		return "trunk"
	default:
		return "unmanaged"
	}
}

// Port is a single registered interface.
type Port struct {
	ID   int
	Name string
	Kind Kind
	VLAN uint16 // valid only when Kind == Access
}

// Sentinel construction errors. All are fatal at startup.
var (
	// ErrDuplicateInterfaceID indicates the link layer reported the same
	// interface name under more than one numeric id.
	ErrDuplicateInterfaceID = errors.New("ports: duplicate interface id")

	// ErrUnknownConfiguredInterface indicates the port configuration names
	// an interface the link layer never enumerated.
	ErrUnknownConfiguredInterface = errors.New("ports: configured interface not present at link layer")
)

// Registry is the immutable, once-built set of local interfaces. It is
// safe for concurrent read access from multiple goroutines; nothing
// mutates it after NewRegistry returns.
type Registry struct {
	byID   map[int]Port
	byName map[string]Port
	trunks []string
}

// NewRegistry builds a Registry from the link layer's numeric-id-to-name
// enumeration and the parsed port configuration. Every name the config
// names as access or trunk must be present in ifaceNames; interfaces
// present in ifaceNames but absent from cfg become Unmanaged entries
// (kept so NameOf/IDOf still resolve them, but never selected as a
// forwarding candidate by the forwarding engine).
func NewRegistry(ifaceNames map[int]string, cfg switchcfg.PortConfig) (*Registry, error) {
	r := &Registry{
		byID:   make(map[int]Port, len(ifaceNames)),
		byName: make(map[string]Port, len(ifaceNames)),
	}

	kindByName := make(map[string]Port, len(cfg.Access)+len(cfg.Trunk))
	for _, a := range cfg.Access {
		kindByName[a.Name] = Port{Name: a.Name, Kind: Access, VLAN: a.VLAN}
	}
	for _, t := range cfg.Trunk {
		kindByName[t.Name] = Port{Name: t.Name, Kind: Trunk}
	}

	seen := make(map[string]struct{}, len(ifaceNames))
	for id, name := range ifaceNames {
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: id %d reuses name %q", ErrDuplicateInterfaceID, id, name)
		}
		seen[name] = struct{}{}

		p, configured := kindByName[name]
		if !configured {
			p = Port{Name: name, Kind: Unmanaged}
		}
		p.ID = id

		r.byID[id] = p
		r.byName[name] = p
		delete(kindByName, name)

		if p.Kind == Trunk {
			r.trunks = append(r.trunks, name)
		}
	}

	for name := range kindByName {
		return nil, fmt.Errorf("%w: %q", ErrUnknownConfiguredInterface, name)
	}

	return r, nil
}

// Interfaces returns every registered numeric interface id, including
// Unmanaged ones.
func (r *Registry) Interfaces() []int {
	ids := make([]int, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	return ids
}

// NameOf returns the interface name for a numeric id.
func (r *Registry) NameOf(id int) (string, bool) {
	p, ok := r.byID[id]
	return p.Name, ok
}

// IDOf returns the numeric id for an interface name.
func (r *Registry) IDOf(name string) (int, bool) {
	p, ok := r.byName[name]
	if !ok {
		return 0, false
	}
	return p.ID, true
}

// Port returns the full registered entry for a name.
func (r *Registry) Port(name string) (Port, bool) {
	p, ok := r.byName[name]
	return p, ok
}

// PortByID returns the full registered entry for a numeric id.
func (r *Registry) PortByID(id int) (Port, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// Kind returns the port kind for a name, or Unmanaged if the name is
// not registered at all.
func (r *Registry) Kind(name string) Kind {
	p, ok := r.byName[name]
	if !ok {
		return Unmanaged
	}
	return p.Kind
}

// TrunkNames returns every trunk interface name, in no particular
// order. Used by the STP engine to size and initialize its per-trunk
// state map.
func (r *Registry) TrunkNames() []string {
	out := make([]string, len(r.trunks))
	copy(out, r.trunks)
	return out
}

// All returns every registered port, including Unmanaged ones. Used by
// the forwarding engine to enumerate flood candidates and by the admin
// API to render the port table.
func (r *Registry) All() []Port {
	out := make([]Port, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, p)
	}
	return out
}
