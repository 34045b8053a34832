package switchcfg_test

import (
	"strings"
	"testing"

	"github.com/l2bridge/goswitch/internal/switchcfg"
)

func TestParse(t *testing.T) {
	t.Parallel()

	const cfg = `1
r-0 10
r-1 20

rr-0-1 trunk1
# a comment-shaped line, ignored like any unknown prefix
`
	got, err := switchcfg.Parse(strings.NewReader(cfg))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if got.Priority != 1 {
		t.Errorf("Priority = %d, want 1", got.Priority)
	}
	if len(got.Access) != 2 || got.Access[0] != (switchcfg.AccessPort{Name: "r-0", VLAN: 10}) {
		t.Errorf("Access = %+v", got.Access)
	}
	if len(got.Trunk) != 1 || got.Trunk[0].Name != "rr-0-1" {
		t.Errorf("Trunk = %+v", got.Trunk)
	}
}

func TestParseMissingPriority(t *testing.T) {
	t.Parallel()

	_, err := switchcfg.Parse(strings.NewReader(""))
	if err == nil {
		t.Fatal("Parse: expected error for empty file")
	}
}

func TestParseBadPriority(t *testing.T) {
	t.Parallel()

	_, err := switchcfg.Parse(strings.NewReader("not-a-number\n"))
	if err == nil {
		t.Fatal("Parse: expected error for non-numeric priority")
	}
}

func TestParseAccessLineMissingVLAN(t *testing.T) {
	t.Parallel()

	_, err := switchcfg.Parse(strings.NewReader("1\nr-0\n"))
	if err == nil {
		t.Fatal("Parse: expected error for access line missing vlan field")
	}
}

func TestConfigPath(t *testing.T) {
	t.Parallel()

	if got, want := switchcfg.ConfigPath("1"), "./configs/switch1.cfg"; got != want {
		t.Errorf("ConfigPath(1) = %q, want %q", got, want)
	}
}
