// Package switchcfg reads the per-switch port configuration file:
// ./configs/switch{id}.cfg, a line-oriented, whitespace-delimited
// format invented by this bridge's reference implementation. It is
// intentionally not layered on the daemon-wide YAML configuration in
// package config -- see SPEC_FULL.md's EXTERNAL INTERFACES section for
// why this one file is read with a bare scanner instead of a config
// library.
package switchcfg

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// AccessPort is one "r-N V" line: an access port name and its VLAN id.
type AccessPort struct {
	Name string
	VLAN uint16
}

// TrunkPort is one "rr-N-M T" line. The second token is kept only for
// fidelity with the file format; the forwarding plane does not use it.
type TrunkPort struct {
	Name  string
	Token string
}

// PortConfig is the fully parsed contents of a switch{id}.cfg file.
type PortConfig struct {
	Priority uint32
	Access   []AccessPort
	Trunk    []TrunkPort
}

// ErrMalformedConfig wraps every parse failure. Config reading is
// fatal at startup; this sentinel lets the composition root distinguish
// "bad config" from other startup failures (e.g. link layer init).
var ErrMalformedConfig = errors.New("switchcfg: malformed configuration")

// ConfigPath returns the conventional path for a switch id, e.g.
// ConfigPath("1") == "./configs/switch1.cfg".
func ConfigPath(switchID string) string {
	return "./configs/switch" + switchID + ".cfg"
}

// Load opens and parses the config file at path.
func Load(path string) (PortConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return PortConfig{}, fmt.Errorf("%w: open %s: %w", ErrMalformedConfig, path, err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads a port configuration from r. The first non-blank line is
// the switch priority; there is no comment syntax, so a leading
// "#"-line is rejected as a malformed priority. Every subsequent
// recognized line is either "r-N V" (access) or "rr-N-M T" (trunk).
// Blank lines and lines with an unrecognized prefix are ignored.
func Parse(r io.Reader) (PortConfig, error) {
	var cfg PortConfig
	haveReadPriority := false

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if !haveReadPriority {
			priority, err := parsePriority(line)
			if err != nil {
				return PortConfig{}, err
			}
			cfg.Priority = priority
			haveReadPriority = true
			continue
		}

		fields := strings.Fields(line)
		switch {
		case strings.HasPrefix(line, "rr-"):
			ap, err := parseTrunkLine(fields)
			if err != nil {
				return PortConfig{}, err
			}
			cfg.Trunk = append(cfg.Trunk, ap)
		case strings.HasPrefix(line, "r-"):
			ap, err := parseAccessLine(fields)
			if err != nil {
				return PortConfig{}, err
			}
			cfg.Access = append(cfg.Access, ap)
		default:
			// Unknown prefix: ignored per the file format's forward
			// compatibility rule.
		}
	}
	if err := scanner.Err(); err != nil {
		return PortConfig{}, fmt.Errorf("%w: read: %w", ErrMalformedConfig, err)
	}
	if !haveReadPriority {
		return PortConfig{}, fmt.Errorf("%w: missing priority line", ErrMalformedConfig)
	}

	return cfg, nil
}

func parsePriority(line string) (uint32, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return 0, fmt.Errorf("%w: empty priority line", ErrMalformedConfig)
	}
	v, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: priority %q: %w", ErrMalformedConfig, fields[0], err)
	}
	return uint32(v), nil
}

func parseAccessLine(fields []string) (AccessPort, error) {
	if len(fields) < 2 {
		return AccessPort{}, fmt.Errorf("%w: access line %q: want 2 fields", ErrMalformedConfig, strings.Join(fields, " "))
	}
	vlan, err := strconv.ParseUint(fields[1], 10, 16)
	if err != nil {
		return AccessPort{}, fmt.Errorf("%w: vlan id %q: %w", ErrMalformedConfig, fields[1], err)
	}
	return AccessPort{Name: fields[0], VLAN: uint16(vlan)}, nil
}

func parseTrunkLine(fields []string) (TrunkPort, error) {
	if len(fields) < 2 {
		return TrunkPort{}, fmt.Errorf("%w: trunk line %q: want 2 fields", ErrMalformedConfig, strings.Join(fields, " "))
	}
	return TrunkPort{Name: fields[0], Token: fields[1]}, nil
}
