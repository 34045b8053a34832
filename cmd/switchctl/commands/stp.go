package commands

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type stpView struct {
	OwnBridgeID  uint32            `json:"own_bridge_id"`
	RootBridgeID uint32            `json:"root_bridge_id"`
	RootPathCost uint32            `json:"root_path_cost"`
	RootPort     string            `json:"root_port,omitempty"`
	IsRoot       bool              `json:"is_root"`
	Trunks       map[string]string `json:"trunks"`
}

func stpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stp",
		Short: "Show the switch's spanning-tree state",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			var v stpView
			if err := getJSON("/api/v1/stp", &v); err != nil {
				return err
			}
			out, err := formatSTP(v, outputFormat)
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}
}

func formatSTP(v stpView, format string) (string, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal stp state to JSON: %w", err)
		}
		return string(data), nil
	case "table":
		var buf strings.Builder
		w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "Own Bridge ID:\t%d\n", v.OwnBridgeID)
		fmt.Fprintf(w, "Root Bridge ID:\t%d\n", v.RootBridgeID)
		fmt.Fprintf(w, "Root Path Cost:\t%d\n", v.RootPathCost)
		fmt.Fprintf(w, "Root Port:\t%s\n", v.RootPort)
		fmt.Fprintf(w, "Is Root:\t%t\n", v.IsRoot)
		fmt.Fprintln(w, "TRUNK\tSTATE")
		for name, state := range v.Trunks {
			fmt.Fprintf(w, "%s\t%s\n", name, state)
		}
		if err := w.Flush(); err != nil {
			return "", fmt.Errorf("flush tabwriter: %w", err)
		}
		return buf.String(), nil
	default:
		return "", fmt.Errorf("unsupported output format %q", format)
	}
}
