package commands

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type macEntryView struct {
	MAC       string `json:"mac"`
	Interface string `json:"interface"`
}

func macTableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mactable",
		Short: "List the switch's learned MAC addresses",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			var entries []macEntryView
			if err := getJSON("/api/v1/mactable", &entries); err != nil {
				return err
			}
			out, err := formatMACTable(entries, outputFormat)
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}
}

func formatMACTable(entries []macEntryView, format string) (string, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal mactable to JSON: %w", err)
		}
		return string(data), nil
	case "table":
		var buf strings.Builder
		w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "MAC\tINTERFACE")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\n", e.MAC, e.Interface)
		}
		if err := w.Flush(); err != nil {
			return "", fmt.Errorf("flush tabwriter: %w", err)
		}
		return buf.String(), nil
	default:
		return "", fmt.Errorf("unsupported output format %q", format)
	}
}
