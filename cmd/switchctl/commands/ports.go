package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type portView struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	VLAN  uint16 `json:"vlan,omitempty"`
	State string `json:"stp_state,omitempty"`
}

func portsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List the switch's registered ports",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			var ports []portView
			if err := getJSON("/api/v1/ports", &ports); err != nil {
				return err
			}
			out, err := formatPorts(ports, outputFormat)
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}
}

func getJSON(path string, v any) error {
	req, err := newRequest(http.MethodGet, path)
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return fmt.Errorf("%s: status %d: %s", path, resp.StatusCode, body.Error)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}

func formatPorts(ports []portView, format string) (string, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(ports, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal ports to JSON: %w", err)
		}
		return string(data), nil
	case "table":
		var buf strings.Builder
		w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tKIND\tVLAN\tSTP STATE")
		for _, p := range ports {
			vlan := ""
			if p.Kind == "access" {
				vlan = fmt.Sprintf("%d", p.VLAN)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Kind, vlan, p.State)
		}
		if err := w.Flush(); err != nil {
			return "", fmt.Errorf("flush tabwriter: %w", err)
		}
		return buf.String(), nil
	default:
		return "", fmt.Errorf("unsupported output format %q", format)
	}
}
