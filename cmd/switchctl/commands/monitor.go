package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

type transitionEvent struct {
	Trunk    string `json:"trunk"`
	State    string `json:"state"`
	RootID   uint32 `json:"root_bridge_id"`
	RootCost uint32 `json:"root_path_cost"`
	RootPort string `json:"root_port,omitempty"`
}

func monitorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Stream spanning-tree transition events",
		Long:  "Connects to the goswitch admin API and streams STP transitions until interrupted (Ctrl+C).",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			header := http.Header{}
			if token != "" {
				header.Set("Authorization", "Bearer "+token)
			}

			conn, _, err := websocket.DefaultDialer.DialContext(ctx, "ws://"+serverAddr+"/api/v1/events", header)
			if err != nil {
				return fmt.Errorf("dial events stream: %w", err)
			}
			defer conn.Close()

			go func() {
				<-ctx.Done()
				conn.Close()
			}()

			for {
				var ev transitionEvent
				if err := conn.ReadJSON(&ev); err != nil {
					if ctx.Err() != nil || errors.Is(err, websocket.ErrCloseSent) {
						return nil
					}
					return fmt.Errorf("read event: %w", err)
				}
				out, err := formatEvent(ev, outputFormat)
				if err != nil {
					return err
				}
				fmt.Println(out)
			}
		},
	}
	return cmd
}

func formatEvent(ev transitionEvent, format string) (string, error) {
	switch format {
	case "json":
		data, err := json.Marshal(ev)
		if err != nil {
			return "", fmt.Errorf("marshal event to JSON: %w", err)
		}
		return string(data), nil
	case "table":
		return fmt.Sprintf("trunk=%s state=%s root=%d cost=%d root_port=%s",
			ev.Trunk, ev.State, ev.RootID, ev.RootCost, ev.RootPort), nil
	default:
		return "", fmt.Errorf("unsupported output format %q", format)
	}
}
