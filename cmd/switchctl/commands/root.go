// Package commands implements the switchctl CLI commands.
package commands

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// httpClient is the client used by every subcommand to talk to the
	// admin API.
	httpClient = &http.Client{Timeout: 10 * time.Second}

	// serverAddr is the goswitch admin API address (host:port).
	serverAddr string

	// token is an optional pre-issued bearer token for the admin API.
	token string

	// outputFormat controls the output format for all commands (table or json).
	outputFormat string
)

// rootCmd is the top-level cobra command for switchctl.
var rootCmd = &cobra.Command{
	Use:   "switchctl",
	Short: "CLI client for the goswitch bridge daemon",
	Long:  "switchctl communicates with the goswitch admin API to inspect the port table, MAC table, and spanning-tree state.",
	// Silence cobra's built-in usage/error printing so we control it.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "addr", "localhost:8443",
		"goswitch admin API address (host:port)")
	rootCmd.PersistentFlags().StringVar(&token, "token", "",
		"admin API bearer token (omit in dev mode)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table",
		"output format: table, json")

	rootCmd.AddCommand(portsCmd())
	rootCmd.AddCommand(macTableCmd())
	rootCmd.AddCommand(stpCmd())
	rootCmd.AddCommand(monitorCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(shellCmd())
}

// Execute runs the root command and exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func baseURL(scheme string) string {
	return scheme + "://" + serverAddr
}

func newRequest(method, path string) (*http.Request, error) {
	req, err := http.NewRequest(method, baseURL("http")+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}
