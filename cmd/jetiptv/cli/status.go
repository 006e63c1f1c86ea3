package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/JET-SOUZA/jet.iptv/internal/model"
)

func newStatusCmd() *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check if the JET IPTV server is running",
		Long:  "Query the liveness and readiness probes of a running server.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				cfg := loadSettings()
				host := cfg.Host
				if host == "" || host == "0.0.0.0" {
					host = "127.0.0.1"
				}
				url = fmt.Sprintf("http://%s:%d", host, cfg.Port)
			}
			return runStatus(cmd.OutOrStdout(), &http.Client{Timeout: 2 * time.Second}, url)
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "Base URL of the server (default from server.host and server.port)")

	return cmd
}

func runStatus(out io.Writer, client *http.Client, base string) error {
	resp, err := client.Get(base + "/healthz")
	if err != nil {
		fmt.Fprintf(out, "Server is not responding at %s\n", base)
		return nil
	}
	resp.Body.Close()

	fmt.Fprintf(out, "Server is running at %s\n", base)
	fmt.Fprintf(out, "  Health:  %d\n", resp.StatusCode)

	resp, err = client.Get(base + "/readyz")
	if err != nil {
		fmt.Fprintf(out, "  Ready:   unknown (%v)\n", err)
		return nil
	}
	defer resp.Body.Close()

	var ready model.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&ready); err != nil {
		fmt.Fprintf(out, "  Ready:   %d\n", resp.StatusCode)
		return nil
	}
	fmt.Fprintf(out, "  Ready:   %s (%d)\n", ready.Status, resp.StatusCode)
	for name, check := range ready.Checks {
		fmt.Fprintf(out, "    %s: %s\n", name, check)
	}
	return nil
}
