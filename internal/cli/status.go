package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/traction-app/traction/internal/daemon"
	"github.com/traction-app/traction/internal/infra/scheduler"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the running daemon's scheduler status",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		return err
	}

	url := fmt.Sprintf("http://%s:%d/api/scheduler/status", cfg.API.Host, cfg.API.Port)
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("daemon not reachable at %s: %w", url, err)
	}
	defer resp.Body.Close()

	var status scheduler.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return err
	}

	fmt.Printf("Scheduler running: %v\n", status.IsRunning)
	for _, j := range status.Jobs {
		fmt.Printf("  %-24s %-12s next %s\n", j.ID, j.Schedule, j.NextRun.Format(time.RFC3339))
		if j.LastError != "" {
			fmt.Printf("    last error: %s\n", j.LastError)
		}
	}
	return nil
}
