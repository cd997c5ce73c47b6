package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/traction-app/traction/internal/daemon"
	"github.com/traction-app/traction/internal/health"
)

func init() {
	rootCmd.AddCommand(healthCmd)
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show the running daemon's health checks",
	RunE:  runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		return err
	}

	url := fmt.Sprintf("http://%s:%d/health", cfg.API.Host, cfg.API.Port)
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("daemon not reachable at %s: %w", url, err)
	}
	defer resp.Body.Close()

	var body struct {
		Status string          `json:"status"`
		Checks []health.Status `json:"checks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return err
	}

	fmt.Printf("Status: %s\n", body.Status)
	for _, c := range body.Checks {
		mark := "ok"
		if !c.Healthy {
			mark = "FAIL"
		}
		fmt.Printf("  %-12s %s", c.Name, mark)
		if c.Error != "" {
			fmt.Printf(" (%s)", c.Error)
		}
		fmt.Println()
	}
	return nil
}
