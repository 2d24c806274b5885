package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/parlor-network/parlor/internal/daemon"
)

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	statusCmd.Flags().StringP("config", "c", "", "Path to config.toml (default ~/.parlor/config.toml)")
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status and liquidity",
	Long:  `Query the running daemon for its health and per-asset liquidity counters.`,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := daemon.Load(configPath)
	if err != nil {
		return err
	}
	base := "http://" + cfg.ListenAddr()
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(base + "/health")
	if err != nil {
		return fmt.Errorf("daemon not reachable at %s: %w", base, err)
	}
	resp.Body.Close()
	fmt.Fprintf(os.Stdout, "Daemon: running at %s\n", base)

	resp, err = client.Get(base + "/api/liquidity")
	if err != nil {
		return fmt.Errorf("query liquidity: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		Assets []struct {
			Asset     string `json:"asset"`
			Custodied int64  `json:"custodied"`
			Treasury  int64  `json:"treasury"`
			Locked    int64  `json:"locked"`
			Available int64  `json:"available"`
		} `json:"assets"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode liquidity: %w", err)
	}
	if len(body.Assets) == 0 {
		fmt.Fprintln(os.Stdout, "No assets funded yet.")
		return nil
	}
	for _, a := range body.Assets {
		fmt.Fprintf(os.Stdout, "  %s: custodied=%d treasury=%d locked=%d available=%d\n",
			a.Asset, a.Custodied, a.Treasury, a.Locked, a.Available)
	}
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(os.Stdout, "parlor 0.1.0")
	},
}
