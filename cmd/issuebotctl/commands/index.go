package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/simili-bot/issuebot/internal/core/config"
)

var (
	indexServerURL string
	indexForge     string
)

var indexCmd = &cobra.Command{
	Use:   "index <owner>/<repo>",
	Short: "Trigger a backfill issue_indexation job against a running issuebotd",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndex,
}

func init() {
	RootCmd.AddCommand(indexCmd)
	indexCmd.Flags().StringVar(&indexServerURL, "server", "", "issuebotd base URL (default: derived from config.yaml's server section)")
	indexCmd.Flags().StringVar(&indexForge, "forge", "github", "forge the repository lives on (github or hf)")
}

func runIndex(cmd *cobra.Command, args []string) error {
	owner, repo, ok := strings.Cut(args[0], "/")
	if !ok {
		return fmt.Errorf("repository must be in owner/repo form, got %q", args[0])
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	baseURL := indexServerURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://%s:%d", loopbackOr(cfg.Server.IP), cfg.Server.Port)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	url := fmt.Sprintf("%s/index/%s/%s?forge=%s", baseURL, owner, repo, indexForge)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+cfg.AuthToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("issuebotd returned %s: %s", resp.Status, body)
	}

	fmt.Println(string(body))
	return nil
}

func loopbackOr(ip string) string {
	if ip == "" || ip == "0.0.0.0" {
		return "127.0.0.1"
	}
	return ip
}
