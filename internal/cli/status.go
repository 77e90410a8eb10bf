package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/soyeahso/caselink/internal/config"
	"github.com/soyeahso/caselink/internal/gateway"
	"github.com/soyeahso/caselink/internal/store"
	"github.com/soyeahso/caselink/internal/version"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show caselink status and configuration summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "caselink %s (commit %s)\n\n", version.Version, version.Current().Commit)

			// Show paths
			fmt.Fprintf(out, "Config:   %s\n", paths.Config)
			if _, err := os.Stat(paths.Config); os.IsNotExist(err) {
				fmt.Fprintln(out, "          not found (using defaults)")
			}
			fmt.Fprintf(out, "Database: %s\n", databasePath(cfg, paths))
			fmt.Fprintf(out, "Logs:     %s\n", paths.Logs)
			fmt.Fprintln(out)

			// Model serving; secrets are reported as set/unset only
			fmt.Fprintf(out, "Host:     %s\n", orUnset(cfg.Databricks.Host))
			fmt.Fprintf(out, "Creds:    token=%t clientId=%t clientSecret=%t scope=%s\n",
				cfg.Databricks.Token != "", cfg.Databricks.ClientID != "", cfg.Databricks.ClientSecret != "",
				cfg.Databricks.Scope)
			fmt.Fprintf(out, "Agent:    endpoint=%s maxActions=%d temperature=%g maxTokens=%d timeout=%s\n",
				cfg.Agent.Endpoint, cfg.Agent.EffectiveMaxActions(), cfg.Agent.EffectiveTemperature(),
				cfg.Agent.MaxTokens, cfg.Agent.Timeout())

			auth := gateway.ResolveAuth(cfg.Gateway.Auth)
			fmt.Fprintf(out, "Gateway:  port=%d bind=%s auth=%s\n", cfg.Gateway.Port, cfg.Gateway.Bind, auth.Mode)
			fmt.Fprintf(out, "Session:  store=%s\n", cfg.Session.Store)

			if _, err := os.Stat(databasePath(cfg, paths)); err == nil {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if counts, err := projectionCounts(ctx); err != nil {
					fmt.Fprintf(out, "Data:     error: %v\n", err)
				} else {
					fmt.Fprintf(out, "Data:     suspects=%d cases=%d overlaps=%d socialEdges=%d\n",
						counts.Suspects, counts.Cases, counts.Overlaps, counts.SocialEdges)
				}
			} else {
				fmt.Fprintln(out, "Data:     (not seeded)")
			}

			// Validation
			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				fmt.Fprintf(out, "\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Fprintf(out, "  - %s\n", issue)
				}
			}

			return nil
		},
	}

	return cmd
}

func projectionCounts(ctx context.Context) (store.Counts, error) {
	db, err := store.Open(databasePath(cfg, paths), log)
	if err != nil {
		return store.Counts{}, err
	}
	defer db.Close()
	return db.Counts(ctx)
}

func orUnset(s string) string {
	if s == "" {
		return "(unset)"
	}
	return s
}
