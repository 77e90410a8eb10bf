package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/soyeahso/caselink/internal/config"
	"github.com/soyeahso/caselink/internal/gateway"
	"github.com/spf13/cobra"
)

func newGatewayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gateway",
		Short: "Manage the caselink gateway server",
	}

	cmd.AddCommand(newGatewayRunCmd())
	return cmd
}

func newGatewayRunCmd() *cobra.Command {
	var (
		port int
		bind string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the gateway server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != 0 {
				cfg.Gateway.Port = port
			}
			if bind != "" {
				cfg.Gateway.Bind = bind
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := paths.EnsureDirs(); err != nil {
				return fmt.Errorf("creating data directories: %w", err)
			}

			db, err := openStore(ctx, cfg, paths, log)
			if err != nil {
				return err
			}
			defer db.Close()

			hookMgr, closeHooks, err := newHooks(cfg, paths, log)
			if err != nil {
				return err
			}
			defer closeHooks()

			// Missing credentials do not stop the server; each turn reports
			// them as an authentication error.
			orch := newOrchestrator(cfg, db, newModelClient(cfg, log), hookMgr, log)

			srv := gateway.New(cfg, log,
				gateway.WithAgent(orch),
				gateway.WithEvidence(db),
				gateway.WithHooks(hookMgr),
			)

			log.Info().
				Str("endpoint", cfg.Agent.Endpoint).
				Int("maxActions", orch.MaxActions()).
				Bool("hostSet", cfg.Databricks.Host != "").
				Msg("agent ready")

			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override gateway port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind mode (loopback, lan, custom)")

	return cmd
}
