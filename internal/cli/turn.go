package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/soyeahso/caselink/internal/agent"
	"github.com/soyeahso/caselink/internal/gateway"
	"github.com/soyeahso/caselink/internal/session"
	"github.com/soyeahso/caselink/internal/ui"
	"github.com/soyeahso/caselink/internal/uicontext"
	"github.com/spf13/cobra"
)

func newTurnCmd() *cobra.Command {
	var (
		path   string
		search string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "turn <instruction>",
		Short: "Run a single turn in-process and print the actions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			answer := strings.Join(args, " ")
			if strings.TrimSpace(answer) == "" {
				return agent.ErrAnswerRequired
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			db, err := openStore(ctx, cfg, paths, log)
			if err != nil {
				return err
			}
			defer db.Close()

			orch := newOrchestrator(cfg, db, newModelClient(cfg, log), nil, log)
			res, err := orch.Turn(ctx, agent.TurnRequest{
				SessionID: session.NewID(time.Now()),
				UIContext: &uicontext.UIContext{Path: path, Search: search},
				Answer:    answer,
			})
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(gateway.TurnResponse{
					Success:          true,
					SessionID:        res.SessionID,
					AssistantMessage: res.AssistantMessage,
					Actions:          res.Actions,
					RawModelResponse: res.RawModelResponse,
				})
			}

			exec := ui.NewExecutor(db, log)
			applied := exec.Apply(ctx, ui.NewState(path, search), res.Actions, answer)
			fmt.Fprint(cmd.OutOrStdout(), renderTurn(res.AssistantMessage, applied))
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "/", "current view path")
	cmd.Flags().StringVar(&search, "search", "", "current query string, e.g. ?city=Chicago&hour=18")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the HTTP response body instead of applying actions")

	return cmd
}
