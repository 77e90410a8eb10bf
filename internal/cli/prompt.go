package cli

import (
	"fmt"

	"github.com/soyeahso/caselink/internal/agent"
	"github.com/soyeahso/caselink/internal/config"
	"github.com/spf13/cobra"
)

func newPromptCmd() *cobra.Command {
	var maxActions int

	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Print the system prompt sent with every turn",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n := cfg.Agent.EffectiveMaxActions()
			if cmd.Flags().Changed("max-actions") {
				n = config.ClampMaxActions(maxActions)
			}
			fmt.Fprintln(cmd.OutOrStdout(), agent.BuildSystemPrompt(n))
			return nil
		},
	}

	cmd.Flags().IntVar(&maxActions, "max-actions", 0, "override the configured action cap")
	return cmd
}
