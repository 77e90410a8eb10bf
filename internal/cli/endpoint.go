package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/soyeahso/caselink/internal/llm"
	"github.com/spf13/cobra"
)

func newEndpointCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "endpoint",
		Short: "Check the model serving endpoint",
	}

	cmd.AddCommand(newEndpointCheckCmd())
	return cmd
}

func newEndpointCheckCmd() *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Send a minimal chat payload and print the normalized reply",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Agent.Timeout())
			defer cancel()

			client := newModelClient(cfg, log)
			start := time.Now()
			resp, err := client.Complete(ctx, llm.CompletionRequest{
				Messages: []llm.Message{{Role: llm.RoleUser, Content: message}},
			})
			if err != nil {
				return fmt.Errorf("endpoint %s: %w", client.Name(), err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Endpoint: %s\n", client.Name())
			fmt.Fprintf(out, "Path:     %s\n", resp.Path)
			fmt.Fprintf(out, "Latency:  %s\n", time.Since(start).Round(time.Millisecond))
			fmt.Fprintf(out, "Reply:    %s\n", resp.Content)
			return nil
		},
	}

	cmd.Flags().StringVar(&message, "message", "Reply with the single word: ok", "message to send")
	return cmd
}
