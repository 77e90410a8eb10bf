package cli

import (
	"fmt"

	"github.com/soyeahso/caselink/internal/session"
	"github.com/spf13/cobra"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or reset the chat client's session",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the session id and message log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sm := session.NewManager(newSessionStore(cfg, paths), log)
			id, err := sm.Current()
			if err != nil {
				return err
			}
			msgs, err := sm.Messages()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session: %s (%d messages)\n", id, len(msgs))
			fmt.Fprint(cmd.OutOrStdout(), renderHistory(msgs))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "new",
		Short: "Start a new session, keeping the message log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := session.NewManager(newSessionStore(cfg, paths), log).NewSession()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Delete the session and its log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := session.NewManager(newSessionStore(cfg, paths), log).Reset(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Session reset")
			return nil
		},
	})

	return cmd
}
