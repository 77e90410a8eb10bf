// Package cli implements the caselink command line.
package cli

import (
	"fmt"
	"strings"

	"github.com/soyeahso/caselink/internal/config"
	"github.com/soyeahso/caselink/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string

	// loaded at init time
	paths config.Paths
	cfg   config.Config
	log   *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "caselink",
		Short: "caselink: natural-language UI commands for investigative analytics",
		Long: "caselink turns analyst instructions into validated UI actions. It serves the\n" +
			"agent over HTTP and WebSocket, and ships a terminal client that applies the\n" +
			"returned actions to a local view state.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}
			cfg, err = config.Load(paths.Config)
			if err != nil {
				return err
			}
			if logLevel != "" {
				if _, ok := logging.ParseLevel(logLevel); !ok {
					return fmt.Errorf("unknown log level %q", logLevel)
				}
				cfg.Logging.Level = strings.ToLower(logLevel)
			}
			log = logging.NewStyled(cfg.Logging.Level, cfg.Logging.ConsoleStyle)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.caselink/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(
		newGatewayCmd(),
		newTurnCmd(),
		newChatCmd(),
		newSessionCmd(),
		newPromptCmd(),
		newEndpointCmd(),
		newSeedCmd(),
		newConfigCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
