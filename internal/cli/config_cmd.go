package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/soyeahso/caselink/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or edit the config file",
		Long: "Keys are dotted YAML paths such as agent.maxActions or gateway.auth.token.\n" +
			"Edits go to the config file only; environment overrides still apply on load.",
	}

	cmd.AddCommand(
		newConfigGetCmd(),
		newConfigSetCmd(),
		newConfigUnsetCmd(),
		newConfigShowCmd(),
		newConfigPathCmd(),
		newConfigValidateCmd(),
	)
	return cmd
}

// editConfig loads the raw config file, hands it to fn and saves it back
// when fn reports a change.
func editConfig(key string, fn func(raw map[string]any, path []string) (bool, error)) error {
	path, err := config.ParseConfigPath(key)
	if err != nil {
		return err
	}
	raw, err := config.LoadRaw(paths.Config)
	if err != nil {
		return err
	}
	changed, err := fn(raw, path)
	if err != nil || !changed {
		return err
	}
	return config.SaveRaw(paths.Config, raw)
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print a value from the config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editConfig(args[0], func(raw map[string]any, path []string) (bool, error) {
				val, ok := config.GetValueAtPath(raw, path)
				if !ok {
					return false, fmt.Errorf("key %q is not set in %s", args[0], paths.Config)
				}
				return false, printValue(cmd.OutOrStdout(), val)
			})
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Write a value to the config file",
		Long:  "The value is read as YAML, so 3 is a number, true a boolean and [a, b] a list.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := parseValue(args[1])
			err := editConfig(args[0], func(raw map[string]any, path []string) (bool, error) {
				config.SetValueAtPath(raw, path, value)
				return true, nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %v\n", args[0], value)
			return nil
		},
	}
}

func newConfigUnsetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unset <key>",
		Short: "Remove a value from the config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := editConfig(args[0], func(raw map[string]any, path []string) (bool, error) {
				if !config.UnsetValueAtPath(raw, path) {
					return false, fmt.Errorf("key %q is not set in %s", args[0], paths.Config)
				}
				return true, nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Unset %s\n", args[0])
			return nil
		},
	}
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective config with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printValue(cmd.OutOrStdout(), masked(cfg))
		},
	}
}

// masked replaces every credential in c with a fixed marker.
func masked(c config.Config) config.Config {
	for _, s := range []*string{
		&c.Databricks.Token,
		&c.Databricks.ClientSecret,
		&c.Gateway.Auth.Token,
		&c.Gateway.Auth.Password,
	} {
		if *s != "" {
			*s = "********"
		}
	}
	return c
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), paths.Config)
		},
	}
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			issues := config.Validate(&cfg)
			for _, issue := range issues {
				fmt.Fprintln(cmd.OutOrStdout(), issue)
			}
			if len(issues) > 0 {
				return fmt.Errorf("%d config issue(s)", len(issues))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Config OK")
			return nil
		},
	}
}

// printValue writes scalars on one line and sections as YAML.
func printValue(w io.Writer, v any) error {
	switch v.(type) {
	case map[string]any, []any, config.Config:
		data, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		_, err := fmt.Fprintln(w, v)
		return err
	}
}

// parseValue reads a command-line value as a YAML scalar or flow
// collection. Anything that does not parse is kept as the literal string.
func parseValue(s string) any {
	if strings.TrimSpace(s) == "" {
		return s
	}
	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil || v == nil {
		return s
	}
	if _, isMap := v.(map[string]any); isMap {
		// "key: value" typed by mistake should not create a section
		return s
	}
	return v
}
