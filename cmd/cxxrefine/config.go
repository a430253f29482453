package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lexcodex/cxxrefine/framework/config"
)

// newConfigCmd registers subcommands that inspect or mutate .cxxrefine.yaml.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or modify .cxxrefine.yaml",
	}
	cmd.AddCommand(newConfigGetCmd(), newConfigSetCmd())
	return cmd
}

// newConfigGetCmd prints the value referenced by a dotted key, or the whole
// effective configuration.
func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [key]",
		Short: "Read a config value by dotted key",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return printValue(cmd.OutOrStdout(), globalCfg)
			}
			value, err := globalCfg.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}
}

// newConfigSetCmd validates and stores a dotted key.
func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Update a config value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := globalCfg.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := config.Save(flagConfig, globalCfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s updated\n", args[0])
			return nil
		},
	}
}
