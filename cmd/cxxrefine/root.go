package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lexcodex/cxxrefine/framework/config"
)

const (
	sourceClangd     = "clangd"
	sourceTreeSitter = "treesitter"
)

var (
	flagConfig  string
	flagRoot    string
	flagSource  string
	flagVerbose bool
	flagJSON    bool

	globalCfg *config.Config
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cxxrefine",
		Short:         "Inspect C++ declarations and generate definitions, declarations and guards",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flagRoot == "" {
				wd, err := os.Getwd()
				if err != nil {
					return err
				}
				flagRoot = wd
			}
			if flagConfig == "" {
				flagConfig = config.DefaultPath(flagRoot)
			}
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}
			switch flagSource {
			case sourceClangd, sourceTreeSitter:
			default:
				return fmt.Errorf("unknown symbol source %q (want %s or %s)", flagSource, sourceClangd, sourceTreeSitter)
			}
			globalCfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to .cxxrefine.yaml (default: <root>/.cxxrefine.yaml)")
	root.PersistentFlags().StringVar(&flagRoot, "root", "", "Workspace root (default: current directory)")
	root.PersistentFlags().StringVar(&flagSource, "source", sourceTreeSitter, "Symbol source (clangd, treesitter)")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log to stderr")
	root.PersistentFlags().BoolVar(&flagJSON, "json", false, "Print JSON instead of YAML")

	root.AddCommand(
		newSymbolsCmd(),
		newInspectCmd(),
		newAccessCmd(),
		newAddDefinitionCmd(),
		newAddDeclarationCmd(),
		newMoveDefinitionCmd(),
		newHeaderGuardCmd(),
		newAddIncludeCmd(),
		newEqualityCmd(),
		newConfigCmd(),
		newCacheCmd(),
		newWatchCmd(),
	)
	return root
}
