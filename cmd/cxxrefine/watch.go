package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lexcodex/cxxrefine/framework/cxx"
	"github.com/lexcodex/cxxrefine/framework/workspace"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep the symbol cache and header/source pairs fresh while files change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				w, err := workspace.NewWatcher(s.root, s.matcher.IsCxxFile, s.logger)
				if err != nil {
					return err
				}
				defer w.Close()
				fmt.Fprintf(cmd.OutOrStdout(), "watching %s\n", s.root)
				return w.Run(ctx, func(path string) {
					s.proxy.Invalidate(ctx, cxx.PathToURI(path))
					s.matcher.Invalidate(path)
					fmt.Fprintf(cmd.OutOrStdout(), "changed %s\n", path)
				})
			})
		},
	}
}
