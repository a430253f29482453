package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/lexcodex/cxxrefine/persistence"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or prune the persistent symbol cache (cache.path)",
	}
	cmd.AddCommand(newCacheListCmd(), newCachePruneCmd())
	return cmd
}

func openStore() (*persistence.SymbolStore, error) {
	path := globalCfg.Cache.Path
	if path == "" {
		return nil, errors.New("cache.path is not configured")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(flagRoot, path)
	}
	return persistence.NewSymbolStore(path)
}

type cacheRecordView struct {
	URI       string    `json:"uri" yaml:"uri"`
	Hash      string    `json:"hash" yaml:"hash"`
	Source    string    `json:"source" yaml:"source"`
	Symbols   int       `json:"symbols" yaml:"symbols"`
	IndexedAt time.Time `json:"indexed_at" yaml:"indexed_at"`
}

func newCacheListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached symbol trees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			records, err := store.Records(cmd.Context())
			if err != nil {
				return err
			}
			views := make([]cacheRecordView, 0, len(records))
			for _, r := range records {
				views = append(views, cacheRecordView{URI: r.URI, Hash: r.ContentHash, Source: r.Source, Symbols: r.Symbols, IndexedAt: r.IndexedAt})
			}
			return printValue(cmd.OutOrStdout(), views)
		},
	}
}

func newCachePruneCmd() *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete cached trees indexed before a cutoff",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			n, err := store.Prune(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pruned %d trees\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 7*24*time.Hour, "Age of the trees to delete")
	return cmd
}
