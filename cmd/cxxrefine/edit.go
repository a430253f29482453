package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lexcodex/cxxrefine/framework/config"
	"github.com/lexcodex/cxxrefine/framework/cxx"
	"github.com/lexcodex/cxxrefine/framework/refactor"
)

func errNoClass(arg string) error {
	return fmt.Errorf("%w at %s", refactor.ErrNotClassOrStruct, arg)
}

// emit prints edits, or applies them to disk with --write.
func emit(ctx context.Context, cmd *cobra.Command, s *session, edits []refactor.TextEdit, write bool) error {
	if !write {
		return printValue(cmd.OutOrStdout(), edits)
	}
	for _, uri := range refactor.URIs(edits) {
		path := cxx.URIToPath(uri)
		text := ""
		if doc, err := s.proxy.Open(ctx, uri); err == nil {
			text = doc.Text()
		} else if !os.IsNotExist(err) {
			return err
		}
		updated, err := refactor.Apply(text, uri, edits)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
			return err
		}
		s.proxy.Invalidate(ctx, uri)
		s.matcher.Invalidate(path)
		fmt.Fprintf(cmd.OutOrStdout(), "updated %s\n", path)
	}
	return nil
}

type editFunc func(ctx context.Context, r *refactor.Refactorer, sym *cxx.Symbol, target string) ([]refactor.TextEdit, error)

// newSymbolEditCmd builds a command that runs fn on the symbol at a position.
func newSymbolEditCmd(use, short string, fn editFunc) *cobra.Command {
	var target string
	var write bool
	cmd := &cobra.Command{
		Use:   use + " [file:line:column]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				sym, err := s.symbolAt(ctx, args[0])
				if err != nil {
					return err
				}
				edits, err := fn(ctx, s.refactorer, sym, s.targetURI(target))
				if err != nil {
					return err
				}
				return emit(ctx, cmd, s, edits, write)
			})
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "File that receives the new code (default: the matching header or source)")
	cmd.Flags().BoolVarP(&write, "write", "w", false, "Apply the edits to disk")
	return cmd
}

func newAddDefinitionCmd() *cobra.Command {
	return newSymbolEditCmd("add-definition", "Add an empty definition for a function declaration",
		func(ctx context.Context, r *refactor.Refactorer, sym *cxx.Symbol, target string) ([]refactor.TextEdit, error) {
			return r.AddDefinition(ctx, sym, target)
		})
}

func newAddDeclarationCmd() *cobra.Command {
	return newSymbolEditCmd("add-declaration", "Declare a function definition in its class or header",
		func(ctx context.Context, r *refactor.Refactorer, sym *cxx.Symbol, target string) ([]refactor.TextEdit, error) {
			return r.AddDeclaration(ctx, sym, target)
		})
}

func newMoveDefinitionCmd() *cobra.Command {
	return newSymbolEditCmd("move-definition", "Move a function definition to another file or out of its class",
		func(ctx context.Context, r *refactor.Refactorer, sym *cxx.Symbol, target string) ([]refactor.TextEdit, error) {
			return r.MoveDefinition(ctx, sym, target)
		})
}

func newEqualityCmd() *cobra.Command {
	var members []string
	var equal, notEqual string
	var write bool
	cmd := &cobra.Command{
		Use:   "equality-operators [file:line:column]",
		Short: "Generate operator== and operator!= for a class",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := refactor.EqualityOptions{Members: members}
			var err error
			if opts.Equal, err = refactor.ParsePlacement(equal); err != nil {
				return err
			}
			if notEqual != "" && notEqual != "none" {
				if opts.NotEqual, err = refactor.ParsePlacement(notEqual); err != nil {
					return err
				}
			}
			return withSession(cmd, func(ctx context.Context, s *session) error {
				sym, err := s.symbolAt(ctx, args[0])
				if err != nil {
					return err
				}
				for sym != nil && !sym.IsClassOrStruct() {
					sym = sym.Parent()
				}
				if sym == nil {
					return errNoClass(args[0])
				}
				edits, err := s.refactorer.GenerateEqualityOperators(ctx, sym, opts)
				if err != nil {
					return err
				}
				return emit(ctx, cmd, s, edits, write)
			})
		},
	}
	cmd.Flags().StringSliceVar(&members, "members", nil, "Members to compare (default: every non-static member)")
	cmd.Flags().StringVar(&equal, "equal", string(refactor.PlaceInline), "Where operator== is defined (inline, current_file, source_file)")
	cmd.Flags().StringVar(&notEqual, "not-equal", string(refactor.PlaceInline), "Where operator!= is defined, or none")
	cmd.Flags().BoolVarP(&write, "write", "w", false, "Apply the edits to disk")
	return cmd
}

func newHeaderGuardCmd() *cobra.Command {
	var style, format string
	var write bool
	cmd := &cobra.Command{
		Use:   "header-guard [file]",
		Short: "Add #pragma once or an #ifndef guard to a header",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			guard := globalCfg.HeaderGuard
			if style != "" {
				parsed, err := config.ParseHeaderGuardStyle(style)
				if err != nil {
					return err
				}
				guard.Style = parsed
			}
			if format != "" {
				guard.DefineFormat = format
			}
			return withSession(cmd, func(ctx context.Context, s *session) error {
				doc, err := s.open(ctx, args[0])
				if err != nil {
					return err
				}
				edits, err := refactor.AddHeaderGuard(doc, guard, s.root)
				if err != nil {
					return err
				}
				return emit(ctx, cmd, s, edits, write)
			})
		},
	}
	cmd.Flags().StringVar(&style, "style", "", "Guard style (define, pragma_once, both)")
	cmd.Flags().StringVar(&format, "format", "", "Define format (default from config, e.g. "+config.DefaultHeaderGuardFormat+")")
	cmd.Flags().BoolVarP(&write, "write", "w", false, "Apply the edits to disk")
	return cmd
}

func newAddIncludeCmd() *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "add-include [file] [include]",
		Short: "Add an #include next to the existing includes of its kind",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				doc, err := s.open(ctx, args[0])
				if err != nil {
					return err
				}
				edits, err := refactor.AddInclude(doc, args[1])
				if err != nil {
					return err
				}
				return emit(ctx, cmd, s, edits, write)
			})
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "Apply the edits to disk")
	return cmd
}
