package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lexcodex/cxxrefine/framework/config"
	"github.com/lexcodex/cxxrefine/framework/cxx"
	"github.com/lexcodex/cxxrefine/framework/refactor"
	"github.com/lexcodex/cxxrefine/framework/workspace"
	"github.com/lexcodex/cxxrefine/persistence"
	"github.com/lexcodex/cxxrefine/tools"
)

// session bundles the collaborators one command needs.
type session struct {
	cfg        *config.Config
	root       string
	logger     *log.Logger
	proxy      *tools.Proxy
	store      *persistence.SymbolStore
	matcher    *workspace.Matcher
	analyzer   *cxx.Analyzer
	refactorer *refactor.Refactorer
	logFile    *os.File
}

func newSession(ctx context.Context, cfg *config.Config, root string) (*session, error) {
	s := &session{cfg: cfg}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	s.root = abs
	if s.logger, s.logFile, err = newLogger(cfg); err != nil {
		return nil, err
	}
	if s.matcher, err = workspace.NewMatcher(abs, cfg); err != nil {
		s.Close()
		return nil, err
	}

	var source cxx.SymbolSource
	switch flagSource {
	case sourceClangd:
		clangd, err := tools.NewClangdSource(tools.ProcessLSPConfig{
			Command:          cfg.LSP.Command,
			Args:             cfg.LSP.Args,
			RootDir:          abs,
			LanguageID:       "cpp",
			HeaderExtensions: cfg.Extensions.Headers,
			Logger:           s.logger,
		})
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("start %s: %w", cfg.LSP.Command, err)
		}
		source = clangd
	default:
		ts := tools.NewTreeSitterSource(cfg.Extensions.Headers, s.logger)
		files, err := s.matcher.Files()
		if err != nil {
			s.Close()
			return nil, err
		}
		if err := ts.Index(ctx, files); err != nil {
			s.Close()
			return nil, err
		}
		source = ts
	}

	opts := []tools.ProxyOption{tools.WithLogger(s.logger)}
	if cfg.Cache.Path != "" {
		path := cfg.Cache.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(abs, path)
		}
		if s.store, err = persistence.NewSymbolStore(path); err != nil {
			if closer, ok := source.(io.Closer); ok {
				closer.Close()
			}
			s.Close()
			return nil, err
		}
		opts = append(opts, tools.WithStore(s.store, flagSource))
	}
	s.proxy = tools.NewProxy(source, cfg.Cache.TTL, opts...)
	s.analyzer = cxx.NewAnalyzer(s.proxy, cfg.AnalyzerOptions(), s.logger)
	s.refactorer = refactor.New(s.analyzer, cfg, s.matcher, s.logger)
	return s, nil
}

func newLogger(cfg *config.Config) (*log.Logger, *os.File, error) {
	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, err
		}
		return log.New(f, "cxxrefine ", log.LstdFlags), f, nil
	}
	if flagVerbose || cfg.Logging.Verbose {
		return log.New(os.Stderr, "cxxrefine ", log.LstdFlags), nil, nil
	}
	return log.New(io.Discard, "", 0), nil, nil
}

func (s *session) Close() error {
	var errs []error
	if s.proxy != nil {
		errs = append(errs, s.proxy.Close())
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	if s.logFile != nil {
		errs = append(errs, s.logFile.Close())
	}
	return errors.Join(errs...)
}

// open reads the document at path through the symbol source.
func (s *session) open(ctx context.Context, path string) (cxx.Document, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.root, path)
	}
	return s.proxy.Open(ctx, cxx.PathToURI(path))
}

// symbolAt resolves a file:line:column argument to the innermost symbol there.
func (s *session) symbolAt(ctx context.Context, arg string) (*cxx.Symbol, error) {
	path, pos, err := parseLocation(arg)
	if err != nil {
		return nil, err
	}
	doc, err := s.open(ctx, path)
	if err != nil {
		return nil, err
	}
	if pos.Line >= doc.LineCount() {
		return nil, fmt.Errorf("%s has only %d lines", path, doc.LineCount())
	}
	sym, err := s.analyzer.GetSymbol(ctx, doc, pos)
	if err != nil {
		return nil, err
	}
	if sym == nil {
		return nil, fmt.Errorf("no symbol at %s", arg)
	}
	return sym, nil
}

// targetURI turns an optional --target path into a URI.
func (s *session) targetURI(path string) string {
	if path == "" {
		return ""
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.root, path)
	}
	return cxx.PathToURI(path)
}

// withSession runs fn with a session built from the global flags.
func withSession(cmd *cobra.Command, fn func(context.Context, *session) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := newSession(ctx, globalCfg, flagRoot)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s)
}
