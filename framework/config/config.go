package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lexcodex/cxxrefine/framework/cxx"
	"gopkg.in/yaml.v3"
)

// FileName is the workspace-local configuration file.
const FileName = ".cxxrefine.yaml"

const (
	DefaultCacheTTL          = 30 * time.Second
	DefaultHeaderGuardFormat = "${FILE_NAME}_${EXT}"
	DefaultIndentation       = "    "
)

var (
	DefaultHeaderExtensions = []string{"h", "hpp", "hh", "hxx"}
	DefaultSourceExtensions = []string{"c", "cpp", "cc", "cxx"}
)

// Config matches .cxxrefine.yaml in the workspace root.
type Config struct {
	Version            string            `yaml:"version"`
	ResolveTypes       bool              `yaml:"resolve_types"`
	AlwaysMoveComments bool              `yaml:"always_move_comments"`
	ResolveDepth       int               `yaml:"resolve_depth"`
	Extensions         ExtensionConfig   `yaml:"extensions"`
	Folders            FolderConfig      `yaml:"folders"`
	Format             FormatConfig      `yaml:"format"`
	HeaderGuard        HeaderGuardConfig `yaml:"header_guard"`
	LSP                LSPConfig         `yaml:"lsp"`
	Cache              CacheConfig       `yaml:"cache"`
	Logging            LoggingConfig     `yaml:"logging"`
}

// ExtensionConfig lists file extensions without the leading dot.
type ExtensionConfig struct {
	Headers []string `yaml:"headers"`
	Sources []string `yaml:"sources"`
}

// FolderConfig holds glob patterns for directories that contain headers and
// sources, e.g. "include/**" and "src/**".
type FolderConfig struct {
	Headers []string `yaml:"headers"`
	Sources []string `yaml:"sources"`
}

// FormatConfig controls the layout of generated code.
type FormatConfig struct {
	FunctionBraces       BraceFormat          `yaml:"function_braces"`
	NamespaceBraces      BraceFormat          `yaml:"namespace_braces"`
	NamespaceIndentation NamespaceIndentation `yaml:"namespace_indentation"`
	GenerateNamespaces   bool                 `yaml:"generate_namespaces"`
	Indentation          string               `yaml:"indentation"`
}

// HeaderGuardConfig controls add-header-guard.
type HeaderGuardConfig struct {
	Style        HeaderGuardStyle `yaml:"style"`
	DefineFormat string           `yaml:"define_format"`
}

// LSPConfig describes how to launch the language server.
type LSPConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// CacheConfig configures the symbol cache. An empty Path keeps it in memory.
type CacheConfig struct {
	TTL  time.Duration `yaml:"ttl"`
	Path string        `yaml:"path"`
}

// LoggingConfig describes log output.
type LoggingConfig struct {
	Verbose bool   `yaml:"verbose"`
	File    string `yaml:"file"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Version:            "1.0.0",
		AlwaysMoveComments: true,
		ResolveDepth:       cxx.DefaultResolveDepth,
		Extensions: ExtensionConfig{
			Headers: append([]string(nil), DefaultHeaderExtensions...),
			Sources: append([]string(nil), DefaultSourceExtensions...),
		},
		Format: FormatConfig{
			FunctionBraces:       BraceNewLine,
			NamespaceBraces:      BraceAuto,
			NamespaceIndentation: IndentAuto,
			GenerateNamespaces:   true,
			Indentation:          DefaultIndentation,
		},
		HeaderGuard: HeaderGuardConfig{
			Style:        GuardDefine,
			DefineFormat: DefaultHeaderGuardFormat,
		},
		LSP:   LSPConfig{Command: "clangd", Args: []string{"--background-index=false"}},
		Cache: CacheConfig{TTL: DefaultCacheTTL},
	}
}

// DefaultPath returns .cxxrefine.yaml within the workspace.
func DefaultPath(root string) string {
	if root == "" {
		root = "."
	}
	return filepath.Join(root, FileName)
}

// Load reads the config or returns defaults when missing. Keys absent from the
// file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.normalize()
	return cfg, nil
}

// Save writes the config to disk.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config missing")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) normalize() {
	def := Default()
	if len(c.Extensions.Headers) == 0 {
		c.Extensions.Headers = def.Extensions.Headers
	}
	if len(c.Extensions.Sources) == 0 {
		c.Extensions.Sources = def.Extensions.Sources
	}
	if len(c.Folders.Headers) == 0 {
		c.Folders.Headers = nil
	}
	if len(c.Folders.Sources) == 0 {
		c.Folders.Sources = nil
	}
	for i, ext := range c.Extensions.Headers {
		c.Extensions.Headers[i] = strings.TrimPrefix(ext, ".")
	}
	for i, ext := range c.Extensions.Sources {
		c.Extensions.Sources[i] = strings.TrimPrefix(ext, ".")
	}
	if c.ResolveDepth <= 0 {
		c.ResolveDepth = def.ResolveDepth
	}
	if c.Format.Indentation == "" {
		c.Format.Indentation = def.Format.Indentation
	}
	if c.HeaderGuard.DefineFormat == "" {
		c.HeaderGuard.DefineFormat = def.HeaderGuard.DefineFormat
	}
	if c.LSP.Command == "" {
		c.LSP = def.LSP
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = def.Cache.TTL
	}
}

// AnalyzerOptions returns the snapshot the cxx analyzer reads.
func (c *Config) AnalyzerOptions() cxx.Options {
	return cxx.Options{
		ResolveTypes:       c.ResolveTypes,
		AlwaysMoveComments: c.AlwaysMoveComments,
		ResolveDepth:       c.ResolveDepth,
	}
}

// IsHeader reports whether path has one of the configured header extensions.
func (c *Config) IsHeader(path string) bool {
	return hasExtension(path, c.Extensions.Headers)
}

// IsSource reports whether path has one of the configured source extensions.
func (c *Config) IsSource(path string) bool {
	return hasExtension(path, c.Extensions.Sources)
}

func hasExtension(path string, exts []string) bool {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return false
	}
	for _, candidate := range exts {
		if strings.EqualFold(candidate, ext) {
			return true
		}
	}
	return false
}

// Get returns the YAML rendering of the value at a dotted key such as
// "format.function_braces".
func (c *Config) Get(key string) (string, error) {
	var root yaml.Node
	if err := root.Encode(c); err != nil {
		return "", err
	}
	node, err := lookup(&root, key)
	if err != nil {
		return "", err
	}
	out, err := yaml.Marshal(node)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// Set parses value as YAML and stores it at a dotted key. The config is left
// unchanged when the value does not fit the key.
func (c *Config) Set(key, value string) error {
	var root yaml.Node
	if err := root.Encode(c); err != nil {
		return err
	}
	node, err := lookup(&root, key)
	if err != nil {
		return err
	}
	var parsed yaml.Node
	if err := yaml.Unmarshal([]byte(value), &parsed); err != nil {
		return fmt.Errorf("config: set %s: %w", key, err)
	}
	replacement := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: ""}
	if parsed.Kind == yaml.DocumentNode && len(parsed.Content) > 0 {
		replacement = parsed.Content[0]
	}
	*node = *replacement
	next := Default()
	if err := root.Decode(next); err != nil {
		return fmt.Errorf("config: set %s: %w", key, err)
	}
	next.normalize()
	*c = *next
	return nil
}

func lookup(root *yaml.Node, key string) (*yaml.Node, error) {
	node := root
	for _, part := range strings.Split(key, ".") {
		if node.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("config: %s: %q is not a section", key, part)
		}
		var next *yaml.Node
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == part {
				next = node.Content[i+1]
				break
			}
		}
		if next == nil {
			return nil, fmt.Errorf("config: unknown key %q", key)
		}
		node = next
	}
	return node, nil
}
