package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/lexcodex/cxxrefine/framework/cxx"
	"github.com/sourcegraph/jsonrpc2"
	"go.lsp.dev/protocol"
)

// ProcessLSPConfig defines the configuration for spinning up a language server process.
type ProcessLSPConfig struct {
	Command    string
	Args       []string
	RootDir    string
	LanguageID string
	// HeaderExtensions decides Document.IsHeader for opened files.
	HeaderExtensions []string
	Logger           *log.Logger
}

// ClangdSource is a cxx.SymbolSource backed by a language server speaking
// LSP over stdio. Positions are converted between the server's UTF-16
// columns and the byte columns used by cxx.
type ClangdSource struct {
	cfg    ProcessLSPConfig
	cmd    *exec.Cmd
	conn   *jsonrpc2.Conn
	cancel context.CancelFunc
	logger *log.Logger

	mu     sync.Mutex
	opened map[protocol.DocumentURI]string
}

// NewClangdSource launches the configured language server and performs the LSP handshake.
func NewClangdSource(cfg ProcessLSPConfig) (*ClangdSource, error) {
	if cfg.Command == "" {
		cfg.Command = "clangd"
	}
	root := cfg.RootDir
	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	cfg.RootDir = absRoot

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)
	cmd.Dir = absRoot

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start %s: %w", cfg.Command, err)
	}

	source := newClangdSource(ctx, cancel, cfg, &stdioReadWriteCloser{reader: stdout, writer: stdin})
	source.cmd = cmd
	go source.drain(stderr)

	if err := source.initialize(ctx); err != nil {
		_ = source.Close()
		return nil, err
	}
	return source, nil
}

// newClangdSource wires the JSON-RPC connection without starting a process.
func newClangdSource(ctx context.Context, cancel context.CancelFunc, cfg ProcessLSPConfig, rwc io.ReadWriteCloser) *ClangdSource {
	if cfg.LanguageID == "" {
		cfg.LanguageID = "cpp"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	source := &ClangdSource{
		cfg:    cfg,
		cancel: cancel,
		logger: logger,
		opened: make(map[protocol.DocumentURI]string),
	}
	handler := jsonrpc2.HandlerWithError(func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
		if !req.Notif {
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "method not handled"}
		}
		if req.Method == "window/logMessage" && req.Params != nil {
			var params protocol.LogMessageParams
			if err := json.Unmarshal(*req.Params, &params); err == nil {
				source.logger.Printf("[clangd] %s", params.Message)
			}
		}
		return nil, nil
	})
	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{})
	source.conn = jsonrpc2.NewConn(ctx, stream, handler)
	return source
}

func (c *ClangdSource) drain(r io.Reader) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			for _, line := range strings.Split(strings.TrimSpace(string(buf[:n])), "\n") {
				c.logger.Printf("[clangd] %s", line)
			}
		}
		if err != nil {
			return
		}
	}
}

func (c *ClangdSource) initialize(ctx context.Context) error {
	params := &protocol.InitializeParams{
		ProcessID: int32(os.Getpid()),
		RootURI:   protocol.DocumentURI(cxx.PathToURI(c.cfg.RootDir)),
		ClientInfo: &protocol.ClientInfo{
			Name:    "cxxrefine",
			Version: "0.1",
		},
		Capabilities: protocol.ClientCapabilities{
			TextDocument: &protocol.TextDocumentClientCapabilities{
				Definition: &protocol.DefinitionTextDocumentClientCapabilities{},
				DocumentSymbol: &protocol.DocumentSymbolClientCapabilities{
					HierarchicalDocumentSymbolSupport: true,
				},
			},
		},
	}
	var result protocol.InitializeResult
	if err := c.conn.Call(ctx, "initialize", params, &result); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	return c.conn.Notify(ctx, "initialized", &protocol.InitializedParams{})
}

// Close terminates the underlying process and JSON-RPC connection.
func (c *ClangdSource) Close() error {
	if c == nil {
		return nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
	if c.cmd != nil && c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
		_, _ = c.cmd.Process.Wait()
	}
	return nil
}

// sync makes the server see the current text of doc. Changed documents are
// closed and reopened rather than patched.
func (c *ClangdSource) sync(ctx context.Context, doc cxx.Document) error {
	uri := protocol.DocumentURI(doc.URI())
	text := doc.Text()
	c.mu.Lock()
	previous, open := c.opened[uri]
	if open && previous == text {
		c.mu.Unlock()
		return nil
	}
	c.opened[uri] = text
	c.mu.Unlock()

	if open {
		closeParams := protocol.DidCloseTextDocumentParams{TextDocument: protocol.TextDocumentIdentifier{URI: uri}}
		if err := c.conn.Notify(ctx, "textDocument/didClose", closeParams); err != nil {
			return err
		}
	}
	params := protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        uri,
			LanguageID: protocol.LanguageIdentifier(c.cfg.LanguageID),
			Version:    1,
			Text:       text,
		},
	}
	return c.conn.Notify(ctx, "textDocument/didOpen", params)
}

// DocumentSymbols requests textDocument/documentSymbol. Flat SymbolInformation
// replies are nested by range containment.
func (c *ClangdSource) DocumentSymbols(ctx context.Context, doc cxx.Document) ([]*cxx.SourceSymbol, error) {
	if err := c.sync(ctx, doc); err != nil {
		return nil, err
	}
	params := protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(doc.URI())},
	}
	var raw json.RawMessage
	if err := c.conn.Call(ctx, "textDocument/documentSymbol", params, &raw); err != nil {
		return nil, fmt.Errorf("documentSymbol %s: %w", doc.URI(), err)
	}
	if isNull(raw) {
		return nil, nil
	}
	var probe []struct {
		Location *json.RawMessage `json:"location"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, errors.New("document symbol response not understood")
	}
	if len(probe) > 0 && probe[0].Location != nil {
		var infos []protocol.SymbolInformation
		if err := json.Unmarshal(raw, &infos); err != nil {
			return nil, err
		}
		return nestSymbols(doc, infos), nil
	}
	var docSymbols []protocol.DocumentSymbol
	if err := json.Unmarshal(raw, &docSymbols); err != nil {
		return nil, err
	}
	return convertDocumentSymbols(doc, docSymbols), nil
}

// FindDefinition requests textDocument/definition at pos. Location,
// Location[] and LocationLink[] replies are accepted.
func (c *ClangdSource) FindDefinition(ctx context.Context, doc cxx.Document, pos cxx.Position) (*cxx.Location, error) {
	if err := c.sync(ctx, doc); err != nil {
		return nil, err
	}
	params := protocol.DefinitionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(doc.URI())},
			Position:     toLSPPosition(doc, pos),
		},
	}
	var raw json.RawMessage
	if err := c.conn.Call(ctx, "textDocument/definition", params, &raw); err != nil {
		return nil, fmt.Errorf("definition %s: %w", doc.URI(), err)
	}
	if isNull(raw) {
		return nil, nil
	}
	var target protocol.Location
	switch strings.TrimSpace(string(raw))[0] {
	case '{':
		if err := json.Unmarshal(raw, &target); err != nil {
			return nil, err
		}
	case '[':
		var links []protocol.LocationLink
		if err := json.Unmarshal(raw, &links); err == nil && len(links) > 0 && links[0].TargetURI != "" {
			target = protocol.Location{URI: links[0].TargetURI, Range: links[0].TargetSelectionRange}
			break
		}
		var locations []protocol.Location
		if err := json.Unmarshal(raw, &locations); err != nil {
			return nil, err
		}
		if len(locations) == 0 {
			return nil, nil
		}
		target = locations[0]
	default:
		return nil, errors.New("definition response not understood")
	}

	targetDoc := c.knownDocument(string(target.URI))
	if targetDoc == nil {
		opened, err := c.Open(ctx, string(target.URI))
		if err != nil {
			c.logger.Printf("[clangd] definition target %s unreadable: %v", target.URI, err)
			return &cxx.Location{URI: string(target.URI), Range: rawRange(target.Range)}, nil
		}
		targetDoc = opened
	}
	return &cxx.Location{URI: string(target.URI), Range: fromLSPRange(targetDoc, target.Range)}, nil
}

// Open reads the file behind uri from disk. A document that is gone from
// disk but still open in the server is served from the synced text.
func (c *ClangdSource) Open(ctx context.Context, uri string) (cxx.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(cxx.URIToPath(uri))
	if err != nil {
		if doc := c.knownDocument(uri); doc != nil {
			return doc, nil
		}
		return nil, err
	}
	return cxx.NewTextDocument(uri, string(data), c.cfg.HeaderExtensions), nil
}

func (c *ClangdSource) knownDocument(uri string) cxx.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	text, ok := c.opened[protocol.DocumentURI(uri)]
	if !ok {
		return nil
	}
	return cxx.NewTextDocument(uri, text, c.cfg.HeaderExtensions)
}

func isNull(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}

func convertDocumentSymbols(doc cxx.Document, symbols []protocol.DocumentSymbol) []*cxx.SourceSymbol {
	result := make([]*cxx.SourceSymbol, 0, len(symbols))
	for _, sym := range symbols {
		result = append(result, &cxx.SourceSymbol{
			Name:           sym.Name,
			Detail:         sym.Detail,
			Kind:           kindFromLSP(sym.Kind),
			Range:          fromLSPRange(doc, sym.Range),
			SelectionRange: fromLSPRange(doc, sym.SelectionRange),
			Children:       convertDocumentSymbols(doc, sym.Children),
		})
	}
	return result
}

// nestSymbols turns a flat SymbolInformation list into a forest. A symbol
// becomes the child of the innermost preceding symbol that contains it.
func nestSymbols(doc cxx.Document, infos []protocol.SymbolInformation) []*cxx.SourceSymbol {
	flat := make([]*cxx.SourceSymbol, 0, len(infos))
	for _, info := range infos {
		if info.Location.URI != "" && string(info.Location.URI) != doc.URI() {
			continue
		}
		rng := fromLSPRange(doc, info.Location.Range)
		flat = append(flat, &cxx.SourceSymbol{
			Name:           info.Name,
			Kind:           kindFromLSP(info.Kind),
			Range:          rng,
			SelectionRange: selectionFor(doc, rng, info.Name),
		})
	}
	sort.SliceStable(flat, func(i, j int) bool {
		if flat[i].Range.Start != flat[j].Range.Start {
			return flat[i].Range.Start.Before(flat[j].Range.Start)
		}
		return flat[j].Range.End.Before(flat[i].Range.End)
	})

	var roots []*cxx.SourceSymbol
	var stack []*cxx.SourceSymbol
	for _, sym := range flat {
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			if top.Range.Contains(sym.Range.Start) && top.Range.Contains(sym.Range.End) {
				break
			}
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, sym)
		} else {
			top := stack[len(stack)-1]
			top.Children = append(top.Children, sym)
		}
		stack = append(stack, sym)
	}
	return roots
}

// selectionFor locates the last occurrence of the unqualified name inside rng.
func selectionFor(doc cxx.Document, rng cxx.Range, name string) cxx.Range {
	if idx := strings.LastIndex(name, "::"); idx >= 0 {
		name = name[idx+2:]
	}
	start := doc.OffsetAt(rng.Start)
	text := doc.GetText(rng)
	if idx := strings.Index(text, name+"("); idx >= 0 && name != "" {
		return cxx.Range{Start: doc.PositionAt(start + idx), End: doc.PositionAt(start + idx + len(name))}
	}
	if idx := strings.LastIndex(text, name); idx >= 0 && name != "" {
		return cxx.Range{Start: doc.PositionAt(start + idx), End: doc.PositionAt(start + idx + len(name))}
	}
	return cxx.Range{Start: rng.Start, End: rng.Start}
}

func kindFromLSP(kind protocol.SymbolKind) cxx.Kind {
	switch kind {
	case protocol.SymbolKindFile:
		return cxx.KindFile
	case protocol.SymbolKindModule:
		return cxx.KindModule
	case protocol.SymbolKindNamespace:
		return cxx.KindNamespace
	case protocol.SymbolKindPackage:
		return cxx.KindPackage
	case protocol.SymbolKindClass:
		return cxx.KindClass
	case protocol.SymbolKindMethod:
		return cxx.KindMethod
	case protocol.SymbolKindProperty:
		return cxx.KindProperty
	case protocol.SymbolKindField:
		return cxx.KindField
	case protocol.SymbolKindConstructor:
		return cxx.KindConstructor
	case protocol.SymbolKindEnum:
		return cxx.KindEnum
	case protocol.SymbolKindInterface:
		return cxx.KindInterface
	case protocol.SymbolKindFunction:
		return cxx.KindFunction
	case protocol.SymbolKindVariable:
		return cxx.KindVariable
	case protocol.SymbolKindConstant:
		return cxx.KindConstant
	case protocol.SymbolKindEnumMember:
		return cxx.KindEnumMember
	case protocol.SymbolKindStruct:
		return cxx.KindStruct
	case protocol.SymbolKindOperator:
		return cxx.KindOperator
	case protocol.SymbolKindTypeParameter:
		return cxx.KindTypeParameter
	}
	return cxx.KindUnknown
}

func fromLSPRange(doc cxx.Document, r protocol.Range) cxx.Range {
	return cxx.Range{Start: fromLSPPosition(doc, r.Start), End: fromLSPPosition(doc, r.End)}
}

func rawRange(r protocol.Range) cxx.Range {
	return cxx.Range{
		Start: cxx.Position{Line: int(r.Start.Line), Character: int(r.Start.Character)},
		End:   cxx.Position{Line: int(r.End.Line), Character: int(r.End.Character)},
	}
}

// fromLSPPosition converts a UTF-16 column to a byte column.
func fromLSPPosition(doc cxx.Document, p protocol.Position) cxx.Position {
	line := int(p.Line)
	if line >= doc.LineCount() {
		return doc.PositionAt(len(doc.Text()))
	}
	text := doc.LineAt(line).Text
	units := int(p.Character)
	offset := 0
	for offset < len(text) && units > 0 {
		r, size := utf8.DecodeRuneInString(text[offset:])
		offset += size
		if r >= 0x10000 {
			units -= 2
		} else {
			units--
		}
	}
	return cxx.Position{Line: line, Character: offset}
}

// toLSPPosition converts a byte column to a UTF-16 column.
func toLSPPosition(doc cxx.Document, p cxx.Position) protocol.Position {
	text := doc.LineAt(p.Line).Text
	column := p.Character
	if column > len(text) {
		column = len(text)
	}
	units := 0
	for _, r := range text[:column] {
		if r >= 0x10000 {
			units += 2
		} else {
			units++
		}
	}
	return protocol.Position{Line: uint32(p.Line), Character: uint32(units)}
}

type stdioReadWriteCloser struct {
	reader io.ReadCloser
	writer io.WriteCloser
}

func (s *stdioReadWriteCloser) Read(p []byte) (int, error)  { return s.reader.Read(p) }
func (s *stdioReadWriteCloser) Write(p []byte) (int, error) { return s.writer.Write(p) }
func (s *stdioReadWriteCloser) Close() error {
	_ = s.reader.Close()
	return s.writer.Close()
}
