package tools

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/lexcodex/cxxrefine/framework/cxx"
	"github.com/sourcegraph/jsonrpc2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
)

const (
	timeout = 2 * time.Second
	tick    = 10 * time.Millisecond
)

const nestedHeader = "namespace N {\nclass C {\n    void bar();\n};\n}\n"

type fakeLanguageServer struct {
	mu            sync.Mutex
	notifications []string
	symbols       string
	definition    string
}

func (s *fakeLanguageServer) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if req.Notif {
		s.notifications = append(s.notifications, req.Method)
		return nil, nil
	}
	switch req.Method {
	case "initialize":
		return map[string]interface{}{"capabilities": map[string]interface{}{}}, nil
	case "textDocument/documentSymbol":
		return json.RawMessage(s.symbols), nil
	case "textDocument/definition":
		return json.RawMessage(s.definition), nil
	}
	return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: req.Method}
}

func (s *fakeLanguageServer) seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.notifications...)
}

func startFakeLanguageServer(t *testing.T, server *fakeLanguageServer) *ClangdSource {
	t.Helper()
	clientSide, serverSide := net.Pipe()
	serverConn := jsonrpc2.NewConn(context.Background(),
		jsonrpc2.NewBufferedStream(serverSide, jsonrpc2.VSCodeObjectCodec{}),
		jsonrpc2.HandlerWithError(server.handle))

	ctx, cancel := context.WithCancel(context.Background())
	source := newClangdSource(ctx, cancel, ProcessLSPConfig{}, clientSide)
	require.NoError(t, source.initialize(ctx))
	t.Cleanup(func() {
		_ = source.Close()
		_ = serverConn.Close()
	})
	return source
}

func TestClangdSourceHandshake(t *testing.T) {
	server := &fakeLanguageServer{}
	startFakeLanguageServer(t, server)
	assert.Eventually(t, func() bool {
		seen := server.seen()
		return len(seen) == 1 && seen[0] == "initialized"
	}, timeout, tick)
}

func TestClangdSourceHierarchicalSymbols(t *testing.T) {
	server := &fakeLanguageServer{symbols: `[{
		"name": "N", "kind": 3,
		"range": {"start": {"line": 0, "character": 0}, "end": {"line": 4, "character": 1}},
		"selectionRange": {"start": {"line": 0, "character": 10}, "end": {"line": 0, "character": 11}},
		"children": [{
			"name": "C", "kind": 5,
			"range": {"start": {"line": 1, "character": 0}, "end": {"line": 3, "character": 1}},
			"selectionRange": {"start": {"line": 1, "character": 6}, "end": {"line": 1, "character": 7}},
			"children": [{
				"name": "bar", "detail": "void ()", "kind": 6,
				"range": {"start": {"line": 2, "character": 4}, "end": {"line": 2, "character": 14}},
				"selectionRange": {"start": {"line": 2, "character": 9}, "end": {"line": 2, "character": 12}}
			}]
		}]
	}]`}
	source := startFakeLanguageServer(t, server)
	doc := cxx.NewTextDocument("file:///work/n.h", nestedHeader, nil)

	symbols, err := source.DocumentSymbols(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, symbols, 1)
	ns := symbols[0]
	assert.Equal(t, cxx.KindNamespace, ns.Kind)
	require.Len(t, ns.Children, 1)
	class := ns.Children[0]
	assert.Equal(t, cxx.KindClass, class.Kind)
	require.Len(t, class.Children, 1)
	bar := class.Children[0]
	assert.Equal(t, cxx.KindMethod, bar.Kind)
	assert.Equal(t, "void ()", bar.Detail)
	assert.Equal(t, "bar", doc.GetText(bar.SelectionRange))
	assert.Equal(t, "void bar()", doc.GetText(bar.Range))
	assert.Equal(t, []string{"initialized", "textDocument/didOpen"}, server.seen())

	_, err = source.DocumentSymbols(context.Background(), doc)
	require.NoError(t, err)
	assert.Len(t, server.seen(), 2, "unchanged text is not reopened")

	changed := cxx.NewTextDocument("file:///work/n.h", nestedHeader+"\n", nil)
	_, err = source.DocumentSymbols(context.Background(), changed)
	require.NoError(t, err)
	assert.Equal(t, []string{"initialized", "textDocument/didOpen", "textDocument/didClose", "textDocument/didOpen"}, server.seen())
}

func TestClangdSourceFlatSymbolsAreNested(t *testing.T) {
	server := &fakeLanguageServer{symbols: `[
		{"name": "bar", "kind": 6, "location": {"uri": "file:///work/n.h",
			"range": {"start": {"line": 2, "character": 4}, "end": {"line": 2, "character": 14}}}},
		{"name": "N", "kind": 3, "location": {"uri": "file:///work/n.h",
			"range": {"start": {"line": 0, "character": 0}, "end": {"line": 4, "character": 1}}}},
		{"name": "N::C", "kind": 5, "location": {"uri": "file:///work/n.h",
			"range": {"start": {"line": 1, "character": 0}, "end": {"line": 3, "character": 1}}}}
	]`}
	source := startFakeLanguageServer(t, server)
	doc := cxx.NewTextDocument("file:///work/n.h", nestedHeader, nil)

	symbols, err := source.DocumentSymbols(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, symbols, 1)
	assert.Equal(t, "N", symbols[0].Name)
	require.Len(t, symbols[0].Children, 1)
	class := symbols[0].Children[0]
	assert.Equal(t, "C", doc.GetText(class.SelectionRange))
	require.Len(t, class.Children, 1)
	assert.Equal(t, "bar", doc.GetText(class.Children[0].SelectionRange))
}

func TestClangdSourceFindDefinition(t *testing.T) {
	doc := cxx.NewTextDocument("file:///work/n.h", nestedHeader, nil)
	tests := []struct {
		name  string
		reply string
		want  *cxx.Location
	}{
		{"null", `null`, nil},
		{"empty", `[]`, nil},
		{"location", `{"uri": "file:///work/n.h", "range": {"start": {"line": 1, "character": 6}, "end": {"line": 1, "character": 7}}}`,
			&cxx.Location{URI: "file:///work/n.h", Range: cxx.Range{Start: cxx.Position{Line: 1, Character: 6}, End: cxx.Position{Line: 1, Character: 7}}}},
		{"locations", `[{"uri": "file:///work/n.h", "range": {"start": {"line": 2, "character": 9}, "end": {"line": 2, "character": 12}}}]`,
			&cxx.Location{URI: "file:///work/n.h", Range: cxx.Range{Start: cxx.Position{Line: 2, Character: 9}, End: cxx.Position{Line: 2, Character: 12}}}},
		{"links", `[{"targetUri": "file:///work/n.h",
			"targetRange": {"start": {"line": 1, "character": 0}, "end": {"line": 3, "character": 1}},
			"targetSelectionRange": {"start": {"line": 1, "character": 6}, "end": {"line": 1, "character": 7}}}]`,
			&cxx.Location{URI: "file:///work/n.h", Range: cxx.Range{Start: cxx.Position{Line: 1, Character: 6}, End: cxx.Position{Line: 1, Character: 7}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := startFakeLanguageServer(t, &fakeLanguageServer{definition: tt.reply})
			got, err := source.FindDefinition(context.Background(), doc, cxx.Position{Line: 2, Character: 10})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUTF16ColumnConversion(t *testing.T) {
	doc := cxx.NewTextDocument("file:///work/s.cpp", "auto s = \"é😀\"; int x;\n", nil)

	pos := fromLSPPosition(doc, protocol.Position{Line: 0, Character: 20})
	assert.Equal(t, cxx.Position{Line: 0, Character: 23}, pos)
	assert.Equal(t, "x", doc.Text()[23:24])
	assert.Equal(t, protocol.Position{Line: 0, Character: 20}, toLSPPosition(doc, pos))

	end := fromLSPPosition(doc, protocol.Position{Line: 9, Character: 0})
	assert.Equal(t, doc.PositionAt(len(doc.Text())), end)
}

func TestKindFromLSP(t *testing.T) {
	assert.Equal(t, cxx.KindStruct, kindFromLSP(protocol.SymbolKindStruct))
	assert.Equal(t, cxx.KindConstructor, kindFromLSP(protocol.SymbolKindConstructor))
	assert.Equal(t, cxx.KindTypeParameter, kindFromLSP(protocol.SymbolKindTypeParameter))
	assert.Equal(t, cxx.KindUnknown, kindFromLSP(protocol.SymbolKindEvent))
}
