package tools

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log"
	"sync"
	"time"

	"github.com/lexcodex/cxxrefine/framework/cxx"
)

// SymbolStore persists symbol trees between runs.
type SymbolStore interface {
	LoadSymbols(ctx context.Context, uri, contentHash string) ([]*cxx.SourceSymbol, bool, error)
	SaveSymbols(ctx context.Context, uri, contentHash, source string, symbols []*cxx.SourceSymbol) error
	DeleteSymbols(ctx context.Context, uri string) error
}

// Proxy caches the symbol trees of another SymbolSource. Entries are keyed by
// URI and checked against a hash of the document text, so an edited document
// is never served a stale tree even before its TTL runs out.
type Proxy struct {
	source cxx.SymbolSource
	name   string
	store  SymbolStore
	logger *log.Logger
	ttl    time.Duration
	now    func() time.Time

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	hash       string
	symbols    []*cxx.SourceSymbol
	expiration time.Time
}

// ProxyOption configures a Proxy.
type ProxyOption func(*Proxy)

// WithStore adds a persistent layer behind the in-memory cache. name tags the
// rows written so trees from different sources are kept apart.
func WithStore(store SymbolStore, name string) ProxyOption {
	return func(p *Proxy) {
		p.store = store
		p.name = name
	}
}

func WithLogger(logger *log.Logger) ProxyOption {
	return func(p *Proxy) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProxy creates a proxy instance.
func NewProxy(source cxx.SymbolSource, ttl time.Duration, opts ...ProxyOption) *Proxy {
	if ttl == 0 {
		ttl = time.Minute
	}
	p := &Proxy{
		source: source,
		name:   "default",
		logger: log.New(io.Discard, "", 0),
		ttl:    ttl,
		now:    time.Now,
		cache:  make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ContentHash identifies a document version.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func (p *Proxy) DocumentSymbols(ctx context.Context, doc cxx.Document) ([]*cxx.SourceSymbol, error) {
	uri := doc.URI()
	hash := ContentHash(doc.Text())

	p.mu.RLock()
	entry, ok := p.cache[uri]
	p.mu.RUnlock()
	if ok && entry.hash == hash && p.now().Before(entry.expiration) {
		return cloneSymbols(entry.symbols), nil
	}

	if p.store != nil {
		symbols, found, err := p.store.LoadSymbols(ctx, uri, hash)
		if err != nil {
			p.logger.Printf("[cache] load %s: %v", uri, err)
		} else if found {
			p.remember(uri, hash, symbols)
			return cloneSymbols(symbols), nil
		}
	}

	symbols, err := p.source.DocumentSymbols(ctx, doc)
	if err != nil {
		return nil, err
	}
	p.remember(uri, hash, symbols)
	if p.store != nil {
		if err := p.store.SaveSymbols(ctx, uri, hash, p.name, symbols); err != nil {
			p.logger.Printf("[cache] save %s: %v", uri, err)
		}
	}
	return cloneSymbols(symbols), nil
}

func (p *Proxy) remember(uri, hash string, symbols []*cxx.SourceSymbol) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache[uri] = cacheEntry{
		hash:       hash,
		symbols:    cloneSymbols(symbols),
		expiration: p.now().Add(p.ttl),
	}
}

func (p *Proxy) FindDefinition(ctx context.Context, doc cxx.Document, pos cxx.Position) (*cxx.Location, error) {
	return p.source.FindDefinition(ctx, doc, pos)
}

func (p *Proxy) Open(ctx context.Context, uri string) (cxx.Document, error) {
	return p.source.Open(ctx, uri)
}

// Invalidate drops everything cached for uri, in memory and in the store.
func (p *Proxy) Invalidate(ctx context.Context, uri string) {
	p.mu.Lock()
	delete(p.cache, uri)
	p.mu.Unlock()
	if f, ok := p.source.(interface{ Forget(uri string) }); ok {
		f.Forget(uri)
	}
	if p.store != nil {
		if err := p.store.DeleteSymbols(ctx, uri); err != nil {
			p.logger.Printf("[cache] delete %s: %v", uri, err)
			return
		}
	}
	p.logger.Printf("[cache] invalidated %s", uri)
}

// Close closes the wrapped source when it holds resources.
func (p *Proxy) Close() error {
	if closer, ok := p.source.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// cloneSymbols deep-copies a forest without parent links.
func cloneSymbols(symbols []*cxx.SourceSymbol) []*cxx.SourceSymbol {
	if symbols == nil {
		return nil
	}
	out := make([]*cxx.SourceSymbol, len(symbols))
	for i, sym := range symbols {
		clone := *sym
		clone.Parent = nil
		clone.Children = cloneSymbols(sym.Children)
		out[i] = &clone
	}
	return out
}
