package refactor

import (
	"errors"
	"fmt"
	"sort"

	"github.com/lexcodex/cxxrefine/framework/cxx"
)

// ErrOverlappingEdits is returned by Apply when two edits touch the same text.
var ErrOverlappingEdits = errors.New("overlapping edits")

// TextEdit replaces Span of the document at URI with NewText. Insertions have
// an empty span. Range mirrors Span in line/character form.
type TextEdit struct {
	URI     string    `json:"uri" yaml:"uri"`
	Range   cxx.Range `json:"range" yaml:"range"`
	Span    cxx.Span  `json:"span" yaml:"span"`
	NewText string    `json:"new_text" yaml:"new_text"`
}

func (e TextEdit) IsInsert() bool { return e.Span.Len() == 0 }

func insertAt(doc cxx.Document, offset int, text string) TextEdit {
	return replaceSpan(doc, cxx.Span{Start: offset, End: offset}, text)
}

func replaceSpan(doc cxx.Document, span cxx.Span, text string) TextEdit {
	return TextEdit{
		URI:     doc.URI(),
		Range:   cxx.Range{Start: doc.PositionAt(span.Start), End: doc.PositionAt(span.End)},
		Span:    span,
		NewText: text,
	}
}

// URIs lists the documents edits touch, in first-seen order.
func URIs(edits []TextEdit) []string {
	seen := make(map[string]bool)
	var uris []string
	for _, e := range edits {
		if !seen[e.URI] {
			seen[e.URI] = true
			uris = append(uris, e.URI)
		}
	}
	return uris
}

// Apply applies the edits addressed to uri to text. Insertions at the same
// offset keep their relative order.
func Apply(text, uri string, edits []TextEdit) (string, error) {
	var mine []TextEdit
	for i := len(edits) - 1; i >= 0; i-- {
		if edits[i].URI == uri {
			mine = append(mine, edits[i])
		}
	}
	sort.SliceStable(mine, func(i, j int) bool { return mine[i].Span.Start > mine[j].Span.Start })
	for i, e := range mine {
		if e.Span.Start < 0 || e.Span.End < e.Span.Start || e.Span.End > len(text) {
			return "", fmt.Errorf("edit %d-%d outside of %s", e.Span.Start, e.Span.End, uri)
		}
		if i > 0 && e.Span.End > mine[i-1].Span.Start {
			return "", fmt.Errorf("%w in %s at %d", ErrOverlappingEdits, uri, e.Span.Start)
		}
	}
	for _, e := range mine {
		text = text[:e.Span.Start] + e.NewText + text[e.Span.End:]
	}
	return text, nil
}
