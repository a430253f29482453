package cxx

import (
	"regexp"
	"strings"

	"github.com/lexcodex/cxxrefine/framework/mask"
)

var (
	reAccessSpecifier     = regexp.MustCompile(`\b[A-Za-z_]\w*\s*:`)
	reInheritanceKeywords = regexp.MustCompile(`\b(public|protected|private|virtual|final)\b`)
	reBaseClass           = regexp.MustCompile(`\b[A-Za-z_]\w*(\s*::\s*[A-Za-z_]\w*)*\b(\s*<\s*>)?`)
	reIdentifier          = regexp.MustCompile(`[A-Za-z_]\w*`)

	accessPatterns = map[AccessLevel]*regexp.Regexp{
		AccessPublic:    regexp.MustCompile(`\bpublic\b`),
		AccessProtected: regexp.MustCompile(`\bprotected\b`),
		AccessPrivate:   regexp.MustCompile(`\bprivate\b`),
	}
)

// AccessSpecifiers returns the "label:" tokens found directly in the body of a
// class or struct, in document order.
func (s *Symbol) AccessSpecifiers() []SubSymbol {
	return s.accessSpecs.get(func() []SubSymbol {
		if !s.IsClassOrStruct() {
			return nil
		}
		bodyStart, bodyEnd := s.BodyStart()-s.start, s.BodyEnd()-s.start
		if bodyEnd <= bodyStart {
			return nil
		}
		b := []byte(s.ParsableText())
		for _, child := range s.Children() {
			from := clamp(child.TrueStart()-s.start, 0, len(b))
			to := clamp(child.end-s.start, from, len(b))
			blank(b, from, to)
		}
		body := mask.Parentheses(string(b))[bodyStart:bodyEnd]
		var specifiers []SubSymbol
		for _, loc := range reAccessSpecifier.FindAllStringIndex(body, -1) {
			if loc[1] < len(body) && body[loc[1]] == ':' {
				continue
			}
			if loc[0] > 0 && body[loc[0]-1] == ':' {
				continue
			}
			span := Span{Start: s.start + bodyStart + loc[0], End: s.start + bodyStart + loc[1]}
			specifiers = append(specifiers, newSubSymbol(s.doc, span))
		}
		return specifiers
	})
}

// RangesOfAccess returns the body regions governed by level. A class starts out
// private and a struct public until the first access specifier.
func (s *Symbol) RangesOfAccess(level AccessLevel) []Span {
	if !s.IsClassOrStruct() {
		return nil
	}
	var ranges []Span
	start := -1
	implicit := false
	if def, ok := s.Kind().DefaultAccess(); ok && def == level {
		start = s.BodyStart()
		implicit = true
	}
	flush := func(end int) {
		span := Span{Start: start, End: end}
		if !implicit || strings.TrimSpace(mask.Parsable(s.doc.Text()[span.Start:span.End])) != "" {
			ranges = append(ranges, span)
		}
		start, implicit = -1, false
	}
	pattern := accessPatterns[level]
	for _, spec := range s.AccessSpecifiers() {
		if pattern.MatchString(spec.Text()) {
			if start < 0 {
				start = spec.Span.End
			}
			continue
		}
		if start >= 0 {
			flush(spec.Span.Start)
		}
	}
	if start >= 0 {
		flush(s.BodyEnd())
	}
	return ranges
}

// PositionHasAccess reports whether offset falls in a region governed by level.
func (s *Symbol) PositionHasAccess(offset int, level AccessLevel) bool {
	for _, r := range s.RangesOfAccess(level) {
		if r.Start <= offset && offset <= r.End {
			return true
		}
	}
	return false
}

// BaseClasses returns the clauses after the ':' of a class head. The selection
// of each clause is the base class identifier without its qualifiers.
func (s *Symbol) BaseClasses() []SubSymbol {
	return s.baseClasses.get(func() []SubSymbol {
		if !s.IsClassOrStruct() {
			return nil
		}
		from, to := s.selEnd, s.DeclarationEnd()
		if to <= from {
			return nil
		}
		masked := mask.AngleBrackets(mask.Parsable(s.doc.Text()[from:to]))
		masked = reInheritanceKeywords.ReplaceAllStringFunc(masked, func(m string) string {
			return strings.Repeat(" ", len(m))
		})
		colon := strings.IndexByte(masked, ':')
		if colon < 0 {
			return nil
		}
		offset := from + colon + 1
		var bases []SubSymbol
		for _, loc := range reBaseClass.FindAllStringIndex(masked[colon+1:], -1) {
			clause := masked[colon+1+loc[0] : colon+1+loc[1]]
			base := newSubSymbol(s.doc, Span{Start: offset + loc[0], End: offset + loc[1]})
			if sel, ok := unqualifiedIdentifier(clause); ok {
				base.Selection = Span{Start: base.Span.Start + sel.Start, End: base.Span.Start + sel.End}
			}
			bases = append(bases, base)
		}
		return bases
	})
}

// unqualifiedIdentifier finds the first identifier in text that is not
// followed by "::".
func unqualifiedIdentifier(text string) (Span, bool) {
	for _, loc := range reIdentifier.FindAllStringIndex(text, -1) {
		if loc[0] > 0 && isIdentByte(text[loc[0]-1]) {
			continue
		}
		rest := strings.TrimLeft(text[loc[1]:], " \t\r\n")
		if strings.HasPrefix(rest, "::") {
			continue
		}
		return Span{Start: loc[0], End: loc[1]}, true
	}
	return Span{}, false
}

// MemberVariables returns the variables declared directly in a class or struct.
func (s *Symbol) MemberVariables() []*Symbol {
	var members []*Symbol
	for _, child := range s.Children() {
		if child.IsMemberVariable() {
			members = append(members, child)
		}
	}
	return members
}

func (s *Symbol) NonStaticMemberVariables() []*Symbol {
	var members []*Symbol
	for _, member := range s.MemberVariables() {
		if !member.IsStatic() {
			members = append(members, member)
		}
	}
	return members
}

// MemberVariablesThatRequireInitialization returns const and reference members
// without a default member initializer.
func (s *Symbol) MemberVariablesThatRequireInitialization() []*Symbol {
	var members []*Symbol
	for _, member := range s.NonStaticMemberVariables() {
		if !member.IsConst() && !member.IsReference() {
			continue
		}
		tail := member.ParsableText()[member.selEnd-member.start:]
		if strings.ContainsAny(tail, "={") {
			continue
		}
		members = append(members, member)
	}
	return members
}

// ProposedPosition is an insertion point for new text together with how the
// text relates to its neighbour.
type ProposedPosition struct {
	Offset     int   `json:"offset" yaml:"offset"`
	RelativeTo *Span `json:"relative_to,omitempty" yaml:"relative_to,omitempty"`
	Before     bool  `json:"before,omitempty" yaml:"before,omitempty"`
	After      bool  `json:"after,omitempty" yaml:"after,omitempty"`
	NextTo     bool  `json:"next_to,omitempty" yaml:"next_to,omitempty"`
	EmptyScope bool  `json:"empty_scope,omitempty" yaml:"empty_scope,omitempty"`
}

// FindPositionForNewMemberFunction proposes where a new member function with
// the given access should go. With relativeName the position is right after
// (or, for a getter placed next to its setter, before) that member.
func (s *Symbol) FindPositionForNewMemberFunction(level AccessLevel, relativeName string, before bool) (ProposedPosition, bool) {
	if !s.IsClassOrStruct() {
		return ProposedPosition{}, false
	}
	children := s.Children()
	for i := len(children) - 1; i >= 0; i-- {
		child := children[i]
		span := child.Span()
		switch {
		case relativeName != "" && child.Name() == relativeName:
			if before {
				return ProposedPosition{Offset: child.LeadingCommentStart(), RelativeTo: &span, Before: true, NextTo: true}, true
			}
			return ProposedPosition{Offset: span.End, RelativeTo: &span, After: true, NextTo: true}, true
		case relativeName == "" && s.PositionHasAccess(span.End, level):
			return ProposedPosition{Offset: span.End, RelativeTo: &span, After: true}, true
		}
	}
	return s.positionForNewChild(), true
}

func (s *Symbol) positionForNewChild() ProposedPosition {
	children := s.Children()
	if len(children) > 0 {
		span := children[len(children)-1].Span()
		return ProposedPosition{Offset: span.End, RelativeTo: &span, After: true}
	}
	return ProposedPosition{Offset: s.BodyStart(), After: true, NextTo: true, EmptyScope: true}
}

func blank(b []byte, from, to int) {
	for i := from; i < to; i++ {
		if b[i] != '\n' && b[i] != '\r' {
			b[i] = ' '
		}
	}
}
