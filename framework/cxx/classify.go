package cxx

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/lexcodex/cxxrefine/framework/mask"
)

var (
	reVirtual            = regexp.MustCompile(`\b(virtual|override|final)\b`)
	reVirtualTrailing    = regexp.MustCompile(`\b(override|final)\b`)
	rePureVirtual        = regexp.MustCompile(`=\s*0\s*;?$`)
	reDeletedOrDefaulted = regexp.MustCompile(`=\s*(delete|default)\s*;?$`)
	reConstexpr          = regexp.MustCompile(`\bconstexpr\b`)
	reInline             = regexp.MustCompile(`\binline\b`)
	reStatic             = regexp.MustCompile(`\bstatic\b`)
	reConst              = regexp.MustCompile(`\bconst\b`)
	reTemplatePrefix     = regexp.MustCompile(`^\s*template\b`)
	reTypedef            = regexp.MustCompile(`\btypedef\b`)
	reUsing              = regexp.MustCompile(`\busing\b`)
)

func (s *Symbol) IsFunction() bool { return s.Kind().IsFunction() }

func (s *Symbol) IsVariable() bool { return s.Kind().IsVariable() }

func (s *Symbol) IsClassOrStruct() bool { return s.Kind().IsClassOrStruct() }

func (s *Symbol) IsNamespace() bool { return s.Kind() == KindNamespace }

func (s *Symbol) IsEnum() bool { return s.Kind() == KindEnum }

// IsMemberVariable reports a variable declared directly in a class or struct.
func (s *Symbol) IsMemberVariable() bool {
	return s.IsVariable() && s.parent != nil && s.parent.IsClassOrStruct()
}

// IsConstructor recognizes constructors by kind, by matching the enclosing
// class name, or by an out-of-line "Foo::Foo" qualifier.
func (s *Symbol) IsConstructor() bool {
	if s.IsDestructor() {
		return false
	}
	if s.Kind() == KindConstructor {
		return true
	}
	if !s.IsFunction() {
		return false
	}
	name := s.Name()
	if s.parent != nil && s.parent.IsClassOrStruct() && s.parent.Name() == name {
		return true
	}
	if scope := s.ImmediateScope(); scope != nil {
		return scope.Name() == name
	}
	return false
}

func (s *Symbol) IsDestructor() bool {
	return s.IsFunction() && strings.HasPrefix(s.Name(), "~")
}

func (s *Symbol) hasBody() bool {
	text := strings.TrimSuffix(s.parsableTrimmed(), ";")
	return strings.HasSuffix(strings.TrimRightFunc(text, unicode.IsSpace), "}")
}

func (s *Symbol) IsFunctionDeclaration() bool {
	return s.IsFunction() && !s.hasBody() && !s.IsDeletedOrDefaulted() && !s.IsPureVirtual()
}

func (s *Symbol) IsFunctionDefinition() bool {
	return s.IsFunction() && s.hasBody() && !s.IsDeletedOrDefaulted() && !s.IsPureVirtual()
}

// IsVirtual checks the leading specifiers and the signature tail, where
// override and final appear.
func (s *Symbol) IsVirtual() bool {
	if reVirtual.MatchString(s.ParsableLeadingText()) {
		return true
	}
	return s.IsFunction() && reVirtualTrailing.MatchString(s.parsableSignatureTail())
}

func (s *Symbol) IsPureVirtual() bool {
	return s.IsVirtual() && rePureVirtual.MatchString(s.parsableTrimmed())
}

func (s *Symbol) IsDeletedOrDefaulted() bool {
	return reDeletedOrDefaulted.MatchString(s.parsableTrimmed())
}

func (s *Symbol) IsConstexpr() bool { return reConstexpr.MatchString(s.ParsableLeadingText()) }

func (s *Symbol) IsInline() bool { return reInline.MatchString(s.ParsableLeadingText()) }

func (s *Symbol) IsStatic() bool { return reStatic.MatchString(s.ParsableLeadingText()) }

func (s *Symbol) IsConst() bool {
	return reConst.MatchString(mask.AngleBrackets(s.ParsableLeadingText()))
}

func (s *Symbol) IsPointer() bool {
	return strings.Contains(mask.AngleBrackets(s.ParsableLeadingText()), "*")
}

func (s *Symbol) IsReference() bool {
	return strings.Contains(mask.AngleBrackets(s.ParsableLeadingText()), "&")
}

// IsTemplate reports a symbol whose full leading text starts with a template header.
func (s *Symbol) IsTemplate() bool {
	return reTemplatePrefix.MatchString(s.parsableFullLeadingText())
}

func (s *Symbol) IsTypedef() bool {
	return s.Kind().MightBeTypeAlias() && reTypedef.MatchString(s.ParsableText())
}

func (s *Symbol) IsTypeAlias() bool {
	text := s.ParsableText()
	return s.Kind().MightBeTypeAlias() && reUsing.MatchString(text) && strings.Contains(text, "=")
}
