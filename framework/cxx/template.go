package cxx

import (
	"strings"

	"github.com/lexcodex/cxxrefine/framework/mask"
)

var templateKeywords = map[string]bool{
	"typename": true,
	"class":    true,
	"template": true,
	"auto":     true,
	"const":    true,
}

// TemplateStatement returns the "template<...>" header of the symbol, or "" if
// it has none. With removeDefaults, default template arguments are dropped.
func (s *Symbol) TemplateStatement(removeDefaults bool) string {
	if !s.IsTemplate() {
		return ""
	}
	masked := mask.AngleBrackets(s.parsableFullLeadingText())
	end := strings.IndexByte(masked, '>')
	if end < 0 {
		return ""
	}
	statement := s.FullLeadingText()[:end+1]
	if removeDefaults {
		statement = stripTemplateDefaults(statement)
	}
	return statement
}

// TemplateParameters renders the parameter names of the template header as an
// argument list, e.g. "<T, N, Rest...>".
func (s *Symbol) TemplateParameters() string {
	statement := s.TemplateStatement(true)
	open := strings.IndexByte(statement, '<')
	if open < 0 {
		return ""
	}
	names := templateParameterNames(statement[open+1 : len(statement)-1])
	if len(names) == 0 {
		return ""
	}
	return "<" + strings.Join(names, ", ") + ">"
}

func templateParameterNames(params string) []string {
	masked := mask.AngleBrackets(mask.Parentheses(mask.Parsable(params)))
	var names []string
	for _, part := range splitTopLevel(params, masked) {
		maskedPart := masked[part.Start:part.End]
		idents := reIdentifier.FindAllStringIndex(maskedPart, -1)
		if len(idents) == 0 {
			continue
		}
		last := idents[len(idents)-1]
		name := maskedPart[last[0]:last[1]]
		if templateKeywords[name] {
			continue
		}
		if strings.Contains(maskedPart[:last[0]], "...") {
			name += "..."
		}
		names = append(names, name)
	}
	return names
}

// stripTemplateDefaults removes "= value" from every parameter of a
// "template<...>" statement.
func stripTemplateDefaults(statement string) string {
	open := strings.IndexByte(statement, '<')
	if open < 0 || !strings.HasSuffix(statement, ">") {
		return statement
	}
	return statement[:open+1] + StripDefaultValues(statement[open+1:len(statement)-1]) + ">"
}

// StripDefaultValues removes default arguments from a comma separated
// parameter list. Commas nested in parentheses, braces, template arguments and
// literals do not split parameters.
func StripDefaultValues(params string) string {
	masked := mask.Braces(mask.Parentheses(mask.AngleBrackets(mask.Parsable(params))))
	parts := splitTopLevel(params, masked)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		text := params[part.Start:part.End]
		if eq := defaultValueStart(masked[part.Start:part.End]); eq >= 0 {
			text = strings.TrimRight(text[:eq], " \t\r\n")
		}
		out = append(out, text)
	}
	return strings.Join(out, ",")
}

// defaultValueStart finds the '=' introducing a default value in a masked
// parameter, ignoring comparison operators.
func defaultValueStart(masked string) int {
	for i := 0; i < len(masked); i++ {
		if masked[i] != '=' {
			continue
		}
		if i+1 < len(masked) && masked[i+1] == '=' {
			i++
			continue
		}
		if i > 0 && strings.IndexByte("=!<>", masked[i-1]) >= 0 {
			continue
		}
		return i
	}
	return -1
}

// splitTopLevel splits text at the commas that survive in its masked form.
func splitTopLevel(text, masked string) []Span {
	var parts []Span
	start := 0
	for i := 0; i < len(masked); i++ {
		if masked[i] == ',' {
			parts = append(parts, Span{Start: start, End: i})
			start = i + 1
		}
	}
	return append(parts, Span{Start: start, End: len(text)})
}
