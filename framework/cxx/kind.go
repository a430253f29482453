package cxx

import "strings"

// Kind identifies what a coarse symbol is. The values mirror the LSP symbol
// kinds plus KindTypeAlias for sources that can tell typedefs apart.
type Kind int

const (
	KindUnknown Kind = iota
	KindFile
	KindModule
	KindNamespace
	KindPackage
	KindClass
	KindMethod
	KindProperty
	KindField
	KindConstructor
	KindEnum
	KindInterface
	KindFunction
	KindVariable
	KindConstant
	KindEnumMember
	KindStruct
	KindOperator
	KindTypeParameter
	KindTypeAlias
)

var kindNames = map[Kind]string{
	KindUnknown:       "unknown",
	KindFile:          "file",
	KindModule:        "module",
	KindNamespace:     "namespace",
	KindPackage:       "package",
	KindClass:         "class",
	KindMethod:        "method",
	KindProperty:      "property",
	KindField:         "field",
	KindConstructor:   "constructor",
	KindEnum:          "enum",
	KindInterface:     "interface",
	KindFunction:      "function",
	KindVariable:      "variable",
	KindConstant:      "constant",
	KindEnumMember:    "enum_member",
	KindStruct:        "struct",
	KindOperator:      "operator",
	KindTypeParameter: "type_parameter",
	KindTypeAlias:     "type_alias",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// ParseKind is the inverse of Kind.String.
func ParseKind(name string) Kind {
	name = strings.ToLower(strings.TrimSpace(name))
	for kind, n := range kindNames {
		if n == name {
			return kind
		}
	}
	return KindUnknown
}

func (k Kind) IsFunction() bool {
	switch k {
	case KindFunction, KindMethod, KindConstructor, KindOperator:
		return true
	}
	return false
}

func (k Kind) IsVariable() bool {
	switch k {
	case KindVariable, KindField, KindConstant, KindProperty:
		return true
	}
	return false
}

func (k Kind) IsClassOrStruct() bool {
	return k == KindClass || k == KindStruct
}

// IsScope reports whether symbols of this kind contribute a Name:: qualifier.
func (k Kind) IsScope() bool {
	return k == KindNamespace || k.IsClassOrStruct()
}

// MightBeTypeAlias reports whether a symbol of this kind could be a typedef or
// alias declaration. clangd reports both as classes, ccls as type parameters.
func (k Kind) MightBeTypeAlias() bool {
	switch k {
	case KindClass, KindInterface, KindTypeParameter, KindTypeAlias:
		return true
	}
	return false
}

// DefaultAccess is the access level in effect before the first access specifier.
func (k Kind) DefaultAccess() (AccessLevel, bool) {
	switch k {
	case KindClass:
		return AccessPrivate, true
	case KindStruct:
		return AccessPublic, true
	}
	return 0, false
}

// AccessLevel is a C++ member access level.
type AccessLevel int

const (
	AccessPublic AccessLevel = iota
	AccessProtected
	AccessPrivate
)

func (a AccessLevel) String() string {
	switch a {
	case AccessProtected:
		return "protected"
	case AccessPrivate:
		return "private"
	default:
		return "public"
	}
}

// ParseAccessLevel accepts public, protected or private.
func ParseAccessLevel(value string) (AccessLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "public":
		return AccessPublic, true
	case "protected":
		return AccessProtected, true
	case "private":
		return AccessPrivate, true
	}
	return 0, false
}
