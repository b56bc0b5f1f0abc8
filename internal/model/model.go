package model

import (
	"go/token"
	"go/types"
)

// Visibility classifies how far an enclosing type can be seen.
type Visibility int

const (
	VisibilityPackage Visibility = iota // unexported, package scope
	VisibilityPublic                    // exported, package scope
	VisibilityPrivate                   // declared inside a function body
)

func (v Visibility) String() string {
	switch v {
	case VisibilityPublic:
		return "public"
	case VisibilityPrivate:
		return "private"
	default:
		return "package"
	}
}

type MemberKind int

const (
	MemberField MemberKind = iota
	MemberMethod
)

func (k MemberKind) String() string {
	if k == MemberMethod {
		return "method"
	}
	return "field"
}

// Marker holds the accessor options attached to a field. Methods ignore it.
type Marker struct {
	Getter  bool
	Setter  bool
	Clearer bool
}

// DefaultMarker enables every field accessor.
func DefaultMarker() Marker {
	return Marker{Getter: true, Setter: true, Clearer: true}
}

// Package is one loaded Go package.
type Package struct {
	Path string // import path, e.g. "github.com/you/project/model"
	Name string // package clause name
	Dir  string // directory holding the package sources
}

// AnnotatedMember is a field or method carrying the testable marker. It only
// lives for one generation round.
type AnnotatedMember struct {
	Name      string
	Kind      MemberKind
	Type      types.Type        // field type; nil for methods
	Signature *types.Signature // method signature; nil for fields
	Marker    Marker
	Pos       token.Position
}

// EnclosingType owns annotated members. Object is the grouping identity, so two
// types sharing a simple name in different scopes never merge.
type EnclosingType struct {
	Name       string
	Package    *Package
	Visibility Visibility
	Object     *types.TypeName
	Members    []*AnnotatedMember
}

// TypeParams returns the type's own type parameters, if any.
func (e *EnclosingType) TypeParams() *types.TypeParamList {
	if named, ok := e.Object.Type().(*types.Named); ok {
		return named.TypeParams()
	}
	return nil
}

// QualifiedName is "pkgpath.Name", used in diagnostics and logs.
func (e *EnclosingType) QualifiedName() string {
	if e.Package == nil || e.Package.Path == "" {
		return e.Name
	}
	return e.Package.Path + "." + e.Name
}
