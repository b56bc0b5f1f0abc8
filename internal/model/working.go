package model

import (
	"go/types"
)

type AccessorKind int

const (
	AccessorGetter AccessorKind = iota
	AccessorSetter
	AccessorClearer
	AccessorInvoker
)

func (k AccessorKind) String() string {
	switch k {
	case AccessorSetter:
		return "setter"
	case AccessorClearer:
		return "clearer"
	case AccessorInvoker:
		return "invoker"
	default:
		return "getter"
	}
}

type Companion struct {
	// Identity -------------------------------------------------------------
	Name      string // "TestablePublicType"
	FileName  string // "public_type_testable_test.go"
	Exported  bool
	Enclosing *EnclosingType

	// Content --------------------------------------------------------------
	Accessors []*Accessor // discovery order
}

// Param is one generated function parameter.
type Param struct {
	Name     string
	Type     types.Type // nil for the instance parameter
	Instance bool
	Variadic bool // Type is the slice type; rendered as ...Elem
}

type Accessor struct {
	// Identity -------------------------------------------------------------
	Kind     AccessorKind
	Name     string // logical name: "markers", "clearMarkers", "multiplySum"
	FuncName string // emitted identifier: "TestablePublicTypeClearMarkers"
	Member   *AnnotatedMember

	// Signature ------------------------------------------------------------
	InstanceParam string             // synthetic type parameter name, "I"
	Enclosing     types.Type         // the *named* enclosing type, instantiated with TypeParams
	TypeParams    []*types.TypeParam // enclosing (or receiver) type parameters
	Params        []Param            // Params[0] is always the instance
	Results       []types.Type       // getter/invoker results
	Fluent        bool               // returns the instance type parameter
}

// Args returns the parameters after the instance, in declaration order.
func (a *Accessor) Args() []Param {
	if len(a.Params) == 0 {
		return nil
	}
	return a.Params[1:]
}
