// Package example shows testablegen on a small set of types. The companions
// next to it are generated; run go generate after changing a marker.
package example

import "errors"

//go:generate go run github.com/cmmoran/testablegen generate .

// PublicType keeps its state unexported; tests reach it through the
// generated TestablePublicType* functions.
type PublicType struct {
	Holder[float64, string]

	markers map[string]float64 `testable:""`
}

func NewPublicType(markers map[string]float64, typed float64, typed2 string) *PublicType {
	return &PublicType{
		Holder:  Holder[float64, string]{typedProperty: typed, typedProperty2: typed2},
		markers: markers,
	}
}

//testable:expose
func (p *PublicType) callMethodWithLowVisibilityReturnType() []packageType {
	return []packageType{{label: "low"}}
}

//testable:expose
func (p *PublicType) multiplySum(multiplier float64, values ...float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum * multiplier
}

type packageType struct {
	//testable:expose getter
	label string
}

//testable:expose
func (p packageType) describe(prefix string) (string, error) {
	if p.label == "" {
		return "", errors.New("no label")
	}
	return prefix + p.label, nil
}

// Holder is embedded by PublicType.
type Holder[T any, U comparable] struct {
	typedProperty  T `testable:"getter,setter"`
	typedProperty2 U `testable:"setter=false"`
}

//testable:expose
func (h *Holder[A, B]) pair() (A, B) {
	return h.typedProperty, h.typedProperty2
}

// Scratch builds a throwaway value. Function-local types never get a companion.
func Scratch() int {
	type scratch struct {
		v int `testable:""`
	}
	return scratch{v: 1}.v
}
