// Package reflectaccess is the runtime side of testablegen companions. It reads
// and writes unexported fields and calls methods through reflection.
//
// Every function panics on misuse. The generated callers only hand in names
// that were checked at generation time, so a panic here means the companion is
// out of date with the type it was generated from.
//
// Invokers receive a method value the caller built from instance. For a value
// receiver that conversion dereferences instance, so generated code calls
// NotNil first to fail with the same message as every other accessor.
package reflectaccess

import (
	"fmt"
	"reflect"
	"unsafe"
)

// GetField returns the named field of the struct instance points to.
func GetField[T any](instance any, name string) T {
	f := field(instance, name)
	var out T
	assign(reflect.ValueOf(&out).Elem(), f, instance, name)
	return out
}

// SetField stores value in the named field. A nil value stores the zero value.
func SetField(instance any, name string, value any) {
	f := field(instance, name)
	if value == nil {
		f.SetZero()
		return
	}
	v := reflect.ValueOf(value)
	if !v.Type().AssignableTo(f.Type()) {
		panic(fmt.Sprintf("reflectaccess: cannot set %s.%s of type %s to a %s", typeName(instance), name, f.Type(), v.Type()))
	}
	f.Set(v)
}

// ClearField resets the named field to its zero value.
func ClearField(instance any, name string) {
	field(instance, name).SetZero()
}

// NotNil panics when instance is nil, naming the member about to be reached.
func NotNil(instance any, name string) {
	if v := reflect.ValueOf(instance); !v.IsValid() || (v.Kind() == reflect.Pointer && v.IsNil()) {
		panic(fmt.Sprintf("reflectaccess: %s.%s: instance is nil", typeName(instance), name))
	}
}

// Invoke0 calls method, a method value bound to instance, with args.
func Invoke0(instance any, name string, method any, args ...any) {
	call(instance, name, method, 0, args)
}

func Invoke1[R any](instance any, name string, method any, args ...any) R {
	out := call(instance, name, method, 1, args)
	var r R
	assign(reflect.ValueOf(&r).Elem(), out[0], instance, name)
	return r
}

func Invoke2[R1, R2 any](instance any, name string, method any, args ...any) (R1, R2) {
	out := call(instance, name, method, 2, args)
	var (
		r1 R1
		r2 R2
	)
	assign(reflect.ValueOf(&r1).Elem(), out[0], instance, name)
	assign(reflect.ValueOf(&r2).Elem(), out[1], instance, name)
	return r1, r2
}

func Invoke3[R1, R2, R3 any](instance any, name string, method any, args ...any) (R1, R2, R3) {
	out := call(instance, name, method, 3, args)
	var (
		r1 R1
		r2 R2
		r3 R3
	)
	assign(reflect.ValueOf(&r1).Elem(), out[0], instance, name)
	assign(reflect.ValueOf(&r2).Elem(), out[1], instance, name)
	assign(reflect.ValueOf(&r3).Elem(), out[2], instance, name)
	return r1, r2, r3
}

// field resolves name on the struct instance points to and returns a settable
// value for it, exported or not.
func field(instance any, name string) reflect.Value {
	v := reflect.ValueOf(instance)
	if v.Kind() != reflect.Pointer {
		panic(fmt.Sprintf("reflectaccess: %s.%s: instance must be a pointer to a struct, got %s", typeName(instance), name, kindOf(v)))
	}
	if v.IsNil() {
		panic(fmt.Sprintf("reflectaccess: %s.%s: instance is nil", typeName(instance), name))
	}
	s := v.Elem()
	if s.Kind() != reflect.Struct {
		panic(fmt.Sprintf("reflectaccess: %s.%s: instance must be a pointer to a struct", typeName(instance), name))
	}
	f := s.FieldByName(name)
	if !f.IsValid() {
		panic(fmt.Sprintf("reflectaccess: %s has no field %s", typeName(instance), name))
	}
	return reflect.NewAt(f.Type(), unsafe.Pointer(f.UnsafeAddr())).Elem()
}

func call(instance any, name string, method any, want int, args []any) []reflect.Value {
	NotNil(instance, name)
	m := reflect.ValueOf(method)
	if m.Kind() != reflect.Func || m.IsNil() {
		panic(fmt.Sprintf("reflectaccess: %s.%s: method must be a func, got %s", typeName(instance), name, kindOf(m)))
	}
	mt := m.Type()
	if mt.NumIn() != len(args) {
		panic(fmt.Sprintf("reflectaccess: %s.%s takes %d arguments, got %d", typeName(instance), name, mt.NumIn(), len(args)))
	}
	if mt.NumOut() != want {
		panic(fmt.Sprintf("reflectaccess: %s.%s returns %d results, caller expects %d", typeName(instance), name, mt.NumOut(), want))
	}

	in := make([]reflect.Value, len(args))
	for i, a := range args {
		pt := mt.In(i)
		if a == nil {
			in[i] = reflect.Zero(pt)
			continue
		}
		av := reflect.ValueOf(a)
		if !av.Type().AssignableTo(pt) {
			panic(fmt.Sprintf("reflectaccess: %s.%s argument %d: cannot use %s as %s", typeName(instance), name, i, av.Type(), pt))
		}
		in[i] = av
	}
	if mt.IsVariadic() {
		return m.CallSlice(in)
	}
	return m.Call(in)
}

func assign(dst, src reflect.Value, instance any, name string) {
	if !src.Type().AssignableTo(dst.Type()) {
		panic(fmt.Sprintf("reflectaccess: %s.%s is a %s, not a %s", typeName(instance), name, src.Type(), dst.Type()))
	}
	dst.Set(src)
}

func typeName(instance any) string {
	t := reflect.TypeOf(instance)
	if t == nil {
		return "<nil>"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.String()
}

func kindOf(v reflect.Value) string {
	if !v.IsValid() {
		return "nil"
	}
	return v.Type().String()
}
