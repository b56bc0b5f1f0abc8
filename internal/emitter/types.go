package emitter

import (
	"go/types"
	"strconv"

	"github.com/dave/jennifer/jen"
)

// typeCode converts a go/types type into jen code, recording every package it
// references so the file can import it under its real name.
func (r *renderer) typeCode(t types.Type) jen.Code {
	switch t := t.(type) {
	case nil:
		return jen.Null()
	case *types.Basic:
		if t.Kind() == types.UnsafePointer {
			r.use("unsafe", "unsafe")
			return jen.Qual("unsafe", "Pointer")
		}
		return jen.Id(t.Name())
	case *types.Alias:
		return r.objCode(t.Obj()).Add(r.typeArgs(t.TypeArgs(), nil)...)
	case *types.Named:
		return r.objCode(t.Obj()).Add(r.typeArgs(t.TypeArgs(), t.TypeParams())...)
	case *types.TypeParam:
		return jen.Id(t.Obj().Name())
	case *types.Pointer:
		return jen.Op("*").Add(r.typeCode(t.Elem()))
	case *types.Slice:
		return jen.Index().Add(r.typeCode(t.Elem()))
	case *types.Array:
		return jen.Index(jen.Lit(int(t.Len()))).Add(r.typeCode(t.Elem()))
	case *types.Map:
		return jen.Map(r.typeCode(t.Key())).Add(r.typeCode(t.Elem()))
	case *types.Chan:
		switch t.Dir() {
		case types.SendOnly:
			return jen.Chan().Op("<-").Add(r.typeCode(t.Elem()))
		case types.RecvOnly:
			return jen.Op("<-").Chan().Add(r.typeCode(t.Elem()))
		default:
			return jen.Chan().Add(r.typeCode(t.Elem()))
		}
	case *types.Signature:
		return jen.Func().Add(r.signature(t)...)
	case *types.Struct:
		fields := make([]jen.Code, 0, t.NumFields())
		for i := 0; i < t.NumFields(); i++ {
			f := t.Field(i)
			var c *jen.Statement
			if f.Embedded() {
				c = jen.Add(r.typeCode(f.Type()))
			} else {
				c = jen.Id(f.Name()).Add(r.typeCode(f.Type()))
			}
			if tag := t.Tag(i); tag != "" {
				c.Id(strconv.Quote(tag))
			}
			fields = append(fields, c)
		}
		return jen.Struct(fields...)
	case *types.Interface:
		return r.interfaceCode(t)
	case *types.Union:
		return r.unionCode(t)
	}
	return jen.Id(t.String())
}

// constraintCode renders a type parameter constraint. Implicit interfaces
// (written inline as `~int | string`) render as their single embedded term.
func (r *renderer) constraintCode(t types.Type) jen.Code {
	if iface, ok := t.(*types.Interface); ok && iface.IsImplicit() && iface.NumEmbeddeds() == 1 {
		return r.typeCode(iface.EmbeddedType(0))
	}
	return r.typeCode(t)
}

func (r *renderer) interfaceCode(t *types.Interface) jen.Code {
	if t.IsImplicit() && t.NumEmbeddeds() == 1 && t.NumExplicitMethods() == 0 {
		return r.typeCode(t.EmbeddedType(0))
	}
	items := make([]jen.Code, 0, t.NumEmbeddeds()+t.NumExplicitMethods())
	for i := 0; i < t.NumEmbeddeds(); i++ {
		items = append(items, r.typeCode(t.EmbeddedType(i)))
	}
	for i := 0; i < t.NumExplicitMethods(); i++ {
		m := t.ExplicitMethod(i)
		items = append(items, jen.Id(m.Name()).Add(r.signature(m.Type().(*types.Signature))...))
	}
	return jen.Interface(items...)
}

func (r *renderer) unionCode(t *types.Union) jen.Code {
	terms := make([]jen.Code, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		term := t.Term(i)
		if term.Tilde() {
			terms = append(terms, jen.Op("~").Add(r.typeCode(term.Type())))
			continue
		}
		terms = append(terms, r.typeCode(term.Type()))
	}
	return jen.Union(terms...)
}

// signature renders parameters and results of a func type without names.
func (r *renderer) signature(sig *types.Signature) []jen.Code {
	params := make([]jen.Code, 0, sig.Params().Len())
	for i := 0; i < sig.Params().Len(); i++ {
		pt := sig.Params().At(i).Type()
		if sig.Variadic() && i == sig.Params().Len()-1 {
			params = append(params, jen.Op("...").Add(r.typeCode(pt.(*types.Slice).Elem())))
			continue
		}
		params = append(params, r.typeCode(pt))
	}
	out := []jen.Code{jen.Params(params...)}

	results := make([]jen.Code, 0, sig.Results().Len())
	for i := 0; i < sig.Results().Len(); i++ {
		results = append(results, r.typeCode(sig.Results().At(i).Type()))
	}
	return append(out, resultsCode(results))
}

func resultsCode(results []jen.Code) jen.Code {
	switch len(results) {
	case 0:
		return jen.Null()
	case 1:
		return results[0]
	}
	return jen.Parens(jen.List(results...))
}

func (r *renderer) objCode(obj *types.TypeName) *jen.Statement {
	if obj.Pkg() == nil {
		return jen.Id(obj.Name())
	}
	r.use(obj.Pkg().Path(), obj.Pkg().Name())
	return jen.Qual(obj.Pkg().Path(), obj.Name())
}

// typeArgs renders [A, B]. Uninstantiated generic types use their own
// parameters as arguments.
func (r *renderer) typeArgs(args *types.TypeList, params *types.TypeParamList) []jen.Code {
	var codes []jen.Code
	switch {
	case args != nil && args.Len() > 0:
		for i := 0; i < args.Len(); i++ {
			codes = append(codes, r.typeCode(args.At(i)))
		}
	case params != nil && params.Len() > 0:
		for i := 0; i < params.Len(); i++ {
			codes = append(codes, jen.Id(params.At(i).Obj().Name()))
		}
	default:
		return nil
	}
	return []jen.Code{jen.Types(codes...)}
}

// elem is the element type of a variadic parameter's slice.
func elem(t types.Type) types.Type {
	if s, ok := t.Underlying().(*types.Slice); ok {
		return s.Elem()
	}
	return t
}
