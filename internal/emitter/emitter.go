// Package emitter renders companions to Go source with jennifer and writes
// them next to (or mirrored from) the packages they belong to.
package emitter

import (
	"bytes"
	"fmt"
	"go/types"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/dave/jennifer/jen"

	"github.com/cmmoran/testablegen/internal/model"
)

const (
	// Header is the first line of every generated companion.
	Header = "Code generated by testablegen. DO NOT EDIT."

	ReflectAccessPath = "github.com/cmmoran/testablegen/pkg/reflectaccess"
	reflectAccessName = "reflectaccess"
)

type renderer struct {
	imports map[string]string
}

func (r *renderer) use(path, name string) {
	r.imports[path] = name
}

// Render builds the jennifer file for one companion.
func Render(c *model.Companion) *jen.File {
	pkg := c.Enclosing.Package
	f := jen.NewFilePathName(pkg.Path, pkg.Name)
	f.HeaderComment(Header)

	r := &renderer{imports: map[string]string{ReflectAccessPath: reflectAccessName}}
	for i, acc := range c.Accessors {
		if i > 0 {
			f.Line()
		}
		f.Comment(docComment(c, acc))
		f.Add(r.accessor(acc))
	}

	paths := make([]string, 0, len(r.imports))
	for path := range r.imports {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		if path != pkg.Path {
			f.ImportName(path, r.imports[path])
		}
	}
	return f
}

// Bytes renders c to formatted source.
func Bytes(c *model.Companion) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := Render(c).Render(buf); err != nil {
		return nil, errors.Wrapf(err, "render %s", c.Name)
	}
	return buf.Bytes(), nil
}

func (r *renderer) accessor(acc *model.Accessor) jen.Code {
	enclosing := r.typeCode(acc.Enclosing)

	tparams := []jen.Code{jen.Id(acc.InstanceParam).Op("~*").Add(enclosing)}
	for _, tp := range acc.TypeParams {
		tparams = append(tparams, jen.Id(tp.Obj().Name()).Add(r.constraintCode(tp.Constraint())))
	}

	params := make([]jen.Code, 0, len(acc.Params))
	for _, p := range acc.Params {
		switch {
		case p.Instance:
			params = append(params, jen.Id(p.Name).Id(acc.InstanceParam))
		case p.Variadic:
			params = append(params, jen.Id(p.Name).Op("...").Add(r.typeCode(elem(p.Type))))
		default:
			params = append(params, jen.Id(p.Name).Add(r.typeCode(p.Type)))
		}
	}

	var results jen.Code
	if acc.Fluent {
		results = jen.Id(acc.InstanceParam)
	} else {
		codes := make([]jen.Code, 0, len(acc.Results))
		for _, t := range acc.Results {
			codes = append(codes, r.typeCode(t))
		}
		results = resultsCode(codes)
	}

	return jen.Func().Id(acc.FuncName).Types(tparams...).Params(params...).Add(results).Block(r.body(acc, enclosing)...)
}

func (r *renderer) body(acc *model.Accessor, enclosing jen.Code) []jen.Code {
	instance := jen.Id(acc.Params[0].Name)
	member := jen.Lit(acc.Member.Name)

	switch acc.Kind {
	case model.AccessorGetter:
		return []jen.Code{
			jen.Return(jen.Qual(ReflectAccessPath, "GetField").Types(r.typeCode(acc.Results[0])).Call(instance, member)),
		}
	case model.AccessorSetter:
		return []jen.Code{
			jen.Qual(ReflectAccessPath, "SetField").Call(instance, member, jen.Id(acc.Params[1].Name)),
			jen.Return(jen.Id(acc.Params[0].Name)),
		}
	case model.AccessorClearer:
		return []jen.Code{
			jen.Qual(ReflectAccessPath, "ClearField").Call(instance, member),
			jen.Return(jen.Id(acc.Params[0].Name)),
		}
	}

	args := []jen.Code{
		instance,
		member,
		jen.Parens(jen.Op("*").Add(enclosing)).Parens(jen.Id(acc.Params[0].Name)).Dot(acc.Member.Name),
	}
	for _, p := range acc.Args() {
		args = append(args, jen.Id(p.Name))
	}

	call := jen.Qual(ReflectAccessPath, fmt.Sprintf("Invoke%d", len(acc.Results)))
	if len(acc.Results) > 0 {
		targs := make([]jen.Code, 0, len(acc.Results))
		for _, t := range acc.Results {
			targs = append(targs, r.typeCode(t))
		}
		call = call.Types(targs...)
	}
	call = call.Call(args...)

	var out []jen.Code
	if valueReceiver(acc.Member) {
		out = append(out, jen.Qual(ReflectAccessPath, "NotNil").Call(jen.Id(acc.Params[0].Name), member))
	}
	if len(acc.Results) == 0 {
		return append(out, call)
	}
	return append(out, jen.Return(call))
}

// valueReceiver reports whether m is a method whose method value dereferences
// the instance.
func valueReceiver(m *model.AnnotatedMember) bool {
	if m.Signature == nil || m.Signature.Recv() == nil {
		return false
	}
	_, ptr := types.Unalias(m.Signature.Recv().Type()).(*types.Pointer)
	return !ptr
}

func docComment(c *model.Companion, acc *model.Accessor) string {
	m := acc.Member.Name
	switch acc.Kind {
	case model.AccessorGetter:
		return fmt.Sprintf("%s returns the %s field of instance.", acc.FuncName, m)
	case model.AccessorSetter:
		return fmt.Sprintf("%s sets the %s field of instance and returns instance.", acc.FuncName, m)
	case model.AccessorClearer:
		return fmt.Sprintf("%s resets the %s field of instance to its zero value and returns instance.", acc.FuncName, m)
	}
	return fmt.Sprintf("%s calls the %s method of instance (%s).", acc.FuncName, m, c.Enclosing.Name)
}
