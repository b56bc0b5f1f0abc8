package parser

import (
	"go/types"
	"log/slog"

	"github.com/cockroachdb/errors"

	"github.com/cmmoran/testablegen/internal/diag"
	"github.com/cmmoran/testablegen/internal/model"
	options "github.com/cmmoran/testablegen/pkg/parser"
)

// MaxResults is the largest result count an invoker can forward.
const MaxResults = 3

// helperPackage is the identifier generated bodies use for the reflection helper.
const helperPackage = "reflectaccess"

var (
	ErrTooManyResults = errors.New("too many results")
	ErrDuplicateName  = errors.New("duplicate accessor name")
)

// Builder turns grouped EnclosingTypes into Companions.
type Builder struct {
	opts     *options.Options
	types    []*model.EnclosingType
	reporter diag.Reporter
	logger   *slog.Logger

	// emitted holds, per package path, every top-level name a companion
	// function must not reuse and who claimed it.
	emitted map[string]map[string]string
}

// NewBuilder initializes a Builder with options and the discovered types.
func NewBuilder(
	opts *options.Options,
	types []*model.EnclosingType,
	reporter diag.Reporter,
	logger *slog.Logger,
) *Builder {
	if reporter == nil {
		reporter = diag.Discard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		opts:     opts,
		types:    types,
		reporter: reporter,
		logger:   logger,
		emitted:  make(map[string]map[string]string),
	}
}

// BuildAll builds one companion per non-private type with members, in
// discovery order. Private types are skipped without a diagnostic.
func (b *Builder) BuildAll() []*model.Companion {
	out := make([]*model.Companion, 0, len(b.types))
	for _, et := range b.types {
		if et == nil || len(et.Members) == 0 {
			continue
		}
		if et.Visibility == model.VisibilityPrivate {
			b.logger.Debug("skipping function-local type", "type", et.QualifiedName())
			continue
		}
		if c := b.Build(et); len(c.Accessors) > 0 {
			out = append(out, c)
		}
	}
	return out
}

// Build creates the companion for et member by member. Failing members are
// reported and left out; the rest still make it into the companion. Function
// names are claimed package wide, so a name already declared in the package or
// generated for an earlier type is a duplicate.
func (b *Builder) Build(et *model.EnclosingType) *model.Companion {
	exported := et.Visibility == model.VisibilityPublic
	c := &model.Companion{
		Name:      CompanionName(b.opts.Prefix, et.Name, exported),
		FileName:  FileName(et.Name, b.opts.FileSuffix),
		Exported:  exported,
		Enclosing: et,
	}

	claimed := b.claimed(et)
	for _, m := range et.Members {
		accs, err := b.buildMember(c, m)
		if err != nil {
			b.report(et, m, err)
			continue
		}
		for _, acc := range accs {
			if owner, dup := claimed[acc.FuncName]; dup {
				b.report(et, m, errors.WithHint(
					errors.Wrapf(ErrDuplicateName, "%s %s already declared by %s", acc.Kind, acc.FuncName, owner),
					"rename one of the members, narrow the marker options or change the prefix"))
				continue
			}
			claimed[acc.FuncName] = et.Name + "." + m.Name
			c.Accessors = append(c.Accessors, acc)
		}
	}
	return c
}

// claimed returns the name set of et's package, seeded with its package-scope
// declarations on first use.
func (b *Builder) claimed(et *model.EnclosingType) map[string]string {
	key := et.Package.Path
	if names, ok := b.emitted[key]; ok {
		return names
	}
	names := make(map[string]string)
	if pkg := et.Object.Pkg(); pkg != nil {
		for _, n := range pkg.Scope().Names() {
			names[n] = "package " + pkg.Name()
		}
	}
	b.emitted[key] = names
	return names
}

func (b *Builder) report(et *model.EnclosingType, m *model.AnnotatedMember, err error) {
	b.reporter.Report(diag.Diagnostic{
		Severity: diag.SeverityError,
		Package:  et.Package.Path,
		Type:     et.Name,
		Member:   m.Name,
		Pos:      m.Pos,
		Err:      err,
	})
}

func (b *Builder) buildMember(c *model.Companion, m *model.AnnotatedMember) ([]*model.Accessor, error) {
	switch m.Kind {
	case model.MemberField:
		return b.buildField(c, m)
	case model.MemberMethod:
		acc, err := b.buildInvoker(c, m)
		if err != nil {
			return nil, err
		}
		return []*model.Accessor{acc}, nil
	}
	return nil, errors.Newf("unknown member kind %d", m.Kind)
}

func (b *Builder) buildField(c *model.Companion, m *model.AnnotatedMember) ([]*model.Accessor, error) {
	var out []*model.Accessor
	if m.Marker.Getter {
		acc, err := b.prepare(c, m, model.AccessorGetter, m.Name, nil)
		if err != nil {
			return nil, err
		}
		acc.Results = []types.Type{m.Type}
		out = append(out, acc)
	}
	if m.Marker.Setter {
		logical, err := SetterName(m.Name)
		if err != nil {
			return nil, err
		}
		acc, err := b.prepare(c, m, model.AccessorSetter, logical, []*types.Var{
			types.NewParam(0, nil, "value", m.Type),
		})
		if err != nil {
			return nil, err
		}
		acc.Fluent = true
		out = append(out, acc)
	}
	if m.Marker.Clearer {
		logical, err := ClearerName(m.Name)
		if err != nil {
			return nil, err
		}
		acc, err := b.prepare(c, m, model.AccessorClearer, logical, nil)
		if err != nil {
			return nil, err
		}
		acc.Fluent = true
		out = append(out, acc)
	}
	return out, nil
}

func (b *Builder) buildInvoker(c *model.Companion, m *model.AnnotatedMember) (*model.Accessor, error) {
	sig := m.Signature
	if sig == nil {
		return nil, errors.Newf("method %s has no signature", m.Name)
	}
	if n := sig.Results().Len(); n > MaxResults {
		return nil, errors.WithHint(
			errors.Wrapf(ErrTooManyResults, "method %s returns %d results, at most %d are supported", m.Name, n, MaxResults),
			"wrap the results in a struct or call the method through a small test helper")
	}

	params := make([]*types.Var, 0, sig.Params().Len())
	for i := 0; i < sig.Params().Len(); i++ {
		params = append(params, sig.Params().At(i))
	}
	acc, err := b.prepare(c, m, model.AccessorInvoker, m.Name, params)
	if err != nil {
		return nil, err
	}
	if sig.Variadic() && len(acc.Params) > 1 {
		acc.Params[len(acc.Params)-1].Variadic = true
	}
	for i := 0; i < sig.Results().Len(); i++ {
		acc.Results = append(acc.Results, sig.Results().At(i).Type())
	}
	return acc, nil
}

// prepare does the work shared by every accessor: the instance type
// parameter, the enclosing type parameters, the instance parameter, the
// remaining parameters and the emitted name.
func (b *Builder) prepare(c *model.Companion, m *model.AnnotatedMember, kind model.AccessorKind, logical string, params []*types.Var) (*model.Accessor, error) {
	funcName, err := FuncName(c.Name, logical)
	if err != nil {
		return nil, err
	}

	et := c.Enclosing
	var (
		enclosing types.Type = et.Object.Type()
		tparams   []*types.TypeParam
	)
	if m.Kind == model.MemberMethod {
		// methods may rename the receiver's type parameters
		enclosing = deref(m.Signature.Recv().Type())
		tparams = typeParamSlice(m.Signature.RecvTypeParams())
	} else {
		tparams = typeParamSlice(et.TypeParams())
	}

	// Names that must stay visible inside the generated signature and body:
	// package-scope declarations and the imports the rendered types use.
	taken := map[string]bool{
		"instance":    true,
		helperPackage: true,
		et.Name:       true,
	}
	for _, tp := range tparams {
		taken[tp.Obj().Name()] = true
	}
	if pkg := et.Object.Pkg(); pkg != nil {
		for _, n := range pkg.Scope().Names() {
			taken[n] = true
		}
	}
	refs := []types.Type{enclosing}
	if m.Kind == model.MemberMethod {
		refs = append(refs, tupleTypes(m.Signature.Params())...)
		refs = append(refs, tupleTypes(m.Signature.Results())...)
	} else {
		refs = append(refs, m.Type)
	}
	for _, t := range refs {
		importNames(t, et.Object.Pkg(), taken)
	}

	acc := &model.Accessor{
		Kind:       kind,
		Name:       logical,
		FuncName:   funcName,
		Member:     m,
		Enclosing:  enclosing,
		TypeParams: tparams,
		Params:     []model.Param{{Name: "instance", Instance: true}},
	}
	for i, v := range params {
		name := ParamName(i, v.Name(), taken)
		taken[name] = true
		acc.Params = append(acc.Params, model.Param{Name: name, Type: v.Type()})
	}

	acc.InstanceParam = InstanceTypeParam(taken)
	return acc, nil
}

func tupleTypes(t *types.Tuple) []types.Type {
	out := make([]types.Type, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		out = append(out, t.At(i).Type())
	}
	return out
}

// importNames adds the name of every package other than self that t refers
// to. Named types are not expanded past their type arguments.
func importNames(t types.Type, self *types.Package, into map[string]bool) {
	switch t := t.(type) {
	case *types.Basic:
		if t.Kind() == types.UnsafePointer {
			into["unsafe"] = true
		}
	case *types.Alias:
		addImport(t.Obj().Pkg(), self, into)
		if args := t.TypeArgs(); args != nil {
			for i := 0; i < args.Len(); i++ {
				importNames(args.At(i), self, into)
			}
		}
	case *types.Named:
		addImport(t.Obj().Pkg(), self, into)
		if args := t.TypeArgs(); args != nil {
			for i := 0; i < args.Len(); i++ {
				importNames(args.At(i), self, into)
			}
		}
	case *types.Pointer:
		importNames(t.Elem(), self, into)
	case *types.Slice:
		importNames(t.Elem(), self, into)
	case *types.Array:
		importNames(t.Elem(), self, into)
	case *types.Chan:
		importNames(t.Elem(), self, into)
	case *types.Map:
		importNames(t.Key(), self, into)
		importNames(t.Elem(), self, into)
	case *types.Signature:
		for _, p := range tupleTypes(t.Params()) {
			importNames(p, self, into)
		}
		for _, r := range tupleTypes(t.Results()) {
			importNames(r, self, into)
		}
	case *types.Struct:
		for i := 0; i < t.NumFields(); i++ {
			importNames(t.Field(i).Type(), self, into)
		}
	case *types.Interface:
		for i := 0; i < t.NumEmbeddeds(); i++ {
			importNames(t.EmbeddedType(i), self, into)
		}
		for i := 0; i < t.NumExplicitMethods(); i++ {
			importNames(t.ExplicitMethod(i).Type(), self, into)
		}
	case *types.Union:
		for i := 0; i < t.Len(); i++ {
			importNames(t.Term(i).Type(), self, into)
		}
	}
}

func addImport(pkg, self *types.Package, into map[string]bool) {
	if pkg != nil && pkg != self {
		into[pkg.Name()] = true
	}
}

func typeParamSlice(list *types.TypeParamList) []*types.TypeParam {
	if list == nil {
		return nil
	}
	out := make([]*types.TypeParam, list.Len())
	for i := range out {
		out[i] = list.At(i)
	}
	return out
}
