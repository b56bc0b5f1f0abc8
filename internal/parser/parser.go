package parser

import (
	"context"
	"go/ast"
	"go/token"
	"go/types"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/tools/go/packages"

	"github.com/cmmoran/testablegen/internal/diag"
	"github.com/cmmoran/testablegen/internal/model"
	options "github.com/cmmoran/testablegen/pkg/parser"
)

const loadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedSyntax |
	packages.NeedTypes |
	packages.NeedTypesInfo

// Parser holds state/results of a parse run.
type Parser struct {
	Opts options.Options

	Module     *Module
	Packages   []*model.Package
	Types      []*model.EnclosingType // discovery order
	Companions []*model.Companion

	reporter diag.Reporter
	logger   *slog.Logger
	byObject map[*types.TypeName]*model.EnclosingType
}

// New executes the parser with opts.
func New(opts ...options.Option) (*Parser, error) {
	return NewWithOpts(options.NewOptions(opts...), nil, nil)
}

func NewWithOpts(opts *options.Options, reporter diag.Reporter, logger *slog.Logger) (*Parser, error) {
	if err := opts.Normalize(); err != nil {
		return nil, err
	}
	if reporter == nil {
		reporter = diag.Discard{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Parser{
		Opts:     *opts,
		reporter: reporter,
		logger:   logger,
		byObject: make(map[*types.TypeName]*model.EnclosingType),
	}
	return p, nil
}

// Parse loads the configured patterns, collects every marked member and builds
// the companions. Only a failing load is returned; per-package and per-member
// problems go to the reporter.
func (p *Parser) Parse(ctx context.Context) error {
	if mod, err := FindModule(p.Opts.InDir); err == nil {
		p.Module = mod
	} else {
		p.logger.Debug("no enclosing module", "dir", p.Opts.InDir, "error", err)
	}

	cfg := &packages.Config{
		Context: ctx,
		Mode:    loadMode,
		Dir:     p.Opts.InDir,
		Fset:    token.NewFileSet(),
	}
	if len(p.Opts.BuildTags) > 0 {
		cfg.BuildFlags = []string{"-tags=" + strings.Join(p.Opts.BuildTags, ",")}
	}

	pkgs, err := packages.Load(cfg, p.Opts.Patterns...)
	if err != nil {
		return errors.Wrapf(err, "load packages %v in %s", p.Opts.Patterns, p.Opts.InDir)
	}
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].PkgPath < pkgs[j].PkgPath })

	for _, pkg := range pkgs {
		if !p.usable(pkg) {
			continue
		}
		files := pkg.CompiledGoFiles
		if len(files) == 0 {
			files = pkg.GoFiles
		}
		mp := &model.Package{
			Path: pkg.PkgPath,
			Name: pkg.Name,
			Dir:  filepath.Dir(files[0]),
		}
		p.Packages = append(p.Packages, mp)
		p.Collect(mp, cfg.Fset, pkg.Syntax, pkg.TypesInfo)
	}

	p.Build()
	return nil
}

// usable reports package errors and decides whether pkg can still be walked.
// Errors that only point into previously generated companions are tolerated,
// since those files are about to be rewritten.
func (p *Parser) usable(pkg *packages.Package) bool {
	if len(pkg.GoFiles) == 0 && len(pkg.CompiledGoFiles) == 0 {
		p.logger.Debug("package has no go files", "package", pkg.PkgPath)
		return false
	}

	generatedOnly := true
	for _, e := range pkg.Errors {
		if !strings.Contains(e.Pos, p.Opts.FileSuffix+":") {
			generatedOnly = false
		}
	}
	for _, e := range pkg.Errors {
		sev := diag.SeverityError
		if generatedOnly {
			sev = diag.SeverityWarning
		}
		p.reporter.Report(diag.Diagnostic{
			Severity: sev,
			Package:  pkg.PkgPath,
			Err:      errors.Newf("%s", e.Error()),
		})
	}
	if len(pkg.Errors) > 0 && !generatedOnly {
		return false
	}

	if pkg.Types == nil || pkg.TypesInfo == nil {
		p.reporter.Report(diag.Diagnostic{
			Severity: diag.SeverityError,
			Package:  pkg.PkgPath,
			Err:      errors.Newf("package %s has no type information", pkg.PkgPath),
		})
		return false
	}
	return true
}

// Collect walks the files of one type-checked package in file name order and
// records every marked field and method.
func (p *Parser) Collect(pkg *model.Package, fset *token.FileSet, files []*ast.File, info *types.Info) {
	sorted := make([]*ast.File, len(files))
	copy(sorted, files)
	sort.SliceStable(sorted, func(i, j int) bool {
		return fset.File(sorted[i].Pos()).Name() < fset.File(sorted[j].Pos()).Name()
	})

	for _, file := range sorted {
		ast.Inspect(file, func(n ast.Node) bool {
			switch node := n.(type) {
			case *ast.TypeSpec:
				if st, ok := node.Type.(*ast.StructType); ok {
					p.collectFields(pkg, fset, info, node, st)
				}
			case *ast.FuncDecl:
				if node.Recv != nil {
					p.collectMethod(pkg, fset, info, node)
				}
			}
			return true
		})
	}
}

func (p *Parser) collectFields(pkg *model.Package, fset *token.FileSet, info *types.Info, ts *ast.TypeSpec, st *ast.StructType) {
	if st.Fields == nil {
		return
	}
	obj, _ := info.Defs[ts.Name].(*types.TypeName)
	if obj == nil {
		if p.anyMarked(st) {
			p.reporter.Report(diag.Diagnostic{
				Severity: diag.SeverityError,
				Package:  pkg.Path,
				Type:     ts.Name.Name,
				Pos:      fset.Position(ts.Pos()),
				Err:      errors.Newf("type %s has no resolved object", ts.Name.Name),
			})
		}
		return
	}
	// type A = struct{...} declares no named type to hang accessors on
	if obj.IsAlias() {
		return
	}
	strct, ok := obj.Type().Underlying().(*types.Struct)
	if !ok {
		return
	}
	vars := make(map[string]*types.Var, strct.NumFields())
	for i := 0; i < strct.NumFields(); i++ {
		vars[strct.Field(i).Name()] = strct.Field(i)
	}

	for _, field := range st.Fields.List {
		marker, ok, err := p.fieldMarker(field)
		if !ok && err == nil {
			continue
		}

		names := fieldNames(field)
		for _, name := range names {
			pos := fset.Position(field.Pos())
			if err != nil {
				p.reporter.Report(diag.Diagnostic{
					Severity: diag.SeverityError,
					Package:  pkg.Path,
					Type:     obj.Name(),
					Member:   name,
					Pos:      pos,
					Err:      err,
				})
				continue
			}
			if name == "_" {
				p.logger.Debug("skipping blank field", "type", obj.Name(), "pos", pos.String())
				continue
			}
			v := vars[name]
			if v == nil {
				p.reporter.Report(diag.Diagnostic{
					Severity: diag.SeverityError,
					Package:  pkg.Path,
					Type:     obj.Name(),
					Member:   name,
					Pos:      pos,
					Err:      errors.Newf("field %s.%s has no resolved object", obj.Name(), name),
				})
				continue
			}
			p.add(pkg, obj, &model.AnnotatedMember{
				Name:   name,
				Kind:   model.MemberField,
				Type:   v.Type(),
				Marker: marker,
				Pos:    pos,
			})
		}
	}
}

func (p *Parser) collectMethod(pkg *model.Package, fset *token.FileSet, info *types.Info, fd *ast.FuncDecl) {
	if _, ok := markerFromDirective(fd.Doc, p.Opts.Directive); !ok {
		return
	}
	pos := fset.Position(fd.Pos())
	fn, _ := info.Defs[fd.Name].(*types.Func)
	if fn == nil {
		p.reporter.Report(diag.Diagnostic{
			Severity: diag.SeverityError,
			Package:  pkg.Path,
			Member:   fd.Name.Name,
			Pos:      pos,
			Err:      errors.Newf("method %s has no resolved object", fd.Name.Name),
		})
		return
	}
	sig := fn.Type().(*types.Signature)
	named, ok := deref(sig.Recv().Type()).(*types.Named)
	if !ok {
		p.reporter.Report(diag.Diagnostic{
			Severity: diag.SeverityError,
			Package:  pkg.Path,
			Member:   fd.Name.Name,
			Pos:      pos,
			Err:      errors.Newf("method %s has an unsupported receiver %s", fd.Name.Name, sig.Recv().Type()),
		})
		return
	}
	if fd.Name.Name == "_" {
		return
	}
	p.add(pkg, named.Origin().Obj(), &model.AnnotatedMember{
		Name:      fd.Name.Name,
		Kind:      model.MemberMethod,
		Signature: sig,
		Pos:       pos,
	})
}

// fieldMarker checks the struct tag first, then the doc and line comments.
func (p *Parser) fieldMarker(field *ast.Field) (model.Marker, bool, error) {
	if field.Tag != nil {
		m, ok, err := markerFromTag(field.Tag.Value, p.Opts.MarkerTag)
		if ok || err != nil {
			return m, ok, err
		}
	}
	for _, cg := range []*ast.CommentGroup{field.Doc, field.Comment} {
		if opts, ok := markerFromDirective(cg, p.Opts.Directive); ok {
			m, err := ParseMarkerOptions(opts)
			return m, true, err
		}
	}
	return model.Marker{}, false, nil
}

func (p *Parser) anyMarked(st *ast.StructType) bool {
	for _, field := range st.Fields.List {
		if _, ok, err := p.fieldMarker(field); ok || err != nil {
			return true
		}
	}
	return false
}

func (p *Parser) add(pkg *model.Package, obj *types.TypeName, m *model.AnnotatedMember) {
	if p.Opts.Excluded(obj.Name()) {
		p.logger.Debug("type excluded", "type", obj.Name(), "member", m.Name)
		return
	}
	et, ok := p.byObject[obj]
	if !ok {
		et = &model.EnclosingType{
			Name:       obj.Name(),
			Package:    pkg,
			Visibility: visibilityOf(obj),
			Object:     obj,
		}
		p.byObject[obj] = et
		p.Types = append(p.Types, et)
	}
	et.Members = append(et.Members, m)
}

// Build turns the collected types into companions.
func (p *Parser) Build() []*model.Companion {
	p.Companions = NewBuilder(&p.Opts, p.Types, p.reporter, p.logger).BuildAll()
	return p.Companions
}

func visibilityOf(obj *types.TypeName) model.Visibility {
	if obj.Pkg() != nil && obj.Parent() != obj.Pkg().Scope() {
		return model.VisibilityPrivate
	}
	if obj.Exported() {
		return model.VisibilityPublic
	}
	return model.VisibilityPackage
}

// fieldNames returns the declared names, or the implicit name of an embedded field.
func fieldNames(f *ast.Field) []string {
	if len(f.Names) == 0 {
		if n := embeddedFieldName(f.Type); n != "" {
			return []string{n}
		}
		return nil
	}
	names := make([]string, 0, len(f.Names))
	for _, n := range f.Names {
		names = append(names, n.Name)
	}
	return names
}

func embeddedFieldName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return embeddedFieldName(t.X)
	case *ast.SelectorExpr:
		return t.Sel.Name
	case *ast.IndexExpr:
		return embeddedFieldName(t.X)
	case *ast.IndexListExpr:
		return embeddedFieldName(t.X)
	}
	return ""
}

func deref(t types.Type) types.Type {
	t = types.Unalias(t)
	if ptr, ok := t.(*types.Pointer); ok {
		return types.Unalias(ptr.Elem())
	}
	return t
}
