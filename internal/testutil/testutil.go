// Package testutil provides fixtures for testablegen tests: in-memory
// type-checked packages and txtar archives written out as temporary modules.
package testutil

import (
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"

	"github.com/cmmoran/testablegen/internal/model"
)

// FixturePath is the import path given to packages checked with Check.
const FixturePath = "example.com/fixture"

// Fixture is one type-checked package.
type Fixture struct {
	Fset    *token.FileSet
	Files   []*ast.File
	Info    *types.Info
	Types   *types.Package
	Package *model.Package
}

// Check parses and type-checks files (name -> source) as a single package.
// Standard library imports are resolved from source.
func Check(t testing.TB, files map[string]string) *Fixture {
	t.Helper()
	return CheckPath(t, FixturePath, files)
}

// CheckPath is Check for an arbitrary import path. Packages in extra can be
// imported by their path; everything else comes from the standard library.
func CheckPath(t testing.TB, path string, files map[string]string, extra ...*types.Package) *Fixture {
	t.Helper()

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	fset := token.NewFileSet()
	parsed := make([]*ast.File, 0, len(names))
	for _, name := range names {
		f, err := parser.ParseFile(fset, name, files[name], parser.ParseComments)
		require.NoError(t, err, "parse %s", name)
		parsed = append(parsed, f)
	}

	info := &types.Info{
		Types:     make(map[ast.Expr]types.TypeAndValue),
		Defs:      make(map[*ast.Ident]types.Object),
		Uses:      make(map[*ast.Ident]types.Object),
		Instances: make(map[*ast.Ident]types.Instance),
	}
	imp := &extraImporter{
		fallback: importer.ForCompiler(fset, "source", nil),
		pkgs:     make(map[string]*types.Package, len(extra)),
	}
	for _, p := range extra {
		imp.pkgs[p.Path()] = p
	}
	conf := types.Config{Importer: imp}
	pkg, err := conf.Check(path, fset, parsed, info)
	require.NoError(t, err, "type-check %s", path)

	return &Fixture{
		Fset:  fset,
		Files: parsed,
		Info:  info,
		Types: pkg,
		Package: &model.Package{
			Path: path,
			Name: pkg.Name(),
			Dir:  t.TempDir(),
		},
	}
}

type extraImporter struct {
	fallback types.Importer
	pkgs     map[string]*types.Package
}

func (i *extraImporter) Import(path string) (*types.Package, error) {
	if p, ok := i.pkgs[path]; ok {
		return p, nil
	}
	return i.fallback.Import(path)
}

// Archive parses a txtar archive held in a string into name -> content.
func Archive(t testing.TB, data string) map[string]string {
	t.Helper()
	return archiveFiles(txtar.Parse([]byte(data)))
}

// LoadArchive reads a txtar file from disk into name -> content.
func LoadArchive(t testing.TB, path string) map[string]string {
	t.Helper()
	ar, err := txtar.ParseFile(path)
	require.NoError(t, err, "parse %s", path)
	return archiveFiles(ar)
}

func archiveFiles(ar *txtar.Archive) map[string]string {
	out := make(map[string]string, len(ar.Files))
	for _, f := range ar.Files {
		out[f.Name] = string(f.Data)
	}
	return out
}

// WriteTree writes files below dir, creating directories as needed.
func WriteTree(t testing.TB, dir string, files map[string]string) {
	t.Helper()
	for name, data := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	}
}

// Module writes a txtar archive from testdata into a fresh temporary directory
// and returns that directory. The archive is expected to carry its own go.mod.
func Module(t testing.TB, archive string) string {
	t.Helper()
	dir := t.TempDir()
	WriteTree(t, dir, LoadArchive(t, archive))
	return dir
}
