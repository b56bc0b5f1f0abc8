package parser

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"golang.org/x/mod/modfile"
)

var ErrNoModule = errors.New("no go.mod found")

// Module is the main module enclosing the scanned directory.
type Module struct {
	Root string // directory holding go.mod
	Path string // module path from the module directive
}

// FindModule walks up from dir until it finds go.mod and reads its module path.
func FindModule(dir string) (*Module, error) {
	from, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", dir)
	}
	for {
		gomod := filepath.Join(from, "go.mod")
		if _, err = os.Stat(gomod); err == nil {
			data, err := os.ReadFile(gomod)
			if err != nil {
				return nil, errors.Wrapf(err, "read %s", gomod)
			}
			path := modfile.ModulePath(data)
			if path == "" {
				return nil, errors.Newf("%s has no module directive", gomod)
			}
			return &Module{Root: from, Path: path}, nil
		}
		parent := filepath.Dir(from)
		if parent == from {
			return nil, errors.WithHint(errors.Wrapf(ErrNoModule, "above %s", dir),
				"run testablegen inside a Go module")
		}
		from = parent
	}
}

// Rel returns path relative to the module root, slash separated. Paths outside
// the module are returned unchanged.
func (m *Module) Rel(path string) string {
	if m == nil {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(m.Root, path)
	if err != nil || rel == ".." || filepath.IsAbs(rel) || len(rel) > 2 && rel[:3] == ".."+string(filepath.Separator) {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
