package emitter

import (
	"bufio"
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/cmmoran/testablegen/internal/diag"
	"github.com/cmmoran/testablegen/internal/model"
	options "github.com/cmmoran/testablegen/pkg/parser"
)

var (
	ErrDuplicateFile = errors.New("companion file already written this round")
	ErrNotGenerated  = errors.New("file at companion path was not generated")
)

// Writer places rendered companions on disk. The output root is resolved once,
// in NewWriter; a failure there disables the whole round.
type Writer struct {
	opts    *options.Options
	logger  *slog.Logger
	enabled bool
	written map[string]string // path -> companion name
}

func NewWriter(opts *options.Options, reporter diag.Reporter, logger *slog.Logger) *Writer {
	if reporter == nil {
		reporter = diag.Discard{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	w := &Writer{
		opts:    opts,
		logger:  logger,
		enabled: true,
		written: make(map[string]string),
	}
	if opts.OutDir == "" {
		return w
	}
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		w.enabled = false
		reporter.Report(diag.Diagnostic{
			Severity: diag.SeverityError,
			Err: errors.WithHint(
				errors.Wrapf(err, "cannot use output directory %s", opts.OutDir),
				"generation is disabled for this run; fix out_dir or leave it empty"),
		})
	}
	return w
}

func (w *Writer) Enabled() bool {
	return w.enabled
}

// Dir is the directory companions of pkg are written to.
func (w *Writer) Dir(pkg *model.Package) string {
	if w.opts.OutDir == "" {
		return pkg.Dir
	}
	return filepath.Join(w.opts.OutDir, filepath.FromSlash(pkg.Path))
}

func (w *Writer) Path(c *model.Companion) string {
	return filepath.Join(w.Dir(c.Enclosing.Package), c.FileName)
}

// Expect renders c and claims its path for this round without touching disk.
func (w *Writer) Expect(c *model.Companion) (string, []byte, error) {
	if !w.enabled {
		return "", nil, errors.New("writer is disabled")
	}
	path := w.Path(c)
	if other, ok := w.written[path]; ok {
		return "", nil, errors.WithHint(
			errors.Wrapf(ErrDuplicateFile, "%s and %s both map to %s", other, c.Name, path),
			"rename one of the types or change file_suffix")
	}

	src, err := Bytes(c)
	if err != nil {
		return "", nil, err
	}
	w.written[path] = c.Name
	return path, src, nil
}

// Emit renders c and writes it. Unchanged files are left untouched, and a file
// at the same path without the generated header is never overwritten.
func (w *Writer) Emit(c *model.Companion) (string, error) {
	path, src, err := w.Expect(c)
	if err != nil {
		return "", err
	}

	if old, err := os.ReadFile(path); err == nil {
		if bytes.Equal(old, src) {
			w.logger.Debug("companion unchanged", "file", path)
			return path, nil
		}
		if line, _, _ := bytes.Cut(old, []byte("\n")); !isHeader(string(line)) {
			return "", errors.WithHint(
				errors.Wrapf(ErrNotGenerated, "%s would overwrite %s", c.Name, path),
				"rename the hand-written file or change file_suffix")
		}
	}
	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", errors.Wrapf(err, "create %s", filepath.Dir(path))
	}
	if err = os.WriteFile(path, src, 0o644); err != nil {
		return "", errors.Wrapf(err, "write %s", path)
	}
	w.logger.Info("companion written", "companion", c.Name, "file", path)
	return path, nil
}

// Written lists the files produced this round, sorted.
func (w *Writer) Written() []string {
	out := make([]string, 0, len(w.written))
	for p := range w.written {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Stale lists generated companions in the directories of pkgs that were not
// produced this round.
func (w *Writer) Stale(pkgs []*model.Package) ([]string, error) {
	var stale []string
	seen := make(map[string]bool)
	for _, pkg := range pkgs {
		dir := w.Dir(pkg)
		if seen[dir] {
			continue
		}
		seen[dir] = true

		matches, err := filepath.Glob(filepath.Join(dir, "*"+w.opts.FileSuffix))
		if err != nil {
			return nil, errors.Wrapf(err, "scan %s", dir)
		}
		for _, m := range matches {
			if _, ok := w.written[m]; ok {
				continue
			}
			gen, err := IsGenerated(m)
			if err != nil {
				return nil, err
			}
			if gen {
				stale = append(stale, m)
			}
		}
	}
	sort.Strings(stale)
	return stale, nil
}

// Prune removes stale companions and returns what it removed.
func (w *Writer) Prune(pkgs []*model.Package) ([]string, error) {
	stale, err := w.Stale(pkgs)
	if err != nil {
		return nil, err
	}
	for _, path := range stale {
		if err = os.Remove(path); err != nil {
			return nil, errors.Wrapf(err, "prune %s", path)
		}
		w.logger.Info("stale companion removed", "file", path)
	}
	return stale, nil
}

// IsGenerated reports whether the first line of path is the companion header.
func IsGenerated(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		return false, errors.Wrapf(sc.Err(), "read %s", path)
	}
	return isHeader(sc.Text()), nil
}

func isHeader(line string) bool {
	return strings.TrimSpace(line) == "// "+Header
}
