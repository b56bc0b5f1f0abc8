package verify

import (
	"context"
	"log/slog"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"

	"github.com/cmmoran/testablegen/internal/diag"
	"github.com/cmmoran/testablegen/internal/emitter"
	iparser "github.com/cmmoran/testablegen/internal/parser"
	"github.com/cmmoran/testablegen/pkg/manifest"
	"github.com/cmmoran/testablegen/pkg/parser"
)

// Drift is a companion whose file on disk differs from what would be generated.
type Drift struct {
	File    string
	Missing bool
	Diff    string
}

type Report struct {
	Drift       []Drift
	Stale       []string
	Diagnostics []diag.Diagnostic
}

// Clean reports whether disk matches a fresh generation round.
func (r *Report) Clean() bool {
	return len(r.Drift) == 0 && len(r.Stale) == 0
}

// Verify regenerates every companion in memory and diffs it against disk.
// Nothing is written.
func Verify(ctx context.Context, opts *parser.Options, logger *slog.Logger) (*Report, error) {
	if logger == nil {
		logger = slog.Default()
	}
	collector := diag.NewCollector(logger)

	par, err := iparser.NewWithOpts(opts, collector, logger)
	if err != nil {
		return nil, err
	}
	w := emitter.NewWriter(&par.Opts, collector, logger)
	if !w.Enabled() {
		return &Report{Diagnostics: collector.Diagnostics()}, errors.New("output directory unavailable")
	}
	if err = par.Parse(ctx); err != nil {
		return nil, err
	}

	rep := &Report{}
	for _, c := range par.Companions {
		path, want, err := w.Expect(c)
		if err != nil {
			collector.Report(diag.Diagnostic{
				Severity: diag.SeverityError,
				Package:  c.Enclosing.Package.Path,
				Type:     c.Enclosing.Name,
				Err:      err,
			})
			continue
		}
		got, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			rep.Drift = append(rep.Drift, Drift{File: path, Missing: true})
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", path)
		}
		if diff := cmp.Diff(string(got), string(want)); diff != "" {
			rep.Drift = append(rep.Drift, Drift{File: path, Diff: diff})
		}
	}

	if par.Opts.Prune {
		if rep.Stale, err = w.Stale(par.Packages); err != nil {
			return nil, err
		}
	}
	rep.Diagnostics = collector.Diagnostics()
	return rep, nil
}

// List returns the companions recorded in the manifest.
func List(manifestPath string) (*manifest.Manifest, error) {
	if manifestPath == "" {
		return nil, errors.WithHint(errors.New("no manifest configured"), "set manifest in config.yaml or pass --manifest")
	}
	return manifest.Load(manifestPath)
}
