package generate

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"

	"github.com/cmmoran/testablegen/internal/diag"
	"github.com/cmmoran/testablegen/internal/emitter"
	iparser "github.com/cmmoran/testablegen/internal/parser"
	"github.com/cmmoran/testablegen/pkg/manifest"
	"github.com/cmmoran/testablegen/pkg/parser"
)

// ErrDiagnostics is returned in strict mode when the round reported errors.
var ErrDiagnostics = errors.New("generation reported errors")

// Result summarizes one generation round.
type Result struct {
	Written     []string
	Pruned      []string
	Entries     []manifest.Entry
	Diagnostics []diag.Diagnostic
}

// Generate runs one round: parse, emit every companion, prune stale ones and
// record the manifest. Only a failing package load (or strict mode) returns an
// error; everything else ends up in Result.Diagnostics.
func Generate(ctx context.Context, opts *parser.Options, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	collector := diag.NewCollector(logger)
	res := &Result{}

	par, err := iparser.NewWithOpts(opts, collector, logger)
	if err != nil {
		return nil, err
	}

	w := emitter.NewWriter(&par.Opts, collector, logger)
	if !w.Enabled() {
		res.Diagnostics = collector.Diagnostics()
		return res, strict(&par.Opts, collector)
	}

	if err = par.Parse(ctx); err != nil {
		return nil, err
	}

	for _, c := range par.Companions {
		path, err := w.Emit(c)
		if err != nil {
			collector.Report(diag.Diagnostic{
				Severity: diag.SeverityError,
				Package:  c.Enclosing.Package.Path,
				Type:     c.Enclosing.Name,
				Err:      err,
			})
			continue
		}
		res.Written = append(res.Written, path)
		res.Entries = append(res.Entries, manifest.Entry{
			Package:   c.Enclosing.Package.Path,
			Type:      c.Enclosing.Name,
			Companion: c.Name,
			File:      par.Module.Rel(path),
		})
	}

	if par.Opts.Prune {
		pruned, err := w.Prune(par.Packages)
		if err != nil {
			collector.Report(diag.Diagnostic{Severity: diag.SeverityWarning, Err: err})
		}
		res.Pruned = pruned
	}

	if par.Opts.Manifest != "" {
		if err = saveManifest(par, res); err != nil {
			collector.Report(diag.Diagnostic{Severity: diag.SeverityError, Err: err})
		}
	}

	logger.Info("generation finished",
		"companions", len(res.Written),
		"pruned", len(res.Pruned),
		"diagnostics", len(collector.Diagnostics()))

	res.Diagnostics = collector.Diagnostics()
	return res, strict(&par.Opts, collector)
}

func saveManifest(par *iparser.Parser, res *Result) error {
	m, err := manifest.Load(par.Opts.Manifest)
	if err != nil {
		return err
	}
	if par.Module != nil {
		m.Module = par.Module.Path
	}
	pruned := make([]string, 0, len(res.Pruned))
	for _, p := range res.Pruned {
		pruned = append(pruned, par.Module.Rel(p))
	}
	m.Replace(res.Entries, pruned)
	return m.Save(par.Opts.Manifest)
}

func strict(opts *parser.Options, c *diag.Collector) error {
	if opts.Strict && c.HasErrors() {
		return ErrDiagnostics
	}
	return nil
}
