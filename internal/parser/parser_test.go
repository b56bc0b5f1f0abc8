package parser

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmmoran/testablegen/internal/diag"
	"github.com/cmmoran/testablegen/internal/testutil"
	options "github.com/cmmoran/testablegen/pkg/parser"
)

func parseModule(t *testing.T, archive string, opts ...options.Option) (*Parser, *diag.Collector, string) {
	t.Helper()
	dir := testutil.Module(t, filepath.Join("testdata", archive))
	collector := diag.NewCollector(quietLogger())
	p, err := NewWithOpts(options.NewOptions(append([]options.Option{
		options.WithInDir(dir),
		options.WithPatterns("./..."),
	}, opts...)...), collector, quietLogger())
	require.NoError(t, err)
	require.NoError(t, p.Parse(context.Background()))
	return p, collector, dir
}

func TestParse(t *testing.T) {
	p, collector, dir := parseModule(t, "module.txtar")

	require.NotNil(t, p.Module)
	assert.Equal(t, "example.com/shapes", p.Module.Path)

	var paths []string
	for _, pkg := range p.Packages {
		paths = append(paths, pkg.Path)
	}
	assert.Equal(t, []string{"example.com/shapes/plain", "example.com/shapes/shapes"}, paths)

	require.Len(t, p.Companions, 1)
	c := p.Companions[0]
	assert.Equal(t, "TestableCircle", c.Name)
	assert.Equal(t, filepath.Join(dir, "shapes"), c.Enclosing.Package.Dir)
	assert.Equal(t, []string{
		"TestableCircleRadius",
		"TestableCircleSetRadius",
		"TestableCircleClearRadius",
		"TestableCircleArea",
	}, funcNames(c))

	require.NotEmpty(t, collector.Diagnostics())
	for _, d := range collector.Diagnostics() {
		assert.Equal(t, "example.com/shapes/broken", d.Package)
		assert.Equal(t, diag.SeverityError, d.Severity)
	}
	assert.True(t, collector.HasErrors())
}

func TestParseToleratesGeneratedErrors(t *testing.T) {
	p, collector, _ := parseModule(t, "generated_errors.txtar", options.WithFileSuffix("_testable.go"))

	require.Len(t, p.Companions, 1)
	assert.Equal(t, []string{"TestableThingName"}, funcNames(p.Companions[0]))

	require.NotEmpty(t, collector.Diagnostics())
	for _, d := range collector.Diagnostics() {
		assert.Equal(t, diag.SeverityWarning, d.Severity)
	}
	assert.False(t, collector.HasErrors())
}

func TestParseLoadFailure(t *testing.T) {
	p, err := NewWithOpts(options.NewOptions(
		options.WithInDir(filepath.Join(t.TempDir(), "missing")),
	), nil, quietLogger())
	require.NoError(t, err)

	assert.Error(t, p.Parse(context.Background()))
	assert.Empty(t, p.Companions)
}

func TestNew(t *testing.T) {
	p, err := New(options.WithPrefix("Peek"))
	require.NoError(t, err)
	assert.Equal(t, "Peek", p.Opts.Prefix)
	assert.Equal(t, options.DefaultFileSuffix, p.Opts.FileSuffix)

	_, err = New(options.WithFileSuffix("_testable.txt"))
	assert.Error(t, err)
}
