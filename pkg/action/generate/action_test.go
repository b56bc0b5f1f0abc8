package generate

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmmoran/testablegen/internal/diag"
	"github.com/cmmoran/testablegen/internal/emitter"
	"github.com/cmmoran/testablegen/internal/testutil"
	"github.com/cmmoran/testablegen/pkg/manifest"
	"github.com/cmmoran/testablegen/pkg/parser"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func moduleOpts(dir string, opts ...parser.Option) *parser.Options {
	return parser.NewOptions(append([]parser.Option{
		parser.WithInDir(dir),
		parser.WithPatterns("./..."),
	}, opts...)...)
}

func TestGenerate(t *testing.T) {
	dir := testutil.Module(t, filepath.Join("testdata", "module.txtar"))
	manifestPath := filepath.Join(dir, "testable.yaml")

	res, err := Generate(context.Background(), moduleOpts(dir, parser.WithManifest(manifestPath)), quietLogger())
	require.NoError(t, err)
	assert.Empty(t, res.Diagnostics)

	companion := filepath.Join(dir, "shapes", "circle_testable_test.go")
	assert.Equal(t, []string{companion}, res.Written)
	assert.Equal(t, []string{filepath.Join(dir, "shapes", "square_testable_test.go")}, res.Pruned)

	src, err := os.ReadFile(companion)
	require.NoError(t, err)
	assert.Contains(t, string(src), "func TestableCircleRadius[")
	assert.Contains(t, string(src), "func TestableCircleArea[")
	assert.NotContains(t, string(src), "SetRadius")

	assert.NoFileExists(t, filepath.Join(dir, "shapes", "square_testable_test.go"))
	assert.FileExists(t, filepath.Join(dir, "shapes", "notes_testable_test.go"))

	m, err := manifest.Load(manifestPath)
	require.NoError(t, err)
	assert.Equal(t, "example.com/shapes", m.Module)
	assert.Equal(t, []manifest.Entry{{
		Package:   "example.com/shapes/shapes",
		Type:      "Circle",
		Companion: "TestableCircle",
		File:      "shapes/circle_testable_test.go",
	}}, m.Entries)
	assert.Equal(t, []string{"shapes/square_testable_test.go"}, m.Pruned)
}

func TestGenerateIsStable(t *testing.T) {
	dir := testutil.Module(t, filepath.Join("testdata", "module.txtar"))

	_, err := Generate(context.Background(), moduleOpts(dir), quietLogger())
	require.NoError(t, err)
	companion := filepath.Join(dir, "shapes", "circle_testable_test.go")
	first, err := os.ReadFile(companion)
	require.NoError(t, err)

	res, err := Generate(context.Background(), moduleOpts(dir), quietLogger())
	require.NoError(t, err)
	assert.Empty(t, res.Pruned)

	second, err := os.ReadFile(companion)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestGenerateWithoutPrune(t *testing.T) {
	dir := testutil.Module(t, filepath.Join("testdata", "module.txtar"))

	res, err := Generate(context.Background(), moduleOpts(dir, parser.WithPrune(false)), quietLogger())
	require.NoError(t, err)
	assert.Empty(t, res.Pruned)
	assert.FileExists(t, filepath.Join(dir, "shapes", "square_testable_test.go"))
}

func TestGenerateOutDir(t *testing.T) {
	dir := testutil.Module(t, filepath.Join("testdata", "module.txtar"))
	out := filepath.Join(t.TempDir(), "gen")

	res, err := Generate(context.Background(), moduleOpts(dir, parser.WithOutDir(out)), quietLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(out, "example.com", "shapes", "shapes", "circle_testable_test.go")}, res.Written)
	assert.Empty(t, res.Pruned)
	assert.NoFileExists(t, filepath.Join(dir, "shapes", "circle_testable_test.go"))
}

func TestGenerateDiagnostics(t *testing.T) {
	dir := testutil.Module(t, filepath.Join("testdata", "broken.txtar"))

	res, err := Generate(context.Background(), moduleOpts(dir), quietLogger())
	require.NoError(t, err)
	require.Len(t, res.Diagnostics, 1)
	d := res.Diagnostics[0]
	assert.Equal(t, diag.SeverityError, d.Severity)
	assert.Equal(t, "example.com/broken/wide.Wide.four", d.Subject())

	src, err := os.ReadFile(filepath.Join(dir, "wide", "wide_testable_test.go"))
	require.NoError(t, err)
	assert.Contains(t, string(src), "func TestableWideN[")
	assert.NotContains(t, string(src), "Four")

	_, err = Generate(context.Background(), moduleOpts(dir, parser.WithStrict()), quietLogger())
	assert.True(t, errors.Is(err, ErrDiagnostics))
}

func TestGenerateKeepsHandwrittenCompanion(t *testing.T) {
	dir := testutil.Module(t, filepath.Join("testdata", "module.txtar"))
	path := filepath.Join(dir, "shapes", "circle_testable_test.go")
	mine := "package shapes\n\nfunc mine() {}\n"
	require.NoError(t, os.WriteFile(path, []byte(mine), 0o644))

	res, err := Generate(context.Background(), moduleOpts(dir), quietLogger())
	require.NoError(t, err)
	assert.Empty(t, res.Written)

	require.Len(t, res.Diagnostics, 1)
	d := res.Diagnostics[0]
	assert.Equal(t, diag.SeverityError, d.Severity)
	assert.Equal(t, "example.com/shapes/shapes.Circle", d.Subject())
	assert.True(t, errors.Is(d.Err, emitter.ErrNotGenerated))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, mine, string(got))
	assert.NoFileExists(t, filepath.Join(dir, "shapes", "square_testable_test.go"))
}

func TestGenerateDisabledWriter(t *testing.T) {
	dir := testutil.Module(t, filepath.Join("testdata", "module.txtar"))
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	res, err := Generate(context.Background(), moduleOpts(dir, parser.WithOutDir(filepath.Join(blocker, "gen"))), quietLogger())
	require.NoError(t, err)
	assert.Empty(t, res.Written)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, diag.SeverityError, res.Diagnostics[0].Severity)
	assert.FileExists(t, filepath.Join(dir, "shapes", "square_testable_test.go"))
}

func TestGenerateLoadFailure(t *testing.T) {
	_, err := Generate(context.Background(), moduleOpts(filepath.Join(t.TempDir(), "missing")), quietLogger())
	assert.Error(t, err)
}
