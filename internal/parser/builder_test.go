package parser

import (
	"io"
	"log/slog"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmmoran/testablegen/internal/diag"
	"github.com/cmmoran/testablegen/internal/model"
	"github.com/cmmoran/testablegen/internal/testutil"
	options "github.com/cmmoran/testablegen/pkg/parser"
)

const fixtureSrc = `package fixture

type PublicType struct {
	markers map[string]float64 ` + "`testable:\"\"`" + `
	name    string ` + "`testable:\"getter\"`" + `
	ignored int
}

//testable:expose
func (p *PublicType) multiplySum(multiplier float64, values ...float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum * multiplier
}

//testable:expose
func (p *PublicType) callMethodWithLowVisibilityReturnType() []packageType {
	return nil
}

func (p *PublicType) unmarked() {}

type packageType struct {
	//testable:expose clearer
	count int
}

type Pair[K comparable, V any] struct {
	key K ` + "`testable:\"getter\"`" + `
	val V
}

//testable:expose
func (p *Pair[A, B]) swap(instance B, _ A) (B, A) {
	var a A
	return instance, a
}

func local() int {
	type hidden struct {
		v int ` + "`testable:\"\"`" + `
	}
	return hidden{}.v
}

type Many struct{}

//testable:expose
func (Many) four() (int, int, int, int) { return 0, 0, 0, 0 }

type Bad struct {
	x int ` + "`testable:\"bogus\"`" + `
}
`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func collect(t *testing.T, files map[string]string, opts ...options.Option) (*Parser, *diag.Collector) {
	t.Helper()
	fx := testutil.Check(t, files)
	collector := diag.NewCollector(quietLogger())
	p, err := NewWithOpts(options.NewOptions(opts...), collector, quietLogger())
	require.NoError(t, err)
	p.Collect(fx.Package, fx.Fset, fx.Files, fx.Info)
	p.Build()
	return p, collector
}

func companionNames(cs []*model.Companion) []string {
	var out []string
	for _, c := range cs {
		out = append(out, c.Name)
	}
	return out
}

func funcNames(c *model.Companion) []string {
	var out []string
	for _, a := range c.Accessors {
		out = append(out, a.FuncName)
	}
	return out
}

func paramNames(a *model.Accessor) []string {
	var out []string
	for _, p := range a.Params {
		out = append(out, p.Name)
	}
	return out
}

func typeParamNames(a *model.Accessor) []string {
	var out []string
	for _, tp := range a.TypeParams {
		out = append(out, tp.Obj().Name())
	}
	return out
}

func find(t *testing.T, cs []*model.Companion, name string) *model.Companion {
	t.Helper()
	for _, c := range cs {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("companion %s not found in %v", name, companionNames(cs))
	return nil
}

func TestBuildAll(t *testing.T) {
	p, collector := collect(t, map[string]string{"fixture.go": fixtureSrc})

	want := []string{"TestablePublicType", "testablePackageType", "TestablePair"}
	if diff := cmp.Diff(want, companionNames(p.Companions)); diff != "" {
		t.Fatalf("companions mismatch (-want +got):\n%s", diff)
	}

	t.Run("public type", func(t *testing.T) {
		c := find(t, p.Companions, "TestablePublicType")
		assert.True(t, c.Exported)
		assert.Equal(t, "public_type_testable_test.go", c.FileName)
		assert.Equal(t, model.VisibilityPublic, c.Enclosing.Visibility)
		assert.Equal(t, []string{
			"TestablePublicTypeMarkers",
			"TestablePublicTypeSetMarkers",
			"TestablePublicTypeClearMarkers",
			"TestablePublicTypeName",
			"TestablePublicTypeMultiplySum",
			"TestablePublicTypeCallMethodWithLowVisibilityReturnType",
		}, funcNames(c))

		getter := c.Accessors[0]
		assert.Equal(t, model.AccessorGetter, getter.Kind)
		assert.Equal(t, "I", getter.InstanceParam)
		assert.Equal(t, []string{"instance"}, paramNames(getter))
		require.Len(t, getter.Results, 1)
		assert.Equal(t, "map[string]float64", getter.Results[0].String())
		assert.False(t, getter.Fluent)

		setter := c.Accessors[1]
		assert.Equal(t, "setMarkers", setter.Name)
		assert.Equal(t, []string{"instance", "value"}, paramNames(setter))
		assert.True(t, setter.Fluent)

		clearer := c.Accessors[2]
		assert.Equal(t, "clearMarkers", clearer.Name)
		assert.True(t, clearer.Fluent)
		assert.Empty(t, clearer.Args())

		sum := c.Accessors[4]
		assert.Equal(t, model.AccessorInvoker, sum.Kind)
		assert.Equal(t, []string{"instance", "multiplier", "values"}, paramNames(sum))
		assert.False(t, sum.Params[1].Variadic)
		assert.True(t, sum.Params[2].Variadic)
		assert.Equal(t, "[]float64", sum.Params[2].Type.String())
		require.Len(t, sum.Results, 1)
		assert.Equal(t, "float64", sum.Results[0].String())
	})

	t.Run("package type", func(t *testing.T) {
		c := find(t, p.Companions, "testablePackageType")
		assert.False(t, c.Exported)
		assert.Equal(t, model.VisibilityPackage, c.Enclosing.Visibility)
		assert.Equal(t, []string{"testablePackageTypeClearCount"}, funcNames(c))
	})

	t.Run("generic type", func(t *testing.T) {
		c := find(t, p.Companions, "TestablePair")
		require.Len(t, c.Accessors, 2)

		key := c.Accessors[0]
		assert.Equal(t, "TestablePairKey", key.FuncName)
		assert.Equal(t, []string{"K", "V"}, typeParamNames(key))

		swap := c.Accessors[1]
		assert.Equal(t, "TestablePairSwap", swap.FuncName)
		assert.Equal(t, []string{"A", "B"}, typeParamNames(swap), "receiver type parameter names win")
		assert.Equal(t, []string{"instance", "instance1", "arg1"}, paramNames(swap))
		assert.Len(t, swap.Results, 2)
	})

	t.Run("diagnostics", func(t *testing.T) {
		var members []string
		for _, d := range collector.Diagnostics() {
			assert.Equal(t, diag.SeverityError, d.Severity)
			members = append(members, d.Type+"."+d.Member)
		}
		assert.ElementsMatch(t, []string{"Bad.x", "Many.four"}, members)

		for _, d := range collector.Diagnostics() {
			if d.Member == "four" {
				assert.True(t, errors.Is(d.Err, ErrTooManyResults))
			}
			if d.Member == "x" {
				assert.True(t, errors.Is(d.Err, ErrInvalidMarker))
			}
		}
	})

	t.Run("private types skipped", func(t *testing.T) {
		var private []string
		for _, et := range p.Types {
			if et.Visibility == model.VisibilityPrivate {
				private = append(private, et.Name)
			}
		}
		assert.Equal(t, []string{"hidden"}, private)
	})
}

func TestBuildDuplicateNames(t *testing.T) {
	src := `package fixture

type Dup struct {
	x    int ` + "`testable:\"setter\"`" + `
	setX int ` + "`testable:\"getter\"`" + `
}
`
	p, collector := collect(t, map[string]string{"dup.go": src})

	require.Len(t, p.Companions, 1)
	assert.Equal(t, []string{"TestableDupSetX"}, funcNames(p.Companions[0]))
	assert.Equal(t, "x", p.Companions[0].Accessors[0].Member.Name, "first member wins")

	require.Len(t, collector.Diagnostics(), 1)
	d := collector.Diagnostics()[0]
	assert.Equal(t, "setX", d.Member)
	assert.True(t, errors.Is(d.Err, ErrDuplicateName))
}

func TestBuildDuplicateNamesAcrossTypes(t *testing.T) {
	src := `package fixture

type A struct {
	bC int ` + "`testable:\"getter\"`" + `
	x  int ` + "`testable:\"getter\"`" + `
}

type AB struct {
	c int ` + "`testable:\"getter\"`" + `
	d int ` + "`testable:\"getter\"`" + `
}

func TestableAX() int { return 0 }
`
	p, collector := collect(t, map[string]string{"dup.go": src})

	assert.Equal(t, []string{"TestableA", "TestableAB"}, companionNames(p.Companions))
	assert.Equal(t, []string{"TestableABC"}, funcNames(p.Companions[0]))
	assert.Equal(t, []string{"TestableABD"}, funcNames(p.Companions[1]))

	var subjects []string
	for _, d := range collector.Diagnostics() {
		assert.True(t, errors.Is(d.Err, ErrDuplicateName))
		subjects = append(subjects, d.Type+"."+d.Member)
	}
	assert.Equal(t, []string{"A.x", "AB.c"}, subjects)
}

func TestBuildParamsAvoidReferencedNames(t *testing.T) {
	src := `package fixture

import "time"

type Span int

type Timer struct{}

//testable:expose
func (t *Timer) wait(time time.Duration) time.Duration {
	return time
}

//testable:expose
func (t *Timer) span(Span Span, reflectaccess int, d time.Duration) Span {
	return Span
}
`
	p, collector := collect(t, map[string]string{"timer.go": src})

	assert.Empty(t, collector.Diagnostics())
	require.Len(t, p.Companions, 1)
	c := p.Companions[0]
	require.Len(t, c.Accessors, 2)
	assert.Equal(t, []string{"instance", "time1"}, paramNames(c.Accessors[0]))
	assert.Equal(t, []string{"instance", "Span1", "reflectaccess1", "d"}, paramNames(c.Accessors[1]))
}

func TestBuildInstanceParamAvoidsPackageNames(t *testing.T) {
	src := `package fixture

type I int

type Uses struct {
	v I ` + "`testable:\"getter\"`" + `
}
`
	p, _ := collect(t, map[string]string{"uses.go": src})

	require.Len(t, p.Companions, 1)
	assert.Equal(t, "I1", p.Companions[0].Accessors[0].InstanceParam)
}

func TestBuildDiscoveryOrderAcrossFiles(t *testing.T) {
	p, _ := collect(t, map[string]string{
		"b.go": "package fixture\n\ntype B struct {\n\tb int `testable:\"getter\"`\n}\n",
		"a.go": "package fixture\n\ntype A struct {\n\ta int `testable:\"getter\"`\n}\n",
	})
	assert.Equal(t, []string{"TestableA", "TestableB"}, companionNames(p.Companions))
}

func TestBuildExcludedTypes(t *testing.T) {
	p, collector := collect(t, map[string]string{"fixture.go": fixtureSrc}, options.WithExcludeTypes("publictype", "Pair"))

	assert.Equal(t, []string{"testablePackageType"}, companionNames(p.Companions))
	assert.NotEmpty(t, collector.Diagnostics())
}

func TestBuildCustomPrefix(t *testing.T) {
	p, _ := collect(t, map[string]string{"fixture.go": fixtureSrc}, options.WithPrefix("Expose"))

	assert.Equal(t, []string{"ExposePublicType", "exposePackageType", "ExposePair"}, companionNames(p.Companions))
}

func TestBuildEmbeddedField(t *testing.T) {
	src := `package fixture

type inner struct{ n int }

type Outer struct {
	inner ` + "`testable:\"getter\"`" + `
	*Other ` + "`testable:\"clearer\"`" + `
}

type Other struct{}
`
	p, collector := collect(t, map[string]string{"embedded.go": src})

	assert.Empty(t, collector.Diagnostics())
	require.Len(t, p.Companions, 1)
	assert.Equal(t, []string{"TestableOuterInner", "TestableOuterClearOther"}, funcNames(p.Companions[0]))
}
