package parser

import (
	"go/ast"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmmoran/testablegen/internal/model"
)

func TestParseMarkerOptions(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    model.Marker
		wantErr bool
	}{
		{name: "empty means all", value: "", want: model.DefaultMarker()},
		{name: "getter only", value: "getter", want: model.Marker{Getter: true}},
		{name: "getter and clearer", value: "getter,clearer", want: model.Marker{Getter: true, Clearer: true}},
		{name: "space separated", value: "getter setter", want: model.Marker{Getter: true, Setter: true}},
		{name: "toggle off", value: "setter=false", want: model.Marker{Getter: true, Clearer: true}},
		{name: "toggle on after bare", value: "getter,clearer=true", want: model.Marker{Getter: true, Clearer: true}},
		{name: "unknown option", value: "getter,mutator", wantErr: true},
		{name: "bad bool", value: "setter=maybe", wantErr: true},
		{name: "nothing selected", value: "getter=false,setter=false,clearer=false", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMarkerOptions(tt.value)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidMarker)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMarkerFromTag(t *testing.T) {
	tests := []struct {
		name      string
		literal   string
		want      model.Marker
		wantFound bool
		wantErr   bool
	}{
		{name: "no tag", literal: "``"},
		{name: "other key", literal: "`json:\"x\"`"},
		{name: "empty value", literal: "`testable:\"\"`", want: model.DefaultMarker(), wantFound: true},
		{name: "with json", literal: "`json:\"x\" testable:\"getter\"`", want: model.Marker{Getter: true}, wantFound: true},
		{name: "disabled", literal: "`testable:\"-\"`"},
		{name: "double quoted literal", literal: `"testable:\"clearer\""`, want: model.Marker{Clearer: true}, wantFound: true},
		{name: "malformed tag falls back", literal: "`testable:\"setter\" broken`", want: model.Marker{Setter: true}, wantFound: true},
		{name: "invalid option", literal: "`testable:\"nope\"`", wantFound: true, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found, err := markerFromTag(tt.literal, "testable")
			assert.Equal(t, tt.wantFound, found)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMarkerFromDirective(t *testing.T) {
	group := func(lines ...string) *ast.CommentGroup {
		cg := &ast.CommentGroup{}
		for _, l := range lines {
			cg.List = append(cg.List, &ast.Comment{Text: l})
		}
		return cg
	}

	opts, ok := markerFromDirective(group("// docs", "//testable:expose"), "testable:expose")
	assert.True(t, ok)
	assert.Empty(t, opts)

	opts, ok = markerFromDirective(group("//testable:expose getter, setter"), "testable:expose")
	assert.True(t, ok)
	assert.Equal(t, "getter, setter", opts)

	_, ok = markerFromDirective(group("//testable:exposed"), "testable:expose")
	assert.False(t, ok)

	_, ok = markerFromDirective(group("// testable:expose"), "testable:expose")
	assert.False(t, ok, "directives carry no space after the slashes")

	_, ok = markerFromDirective(nil, "testable:expose")
	assert.False(t, ok)
}
