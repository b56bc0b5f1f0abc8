package parser

import (
	"go/ast"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/cockroachdb/errors"
	"github.com/fatih/structtag"

	"github.com/cmmoran/testablegen/internal/model"
)

// ErrInvalidMarker is the root of every marker option error.
var ErrInvalidMarker = errors.New("invalid marker options")

// markerFromTag looks up key in a raw struct tag literal (backquotes included or not).
// A "-" value disables the marker.
func markerFromTag(literal, key string) (model.Marker, bool, error) {
	raw := literal
	if unq, err := strconv.Unquote(literal); err == nil {
		raw = unq
	}
	if raw == "" {
		return model.Marker{}, false, nil
	}

	var (
		value string
		ok    bool
	)
	tags, err := structtag.Parse(raw)
	if err == nil {
		var tag *structtag.Tag
		if tag, err = tags.Get(key); err == nil {
			value, ok = tag.Value(), true
		}
	} else {
		value, ok = reflect.StructTag(raw).Lookup(key)
	}
	if !ok || value == "-" {
		return model.Marker{}, false, nil
	}

	m, err := ParseMarkerOptions(value)
	return m, true, err
}

// markerFromDirective scans a comment group for //<directive> [options].
func markerFromDirective(cg *ast.CommentGroup, directive string) (string, bool) {
	if cg == nil {
		return "", false
	}
	for _, c := range cg.List {
		text, ok := strings.CutPrefix(c.Text, "//")
		if !ok {
			continue
		}
		rest, ok := strings.CutPrefix(text, directive)
		if !ok {
			continue
		}
		if rest != "" && !unicode.IsSpace(rune(rest[0])) {
			continue
		}
		return strings.TrimSpace(rest), true
	}
	return "", false
}

// ParseMarkerOptions decodes the option list of a marker.
//
// ""                   all accessors
// "getter,clearer"     exactly the named accessors
// "setter=false"       defaults with one accessor toggled
func ParseMarkerOptions(value string) (model.Marker, error) {
	parts := splitOptions(value)
	if len(parts) == 0 {
		return model.DefaultMarker(), nil
	}

	var (
		selected model.Marker
		bare     bool
		toggles  []string
	)
	for _, part := range parts {
		if strings.Contains(part, "=") {
			toggles = append(toggles, part)
			continue
		}
		field, err := markerField(&selected, part)
		if err != nil {
			return model.Marker{}, err
		}
		*field = true
		bare = true
	}

	m := model.DefaultMarker()
	if bare {
		m = selected
	}
	for _, t := range toggles {
		name, raw, _ := strings.Cut(t, "=")
		field, err := markerField(&m, strings.TrimSpace(name))
		if err != nil {
			return model.Marker{}, err
		}
		on, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return model.Marker{}, errors.Wrapf(ErrInvalidMarker, "option %q: %v", t, err)
		}
		*field = on
	}

	if !m.Getter && !m.Setter && !m.Clearer {
		return model.Marker{}, errors.WithHint(
			errors.Wrapf(ErrInvalidMarker, "%q selects no accessor", value),
			`drop the marker or use "-" to disable it`)
	}
	return m, nil
}

func markerField(m *model.Marker, name string) (*bool, error) {
	switch name {
	case "getter":
		return &m.Getter, nil
	case "setter":
		return &m.Setter, nil
	case "clearer":
		return &m.Clearer, nil
	}
	return nil, errors.WithHint(
		errors.Wrapf(ErrInvalidMarker, "unknown option %q", name),
		"known options are getter, setter and clearer")
}

// splitOptions splits an option value on commas, semicolons and spaces.
func splitOptions(value string) []string {
	return strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	})
}
