package parser

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
)

// ErrEmptyIdentifier is returned when a name derivation is handed "".
var ErrEmptyIdentifier = errors.New("empty identifier")

// CompanionName joins prefix and enclosing type name. The prefix is lowered for
// unexported enclosing types so the generated functions stay unexported too.
func CompanionName(prefix, enclosing string, exported bool) string {
	if exported {
		return upperFirst(prefix) + enclosing
	}
	return lowerFirst(prefix) + enclosing
}

// Capitalize uppercases the first rune of id.
func Capitalize(id string) (string, error) {
	if id == "" {
		return "", errors.WithHint(ErrEmptyIdentifier, "cannot capitalize an empty name")
	}
	return upperFirst(id), nil
}

func ClearerName(field string) (string, error) {
	c, err := Capitalize(field)
	if err != nil {
		return "", err
	}
	return "clear" + c, nil
}

func SetterName(field string) (string, error) {
	c, err := Capitalize(field)
	if err != nil {
		return "", err
	}
	return "set" + c, nil
}

// FuncName is the emitted identifier for an accessor with the given logical name.
func FuncName(companion, logical string) (string, error) {
	c, err := Capitalize(logical)
	if err != nil {
		return "", err
	}
	return companion + c, nil
}

// InstanceTypeParam picks a type parameter name for the instance that is not in taken.
func InstanceTypeParam(taken map[string]bool) string {
	return fresh("I", taken)
}

// ParamName names the i'th parameter of a generated function. Unnamed and
// blank parameters become argN, and "instance" or "value" clashes are renamed.
func ParamName(i int, name string, taken map[string]bool) string {
	if name == "" || name == "_" {
		name = "arg" + strconv.Itoa(i)
	}
	return fresh(name, taken)
}

func fresh(base string, taken map[string]bool) string {
	if !taken[base] {
		return base
	}
	for n := 1; ; n++ {
		c := base + strconv.Itoa(n)
		if !taken[c] {
			return c
		}
	}
}

// FileName converts the enclosing type name to snake_case and appends suffix.
func FileName(enclosing, suffix string) string {
	return snakeCase(enclosing) + suffix
}

func snakeCase(s string) string {
	rs := []rune(s)
	var b strings.Builder
	for i, r := range rs {
		if unicode.IsUpper(r) && i > 0 {
			prev := rs[i-1]
			nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

func upperFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}

func lowerFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToLower(r)) + s[n:]
}
