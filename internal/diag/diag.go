// Package diag carries generation diagnostics back to the caller. Diagnostics
// are reported, never thrown: a failing group does not stop the others.
package diag

import (
	"fmt"
	"go/token"
	"log/slog"
	"strings"

	"github.com/cockroachdb/errors"
)

type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Diagnostic describes one problem found while generating companions.
type Diagnostic struct {
	Severity Severity
	Package  string // import path, may be empty for round-level failures
	Type     string
	Member   string
	Pos      token.Position
	Err      error
}

func (d Diagnostic) Subject() string {
	var b strings.Builder
	b.WriteString(d.Package)
	if d.Type != "" {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(d.Type)
	}
	if d.Member != "" {
		b.WriteByte('.')
		b.WriteString(d.Member)
	}
	return b.String()
}

func (d Diagnostic) String() string {
	var b strings.Builder
	if d.Pos.IsValid() {
		b.WriteString(d.Pos.String())
		b.WriteString(": ")
	}
	b.WriteString(d.Severity.String())
	if s := d.Subject(); s != "" {
		fmt.Fprintf(&b, " [%s]", s)
	}
	if d.Err != nil {
		b.WriteString(": ")
		b.WriteString(d.Err.Error())
	}
	return b.String()
}

// Reporter receives diagnostics.
type Reporter interface {
	Report(d Diagnostic)
}

// Collector logs every diagnostic and keeps them in report order.
type Collector struct {
	logger *slog.Logger
	diags  []Diagnostic
}

func NewCollector(logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{logger: logger}
}

func (c *Collector) Report(d Diagnostic) {
	c.diags = append(c.diags, d)

	attrs := []any{"subject", d.Subject()}
	if d.Pos.IsValid() {
		attrs = append(attrs, "pos", d.Pos.String())
	}
	if d.Err != nil {
		attrs = append(attrs, "error", d.Err.Error())
		if hint := errors.FlattenHints(d.Err); hint != "" {
			attrs = append(attrs, "hint", hint)
		}
	}
	if d.Severity == SeverityError {
		c.logger.Error("generation failed", attrs...)
		return
	}
	c.logger.Warn("generation warning", attrs...)
}

func (c *Collector) Diagnostics() []Diagnostic {
	return c.diags
}

func (c *Collector) HasErrors() bool {
	for _, d := range c.diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Discard drops every diagnostic.
type Discard struct{}

func (Discard) Report(Diagnostic) {}
