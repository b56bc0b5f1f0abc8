package parser

import (
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

const (
	DefaultFileSuffix = "_testable_test.go"
	DefaultPrefix     = "Testable"
	DefaultMarkerTag  = "testable"
	DefaultDirective  = "testable:expose"
)

// Options control discovery and emission.
//
// InDir        – directory patterns are resolved against
// Patterns     – package patterns handed to packages.Load (default ".")
// OutDir       – when set, companions go to <OutDir>/<import path> instead of the package dir
// FileSuffix   – appended to the snake_cased type name to form the companion file name
// Prefix       – companion name prefix; lowered for unexported enclosing types
// MarkerTag    – struct tag key that marks a field
// Directive    – doc comment directive that marks a field or method
// BuildTags    – extra build tags used while loading
// ExcludeTypes – enclosing type names to skip (case‑insensitive)
// Prune        – remove stale generated companions
// Manifest     – optional yaml manifest path
// Strict       – error diagnostics fail the command
type Options struct {
	InDir        string   `json:"in_dir,omitempty" yaml:"in_dir,omitempty" toml:"in_dir,omitempty" mapstructure:"in_dir,omitempty"`
	Patterns     []string `json:"patterns,omitempty" yaml:"patterns,omitempty" toml:"patterns,omitempty" mapstructure:"patterns,omitempty"`
	OutDir       string   `json:"out_dir,omitempty" yaml:"out_dir,omitempty" toml:"out_dir,omitempty" mapstructure:"out_dir,omitempty"`
	FileSuffix   string   `json:"file_suffix,omitempty" yaml:"file_suffix,omitempty" toml:"file_suffix,omitempty" mapstructure:"file_suffix,omitempty"`
	Prefix       string   `json:"prefix,omitempty" yaml:"prefix,omitempty" toml:"prefix,omitempty" mapstructure:"prefix,omitempty"`
	MarkerTag    string   `json:"marker_tag,omitempty" yaml:"marker_tag,omitempty" toml:"marker_tag,omitempty" mapstructure:"marker_tag,omitempty"`
	Directive    string   `json:"directive,omitempty" yaml:"directive,omitempty" toml:"directive,omitempty" mapstructure:"directive,omitempty"`
	BuildTags    []string `json:"build_tags,omitempty" yaml:"build_tags,omitempty" toml:"build_tags,omitempty" mapstructure:"build_tags,omitempty"`
	ExcludeTypes []string `json:"exclude_types,omitempty" yaml:"exclude_types,omitempty" toml:"exclude_types,omitempty" mapstructure:"exclude_types,omitempty"`
	Prune        bool     `json:"prune,omitempty" yaml:"prune,omitempty" toml:"prune,omitempty" mapstructure:"prune,omitempty"`
	Manifest     string   `json:"manifest,omitempty" yaml:"manifest,omitempty" toml:"manifest,omitempty" mapstructure:"manifest,omitempty"`
	Strict       bool     `json:"strict,omitempty" yaml:"strict,omitempty" toml:"strict,omitempty" mapstructure:"strict,omitempty"`
}

func NewOptions(opts ...Option) *Options {
	o := &Options{
		InDir:      ".",
		Patterns:   []string{"."},
		FileSuffix: DefaultFileSuffix,
		Prefix:     DefaultPrefix,
		MarkerTag:  DefaultMarkerTag,
		Directive:  DefaultDirective,
		Prune:      true,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Normalize fills empty settings with defaults and makes directories absolute.
func (o *Options) Normalize() error {
	if o.InDir == "" {
		o.InDir = "."
	}
	abs, err := filepath.Abs(o.InDir)
	if err != nil {
		return errors.Wrapf(err, "resolve in_dir %q", o.InDir)
	}
	o.InDir = abs

	if o.OutDir != "" {
		abs, err = filepath.Abs(o.OutDir)
		if err != nil {
			return errors.Wrapf(err, "resolve out_dir %q", o.OutDir)
		}
		o.OutDir = abs
	}

	var patterns []string
	for _, p := range o.Patterns {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	if len(patterns) == 0 {
		patterns = []string{"."}
	}
	o.Patterns = patterns

	if o.FileSuffix == "" {
		o.FileSuffix = DefaultFileSuffix
	}
	if !strings.HasSuffix(o.FileSuffix, ".go") {
		return errors.WithHint(
			errors.Newf("file_suffix %q does not end in .go", o.FileSuffix),
			"use something like _testable_test.go")
	}
	if o.Prefix == "" {
		o.Prefix = DefaultPrefix
	}
	if o.MarkerTag == "" {
		o.MarkerTag = DefaultMarkerTag
	}
	if o.Directive == "" {
		o.Directive = DefaultDirective
	}
	o.Directive = strings.TrimPrefix(o.Directive, "//")

	for i, n := range o.ExcludeTypes {
		o.ExcludeTypes[i] = strings.TrimSpace(n)
	}
	return nil
}

// Excluded reports whether the named enclosing type is listed in ExcludeTypes.
func (o *Options) Excluded(name string) bool {
	for _, n := range o.ExcludeTypes {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

// functional option pattern ---------------------------------------------------

type Option func(*Options)

func WithInDir(d string) Option         { return func(o *Options) { o.InDir = d } }
func WithPatterns(p ...string) Option   { return func(o *Options) { o.Patterns = p } }
func WithOutDir(d string) Option        { return func(o *Options) { o.OutDir = d } }
func WithFileSuffix(s string) Option    { return func(o *Options) { o.FileSuffix = s } }
func WithPrefix(p string) Option        { return func(o *Options) { o.Prefix = p } }
func WithMarkerTag(t string) Option     { return func(o *Options) { o.MarkerTag = t } }
func WithDirective(d string) Option     { return func(o *Options) { o.Directive = d } }
func WithBuildTags(t ...string) Option  { return func(o *Options) { o.BuildTags = t } }
func WithPrune(p bool) Option           { return func(o *Options) { o.Prune = p } }
func WithManifest(path string) Option   { return func(o *Options) { o.Manifest = path } }
func WithStrict() Option                { return func(o *Options) { o.Strict = true } }
func WithExcludeTypes(names ...string) Option {
	return func(o *Options) {
		for _, n := range names {
			o.ExcludeTypes = append(o.ExcludeTypes, strings.TrimSpace(n))
		}
	}
}
