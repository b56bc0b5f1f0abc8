package cmd

import (
	"fmt"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/cmmoran/testablegen/pkg/action/generate"
	"github.com/cmmoran/testablegen/pkg/parser"
)

func init() {
	rootCmd.AddCommand(NewGenerateCommand())
}

func NewGenerateCommand() *cobra.Command {
	// generateCmd represents the testablegen generate command
	var generateCmd = &cobra.Command{
		Use:   "generate [patterns...]",
		Short: "generate companions",
		Long:  "Write a testable companion for every type with marked fields or methods",
		PreRunE: func(c *cobra.Command, args []string) error {
			return bindOptionFlags(c.Flags())
		},
		RunE: func(c *cobra.Command, args []string) error {
			options, err := loadOptions(args)
			if err != nil {
				return err
			}
			res, err := generate.Generate(c.Context(), options, slog.Default())
			if err != nil {
				return err
			}
			for _, path := range res.Written {
				_, _ = fmt.Fprintln(c.OutOrStdout(), path)
			}
			return nil
		},
	}
	addOptionFlags(generateCmd.Flags())

	return generateCmd
}

// addOptionFlags declares the flags shared by generate and verify. Defaults
// mirror parser.NewOptions.
func addOptionFlags(fs *pflag.FlagSet) {
	d := parser.NewOptions()
	fs.StringP("input-directory", "i", d.InDir, "directory patterns are resolved against")
	fs.StringSliceP("pattern", "p", d.Patterns, "package patterns to scan")
	fs.StringP("output-directory", "o", "", "write companions under <dir>/<import path> instead of the package directory")
	fs.String("file-suffix", d.FileSuffix, "suffix of generated companion files")
	fs.String("prefix", d.Prefix, "companion name prefix")
	fs.String("marker-tag", d.MarkerTag, "struct tag key marking a field")
	fs.String("directive", d.Directive, "comment directive marking a field or method")
	fs.StringSlice("tags", nil, "build tags used while loading packages")
	fs.StringSliceP("exclude-types", "t", nil, "enclosing type names to skip")
	fs.Bool("prune", d.Prune, "remove stale generated companions")
	fs.StringP("manifest", "m", "", "yaml manifest recording generated companions")
	fs.Bool("strict", false, "exit non-zero when errors are reported")
}

var flagKeys = map[string]string{
	"input-directory":  "in_dir",
	"pattern":          "patterns",
	"output-directory": "out_dir",
	"file-suffix":      "file_suffix",
	"prefix":           "prefix",
	"marker-tag":       "marker_tag",
	"directive":        "directive",
	"tags":             "build_tags",
	"exclude-types":    "exclude_types",
	"prune":            "prune",
	"manifest":         "manifest",
	"strict":           "strict",
}

// bindOptionFlags binds the running command's flags to viper keys. It runs in
// PreRunE because generate and verify share keys and viper keeps one binding per key.
func bindOptionFlags(fs *pflag.FlagSet) error {
	for flag, key := range flagKeys {
		f := fs.Lookup(flag)
		if f == nil {
			continue
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return errors.Wrapf(err, "bind --%s", flag)
		}
	}
	return nil
}

// loadOptions merges defaults, config files, environment and flags. Positional
// patterns replace the configured ones.
func loadOptions(args []string) (*parser.Options, error) {
	options := parser.NewOptions()
	if err := viper.Unmarshal(options); err != nil {
		return nil, errors.Wrap(err, "decode configuration")
	}
	if len(args) > 0 {
		options.Patterns = args
	}
	if err := options.Normalize(); err != nil {
		return nil, err
	}
	return options, nil
}
