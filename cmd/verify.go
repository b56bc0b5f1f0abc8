package cmd

import (
	"fmt"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/cmmoran/testablegen/pkg/action/verify"
)

var ErrOutOfDate = errors.New("companions are out of date")

func init() {
	rootCmd.AddCommand(NewVerifyCommand())
}

func NewVerifyCommand() *cobra.Command {
	var verifyCmd = &cobra.Command{
		Use:   "verify [patterns...]",
		Short: "check companions are up to date",
		Long:  "Regenerate every companion in memory and diff it against the file on disk",
		PreRunE: func(c *cobra.Command, args []string) error {
			return bindOptionFlags(c.Flags())
		},
		RunE: func(c *cobra.Command, args []string) error {
			options, err := loadOptions(args)
			if err != nil {
				return err
			}
			rep, err := verify.Verify(c.Context(), options, slog.Default())
			if err != nil {
				return err
			}
			out := c.OutOrStdout()
			for _, d := range rep.Drift {
				if d.Missing {
					_, _ = fmt.Fprintf(out, "missing %s\n", d.File)
					continue
				}
				_, _ = fmt.Fprintf(out, "drift %s (-disk +generated):\n%s\n", d.File, d.Diff)
			}
			for _, s := range rep.Stale {
				_, _ = fmt.Fprintf(out, "stale %s\n", s)
			}
			if !rep.Clean() {
				return errors.WithHint(ErrOutOfDate, "run testablegen generate")
			}
			return nil
		},
	}
	addOptionFlags(verifyCmd.Flags())

	return verifyCmd
}
