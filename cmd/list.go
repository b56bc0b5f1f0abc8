package cmd

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/cmmoran/testablegen/pkg/action/verify"
)

func init() {
	rootCmd.AddCommand(NewListCommand())
}

func NewListCommand() *cobra.Command {
	var listCmd = &cobra.Command{
		Use:   "list",
		Short: "list generated companions",
		Long:  "Print the companions recorded in the manifest",
		PreRunE: func(c *cobra.Command, args []string) error {
			return viper.BindPFlag("manifest", c.Flags().Lookup("manifest"))
		},
		RunE: func(c *cobra.Command, args []string) error {
			m, err := verify.List(viper.GetString("manifest"))
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(c.OutOrStdout())
			enc.SetIndent(2)
			if err = enc.Encode(m); err != nil {
				return errors.Wrap(err, "print manifest")
			}
			return enc.Close()
		},
	}
	listCmd.Flags().StringP("manifest", "m", "", "yaml manifest recording generated companions")

	return listCmd
}
