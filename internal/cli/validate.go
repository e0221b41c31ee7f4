package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitops-tools/reconcile-pr-action/internal/config"
)

func init() {
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration without touching git or the network",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(overridePath)
		if err != nil {
			return err
		}

		errs := config.Validate(cfg)
		if len(errs) > 0 {
			for _, e := range errs {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", e)
			}
			return fmt.Errorf("%d validation error(s)", len(errs))
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid.")
		return nil
	},
}
