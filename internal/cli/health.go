package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check connectivity to the TrikHub server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newHubClient().Health(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", viper.GetString("hub.url"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
