package cli

import (
	"fmt"

	"github.com/molefas/trikbridge/llmutils"
	"github.com/spf13/cobra"
)

var trikCmd = &cobra.Command{
	Use:   "trik",
	Short: "Manage triks installed on the TrikHub server",
}

var trikListCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed triks",
	RunE: func(cmd *cobra.Command, args []string) error {
		triks, err := newHubClient().ListInstalledTriks(cmd.Context())
		if err != nil {
			return err
		}
		printTriks(cmd, triks)
		return nil
	},
}

var trikInstallCmd = &cobra.Command{
	Use:   "install <package>",
	Short: "Install a trik package, e.g. @scope/name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := newHubClient().InstallTrik(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), llmutils.ToJSON(res))
		return nil
	},
}

var trikUninstallCmd = &cobra.Command{
	Use:   "uninstall <name>",
	Short: "Uninstall a trik",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := newHubClient().UninstallTrik(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), llmutils.ToJSON(res))
		return nil
	},
}

var trikReloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Reload all triks on the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := newHubClient().ReloadTriks(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), llmutils.ToJSON(res))
		return nil
	},
}

func init() {
	trikCmd.AddCommand(trikListCmd, trikInstallCmd, trikUninstallCmd, trikReloadCmd)
	rootCmd.AddCommand(trikCmd)
}
