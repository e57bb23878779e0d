package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/molefas/trikbridge/hubclient"
	"github.com/molefas/trikbridge/triktools"
	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List tools published by the TrikHub server",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newHubClient()
		defs, err := client.GetTools(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "LOCAL NAME\tREMOTE NAME\tDESCRIPTION")
		for _, def := range defs {
			fmt.Fprintf(w, "%s\t%s\t%s\n",
				triktools.ToLocalName(def.Name), def.Name, def.Description)
		}
		return w.Flush()
	},
}

var triksCmd = &cobra.Command{
	Use:   "triks",
	Short: "List triks known to the TrikHub server",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newHubClient()
		triks, err := client.GetTriks(cmd.Context())
		if err != nil {
			return err
		}
		printTriks(cmd, triks)
		return nil
	},
}

func printTriks(cmd *cobra.Command, triks []hubclient.TrikInfo) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTOOLS\tDESCRIPTION")
	for _, trik := range triks {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			trik.ID, trik.Name, len(trik.Tools), trik.Description)
	}
	_ = w.Flush()
}

func init() {
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(triksCmd)
}
