package cli

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/molefas/trikbridge/llmutils"
	"github.com/spf13/cobra"
)

var executeCmd = &cobra.Command{
	Use:   "execute <tool> [json-input]",
	Short: "Execute a single tool directly, bypassing the model",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := map[string]any{}
		if len(args) == 2 {
			if err := json.Unmarshal([]byte(args[1]), &input); err != nil {
				return errors.WithMessage(err, "invalid JSON input")
			}
		}
		sessionID, _ := cmd.Flags().GetString("session")

		result, err := newHubClient().Execute(cmd.Context(), args[0], input, sessionID)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), llmutils.JSONIndent(llmutils.ToJSON(result.Raw)))
		return nil
	},
}

func init() {
	executeCmd.Flags().String("session", "", "session token to continue a stateful exchange")
	rootCmd.AddCommand(executeCmd)
}
