package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/molefas/trikbridge/chatmodel"
	"github.com/molefas/trikbridge/conversation"
	"github.com/molefas/trikbridge/store"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Starts a REPL talking to the configured model, with every tool
published by the TrikHub server available to it. Type /reset to start a
fresh conversation, /tools to list the bound tools, /quit to exit.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().String("redis", "", "redis address for persistent history (host:port)")
	_ = viper.BindPFlag("store.redis", chatCmd.Flags().Lookup("redis"))
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	model, err := newModel()
	if err != nil {
		return err
	}

	opts := []conversation.Option{}
	if addr := viper.GetString("store.redis"); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		opts = append(opts, conversation.WithStore(store.NewRedisStore(rdb, "")))
	}

	agent := conversation.New(model, newHubClient(), opts...)
	agent.Init(ctx)
	fmt.Fprintf(cmd.OutOrStdout(), "model: %s, tools: %d\n", model.GetName(), agent.ToolCount())

	convID := chatmodel.NewConversationID()
	scanner := bufio.NewScanner(os.Stdin)
	out := cmd.OutOrStdout()
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			convID = chatmodel.NewConversationID()
			fmt.Fprintln(out, "conversation reset")
			continue
		case "/tools":
			count := agent.ReloadTools(ctx)
			fmt.Fprintf(out, "%d tools bound\n", count)
			continue
		}

		res := agent.Chat(ctx, conversation.Input{
			ConversationID: convID,
			Text:           line,
		})
		fmt.Fprintln(out, res.Response)
	}
}
