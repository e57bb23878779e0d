// Package cli defines the trikbridge command tree.
package cli

import (
	"os"

	"github.com/effective-security/xlog"
	"github.com/molefas/trikbridge/hubclient"
	"github.com/molefas/trikbridge/llmfactory"
	"github.com/molefas/trikbridge/llms"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var logger = xlog.NewPackageLogger("github.com/molefas/trikbridge", "cli")

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "trikbridge",
	Short:         "trikbridge — bridge LLM agents to a TrikHub tool server",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if viper.GetBool("debug") {
			xlog.SetGlobalLogLevel(xlog.DEBUG)
		} else {
			xlog.SetGlobalLogLevel(xlog.ERROR)
		}
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.KV(xlog.ERROR, "err", err.Error())
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (default trikbridge.yaml)")
	flags.String("hub-url", "http://localhost:8765", "TrikHub server base URL")
	flags.String("hub-token", "", "TrikHub bearer token")
	flags.String("llm-config", "llm.yaml", "LLM provider config file")
	flags.String("model", "", "provider name from the LLM config (default: first entry)")
	flags.Bool("debug", false, "enable debug logging")

	_ = viper.BindPFlag("hub.url", flags.Lookup("hub-url"))
	_ = viper.BindPFlag("hub.token", flags.Lookup("hub-token"))
	_ = viper.BindPFlag("llm.config", flags.Lookup("llm-config"))
	_ = viper.BindPFlag("llm.model", flags.Lookup("model"))
	_ = viper.BindPFlag("debug", flags.Lookup("debug"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("trikbridge")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.config/trikbridge")
	}
	viper.SetEnvPrefix("TRIKBRIDGE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// no config file is fine, flags and env cover everything
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			logger.KV(xlog.WARNING, "reason", "config_read_failed", "err", err.Error())
		}
	}
}

func newHubClient() *hubclient.Client {
	var opts []hubclient.Option
	if token := viper.GetString("hub.token"); token != "" {
		opts = append(opts, hubclient.WithAuthToken(token))
	}
	return hubclient.New(viper.GetString("hub.url"), opts...)
}

func newModel() (llms.Model, error) {
	f, err := llmfactory.Load(viper.GetString("llm.config"))
	if err != nil {
		return nil, err
	}
	if name := viper.GetString("llm.model"); name != "" {
		return f.ModelByName(name)
	}
	return f.DefaultModel()
}
