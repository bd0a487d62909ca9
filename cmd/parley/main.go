// Command parley is a terminal client for parley agent backends: agent
// discovery, streamed text chat, and realtime voice sessions.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vasara-ai/parley/internal/dotenv"
	parley "github.com/vasara-ai/parley/sdk"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Terminal client for parley agents",
	Long:  "Chat with parley agents over streamed text or a realtime voice session.",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./.parley/settings.yaml)")

	rootCmd.PersistentFlags().String("base-url", "http://localhost:8080", "agent backend base URL")
	viper.BindPFlag("base_url", rootCmd.PersistentFlags().Lookup("base-url"))

	rootCmd.PersistentFlags().String("live-endpoint", "", "override the realtime speech websocket endpoint")
	viper.BindPFlag("live_endpoint", rootCmd.PersistentFlags().Lookup("live-endpoint"))

	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(liveCmd)
}

func initConfig() {
	if err := dotenv.Load(".env"); err != nil {
		fmt.Fprintln(os.Stderr, "Warning:", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath("./.parley")
		viper.SetConfigType("yaml")
		viper.SetConfigName("settings")
	}

	viper.SetEnvPrefix("PARLEY")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()
}

func newLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(strings.TrimSpace(viper.GetString("log_level"))) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newSDKClient() *parley.Client {
	opts := []parley.ClientOption{parley.WithLogger(newLogger())}
	if endpoint := strings.TrimSpace(viper.GetString("live_endpoint")); endpoint != "" {
		opts = append(opts, parley.WithLiveEndpoint(endpoint))
	}
	return parley.NewClient(viper.GetString("base_url"), opts...)
}
