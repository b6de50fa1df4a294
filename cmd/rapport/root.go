package main

import (
	"fmt"
	"os"

	"github.com/aretw0/rapport/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rapport",
	Short: "Rapport is a résumé interview chat client",
	Long: `Rapport lets you interview a résumé: questions are sent to an answer
endpoint (POST {base-url}/chat) and the replies are shown as the candidate's turns.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Configuration file (default: rapport.yaml when present)")
	rootCmd.PersistentFlags().String("base-url", "", "Answer endpoint root (overrides RAPPORT_API_BASE_URL)")
	rootCmd.PersistentFlags().String("session", "", "Session identifier (default: random UUID)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging to stderr")
}

func commonOptions(cmd *cobra.Command) cli.Options {
	configPath, _ := cmd.Flags().GetString("config")
	baseURL, _ := cmd.Flags().GetString("base-url")
	sessionID, _ := cmd.Flags().GetString("session")
	debug, _ := cmd.Flags().GetBool("debug")
	return cli.Options{
		ConfigPath: configPath,
		BaseURL:    baseURL,
		SessionID:  sessionID,
		Debug:      debug,
	}
}
