package main

import (
	"github.com/aretw0/rapport/internal/cli"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive interview in the terminal",
	Long: `Starts a chat session on the terminal.

By default questions are read line by line. Use --tui for the full-screen
interface. Type /transcript to reprint the conversation and /exit to leave.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fullScreen, _ := cmd.Flags().GetBool("tui")
		plain, _ := cmd.Flags().GetBool("plain")
		return cli.RunChat(cli.ChatOptions{
			Options:    commonOptions(cmd),
			FullScreen: fullScreen,
			Plain:      plain,
		})
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().Bool("tui", false, "Use the full-screen interface")
	chatCmd.Flags().Bool("plain", false, "Disable the banner and markdown rendering")
}
