package main

import (
	"github.com/aretw0/rapport/internal/cli"
	"github.com/spf13/cobra"
)

var stubCmd = &cobra.Command{
	Use:   "stub",
	Short: "Run a development answer endpoint",
	Long: `Serves POST /chat with canned answers, validating requests against the
embedded OpenAPI contract. Point a client at it with --base-url.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")
		delay, _ := cmd.Flags().GetDuration("delay")
		return cli.RunStub(cli.StubOptions{
			Options: commonOptions(cmd),
			Port:    port,
			Delay:   delay,
		})
	},
}

func init() {
	rootCmd.AddCommand(stubCmd)
	stubCmd.Flags().IntP("port", "p", 0, "Port to listen on (default 8000)")
	stubCmd.Flags().Duration("delay", 0, "Hold every answer for this long")
}
