package main

import (
	"github.com/aretw0/rapport/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose a chat session over HTTP",
	Long: `Starts an HTTP server driving one chat session:
GET /state, PUT /input, POST /submit, GET /events (SSE), /health, /info and /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")
		withStub, _ := cmd.Flags().GetBool("with-stub")
		return cli.RunServe(cli.ServeOptions{
			Options:  commonOptions(cmd),
			Port:     port,
			WithStub: withStub,
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 0, "Port to listen on (default: RAPPORT_HTTP_PORT or 8080)")
	serveCmd.Flags().Bool("with-stub", false, "Also run the development answer endpoint and use it")
}
