package cmd

import (
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/meysamhadeli/repoaudit/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the audit pipeline over HTTP",
	Long: `The 'serve' subcommand starts an HTTP server with two routes:
POST /analyze accepts {"url": "...", "token": "...", "revision": "..."} and returns the report,
GET /healthz reports liveness.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rootDependencies, err := handleRootCommand(cmd)
		if err != nil {
			return err
		}

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = rootDependencies.Config.Server.Addr
		}

		auditPipeline, err := rootDependencies.newPipeline(true)
		if err != nil {
			return err
		}

		if rootDependencies.Config.LogLevel != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		srv := server.New(auditPipeline, server.Config{
			Addr:           addr,
			RequestTimeout: rootDependencies.Config.Server.RequestTimeout,
			DefaultToken:   rootDependencies.Config.Clone.GithubToken,
		}, rootDependencies.Logger)
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (defaults to server.addr, ':8080')")
	rootCmd.AddCommand(serveCmd)
}
