package cli

import (
	"github.com/spf13/cobra"

	"github.com/legendai/legendai/internal/logging"
	"github.com/legendai/legendai/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the subtitle API over HTTP",
	Long: `Start the HTTP API. Transcription uploads run as background jobs whose
progress can be polled or streamed over a websocket.

Routes:
  GET  /healthz
  POST /v1/subtitles          time a plain transcript
  POST /v1/translations       translate SRT text
  POST /v1/transcriptions     upload media, returns a job
  GET  /v1/jobs/{id}          job status and result
  GET  /v1/jobs/{id}/events   websocket stream of job updates
  GET  /v1/usage              transcribed seconds for the caller

Examples:
  legendai serve
  legendai serve --addr :9000 --rate-limit 60`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (default from config, :8080)")
	serveCmd.Flags().Int("rate-limit", -1, "Requests per window per client, 0 disables limiting")
}

func runServe(cmd *cobra.Command, args []string) error {
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	if limit, _ := cmd.Flags().GetInt("rate-limit"); limit >= 0 {
		cfg.Server.RateLimit = limit
	}

	serverLogger, err := logging.NewJSONLogger(verbose)
	if err != nil {
		return err
	}
	defer serverLogger.Sync()

	return server.New(cfg, serverLogger.Named("server")).ListenAndServe(cmd.Context())
}
