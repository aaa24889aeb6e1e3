package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/coredoor/smbd/internal/logger"
	"github.com/coredoor/smbd/pkg/smbserver"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the SMB2/3 server",
	Long: `Start the SMB2/3 server in the foreground.

All configuration comes from the environment:

  SMB_BIND_ADDRESS      interface to listen on (default: all)
  SMB_PORT              TCP port (default: 14450)
  SMB_SHARE_NAME        share name (default: "share")
  SMB_SHARE_PATH        host directory to seed the share from (default: none)
  SMB_SERVER_NAME       server name reported to clients (default: "SMBD")
  SMB_USERNAME          NTLM account username (default: guest-only)
  SMB_PASSWORD          NTLM account password
  SMB_DOMAIN            NTLM account domain
  SMB_MAX_MESSAGE_SIZE  maximum SMB2 message size in bytes
  SMB_READ_TIMEOUT      per-request read timeout (e.g. "30s")
  SMB_WRITE_TIMEOUT     per-response write timeout
  SMB_IDLE_TIMEOUT      connection idle timeout
  SMB_METRICS_PORT      Prometheus /metrics port (default: disabled)
  SMB_LOG_LEVEL         DEBUG, INFO, WARN, ERROR (default: INFO)
  SMB_LOG_FORMAT        text or json (default: text)`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := logger.Init(logger.Config{
		Level:  envOrDefault("SMB_LOG_LEVEL", "INFO"),
		Format: envOrDefault("SMB_LOG_FORMAT", "text"),
		Output: "stdout",
	}); err != nil {
		return err
	}

	cfg := smbserver.ConfigFromEnv()
	srv := smbserver.New(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serveDone := make(chan error, 1)
	go func() {
		serveDone <- srv.Serve(ctx)
	}()

	logger.Info("smbd: server starting", "port", cfg.Port, "share", cfg.ShareName)

	select {
	case sig := <-sigCh:
		signal.Stop(sigCh)
		logger.Info("smbd: shutdown signal received", "signal", sig.String())
		cancel()
		return <-serveDone
	case err := <-serveDone:
		signal.Stop(sigCh)
		return err
	}
}

func envOrDefault(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}
