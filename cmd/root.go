package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"b1poster/internal/config"
	"b1poster/internal/logger"
	"b1poster/internal/servicelayer"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "b1poster",
	Short: "Post upload workbooks as SAP Business One documents",
	Long: `b1poster turns upload workbooks into SAP Business One documents through
the Service Layer REST API.

Each worksheet is posted according to a YAML profile listing the documents to
create for every request. When a later document of a request is rejected,
the documents created before it are reversed so the ERP never keeps half of
a posting.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

// connect opens a Service Layer transport, logging in unless a session id
// is configured.
func connect(ctx context.Context, cfg *config.Config) (*servicelayer.HTTPTransport, error) {
	transport := servicelayer.NewHTTPTransport(cfg.GetTransportConfig())
	if transport.SessionID() != "" {
		return transport, nil
	}
	if _, err := transport.Login(ctx, cfg.GetCredentials()); err != nil {
		return nil, fmt.Errorf("service layer login: %w", err)
	}
	return transport, nil
}

// disconnect closes sessions opened by connect; configured sessions stay open.
func disconnect(ctx context.Context, cfg *config.Config, transport *servicelayer.HTTPTransport) {
	if cfg.B1SessionID != "" {
		return
	}
	if err := transport.Logout(ctx); err != nil {
		log := logger.WithComponent("cmd")
		log.Warn().Err(err).Msg("Failed to close Service Layer session")
	}
}
