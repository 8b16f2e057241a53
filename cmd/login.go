package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"b1poster/internal/config"
	"b1poster/internal/servicelayer"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Open a Service Layer session and print its id",
	Long: `Log in with B1_COMPANY_DB, B1_USERNAME and B1_PASSWORD and print the
session id. Export it as B1_SESSION_ID to reuse the session across runs.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	transportCfg := cfg.GetTransportConfig()
	transportCfg.SessionID = ""
	transport := servicelayer.NewHTTPTransport(transportCfg)

	sessionID, err := transport.Login(ctx, cfg.GetCredentials())
	if err != nil {
		return err
	}
	fmt.Println(sessionID)
	return nil
}
