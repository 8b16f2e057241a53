package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"b1poster/internal/batch"
	"b1poster/internal/config"
	"b1poster/internal/journal"
	"b1poster/internal/logcollector"
	"b1poster/internal/logger"
	"b1poster/internal/posting"
	"b1poster/internal/profile"
	"b1poster/internal/servicelayer"
	"b1poster/internal/sheets"
	"b1poster/internal/workbook"
)

var postCmd = &cobra.Command{
	Use:   "post [workbook.xlsx]",
	Short: "Post every request of an upload workbook",
	Long: `Read an upload workbook and create the documents its profile describes.

Requests already recorded as posted in the journal are skipped, so a
workbook can be posted again after a partial failure.

Required environment variables:
  B1_SERVER - Service Layer host
  B1_SESSION_ID - Existing session, OR
  B1_COMPANY_DB, B1_USERNAME, B1_PASSWORD - Login credentials

Optional environment variables:
  B1_PORT - Service Layer port (default: 50000)
  B1_INSECURE_TLS - Skip certificate verification (default: false)
  LOG_COLLECTOR_URL - Forward progress events to the upload log collector
  JOURNAL_PATH - Journal database (default: b1poster.db)
  PROFILE_PATH - Posting profile (default: profile.yaml)
  GOOGLE_SHEET_URL - Append the results to a Google Sheet`,
	Example: `  # Post a workbook with the default profile
  b1poster post ./uploads/march.xlsx

  # Use another profile and tag progress events with a serial
  b1poster post ./uploads/march.xlsx --profile receipts.yaml --serial UP-2024-031

  # Build every document without posting
  b1poster post ./uploads/march.xlsx --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runPost,
}

func init() {
	rootCmd.AddCommand(postCmd)

	postCmd.Flags().String("profile", "", "Posting profile (default: PROFILE_PATH)")
	postCmd.Flags().String("serial", "", "Upload serial used in progress events")
	postCmd.Flags().Bool("dry-run", false, "Build documents without posting")
	postCmd.Flags().Bool("no-journal", false, "Do not consult or update the journal")
	postCmd.Flags().Bool("no-report", false, "Do not write results to Google Sheets")
	postCmd.Flags().Duration("timeout", 2*time.Hour, "Overall time limit")
}

func runPost(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("post")

	path := args[0]
	profilePath, _ := cmd.Flags().GetString("profile")
	serial, _ := cmd.Flags().GetString("serial")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	noJournal, _ := cmd.Flags().GetBool("no-journal")
	noReport, _ := cmd.Flags().GetBool("no-report")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if profilePath == "" {
		profilePath = cfg.ProfilePath
	}

	p, err := profile.Load(profilePath)
	if err != nil {
		return err
	}
	wb, err := workbook.NewReader().Read(path, serial)
	if err != nil {
		return err
	}

	log.Info().
		Str("workbook", path).
		Str("profile", profilePath).
		Str("serial", wb.Serial).
		Bool("dry_run", dryRun).
		Msg("Starting posting")

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("                              POSTING")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Workbook: %s\n", path)
	fmt.Printf("Profile: %s\n", profilePath)
	fmt.Printf("Serial: %s\n", wb.Serial)
	if dryRun {
		fmt.Println("Mode: dry run (nothing is posted)")
	}
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var client posting.DocumentClient
	var opts []batch.Option
	if dryRun {
		opts = append(opts, batch.WithDryRun(true))
	} else {
		transport, err := connect(ctx, cfg)
		if err != nil {
			return err
		}
		defer disconnect(context.Background(), cfg, transport)
		client = servicelayer.NewClient(transport)
	}

	var sink posting.EventSink
	if cfg.LogCollectorURL != "" {
		sink = logcollector.NewClient(cfg.LogCollectorURL)
		opts = append(opts, batch.WithExternalLogging(true))
	}

	if !noJournal && !dryRun {
		store, err := journal.Open(cfg.JournalPath)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, batch.WithJournal(store))
	}

	if !noReport && !dryRun && cfg.GoogleSheetURL != "" {
		reporter, err := sheets.NewSheetsService(ctx, cfg.GoogleSheetURL, cfg.GoogleSheetWorksheet)
		if err != nil {
			return fmt.Errorf("failed to create sheets service: %w", err)
		}
		opts = append(opts, batch.WithReporter(reporter.WithSerial(wb.Serial)))
	}

	runner := batch.NewRunner(
		posting.NewPoster(client),
		posting.NewCompensator(client),
		posting.NewResultProcessor(sink),
		opts...,
	)
	summary, err := runner.Run(ctx, wb, p)
	if summary != nil {
		printSummary(summary)
	}
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d request(s) failed", summary.Failed, len(summary.Results))
	}
	return nil
}

func printSummary(summary *batch.Summary) {
	for _, result := range summary.Results {
		fmt.Printf("[%s] %s %s - %s", result.Tab, result.RefNo, result.CardCode, strings.ToUpper(result.Status))
		if result.Message != "" {
			fmt.Printf(" (%s)", result.Message)
		}
		fmt.Println()
		if result.Compensation != nil {
			fmt.Printf("    rollback incomplete: %v\n", result.Compensation)
		}
	}

	fmt.Println()
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("                 RESULT")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Posted: %d\n", summary.Posted)
	if summary.Skipped > 0 {
		fmt.Printf("Skipped: %d\n", summary.Skipped)
	}
	if summary.Failed > 0 {
		fmt.Printf("Failed: %d\n", summary.Failed)
	}
	if summary.CompensationFailures > 0 {
		fmt.Printf("Incomplete rollbacks: %d\n", summary.CompensationFailures)
	}
	fmt.Printf("Duration: %s\n", summary.Duration.Round(time.Millisecond))
}
