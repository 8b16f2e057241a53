package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"b1poster/internal/config"
	"b1poster/internal/document"
	"b1poster/internal/logger"
	"b1poster/internal/posting"
	"b1poster/internal/servicelayer"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel [kind] [doc-entry]",
	Short: "Cancel a single document",
	Long: `Cancel a document created earlier, e.g. after an incomplete rollback.

kind is a document name (ARInvoice), Service Layer resource (Invoices) or
object type (13). Down payments cannot be cancelled; they are reversed with
a credit memo during the rollback of a posting.`,
	Example: `  b1poster cancel ARInvoice 4711
  b1poster cancel 20 812`,
	Args: cobra.ExactArgs(2),
	RunE: runCancel,
}

func init() {
	rootCmd.AddCommand(cancelCmd)
}

func runCancel(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("cancel")

	kind, err := document.ParseKind(args[0])
	if err != nil {
		return err
	}
	if kind == document.ARDownPayment {
		return fmt.Errorf("%s documents cannot be cancelled", kind)
	}
	docEntry, err := strconv.Atoi(args[1])
	if err != nil || docEntry <= 0 {
		return fmt.Errorf("invalid doc entry: %s", args[1])
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	transport, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer disconnect(context.Background(), cfg, transport)

	compensator := posting.NewCompensator(servicelayer.NewClient(transport))
	if err := compensator.CompensateOne(ctx, posting.CreationRecord{Kind: kind, DocEntry: docEntry}); err != nil {
		return err
	}

	log.Info().Str("kind", kind.String()).Int("doc_entry", docEntry).Msg("Document cancelled")
	fmt.Printf("%s %d cancelled\n", kind, docEntry)
	return nil
}
