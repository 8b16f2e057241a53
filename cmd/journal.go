package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"b1poster/internal/config"
	"b1poster/internal/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal [serial[/tab]]",
	Short: "List journal entries",
	Long: `List the journal entries recorded by previous posting runs, optionally
restricted to one upload serial or one tab of it.`,
	Example: `  b1poster journal
  b1poster journal UP-2024-031/Sales --failed
  b1poster journal UP-2024-031 --json

  # Allow a request to be posted again after fixing it in the ERP
  b1poster journal UP-2024-031/Sales/R-17 --clear`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJournal,
}

func init() {
	rootCmd.AddCommand(journalCmd)

	journalCmd.Flags().Bool("failed", false, "Only show requests that were not posted")
	journalCmd.Flags().Bool("json", false, "Output entries as JSON")
	journalCmd.Flags().Bool("clear", false, "Delete the entry with the given key")
}

func runJournal(cmd *cobra.Command, args []string) error {
	failedOnly, _ := cmd.Flags().GetBool("failed")
	asJSON, _ := cmd.Flags().GetBool("json")
	clearEntry, _ := cmd.Flags().GetBool("clear")

	prefix := ""
	if len(args) == 1 {
		prefix = args[0]
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	store, err := journal.Open(cfg.JournalPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if clearEntry {
		if prefix == "" {
			return fmt.Errorf("--clear needs the full key of an entry")
		}
		if err := store.Delete(prefix); err != nil {
			return fmt.Errorf("clear %s: %w", prefix, err)
		}
		fmt.Printf("%s cleared\n", prefix)
		return nil
	}

	entries, err := store.List(prefix)
	if err != nil {
		return err
	}
	if failedOnly {
		filtered := entries[:0]
		for _, e := range entries {
			if !e.Valid {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	if asJSON {
		jsonData, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal entries: %w", err)
		}
		fmt.Println(string(jsonData))
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tSTATUS\tDOCUMENTS\tPOSTED AT\tMESSAGE")
	for _, e := range entries {
		status := "posted"
		switch {
		case e.Valid:
		case e.NeedsAttention:
			status = "rollback incomplete"
		case e.Compensated:
			status = "rolled back"
		default:
			status = "failed"
		}
		docs := ""
		for _, s := range e.Steps {
			if s.DocEntry == 0 {
				continue
			}
			if docs != "" {
				docs += ","
			}
			docs += fmt.Sprintf("%s:%d", s.Kind, s.DocEntry)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.Key, status, docs, e.PostedAt.Format("2006-01-02 15:04"), e.Message)
	}
	return w.Flush()
}
