package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/harbor-legal/docketwatch/internal/model"
)

var statusFormat string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the sync status record",
	Long:  "Displays the singleton sync status: last run outcome, per-phase timestamps, and today's enrichment quota usage.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("status"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		status, err := st.GetSyncStatus(ctx)
		if err != nil {
			return eris.Wrap(err, "status")
		}

		return formatStatus(os.Stdout, status, statusFormat)
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusFormat, "format", "table", "output format: table, json, yaml")
	rootCmd.AddCommand(statusCmd)
}

// formatStatus renders the status record in the requested format.
func formatStatus(out io.Writer, s *model.SyncStatus, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case "yaml":
		return yaml.NewEncoder(out).Encode(s)
	case "table":
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "last run\t%s\n", formatTime(s.LastRunAt))
		fmt.Fprintf(w, "last run outcome\t%s\n", formatOutcome(s))
		fmt.Fprintf(w, "metadata sync\t%s\n", formatTime(s.LastMetadataAt))
		fmt.Fprintf(w, "ghost scan\t%s\n", formatTime(s.LastGhostScanAt))
		fmt.Fprintf(w, "enrichment\t%s\n", formatTime(s.LastEnrichmentAt))
		fmt.Fprintf(w, "ocr today\t%d (%s)\n", s.OCRProcessedToday, s.OCRProcessedDate)
		fmt.Fprintf(w, "last run counts\tcreated=%d updated=%d archived=%d enriched=%d\n",
			s.LastRunCreated, s.LastRunUpdated, s.LastRunArchived, s.LastRunEnriched)
		return w.Flush()
	default:
		return eris.Errorf("status: unknown format %q", format)
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

func formatOutcome(s *model.SyncStatus) string {
	if s.LastRunSuccess == nil {
		return "never ran"
	}
	if *s.LastRunSuccess {
		return "success"
	}
	if s.LastRunError != "" {
		return "failed: " + truncate(s.LastRunError, 80)
	}
	return "failed"
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
