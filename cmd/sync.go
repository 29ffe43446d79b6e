package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harbor-legal/docketwatch/internal/docket"
	"github.com/harbor-legal/docketwatch/internal/store"
)

var (
	syncMetadataOnly bool
	syncJSON         bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync pass against the source dataset",
	Long: `Run one full sync pass: metadata sync, ghost detection, then
quota-bounded OCR enrichment. Phases run strictly in that order.

Use --metadata-only to skip ghost detection and enrichment.
Use --json to print the run summary as JSON instead of text.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "sync"))

		if err := cfg.Validate("sync"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		// Ensure migrations are current.
		if err := store.Migrate(ctx, st.Pool()); err != nil {
			return eris.Wrap(err, "sync: migrate")
		}

		engine := buildEngine(st, cfg)
		log.Info("starting sync run", zap.Bool("metadata_only", syncMetadataOnly))

		summary, err := engine.Run(ctx, docket.RunOptions{MetadataOnly: syncMetadataOnly})
		if errors.Is(err, docket.ErrRunInProgress) {
			return err
		}
		if summary != nil {
			printRunSummary(os.Stdout, summary, syncJSON)
		}
		return err
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncMetadataOnly, "metadata-only", false, "skip ghost detection and enrichment")
	syncCmd.Flags().BoolVar(&syncJSON, "json", false, "print summary as JSON")
	rootCmd.AddCommand(syncCmd)
}

// printRunSummary renders the run outcome for operators.
func printRunSummary(out io.Writer, s *docket.RunSummary, asJSON bool) {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		_ = enc.Encode(s)
		return
	}

	fmt.Fprintf(out, "Run %s in %s\n",
		map[bool]string{true: "succeeded", false: "failed"}[s.Success],
		s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond),
	)
	if s.Error != "" {
		fmt.Fprintf(out, "  error: %s\n", s.Error)
	}
	fmt.Fprintf(out, "  clients: %d  terms: %d (failed: %d)\n", s.Clients, s.FetchTerms, s.FetchTermErrors)
	if s.Metadata != nil {
		fmt.Fprintf(out, "  metadata: seen=%d created=%d updated=%d unchanged=%d skipped=%d flagged=%d errors=%d\n",
			s.Metadata.RecordsSeen, s.Metadata.Created, s.Metadata.Updated,
			s.Metadata.Unchanged, s.Metadata.Skipped, s.Metadata.EnrichFlagged, s.Metadata.Errors)
	}
	if s.Ghost != nil {
		fmt.Fprintf(out, "  ghosts: scanned=%d missing=%d warned=%d archived=%d errors=%d\n",
			s.Ghost.Scanned, s.Ghost.Missing, s.Ghost.Warned, s.Ghost.Archived, s.Ghost.Errors)
	}
	if s.Enrichment != nil {
		fmt.Fprintf(out, "  enrichment: %s (quota remaining: %d)\n", s.Enrichment, s.QuotaRemaining)
	}
}
