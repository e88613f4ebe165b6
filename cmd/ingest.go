package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/fetcher"
	"github.com/sells-group/outreach-cli/internal/ingest"
	"github.com/sells-group/outreach-cli/internal/model"
)

var (
	ingestFile     string
	ingestMode     string
	ingestSheet    string
	ingestSkipRows int
	ingestSheetIdx int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest a client spreadsheet into the store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if !model.ValidIngestMode(ingestMode) {
			return eris.Errorf("mode must be contacts or client_data, got %q", ingestMode)
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		opts := fetcher.XLSXOptions{
			SheetIndex: ingestSheetIdx,
			SheetName:  ingestSheet,
			SkipRows:   ingestSkipRows,
		}

		var rows ingest.RowSet
		switch model.IngestMode(ingestMode) {
		case model.ModeContacts:
			rows, err = fetcher.ParseContacts(ingestFile, opts)
		case model.ModeClientData:
			rows, err = fetcher.ParseClientData(ingestFile, opts)
		}
		if err != nil {
			return eris.Wrap(err, "parse spreadsheet")
		}

		size := int64(0)
		if info, statErr := os.Stat(ingestFile); statErr == nil {
			size = info.Size()
		}

		session, err := st.CreateSession(ctx, ingestFile, size, model.IngestMode(ingestMode))
		if err != nil {
			return eris.Wrap(err, "create session")
		}

		if err := ingest.New(st).Ingest(ctx, session, rows); err != nil {
			return eris.Wrapf(err, "session %s", session.ID)
		}

		zap.L().Info("ingest complete",
			zap.String("session_id", session.ID),
			zap.String("file", ingestFile),
			zap.String("mode", ingestMode),
			zap.Int("processed", session.ProcessedRecords),
			zap.Int64("elapsed_ms", session.ProcessingTimeMs),
		)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestFile, "file", "", "path to .xlsx file (required)")
	ingestCmd.Flags().StringVar(&ingestMode, "mode", "contacts", "ingest mode: contacts or client_data")
	ingestCmd.Flags().StringVar(&ingestSheet, "sheet", "", "sheet name (default: by index)")
	ingestCmd.Flags().IntVar(&ingestSheetIdx, "sheet-index", 0, "sheet index when no name is given")
	ingestCmd.Flags().IntVar(&ingestSkipRows, "skip-rows", 1, "header rows to skip")
	_ = ingestCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(ingestCmd)
}
