package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/outreach-cli/internal/dispatch"
	"github.com/sells-group/outreach-cli/internal/fetcher"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/normalize"
	"github.com/sells-group/outreach-cli/pkg/wagateway"
)

var (
	sendFile      string
	sendMessage   string
	sendBatchSize int
	sendDryRun    bool
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Dispatch a message to every contact in a spreadsheet",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("send"); err != nil {
			return err
		}

		rows, err := fetcher.ParseContacts(sendFile, fetcher.XLSXOptions{
			SheetIndex: cfg.Ingest.SheetIndex,
			SkipRows:   cfg.Ingest.SkipRows,
		})
		if err != nil {
			return eris.Wrap(err, "parse contacts")
		}

		contacts := make([]model.Contact, 0, len(rows))
		skipped := 0
		for _, row := range rows {
			phone, ok := normalize.Phone(row.Phone)
			if !ok {
				skipped++
				continue
			}
			contacts = append(contacts, model.Contact{Name: row.Name, Phone: phone})
		}
		if skipped > 0 {
			zap.L().Warn("contacts without a usable phone were skipped", zap.Int("skipped", skipped))
		}
		if len(contacts) == 0 {
			return eris.New("no dispatchable contacts in file")
		}

		if sendDryRun {
			zap.L().Info("dry run",
				zap.Int("contacts", len(contacts)),
				zap.Int("batch_size", dispatchConfig().BatchSize),
			)
			return nil
		}

		channel := dispatch.NewGatewayChannel(wagateway.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.Token))
		if err := channel.WaitReady(ctx, cfg.Gateway.ReadyTimeout(), cfg.Gateway.ProbeInterval()); err != nil {
			return err
		}

		opts := []dispatch.Option{}
		if cfg.Dispatch.RatePerSec > 0 {
			opts = append(opts, dispatch.WithRateLimit(rate.Limit(cfg.Dispatch.RatePerSec), cfg.Dispatch.RateBurst))
		}
		engine := dispatch.NewEngine(channel, opts...)

		result, err := engine.Dispatch(ctx, contacts, sendMessage, dispatchConfig())
		if err != nil {
			return eris.Wrap(err, "dispatch")
		}

		for _, f := range result.Failed {
			zap.L().Warn("send failed",
				zap.String("name", f.Contact.Name),
				zap.String("phone", f.Contact.Phone),
				zap.String("error", f.Error),
			)
		}
		zap.L().Info("dispatch complete",
			zap.Int("sent", len(result.Sent)),
			zap.Int("failed", len(result.Failed)),
			zap.Int("total", result.Total()),
		)
		return nil
	},
}

// dispatchConfig merges config-file batching with the --batch-size override.
func dispatchConfig() dispatch.Config {
	dc := dispatch.Config{
		BatchSize:  cfg.Dispatch.BatchSize,
		BatchDelay: cfg.Dispatch.BatchDelay(),
	}
	if sendBatchSize > 0 {
		dc.BatchSize = sendBatchSize
	}
	return dc
}

func init() {
	sendCmd.Flags().StringVar(&sendFile, "file", "", "path to contacts .xlsx (required)")
	sendCmd.Flags().StringVar(&sendMessage, "message", "", "message text (required)")
	sendCmd.Flags().IntVar(&sendBatchSize, "batch-size", 0, "batch size (default from config)")
	sendCmd.Flags().BoolVar(&sendDryRun, "dry-run", false, "parse and count contacts without sending")
	_ = sendCmd.MarkFlagRequired("file")
	_ = sendCmd.MarkFlagRequired("message")
	rootCmd.AddCommand(sendCmd)
}
