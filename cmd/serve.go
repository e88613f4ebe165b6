package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/outreach-cli/internal/api"
	"github.com/sells-group/outreach-cli/internal/dispatch"
	"github.com/sells-group/outreach-cli/internal/fetcher"
	"github.com/sells-group/outreach-cli/pkg/wagateway"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for uploads, dispatch and classification",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		classifier, err := initClassifier()
		if err != nil {
			return err
		}

		// The gateway may still be pairing when the server starts. A
		// background probe keeps the channel state current; an unready
		// channel only fails /send, never the whole server.
		channel := dispatch.NewGatewayChannel(wagateway.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.Token))
		if _, err := channel.Probe(ctx); err != nil {
			zap.L().Warn("gateway probe failed at startup", zap.Error(err))
		}
		go probeLoop(ctx, channel, cfg.Gateway.ProbeInterval())

		opts := []dispatch.Option{}
		if cfg.Dispatch.RatePerSec > 0 {
			opts = append(opts, dispatch.WithRateLimit(rate.Limit(cfg.Dispatch.RatePerSec), cfg.Dispatch.RateBurst))
		}
		engine := dispatch.NewEngine(channel, opts...)

		handlers := api.NewHandlers(st, classifier, engine,
			dispatch.Config{
				BatchSize:  cfg.Dispatch.BatchSize,
				BatchDelay: cfg.Dispatch.BatchDelay(),
			},
			fetcher.XLSXOptions{
				SheetIndex: cfg.Ingest.SheetIndex,
				SkipRows:   cfg.Ingest.SkipRows,
			},
		)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: api.Routes(handlers),
		}

		// Graceful shutdown: the signal context is already cancelled here,
		// so drain in-flight requests on a fresh timeout.
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func probeLoop(ctx context.Context, channel *dispatch.GatewayChannel, interval time.Duration) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := channel.Probe(ctx); err != nil {
				zap.L().Debug("gateway probe failed", zap.Error(err))
			}
		}
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
