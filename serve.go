package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/landing-verdict/backend/analyzer"
	"github.com/landing-verdict/backend/logging"
	"github.com/landing-verdict/backend/middleware"
	"github.com/landing-verdict/backend/server"
	"github.com/landing-verdict/backend/stats"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the verdict HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		gin.SetMode(cfg.Server.Mode)

		storage, err := stats.NewStorage(cfg.Stats.DataDir)
		if err != nil {
			return eris.Wrap(err, "serve: init stats storage")
		}
		storage.Cleanup(cfg.Stats.RetainMonths)

		a := analyzer.New(analyzer.Config{
			Fetch:          cfg.Fetch.Fetcher(),
			MaxConcurrency: cfg.Batch.MaxConcurrency,
		}, storage)
		defer func() {
			if err := a.Shutdown(); err != nil {
				zap.L().Error("analyzer shutdown", zap.Error(err))
			}
		}()

		requestStats, err := logging.NewStatistics(cfg.Stats.DataDir, cfg.Server.DevMode)
		if err != nil {
			zap.L().Warn("could not load existing statistics", zap.Error(err))
		}
		defer func() {
			if err := requestStats.Save(); err != nil {
				zap.L().Warn("statistics save failed", zap.Error(err))
			}
		}()

		srv := server.New(server.Options{
			Analyzer:         a,
			Statistics:       requestStats,
			Limiter:          middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
			MaxBodyBytes:     cfg.Fetch.MaxBodyBytes,
			BatchConcurrency: cfg.Batch.MaxConcurrency,
			DevMode:          cfg.Server.DevMode,
		})

		port := cfg.Server.Port
		if servePort > 0 {
			port = servePort
		}
		httpServer := &http.Server{
			Addr:              ":" + strconv.Itoa(port),
			Handler:           srv.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			zap.L().Info("server starting", zap.Int("port", port), zap.String("mode", cfg.Server.Mode))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err, ok := <-errCh:
			if ok {
				return eris.Wrap(err, "serve: listen")
			}
			return nil
		case <-ctx.Done():
		}

		zap.L().Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "override server.port")
}
