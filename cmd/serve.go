package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"appraisal/internal/api"
	"appraisal/internal/cache"
	"appraisal/internal/model"
)

const shutdownTimeout = 10 * time.Second

var (
	servePort  int
	serveModel string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve price estimates over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		log := zap.L().With(zap.String("command", "serve"))

		applyServeFlags(cmd)
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		// A missing or corrupt artifact leaves the service up but degraded.
		a, loadErr := model.Load(cfg.Model.Path)
		if loadErr != nil {
			log.Warn("model unavailable", zap.String("path", cfg.Model.Path), zap.Error(loadErr))
		} else {
			log.Info("model loaded", zap.String("model_id", a.ID), zap.Int("training_rows", a.TrainingRows))
		}

		opts := api.Options{AllowUnknown: cfg.Predict.AllowUnknown, Logger: log}
		if cfg.Redis.Addr != "" {
			client, err := cache.Connect(ctx, cfg.Redis.Addr)
			if err != nil {
				log.Warn("prediction cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			} else {
				defer client.Close()
				opts.Cache = cache.NewPredictionCache(client, cfg.Redis.TTL(), log)
				log.Info("prediction cache enabled", zap.String("addr", cfg.Redis.Addr))
			}
		}

		gin.SetMode(gin.ReleaseMode)
		router := api.NewRouter("appraisal", version, api.NewModelHandler(a, loadErr, opts))

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			log.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error("shutdown", zap.Error(err))
			}
		}()

		log.Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

// applyServeFlags copies explicitly set flags onto the loaded config.
func applyServeFlags(cmd *cobra.Command) {
	if cmd.Flags().Changed("model") {
		cfg.Model.Path = serveModel
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = servePort
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().StringVar(&serveModel, "model", "", "artifact path (default model.path)")
	rootCmd.AddCommand(serveCmd)
}
