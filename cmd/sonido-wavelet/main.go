package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/RyanBlaney/sonido-wavelet/config"
	"github.com/RyanBlaney/sonido-wavelet/logging"
	"github.com/RyanBlaney/sonido-wavelet/pipeline"
	"github.com/RyanBlaney/sonido-wavelet/server"
	"github.com/RyanBlaney/sonido-wavelet/store"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfgPath := os.Getenv("SONIDO_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if raw := os.Getenv("SONIDO_ENV_ONLY"); raw != "" {
		envOnly = strings.EqualFold(raw, "true") || raw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	zl, level, err := logging.NewZap(cfg.Log)
	if err != nil {
		panic(err)
	}
	zapLogger := logging.NewZapLogger(zl, level)
	defer zapLogger.Sync()
	logging.SetGlobalLogger(zapLogger)

	logger := logging.WithFields(logging.Fields{"component": "main"})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	uploads, sweepTarget, closer, err := openStore(cfg.Store)
	if err != nil {
		logger.Fatal(err, "store open failed", logging.Fields{"backend": cfg.Store.Backend})
	}
	if closer != nil {
		defer closer.Close()
	}

	if sweepTarget != nil {
		sweeper, err := store.NewExpirySweeper(ctx, cfg.Store.SweepSchedule, sweepTarget)
		if err != nil {
			logger.Fatal(err, "sweeper setup failed", logging.Fields{"schedule": cfg.Store.SweepSchedule})
		}
		sweeper.Start()
		defer sweeper.Stop()
	}

	metrics := server.NewMetrics(prometheus.DefaultRegisterer)
	p, err := pipeline.New(uploads, cfg.Pipeline, pipeline.WithObserver(metrics))
	if err != nil {
		logger.Fatal(err, "pipeline setup failed")
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := server.NewRouter(p, server.Options{
		CORSOrigins:    cfg.Server.CORSOrigins,
		MaxUploadBytes: cfg.Server.MaxUploadBytes(),
		Metrics:        metrics,
		Gatherer:       prometheus.DefaultGatherer,
	})

	srv := &http.Server{
		Addr:         cfg.Server.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("http server starting", logging.Fields{
			"addr":    cfg.Server.HTTPAddr,
			"backend": cfg.Store.Backend,
			"env":     cfg.App.Env,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(err, "http server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(err, "http server shutdown failed")
	}
}

// openStore builds the configured upload store. The sweeper target is nil
// for backends that expire entries natively.
func openStore(cfg config.StoreConfig) (store.Store, store.Sweeper, io.Closer, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		s := store.NewMemoryStore(cfg.TTL)
		return s, s, nil, nil
	case config.BackendRedis:
		s := store.NewRedisStore(cfg.Redis, cfg.TTL)
		return s, nil, s, nil
	case config.BackendPostgres:
		s, err := store.NewPostgresStore(cfg.Postgres, cfg.TTL)
		if err != nil {
			return nil, nil, nil, err
		}
		return s, s, s, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
