package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fetchd/fetchd/internal/broadcast"
	"github.com/fetchd/fetchd/internal/config"
	"github.com/fetchd/fetchd/internal/downloader"
	"github.com/fetchd/fetchd/internal/downloader/httpdl"
	"github.com/fetchd/fetchd/internal/metrics"
	"github.com/fetchd/fetchd/internal/relay"
	"github.com/fetchd/fetchd/internal/router"
	"github.com/fetchd/fetchd/internal/service"
	"github.com/fetchd/fetchd/internal/sink"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	var out io.Writer = os.Stdout
	if cfg.LogFile != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
		}
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	logger.Info("fetchd starting", "log_level", cfg.LogLevel, "download_dir", cfg.DownloadDir)

	if err := run(logger, cfg); err != nil {
		logger.Error("fatal error", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()

	events := make(chan downloader.Event, 64)
	bc := broadcast.New(16)
	defer bc.Close()

	rl := relay.New(logger, events, bc)
	rl.Run()
	defer rl.Stop()

	opener := sink.NewFileSink(logger, cfg.DownloadDir, sink.Options{Overwrite: cfg.Overwrite})
	engine := httpdl.New(opener, downloader.NewChanReporter(events), httpdl.Options{
		Client:           &http.Client{},
		ChunkSize:        cfg.ChunkSize,
		ProgressInterval: cfg.ProgressIntervalBytes,
	})
	engine.SetLogger(logger)

	svc := service.NewDownload(engine)

	server := &http.Server{
		Addr:         cfg.Web.BindAddress,
		Handler:      router.New(logger, svc, bc),
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("serving API", "addr", cfg.Web.BindAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("start shutdown")

		// An in-flight transfer is cancelled like an explicit Cancel; the
		// partial artifact is discarded before the server goes away.
		engine.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	})

	return g.Wait()
}
