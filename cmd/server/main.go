package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-linkedin-scraper/internal/app"
	"go-linkedin-scraper/internal/browser"
	"go-linkedin-scraper/internal/config"
	"go-linkedin-scraper/internal/logger"
	"go-linkedin-scraper/internal/notify"
	"go-linkedin-scraper/internal/server"

	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", config.DefaultConfigPath, "config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("❌ Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	log := logger.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	var opts []app.Option
	if cfg.NotifyEnabled() {
		tg, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID, log)
		if err != nil {
			log.Warn("⚠️ Telegram disabled", slog.Any("error", err))
		} else {
			opts = append(opts, app.WithNotifier(tg))
		}
	}

	runner := app.NewRunner(cfg, browser.Launch, log, opts...)
	srv := server.New(runner, cfg, log)
	httpSrv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("🌐 Server listening", slog.String("addr", cfg.ServerAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("❌ Server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("🛑 Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	srv.Stop()
	if err := srv.Wait(shutdownCtx); err != nil {
		log.Warn("⚠️ Run did not finish before shutdown", slog.Any("error", err))
	}
	srv.Hub().Close()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("❌ Graceful shutdown failed", slog.Any("error", err))
	}
}
