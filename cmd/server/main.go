package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/JaimeStill/casse/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config load failed:", err)
	}

	srv, err := NewServer(cfg)
	if err != nil {
		log.Fatal("server init failed:", err)
	}
	logger := srv.infra.Logger
	defer logger.Sync()

	logger.Info(
		"casse starting",
		zap.String("version", cfg.Version),
		zap.String("addr", cfg.Server.Addr()),
		zap.String("env", cfg.Env()),
	)

	if err := srv.Start(); err != nil {
		logger.Fatal("service start failed", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	if err := srv.Shutdown(cfg.ShutdownTimeoutDuration()); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("casse stopped")
}
