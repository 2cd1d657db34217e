package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/PiranhaCodes/ptyexpect/internal/api"
	"github.com/PiranhaCodes/ptyexpect/internal/config"
)

// expandPath expands the tilde (~) character to the user's home directory.
func expandPath(path string) (string, error) {
	if len(path) == 0 {
		return path, nil
	}

	if path[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		if len(path) == 1 {
			return homeDir, nil
		}
		if path[1] == '/' || path[1] == '\\' {
			return filepath.Join(homeDir, path[2:]), nil
		}
	}

	return path, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}

func main() {
	cfgPathRaw := flag.String("config", "~/.ptyexpect/config.yml", "Path to configuration file")
	socketOverride := flag.String("socket", "", "Path to Unix socket (overrides config)")
	flag.Parse()

	cfgPath, err := expandPath(*cfgPathRaw)
	if err != nil {
		log.Fatalf("failed to expand config path: %v", err)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *socketOverride != "" {
		cfg.Socket = *socketOverride
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	socketPath, err := expandPath(cfg.Socket)
	if err != nil {
		logger.Fatal("failed to expand socket path", zap.Error(err))
	}
	if err := os.MkdirAll(filepath.Dir(socketPath), 0755); err != nil {
		logger.Fatal("failed to create socket directory", zap.Error(err))
	}

	logger.Info("starting daemon",
		zap.String("config", cfgPath),
		zap.String("socket", socketPath))

	manager := api.NewManager(logger, cfg.OutputBufferSize, time.Duration(cfg.ExitGrace))
	server := api.NewServer(socketPath, manager, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	manager.ExitAll()
	server.Stop()
	logger.Info("shutdown complete")
}
