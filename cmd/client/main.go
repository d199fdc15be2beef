package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"CardVault/internal/cli/commands"
	"CardVault/internal/config"
)

// заполняются через -ldflags "-X main.version=... -X main.buildDate=..."
var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	// общий конфиг с сервером: .env, переменные окружения, флаги
	cfg := config.NewConfig()

	if cfg.Version {
		printVersion(cfg)
		return
	}

	// Ctrl+C прерывает долгую загрузку файла
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := commands.Dispatch(ctx, cfg, flag.Args())
	cancel()
	os.Exit(code)
}

func printVersion(cfg *config.Config) {
	fmt.Printf("CardVault CLI\nVersion: %s\nBuild date: %s\nServer: %s\n", version, buildDate, cfg.ServerURL)
}
