package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/efreitasn/spotbot/internal/cli"
	"github.com/efreitasn/spotbot/internal/config"
	"github.com/efreitasn/spotbot/internal/exchange"
	"github.com/efreitasn/spotbot/internal/gateway"
	"github.com/efreitasn/spotbot/internal/logging"
	"github.com/efreitasn/spotbot/internal/service"
	"github.com/joho/godotenv"
)

func main() {
	// A .env file is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Logs go to stderr so they do not interleave with the prompts on stdout.
	logger, closeLog, err := logging.Open(cfg.LogFile, cfg.LogLevel, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()
	slog.SetDefault(logger)

	client := exchange.NewClient(cfg.APIKey, cfg.APISecret,
		exchange.WithBaseURL(cfg.BaseURL),
		exchange.WithRecvWindow(cfg.RecvWindow),
		exchange.WithTimeout(cfg.HTTPTimeout),
	)
	gw := gateway.New(client, logger)
	orderSvc := service.NewOrderService(gw)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	menu := cli.NewMenu(os.Stdin, os.Stdout, orderSvc, logger)
	if err := menu.Run(ctx); err != nil {
		logger.Error("read order input", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		closeLog()
		os.Exit(1)
	}
}
