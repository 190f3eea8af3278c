package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/yurifrl/loanbook/pkg/book"
	"github.com/yurifrl/loanbook/pkg/clock"
	"github.com/yurifrl/loanbook/pkg/codec"
	"github.com/yurifrl/loanbook/pkg/config"
	"github.com/yurifrl/loanbook/pkg/server"
	"github.com/yurifrl/loanbook/pkg/service"
	"github.com/yurifrl/loanbook/pkg/store"
)

func main() {
	fs := pflag.NewFlagSet("loanbook-server", pflag.ExitOnError)
	cfgFile := fs.StringP("config", "c", "", "Config file (default is ./loanbook.config.yaml)")
	fs.String("addr", "0.0.0.0:3000", "Listen address")
	fs.String("store", "file", "Storage backend: file or redis")
	fs.String("book", "loanbook.yaml", "Book file used by the file store")
	fs.String("redis-addr", "localhost:6379", "Redis address used by the redis store")
	fs.String("redis-prefix", "loanbook", "Key prefix used by the redis store")
	fs.String("log-level", "info", "Log level: debug, info, warn or error")
	fs.String("today", "", "Pretend today is this date (yyyy-mm-dd)")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Build(*cfgFile, fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		Prefix:          "loanbook",
		Level:           cfg.LogLevel(),
	})

	clk, err := clock.Parse(cfg.Today)
	if err != nil {
		logger.Fatal("invalid today override", "today", cfg.Today, "err", err)
	}
	c := codec.New(clk, logger)

	ctx := context.Background()
	var st book.Store
	switch cfg.Store {
	case "redis":
		client, err := store.DialRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			logger.Fatal("redis unavailable", "addr", cfg.Redis.Addr, "err", err)
		}
		defer client.Close()
		st = store.NewRedisStore(client, cfg.Redis.Prefix, c, logger)
	default:
		st = store.NewFileStore(cfg.Book, c, logger)
	}

	svc, err := service.Open(ctx, st, clk, c, logger)
	if err != nil {
		logger.Fatal("failed to open book", "err", err)
	}

	srv := server.New(svc, logger)
	logger.Info("starting server", "addr", cfg.HTTP.Addr, "store", cfg.Store)
	if err := srv.Start(cfg.HTTP.Addr); err != nil {
		logger.Fatal("server error", "err", err)
	}
}
