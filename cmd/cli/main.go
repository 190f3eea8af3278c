package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/yurifrl/loanbook/pkg/book"
	"github.com/yurifrl/loanbook/pkg/clock"
	"github.com/yurifrl/loanbook/pkg/codec"
	"github.com/yurifrl/loanbook/pkg/config"
	"github.com/yurifrl/loanbook/pkg/service"
	"github.com/yurifrl/loanbook/pkg/store"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "loanbook",
	Short:         "Track loans owed by your contacts",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Show help when no subcommand is provided
		return cmd.Help()
	},
}

// app bundles what every subcommand needs once config is resolved.
type app struct {
	cfg    *config.Config
	logger *log.Logger
	svc    *service.Service
	redis  *redis.Client
}

func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
}

func setup(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Build(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "loanbook",
		Level:           cfg.LogLevel(),
	})

	clk, err := clock.Parse(cfg.Today)
	if err != nil {
		return nil, fmt.Errorf("invalid today override %q: %w", cfg.Today, err)
	}
	c := codec.New(clk, logger)

	a := &app{cfg: cfg, logger: logger}
	var st book.Store
	switch cfg.Store {
	case "redis":
		client, err := store.DialRedis(cmd.Context(), cfg.Redis.Addr)
		if err != nil {
			return nil, err
		}
		a.redis = client
		st = store.NewRedisStore(client, cfg.Redis.Prefix, c, logger)
	default:
		st = store.NewFileStore(cfg.Book, c, logger)
	}

	svc, err := service.Open(cmd.Context(), st, clk, c, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.svc = svc
	logger.Debug("book opened", "store", cfg.Store, "contacts", svc.Book().Len(), "today", clk.Today())
	return a, nil
}

// withApp adapts a handler that needs the opened book into a cobra RunE.
func withApp(fn func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, args, a)
	}
}

func init() {
	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "Config file (default is ./loanbook.config.yaml)")
	pf.String("store", "file", "Storage backend: file or redis")
	pf.String("book", "loanbook.yaml", "Book file used by the file store")
	pf.String("redis-addr", "localhost:6379", "Redis address used by the redis store")
	pf.String("redis-prefix", "loanbook", "Key prefix used by the redis store")
	pf.String("log-level", "info", "Log level: debug, info, warn or error")
	pf.String("today", "", "Pretend today is this date (yyyy-mm-dd)")

	rootCmd.AddCommand(contactCmd, loanCmd, sortCmd, exportCmd, verifyCmd, planCmd, applyCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
