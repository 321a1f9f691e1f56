package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/Spok95/expo-stand-bot/internal/bot"
	"github.com/Spok95/expo-stand-bot/internal/config"
	"github.com/Spok95/expo-stand-bot/internal/dialog"
	"github.com/Spok95/expo-stand-bot/internal/domain/catalog"
	"github.com/Spok95/expo-stand-bot/internal/domain/configurations"
	"github.com/Spok95/expo-stand-bot/internal/domain/users"
	"github.com/Spok95/expo-stand-bot/internal/infra/db"
	httpx "github.com/Spok95/expo-stand-bot/internal/infra/http"
	"github.com/Spok95/expo-stand-bot/internal/infra/logger"
	"github.com/Spok95/expo-stand-bot/internal/infra/metrics"
	"github.com/Spok95/expo-stand-bot/internal/infra/payments"
	"github.com/Spok95/expo-stand-bot/internal/infra/storage"
	"github.com/Spok95/expo-stand-bot/migrations"
)

var (
	configPath string
	cfg        config.Config
	log        *slog.Logger
)

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "expo-stand-bot",
		Short:         "Telegram bot for exhibitor stand configuration",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = c
			log = logger.New(cfg.App.Env)
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config/example.yaml", "path to YAML config")

	root.AddCommand(serveCmd(), migrateCmd(), catalogCmd(), ordersCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Apply migrations, start HTTP server and Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.RequireEvent(); err != nil {
				return err
			}
			if err := runMigrations(cfg.Postgres.DSN); err != nil {
				log.Error("migrations failed", "err", err)
				return err
			}
			log.Info("migrations applied")

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	pool, err := db.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Error("db connect failed", "err", err)
		return err
	}
	defer pool.Close()
	log.Info("db connected")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	payRepo := payments.NewRepo(pool)
	paySvc := payments.NewService(cfg.Payments.BaseURL, payRepo, log)
	observer := payments.NewObserver(payRepo, cfg.Payments.PollInterval, cfg.Payments.PollTimeout, log)
	defer observer.Close()

	opts := httpx.Options{Payments: payments.NewHandler(log, payRepo)}
	if cfg.Metrics.Enabled {
		opts.Gatherer = reg
	}
	srv := httpx.New(cfg.HTTP.Addr, opts)
	go func() {
		if err := srv.Start(); err != nil {
			log.Error("http server error", "err", err)
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		log.Info("graceful shutdown complete")
	}()

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		log.Error("telegram init failed", "err", err)
		return err
	}
	log.Info("telegram authorized", "username", api.Self.UserName)

	b := bot.New(api, log, bot.Deps{
		Users:    users.NewRepo(pool),
		States:   dialog.NewRepo(pool),
		Catalog:  catalog.NewRepo(pool),
		Configs:  configurations.NewRepo(pool),
		Payments: paySvc,
		Observer: observer,
		Storage:  storage.New(cfg.Storage.UploadURL, cfg.Storage.MaxBytes, 30*time.Second),
		Metrics:  m,
	}, bot.Options{
		AdminChatID: cfg.Telegram.AdminChatID,
		EventID:     cfg.Wizard.EventID,
		GroupTitle:  cfg.Wizard.GroupTitle,
		TermsURL:    cfg.Wizard.TermsURL,
		RedirectURL: cfg.Payments.RedirectURL,
	})

	if err := b.Run(ctx, cfg.Telegram.TimeoutSec); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("bot stopped", "err", err)
		return err
	}
	return nil
}

func runMigrations(dsn string) error {
	sqlDB, err := goose.OpenDBWithDriver("postgres", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	return migrations.Up(sqlDB)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runMigrations(cfg.Postgres.DSN); err != nil {
				log.Error("migrations failed", "err", err)
				return err
			}
			log.Info("migrations applied")
			return nil
		},
	}
}

// withPool — подключение для разовых команд.
func withPool(ctx context.Context, fn func(pool *pgxpool.Pool) error) error {
	if err := cfg.RequireEvent(); err != nil {
		return err
	}
	pool, err := db.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(pool)
}

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Stand catalog maintenance",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "import <file.xlsx>",
		Short: "Replace event catalog from Excel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			products, err := catalog.ReadExcel(f)
			if err != nil {
				return err
			}
			return withPool(cmd.Context(), func(pool *pgxpool.Pool) error {
				if err := catalog.NewRepo(pool).ReplaceCatalog(cmd.Context(), cfg.Wizard.EventID, products); err != nil {
					return err
				}
				log.Info("catalog imported", "event_id", cfg.Wizard.EventID, "products", len(products))
				return nil
			})
		},
	}, &cobra.Command{
		Use:   "export <file.xlsx>",
		Short: "Write event catalog to Excel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd.Context(), func(pool *pgxpool.Pool) error {
				products, err := catalog.NewRepo(pool).FetchProducts(cmd.Context(), cfg.Wizard.EventID)
				if err != nil {
					return err
				}
				return writeFile(args[0], func(f *os.File) error { return catalog.WriteExcel(f, products) })
			})
		},
	})
	return cmd
}

func ordersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Submitted stand orders",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "export <file.xlsx>",
		Short: "Write event orders to Excel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd.Context(), func(pool *pgxpool.Pool) error {
				rows, err := configurations.NewRepo(pool).ListByEvent(cmd.Context(), cfg.Wizard.EventID)
				if err != nil {
					return err
				}
				if err := writeFile(args[0], func(f *os.File) error { return configurations.WriteExcel(f, rows) }); err != nil {
					return err
				}
				log.Info("orders exported", "event_id", cfg.Wizard.EventID, "rows", len(rows))
				return nil
			})
		},
	})
	return cmd
}

func writeFile(path string, fn func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
