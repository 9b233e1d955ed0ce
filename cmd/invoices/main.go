package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/joseph-ayodele/jobsite-invoices/internal/common"
	"github.com/joseph-ayodele/jobsite-invoices/internal/export"
	"github.com/joseph-ayodele/jobsite-invoices/internal/invoices"
	"github.com/joseph-ayodele/jobsite-invoices/internal/render"
	"github.com/joseph-ayodele/jobsite-invoices/internal/repository"
	"github.com/joseph-ayodele/jobsite-invoices/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app holds everything a command needs.
type app struct {
	cfg      *common.Config
	logger   *slog.Logger
	store    storage.Store
	invoices *invoices.Service
	exporter *export.Service
}

func setup(ctx context.Context) (*app, error) {
	cfg, err := common.LoadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := common.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	store, err := storage.Open(ctx, cfg.Store, logger)
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.Store.Driver, "error", err)
		return nil, err
	}

	invoiceRepo := repository.NewInvoiceRepository(store, cfg.Store.InvoicesKey, logger)
	settingsRepo := repository.NewSettingsRepository(store, cfg.Store.SettingsKey, cfg.Invoice.DefaultTaxRate, logger)
	svc := invoices.NewService(invoiceRepo, settingsRepo, logger, invoices.WithDateLayout(cfg.Invoice.DateLayout))

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		invoices: svc,
		exporter: export.NewService(svc, logger),
	}, nil
}

func (a *app) close() {
	storage.Close(a.store, a.logger)
}

func (a *app) renderer(dir string) render.Renderer {
	return render.NewFileRenderer(dir, a.logger)
}

func (a *app) healthCheck(ctx context.Context) error {
	return storage.HealthCheck(ctx, a.store, 5*time.Second, a.logger)
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "invoices",
		Usage: "create, track and print jobsite invoices",
		Description: "Configuration comes from INVOICES_* environment variables " +
			"(INVOICES_STORE_DRIVER, INVOICES_STORE_DSN, INVOICES_LOG_LEVEL, ...).",
		Commands: commands(),
	}
}

// withApp opens the store for the duration of one command.
func withApp(fn func(c *cli.Context, a *app) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		a, err := setup(c.Context)
		if err != nil {
			return err
		}
		defer a.close()
		return fn(c, a)
	}
}
