package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-crm/cmd/odyssey/cli"
	"github.com/odyssey-erp/odyssey-crm/internal/app"
	"github.com/odyssey-erp/odyssey-crm/internal/billing"
	"github.com/odyssey-erp/odyssey-crm/internal/crm"
	"github.com/odyssey-erp/odyssey-crm/internal/docseq"
	"github.com/odyssey-erp/odyssey-crm/internal/inventory"
	"github.com/odyssey-erp/odyssey-crm/internal/notifications"
	"github.com/odyssey-erp/odyssey-crm/internal/observability"
	"github.com/odyssey-erp/odyssey-crm/internal/platform/db"
	"github.com/odyssey-erp/odyssey-crm/internal/platform/filestore"
	"github.com/odyssey-erp/odyssey-crm/internal/projects"
	"github.com/odyssey-erp/odyssey-crm/internal/sales/quotations"
	"github.com/odyssey-erp/odyssey-crm/internal/shared"
	"github.com/odyssey-erp/odyssey-crm/jobs"
	"github.com/odyssey-erp/odyssey-crm/migrations"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if len(os.Args) > 1 {
		os.Exit(runCommand(ctx, cfg, logger, os.Args[1:]))
	}

	if cfg.MigrateOnStart {
		if err := db.Migrate(cfg.PGDSN, migrations.FS, ".", logger); err != nil {
			logger.Error("migrate", slog.Any("error", err))
			os.Exit(1)
		}
	}

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	store, err := filestore.Open(ctx, cfg.Storage(), logger)
	if err != nil {
		logger.Error("open file store", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	allocator := docseq.New(
		docseq.WithMaxAttempts(cfg.SequenceMaxAttempts),
		docseq.WithRetryObserver(metrics.SequenceRetry),
	)

	crmService := crm.NewService(crm.NewRepository(dbpool), logger)
	projectService := projects.NewService(projects.NewRepository(dbpool), logger)
	quotationService := quotations.NewService(quotations.NewRepository(dbpool), store, logger,
		quotations.WithMetrics(metrics),
		quotations.WithAllocator(allocator),
		quotations.WithImageMaxWidth(cfg.ImageMaxWidth),
	)
	billingService := billing.NewService(billing.NewRepository(dbpool), logger,
		billing.WithMetrics(metrics),
		billing.WithAllocator(allocator),
	)
	inventoryService := inventory.NewService(
		inventory.NewRepository(dbpool),
		shared.NewAuditLogger(dbpool),
		shared.NewIdempotencyStore(dbpool),
		inventory.ServiceConfig{AllowNegativeStock: cfg.InventoryAllowNegative, Metrics: metrics},
		logger,
	)
	notificationService := notifications.NewService(notifications.NewRepository(dbpool), logger,
		notifications.WithLocation(cfg.Location()),
		notifications.WithBillingWindow(cfg.ReminderBillingDays),
	)

	inspector := asynq.NewInspector(cfg.Redis().AsynqOpt())
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		CRMHandler:          crm.NewHandler(logger, crmService),
		ProjectHandler:      projects.NewHandler(logger, projectService),
		QuotationHandler:    quotations.NewHandler(logger, quotationService),
		BillingHandler:      billing.NewHandler(logger, billingService),
		InventoryHandler:    inventory.NewHandler(logger, inventoryService),
		NotificationHandler: notifications.NewHandler(logger, notificationService),
		JobHandler:          jobs.NewHandler(inspector, logger),
		Metrics:             metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

// runCommand handles `odyssey migrate` and `odyssey jobs <trigger NAME|stats|scheduled>`.
func runCommand(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) int {
	switch args[0] {
	case "migrate":
		if err := db.Migrate(cfg.PGDSN, migrations.FS, ".", logger); err != nil {
			logger.Error("migrate", slog.Any("error", err))
			return 1
		}
		return 0
	case "jobs":
		jobsCLI, err := cli.NewJobsCLI(cfg.Redis().AsynqOpt())
		if err != nil {
			logger.Error("jobs cli", slog.Any("error", err))
			return 1
		}
		defer jobsCLI.Close()
		return cli.RunJobs(ctx, jobsCLI, args[1:], os.Stdout)
	}
	fmt.Fprintf(os.Stderr, "unknown command %q\nusage: odyssey [migrate | jobs trigger NAME | jobs stats | jobs scheduled]\n", args[0])
	return 2
}
