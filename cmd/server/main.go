package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/goldenhour/backoffice/internal/config"
	"github.com/goldenhour/backoffice/internal/domain/models"
	"github.com/goldenhour/backoffice/internal/inventory"
	"github.com/goldenhour/backoffice/internal/repository/mongodb"
	"github.com/goldenhour/backoffice/internal/repository/sheets"
	"github.com/goldenhour/backoffice/internal/repository/sqlite"
	"github.com/goldenhour/backoffice/internal/scheduler"
	"github.com/goldenhour/backoffice/internal/server/handlers"
	"github.com/goldenhour/backoffice/internal/server/router"
	auditsvc "github.com/goldenhour/backoffice/internal/service/audit"
	commandsvc "github.com/goldenhour/backoffice/internal/service/commands"
	"github.com/goldenhour/backoffice/internal/service/reconcile"
	reportingsvc "github.com/goldenhour/backoffice/internal/service/reporting"
	"github.com/goldenhour/backoffice/internal/service/transfer"
	whatsappsvc "github.com/goldenhour/backoffice/internal/service/whatsapp"
	whatsappclient "github.com/goldenhour/backoffice/pkg/clients/whatsapp"
	"github.com/goldenhour/backoffice/pkg/logger"
)

// store is what either storage backend provides to the ledger, the executor,
// the audit fan-out and the reporting job.
type store interface {
	UpsertLocation(ctx context.Context, loc models.Location) error
	ListLocations(ctx context.Context) ([]models.Location, error)
	ListModels(ctx context.Context) ([]models.Model, error)
	PersistModel(ctx context.Context, m models.Model) error
	AppendReceipt(ctx context.Context, receipt models.Receipt) error
	SaveCountReport(ctx context.Context, report models.CountReport) error
	SaveStockSnapshot(ctx context.Context, snapshot models.StockSnapshot) error
	Close(ctx context.Context) error
}

func openStore(ctx context.Context, cfg *config.Config) (store, error) {
	if cfg.Storage.Driver == config.DriverMongo {
		repo, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			return nil, err
		}
		return repo, nil
	}
	repo, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
	if err != nil {
		return nil, err
	}
	return repo, nil
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()

	repo, err := openStore(startupCtx, cfg)
	if err != nil {
		baseLogger.Fatal("failed to open store", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer func() {
		if err := repo.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close store", zap.Error(err))
		}
	}()

	for _, outlet := range cfg.Storage.Outlets {
		if err := repo.UpsertLocation(startupCtx, models.Location{Code: outlet.Code, Name: outlet.Name}); err != nil {
			baseLogger.Fatal("failed to seed outlet", zap.String("code", outlet.Code), zap.Error(err))
		}
	}

	ledger, err := inventory.Load(startupCtx, repo)
	if err != nil {
		baseLogger.Fatal("failed to load inventory ledger", zap.Error(err))
	}
	baseLogger.Info("inventory ledger loaded",
		zap.String("driver", cfg.Storage.Driver),
		zap.Int("locations", len(ledger.Locations())),
		zap.Int("models", len(ledger.Models())))

	var mirrors []auditsvc.Store
	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(startupCtx, cfg.Sheets, logger.Named(baseLogger, "repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		mirrors = append(mirrors, sheets.NewMirror(sheetsRepo))
	} else {
		baseLogger.Info("google sheets mirror disabled")
	}

	reportingSvc := reportingsvc.NewService(ledger, repo, cfg.Reporting.LowStockThreshold, logger.Named(baseLogger, "svc.reporting"))
	commandDispatcher := commandsvc.NewService(reportingSvc, logger.Named(baseLogger, "svc.commands"))

	var (
		messagingSvc   *whatsappsvc.MetaWhatsAppService
		webhookHandler *handlers.WebhookHandler
		notifier       auditsvc.Notifier
	)
	if cfg.WhatsApp.Enabled() {
		whatsClient := whatsappclient.NewClient(cfg.WhatsApp)
		messagingSvc = whatsappsvc.NewMetaWhatsAppService(cfg.WhatsApp, whatsClient, commandDispatcher, logger.Named(baseLogger, "svc.whatsapp"))
		webhookHandler = handlers.NewWebhookHandler(messagingSvc, logger.Named(baseLogger, "handlers.whatsapp"))
		if cfg.WhatsApp.ManagerID != "" {
			notifier = messagingSvc
		} else {
			baseLogger.Warn("WHATSAPP_MANAGER_ID missing, alerts disabled")
		}
	} else {
		baseLogger.Warn("whatsapp credentials missing, chat features disabled")
	}

	auditSvc := auditsvc.NewService(repo, notifier, logger.Named(baseLogger, "svc.audit"), mirrors...)
	executor := transfer.NewExecutor(ledger, repo, auditSvc, logger.Named(baseLogger, "svc.executor"))
	transferSvc := transfer.NewService(ledger, executor, logger.Named(baseLogger, "svc.transfer"))
	reconciler := reconcile.NewReconciler(ledger, auditSvc, logger.Named(baseLogger, "svc.reconcile"))

	gin.SetMode(gin.ReleaseMode)
	engine := router.New(router.Handlers{
		Stock:   handlers.NewStockHandler(ledger, reportingSvc),
		Carts:   handlers.NewCartHandler(transferSvc, logger.Named(baseLogger, "handlers.carts")),
		Counts:  handlers.NewCountHandler(reconciler),
		Webhook: webhookHandler,
	}, logger.Named(baseLogger, "router"))

	sched, err := scheduler.NewScheduler(cfg.Reporting, reportingSvc, notifier, logger.Named(baseLogger, "scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received", zap.Int("open_carts", transferSvc.OpenCarts()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
	auditSvc.Wait()
}
