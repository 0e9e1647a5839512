package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storage-marketplace/internal"
	"storage-marketplace/internal/booking"
	bookingpg "storage-marketplace/internal/booking/postgres"
	"storage-marketplace/internal/cashpayment"
	cashpg "storage-marketplace/internal/cashpayment/postgres"
	"storage-marketplace/internal/catalog"
	catalogpg "storage-marketplace/internal/catalog/postgres"
	"storage-marketplace/internal/core/events"
	"storage-marketplace/internal/document"
	documentpg "storage-marketplace/internal/document/postgres"
	"storage-marketplace/internal/gateway"
	"storage-marketplace/internal/ledger"
	ledgerpg "storage-marketplace/internal/ledger/postgres"
	"storage-marketplace/internal/notification"
	notificationpg "storage-marketplace/internal/notification/postgres"
	"storage-marketplace/internal/transport/rest"
	"storage-marketplace/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB
	Router   *chi.Mux
	Handlers rest.Handlers
	Logger   *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	rest.RegisterAllRoutes(deps.Router, deps.DB.DB, deps.Handlers, deps.Logger)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))
	log := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	handlers, err := buildHandlers(config, gormDB, log)
	if err != nil {
		return nil, err
	}

	return &Dependencies{
		Config:   config,
		Logger:   log,
		DB:       db,
		Router:   chi.NewRouter(),
		Handlers: handlers,
	}, nil
}

// buildHandlers wires repositories, services and HTTP handlers. The booking,
// ledger, cash payment and document services reference each other through
// narrow interfaces; the late Set* calls close those loops after construction.
func buildHandlers(config *internal.Config, gormDB *gorm.DB, log *slog.Logger) (rest.Handlers, error) {
	catalogRepo := catalogpg.NewCatalogRepository(gormDB)
	bookingRepo := bookingpg.NewBookingRepository(gormDB)
	documentRepo := documentpg.NewDocumentRepository(gormDB)
	ledgerRepo := ledgerpg.NewLedgerRepository(gormDB)
	cashRepo := cashpg.NewCashPaymentRepository(gormDB)
	notificationRepo := notificationpg.NewNotificationRepository(gormDB)

	eventBus := events.NewEventBus(log)

	catalogService := catalog.NewService(catalogRepo, log)
	notificationService := notification.NewService(notificationRepo, log)
	notification.NewDispatcher(eventBus, notificationService, log)

	bookingService := booking.NewService(bookingRepo, catalogService, eventBus, notificationService, log)

	gatewayClient := gateway.NewClient(gateway.Config{
		APIURL:         config.Gateway.APIURL,
		APIKey:         config.Gateway.APIKey,
		WebhookURL:     config.Gateway.WebhookURL,
		RequestTimeout: config.Gateway.RequestTimeout,
		Currency:       config.Gateway.Currency,
	}, log)

	fees := ledger.FeeSchedule{
		GatewayFeeBps:   config.Fees.GatewayFeeBps,
		GatewayFixedFee: config.Fees.GatewayFixedFee,
		PlatformFeeBps:  config.Fees.PlatformFeeBps,
	}

	ledgerService := ledger.NewService(ledgerRepo, bookingService, catalogService, gatewayClient, fees, eventBus, log)
	bookingService.SetPaymentCollector(ledgerService)

	cashService := cashpayment.NewService(cashRepo, ledgerService, log)
	ledgerService.SetCashRequestChecker(cashService)

	documentService := document.NewService(documentRepo, log)
	documentService.SetBookingProgress(bookingService)

	return rest.Handlers{
		Booking:      booking.NewHandler(bookingService),
		Document:     document.NewHandler(documentService),
		CashPayment:  cashpayment.NewHandler(cashService),
		Ledger:       ledger.NewHandler(ledgerService),
		Webhook:      ledger.NewWebhookHandler(ledgerService),
		Notification: notification.NewHandler(notificationService),
	}, nil
}

// initDB opens the pgx stdlib connection used for raw access and health checks.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm layers the ORM over the already open pgx connection so both share
// one pool.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm over existing connection: %w", err)
	}
	return gormDB, nil
}
