package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storage-marketplace/internal/booking"
	bookingpg "storage-marketplace/internal/booking/postgres"
	"storage-marketplace/internal/catalog"
	catalogpg "storage-marketplace/internal/catalog/postgres"
	"storage-marketplace/internal/core/events"
	ledgerpg "storage-marketplace/internal/ledger/postgres"
	"storage-marketplace/internal/notification"
	notificationpg "storage-marketplace/internal/notification/postgres"
	"storage-marketplace/internal/scanner"
	"storage-marketplace/pkg/logger"

	"github.com/spf13/cobra"
)

var scannerCmd = &cobra.Command{
	Use:   "scanner",
	Short: "Start the booking scanner worker",
	Long:  `Run the periodic sweep that expires ended bookings and emits billing reminders.`,
	Run: func(cmd *cobra.Command, args []string) {
		startScanner()
	},
}

var scannerOnce bool

func init() {
	scannerCmd.Flags().BoolVar(&scannerOnce, "once", false, "Run a single sweep and exit")
}

func startScanner() {
	config, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(os.Getenv("APP_ENV"))
	log := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	gormDB, err := initGorm(db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize orm: %v\n", err)
		os.Exit(1)
	}

	bookingRepo := bookingpg.NewBookingRepository(gormDB)
	ledgerRepo := ledgerpg.NewLedgerRepository(gormDB)
	catalogRepo := catalogpg.NewCatalogRepository(gormDB)
	notificationRepo := notificationpg.NewNotificationRepository(gormDB)

	eventBus := events.NewEventBus(log)
	catalogService := catalog.NewService(catalogRepo, log)
	notificationService := notification.NewService(notificationRepo, log)
	notification.NewDispatcher(eventBus, notificationService, log)

	// the scanner only expires bookings and emits reminders; it never issues
	// payments, so the booking service runs without a payment collector
	bookingService := booking.NewService(bookingRepo, catalogService, eventBus, notificationService, log)

	sweep := scanner.New(bookingRepo, bookingService, ledgerRepo, catalogService, eventBus, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info("received signal, stopping scanner", "signal", sig)
		cancel()
	}()

	log.Info("scanner started", "interval", config.Scanner.Interval, "once", scannerOnce)
	sweep.Run(ctx)

	if scannerOnce {
		return
	}

	ticker := time.NewTicker(config.Scanner.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("scanner stopped")
			return
		case <-ticker.C:
			sweep.Run(ctx)
		}
	}
}
