package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"attendance-engine/internal/config"
	"attendance-engine/internal/handler"
	"attendance-engine/internal/i18n"
	"attendance-engine/internal/notifier"
	"attendance-engine/internal/service"
	"attendance-engine/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	i18n.Init(cfg.DefaultLocale)

	// Connect to MongoDB
	db, err := store.NewMongoDB(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer db.Close(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	attendanceStore, err := store.NewAttendanceStore(ctx, db)
	if err != nil {
		cancel()
		log.Fatalf("Failed to init attendance store: %v", err)
	}
	settingsStore, err := store.NewSettingsStore(ctx, db)
	cancel()
	if err != nil {
		log.Fatalf("Failed to init settings store: %v", err)
	}

	// Delivery collaborator: webhook when configured, log otherwise.
	var sender notifier.Sender = notifier.LogSender{}
	if cfg.WebhookURL != "" {
		sender = notifier.NewClient(cfg.WebhookURL, cfg.WebhookToken)
	}

	// Services
	attendanceSvc := service.NewAttendanceService(attendanceStore, settingsStore, sender)
	reportSvc := service.NewReportService(attendanceStore)
	settingsSvc := service.NewSettingsService(settingsStore)

	// Routes
	mux := http.NewServeMux()
	handler.NewAttendanceHandler(attendanceSvc).RegisterRoutes(mux)
	handler.NewReportHandler(reportSvc).RegisterRoutes(mux)
	handler.NewSettingsHandler(settingsSvc).RegisterRoutes(mux)

	// Health checks
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Start server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.LoggingMiddleware(handler.LocaleMiddleware(mux)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Attendance engine started on :%s (env: %s)", cfg.Port, cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
}
