package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dukerupert/room8/internal/backup"
	"github.com/dukerupert/room8/internal/database"
	"github.com/dukerupert/room8/internal/logging"
	"github.com/dukerupert/room8/internal/notify"
	"github.com/dukerupert/room8/internal/server"
)

func main() {
	logger := logging.Setup(os.Getenv("ROOM8_LOG_LEVEL"))

	port := os.Getenv("ROOM8_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("ROOM8_DB_PATH")
	if dbPath == "" {
		dbPath = "room8.db"
	}

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("failed to open database", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	vapidPublic := os.Getenv("ROOM8_VAPID_PUBLIC_KEY")
	vapidPrivate := os.Getenv("ROOM8_VAPID_PRIVATE_KEY")
	if vapidPublic == "" || vapidPrivate == "" {
		// Ephemeral keys invalidate existing subscriptions on restart;
		// fine for trying things out, set real keys for daily use.
		vapidPublic, vapidPrivate, err = notify.GenerateVAPIDKeys()
		if err != nil {
			logger.Error("failed to generate VAPID keys", "error", err)
			os.Exit(1)
		}
		logger.Warn("using ephemeral VAPID keys; set ROOM8_VAPID_PUBLIC_KEY and ROOM8_VAPID_PRIVATE_KEY to persist push subscriptions")
	}

	cfg := server.Config{
		VAPIDPublicKey:  vapidPublic,
		VAPIDPrivateKey: vapidPrivate,
		Backup: backup.Config{
			S3: backup.S3Config{
				Endpoint:  os.Getenv("ROOM8_S3_ENDPOINT"),
				Bucket:    os.Getenv("ROOM8_S3_BUCKET"),
				Region:    os.Getenv("ROOM8_S3_REGION"),
				AccessKey: os.Getenv("ROOM8_S3_ACCESS_KEY"),
				SecretKey: os.Getenv("ROOM8_S3_SECRET_KEY"),
			},
			DBPath:        dbPath,
			Passphrase:    os.Getenv("ROOM8_BACKUP_PASSPHRASE"),
			ScheduleHour:  envInt("ROOM8_BACKUP_HOUR", 4),
			RetentionDays: envInt("ROOM8_BACKUP_RETENTION_DAYS", 30),
		},
	}

	srv := server.New(db, cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv.Start(ctx)
	defer srv.Stop()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("Room8 running at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
