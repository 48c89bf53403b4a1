package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dt2patel/traveller/internal/database"
	"github.com/dt2patel/traveller/internal/logging"
	"github.com/dt2patel/traveller/internal/remote"
	"github.com/dt2patel/traveller/internal/server"
)

const flushInterval = 30 * time.Second

func main() {
	logger := logging.Setup(os.Getenv("TRAVELLER_LOG_LEVEL"))

	port := os.Getenv("TRAVELLER_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("TRAVELLER_DB_PATH")
	if dbPath == "" {
		dbPath = "traveller.db"
	}

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	s3Cfg := remote.S3Config{
		Endpoint:  os.Getenv("TRAVELLER_S3_ENDPOINT"),
		Bucket:    os.Getenv("TRAVELLER_S3_BUCKET"),
		Region:    os.Getenv("TRAVELLER_S3_REGION"),
		AccessKey: os.Getenv("TRAVELLER_S3_ACCESS_KEY"),
		SecretKey: os.Getenv("TRAVELLER_S3_SECRET_KEY"),
	}
	if s3Cfg.Bucket == "" {
		log.Fatal("TRAVELLER_S3_BUCKET is required")
	}
	if s3Cfg.Region == "" {
		s3Cfg.Region = "us-east-1"
	}

	srv := server.New(db, server.Config{
		Remote:          remote.NewS3Store(s3Cfg),
		VAPIDPublicKey:  os.Getenv("TRAVELLER_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("TRAVELLER_VAPID_PRIVATE_KEY"),
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv.Engine().Start(ctx, flushInterval)
	defer srv.Engine().Stop()

	if sched := srv.PushScheduler(); sched != nil {
		sched.Start(ctx)
		defer sched.Stop()
	} else {
		logger.Info("push notifications disabled, VAPID keys not configured")
	}

	// Hourly expired-session sweep
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(); err != nil {
					logger.Error("session cleanup", "error", err)
				} else if n > 0 {
					logger.Info("expired sessions removed", "count", n)
				}
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("Traveller running at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
