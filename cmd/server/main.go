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

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/frameloop/frameloop/internal/admission"
	"github.com/frameloop/frameloop/internal/blob"
	"github.com/frameloop/frameloop/internal/config"
	"github.com/frameloop/frameloop/internal/handler"
	"github.com/frameloop/frameloop/internal/intake"
	"github.com/frameloop/frameloop/internal/middleware"
	"github.com/frameloop/frameloop/internal/pipeline"
	"github.com/frameloop/frameloop/internal/publish"
	"github.com/frameloop/frameloop/internal/slot"
	"github.com/frameloop/frameloop/internal/store"
	"github.com/frameloop/frameloop/internal/synth"
	"github.com/frameloop/frameloop/internal/title"
	"github.com/frameloop/frameloop/internal/ws"
)

func main() {
	// ── Configuration ──
	cfg := config.Load()

	// ── Redis ──
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	log.Println("connected to Redis at", cfg.RedisAddr)

	// ── SQL Store ──
	dbDSN := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)
	st, err := store.NewStore(dbDSN)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}
	log.Printf("database initialised: %s@%s:%s/%s", cfg.DBUser, cfg.DBHost, cfg.DBPort, cfg.DBName)

	// ── Object Store ──
	minioClient, err := blob.NewMinioClient(blob.MinioConfig{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		UseSSL:    cfg.MinioUseSSL,
	})
	if err != nil {
		log.Fatalf("failed to init object store client: %v", err)
	}
	slotBlobs := blob.NewMinioStore(minioClient, cfg.SlotBucket)
	publishedBlobs := blob.NewMinioStore(minioClient, cfg.PublishedBucket)
	for _, s := range []blob.Store{slotBlobs, publishedBlobs} {
		if err := s.EnsureBucket(ctx); err != nil {
			log.Fatalf("failed to ensure bucket: %v", err)
		}
	}
	log.Println("object store ready at", cfg.MinioEndpoint)

	// ── Title Corpus ──
	titles, err := title.Load()
	if err != nil {
		log.Fatalf("failed to load title corpus: %v", err)
	}
	log.Printf("title corpus loaded: %d titles", titles.Len())

	// ── Pipeline ──
	slots := slot.NewStore(slotBlobs)
	pub := publish.NewPublisher(publishedBlobs, rdb)
	hub := ws.NewHub()
	svc := pipeline.NewService(
		intake.NewValidator(cfg.MaxUploadBytes),
		intake.NewNormalizer(cfg.FrameSize),
		slots,
		synth.NewSynthesizer(cfg.FrameDelay),
		titles,
		pub,
		hub,
		st,
	)

	// ── Admission Controller ──
	limiter := admission.NewLimiter(admission.Limits{
		PerMinute: cfg.RatePerMinute,
		PerHour:   cfg.RatePerHour,
		PerDay:    cfg.RatePerDay,
	})

	// ── Gin Router ──
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.Logger())

	h := handler.NewHandler(svc, pub, hub, cfg)
	h.RegisterRoutes(r, middleware.RateLimit(limiter, st))

	adminHandler := handler.NewAdminHandler(svc)
	adminHandler.RegisterRoutes(r.Group("/api/v1/admin", middleware.AdminTokenAuth(cfg.AdminToken)))

	// ── HTTP Server with graceful shutdown ──
	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: r,
	}

	go func() {
		log.Printf("server listening on %s", cfg.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen error: %v", err)
		}
	}()

	// ── Graceful Shutdown ──
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	rdb.Close()
	log.Println("server exited cleanly")
}
