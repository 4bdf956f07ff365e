package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dperkosan/iam-service/internal/auth"
	"github.com/dperkosan/iam-service/internal/config"
	"github.com/dperkosan/iam-service/internal/httpapi"
	"github.com/dperkosan/iam-service/internal/mailer"
	"github.com/dperkosan/iam-service/internal/obs"
	"github.com/dperkosan/iam-service/internal/store/pg"
	"github.com/dperkosan/iam-service/internal/token"
)

var version = "1.0.0"

func main() {
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("IAM_BUILD_COMMIT"))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	store, err := pg.Open(cfg.PGDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	registry := token.NewRegistry(rdb)

	codec, err := token.NewCodec(cfg.JWTSecret, cfg.JWTAudience, cfg.JWTIssuer)
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}

	m, err := mailer.NewResend(cfg.ResendAPIKey, cfg.MailFrom)
	if err != nil {
		log.Fatalf("mailer: %v", err)
	}

	svc, err := auth.NewService(store, registry, codec, m, auth.TTLConfig{
		Auth:              cfg.AuthTokenTTL,
		Refresh:           cfg.RefreshTokenTTL,
		EmailVerification: cfg.EmailVerificationTokenTTL,
		ForgottenPassword: cfg.ForgottenPasswordTokenTTL,
	}, cfg.FrontendURL)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	api := httpapi.New(svc, codec, httpapi.ReadyProbe{DB: store.DB(), Redis: rdb}, version)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting iam-api %s on %s", version, srv.Addr)

	// graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = store.Close()
	_ = rdb.Close()
	log.Println("Stopped")
}
