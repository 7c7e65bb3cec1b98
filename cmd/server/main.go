package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marejada-pos/api/internal/config"
	"github.com/marejada-pos/api/internal/router"
	"github.com/marejada-pos/api/internal/store"
	"github.com/marejada-pos/api/internal/store/memory"
	"github.com/marejada-pos/api/internal/store/postgres"
	"github.com/marejada-pos/api/internal/version"
)

func main() {
	cfg := config.Load()

	var s store.Store
	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			log.Printf("WARN: postgres unavailable (%v), falling back to in-memory store", err)
			s = memory.NewSeeded()
		} else {
			defer pg.Close()
			s = pg
			log.Println("Connected to postgres")
		}
	} else {
		s = memory.NewSeeded()
		log.Println("Using seeded in-memory store")
	}

	var counter version.Counter
	if cfg.RedisAddr != "" {
		rc := version.NewRedisCounter(cfg.RedisAddr, "", 0)
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := rc.Ping(pingCtx)
		cancel()
		if err != nil {
			log.Printf("WARN: redis unavailable (%v), using in-process queue versions", err)
			rc.Close()
			counter = version.NewMemoryCounter()
		} else {
			defer rc.Close()
			counter = rc
			log.Println("Connected to redis")
		}
	} else {
		counter = version.NewMemoryCounter()
	}

	r := router.New(cfg, s, counter)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("ERROR: shutdown: %v", err)
	}
}
