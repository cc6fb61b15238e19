package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abaplay/outreach/internal/api"
	"github.com/abaplay/outreach/internal/config"
	"github.com/abaplay/outreach/internal/store"
)

func main() {
	configPath := "config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("database url is required (config database.url or DATABASE_URL)")
	}

	st, err := store.Open(cfg.Database.URL, store.Options{
		BlacklistTTL:  time.Duration(cfg.Cache.BlacklistTTLSeconds) * time.Second,
		DailyCountTTL: time.Duration(cfg.Cache.DailyCountTTLSeconds) * time.Second,
	})
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.Close()
	log.Println("Connected to database")

	srv := api.NewServer(st)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("API listening on %s", addr)
		errCh <- srv.ListenAndServe(addr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatalf("server: %v", err)
	case sig := <-stop:
		log.Printf("received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
