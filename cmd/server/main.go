package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/config"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/database"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/database/memory"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/events"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/router"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/seed"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/service"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/ws"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	taxRate, err := cfg.Tax()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, tx, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.StoreBackend, err)
	}
	defer closeStore()

	hub := ws.NewHub()
	go hub.Run()

	var publisher events.Publisher = hub
	broker, err := openBroker(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to %s: %v", cfg.EventsBackend, err)
	}
	if broker != nil {
		defer broker.Close()
		publisher = events.Fanout{hub, broker}
	}

	coord := service.NewCoordinator(store, tx, publisher, service.Config{
		TaxRate:         taxRate,
		ShiftChangeHour: cfg.ShiftChangeHour,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router.New(cfg, coord, store, hub),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on :%s (store=%s, events=%s)", cfg.Port, cfg.StoreBackend, cfg.EventsBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Println("Shutting down")
	case err := <-errCh:
		log.Fatal(err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: shutdown: %v", err)
	}
}

// publisherCloser is an event broker connection.
type publisherCloser interface {
	events.Publisher
	io.Closer
}

func openBroker(cfg *config.Config) (publisherCloser, error) {
	switch cfg.EventsBackend {
	case config.EventsAMQP:
		return events.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
	case config.EventsKafka:
		return events.DialKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
	}
	return nil, nil
}

func openStore(ctx context.Context, cfg *config.Config) (database.Querier, service.Transactor, func(), error) {
	if cfg.StoreBackend == config.StoreMemory {
		store := memory.New()
		sum, err := seed.Run(ctx, store, seed.Defaults("password123"))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("seed memory store: %w", err)
		}
		log.Printf("WARN: memory store seeded with %d tables and %d users; data is lost on exit", sum.Tables, sum.Users)
		return store, store, func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, nil, err
	}
	return database.New(pool), database.NewTxRunner(pool), pool.Close, nil
}
