package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"storefront-backend/internal/config"
	"storefront-backend/internal/httpx"
	kafkax "storefront-backend/internal/kafka"
	"storefront-backend/internal/metrics"
	"storefront-backend/internal/orders"
	"storefront-backend/internal/postgres"
	"storefront-backend/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("schema: %v", err)
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per topic
	pCreated := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024)
	pCreated.Start(ctx)
	pStatus := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatusChanged, 1024)
	pStatus.Start(ctx)

	m := metrics.NewServerMetrics("api")
	repo := &orders.Repo{DB: db}
	auth := &httpx.Auth{Secret: []byte(cfg.JWTSecret)}

	oh := &httpx.OrdersHandler{
		Store:           repo,
		Redis:           rdb,
		ProducerCreated: pCreated,
		ProducerStatus:  pStatus,
		Service:         cfg.ServiceName,
	}
	ih := &httpx.OrderItemsHandler{Store: repo}

	router := httpx.NewRouter(m)
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware)
		oh.Register(r)
		ih.Register(r)
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	pCreated.Close()
	pStatus.Close()
	pCreated.WaitClosed()
	pStatus.WaitClosed()
}
