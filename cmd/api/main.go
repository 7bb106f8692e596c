package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-payment-recon.git/internal/config"
	"github.com/ariefcatur/go-payment-recon.git/internal/gateway"
	"github.com/ariefcatur/go-payment-recon.git/internal/httpx"
	kafkax "github.com/ariefcatur/go-payment-recon.git/internal/kafka"
	"github.com/ariefcatur/go-payment-recon.git/internal/payments"
	"github.com/ariefcatur/go-payment-recon.git/internal/postgres"
	"github.com/ariefcatur/go-payment-recon.git/internal/recon"
	"github.com/ariefcatur/go-payment-recon.git/internal/redisx"
	"github.com/joho/godotenv"
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

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, payments.TopicPaymentEvents, 1024)
	prod.Start(ctx)

	// Provider client + engine
	gw := gateway.New(cfg.GatewayBaseURL, cfg.GatewayKeyID, cfg.GatewayKeySecret, cfg.GatewayTimeout)
	engine := &recon.Engine{
		Store:          &payments.Repo{DB: db},
		Gateway:        gw,
		Producer:       prod,
		KeySecret:      []byte(cfg.GatewayKeySecret),
		WebhookSecret:  []byte(cfg.WebhookSecret),
		GatewayTimeout: cfg.GatewayTimeout,
		Service:        cfg.ServiceName,
	}

	router := httpx.NewRouter()
	ph := &httpx.PaymentsHandler{
		Engine:       engine,
		Redis:        rdb,
		GatewayKeyID: cfg.GatewayKeyID,
	}
	ph.Register(router)
	wh := &httpx.WebhookHandler{Engine: engine}
	wh.Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()      // tutup inbox -> flush & close writer
	cancel()          // stop producer loop
	prod.WaitClosed() // drain
}
