package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"foodorder/internal/config"
	"foodorder/internal/database"
	"foodorder/internal/events"
	"foodorder/internal/logging"
	"foodorder/internal/metrics"
	"foodorder/internal/middleware"
	"foodorder/internal/modules/catalog"
	"foodorder/internal/modules/payment"
	"foodorder/internal/modules/pricing"
	"foodorder/internal/pkg/borica"
	jwtsvc "foodorder/internal/pkg/jwt"
	"foodorder/internal/repository"
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(logging.Config{Level: cfg.LogLevel, LokiURL: cfg.LokiURL})
	slog.SetDefault(logger)

	metrics.Setup(metrics.Config{
		PushURL:      cfg.Metrics.PushURL,
		Interval:     cfg.Metrics.PushInterval,
		CommonLabels: cfg.Metrics.CommonLabels,
	}, logger)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal(err)
	}

	signer, err := borica.NewSigner(borica.SignerConfig{
		Terminal:       cfg.Gateway.Terminal,
		Merchant:       cfg.Gateway.MerchantID,
		PrivateKeyPath: cfg.Gateway.PrivateKeyPath,
		Passphrase:     cfg.Gateway.PrivateKeyPassphrase,
	})
	if err != nil {
		log.Fatal(err)
	}
	if err := signer.Preload(); err != nil {
		log.Fatal(err)
	}
	verifier, err := borica.NewVerifier(cfg.Gateway.PublicKeyPath)
	if err != nil {
		log.Fatal(err)
	}
	if err := verifier.Preload(); err != nil {
		log.Fatal(err)
	}

	var merchantLoc *time.Location
	if cfg.Gateway.MerchGMT == "" {
		if merchantLoc, err = cfg.Gateway.Location(); err != nil {
			log.Fatal(err)
		}
	}

	var publisher events.Publisher = events.Noop{}
	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := events.NewKafkaPublisher(events.KafkaConfig{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic})
		if err != nil {
			log.Fatal(err)
		}
		publisher = kp
	}
	defer publisher.Close()

	catalogRepo := repository.NewCatalogRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	engine := pricing.NewEngine(catalogRepo, catalogRepo)

	paymentService := payment.NewService(engine, orderRepo, signer, verifier, publisher, payment.Config{
		Merchant: borica.Merchant{
			Terminal: cfg.Gateway.Terminal,
			ID:       cfg.Gateway.MerchantID,
			Name:     cfg.Gateway.MerchantName,
			URL:      cfg.Gateway.MerchantURL,
			BackRef:  cfg.Gateway.BackRef,
			Country:  cfg.Gateway.Country,
			GMT:      cfg.Gateway.MerchGMT,
			Location: merchantLoc,
			Currency: cfg.Gateway.Currency,
			Lang:     cfg.Gateway.Lang,
		},
		GatewayURL:  cfg.Gateway.URL,
		SuccessURL:  cfg.Gateway.SuccessURL,
		FailureURL:  cfg.Gateway.FailureURL,
		Description: cfg.Gateway.Description,
	}, logger)
	paymentHandler := payment.NewHandler(paymentService, logger, cfg.PendingAge)
	catalogHandler := catalog.NewHandler(catalog.NewService(catalogRepo, engine))

	j := jwtsvc.New(cfg.JWTSecret, 12*time.Hour)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	limiter := middleware.NewMemoryRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	go limiter.Run(ctx, time.Minute)

	if cfg.AppEnv != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.ErrorLogger(logger),
		middleware.AccessLogger(logger),
		middleware.CORS(cfg.CORSOrigins),
	)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics",
		middleware.InternalTokenAuth(logger, cfg.Metrics.Token, cfg.Metrics.AllowedIPs),
		gin.WrapH(metrics.Handler()),
	)

	v1 := r.Group("/api/v1")
	{
		ops := v1.Group("/")
		ops.Use(middleware.JWTAuth(j), middleware.StaffOnly())

		catalogHandler.RegisterRoutes(v1, ops)
		paymentHandler.RegisterRoutes(v1, ops, middleware.RateLimit(limiter))
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", "error", err)
	}
}
