package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"call-gateway/internal/calls"
	"call-gateway/internal/config"
	"call-gateway/internal/httpapi"
	"call-gateway/internal/notify"
	"call-gateway/internal/routing"
	"call-gateway/internal/selftest"
	"call-gateway/internal/telemetry"
	"call-gateway/internal/telephony"
	"call-gateway/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if missing := cfg.MissingProviderKeys(); len(missing) > 0 {
		log.Warn("exotel configuration incomplete; outbound calls will fail", "missing", missing)
	}

	if cfg.Telemetry.Enabled {
		shutdownTracer, err := telemetry.InitTracer(cfg.Telemetry.ServiceName, os.Stdout, log)
		if err != nil {
			log.Error("tracer init failed", "err", err)
			os.Exit(1)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownTracer(ctx)
		}()
	}

	sink, sinkCloser, err := notify.Open(rootCtx, cfg.Notify, log)
	if err != nil {
		log.Error("status sink init failed", "sink", cfg.Notify.Sink, "err", err)
		os.Exit(1)
	}
	defer sinkCloser.Close()

	outbound := &http.Client{
		Timeout:   cfg.Exotel.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	provider := telephony.NewExotelProvider(cfg.Exotel, outbound)
	callService := calls.NewService(provider, cfg.Numbers.From, cfg.Numbers.CallerID)
	statusService := calls.NewStatusService(sink)
	engine := routing.NewPartyEngine(routing.Parties{
		Primary:   cfg.Routing.Primary,
		Secondary: cfg.Routing.Secondary,
		Default:   cfg.Routing.Default,
	}, cfg.Numbers.CallerID, routing.DefaultPolicy())

	// Gin router
	r := gin.New()
	r.Use(logger.Middleware(log))
	r.Use(gin.CustomRecovery(httpapi.Recovery))

	registerRoutes(r, deps{
		calls:      callService,
		status:     statusService,
		router:     engine,
		provider:   provider,
		dialNumber: cfg.Numbers.Destination,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           otelhttp.NewHandler(r, cfg.Telemetry.ServiceName),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.Exotel.Timeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	if cfg.SelfTest.Enabled && cfg.Server.PublicURL != "" {
		trigger := &selftest.Trigger{
			BaseURL:  cfg.Server.PublicURL,
			From:     cfg.Numbers.From,
			To:       cfg.Numbers.Destination,
			CallSid:  cfg.Exotel.AccountSID,
			CallerID: cfg.Numbers.CallerID,
			Delay:    cfg.SelfTest.Delay,
			Dial:     cfg.SelfTest.Dial,
			Dialer:   callService,
			Client:   outbound,
		}
		go trigger.Run(logger.With(rootCtx, log.With("component", "selftest")))
	}

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
