package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	paymentApp "github.com/sejinpark/commercepay/internal/application/payment"
	"github.com/sejinpark/commercepay/internal/bootstrap"
	"github.com/sejinpark/commercepay/internal/controller"
	"github.com/sejinpark/commercepay/internal/gateway"
	"github.com/sejinpark/commercepay/internal/iflog"
	"github.com/sejinpark/commercepay/internal/repository/postgres"
	"github.com/sejinpark/commercepay/internal/strategy"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "commercepay-api", "commercepay")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	// --- Repositories ---
	ledgerRepo := postgres.NewLedgerRepository(app.Pool)
	memberRepo := postgres.NewMemberRepository(app.Pool)
	orderRepo := postgres.NewOrderRepository(app.Pool)
	ifLogRepo := postgres.NewIfLogRepository(app.Pool)
	sequence := postgres.NewPaymentSequence(app.Pool)
	txManager := postgres.NewTxManager(app.Pool)

	// --- Gateways ---
	paymentCfg := app.Config.Payment
	httpClient := &http.Client{Timeout: paymentCfg.GatewayTimeout}
	ifLogRecorder := iflog.NewRecorder(ifLogRepo, app.Logger)
	inicisClient := gateway.NewInicisClient(paymentCfg.Inicis, httpClient, ifLogRecorder, app.Logger)
	tossClient := gateway.NewTossClient(paymentCfg.Toss, httpClient, ifLogRecorder, app.Logger)
	gateways := gateway.NewRegistry(app.Metrics, inicisClient, tossClient)

	// --- Strategies and application services ---
	strategies := strategy.NewRegistry(
		strategy.NewCardStrategy(gateways, app.Metrics, app.Logger),
		strategy.NewPointStrategy(memberRepo, orderRepo, app.Logger),
	)
	orchestrator := paymentApp.NewOrchestrator(ledgerRepo, sequence, strategies, txManager, app.Metrics, app.Logger)
	allocator := paymentApp.NewAllocator(ledgerRepo, sequence, strategies, txManager, app.Metrics, app.Logger)

	// --- Build router ---
	router := controller.NewRouter(controller.RouterDeps{
		Pool:         app.Pool,
		RedisClient:  app.Redis,
		Orchestrator: orchestrator,
		Allocator:    allocator,
		LedgerRepo:   ledgerRepo,
		Inicis:       inicisClient,
		Metrics:      app.Metrics,
		CORSConfig:   app.Config.Server.CORS,
		LockTTL:      paymentCfg.LockTTL,
	})

	// --- HTTP server ---
	addr := fmt.Sprintf(":%d", app.Config.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  app.Config.Server.ReadTimeout,
		WriteTimeout: app.Config.Server.WriteTimeout,
		IdleTimeout:  app.Config.Server.IdleTimeout,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case <-quit:
			app.Logger.Info().Msg("Shutting down server...")
		case <-gCtx.Done():
		}

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
		defer cancelShutdown()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		app.Logger.Fatal().Err(err).Msg("Server error")
	}
	app.Logger.Info().Msg("Server exited")
}
