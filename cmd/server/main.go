// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/dstanton/sidebet/internal/config"
	"github.com/dstanton/sidebet/internal/handlers"
	"github.com/dstanton/sidebet/internal/metrics"
	"github.com/dstanton/sidebet/internal/middleware"
	"github.com/dstanton/sidebet/internal/room"
	"github.com/dstanton/sidebet/internal/scores"
	"github.com/dstanton/sidebet/internal/settle"
)

func main() {
	cfg := config.Load()

	logger := logrus.New()
	if cfg.Env == "dev" {
		logger.SetLevel(logrus.DebugLevel)
	}

	registry := room.NewRegistry()
	scoreClient := scores.NewClient(cfg.ScoreAPIBaseURL, cfg.FetchTimeout, logger)

	loop := settle.New(registry, scoreClient, logger)
	loop.Interval = cfg.SettleInterval
	loop.FetchTimeout = cfg.FetchTimeout

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	metricsSrv := metrics.StartServer(cfg.MetricsPort, nil)
	logger.Infof("metrics on :%s", cfg.MetricsPort)

	mux := http.NewServeMux()
	mux.Handle("/ws", handlers.WSHandler(logger, registry))
	mux.Handle("/api/rooms", middleware.LogMiddleware(logger)(handlers.ListRoomsHandler(registry)))
	mux.Handle("/api/leagues", middleware.LogMiddleware(logger)(handlers.ListLeaguesHandler()))

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s", server.Addr)
		errc <- server.ListenAndServe()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	select {
	case err := <-errc:
		logger.Errorf("server exited: %v", err)
	case sig := <-sigs:
		logger.Infof("terminating: %v", sig)
	}

	cancel() // stop the settlement loop
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
}
