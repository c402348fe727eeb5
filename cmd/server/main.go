// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/chronoline/chronoline/internal/auth"
	"github.com/chronoline/chronoline/internal/catalog"
	"github.com/chronoline/chronoline/internal/config"
	"github.com/chronoline/chronoline/internal/game"
	"github.com/chronoline/chronoline/internal/handlers"
	"github.com/chronoline/chronoline/internal/history"
	"github.com/chronoline/chronoline/internal/middleware"
)

func main() {
	auth.Init()
	cfg := config.Load()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	cat, err := loadCatalog(cfg)
	if err != nil {
		log.Fatalf("failed to load card catalog: %v", err)
	}
	logger.Infof("Loaded %d cards", cat.Len())

	// History feed is best-effort; the game runs without it.
	if cfg.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := history.Connect(ctx); err != nil {
			logger.Warnf("history feed unavailable: %v", err)
		}
		cancel()
	}

	store := game.NewRoomStore(cat.Cards(), game.Options{
		TurnTimeout:     cfg.TurnTimeout,
		GracePeriod:     cfg.GracePeriod,
		HandSize:        cfg.HandSize,
		PlacementWindow: cfg.PlacementWindow,
	})
	srv := handlers.NewRoomServer(store, logger)

	mux := http.NewServeMux()
	mux.Handle("/ws", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.WSHandler(logger, srv),
	)))
	mux.Handle("/health", middleware.LogMiddleware(logger)(http.HandlerFunc(
		srv.HealthHandler,
	)))

	server := &http.Server{
		Handler:     mux,
		ReadTimeout: time.Second * 10,
		// No WriteTimeout: WebSocket connections are long-lived.
	}

	l, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}
	logger.Infof("Listening on %s", l.Addr())

	errc := make(chan error, 1)
	go func() {
		errc <- server.Serve(l)
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errc:
		logger.Errorf("failed to serve: %v", err)
	case sig := <-sigs:
		logger.Infof("terminating: %v", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Warnf("shutdown: %v", err)
	}
}

// loadCatalog prefers Postgres when PG_HOST is set, falling back to the
// bundled JSON file otherwise.
func loadCatalog(cfg config.Config) (*catalog.Catalog, error) {
	if cfg.PGHost != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		pool, err := catalog.ConnectPool(ctx)
		if err != nil {
			return nil, err
		}
		defer pool.Close()
		return catalog.LoadPostgres(ctx, pool)
	}
	return catalog.LoadFile(cfg.CardsFile)
}
