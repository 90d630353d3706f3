// cmd/server/main.go
package main

import (
	"log"
	"net/http"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"uno-dealer/internal/auth"
	"uno-dealer/internal/cache"
	"uno-dealer/internal/config"
	"uno-dealer/internal/database"
	"uno-dealer/internal/handlers"
	"uno-dealer/internal/middleware"
	"uno-dealer/internal/store"
)

func main() {
	auth.Init()
	database.ConnectDB()
	if err := cache.ConnectRedis(); err != nil {
		log.Fatalf("redis: %v", err)
	}

	cfg := config.Load()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	desks := store.NewDeskStore(cache.Rdb)
	srv := handlers.NewDealerServer(desks)

	mux := http.NewServeMux()

	// match lifecycle endpoints
	mux.Handle("/dealer/create", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.CreateDealerHandler(srv, cfg.Game),
	)))
	mux.Handle("/dealer/start/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.StartDealerHandler(srv),
	)))
	mux.Handle("/dealer/state/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.DeskStateHandler(srv),
	)))

	// dealer websocket
	mux.Handle("/dealer/ws/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.DealerWSHandler(logger, srv),
	)))

	logger.Infof("Running on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
