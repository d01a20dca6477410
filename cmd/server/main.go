// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	"github.com/sweetdream/tavern/internal/handlers"
	"github.com/sweetdream/tavern/internal/middleware"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	if os.Getenv("DEBUG") != "" {
		logger.SetLevel(logrus.DebugLevel)
	}

	srv := handlers.NewSessionServer(logger)

	mux := http.NewServeMux()

	// session websocket: room lifecycle, chat, and games all flow over it
	mux.Handle("/ws", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.WSHandler(logger, srv),
	)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("tavern server running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
