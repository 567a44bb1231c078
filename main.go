package main

import (
	"log"

	"teamdash/config"
	"teamdash/connection"
	"teamdash/services"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	services.SetLogLevel(cfg.App.LogLevel)
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := connection.StartServer(cfg); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
