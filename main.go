package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"mrforecast/internal/api"
	"mrforecast/internal/config"
	"mrforecast/internal/container"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load application configuration
	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Create dependency injection container
	appContainer, err := container.New(appConfig)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}
	defer appContainer.Shutdown(context.Background())

	if err := appContainer.Connect(ctx); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	if err := appContainer.Init(ctx); err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	// Health and pprof on the side port
	if appConfig.Profiling.Enabled {
		go func() {
			log.Printf("Ops server starting on :%s (healthz, debug/pprof)", appConfig.Profiling.Port)
			if err := http.ListenAndServe(":"+appConfig.Profiling.Port, api.NewOpsRouter(appContainer.Table)); err != nil {
				log.Printf("Ops server failed: %v", err)
			}
		}()
	}

	server := api.NewServer(appContainer.Handler)
	log.Printf("Starting mrforecast server on port %s", appConfig.Server.Port)
	if err := server.Run(ctx, ":"+appConfig.Server.Port); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed: %v", err)
	}
}
