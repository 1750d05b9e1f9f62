package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"voicepilot-be/internal/bootstrap"
	"voicepilot-be/internal/config"
	"voicepilot-be/internal/server"
	"voicepilot-be/internal/tracer"
)

func main() {
	// 0. Initialize Tracer
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg)

	// 3. Start Background Services
	go func() {
		log.Println("Background: Starting UI Event Dispatcher...")
		if err := container.DispatcherService.Consume(context.Background()); err != nil {
			log.Printf("Background Dispatcher Error: %v", err)
		}
	}()

	// 4. Initialize Server
	srv := server.New(cfg, container)

	// 5. Run Server with graceful shutdown
	go func() {
		if err := srv.Run(); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	container.Orchestrator.Close()
	if container.NatsPub != nil {
		container.NatsPub.Close()
	}
	if err := srv.Shutdown(); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("Bye")
}
