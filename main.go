package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"b1poster/cmd"
	"b1poster/internal/config"
	"b1poster/internal/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	// Commands that talk to the Service Layer load and validate the
	// configuration themselves; here it only selects the logger setup.
	cfg, err := config.Load()
	if err != nil {
		if err := logger.Setup(logger.DefaultConfig()); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
	} else {
		if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
	}

	log := logger.WithComponent("main")
	log.Debug().Msg("Starting b1poster")

	cmd.Execute()

	log.Debug().Msg("b1poster shutdown")
	os.Exit(0)
}
