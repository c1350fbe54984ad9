package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/interview-coach/backend/internal/config"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] .env not loaded, using system environment: %v", err)
	}

	if err := newRootCmd(os.Stdout, config.Load).Execute(); err != nil {
		os.Exit(1)
	}
}
