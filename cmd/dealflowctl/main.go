package main

import (
	"fmt"
	"os"

	"github.com/ajharbinger/dealflowos/internal/cli"
	"github.com/ajharbinger/dealflowos/internal/logger"
	"github.com/ajharbinger/dealflowos/pkg/config"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional for the CLI
	_ = godotenv.Load()

	cfg := config.New()
	// stdout carries command output
	app := cli.NewApp(cfg, logger.NewLogrusLoggerTo(os.Stderr, cfg.LogLevel, cfg.LogFormat))

	return cli.NewRootCmd(app).Execute()
}
