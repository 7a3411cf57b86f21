package main

import (
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"

	"dochub/internal/cli"
	"dochub/internal/config"
	"dochub/internal/logger"
)

func main() {
	cfg := config.Load()
	// Command output goes to stdout; diagnostics stay on stderr.
	logger.InitWriter(os.Stderr, cfg.Location(), zerolog.WarnLevel)
	cli.Execute(cli.DefaultDeps(cfg))
}
