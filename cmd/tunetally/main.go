package main

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"tunetally/internal/config"
	"tunetally/internal/logging"
)

func main() {
	app := &cli.Command{
		Name:  "tunetally",
		Usage: "Daily song voting with friends and leaderboards",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env-file",
				Aliases: []string{"e"},
				Usage:   "Path to a dotenv file loaded before the environment",
				Value:   config.DefaultEnvFile,
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			seedCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("application error")
	}
}

func setupLogging(cfg config.LoggingConfig) {
	logging.SetGlobalLogger(logging.New(logging.Config{
		Level:  cfg.Level,
		Format: cfg.Format,
	}))
}
