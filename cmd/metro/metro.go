package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/travigo/tyne-and-wear-metro/pkg/api"
	"github.com/travigo/tyne-and-wear-metro/pkg/feed"
	"github.com/travigo/tyne-and-wear-metro/pkg/metro"
	"github.com/urfave/cli/v2"

	_ "time/tzdata"
)

func main() {
	// Variables already set in the environment win over the .env file.
	_ = godotenv.Load()

	if os.Getenv("METRO_LOG_FORMAT") != "JSON" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	if os.Getenv("METRO_DEBUG") == "YES" {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	commands := []*cli.Command{
		api.RegisterCLI(),
		metro.RegisterCLI(),
	}
	commands = append(commands, feed.RegisterCLI()...)

	app := &cli.App{
		Name:        "metro",
		Description: "Live arrivals tracker for the Tyne and Wear Metro",

		Commands: commands,
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal().Err(err).Send()
	}
}
