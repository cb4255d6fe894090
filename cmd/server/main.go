package main

import (
	"os"

	"github.com/AlexTLDR/potluck/internal/config"
	"github.com/AlexTLDR/potluck/internal/database"
	"github.com/AlexTLDR/potluck/internal/server"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	// Load .env file (ignore error if a file doesn't exist)
	if err := godotenv.Overload(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close database")
		}
	}()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	srv := server.New(cfg, db, log.Logger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Info().Str("port", port).Msg("starting server")
	if err := srv.Start(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}
