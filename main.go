package main

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tomitooni/go-server/internal/auth"
	"github.com/tomitooni/go-server/internal/httpserver"
	"github.com/tomitooni/go-server/internal/provider"
	"github.com/tomitooni/go-server/internal/record"
	"github.com/tomitooni/go-server/internal/words"
)

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	if err := words.Init(); err != nil {
		log.Fatal().Err(err).Msg("failed to load word lists")
	}

	db, err := openDB(getEnv("DB_PATH", "./data/app.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	if err := migrate(db); err != nil {
		log.Fatal().Err(err).Msg("apply migrations")
	}

	gemini := provider.NewGemini(os.Getenv("GEMINI_API_KEY"), os.Getenv("GEMINI_MODEL"))
	resilient := provider.NewResilient(gemini, gemini,
		time.Duration(envInt("PROVIDER_TIMEOUT_SECONDS", 20))*time.Second)

	codes := auth.NewCodeStore(time.Duration(envInt("CODE_TTL_MINUTES", 10)) * time.Minute)
	records := record.NewSQLStore(db)

	srv := httpserver.New(db, records, codes, resilient, resilient)
	port := getEnv("PORT", "5175")
	log.Info().Str("port", port).Msg("starting tomitooni server")
	if err := srv.Start(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
