package main

import (
	"flag"
	"os"

	"github.com/hackgods/clinic-appointment-scheduling/internal/config"
	"github.com/hackgods/clinic-appointment-scheduling/internal/db"
	"github.com/hackgods/clinic-appointment-scheduling/internal/logging"
)

func main() {
	down := flag.Bool("down", false, "roll back every migration")
	force := flag.Int("force", -1, "mark the schema as this version and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Bootstrap(os.Stderr, "migrate").Fatal().Err(err).Msg("config load error")
	}
	log := logging.New("migrate", cfg.Env, cfg.LogLevel)

	switch {
	case *force >= 0:
		if err := db.ForceVersion(cfg.PostgresDSN, *force); err != nil {
			log.Fatal().Err(err).Msg("force failed")
		}
		log.Info().Int("version", *force).Msg("schema version forced")
	case *down:
		if err := db.MigrateDown(cfg.PostgresDSN); err != nil {
			log.Fatal().Err(err).Msg("migrate down failed")
		}
		log.Info().Msg("schema rolled back")
	default:
		v, err := db.Migrate(cfg.PostgresDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("migrate up failed")
		}
		log.Info().Uint("version", v).Msg("schema up to date")
	}
}
