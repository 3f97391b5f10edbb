package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-appointment-scheduling/internal/availability"
	"github.com/hackgods/clinic-appointment-scheduling/internal/config"
	"github.com/hackgods/clinic-appointment-scheduling/internal/db"
	"github.com/hackgods/clinic-appointment-scheduling/internal/directory"
	"github.com/hackgods/clinic-appointment-scheduling/internal/logging"
	"github.com/hackgods/clinic-appointment-scheduling/internal/timezone"

	redisclient "github.com/hackgods/clinic-appointment-scheduling/internal/redis"
)

const (
	clinicCount       = 5
	doctorsPerClinic  = 20
	patientsPerClinic = 1800
)

var clinicZones = []string{
	"America/New_York",
	"America/Chicago",
	"America/Los_Angeles",
	"Europe/Berlin",
	"Asia/Kolkata",
}

func main() {
	hoursOnly := flag.Bool("hours-only", false, "rewrite operating hours of existing clinics and drop their cache entries")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Bootstrap(os.Stderr, "seed").Fatal().Err(err).Msg("config load error")
	}
	log := logging.New("seed", cfg.Env, cfg.LogLevel)
	log.Info().Msg("seed starting")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	rdb, err := redisclient.NewRedisClient(ctx, redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect redis")
	}
	defer rdb.Close()
	cache := directory.NewCachedDirectory(directory.NewPgDirectory(pool), rdb, cfg.DirectoryCacheTTL, log)

	if *hoursOnly {
		if err := refreshHours(context.Background(), pool, cache, log); err != nil {
			log.Fatal().Err(err).Msg("refresh operating hours")
		}
		log.Info().Msg("operating hours refreshed")
		return
	}

	faker := gofakeit.New(uint64(time.Now().UnixNano()))
	rules := availability.NewPgStore(pool)

	for i := 0; i < clinicCount; i++ {
		clinicID, err := seedClinic(context.Background(), pool, faker, clinicZones[i%len(clinicZones)])
		if err != nil {
			log.Fatal().Err(err).Msg("seed clinic")
		}
		if err := cache.Invalidate(context.Background(), clinicID); err != nil {
			log.Warn().Err(err).Str("clinic_id", clinicID.String()).Msg("clinic cache not invalidated")
		}

		doctors, err := seedDoctors(context.Background(), pool, faker, clinicID, doctorsPerClinic)
		if err != nil {
			log.Fatal().Err(err).Msg("seed doctors")
		}
		for _, doctorID := range doctors {
			if err := rules.ReplaceRules(context.Background(), doctorID, doctorSchedule(faker)); err != nil {
				log.Fatal().Err(err).Msg("seed availability")
			}
		}

		if err := seedPatients(context.Background(), pool, faker, log, clinicID, patientsPerClinic); err != nil {
			log.Fatal().Err(err).Msg("seed patients")
		}
		log.Info().Str("clinic_id", clinicID.String()).Int("doctors", len(doctors)).Msg("clinic seeded")
	}

	log.Info().Msg("seed complete")
}

func seedClinic(ctx context.Context, pool *pgxpool.Pool, faker *gofakeit.Faker, zone string) (uuid.UUID, error) {
	id := uuid.New()
	name := fmt.Sprintf("%s %s Clinic", faker.City(), faker.LastName())

	err := db.InTx(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO clinics (id, name, timezone, active, created_at, updated_at)
			VALUES ($1, $2, $3, true, now(), now())
		`, id, name, zone); err != nil {
			return err
		}
		return directory.NewPgDirectory(tx).ReplaceOperatingHours(ctx, id, clinicHours(id))
	})
	return id, err
}

// refreshHours resets every clinic to the default week. Cached hours are
// dropped after each commit so the API serves the new schedule right away.
func refreshHours(ctx context.Context, pool *pgxpool.Pool, cache *directory.CachedDirectory, log zerolog.Logger) error {
	rows, err := pool.Query(ctx, `SELECT id FROM clinics ORDER BY id`)
	if err != nil {
		return fmt.Errorf("list clinics: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return fmt.Errorf("list clinics: %w", err)
	}

	for _, id := range ids {
		err := db.InTx(ctx, pool, func(tx pgx.Tx) error {
			return directory.NewPgDirectory(tx).ReplaceOperatingHours(ctx, id, clinicHours(id))
		})
		if err != nil {
			return err
		}
		if err := cache.Invalidate(ctx, id); err != nil {
			return err
		}
		log.Debug().Str("clinic_id", id.String()).Msg("operating hours rewritten")
	}
	return nil
}

// clinicHours opens weekdays 08:00-18:00 and Saturday mornings.
func clinicHours(clinicID uuid.UUID) []directory.OperatingHour {
	hours := make([]directory.OperatingHour, 0, 7)
	for day := time.Sunday; day <= time.Saturday; day++ {
		h := directory.OperatingHour{ClinicID: clinicID, DayOfWeek: day}
		switch day {
		case time.Sunday:
			h.IsClosed = true
		case time.Saturday:
			h.Open, h.Close = clockPtr(9, 0), clockPtr(13, 0)
		default:
			h.Open, h.Close = clockPtr(8, 0), clockPtr(18, 0)
		}
		hours = append(hours, h)
	}
	return hours
}

func clockPtr(h, m int) *timezone.TimeOfDay {
	c := clock(h, m)
	return &c
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, faker *gofakeit.Faker, clinicID uuid.UUID, count int) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, count)
	err := db.InTx(ctx, pool, func(tx pgx.Tx) error {
		for i := 0; i < count; i++ {
			id := uuid.New()
			if _, err := tx.Exec(ctx, `
				INSERT INTO doctors (id, user_id, clinic_id, name, active, created_at, updated_at)
				VALUES ($1, $2, $3, $4, true, now(), now())
			`, id, uuid.New(), clinicID, "Dr. "+faker.Name()); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	return ids, err
}

// doctorSchedule gives most doctors a weekday window with a lunch break. A
// few get no windows at all and follow the clinic's hours.
func doctorSchedule(faker *gofakeit.Faker) availability.Rules {
	if faker.Number(0, 9) == 0 {
		return availability.Rules{}
	}

	start := 8 + faker.Number(0, 2)
	var rules availability.Rules
	for day := time.Monday; day <= time.Friday; day++ {
		if faker.Number(0, 4) == 0 {
			continue
		}
		rules.Windows = append(rules.Windows, availability.WeeklyRule{
			DayOfWeek: day,
			Start:     clock(start, 0),
			End:       clock(start+8, 0),
			Active:    true,
		})
		rules.Breaks = append(rules.Breaks, availability.WeeklyRule{
			DayOfWeek: day,
			Start:     clock(12, 0),
			End:       clock(13, 0),
			Active:    true,
		})
	}
	return rules
}

func clock(h, m int) timezone.TimeOfDay {
	return timezone.TimeOfDay(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, faker *gofakeit.Faker, log zerolog.Logger, clinicID uuid.UUID, count int) error {
	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := min(offset+batchSize, count)

		err := db.InTx(ctx, pool, func(tx pgx.Tx) error {
			for i := offset; i < end; i++ {
				if _, err := tx.Exec(ctx, `
					INSERT INTO patients (id, user_id, clinic_id, name, email, active, created_at, updated_at)
					VALUES ($1, $2, $3, $4, $5, true, now(), now())
				`, uuid.New(), uuid.New(), clinicID, faker.Name(), faker.Email()); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}

		log.Debug().Int("seeded", end).Int("total", count).Msg("patients batch committed")
	}
	return nil
}
