package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// CachedDirectory keeps clinic rows and opening hours in redis. Doctor and
// patient lookups always go to the underlying directory since their active
// flag gates booking.
type CachedDirectory struct {
	Directory
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

func NewCachedDirectory(inner Directory, client *redis.Client, ttl time.Duration, log zerolog.Logger) *CachedDirectory {
	return &CachedDirectory{
		Directory: inner,
		client:    client,
		ttl:       ttl,
		log:       log,
	}
}

func clinicKey(id uuid.UUID) string {
	return fmt.Sprintf("directory:clinic:%s", id)
}

func hoursKey(id uuid.UUID) string {
	return fmt.Sprintf("directory:clinic:%s:hours", id)
}

func (c *CachedDirectory) GetClinic(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	var clinic Clinic
	if c.load(ctx, clinicKey(id), &clinic) {
		return &clinic, nil
	}

	loaded, err := c.Directory.GetClinic(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, clinicKey(id), loaded)
	return loaded, nil
}

func (c *CachedDirectory) GetOperatingHours(ctx context.Context, clinicID uuid.UUID) ([]OperatingHour, error) {
	var hours []OperatingHour
	if c.load(ctx, hoursKey(clinicID), &hours) {
		return hours, nil
	}

	loaded, err := c.Directory.GetOperatingHours(ctx, clinicID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, hoursKey(clinicID), loaded)
	return loaded, nil
}

// Invalidate drops the cached rows of a clinic.
func (c *CachedDirectory) Invalidate(ctx context.Context, clinicID uuid.UUID) error {
	if err := c.client.Del(ctx, clinicKey(clinicID), hoursKey(clinicID)).Err(); err != nil {
		return fmt.Errorf("invalidate clinic cache: %w", err)
	}
	return nil
}

// A cache failure degrades to a directory read.
func (c *CachedDirectory) load(ctx context.Context, key string, dest any) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Str("key", key).Msg("directory cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("directory cache entry corrupt")
		return false
	}
	return true
}

func (c *CachedDirectory) store(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("directory cache write failed")
	}
}
