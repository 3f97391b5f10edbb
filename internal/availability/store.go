package availability

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists doctors' availability rules.
type Store interface {
	// DayRules loads the active rules that apply to one naive date.
	DayRules(ctx context.Context, doctorID uuid.UUID, date time.Time) (DayRules, error)
	Rules(ctx context.Context, doctorID uuid.UUID) (Rules, error)
	// ReplaceRules swaps the doctor's whole rule set in one transaction.
	ReplaceRules(ctx context.Context, doctorID uuid.UUID, rules Rules) error
}
