package aiusage

import (
	"context"
	"errors"
	"time"
)

// Service orchestrates the monthly planning quota.
type Service struct {
	store Ledger
	limit int
	now   func() time.Time
}

// NewService creates a Service backed by the given Ledger. limit <= 0 selects DefaultMonthlyQuota.
func NewService(store Ledger, limit int) *Service {
	if limit <= 0 {
		limit = DefaultMonthlyQuota
	}
	return &Service{store: store, limit: limit, now: time.Now}
}

// Consume deducts one generation from the caller's monthly allowance and returns what is left.
// If the caller has no row yet it is initialised and the generation is immediately consumed.
// Returns ErrQuotaExhausted when the allowance for the current month is used up.
func (s *Service) Consume(ctx context.Context, subject string) (int, error) {
	period := Period(s.now())
	remaining, err := s.store.Consume(ctx, subject, period, s.limit)
	if !errors.Is(err, ErrQuotaExhausted) {
		return remaining, err
	}

	// Row may be missing: try to create it, then retry the deduction once.
	if initErr := s.store.EnsureSubject(ctx, subject, period, s.limit); initErr != nil {
		return 0, initErr
	}
	return s.store.Consume(ctx, subject, period, s.limit)
}

// Refund returns a generation consumed by a call that produced nothing.
func (s *Service) Refund(ctx context.Context, subject string) error {
	return s.store.Refund(ctx, subject, Period(s.now()), s.limit)
}

func (s *Service) Limit() int {
	return s.limit
}
