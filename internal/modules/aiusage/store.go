package aiusage

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Ledger persists per-caller generation allowances.
type Ledger interface {
	// Consume deducts one generation for subject in period, resetting to limit when the stored
	// period is older. It returns ErrQuotaExhausted when nothing is left or the subject is unknown.
	Consume(ctx context.Context, subject, period string, limit int) (remaining int, err error)
	// EnsureSubject creates a fresh allowance for subject; existing rows are left untouched.
	EnsureSubject(ctx context.Context, subject, period string, limit int) error
	// Refund gives one generation back, never above limit and only within period.
	Refund(ctx context.Context, subject, period string, limit int) error
}

// DBTX is the part of *pgxpool.Pool the store needs.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store handles planning_quota persistence.
type Store struct {
	db DBTX
}

// NewStore returns a Store backed by the given connection pool.
func NewStore(db DBTX) *Store {
	return &Store{db: db}
}

func (s *Store) Consume(ctx context.Context, subject, period string, limit int) (int, error) {
	var remaining int
	err := s.db.QueryRow(ctx, `
		UPDATE planning_quota SET
			remaining = CASE WHEN period <> $1 THEN $2 - 1 ELSE remaining - 1 END,
			period = $1
		WHERE subject = $3 AND (period < $1 OR remaining > 0)
		RETURNING remaining
	`, period, limit, subject).Scan(&remaining)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrQuotaExhausted
	}
	if err != nil {
		return 0, err
	}
	return remaining, nil
}

func (s *Store) EnsureSubject(ctx context.Context, subject, period string, limit int) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO planning_quota (subject, remaining, period)
		VALUES ($1, $2, $3)
		ON CONFLICT (subject) DO NOTHING
	`, subject, limit, period)
	return err
}

func (s *Store) Refund(ctx context.Context, subject, period string, limit int) error {
	_, err := s.db.Exec(ctx, `
		UPDATE planning_quota SET remaining = LEAST(remaining + 1, $3)
		WHERE subject = $1 AND period = $2
	`, subject, period, limit)
	return err
}

// MemoryStore is a process-local Ledger used when no database is configured.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string]*memoryRow
}

type memoryRow struct {
	remaining int
	period    string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]*memoryRow)}
}

func (m *MemoryStore) Consume(_ context.Context, subject, period string, limit int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[subject]
	if !ok {
		return 0, ErrQuotaExhausted
	}
	if row.period < period {
		row.period, row.remaining = period, limit
	}
	if row.remaining <= 0 {
		return 0, ErrQuotaExhausted
	}
	row.remaining--
	return row.remaining, nil
}

func (m *MemoryStore) EnsureSubject(_ context.Context, subject, period string, limit int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[subject]; !ok {
		m.rows[subject] = &memoryRow{remaining: limit, period: period}
	}
	return nil
}

func (m *MemoryStore) Refund(_ context.Context, subject, period string, limit int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row, ok := m.rows[subject]; ok && row.period == period && row.remaining < limit {
		row.remaining++
	}
	return nil
}
