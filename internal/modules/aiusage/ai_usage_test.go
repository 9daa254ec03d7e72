// README: Planning quota tests (lazy monthly reset and quota boundary logic).
package aiusage

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

// TestConsumeCrossMonthReset verifies that a caller with nothing left from a previous month
// is reset and the request succeeds.
func TestConsumeCrossMonthReset(t *testing.T) {
	svc, db := setupTestService(t)
	ctx := context.Background()

	if _, err := db.Exec(ctx, "INSERT INTO planning_quota (subject, remaining, period) VALUES ('caller_reset', 0, '2000-01')"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	remaining, err := svc.Consume(ctx, "caller_reset")
	if err != nil {
		t.Fatalf("Consume after cross-month reset: %v", err)
	}
	if remaining != DefaultMonthlyQuota-1 {
		t.Fatalf("expected %d remaining, got %d", DefaultMonthlyQuota-1, remaining)
	}
}

// TestConsumeExhausted verifies that a caller with nothing left in the current month is blocked.
func TestConsumeExhausted(t *testing.T) {
	svc, db := setupTestService(t)
	ctx := context.Background()

	if _, err := db.Exec(ctx, "INSERT INTO planning_quota (subject, remaining, period) VALUES ('caller_zero', 0, $1)", Period(time.Now())); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := svc.Consume(ctx, "caller_zero"); !errors.Is(err, ErrQuotaExhausted) {
		t.Fatalf("expected ErrQuotaExhausted, got %v", err)
	}
}

// TestConsumeNewCallerAndRefund verifies first-use initialisation and that a refund restores the allowance.
func TestConsumeNewCallerAndRefund(t *testing.T) {
	svc, db := setupTestService(t)
	ctx := context.Background()

	if _, err := svc.Consume(ctx, "caller_new"); err != nil {
		t.Fatalf("Consume for new caller: %v", err)
	}
	if err := svc.Refund(ctx, "caller_new"); err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if err := svc.Refund(ctx, "caller_new"); err != nil {
		t.Fatalf("Refund: %v", err)
	}

	var remaining int
	if err := db.QueryRow(ctx, "SELECT remaining FROM planning_quota WHERE subject = 'caller_new'").Scan(&remaining); err != nil {
		t.Fatalf("query: %v", err)
	}
	if remaining != DefaultMonthlyQuota {
		t.Fatalf("refund must not exceed the limit: got %d", remaining)
	}
}

func TestMemoryStoreQuota(t *testing.T) {
	svc := NewService(NewMemoryStore(), 2)
	svc.now = fixedClock(time.Date(2025, time.March, 31, 23, 0, 0, 0, time.UTC))
	ctx := context.Background()

	for want := 1; want >= 0; want-- {
		got, err := svc.Consume(ctx, "10.0.0.1")
		if err != nil || got != want {
			t.Fatalf("Consume: got (%d, %v), want %d", got, err, want)
		}
	}
	if _, err := svc.Consume(ctx, "10.0.0.1"); !errors.Is(err, ErrQuotaExhausted) {
		t.Fatalf("expected ErrQuotaExhausted, got %v", err)
	}
	if _, err := svc.Consume(ctx, "10.0.0.2"); err != nil {
		t.Fatalf("other callers are independent: %v", err)
	}

	if err := svc.Refund(ctx, "10.0.0.1"); err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if got, err := svc.Consume(ctx, "10.0.0.1"); err != nil || got != 0 {
		t.Fatalf("Consume after refund: got (%d, %v)", got, err)
	}

	svc.now = fixedClock(time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC))
	if got, err := svc.Consume(ctx, "10.0.0.1"); err != nil || got != 1 {
		t.Fatalf("Consume in new month: got (%d, %v), want 1", got, err)
	}
}

func TestNewServiceDefaultLimit(t *testing.T) {
	if got := NewService(NewMemoryStore(), 0).Limit(); got != DefaultMonthlyQuota {
		t.Fatalf("Limit() = %d, want %d", got, DefaultMonthlyQuota)
	}
}

// setupTestService creates a real postgres-backed Service for integration tests.
// It skips the test when PLANNER_TEST_DSN is not set.
func setupTestService(t *testing.T) (*Service, *pgxpool.Pool) {
	t.Helper()

	dsn := os.Getenv("PLANNER_TEST_DSN")
	if dsn == "" {
		t.Skip("PLANNER_TEST_DSN not set; skipping DB-backed tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := applyMigrations(ctx, db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	if _, err := db.Exec(ctx, "TRUNCATE TABLE planning_quota"); err != nil {
		t.Fatalf("truncate planning_quota: %v", err)
	}

	return NewService(NewStore(db), DefaultMonthlyQuota), db
}

func applyMigrations(ctx context.Context, db *pgxpool.Pool) error {
	root, err := repoRoot()
	if err != nil {
		return err
	}
	migrations := []string{
		"0001_planning_quota.sql",
	}
	for _, name := range migrations {
		path := filepath.Join(root, "migrations", name)
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		cleaned := stripSQLComments(string(content))
		for _, stmt := range splitSQL(cleaned) {
			if _, err := db.Exec(ctx, stmt); err != nil {
				return err
			}
		}
	}
	return nil
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

func stripSQLComments(input string) string {
	var b strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		b.WriteString(scanner.Text())
		b.WriteString("\n")
	}
	return b.String()
}

func splitSQL(input string) []string {
	parts := strings.Split(input, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		stmt := strings.TrimSpace(p)
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}
