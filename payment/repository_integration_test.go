package payment

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"retribusi/audit"
	"retribusi/auth"
)

// TestLedgerRoundTrip_Integration connects to a real PostgreSQL via DATABASE_URL
// and verifies the repository + service behavior, including the fixed-point
// amount round-trip and the three-way receipt URL semantics.
func TestLedgerRoundTrip_Integration(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL is empty; set it to a live PostgreSQL to run integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect pool: %v", err)
	}
	defer pool.Close()

	// Ensure schema exists (migrations applied)
	for _, table := range []string{"users", "payments", "disputes", "events", "outbox"} {
		if !tableExists(ctx, t, pool, table) {
			t.Skipf("table %s missing; apply migrations/*.sql first", table)
		}
	}

	nano := time.Now().UnixNano()
	var citizenID, adminID string
	if err := pool.QueryRow(ctx, `INSERT INTO users (username, password_hash, full_name, national_id) VALUES ($1,'x','Itest Warga',$2) RETURNING id`,
		fmt.Sprintf("warga%d", nano), fmt.Sprintf("%016d", nano%1_000_000_000_000_000)).Scan(&citizenID); err != nil {
		t.Fatalf("seed citizen: %v", err)
	}
	if err := pool.QueryRow(ctx, `INSERT INTO users (username, password_hash, full_name, national_id, role) VALUES ($1,'x','Itest Admin',$2,'admin') RETURNING id`,
		fmt.Sprintf("admin%d", nano), fmt.Sprintf("%016d", (nano+1)%1_000_000_000_000_000)).Scan(&adminID); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	var paymentID string
	t.Cleanup(func() {
		ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel2()
		if paymentID != "" {
			pool.Exec(ctx2, `DELETE FROM events WHERE entity_id = $1`, paymentID)
			pool.Exec(ctx2, `DELETE FROM outbox WHERE payload->>'payment_id' = $1`, paymentID)
			pool.Exec(ctx2, `DELETE FROM payments WHERE id = $1`, paymentID)
		}
		pool.Exec(ctx2, `DELETE FROM users WHERE id IN ($1, $2)`, citizenID, adminID)
	})

	directory := auth.NewService(auth.NewRepository(pool), "itest-secret")
	svc := NewService(pool, NewRepository(pool), directory, audit.NewTimeline(), audit.NewOutbox())

	url := "https://example.com/receipt.jpg"
	created, err := svc.Create(ctx, CreateParams{
		CitizenID:       citizenID,
		Amount:          "25000.50",
		PaymentDate:     time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		PeriodMonth:     3,
		PeriodYear:      2024,
		ReceiptPhotoURL: &url,
		AdminID:         adminID,
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	paymentID = created.ID

	// Round-trip law: the stored amount re-reads equal to the input.
	reread, err := svc.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get payment: %v", err)
	}
	if reread.Amount != "25000.50" {
		t.Fatalf("amount round-trip: expected 25000.50, got %q", reread.Amount)
	}

	// Partial update: explicit NULL clears, omission preserves.
	updated, err := svc.Update(ctx, UpdateParams{ID: created.ID, AdminID: adminID, ReceiptPhotoURL: Null()})
	if err != nil {
		t.Fatalf("update payment: %v", err)
	}
	if updated.ReceiptPhotoURL != nil {
		t.Fatal("expected receipt url cleared")
	}
	if updated.Amount != "25000.50" {
		t.Fatalf("omitted amount changed: %q", updated.Amount)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatal("created_at must not change on update")
	}

	// One timeline event per mutation, one outbox message per topic.
	var evCount int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM events WHERE entity_id = $1`, created.ID).Scan(&evCount); err != nil {
		t.Fatalf("verify events: %v", err)
	}
	if evCount != 2 {
		t.Fatalf("expected 2 events (recorded + updated), got %d", evCount)
	}
	var outCount int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE topic = 'payment.recorded' AND payload->>'payment_id' = $1`, created.ID).Scan(&outCount); err != nil {
		t.Fatalf("verify outbox: %v", err)
	}
	if outCount != 1 {
		t.Fatalf("expected 1 payment.recorded outbox message, got %d", outCount)
	}
}

func tableExists(ctx context.Context, t *testing.T, pool *pgxpool.Pool, name string) bool {
	t.Helper()
	var exists bool
	err := pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = 'public' AND table_name = $1)`, name).Scan(&exists)
	if err != nil {
		t.Fatalf("check table %s: %v", name, err)
	}
	return exists
}
