package actors

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Recorder keeps inserting payments for the seeded citizen, the way an admin
// backfills a month of fee collections.
func Recorder(ctx context.Context, pool *pgxpool.Pool, citizenID, adminID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		amount := fmt.Sprintf("%d.%02d", 10000+rand.Intn(90000), rand.Intn(100))
		_, err := pool.Exec(ctx, `INSERT INTO payments (citizen_id, amount, payment_date, period_month, period_year, recorded_by_admin_id)
                                   VALUES ($1, $2::numeric, now(), $3, $4, $5)`,
			citizenID, amount, 1+rand.Intn(12), 2020+rand.Intn(6), adminID)
		if err != nil {
			return fmt.Errorf("recorder insert: %w", err)
		}
		time.Sleep(time.Duration(10+rand.Intn(20)) * time.Millisecond)
	}
}

// Amender races partial updates against the same payment; the ledger runs
// last-write-wins so every attempt should succeed.
func Amender(ctx context.Context, pool *pgxpool.Pool, paymentID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		if rand.Intn(2) == 0 {
			amount := fmt.Sprintf("%d.%02d", 10000+rand.Intn(90000), rand.Intn(100))
			if _, err := pool.Exec(ctx, `UPDATE payments SET amount=$2::numeric, updated_at=now() WHERE id=$1`, paymentID, amount); err != nil {
				return fmt.Errorf("amender amount: %w", err)
			}
		} else {
			if _, err := pool.Exec(ctx, `UPDATE payments SET receipt_photo_url=NULL, updated_at=now() WHERE id=$1`, paymentID); err != nil {
				return fmt.Errorf("amender receipt: %w", err)
			}
		}
		time.Sleep(time.Duration(15+rand.Intn(35)) * time.Millisecond)
	}
}

// Disputant opens disputes against the seeded payment. Multiple disputes per
// payment are allowed, so inserts never conflict.
func Disputant(ctx context.Context, pool *pgxpool.Pool, paymentID, citizenID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		_, err := pool.Exec(ctx, `INSERT INTO disputes (payment_id, citizen_id, reason)
                                   SELECT id, citizen_id, 'stress complaint' FROM payments WHERE id=$1 AND citizen_id=$2`,
			paymentID, citizenID)
		if err != nil {
			return fmt.Errorf("disputant insert: %w", err)
		}
		time.Sleep(time.Duration(100+rand.Intn(100)) * time.Millisecond)
	}
}

// Resolver flips random disputes to a decision, overwriting earlier decisions
// (re-resolution is allowed by design), and appends the audit rows in the same
// transaction.
func Resolver(ctx context.Context, pool *pgxpool.Pool, adminID string, stop <-chan struct{}) error {
	statuses := []string{"approved", "rejected"}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}
		var dispID string
		err = tx.QueryRow(ctx, `SELECT id FROM disputes ORDER BY random() LIMIT 1 FOR UPDATE SKIP LOCKED`).Scan(&dispID)
		if err == nil {
			status := statuses[rand.Intn(len(statuses))]
			_, err = tx.Exec(ctx, `UPDATE disputes SET status=$2, admin_response='stress decision', resolved_by_admin_id=$3, updated_at=now() WHERE id=$1`,
				dispID, status, adminID)
			if err == nil {
				_, _ = tx.Exec(ctx, `INSERT INTO events (entity_id, type, payload, actor_id) VALUES ($1,'DISPUTE_RESOLVED',jsonb_build_object('status',$2),$3)`,
					dispID, status, adminID)
				_, _ = tx.Exec(ctx, `INSERT INTO outbox (topic, payload) VALUES ('dispute.resolved', jsonb_build_object('dispute_id',$1))`, dispID)
				_ = tx.Commit(ctx)
				time.Sleep(time.Duration(20+rand.Intn(40)) * time.Millisecond)
				continue
			}
		}
		_ = tx.Rollback(ctx)
		time.Sleep(time.Duration(20+rand.Intn(40)) * time.Millisecond)
	}
}

// OutboxWorker consumes pending outbox messages with SKIP LOCKED and marks them processed.
func OutboxWorker(ctx context.Context, pool *pgxpool.Pool, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}
		rows, err := tx.Query(ctx, `SELECT id FROM outbox WHERE status='pending' ORDER BY created_at FOR UPDATE SKIP LOCKED LIMIT 10`)
		if err != nil {
			_ = tx.Rollback(ctx)
			time.Sleep(50 * time.Millisecond)
			continue
		}
		ids := make([]string, 0, 10)
		for rows.Next() {
			var id string
			_ = rows.Scan(&id)
			ids = append(ids, id)
		}
		rows.Close()
		for _, id := range ids {
			// simulate random failure
			if rand.Intn(10) == 0 {
				_, _ = tx.Exec(ctx, `UPDATE outbox SET attempts=attempts+1 WHERE id=$1`, id)
				continue
			}
			_, _ = tx.Exec(ctx, `UPDATE outbox SET status='processed', attempts=attempts+1 WHERE id=$1`, id)
		}
		_ = tx.Commit(ctx)
		time.Sleep(100 * time.Millisecond)
	}
}
