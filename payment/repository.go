package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound signals the payment does not exist.
var ErrNotFound = errors.New("payment: not found")

// Repository defines the data access required by the service.
type Repository interface {
	Create(ctx context.Context, tx pgx.Tx, rec Record) (Record, error)
	Update(ctx context.Context, tx pgx.Tx, params UpdateParams) (Record, error)
	GetByID(ctx context.Context, id string) (Record, error)
	List(ctx context.Context, filters Filters) ([]Record, error)
}

const paymentColumns = `id, citizen_id, amount::text, payment_date, period_month, period_year, receipt_photo_url, recorded_by_admin_id, created_at, updated_at`

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL-backed payment repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Create inserts a payment row inside the active transaction.
func (r *PGRepository) Create(ctx context.Context, tx pgx.Tx, rec Record) (Record, error) {
	insertSQL := fmt.Sprintf(`
		INSERT INTO payments (id, citizen_id, amount, payment_date, period_month, period_year, receipt_photo_url, recorded_by_admin_id)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3::numeric, $4, $5, $6, $7, $8)
		RETURNING %s
	`, paymentColumns)

	row := tx.QueryRow(ctx, insertSQL,
		rec.ID,
		rec.CitizenID,
		rec.Amount,
		rec.PaymentDate,
		rec.PeriodMonth,
		rec.PeriodYear,
		rec.ReceiptPhotoURL,
		rec.RecordedByAdminID,
	)

	created, err := scanRecord(row)
	if err != nil {
		return Record{}, fmt.Errorf("payment: insert: %w", err)
	}
	return created, nil
}

// Update overwrites only the fields present in params. Absent fields keep
// their stored value; updated_at is always refreshed. Ownership and admin
// linkage columns are never touched.
func (r *PGRepository) Update(ctx context.Context, tx pgx.Tx, params UpdateParams) (Record, error) {
	set := []string{"updated_at = now()"}
	args := []any{params.ID}

	if params.Amount != nil {
		args = append(args, *params.Amount)
		set = append(set, fmt.Sprintf("amount = $%d::numeric", len(args)))
	}
	if params.PaymentDate != nil {
		args = append(args, *params.PaymentDate)
		set = append(set, fmt.Sprintf("payment_date = $%d", len(args)))
	}
	if params.PeriodMonth != nil {
		args = append(args, *params.PeriodMonth)
		set = append(set, fmt.Sprintf("period_month = $%d", len(args)))
	}
	if params.PeriodYear != nil {
		args = append(args, *params.PeriodYear)
		set = append(set, fmt.Sprintf("period_year = $%d", len(args)))
	}
	if params.ReceiptPhotoURL.Set {
		args = append(args, params.ReceiptPhotoURL.Value)
		set = append(set, fmt.Sprintf("receipt_photo_url = $%d", len(args)))
	}

	updateSQL := fmt.Sprintf(`UPDATE payments SET %s WHERE id = $1 RETURNING %s`,
		strings.Join(set, ", "), paymentColumns)

	rec, err := scanRecord(tx.QueryRow(ctx, updateSQL, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("payment: update: %w", err)
	}
	return rec, nil
}

// GetByID fetches a payment by its primary key.
func (r *PGRepository) GetByID(ctx context.Context, id string) (Record, error) {
	selectSQL := fmt.Sprintf(`SELECT %s FROM payments WHERE id = $1`, paymentColumns)

	rec, err := scanRecord(r.pool.QueryRow(ctx, selectSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("payment: get by id: %w", err)
	}
	return rec, nil
}

// List fetches payments matching the filters, newest first.
func (r *PGRepository) List(ctx context.Context, filters Filters) ([]Record, error) {
	base := fmt.Sprintf(`SELECT %s FROM payments`, paymentColumns)
	where := []string{"1=1"}
	args := []any{}

	if filters.CitizenID != "" {
		args = append(args, filters.CitizenID)
		where = append(where, fmt.Sprintf("citizen_id = $%d", len(args)))
	}
	if filters.Year != 0 {
		args = append(args, filters.Year)
		where = append(where, fmt.Sprintf("period_year = $%d", len(args)))
	}
	if filters.Month != 0 {
		args = append(args, filters.Month)
		where = append(where, fmt.Sprintf("period_month = $%d", len(args)))
	}

	query := base + " WHERE " + strings.Join(where, " AND ") + " ORDER BY created_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("payment: list: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("payment: scan: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("payment: iterate: %w", err)
	}
	return out, nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	return rec, row.Scan(
		&rec.ID,
		&rec.CitizenID,
		&rec.Amount,
		&rec.PaymentDate,
		&rec.PeriodMonth,
		&rec.PeriodYear,
		&rec.ReceiptPhotoURL,
		&rec.RecordedByAdminID,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
}
