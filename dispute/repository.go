package dispute

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound signals the dispute does not exist.
	ErrNotFound = errors.New("dispute: not found")
	// ErrPaymentNotFound signals the referenced payment does not exist.
	ErrPaymentNotFound = errors.New("dispute: payment not found")
)

// Repository defines the data access required by the service.
type Repository interface {
	PaymentOwner(ctx context.Context, paymentID string) (string, error)
	Create(ctx context.Context, tx pgx.Tx, rec Record) (Record, error)
	Resolve(ctx context.Context, tx pgx.Tx, params ResolveParams) (Record, error)
	GetByID(ctx context.Context, id string) (Record, error)
	List(ctx context.Context, filters Filters) ([]Record, error)
}

const disputeColumns = `id, payment_id, citizen_id, reason, evidence_photo_url, status::text, admin_response, resolved_by_admin_id, created_at, updated_at`

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL-backed dispute repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// PaymentOwner returns the citizen id owning the referenced payment.
func (r *PGRepository) PaymentOwner(ctx context.Context, paymentID string) (string, error) {
	var citizenID string
	err := r.pool.QueryRow(ctx, `SELECT citizen_id FROM payments WHERE id = $1`, paymentID).Scan(&citizenID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrPaymentNotFound
		}
		return "", fmt.Errorf("dispute: payment owner: %w", err)
	}
	return citizenID, nil
}

// Create inserts a dispute row inside the active transaction. Status and the
// decision fields are forced to their creation defaults by the caller.
func (r *PGRepository) Create(ctx context.Context, tx pgx.Tx, rec Record) (Record, error) {
	insertSQL := fmt.Sprintf(`
		INSERT INTO disputes (id, payment_id, citizen_id, reason, evidence_photo_url, status)
		VALUES (COALESCE(NULLIF($1, '')::uuid, gen_random_uuid()), $2, $3, $4, $5, 'pending')
		RETURNING %s
	`, disputeColumns)

	row := tx.QueryRow(ctx, insertSQL,
		rec.ID,
		rec.PaymentID,
		rec.CitizenID,
		rec.Reason,
		rec.EvidencePhotoURL,
	)

	created, err := scanRecord(row)
	if err != nil {
		return Record{}, fmt.Errorf("dispute: insert: %w", err)
	}
	return created, nil
}

// Resolve overwrites the decision fields, leaving everything else verbatim.
// Re-resolving an already-resolved dispute simply replaces the decision.
func (r *PGRepository) Resolve(ctx context.Context, tx pgx.Tx, params ResolveParams) (Record, error) {
	updateSQL := fmt.Sprintf(`
		UPDATE disputes
		SET status = $2,
		    admin_response = $3,
		    resolved_by_admin_id = $4,
		    updated_at = now()
		WHERE id = $1
		RETURNING %s
	`, disputeColumns)

	row := tx.QueryRow(ctx, updateSQL,
		params.ID,
		params.Status,
		params.AdminResponse,
		params.ResolvedByAdminID,
	)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("dispute: resolve: %w", err)
	}
	return rec, nil
}

// GetByID fetches a dispute by its primary key.
func (r *PGRepository) GetByID(ctx context.Context, id string) (Record, error) {
	selectSQL := fmt.Sprintf(`SELECT %s FROM disputes WHERE id = $1`, disputeColumns)

	rec, err := scanRecord(r.pool.QueryRow(ctx, selectSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("dispute: get by id: %w", err)
	}
	return rec, nil
}

// List fetches disputes matching the filters, newest first.
func (r *PGRepository) List(ctx context.Context, filters Filters) ([]Record, error) {
	base := fmt.Sprintf(`SELECT %s FROM disputes`, disputeColumns)
	where := []string{"1=1"}
	args := []any{}

	if filters.CitizenID != "" {
		args = append(args, filters.CitizenID)
		where = append(where, fmt.Sprintf("citizen_id = $%d", len(args)))
	}
	if filters.Status != "" {
		args = append(args, filters.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := base + " WHERE " + strings.Join(where, " AND ") + " ORDER BY created_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("dispute: list: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("dispute: scan: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dispute: iterate: %w", err)
	}
	return out, nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	return rec, row.Scan(
		&rec.ID,
		&rec.PaymentID,
		&rec.CitizenID,
		&rec.Reason,
		&rec.EvidencePhotoURL,
		&rec.Status,
		&rec.AdminResponse,
		&rec.ResolvedByAdminID,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
}
