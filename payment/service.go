package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"retribusi/auth"
	"retribusi/policy"
)

var (
	// ErrCitizenNotFound signals the referenced citizen user does not exist.
	ErrCitizenNotFound = errors.New("payment: citizen user not found")
	// ErrAdminNotFound signals the referenced admin user does not exist.
	ErrAdminNotFound = errors.New("payment: admin user not found")
)

// Directory provides the user lookups the ledger needs for cross-entity checks.
type Directory interface {
	GetUserByID(ctx context.Context, userID string) (*auth.User, error)
}

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TimelineWriter appends audit events inside the active transaction.
type TimelineWriter interface {
	Append(ctx context.Context, tx pgx.Tx, entityID, eventType string, actorID *string, payload map[string]any) error
}

// OutboxWriter enqueues outbox messages inside the active transaction.
type OutboxWriter interface {
	Enqueue(ctx context.Context, tx pgx.Tx, topic string, payload map[string]any) error
}

// Service handles the waste-fee ledger business logic.
type Service struct {
	pool        TxBeginner
	repo        Repository
	directory   Directory
	timeline    TimelineWriter
	outbox      OutboxWriter
	idGenerator func() string
	now         func() time.Time
}

// NewService wires the ledger service. timeline and outbox may be nil when no
// audit trail is wanted.
func NewService(pool TxBeginner, repo Repository, directory Directory, timeline TimelineWriter, outbox OutboxWriter) *Service {
	return &Service{
		pool:        pool,
		repo:        repo,
		directory:   directory,
		timeline:    timeline,
		outbox:      outbox,
		idGenerator: func() string { return uuid.NewString() },
		now:         time.Now,
	}
}

func (s *Service) WithIDGenerator(gen func() string) *Service {
	s.idGenerator = gen
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create records a payment on behalf of a citizen. Only admins may record
// payments.
func (s *Service) Create(ctx context.Context, params CreateParams) (Record, error) {
	if !validAmount(params.Amount) {
		return Record{}, fmt.Errorf("payment: invalid amount %q", params.Amount)
	}
	if params.PeriodMonth < 1 || params.PeriodMonth > 12 {
		return Record{}, fmt.Errorf("payment: invalid period month %d", params.PeriodMonth)
	}
	if params.PeriodYear < 2000 {
		return Record{}, fmt.Errorf("payment: invalid period year %d", params.PeriodYear)
	}

	if _, err := s.lookupUser(ctx, params.CitizenID, ErrCitizenNotFound); err != nil {
		return Record{}, err
	}
	admin, err := s.lookupUser(ctx, params.AdminID, ErrAdminNotFound)
	if err != nil {
		return Record{}, err
	}
	if err := policy.Authorize(admin.Role, policy.ActionRecordPayment); err != nil {
		return Record{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("payment: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rec := Record{
		ID:                s.idGenerator(),
		CitizenID:         params.CitizenID,
		Amount:            params.Amount,
		PaymentDate:       params.PaymentDate,
		PeriodMonth:       params.PeriodMonth,
		PeriodYear:        params.PeriodYear,
		ReceiptPhotoURL:   params.ReceiptPhotoURL,
		RecordedByAdminID: params.AdminID,
	}

	created, err := s.repo.Create(ctx, tx, rec)
	if err != nil {
		return Record{}, err
	}

	if s.timeline != nil {
		payload := map[string]any{
			"citizen_id":   created.CitizenID,
			"amount":       created.Amount,
			"period_month": created.PeriodMonth,
			"period_year":  created.PeriodYear,
		}
		if err := s.timeline.Append(ctx, tx, created.ID, "PAYMENT_RECORDED", &params.AdminID, payload); err != nil {
			return Record{}, fmt.Errorf("payment: append timeline: %w", err)
		}
	}
	if s.outbox != nil {
		payload := map[string]any{
			"payment_id": created.ID,
			"citizen_id": created.CitizenID,
		}
		if err := s.outbox.Enqueue(ctx, tx, "payment.recorded", payload); err != nil {
			return Record{}, fmt.Errorf("payment: enqueue outbox: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Record{}, fmt.Errorf("payment: commit tx: %w", err)
	}

	return created, nil
}

// Update applies a partial update to a payment. Fields left nil keep their
// stored value; the receipt URL may be explicitly cleared. The acting user
// must be an existing admin.
func (s *Service) Update(ctx context.Context, params UpdateParams) (Record, error) {
	if params.ID == "" {
		return Record{}, fmt.Errorf("payment: missing payment id")
	}
	if params.Amount != nil && !validAmount(*params.Amount) {
		return Record{}, fmt.Errorf("payment: invalid amount %q", *params.Amount)
	}
	if params.PeriodMonth != nil && (*params.PeriodMonth < 1 || *params.PeriodMonth > 12) {
		return Record{}, fmt.Errorf("payment: invalid period month %d", *params.PeriodMonth)
	}
	if params.PeriodYear != nil && *params.PeriodYear < 2000 {
		return Record{}, fmt.Errorf("payment: invalid period year %d", *params.PeriodYear)
	}

	admin, err := s.lookupUser(ctx, params.AdminID, ErrAdminNotFound)
	if err != nil {
		return Record{}, err
	}
	if err := policy.Authorize(admin.Role, policy.ActionUpdatePayment); err != nil {
		return Record{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("payment: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rec, err := s.repo.Update(ctx, tx, params)
	if err != nil {
		return Record{}, err
	}

	if s.timeline != nil {
		payload := map[string]any{
			"amount":       rec.Amount,
			"period_month": rec.PeriodMonth,
			"period_year":  rec.PeriodYear,
		}
		if err := s.timeline.Append(ctx, tx, rec.ID, "PAYMENT_UPDATED", &params.AdminID, payload); err != nil {
			return Record{}, fmt.Errorf("payment: append timeline: %w", err)
		}
	}
	if s.outbox != nil {
		payload := map[string]any{
			"payment_id": rec.ID,
		}
		if err := s.outbox.Enqueue(ctx, tx, "payment.updated", payload); err != nil {
			return Record{}, fmt.Errorf("payment: enqueue outbox: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Record{}, fmt.Errorf("payment: commit tx: %w", err)
	}

	return rec, nil
}

// List returns payments matching the filters. An empty Filters value yields
// the unfiltered administrative view.
func (s *Service) List(ctx context.Context, filters Filters) ([]Record, error) {
	return s.repo.List(ctx, filters)
}

// GetByID fetches a single payment.
func (s *Service) GetByID(ctx context.Context, id string) (Record, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) lookupUser(ctx context.Context, userID string, notFound error) (*auth.User, error) {
	if userID == "" {
		return nil, notFound
	}
	user, err := s.directory.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return nil, notFound
		}
		return nil, err
	}
	return user, nil
}

// validAmount accepts a positive decimal with at most two fraction digits.
// The check stays on the string form so no float conversion is involved.
func validAmount(s string) bool {
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		return false
	}
	if hasFrac && (frac == "" || len(frac) > 2) {
		return false
	}
	positive := false
	for _, r := range whole + frac {
		if r < '0' || r > '9' {
			return false
		}
		if r != '0' {
			positive = true
		}
	}
	return positive
}
