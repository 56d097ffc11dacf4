package dispute

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
	// ErrNotOwner signals the payment belongs to a different citizen.
	ErrNotOwner = errors.New("dispute: payment does not belong to this user")
	// ErrAdminNotFound signals the resolving admin user does not exist.
	ErrAdminNotFound = errors.New("dispute: admin user not found")
)

// Directory provides the user lookups the workflow needs for role checks.
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

// Service handles the dispute workflow business logic.
type Service struct {
	pool        TxBeginner
	repo        Repository
	directory   Directory
	timeline    TimelineWriter
	outbox      OutboxWriter
	idGenerator func() string
	now         func() time.Time
}

// NewService wires the dispute service. timeline and outbox may be nil when no
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

// Create opens a dispute against a payment. The payment must exist and belong
// to the disputing citizen. Status always starts pending with the decision
// fields NULL, regardless of caller input. Multiple disputes per payment are
// permitted.
func (s *Service) Create(ctx context.Context, params CreateParams) (Record, error) {
	if strings.TrimSpace(params.Reason) == "" {
		return Record{}, fmt.Errorf("dispute: reason required")
	}
	if params.CitizenID == "" {
		return Record{}, fmt.Errorf("dispute: missing citizen id")
	}

	owner, err := s.repo.PaymentOwner(ctx, params.PaymentID)
	if err != nil {
		return Record{}, err
	}
	if owner != params.CitizenID {
		return Record{}, ErrNotOwner
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("dispute: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rec := Record{
		ID:               s.idGenerator(),
		PaymentID:        params.PaymentID,
		CitizenID:        params.CitizenID,
		Reason:           params.Reason,
		EvidencePhotoURL: params.EvidencePhotoURL,
		Status:           StatusPending,
	}

	created, err := s.repo.Create(ctx, tx, rec)
	if err != nil {
		return Record{}, err
	}

	if s.timeline != nil {
		payload := map[string]any{
			"payment_id": created.PaymentID,
			"reason":     created.Reason,
		}
		citizenID := params.CitizenID
		if err := s.timeline.Append(ctx, tx, created.ID, "DISPUTE_OPENED", &citizenID, payload); err != nil {
			return Record{}, fmt.Errorf("dispute: append timeline: %w", err)
		}
	}
	if s.outbox != nil {
		payload := map[string]any{
			"dispute_id": created.ID,
			"payment_id": created.PaymentID,
		}
		if err := s.outbox.Enqueue(ctx, tx, "dispute.opened", payload); err != nil {
			return Record{}, fmt.Errorf("dispute: enqueue outbox: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Record{}, fmt.Errorf("dispute: commit tx: %w", err)
	}

	return created, nil
}

// Resolve records an admin decision on a dispute. Preconditions fail in a
// fixed order with distinct signals: unknown admin, insufficient role, then
// unknown dispute. Resolving an already-resolved dispute overwrites the prior
// decision.
func (s *Service) Resolve(ctx context.Context, params ResolveParams) (Record, error) {
	if params.Status != StatusApproved && params.Status != StatusRejected {
		return Record{}, fmt.Errorf("dispute: invalid resolution status %q", params.Status)
	}

	if params.ResolvedByAdminID == "" {
		return Record{}, ErrAdminNotFound
	}
	admin, err := s.directory.GetUserByID(ctx, params.ResolvedByAdminID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return Record{}, ErrAdminNotFound
		}
		return Record{}, err
	}
	if err := policy.Authorize(admin.Role, policy.ActionResolveDispute); err != nil {
		return Record{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("dispute: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rec, err := s.repo.Resolve(ctx, tx, params)
	if err != nil {
		return Record{}, err
	}

	if s.timeline != nil {
		payload := map[string]any{
			"payment_id": rec.PaymentID,
			"status":     rec.Status,
		}
		if rec.AdminResponse != nil {
			payload["admin_response"] = *rec.AdminResponse
		}
		adminID := params.ResolvedByAdminID
		if err := s.timeline.Append(ctx, tx, rec.ID, "DISPUTE_RESOLVED", &adminID, payload); err != nil {
			return Record{}, fmt.Errorf("dispute: append timeline: %w", err)
		}
	}
	if s.outbox != nil {
		payload := map[string]any{
			"dispute_id": rec.ID,
			"status":     rec.Status,
		}
		if err := s.outbox.Enqueue(ctx, tx, "dispute.resolved", payload); err != nil {
			return Record{}, fmt.Errorf("dispute: enqueue outbox: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Record{}, fmt.Errorf("dispute: commit tx: %w", err)
	}

	return rec, nil
}

// List returns disputes matching the filters. An empty Filters value yields
// the unfiltered administrative view.
func (s *Service) List(ctx context.Context, filters Filters) ([]Record, error) {
	return s.repo.List(ctx, filters)
}

// GetByID fetches a single dispute.
func (s *Service) GetByID(ctx context.Context, id string) (Record, error) {
	return s.repo.GetByID(ctx, id)
}
