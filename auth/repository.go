package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrUserNotFound signals that the user does not exist.
	ErrUserNotFound = errors.New("auth: user not found")
	// ErrDuplicateUsername signals that the username is already registered.
	ErrDuplicateUsername = errors.New("auth: username already exists")
	// ErrDuplicateNationalID signals that the NIK is already registered.
	ErrDuplicateNationalID = errors.New("auth: national id already exists")
)

// Repository handles data access for the identity store.
type Repository interface {
	CreateUser(ctx context.Context, params CreateUserParams) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	GetUserByID(ctx context.Context, userID string) (User, error)
	UpdateUser(ctx context.Context, params UpdateParams) (User, error)
}

// CreateUserParams contains write parameters for creating users.
type CreateUserParams struct {
	Username             string
	PasswordHash         string
	FullName             string
	NationalID           string
	FamilyCardNumber     string
	HomeAddress          string
	NeighborhoodUnitCode string
	Role                 Role
}

const userColumns = `id, username, password_hash, full_name, national_id, family_card_number, home_address, neighborhood_unit_code, role, created_at, updated_at`

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL-backed identity repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// CreateUser inserts a new user with hashed password.
func (r *PGRepository) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	insertSQL := fmt.Sprintf(`
		INSERT INTO users (username, password_hash, full_name, national_id, family_card_number, home_address, neighborhood_unit_code, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING %s
	`, userColumns)

	user, err := scanUser(r.pool.QueryRow(ctx, insertSQL,
		params.Username,
		params.PasswordHash,
		params.FullName,
		params.NationalID,
		params.FamilyCardNumber,
		params.HomeAddress,
		params.NeighborhoodUnitCode,
		params.Role,
	))
	if err != nil {
		if conflict := mapUniqueViolation(err); conflict != nil {
			return User{}, conflict
		}
		return User{}, fmt.Errorf("auth: create user: %w", err)
	}

	return user, nil
}

// GetUserByUsername retrieves a user by exact username match.
func (r *PGRepository) GetUserByUsername(ctx context.Context, username string) (User, error) {
	selectSQL := fmt.Sprintf(`SELECT %s FROM users WHERE username = $1`, userColumns)

	user, err := scanUser(r.pool.QueryRow(ctx, selectSQL, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("auth: get user by username: %w", err)
	}

	return user, nil
}

// GetUserByID retrieves a user by ID.
func (r *PGRepository) GetUserByID(ctx context.Context, userID string) (User, error) {
	selectSQL := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)

	user, err := scanUser(r.pool.QueryRow(ctx, selectSQL, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("auth: get user by id: %w", err)
	}

	return user, nil
}

// UpdateUser overwrites only the fields present in params. Absent fields keep
// their stored value; updated_at is always refreshed.
func (r *PGRepository) UpdateUser(ctx context.Context, params UpdateParams) (User, error) {
	set := []string{"updated_at = now()"}
	args := []any{params.ID}

	appendSet := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, *value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	appendSet("full_name", params.FullName)
	appendSet("national_id", params.NationalID)
	appendSet("family_card_number", params.FamilyCardNumber)
	appendSet("home_address", params.HomeAddress)
	appendSet("neighborhood_unit_code", params.NeighborhoodUnitCode)

	updateSQL := fmt.Sprintf(`UPDATE users SET %s WHERE id = $1 RETURNING %s`,
		strings.Join(set, ", "), userColumns)

	user, err := scanUser(r.pool.QueryRow(ctx, updateSQL, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		if conflict := mapUniqueViolation(err); conflict != nil {
			return User{}, conflict
		}
		return User{}, fmt.Errorf("auth: update user: %w", err)
	}

	return user, nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return nil
	}
	if strings.Contains(pgErr.ConstraintName, "national_id") {
		return ErrDuplicateNationalID
	}
	return ErrDuplicateUsername
}

func scanUser(row pgx.Row) (User, error) {
	var user User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.FullName,
		&user.NationalID,
		&user.FamilyCardNumber,
		&user.HomeAddress,
		&user.NeighborhoodUnitCode,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return User{}, err
	}
	return user, nil
}
