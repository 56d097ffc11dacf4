package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// ErrWeakPassword signals password doesn't meet requirements.
var ErrWeakPassword = errors.New("auth: password must be at least 6 characters")

// Service handles identity business logic.
type Service struct {
	repo      Repository
	jwtSecret []byte
}

// NewService creates a new identity service.
func NewService(repo Repository, jwtSecret string) *Service {
	return &Service{
		repo:      repo,
		jwtSecret: []byte(jwtSecret),
	}
}

// Register creates a new user account.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	if len(req.Password) < 6 {
		return nil, ErrWeakPassword
	}
	if req.Username == "" || req.FullName == "" || req.NationalID == "" {
		return nil, fmt.Errorf("auth: username, full_name and national_id are required")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}

	role := Role(strings.TrimSpace(string(req.Role)))
	if role == "" {
		role = RoleCitizen
	}
	if !isValidRole(role) {
		return nil, fmt.Errorf("auth: invalid role %q", role)
	}

	user, err := s.repo.CreateUser(ctx, CreateUserParams{
		Username:             req.Username,
		PasswordHash:         string(passwordHash),
		FullName:             req.FullName,
		NationalID:           req.NationalID,
		FamilyCardNumber:     req.FamilyCardNumber,
		HomeAddress:          req.HomeAddress,
		NeighborhoodUnitCode: req.NeighborhoodUnitCode,
		Role:                 role,
	})
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// Authenticate verifies a username/password pair. It returns (nil, nil) on any
// mismatch: unknown username, wrong password, or empty credentials. The cases
// are deliberately indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	if username == "" || password == "" {
		return nil, nil
	}

	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil
	}

	return &user, nil
}

// Update applies a partial profile update on behalf of an admin.
func (s *Service) Update(ctx context.Context, params UpdateParams) (*User, error) {
	if params.ID == "" {
		return nil, fmt.Errorf("auth: missing user id")
	}
	user, err := s.repo.UpdateUser(ctx, params)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByID retrieves user information by ID.
func (s *Service) GetUserByID(ctx context.Context, userID string) (*User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// IssueToken creates a JWT token for the user.
func (s *Service) IssueToken(user *User) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"role":    user.Role,
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// VerifyToken validates a JWT token and returns the user ID and role.
func (s *Service) VerifyToken(tokenString string) (string, Role, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		return "", "", fmt.Errorf("auth: parse token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		userID, ok := claims["user_id"].(string)
		if !ok {
			return "", "", fmt.Errorf("auth: invalid user_id in token")
		}
		roleStr, ok := claims["role"].(string)
		if !ok {
			return "", "", fmt.Errorf("auth: invalid role in token")
		}
		role := Role(roleStr)
		if !isValidRole(role) {
			return "", "", fmt.Errorf("auth: invalid role %q in token", roleStr)
		}
		return userID, role, nil
	}

	return "", "", fmt.Errorf("auth: invalid token")
}

func isValidRole(role Role) bool {
	switch role {
	case RoleCitizen, RoleAdmin:
		return true
	default:
		return false
	}
}
