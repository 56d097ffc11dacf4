package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestService_RegisterAndAuthenticate(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, "test-secret")

	req := RegisterRequest{
		Username:             "budi",
		Password:             "rahasia1",
		FullName:             "Budi Santoso",
		NationalID:           "3171234567890001",
		FamilyCardNumber:     "3171234567890002",
		HomeAddress:          "Jl. Melati No. 5",
		NeighborhoodUnitCode: "003",
	}

	ctx := context.Background()
	user, err := svc.Register(ctx, req)
	if err != nil {
		t.Fatalf("register: unexpected error: %v", err)
	}

	if user.Username != req.Username {
		t.Fatalf("expected username %q got %q", req.Username, user.Username)
	}
	if user.Role != RoleCitizen {
		t.Fatalf("register: expected default role %s got %s", RoleCitizen, user.Role)
	}
	if user.PasswordHash == req.Password {
		t.Fatal("register: password stored in plain text")
	}

	got, err := svc.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		t.Fatalf("authenticate: unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("authenticate: expected user, got nil")
	}
	if got.ID != user.ID {
		t.Fatalf("authenticate: expected user id %q got %q", user.ID, got.ID)
	}

	token, err := svc.IssueToken(got)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	tokenUserID, tokenRole, err := svc.VerifyToken(token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if tokenUserID != user.ID {
		t.Fatalf("verify token: expected %q got %q", user.ID, tokenUserID)
	}
	if tokenRole != RoleCitizen {
		t.Fatalf("verify token: expected role %s got %s", RoleCitizen, tokenRole)
	}
}

func TestService_AuthenticateMismatches(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, "test-secret")
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterRequest{
		Username:   "alice",
		Password:   "supersafe",
		FullName:   "Alice Warga",
		NationalID: "3171234567890010",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	cases := []struct {
		name     string
		username string
		password string
	}{
		{"unknown username", "nobody", "supersafe"},
		{"wrong password", "alice", "wrongpass"},
		{"empty username", "", "supersafe"},
		{"empty password", "alice", ""},
		{"case sensitive username", "Alice", "supersafe"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			user, err := svc.Authenticate(ctx, tc.username, tc.password)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if user != nil {
				t.Fatalf("expected nil user, got %+v", user)
			}
		})
	}
}

func TestService_RegisterValidation(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, "test-secret")

	_, err := svc.Register(context.Background(), RegisterRequest{
		Username:   "alice",
		Password:   "short",
		FullName:   "Alice Warga",
		NationalID: "3171234567890010",
	})
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}

	if _, err := svc.Register(context.Background(), RegisterRequest{
		Username:   "",
		Password:   "strongpassword",
		FullName:   "",
		NationalID: "",
	}); err == nil {
		t.Fatal("expected validation error for missing fields")
	}

	if _, err := svc.Register(context.Background(), RegisterRequest{
		Username:   "bob",
		Password:   "strongpassword",
		FullName:   "Bob",
		NationalID: "3171234567890011",
		Role:       Role("superuser"),
	}); err == nil {
		t.Fatal("expected error for invalid role")
	}
}

func TestService_DuplicateUsername(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, "test-secret")

	req := RegisterRequest{
		Username:   "alice",
		Password:   "strongpassword",
		FullName:   "Alice Warga",
		NationalID: "3171234567890010",
	}
	if _, err := svc.Register(context.Background(), req); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	req.NationalID = "3171234567890099"
	if _, err := svc.Register(context.Background(), req); !errors.Is(err, ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}
}

func TestService_DuplicateNationalID(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, "test-secret")

	if _, err := svc.Register(context.Background(), RegisterRequest{
		Username:   "alice",
		Password:   "strongpassword",
		FullName:   "Alice Warga",
		NationalID: "1111222233334444",
	}); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	_, err := svc.Register(context.Background(), RegisterRequest{
		Username:   "bob",
		Password:   "strongpassword",
		FullName:   "Bob Warga",
		NationalID: "1111222233334444",
	})
	if !errors.Is(err, ErrDuplicateNationalID) {
		t.Fatalf("expected ErrDuplicateNationalID, got %v", err)
	}
}

func TestService_UpdatePartial(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo, "test-secret")
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterRequest{
		Username:             "alice",
		Password:             "strongpassword",
		FullName:             "Alice Warga",
		NationalID:           "3171234567890010",
		HomeAddress:          "Jl. Mawar No. 1",
		NeighborhoodUnitCode: "007",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	newAddress := "Jl. Anggrek No. 2"
	updated, err := svc.Update(ctx, UpdateParams{ID: user.ID, HomeAddress: &newAddress})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.HomeAddress != newAddress {
		t.Fatalf("expected address %q got %q", newAddress, updated.HomeAddress)
	}
	if updated.FullName != user.FullName || updated.NationalID != user.NationalID || updated.NeighborhoodUnitCode != user.NeighborhoodUnitCode {
		t.Fatalf("omitted fields were altered: %+v", updated)
	}
	if updated.Username != user.Username || updated.Role != user.Role {
		t.Fatal("immutable fields were altered")
	}

	missing := "Someone"
	if _, err := svc.Update(ctx, UpdateParams{ID: "no-such-user", FullName: &missing}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

type fakeRepository struct {
	usersByName map[string]User
	usersByID   map[string]User
	nextID      int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		usersByName: make(map[string]User),
		usersByID:   make(map[string]User),
		nextID:      1,
	}
}

func (f *fakeRepository) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	if _, exists := f.usersByName[params.Username]; exists {
		return User{}, ErrDuplicateUsername
	}
	for _, existing := range f.usersByID {
		if existing.NationalID == params.NationalID {
			return User{}, ErrDuplicateNationalID
		}
	}

	id := fmt.Sprintf("user-%d", f.nextID)
	f.nextID++

	user := User{
		ID:                   id,
		Username:             params.Username,
		PasswordHash:         params.PasswordHash,
		FullName:             params.FullName,
		NationalID:           params.NationalID,
		FamilyCardNumber:     params.FamilyCardNumber,
		HomeAddress:          params.HomeAddress,
		NeighborhoodUnitCode: params.NeighborhoodUnitCode,
		Role:                 params.Role,
		CreatedAt:            time.Now().UTC(),
		UpdatedAt:            time.Now().UTC(),
	}

	f.usersByName[user.Username] = user
	f.usersByID[user.ID] = user

	return user, nil
}

func (f *fakeRepository) GetUserByUsername(ctx context.Context, username string) (User, error) {
	user, ok := f.usersByName[username]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (f *fakeRepository) GetUserByID(ctx context.Context, userID string) (User, error) {
	user, ok := f.usersByID[userID]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (f *fakeRepository) UpdateUser(ctx context.Context, params UpdateParams) (User, error) {
	user, ok := f.usersByID[params.ID]
	if !ok {
		return User{}, ErrUserNotFound
	}

	if params.NationalID != nil {
		for id, existing := range f.usersByID {
			if id != params.ID && existing.NationalID == *params.NationalID {
				return User{}, ErrDuplicateNationalID
			}
		}
		user.NationalID = *params.NationalID
	}
	if params.FullName != nil {
		user.FullName = *params.FullName
	}
	if params.FamilyCardNumber != nil {
		user.FamilyCardNumber = *params.FamilyCardNumber
	}
	if params.HomeAddress != nil {
		user.HomeAddress = *params.HomeAddress
	}
	if params.NeighborhoodUnitCode != nil {
		user.NeighborhoodUnitCode = *params.NeighborhoodUnitCode
	}
	user.UpdatedAt = time.Now().UTC()

	f.usersByName[user.Username] = user
	f.usersByID[user.ID] = user
	return user, nil
}
