package auth

import "time"

type Role string

const (
	RoleCitizen Role = "citizen"
	RoleAdmin   Role = "admin"
)

// User is the domain representation of a registered resident or kelurahan admin.
// It mirrors the users table and should not include JSON annotations so it
// can be reused by different presentation layers.
type User struct {
	ID                   string
	Username             string
	PasswordHash         string
	FullName             string
	NationalID           string
	FamilyCardNumber     string
	HomeAddress          string
	NeighborhoodUnitCode string
	Role                 Role
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// RegisterRequest contains user registration data supplied by callers.
type RegisterRequest struct {
	Username             string `json:"username"`
	Password             string `json:"password"`
	FullName             string `json:"full_name"`
	NationalID           string `json:"national_id"`
	FamilyCardNumber     string `json:"family_card_number"`
	HomeAddress          string `json:"home_address"`
	NeighborhoodUnitCode string `json:"neighborhood_unit_code"`
	Role                 Role   `json:"role"`
}

// UpdateParams carries the admin-editable profile fields. A nil pointer means
// the field was omitted and the stored value is preserved. ID, username and
// role are immutable after registration.
type UpdateParams struct {
	ID                   string
	FullName             *string
	NationalID           *string
	FamilyCardNumber     *string
	HomeAddress          *string
	NeighborhoodUnitCode *string
}
