package payment

import "time"

// Record mirrors the payments table. Amount travels as the canonical string
// form of a NUMERIC(14,2) column so no float rounding ever touches it.
type Record struct {
	ID                string
	CitizenID         string
	Amount            string
	PaymentDate       time.Time
	PeriodMonth       int
	PeriodYear        int
	ReceiptPhotoURL   *string
	RecordedByAdminID string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// OptionalString distinguishes "field omitted" from "field explicitly set to
// NULL". Set=false preserves the stored value; Set=true with a nil Value
// clears the column.
type OptionalString struct {
	Set   bool
	Value *string
}

// Null returns an OptionalString that clears the column.
func Null() OptionalString {
	return OptionalString{Set: true}
}

// String returns an OptionalString carrying a value.
func String(v string) OptionalString {
	return OptionalString{Set: true, Value: &v}
}

type CreateParams struct {
	CitizenID       string
	Amount          string
	PaymentDate     time.Time
	PeriodMonth     int
	PeriodYear      int
	ReceiptPhotoURL *string
	AdminID         string
}

// UpdateParams applies partial-update semantics: nil pointers are omitted
// fields. ReceiptPhotoURL is three-way optional. AdminID identifies the
// acting admin; citizen and recording-admin linkage never change.
type UpdateParams struct {
	ID              string
	AdminID         string
	Amount          *string
	PaymentDate     *time.Time
	PeriodMonth     *int
	PeriodYear      *int
	ReceiptPhotoURL OptionalString
}

// Filters narrows listings. Zero values mean the conjunct is skipped, so an
// empty Filters lists every payment.
type Filters struct {
	CitizenID string
	Year      int
	Month     int
}
