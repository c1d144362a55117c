package interfaces

import (
	"context"
	"time"
)

// IdentityRecord is a government identity record as returned by the external
// KYC collaborator. The raw id number never leaves the process; the
// consumption ledger stores only a peppered hash of it.
type IdentityRecord struct {
	Country     string
	IDNumber    string
	FullName    string
	DateOfBirth time.Time
	PortraitURL string
}

// Over18 reports whether the record holder is at least 18 years old at the
// given instant, by calendar date.
func (r *IdentityRecord) Over18(now time.Time) bool {
	return !r.DateOfBirth.AddDate(18, 0, 0).After(now)
}

// IdentityDirectory looks up identity records by country and id number.
// Returns ErrIdentityNotFound when no record exists.
type IdentityDirectory interface {
	Lookup(ctx context.Context, country, idNumber string) (*IdentityRecord, error)
}
