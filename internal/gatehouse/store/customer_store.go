package store

import (
	"context"
	"errors"
	"time"

	"github.com/gatehouse-systems/gatehouse/internal/gatehouse/types"
)

var (
	// ErrCustomerNotFound is returned when no identifier variant matches.
	ErrCustomerNotFound = errors.New("customer not found")
)

// Customer is the identity record the access flow resolves a scan against.
// Customers are created by the registration flow; the core only reads them
// and rolls up visit totals when a session completes.
type Customer struct {
	CustomerKey     string
	DisplayName     string
	Membership      types.MembershipStatus
	VisitCount      int64
	TotalSpentCents int64
	CreatedAt       time.Time
}

// CustomerStore resolves customers through the identifier lookup index and
// applies visit roll-ups.
type CustomerStore interface {
	// FindByIdentifier resolves exactly one identifier encoding against the
	// lookup index. Callers try encodings in variant order; the store itself
	// performs no normalization. Returns ErrCustomerNotFound on a miss.
	FindByIdentifier(ctx context.Context, identifier string) (Customer, error)

	// Get returns the customer for a key. Returns ErrCustomerNotFound when
	// absent.
	Get(ctx context.Context, customerKey string) (Customer, error)

	// ApplyVisit increments the visit counter and adds spentCents to the
	// running total. Missing customers are a no-op; the session is already
	// gone by the time this runs and the roll-up must not fail an exit.
	ApplyVisit(ctx context.Context, customerKey string, spentCents int64) error
}
