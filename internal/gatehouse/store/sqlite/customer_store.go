package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/gatehouse-systems/gatehouse/internal/db"
	"github.com/gatehouse-systems/gatehouse/internal/gatehouse/store"
	"github.com/gatehouse-systems/gatehouse/internal/gatehouse/types"
)

type CustomerStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewCustomerStore(db *sql.DB, writer *dbpkg.Worker) *CustomerStore {
	return &CustomerStore{db: db, writer: writer}
}

const customerColumns = `
c.customer_key, c.display_name, c.membership,
c.visit_count, c.total_spent_cents, c.created_at_ms`

func scanCustomer(row *sql.Row) (store.Customer, error) {
	var c store.Customer
	var membership string
	var createdMs int64

	err := row.Scan(
		&c.CustomerKey, &c.DisplayName, &membership,
		&c.VisitCount, &c.TotalSpentCents, &createdMs,
	)
	if err != nil {
		return store.Customer{}, err
	}

	c.Membership = types.MembershipStatus(membership)
	c.CreatedAt = time.UnixMilli(createdMs).UTC()
	return c, nil
}

// FindByIdentifier resolves one identifier encoding through the lookup index.
// The encoding is matched exactly as stored; variant enumeration is the
// caller's job.
func (s *CustomerStore) FindByIdentifier(ctx context.Context, identifier string) (store.Customer, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT `+customerColumns+`
FROM customer_identifiers ci
JOIN customers c ON c.customer_key = ci.customer_key
WHERE ci.identifier = ?;
`, identifier)

	c, err := scanCustomer(row)
	if err == sql.ErrNoRows {
		return store.Customer{}, store.ErrCustomerNotFound
	}
	if err != nil {
		return store.Customer{}, fmt.Errorf("FindByIdentifier query: %w", err)
	}
	return c, nil
}

func (s *CustomerStore) Get(ctx context.Context, customerKey string) (store.Customer, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT `+customerColumns+`
FROM customers c
WHERE c.customer_key = ?;
`, customerKey)

	c, err := scanCustomer(row)
	if err == sql.ErrNoRows {
		return store.Customer{}, store.ErrCustomerNotFound
	}
	if err != nil {
		return store.Customer{}, fmt.Errorf("Get query: %w", err)
	}
	return c, nil
}

// ApplyVisit rolls a completed visit into the customer totals. A missing
// customer row is a no-op: the roll-up runs after the session is already
// gone and must not fail the exit that triggered it.
func (s *CustomerStore) ApplyVisit(ctx context.Context, customerKey string, spentCents int64) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
UPDATE customers
SET visit_count       = visit_count + 1,
    total_spent_cents = total_spent_cents + ?
WHERE customer_key = ?;
`, spentCents, customerKey); err != nil {
			return fmt.Errorf("ApplyVisit update: %w", err)
		}
		return nil
	})
}
