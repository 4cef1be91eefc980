package memory

import (
	"context"
	"sync"

	"github.com/gatehouse-systems/gatehouse/internal/gatehouse/store"
)

// CustomerStore is an in-memory customer directory keyed by identifier
// encodings, for tests and dev environments.
type CustomerStore struct {
	mu          sync.RWMutex
	customers   map[string]store.Customer // customer_key -> customer
	identifiers map[string]string         // identifier (as stored) -> customer_key
}

func NewCustomerStore() *CustomerStore {
	return &CustomerStore{
		customers:   make(map[string]store.Customer),
		identifiers: make(map[string]string),
	}
}

// AddCustomer registers a customer reachable through the given identifier
// encodings, exactly as written. Test/dev seeding helper.
func (s *CustomerStore) AddCustomer(c store.Customer, identifiers ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[c.CustomerKey] = c
	for _, id := range identifiers {
		s.identifiers[id] = c.CustomerKey
	}
}

func (s *CustomerStore) FindByIdentifier(_ context.Context, identifier string) (store.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.identifiers[identifier]
	if !ok {
		return store.Customer{}, store.ErrCustomerNotFound
	}
	c, ok := s.customers[key]
	if !ok {
		return store.Customer{}, store.ErrCustomerNotFound
	}
	return c, nil
}

func (s *CustomerStore) Get(_ context.Context, customerKey string) (store.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[customerKey]
	if !ok {
		return store.Customer{}, store.ErrCustomerNotFound
	}
	return c, nil
}

func (s *CustomerStore) ApplyVisit(_ context.Context, customerKey string, spentCents int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[customerKey]
	if !ok {
		return nil
	}
	c.VisitCount++
	c.TotalSpentCents += spentCents
	s.customers[customerKey] = c
	return nil
}
