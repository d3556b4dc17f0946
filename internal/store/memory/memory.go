// Package memory is the in-memory store backend: the default for local
// runs and the backend the tests use.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"bachat/internal/core"
	"bachat/internal/store"
)

type Store struct {
	store.Hub

	mu       sync.Mutex
	entries  map[store.Collection][]core.Transaction
	members  []core.Member
	settings *core.Settings
	admins   []core.Admin
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		entries: map[store.Collection][]core.Transaction{
			store.Transactions:      nil,
			store.Loans:             nil,
			store.GroupTransactions: nil,
		},
	}
}

func (s *Store) entryCollection(col store.Collection) ([]core.Transaction, error) {
	switch col {
	case store.Transactions, store.Loans, store.GroupTransactions:
		return s.entries[col], nil
	}
	return nil, fmt.Errorf("%w: %s", store.ErrUnknownCollection, col)
}

// ListEntries returns entries in insertion order.
func (s *Store) ListEntries(_ context.Context, col store.Collection) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := s.entryCollection(col)
	if err != nil {
		return nil, err
	}
	out := make([]core.Transaction, len(items))
	copy(out, items)
	return out, nil
}

func (s *Store) AddEntry(_ context.Context, col store.Collection, tx core.Transaction) (string, error) {
	s.mu.Lock()
	if _, err := s.entryCollection(col); err != nil {
		s.mu.Unlock()
		return "", err
	}
	tx.ID = uuid.NewString()
	s.entries[col] = append(s.entries[col], tx)
	s.mu.Unlock()

	s.Notify(col)
	return tx.ID, nil
}

func (s *Store) UpdateEntry(_ context.Context, col store.Collection, id string, upd store.EntryUpdate) error {
	s.mu.Lock()
	items, err := s.entryCollection(col)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	found := false
	for i := range items {
		if items[i].ID != id {
			continue
		}
		if upd.Amount != nil {
			s.entries[col][i].Amount = *upd.Amount
		}
		if upd.Note != nil {
			s.entries[col][i].Note = *upd.Note
		}
		found = true
		break
	}
	s.mu.Unlock()

	if !found {
		return store.ErrNotFound
	}
	s.Notify(col)
	return nil
}

func (s *Store) DeleteEntry(_ context.Context, col store.Collection, id string) error {
	s.mu.Lock()
	items, err := s.entryCollection(col)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	found := false
	for i := range items {
		if items[i].ID == id {
			s.entries[col] = append(items[:i:i], items[i+1:]...)
			found = true
			break
		}
	}
	s.mu.Unlock()

	if !found {
		return store.ErrNotFound
	}
	s.Notify(col)
	return nil
}

func (s *Store) ListMembers(_ context.Context) ([]core.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Member, len(s.members))
	copy(out, s.members)
	return out, nil
}

func (s *Store) AddMember(_ context.Context, m core.Member) (string, error) {
	s.mu.Lock()
	m.ID = uuid.NewString()
	s.members = append(s.members, m)
	s.mu.Unlock()

	s.Notify(store.Members)
	return m.ID, nil
}

func (s *Store) DeleteMember(_ context.Context, id string) error {
	s.mu.Lock()
	found := false
	for i := range s.members {
		if s.members[i].ID == id {
			s.members = append(s.members[:i:i], s.members[i+1:]...)
			found = true
			break
		}
	}
	s.mu.Unlock()

	if !found {
		return store.ErrNotFound
	}
	s.Notify(store.Members)
	return nil
}

func (s *Store) GetSettings(_ context.Context) (core.Settings, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings == nil {
		return core.Settings{}, false, nil
	}
	return *s.settings, true, nil
}

func (s *Store) PutSettings(_ context.Context, settings core.Settings) error {
	s.mu.Lock()
	if settings.ID == "" {
		settings.ID = uuid.NewString()
	}
	s.settings = &settings
	s.mu.Unlock()

	s.Notify(store.Settings)
	return nil
}

func (s *Store) ListAdmins(_ context.Context) ([]core.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Admin, len(s.admins))
	copy(out, s.admins)
	return out, nil
}

func (s *Store) AddAdmin(_ context.Context, a core.Admin) (string, error) {
	s.mu.Lock()
	a.ID = uuid.NewString()
	s.admins = append(s.admins, a)
	s.mu.Unlock()

	s.Notify(store.Admins)
	return a.ID, nil
}

func (s *Store) DeleteAdmin(_ context.Context, id string) error {
	s.mu.Lock()
	found := false
	for i := range s.admins {
		if s.admins[i].ID == id {
			s.admins = append(s.admins[:i:i], s.admins[i+1:]...)
			found = true
			break
		}
	}
	s.mu.Unlock()

	if !found {
		return store.ErrNotFound
	}
	s.Notify(store.Admins)
	return nil
}

func (s *Store) Close() error { return nil }
