// Package store defines the document-store capability consumed by the
// rest of the system: per-collection list/add/update/delete plus change
// subscription. The accrual engine and services never import a concrete
// backend; memory and sqlite implementations live in subpackages.
package store

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"bachat/internal/core"
)

// Collections mirroring the original document layout. Transactions holds
// savings entries, Loans loan entries, GroupTransactions group cash.
const (
	Members           Collection = "members"
	Transactions      Collection = "transactions"
	Loans             Collection = "loans"
	GroupTransactions Collection = "groupTransactions"
	Settings          Collection = "settings"
	Admins            Collection = "admins"
)

type Collection string

var (
	ErrNotFound = errors.New("record not found")
	// ErrStorage wraps backend failures (I/O, SQL, permissions). The
	// engine performs no retries; retrying is a caller concern.
	ErrStorage = errors.New("storage failure")

	ErrUnknownCollection = errors.New("unknown collection")
)

// EntryCollection reports the ledger entry collection for a ledger.
func EntryCollection(l core.Ledger) (Collection, bool) {
	switch l {
	case core.LedgerSavings:
		return Transactions, true
	case core.LedgerLoan:
		return Loans, true
	case core.LedgerGroup:
		return GroupTransactions, true
	}
	return "", false
}

// EntryUpdate is a partial update of a ledger entry. Nil fields are left
// untouched.
type EntryUpdate struct {
	Amount *decimal.Decimal
	Note   *string
}

// Entries is the transaction side of the document store. List order is
// the order entries were added; the group cash ledger depends on it.
type Entries interface {
	ListEntries(ctx context.Context, col Collection) ([]core.Transaction, error)
	AddEntry(ctx context.Context, col Collection, tx core.Transaction) (string, error)
	UpdateEntry(ctx context.Context, col Collection, id string, upd EntryUpdate) error
	DeleteEntry(ctx context.Context, col Collection, id string) error
}

type MemberStore interface {
	ListMembers(ctx context.Context) ([]core.Member, error)
	AddMember(ctx context.Context, m core.Member) (string, error)
	DeleteMember(ctx context.Context, id string) error
}

type SettingsStore interface {
	// GetSettings returns the settings document and whether one exists.
	GetSettings(ctx context.Context) (core.Settings, bool, error)
	PutSettings(ctx context.Context, s core.Settings) error
}

type AdminStore interface {
	ListAdmins(ctx context.Context) ([]core.Admin, error)
	AddAdmin(ctx context.Context, a core.Admin) (string, error)
	DeleteAdmin(ctx context.Context, id string) error
}

// Subscriber delivers change notifications: fn runs after every mutation
// of the collection, in the mutating goroutine. Callers recompute their
// derived state from a fresh List; no change payload is carried.
type Subscriber interface {
	Subscribe(col Collection, fn func()) (cancel func())
}

// Store is the full capability set a backend provides.
type Store interface {
	Entries
	MemberStore
	SettingsStore
	AdminStore
	Subscriber
	Close() error
}

// Hub is the in-process change notifier shared by backends. Both bundled
// backends are single-writer, so firing subscribers from the mutating
// goroutine is sufficient.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[Collection]map[int]func()
}

func (h *Hub) Subscribe(col Collection, fn func()) (cancel func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs == nil {
		h.subs = make(map[Collection]map[int]func())
	}
	if h.subs[col] == nil {
		h.subs[col] = make(map[int]func())
	}
	id := h.nextID
	h.nextID++
	h.subs[col][id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs[col], id)
	}
}

// Notify fires every subscriber of the collection.
func (h *Hub) Notify(col Collection) {
	h.mu.Lock()
	fns := make([]func(), 0, len(h.subs[col]))
	for _, fn := range h.subs[col] {
		fns = append(fns, fn)
	}
	h.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
