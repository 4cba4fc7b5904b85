// Package inmemdb is an in-memory store, used by tests and the demo mode of the API.
package inmemdb

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/biilasha/biilasha/core"
	"github.com/biilasha/biilasha/core/fee"
	"github.com/biilasha/biilasha/core/invoice"
	"github.com/biilasha/biilasha/core/payment"
	"github.com/biilasha/biilasha/core/student"
	"github.com/biilasha/biilasha/core/user"
)

// DB holds every table behind a single lock, so joins & cascades see a consistent state.
type DB struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	fees     map[int]fee.Fee
	students map[int]student.Student
	invoices map[int]invoice.Invoice
	payments map[int]payment.Payment
	users    map[int]user.User
	pk       map[string]int
}

func Open() *DB {
	return &DB{
		fees:     make(map[int]fee.Fee),
		students: make(map[int]student.Student),
		invoices: make(map[int]invoice.Invoice),
		payments: make(map[int]payment.Payment),
		users:    make(map[int]user.User),
		pk:       make(map[string]int),
	}
}

// nextID must be called with the write lock held.
func (db *DB) nextID(table string) int {
	db.pk[table]++
	return db.pk[table]
}

type snapshot struct {
	fees     map[int]fee.Fee
	students map[int]student.Student
	invoices map[int]invoice.Invoice
	payments map[int]payment.Payment
	users    map[int]user.User
	pk       map[string]int
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	c := make(map[K]V, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func (db *DB) snapshot() snapshot {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return snapshot{
		fees:     copyMap(db.fees),
		students: copyMap(db.students),
		invoices: copyMap(db.invoices),
		payments: copyMap(db.payments),
		users:    copyMap(db.users),
		pk:       copyMap(db.pk),
	}
}

func (db *DB) restore(s snapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.fees, db.students, db.invoices, db.payments, db.users, db.pk = s.fees, s.students, s.invoices, s.payments, s.users, s.pk
}

// lockWrites takes the write lock and returns its release. Outside a transaction it
// first waits for the running one, so a rollback only ever drops the transaction's own writes.
func (db *DB) lockWrites(exec []core.DBExecutor) func() {
	if len(exec) > 0 {
		if _, ok := exec[0].(txExecutor); ok {
			db.mu.Lock()
			return db.mu.Unlock
		}
	}
	db.txMu.Lock()
	db.mu.Lock()
	return func() {
		db.mu.Unlock()
		db.txMu.Unlock()
	}
}

// txExecutor marks repository calls made from within WithinTx. It runs no SQL.
type txExecutor struct {
	core.DBExecutor
}

// Transactor serializes transactions and restores the tables when one fails.
type Transactor struct {
	db *DB
}

var _ core.Transactor = (*Transactor)(nil)

func NewTransactor(db *DB) *Transactor {
	return &Transactor{db: db}
}

func (t *Transactor) WithinTx(ctx context.Context, fn func(exec core.DBExecutor) error) (err error) {
	t.db.txMu.Lock()
	defer t.db.txMu.Unlock()

	if err = ctx.Err(); err != nil {
		return err
	}
	saved := t.db.snapshot()
	defer func() {
		if p := recover(); p != nil {
			t.db.restore(saved)
			panic(p)
		}
	}()

	if err = fn(txExecutor{}); err != nil {
		t.db.restore(saved)
		return err
	}
	return nil
}

// sortRows sorts rows in place by the known orderings, falling back to defaults.
// compare holds, per field, a three-way comparison of rows[i] & rows[j].
func sortRows(rows interface{}, ordering []core.DBOrdering, compare map[string]func(i, j int) int, defaults ...core.DBOrdering) {
	ords := make([]core.DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		if _, ok := compare[ord.Field]; ok {
			ords = append(ords, ord)
		}
	}
	if len(ords) == 0 {
		ords = defaults
	}

	sort.SliceStable(rows, func(i, j int) bool {
		for _, ord := range ords {
			c := compare[ord.Field](i, j)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

var newestFirst = []core.DBOrdering{{Field: "created_at"}, {Field: "id"}}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareStrings(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func compareDecimals(a, b decimal.Decimal) int {
	return a.Cmp(b)
}

// contains does a case-insensitive substring match on any of the values.
func contains(search string, values ...string) bool {
	search = strings.ToLower(search)
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), search) {
			return true
		}
	}
	return false
}
