// Package memstore is an in-process implementation of every repository.
//
// A single mutex guards all state. Repository calls made outside a
// transaction take it for the duration of the call; Tx.Run takes it once,
// snapshots the maps, and restores the snapshot if fn fails. Calls made
// with the transaction's context run under the already-held lock, so a
// transaction is serializable against everything else.
package memstore

import (
	"context"
	"maps"
	"sync"

	"github.com/dalemusser/studybuddy/internal/app/repo"
	"github.com/dalemusser/studybuddy/internal/domain/models"
)

type pair struct{ a, b string }

// DB holds all in-memory state. Stored values are never mutated in place;
// writers replace them, so a snapshot only needs to copy the maps.
type DB struct {
	mu sync.Mutex

	users       map[string]models.User // by id
	groups      map[string]models.Group
	memberships map[pair]models.Membership // (group, user)
	index       map[string]map[string]bool // user -> group set
	requests    map[string]models.JoinRequest
	invitations map[string]models.Invitation
	discussions map[string]models.Discussion // by group id
	notes       map[pair]models.UserGroupNotes // (user, group)
}

// New returns an empty database.
func New() *DB {
	return &DB{
		users:       map[string]models.User{},
		groups:      map[string]models.Group{},
		memberships: map[pair]models.Membership{},
		index:       map[string]map[string]bool{},
		requests:    map[string]models.JoinRequest{},
		invitations: map[string]models.Invitation{},
		discussions: map[string]models.Discussion{},
		notes:       map[pair]models.UserGroupNotes{},
	}
}

// Backend returns the group-data repositories.
func (db *DB) Backend() repo.Backend {
	return repo.Backend{
		Name:        "memory",
		Groups:      groups{db},
		Memberships: memberships{db},
		Index:       index{db},
		Requests:    requests{db},
		Invitations: invitations{db},
		Discussions: discussions{db},
		Notes:       notes{db},
		Tx:          tx{db},
		Ping:        func(context.Context) error { return nil },
	}
}

// Users returns the user repository.
func (db *DB) Users() *Users { return &Users{db: db} }

type txKey struct{}

// lock acquires the state lock unless ctx belongs to a transaction on db
// that already holds it.
func (db *DB) lock(ctx context.Context) func() {
	if owner, _ := ctx.Value(txKey{}).(*DB); owner == db {
		return func() {}
	}
	db.mu.Lock()
	return db.mu.Unlock
}

type snapshot struct {
	users       map[string]models.User
	groups      map[string]models.Group
	memberships map[pair]models.Membership
	index       map[string]map[string]bool
	requests    map[string]models.JoinRequest
	invitations map[string]models.Invitation
	discussions map[string]models.Discussion
	notes       map[pair]models.UserGroupNotes
}

func (db *DB) snapshot() snapshot {
	idx := make(map[string]map[string]bool, len(db.index))
	for u, set := range db.index {
		idx[u] = maps.Clone(set)
	}
	return snapshot{
		users:       maps.Clone(db.users),
		groups:      maps.Clone(db.groups),
		memberships: maps.Clone(db.memberships),
		index:       idx,
		requests:    maps.Clone(db.requests),
		invitations: maps.Clone(db.invitations),
		discussions: maps.Clone(db.discussions),
		notes:       maps.Clone(db.notes),
	}
}

func (db *DB) restore(s snapshot) {
	db.users = s.users
	db.groups = s.groups
	db.memberships = s.memberships
	db.index = s.index
	db.requests = s.requests
	db.invitations = s.invitations
	db.discussions = s.discussions
	db.notes = s.notes
}

type tx struct{ db *DB }

func (t tx) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if owner, _ := ctx.Value(txKey{}).(*DB); owner == t.db {
		// Nested: join the outer transaction.
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	snap := t.db.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, t.db)); err != nil {
		t.db.restore(snap)
		return err
	}
	return nil
}
