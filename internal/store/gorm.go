package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// gormStore implements Store on top of a *gorm.DB, shared by the SQLite and
// PostgreSQL backends wired up in db.go.
type gormStore struct {
	db *gorm.DB
}

// New wraps an already-connected, already-migrated *gorm.DB as a Store.
func New(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(tx)
	})
}

// dbOf resolves the handle a Store method should run against: tx when the
// caller supplied one (from WithinTx), otherwise the Store's own connection
// pool for one-off, non-transactional calls.
func (s *gormStore) dbOf(ctx context.Context, tx Tx) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return s.db.WithContext(ctx)
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflict
	default:
		return err
	}
}

func (s *gormStore) GetClient(ctx context.Context, tx Tx, id string) (Client, error) {
	var c Client
	err := s.dbOf(ctx, tx).First(&c, "id = ?", id).Error
	return c, mapErr(err)
}

func (s *gormStore) CreateClient(ctx context.Context, tx Tx, c Client) error {
	return mapErr(s.dbOf(ctx, tx).Create(&c).Error)
}

func (s *gormStore) UpdateClient(ctx context.Context, tx Tx, c Client) error {
	return mapErr(s.dbOf(ctx, tx).Save(&c).Error)
}

func (s *gormStore) ConnectClient(ctx context.Context, tx Tx, id, addr string) (bool, error) {
	res := s.dbOf(ctx, tx).Model(&Client{}).
		Where("id = ? AND connected = ?", id, false).
		Updates(map[string]any{
			"connected":   true,
			"address":     addr,
			"last_online": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, mapErr(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *gormStore) DeleteClient(ctx context.Context, tx Tx, id string) error {
	return mapErr(s.dbOf(ctx, tx).Delete(&Client{}, "id = ?", id).Error)
}

func (s *gormStore) ListClients(ctx context.Context, tx Tx, opts ListOptions) ([]Client, error) {
	var cs []Client
	q := s.dbOf(ctx, tx).Order("created_at asc")
	q = applyOpts(q, opts)
	err := q.Find(&cs).Error
	return cs, mapErr(err)
}

func (s *gormStore) ListStaleClients(ctx context.Context, tx Tx, ttl time.Duration) ([]Client, error) {
	var cs []Client
	cutoff := time.Now().UTC().Add(-ttl)
	err := s.dbOf(ctx, tx).
		Where("connected = ? AND last_online < ?", false, cutoff).
		Find(&cs).Error
	return cs, mapErr(err)
}

func (s *gormStore) DisconnectAllClients(ctx context.Context, tx Tx) error {
	return mapErr(s.dbOf(ctx, tx).Model(&Client{}).
		Where("connected = ?", true).
		Updates(map[string]any{"connected": false, "address": ""}).Error)
}

func (s *gormStore) GetAction(ctx context.Context, tx Tx, id string) (Action, error) {
	var a Action
	err := s.dbOf(ctx, tx).First(&a, "id = ?", id).Error
	return a, mapErr(err)
}

func (s *gormStore) CreateAction(ctx context.Context, tx Tx, a Action) error {
	return mapErr(s.dbOf(ctx, tx).Create(&a).Error)
}

func (s *gormStore) UpdateAction(ctx context.Context, tx Tx, a Action) error {
	return mapErr(s.dbOf(ctx, tx).Save(&a).Error)
}

func (s *gormStore) DeleteAction(ctx context.Context, tx Tx, id string) error {
	return mapErr(s.dbOf(ctx, tx).Delete(&Action{}, "id = ?", id).Error)
}

// GetNextAction returns the oldest Pending action for clientID, locked
// against other Dispatchers racing for the same client's queue head.
// SKIP LOCKED is requested on every backend; SQLite ignores locking clauses
// entirely and instead relies on the single-writer connection pool
// configured in db.go to serialize callers.
func (s *gormStore) GetNextAction(ctx context.Context, tx Tx, clientID string) (Action, error) {
	var a Action
	err := s.dbOf(ctx, tx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("client_id = ? AND state = ?", clientID, StatePending).
		Order("created_at asc").
		First(&a).Error
	return a, mapErr(err)
}

func (s *gormStore) ListActionsByState(ctx context.Context, tx Tx, state ActionState, opts ListOptions) ([]Action, error) {
	var as []Action
	q := s.dbOf(ctx, tx).Where("state = ?", state).Order("created_at asc")
	q = applyOpts(q, opts)
	err := q.Find(&as).Error
	return as, mapErr(err)
}

func (s *gormStore) GetPingCommand(ctx context.Context, tx Tx, actionID string) (PingCommand, error) {
	var c PingCommand
	err := s.dbOf(ctx, tx).First(&c, "id = ?", actionID).Error
	return c, mapErr(err)
}

func (s *gormStore) CreatePingCommand(ctx context.Context, tx Tx, c PingCommand) error {
	return mapErr(s.dbOf(ctx, tx).Create(&c).Error)
}

func (s *gormStore) DeletePingCommand(ctx context.Context, tx Tx, actionID string) error {
	return mapErr(s.dbOf(ctx, tx).Delete(&PingCommand{}, "id = ?", actionID).Error)
}

func (s *gormStore) GetShellCommand(ctx context.Context, tx Tx, actionID string) (ShellCommand, error) {
	var c ShellCommand
	err := s.dbOf(ctx, tx).First(&c, "id = ?", actionID).Error
	return c, mapErr(err)
}

func (s *gormStore) CreateShellCommand(ctx context.Context, tx Tx, c ShellCommand) error {
	return mapErr(s.dbOf(ctx, tx).Create(&c).Error)
}

func (s *gormStore) DeleteShellCommand(ctx context.Context, tx Tx, actionID string) error {
	return mapErr(s.dbOf(ctx, tx).Delete(&ShellCommand{}, "id = ?", actionID).Error)
}

func applyOpts(q *gorm.DB, opts ListOptions) *gorm.DB {
	if opts.Limit > 0 {
		q = q.Limit(int(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Offset(int(opts.Offset))
	}
	return q
}
