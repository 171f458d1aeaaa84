package store

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// ListOptions carries optional pagination for list queries.
type ListOptions struct {
	Limit  int64 // 0 means unlimited
	Offset int64
}

// Tx is the transaction handle every exported Store operation takes, so
// callers can batch writes atomically. It is satisfied by *gorm.DB both in
// its un-transacted and transacted (tx.Begin()) forms.
type Tx = *gorm.DB

// Store is the full transactional CRUD surface over clients, actions, and
// command payload tables. It is the only component that touches the
// database; AgentSession and Dispatcher hold no action cache of their own.
type Store interface {
	// WithinTx runs fn inside a new transaction, committing on nil error and
	// rolling back otherwise. It is the entry point every caller uses instead
	// of reaching for *gorm.DB.Begin directly.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	GetClient(ctx context.Context, tx Tx, id string) (Client, error)
	CreateClient(ctx context.Context, tx Tx, c Client) error
	UpdateClient(ctx context.Context, tx Tx, c Client) error
	// ConnectClient atomically sets Connected=true, LastOnline=now, and
	// Address=addr, but only if the row currently has Connected=false. It
	// reports ok=false (not an error) when another session already won the
	// race — the Go rendering of Design Notes §9's conditional-update advice.
	// It also reports ok=false, not ErrNotFound, when no client has that id.
	ConnectClient(ctx context.Context, tx Tx, id, addr string) (ok bool, err error)
	DeleteClient(ctx context.Context, tx Tx, id string) error
	ListClients(ctx context.Context, tx Tx, opts ListOptions) ([]Client, error)
	// ListStaleClients returns disconnected clients whose LastOnline is
	// older than ttl — the Sweeper's candidate set for deletion. A client
	// that is still Connected is never stale, regardless of LastOnline.
	ListStaleClients(ctx context.Context, tx Tx, ttl time.Duration) ([]Client, error)
	// DisconnectAllClients forces Connected=false, Address="" for every
	// client currently marked connected. Used only by the Sweeper's final
	// shutdown pass.
	DisconnectAllClients(ctx context.Context, tx Tx) error

	GetAction(ctx context.Context, tx Tx, id string) (Action, error)
	CreateAction(ctx context.Context, tx Tx, a Action) error
	UpdateAction(ctx context.Context, tx Tx, a Action) error
	DeleteAction(ctx context.Context, tx Tx, id string) error
	// GetNextAction returns the Pending action for clientID with the
	// smallest CreatedAt, locked against concurrent Dispatchers reading the
	// same client. Returns ErrNotFound if none is pending.
	GetNextAction(ctx context.Context, tx Tx, clientID string) (Action, error)
	ListActionsByState(ctx context.Context, tx Tx, state ActionState, opts ListOptions) ([]Action, error)

	GetPingCommand(ctx context.Context, tx Tx, actionID string) (PingCommand, error)
	CreatePingCommand(ctx context.Context, tx Tx, c PingCommand) error
	DeletePingCommand(ctx context.Context, tx Tx, actionID string) error

	GetShellCommand(ctx context.Context, tx Tx, actionID string) (ShellCommand, error)
	CreateShellCommand(ctx context.Context, tx Tx, c ShellCommand) error
	DeleteShellCommand(ctx context.Context, tx Tx, actionID string) error
}
