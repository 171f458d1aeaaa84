// Package store owns the durable state of the coordinator: clients, actions,
// and the per-command-kind payload tables. All other components reach the
// database only through this package.
package store

import (
	"time"

	"github.com/google/uuid"
)

// Client is a registered agent. At most one live session may hold
// Connected=true for a given ID at any instant — enforced by ConnectClient's
// conditional update, not by application-level locking.
type Client struct {
	ID         string    `gorm:"type:text;primaryKey"`
	Address    string    `gorm:"type:text"`
	Connected  bool      `gorm:"not null;default:false"`
	LastOnline time.Time `gorm:"not null;index"`
	CreatedAt  time.Time `gorm:"not null;index"`
}

// NewClient builds a Client with a fresh UUID and no recorded address.
func NewClient() Client {
	now := time.Now().UTC()
	return Client{
		ID:         uuid.NewString(),
		LastOnline: now,
		CreatedAt:  now,
	}
}

// NewClientWithAddress builds a Client observed connecting from addr.
func NewClientWithAddress(addr string) Client {
	c := NewClient()
	c.Address = addr
	return c
}

// ActionCommand identifies the kind of work an Action carries. Stored as a
// small integer, the coordinator owns the mapping to/from these names.
type ActionCommand int16

const (
	CommandPing ActionCommand = iota
	CommandPurge
	CommandShell
)

func (c ActionCommand) String() string {
	switch c {
	case CommandPing:
		return "ping"
	case CommandPurge:
		return "purge"
	case CommandShell:
		return "shell"
	default:
		return "unknown"
	}
}

// ActionState is the lifecycle stage of an Action. It is monotonic:
// Pending -> Running -> Finished, never backward, never skipped.
type ActionState int16

const (
	StatePending ActionState = iota
	StateRunning
	StateFinished
)

func (s ActionState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Action is one pending/running/finished unit of work for a specific client.
// Result and Error are opaque byte blobs; at most one is populated once
// Finished, except Purge which always finishes with Result = "purged".
type Action struct {
	ID        string        `gorm:"type:text;primaryKey"`
	ClientID  string        `gorm:"type:text;not null;index"`
	Command   ActionCommand `gorm:"not null"`
	State     ActionState   `gorm:"not null;index"`
	CreatedAt time.Time     `gorm:"not null;index"`
	StartedAt *time.Time
	Timeout   *int64 // seconds; reserved, not consumed by the core loop
	Result    []byte
	Error     []byte
}

// NewAction builds a Pending Action for clientID with a fresh UUID and
// CreatedAt stamped now, establishing Dispatcher ordering for this client.
func NewAction(clientID string, command ActionCommand) Action {
	return Action{
		ID:        uuid.NewString(),
		ClientID:  clientID,
		Command:   command,
		State:     StatePending,
		CreatedAt: time.Now().UTC(),
	}
}

// PingCommand is the side-table payload for a Ping action: the nonce the
// agent must echo back verbatim.
type PingCommand struct {
	ActionID string `gorm:"type:text;primaryKey;column:id"`
	Data     string `gorm:"not null"`
}

// ShellCommand is the side-table payload for a Shell action.
type ShellCommand struct {
	ActionID string `gorm:"type:text;primaryKey;column:id"`
	Cmd      string `gorm:"not null"`
	Args     string `gorm:"type:text;not null"` // JSON-encoded []string
	Stdin    []byte
}

func (PingCommand) TableName() string  { return "ping" }
func (ShellCommand) TableName() string { return "shell" }
func (Client) TableName() string       { return "clients" }
func (Action) TableName() string       { return "actions" }
