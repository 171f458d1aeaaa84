package store

import "errors"

// ErrNotFound is returned when a referenced Client, Action, or command
// payload row does not exist. Callers distinguish it with errors.Is.
var ErrNotFound = errors.New("store: record not found")

// ErrConflict is returned when an insert violates a uniqueness constraint,
// e.g. Client.Create with an ID that already exists.
var ErrConflict = errors.New("store: record already exists")
