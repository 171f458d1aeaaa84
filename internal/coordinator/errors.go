package coordinator

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kjubybot/notssh-go/internal/store"
)

// Kind classifies a coordinator-level error for RPC status mapping. It
// collapses the original's NotFound/BadRequest/Db/Io/Internal taxonomy to
// four kinds: Io carries no distinct behavior of its own in this build and
// is folded into Internal, exactly as Design Notes §9 permits.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindBadRequest
	KindDb
)

// Error is a coordinator error carrying both a Kind for RPC mapping and an
// underlying cause for logging. Internal never leaks its cause to callers.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Msg + ": " + e.Cause.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Cause }

func NotFound(msg string, cause error) error {
	return &Error{Kind: KindNotFound, Msg: msg, Cause: cause}
}

func BadRequest(msg string, cause error) error {
	return &Error{Kind: KindBadRequest, Msg: msg, Cause: cause}
}

func Internal(msg string, cause error) error {
	return &Error{Kind: KindInternal, Msg: msg, Cause: cause}
}

// fromStore classifies an error returned by the store package into a
// coordinator Error, the Go rendering of the original's `impl From<sqlx::Error>
// for notssh_util::error::Error`.
func fromStore(msg string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return &Error{Kind: KindNotFound, Msg: msg, Cause: err}
	case errors.Is(err, store.ErrConflict):
		return &Error{Kind: KindBadRequest, Msg: msg, Cause: err}
	default:
		return &Error{Kind: KindDb, Msg: msg, Cause: err}
	}
}

// toStatus maps a coordinator error to a gRPC status, never leaking backend
// detail for anything but NotFound/BadRequest: Db and Internal both surface
// as the fixed string "internal error".
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if !errors.As(err, &e) {
		return status.Error(codes.Internal, "internal error")
	}
	switch e.Kind {
	case KindNotFound:
		return status.Error(codes.NotFound, e.Msg)
	case KindBadRequest:
		return status.Error(codes.InvalidArgument, e.Msg)
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
