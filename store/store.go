// Package store holds the contract pieces shared by every store-facing
// operation: the failure taxonomy and the transaction primitive.
package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is matched (via errors.Is) by every "referenced document does
// not exist" error of the domain packages.
var ErrNotFound = errors.New("not found")

// UnavailableError reports a network or backend failure on a store call.
type UnavailableError struct {
	Op  string
	Err error
}

func (err *UnavailableError) Error() string {
	return fmt.Sprintf("store unavailable on %s: %v", err.Op, err.Err)
}

func (err *UnavailableError) Unwrap() error {
	return err.Err
}

// Unavailable wraps err as an *UnavailableError unless it already is one.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}

	var unavailableErr *UnavailableError
	if errors.As(err, &unavailableErr) {
		return err
	}

	return &UnavailableError{Op: op, Err: err}
}

func IsUnavailable(err error) bool {
	var unavailableErr *UnavailableError

	return errors.As(err, &unavailableErr)
}

// Transactor runs fn so that every store write issued with the context passed
// to fn commits or rolls back together.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// NopTransactor runs fn directly. Writes are then only as consistent as their
// own idempotence allows.
type NopTransactor struct{}

var _ Transactor = NopTransactor{}

func (NopTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
