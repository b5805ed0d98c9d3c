package battle

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSelection  = errors.New("invalid selection")
	ErrProtocolViolation = errors.New("protocol violation")
	ErrDesync            = errors.New("participant out of sync")
	ErrDisconnected      = errors.New("participant disconnected")
	ErrBattleEnded       = errors.New("battle has ended")
	ErrNotReady          = errors.New("selections incomplete")
)

// SelectionError is returned for a rejected selection. Err is one of the
// package sentinels so callers can branch with errors.Is.
type SelectionError struct {
	Side   int
	Slot   int
	Reason string
	Err    error
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("side %d slot %d: %s: %v", e.Side, e.Slot, e.Reason, e.Err)
}

func (e *SelectionError) Unwrap() error { return e.Err }

func reject(side, slot int, err error, format string, args ...any) *SelectionError {
	return &SelectionError{Side: side, Slot: slot, Reason: fmt.Sprintf(format, args...), Err: err}
}
