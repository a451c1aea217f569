// Package records is the persistence counter interface consumed at game
// end. Calls are at-least-once and fire-and-forget from the room-mutation
// path; failures are logged by the caller, never surfaced to players.
package records

import (
	"context"
	"errors"
)

// ErrUnknownUser marks an increment against a username with no stored
// record. Treated as a logged no-op by callers.
var ErrUnknownUser = errors.New("unknown username")

type Recorder interface {
	IncrementWin(ctx context.Context, username string) error
	IncrementLoss(ctx context.Context, username string) error
	IncrementDraw(ctx context.Context, username string) error
}
