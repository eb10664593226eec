// Package ledger defines the capacity accounting contract. Every admission
// decision goes through TryReserve; nothing else may mutate an event's active
// count. Reservations carry an identity (the attendee id) so Release stays
// idempotent under retries.
package ledger

import (
	"context"
	"errors"
)

// ErrCapacityExceeded is the only rejection TryReserve produces for a known
// event. It carries no side effects: a rejected call reserved nothing.
var ErrCapacityExceeded = errors.New("event capacity exceeded")

type Ledger interface {
	// TryReserve atomically checks "active < capacity" and claims one slot
	// under holdID. Concurrent callers for the same event never both win the
	// last slot.
	TryReserve(ctx context.Context, eventID, holdID string) error

	// Release frees the slot held by holdID. Releasing a hold that does not
	// exist (already released, never reserved) reports false and changes
	// nothing, so double-release cannot under-count.
	Release(ctx context.Context, eventID, holdID string) (bool, error)

	// IsDuplicate reports whether a non-cancelled attendee with this email
	// already exists for the event. Advisory: the storage-level unique
	// constraint is the authority under races.
	IsDuplicate(ctx context.Context, eventID, email string) (bool, error)

	// ActiveCount is for reporting only, never for the admission decision.
	ActiveCount(ctx context.Context, eventID string) (int, error)
}
