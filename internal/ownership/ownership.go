// Package ownership holds the single authorization predicate shared by every
// user-owned resource (expenses, incomes, tags). Services call Authorize
// after loading a row and before reading it out or mutating it.
package ownership

import "github.com/keyxmakerx/tally/internal/apperror"

// Owned is implemented by any row that belongs to exactly one user.
type Owned interface {
	OwnerID() string
}

// Authorize returns nil when the requester owns the resource and a 403
// AppError otherwise. The message never reveals anything about the row.
func Authorize(ownerID, requesterID string) error {
	if ownerID == "" || ownerID != requesterID {
		return apperror.NewForbidden("unauthorized")
	}
	return nil
}

// Check is Authorize for a loaded resource.
func Check(resource Owned, requesterID string) error {
	return Authorize(resource.OwnerID(), requesterID)
}
