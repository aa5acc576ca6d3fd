// Package tags implements user-owned labels for expenses and incomes, and
// read-only sharing of a tag with other users. A tag's is_shared flag is a
// cache of "has at least one share row" and is recomputed inside the same
// transaction as every share and unshare.
package tags

import (
	"time"

	"github.com/keyxmakerx/tally/internal/plugins/auth"
)

// Tag is a user-owned label. Names are unique per owner, case-sensitively.
type Tag struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	IsShared  bool      `json:"is_shared"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OwnerID implements ownership.Owned.
func (t *Tag) OwnerID() string { return t.UserID }

// UserRef is the public identity of another user.
type UserRef = auth.PublicUser

// SharedTag is a tag someone shared with the caller, with its owner.
type SharedTag struct {
	Tag
	User UserRef `json:"user"`
}

// --- Request DTOs ---

// TagInput is the body of POST/PUT /api/tags. is_shared is deliberately
// absent: it is derived, never client-set.
type TagInput struct {
	Name  string `json:"name" validate:"required,min=2,max=50,plaintext"`
	Color string `json:"color" validate:"required,rgbhex"`
}

// ShareInput is the body of POST /api/tags/:id/share.
type ShareInput struct {
	UserEmail string `json:"user_email" validate:"required,email"`
}

// UnshareInput is the body (or query) of DELETE /api/tags/:id/unshare.
type UnshareInput struct {
	UserID string `json:"user_id" query:"user_id" validate:"required"`
}

// --- Responses ---

// ShareResponse is returned after a successful share.
type ShareResponse struct {
	Message    string  `json:"message"`
	SharedWith UserRef `json:"shared_with"`
}
