// Package shortid produces the 8-character opaque identifiers used as
// primary keys for campaigns, leads, email log rows and blacklist entries.
package shortid

import "github.com/google/uuid"

// Length of every generated identifier.
const Length = 8

// New returns an 8-character lowercase hex identifier derived from a random
// UUID. At the volumes this system handles (low thousands of rows per
// table) collisions are negligible; a uniqueness violation on insert is the
// caller's signal to retry with a fresh id.
func New() string {
	u := uuid.New()
	return u.String()[:Length]
}
