// Package common contains shared constants and sentinel errors used across
// MouseTrap components.
package common

import "time"

// AdminID is the account id reserved for the administrator.
const AdminID int64 = 0

// FieldSeparator delimits fields of a protocol message and therefore may not
// appear inside user-supplied values.
const FieldSeparator = "~"

const (
	// ReferenceWidth and ReferenceHeight define the display every pointer
	// sample is rescaled to before it is stored or scored.
	ReferenceWidth  = 1920
	ReferenceHeight = 1080

	// DefaultMaxSpeed is used to normalize speeds when no per-account maximum
	// is known yet.
	DefaultMaxSpeed = 40000.0

	// TokenLength is the number of characters in a lock token.
	TokenLength = 32

	// DefaultTokenValidity is how long a lock token stays usable.
	DefaultTokenValidity = time.Hour
)
