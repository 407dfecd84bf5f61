// Package lockd serves the remote lock trigger: a bare TCP listener that
// accepts "GET /?token=<value>" and locks the workstation when the value
// matches the most recently issued, still fresh token.
package lockd

import (
	"crypto/subtle"
	"time"

	"github.com/dmitrijs2005/mousetrap/internal/common"
)

// Token is a single lock credential.
type Token struct {
	Value     string
	CreatedAt time.Time
}

// NewToken draws a fresh random token.
func NewToken(now time.Time) (Token, error) {
	v, err := common.MakeRandToken(common.TokenLength)
	if err != nil {
		return Token{}, err
	}
	return Token{Value: v, CreatedAt: now}, nil
}

// Matches reports whether value equals t and t is younger than validity.
func (t Token) Matches(value string, now time.Time, validity time.Duration) bool {
	if t.Value == "" || len(value) != len(t.Value) {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(t.Value), []byte(value)) != 1 {
		return false
	}
	return now.Sub(t.CreatedAt) < validity
}
