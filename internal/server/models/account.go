// Package models holds the rows the server persists.
package models

import "time"

// Account is a registered user. ID 0 is the administrator.
type Account struct {
	ID           int64
	UserName     string
	PasswordHash string
	Email        string
	CreatedAt    time.Time
}

// IsAdmin reports whether a is the administrator account.
func (a *Account) IsAdmin() bool {
	return a.ID == 0
}
