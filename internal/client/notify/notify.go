// Package notify delivers lockdown notifications to the account owner.
package notify

import (
	"context"
	"fmt"
	"time"
)

// Sender delivers one plain-text message.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LockdownMessage builds the notification sent when monitoring flags the
// current user.
func LockdownMessage(lockURL string, validity time.Duration) (subject, body string) {
	subject = "MouseTrap: irregular mouse motion detected"
	body = fmt.Sprintf(`Irregular mouse motion was detected on your computer.

If this was not you, lock the computer now by opening:

%s

The link works once and expires in %s.

MouseTrap
`, lockURL, validity)
	return subject, body
}
