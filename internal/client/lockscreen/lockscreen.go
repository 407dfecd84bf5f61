// Package lockscreen locks the interactive session with the platform's
// stock command.
package lockscreen

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
)

var ErrUnsupported = errors.New("screen locking is not supported on this platform")

// Command returns the lock command for goos.
func Command(goos string) ([]string, error) {
	switch goos {
	case "linux", "freebsd", "openbsd":
		return []string{"loginctl", "lock-session"}, nil
	case "darwin":
		return []string{"pmset", "displaysleepnow"}, nil
	case "windows":
		return []string{"rundll32.exe", "user32.dll,LockWorkStation"}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, goos)
	}
}

// Screen implements lockd.Locker.
type Screen struct {
	goos string
	run  func(ctx context.Context, name string, args ...string) error
}

func New() *Screen {
	return &Screen{goos: runtime.GOOS, run: func(ctx context.Context, name string, args ...string) error {
		return exec.CommandContext(ctx, name, args...).Run()
	}}
}

func (s *Screen) Lock(ctx context.Context) error {
	cmd, err := Command(s.goos)
	if err != nil {
		return err
	}
	if err := s.run(ctx, cmd[0], cmd[1:]...); err != nil {
		return fmt.Errorf("%s: %w", cmd[0], err)
	}
	return nil
}
