// Package pointer reads the live pointer position through xdotool.
package pointer

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

var ErrBadOutput = errors.New("unexpected xdotool output")

// Runner runs a command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// XDoTool implements motion.PointerSource.
type XDoTool struct {
	run Runner
}

func NewXDoTool() *XDoTool {
	return &XDoTool{run: execRunner}
}

// NewXDoToolWithRunner is NewXDoTool with a custom command runner.
func NewXDoToolWithRunner(run Runner) *XDoTool {
	return &XDoTool{run: run}
}

func (x *XDoTool) Position(ctx context.Context) (int, int, error) {
	out, err := x.run(ctx, "xdotool", "getmouselocation", "--shell")
	if err != nil {
		return 0, 0, fmt.Errorf("xdotool getmouselocation: %w", err)
	}
	return parseLocation(string(out))
}

func (x *XDoTool) ScreenSize(ctx context.Context) (int, int, error) {
	out, err := x.run(ctx, "xdotool", "getdisplaygeometry")
	if err != nil {
		return 0, 0, fmt.Errorf("xdotool getdisplaygeometry: %w", err)
	}
	return parseGeometry(string(out))
}

// parseLocation reads the X= and Y= lines of "getmouselocation --shell".
func parseLocation(out string) (int, int, error) {
	var x, y int
	var haveX, haveY bool
	for _, line := range strings.Split(out, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(value)
		switch key {
		case "X":
			x, haveX = n, err == nil
		case "Y":
			y, haveY = n, err == nil
		}
	}
	if !haveX || !haveY {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadOutput, out)
	}
	return x, y, nil
}

// parseGeometry reads "WIDTH HEIGHT".
func parseGeometry(out string) (int, int, error) {
	f := strings.Fields(out)
	if len(f) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadOutput, out)
	}
	w, err1 := strconv.Atoi(f[0])
	h, err2 := strconv.Atoi(f[1])
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadOutput, out)
	}
	return w, h, nil
}
