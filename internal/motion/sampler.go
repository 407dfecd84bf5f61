package motion

import (
	"context"
	"fmt"
	"time"
)

// PointerSource reports the live pointer position in display pixels.
type PointerSource interface {
	Position(ctx context.Context) (x, y int, err error)
	ScreenSize(ctx context.Context) (w, h int, err error)
}

const (
	DefaultWindow   = 10
	DefaultInterval = 10 * time.Millisecond
)

// Sampler turns raw pointer readings into Dots. Each Dot averages Window
// readings taken Interval apart, so with the defaults one Dot covers 100ms.
type Sampler struct {
	Source   PointerSource
	Window   int
	Interval time.Duration

	// Now is the clock used for speed computation; nil means time.Now.
	Now func() time.Time
}

// NewSampler returns a Sampler with the default window and interval.
func NewSampler(src PointerSource) *Sampler {
	return &Sampler{Source: src, Window: DefaultWindow, Interval: DefaultInterval}
}

func (s *Sampler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Collect gathers n Dots. It returns ctx.Err() as soon as the context is
// cancelled, discarding the partial batch.
func (s *Sampler) Collect(ctx context.Context, n int) ([]Dot, error) {
	w, h, err := s.Source.ScreenSize(ctx)
	if err != nil {
		return nil, fmt.Errorf("screen size: %w", err)
	}

	window := s.Window
	if window <= 0 {
		window = DefaultWindow
	}

	read := func() (int, int, error) {
		x, y, err := s.Source.Position(ctx)
		if err != nil {
			return 0, 0, fmt.Errorf("pointer position: %w", err)
		}
		rx, ry := Rescale(x, y, w, h)
		return rx, ry, nil
	}

	dots := make([]Dot, 0, n)
	for i := 0; i < n; i++ {
		px, py, err := read()
		if err != nil {
			return nil, err
		}
		pt := s.now()

		var sx, sy int
		var sv float64
		for j := 0; j < window; j++ {
			if err := s.wait(ctx); err != nil {
				return nil, err
			}
			x, y, err := read()
			if err != nil {
				return nil, err
			}
			t := s.now()

			sx += x
			sy += y
			sv += Speed(px, py, x, y, t.Sub(pt).Seconds())
			px, py, pt = x, y, t
		}

		dots = append(dots, Dot{X: sx / window, Y: sy / window, V: sv / float64(window)})
	}

	return dots, nil
}

func (s *Sampler) wait(ctx context.Context) error {
	if s.Interval <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.Interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
