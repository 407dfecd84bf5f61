package learn

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/mousetrap/internal/logging"
	"github.com/dmitrijs2005/mousetrap/internal/motion"
)

type stepSampler struct{}

func (stepSampler) Collect(ctx context.Context, n int) ([]motion.Dot, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(time.Millisecond):
	}
	return make([]motion.Dot, n), nil
}

type fakeUploader struct {
	calls     atomic.Int32
	enoughAt  int32
	failAfter int32
}

func (f *fakeUploader) UploadDots(_ context.Context, dots []motion.Dot) (bool, error) {
	n := f.calls.Add(1)
	if f.failAfter > 0 && n > f.failAfter {
		return false, errors.New("session lost")
	}
	return f.enoughAt > 0 && n >= f.enoughAt, nil
}

func TestCollector_UploadsUntilStopped(t *testing.T) {
	up := &fakeUploader{enoughAt: 3}
	c := New(stepSampler{}, up, 10, logging.NewNopLogger())

	var notified atomic.Int32
	c.OnEnough = func() { notified.Add(1) }

	require.NoError(t, c.Start(context.Background()))
	assert.True(t, c.Running())
	assert.ErrorIs(t, c.Start(context.Background()), ErrRunning)

	assert.Eventually(t, func() bool { return up.calls.Load() >= 5 }, 5*time.Second, time.Millisecond)
	c.Stop()

	assert.False(t, c.Running())
	assert.True(t, c.Enough())
	assert.Equal(t, int32(1), notified.Load(), "enough is reported once")
	assert.Equal(t, int64(10)*int64(up.calls.Load()), c.Uploaded())
	assert.NoError(t, c.Err())
}

func TestCollector_StopsOnUploadError(t *testing.T) {
	up := &fakeUploader{failAfter: 2}
	c := New(stepSampler{}, up, 5, logging.NewNopLogger())

	require.NoError(t, c.Start(context.Background()))
	assert.Eventually(t, func() bool { return !c.Running() }, 5*time.Second, time.Millisecond)

	assert.Error(t, c.Err())
	assert.Equal(t, int64(10), c.Uploaded())
	assert.False(t, c.Enough())

	require.NoError(t, c.Start(context.Background()), "a finished collector can be restarted")
	c.Stop()
}

func TestCollector_StopWithoutStart(t *testing.T) {
	c := New(stepSampler{}, &fakeUploader{}, 5, logging.NewNopLogger())
	c.Stop()
	assert.False(t, c.Running())
}
