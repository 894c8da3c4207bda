package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/shinker1002/seb40-main-019/pkg/logger"
)

type countingPurger struct {
	calls atomic.Int32
	err   error
}

func (c *countingPurger) PurgeTestAccounts(context.Context) (int, error) {
	c.calls.Add(1)
	return 2, c.err
}

func TestTestAccountPurger_RunsEveryInterval(t *testing.T) {
	purger := &countingPurger{}
	w := NewTestAccountPurger(purger, 10*time.Millisecond, logger.New("test", "error"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return purger.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("purger did not stop after cancel")
	}
}

func TestTestAccountPurger_KeepsRunningAfterError(t *testing.T) {
	purger := &countingPurger{err: errors.New("db down")}
	w := NewTestAccountPurger(purger, 10*time.Millisecond, logger.New("test", "error"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	assert.Eventually(t, func() bool { return purger.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestTestAccountPurger_DoesNotRunBeforeFirstTick(t *testing.T) {
	purger := &countingPurger{}
	w := NewTestAccountPurger(purger, time.Hour, logger.New("test", "error"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	w.Run(ctx)

	assert.Equal(t, int32(0), purger.calls.Load())
}
