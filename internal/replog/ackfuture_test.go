package replog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAckFuture_WaitBlocksUntilComplete(t *testing.T) {
	f := NewAckFuture()
	assert.False(t, f.IsSet())

	done := make(chan bool, 1)
	go func() {
		done <- f.Wait(context.Background())
	}()

	select {
	case <-done:
		t.Fatal("Wait returned before Complete was called")
	case <-time.After(20 * time.Millisecond):
	}

	f.Complete()
	require.True(t, <-done)
	assert.True(t, f.IsSet())
}

func TestAckFuture_CompleteIsIdempotent(t *testing.T) {
	f := NewAckFuture()
	f.Complete()
	assert.NotPanics(t, func() { f.Complete() })
	assert.True(t, f.IsSet())
}

func TestAckFuture_CompleteFromManyGoroutines(t *testing.T) {
	f := NewAckFuture()
	done := make(chan struct{})
	for i := 0; i < 50; i++ {
		go func() {
			f.Complete()
			done <- struct{}{}
		}()
	}
	for i := 0; i < 50; i++ {
		<-done
	}
	assert.True(t, f.IsSet())
}

func TestAckFuture_WaitReturnsFalseOnContextCancel(t *testing.T) {
	f := NewAckFuture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, f.Wait(ctx))
	assert.False(t, f.IsSet())
}
