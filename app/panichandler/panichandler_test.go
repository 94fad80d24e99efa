package panichandler

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecover(t *testing.T) {
	assert.NotPanics(t, func() {
		defer Recover("test")
		panic("boom")
	})

	assert.NotPanics(t, func() {
		defer PanicHandler()
		var m map[string]int
		m["x"] = 1
	})
}

func TestRecoverWithCallback(t *testing.T) {
	t.Run("callback runs after a panic", func(t *testing.T) {
		called := false
		func() {
			defer RecoverWithCallback("test", func() { called = true })
			panic("boom")
		}()
		assert.True(t, called)
	})

	t.Run("callback is skipped without a panic", func(t *testing.T) {
		called := false
		func() {
			defer RecoverWithCallback("test", func() { called = true })
		}()
		assert.False(t, called)
	})

	t.Run("panicking callback is contained", func(t *testing.T) {
		assert.NotPanics(t, func() {
			defer RecoverWithCallback("test", func() { panic("again") })
			panic("boom")
		})
	})
}

func TestSafeGo(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)
	SafeGo("worker", func() {
		defer wg.Done()
		panic("boom")
	})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SafeGo goroutine did not finish")
	}
}
