package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedRunToken_ReturnsSameToken(t *testing.T) {
	gen := NewFixedRunToken("run-a")
	assert.Equal(t, "run-a", gen.Generate())
	assert.Equal(t, "run-a", gen.Generate())
}

func TestFixedRunToken_EmptyTokenDefault(t *testing.T) {
	assert.Equal(t, "test-run-default", NewFixedRunToken("").Generate())
}

func TestFixedRunToken_ThreadSafe(t *testing.T) {
	gen := NewFixedRunToken("thread-safe-token")

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				assert.Equal(t, "thread-safe-token", gen.Generate())
			}
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}
