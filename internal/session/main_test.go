package session

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain enables goroutine leak detection for all tests in the session
// package. RunCleanup blocks until its context cancels; a test that fails
// to cancel would leak the cleanup goroutine.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
