package main

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain fails the package when a test leaves analysis workers running.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
