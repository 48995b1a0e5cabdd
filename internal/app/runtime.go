package app

import (
	"os"
	"sync"
	"sync/atomic"
)

// TestModeEnv, when "1", makes the binaries exit before dialing PostgreSQL or Redis.
const TestModeEnv = "ODYSSEY_TEST_MODE"

var testMode struct {
	once sync.Once
	on   atomic.Bool
}

// InTestMode reports whether TestModeEnv was set when first asked.
func InTestMode() bool {
	testMode.once.Do(RefreshTestMode)
	return testMode.on.Load()
}

// RefreshTestMode re-reads TestModeEnv.
func RefreshTestMode() {
	testMode.on.Store(os.Getenv(TestModeEnv) == "1")
}
