package app

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// testModeEnv, when true, makes both binaries return before opening any
// database, redis or queue connection.
const testModeEnv = "ODYSSEY_TEST_MODE"

var (
	testMode     atomic.Bool
	testModeOnce sync.Once
)

// InTestMode reports whether ODYSSEY_TEST_MODE holds a true value
// ("1", "true", "TRUE", ...).
func InTestMode() bool {
	testModeOnce.Do(RefreshTestMode)
	return testMode.Load()
}

// RefreshTestMode re-reads ODYSSEY_TEST_MODE.
func RefreshTestMode() {
	on, _ := strconv.ParseBool(strings.TrimSpace(os.Getenv(testModeEnv)))
	testMode.Store(on)
}
