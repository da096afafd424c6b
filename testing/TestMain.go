package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

// ensureTestMode flips the runtime into test mode before any package under
// test reads configuration. Imported for its side effect by tests that spin
// up application components.
func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("ATHENEUM_TEST_MODE", "1")
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
