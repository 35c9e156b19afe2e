package params

import "testing"

// SetupTestConfigCleanup preserves the active configuration so tests can
// modify it freely. Everything is restored after the test.
func SetupTestConfigCleanup(t testing.TB) {
	prev := displayConfig.Copy()
	t.Cleanup(func() {
		displayConfig = prev
	})
}
