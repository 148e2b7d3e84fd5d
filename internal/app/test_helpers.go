package app

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/assetgrid/internal/registry"
	"github.com/vk/assetgrid/internal/testutil"
)

// SetupAppTest creates a new app instance for system testing. The app logs
// at debug level into the returned buffer.
func SetupAppTest(t *testing.T, appConfig *Config, modules ...registry.Module) (*App, *testutil.SafeBuffer) {
	t.Helper()

	logBuffer := &testutil.SafeBuffer{}
	appConfig.LogLevel = "debug"
	appConfig.LogFormat = "text"
	testApp, err := NewApp(logBuffer, appConfig, modules...)
	require.NoError(t, err)

	t.Cleanup(func() {
		if os.Getenv("AG_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return testApp, logBuffer
}
