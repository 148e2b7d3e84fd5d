package integrationtests

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/assetgrid/internal/app"
	"github.com/vk/assetgrid/internal/testutil"
)

// harness is a temporary project driven through the app.
type harness struct {
	Root string
	App  *app.App
	Logs *testutil.SafeBuffer
}

// newHarness writes files into a fresh project root and creates an app for
// it. mutate, if non-nil, adjusts the app config before the app is built.
func newHarness(t *testing.T, files map[string]string, mutate func(*app.Config)) *harness {
	t.Helper()

	root := t.TempDir()
	testutil.WriteTree(t, root, files)

	cfg := &app.Config{Root: root, WorkerCount: 4}
	if mutate != nil {
		mutate(cfg)
	}
	a, logs := app.SetupAppTest(t, cfg)
	return &harness{Root: root, App: a, Logs: logs}
}

// tree reads every file under dir into a map keyed by slash path relative
// to dir.
func (h *harness) tree(t *testing.T, dir string) map[string]string {
	t.Helper()

	base := filepath.Join(h.Root, dir)
	files := make(map[string]string)
	err := filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(base, p)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(t, err)
	return files
}
