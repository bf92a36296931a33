package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for ChangeDetector:
// - Unknown templates are Added
// - Same mtime takes the fast path and is Unchanged
// - Different mtime with the same hash is still Unchanged (mtime drift)
// - Different hash is Modified
// - Unchanged content whose last check failed is Failing
// - Remembered templates missing on disk are Deleted
// - Pending() is Added + Modified + Failing
// - Snapshot round-trips through the store as Unchanged

func setupTemplates(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func remember(t *testing.T, store *Store, cd *ChangeDetector, path, contents string, exitCode int) {
	t.Helper()
	snapshot, err := cd.Snapshot(path, Hash(contents), exitCode, time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Record(context.Background(), []Template{snapshot}))
}

func TestDetect_Classifies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	root := setupTemplates(t, map[string]string{
		"new.erb":     "<% new %>",
		"same.erb":    "<% same %>",
		"drift.erb":   "<% drift %>",
		"changed.erb": "<% before %>",
		"failing.erb": "<% bad %>",
		"deleted.erb": "<% gone %>",
	})
	store := NewTestStore(t)
	cd := NewChangeDetector(root, store)

	remember(t, store, cd, "same.erb", "<% same %>", 0)
	remember(t, store, cd, "drift.erb", "<% drift %>", 0)
	remember(t, store, cd, "changed.erb", "<% before %>", 0)
	remember(t, store, cd, "failing.erb", "<% bad %>", 1)
	remember(t, store, cd, "deleted.erb", "<% gone %>", 0)

	// touch without changing content
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(root, "drift.erb"), later, later))
	require.NoError(t, os.WriteFile(filepath.Join(root, "changed.erb"), []byte("<% after %>"), 0644))
	require.NoError(t, os.Chtimes(filepath.Join(root, "changed.erb"), later, later))
	require.NoError(t, os.Remove(filepath.Join(root, "deleted.erb")))

	changes, err := cd.Detect(ctx, []string{
		"new.erb",
		filepath.Join(root, "same.erb"),
		"drift.erb",
		"changed.erb",
		"failing.erb",
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"new.erb"}, changes.Added)
	assert.Equal(t, []string{"changed.erb"}, changes.Modified)
	assert.Equal(t, []string{"failing.erb"}, changes.Failing)
	assert.ElementsMatch(t, []string{filepath.Join(root, "same.erb"), "drift.erb"}, changes.Unchanged)
	assert.Equal(t, []string{"deleted.erb"}, changes.Deleted)
	assert.Equal(t, []string{"new.erb", "changed.erb", "failing.erb"}, changes.Pending())
}

func TestDetect_MissingPathIsError(t *testing.T) {
	t.Parallel()

	cd := NewChangeDetector(t.TempDir(), NewTestStore(t))

	_, err := cd.Detect(context.Background(), []string{"missing.erb"})

	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDetect_CancelledContext(t *testing.T) {
	t.Parallel()

	root := setupTemplates(t, map[string]string{"a.erb": ""})
	cd := NewChangeDetector(root, NewTestStore(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := cd.Detect(ctx, []string{"a.erb"})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestChangeDetector_Key(t *testing.T) {
	t.Parallel()

	cd := NewChangeDetector("/project", nil)

	key, err := cd.Key("/project/app/views/a.erb")
	require.NoError(t, err)
	assert.Equal(t, "app/views/a.erb", key)

	key, err = cd.Key("app/./views/a.erb")
	require.NoError(t, err)
	assert.Equal(t, "app/views/a.erb", key)
}

func TestHash(t *testing.T) {
	t.Parallel()

	root := setupTemplates(t, map[string]string{"a.erb": "<% a %>"})

	fromFile, err := HashFile(filepath.Join(root, "a.erb"))
	require.NoError(t, err)
	assert.Equal(t, Hash("<% a %>"), fromFile)
	assert.Len(t, fromFile, 64)
}
