package document

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/obelisk-rag/obelisk/internal/log"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestWatcherProcessesNewFiles(t *testing.T) {
	dir := t.TempDir()
	store := &captureStore{}
	p := NewProcessor(NewSplitter(2500, 500), store, log.NewNop())

	w := NewWatcher(p, log.NewNop())
	require.NoError(t, w.Start(context.Background(), dir))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.md"), []byte("# New\nnote body"), 0o644))

	waitFor(t, 5*time.Second, func() bool { return len(store.stored()) > 0 })
	assert.Contains(t, store.stored()[0].Content, "note body")
}

func TestWatcherCoalescesRapidWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "busy.md")
	require.NoError(t, os.WriteFile(path, []byte("v0"), 0o644))

	store := &captureStore{}
	p := NewProcessor(NewSplitter(2500, 500), store, log.NewNop())

	w := NewWatcher(p, log.NewNop())
	require.NoError(t, w.Start(context.Background(), dir))
	defer w.Stop()

	// A burst of writes within one flush interval.
	for i := 0; i < 10; i++ {
		require.NoError(t, os.WriteFile(path, []byte("version body"), 0o644))
	}

	waitFor(t, 5*time.Second, func() bool { return len(store.stored()) > 0 })
	time.Sleep(flushInterval)
	assert.Less(t, len(store.stored()), 10, "rapid writes should coalesce")
}

func TestWatcherIgnoresNonMarkdown(t *testing.T) {
	dir := t.TempDir()
	store := &captureStore{}
	p := NewProcessor(NewSplitter(2500, 500), store, log.NewNop())

	w := NewWatcher(p, log.NewNop())
	require.NoError(t, w.Start(context.Background(), dir))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.json"), []byte(`{}`), 0o644))

	time.Sleep(2 * flushInterval)
	assert.Empty(t, store.stored())
}

func TestWatcherPicksUpNewSubdirectories(t *testing.T) {
	dir := t.TempDir()
	store := &captureStore{}
	p := NewProcessor(NewSplitter(2500, 500), store, log.NewNop())

	w := NewWatcher(p, log.NewNop())
	require.NoError(t, w.Start(context.Background(), dir))
	defer w.Stop()

	sub := filepath.Join(dir, "topics")
	require.NoError(t, os.Mkdir(sub, 0o755))
	// Give the watcher a beat to register the new directory.
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "nested.md"), []byte("nested body"), 0o644))

	waitFor(t, 5*time.Second, func() bool { return len(store.stored()) > 0 })
	assert.Contains(t, store.stored()[0].Content, "nested body")
}

func TestWatcherStopIdempotent(t *testing.T) {
	dir := t.TempDir()
	p := NewProcessor(NewSplitter(2500, 500), &captureStore{}, log.NewNop())

	w := NewWatcher(p, log.NewNop())
	require.NoError(t, w.Start(context.Background(), dir))

	w.Stop()
	w.Stop() // second stop must not panic or block

	// A never-started watcher stops cleanly too.
	NewWatcher(p, log.NewNop()).Stop()
}
