package skill

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/waypoint/internal/effort"
	"github.com/mattjoyce/waypoint/internal/phase"
	"github.com/mattjoyce/waypoint/internal/storage"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "waypoint.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func writeManifest(t *testing.T, root, name, body string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, ManifestFile)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDiscover(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeManifest(t, root, "review", "phases: [\"1: Read\"]\n")
	writeManifest(t, root, "broken", "name: other\n")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("x"), 0o644))

	cat, err := Discover(root, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, cat.Len())

	s, ok := cat.Get("review")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "review", ManifestFile), s.Path)
}

func TestDiscoverMissingRoot(t *testing.T) {
	t.Parallel()

	cat, err := Discover(filepath.Join(t.TempDir(), "absent"), nil)
	require.NoError(t, err)
	assert.Zero(t, cat.Len())
}

func TestSyncWritesAndSkipsUnchanged(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db := openTestDB(t)
	root := t.TempDir()
	writeManifest(t, root, "build", "description: Build it\nphases: [\"1: Plan\", \"2: Code\"]\n")
	writeManifest(t, root, "review", "phases: [\"1: Read\"]\n")

	s := NewSyncer(db, root, nil)
	report, err := s.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"build", "review"}, report.Written)
	assert.Empty(t, report.Unchanged)

	sk, err := effort.New(db).GetSkill(ctx, "build")
	require.NoError(t, err)
	assert.Equal(t, effort.SourceManifest, sk.Source)
	assert.Equal(t, "Build it", sk.Description)
	assert.Equal(t, []string{"1: Plan", "2: Code"}, sk.Phases.Labels())

	report, err = s.Sync(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Written)
	assert.Equal(t, []string{"build", "review"}, report.Unchanged)
}

func TestSyncKeepsAutoAppendedPhasesUntilManifestChanges(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db := openTestDB(t)
	root := t.TempDir()
	path := writeManifest(t, root, "build", "phases: [\"1: Plan\", \"2: Code\"]\n")

	s := NewSyncer(db, root, nil)
	_, err := s.Sync(ctx)
	require.NoError(t, err)

	// An auto-append writes the extended list back into the cached record.
	store := effort.New(db)
	extended := phase.List{{Label: "1", Name: "Plan"}, {Label: "1.A", Name: "Spike"}, {Label: "2", Name: "Code"}}
	require.NoError(t, store.SetSkillPhases(ctx, "build", extended))

	_, err = s.Sync(ctx)
	require.NoError(t, err)
	sk, err := store.GetSkill(ctx, "build")
	require.NoError(t, err)
	assert.Equal(t, extended.Labels(), sk.Phases.Labels())

	require.NoError(t, os.WriteFile(path, []byte("phases: [\"1: Plan\", \"2: Code\", \"3: Ship\"]\n"), 0o644))
	report, err := s.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"build"}, report.Written)

	sk, err = store.GetSkill(ctx, "build")
	require.NoError(t, err)
	assert.Equal(t, []string{"1: Plan", "2: Code", "3: Ship"}, sk.Phases.Labels())
}

func TestSyncOverridesAPIRecord(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db := openTestDB(t)
	store := effort.New(db)
	_, err := store.PutSkill(ctx, effort.Skill{Name: "build", Phases: phase.List{{Label: "1", Name: "Old"}}})
	require.NoError(t, err)

	root := t.TempDir()
	writeManifest(t, root, "build", "phases: [\"1: New\"]\n")
	report, err := NewSyncer(db, root, nil).Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"build"}, report.Written)

	sk, err := store.GetSkill(ctx, "build")
	require.NoError(t, err)
	assert.Equal(t, []string{"1: New"}, sk.Phases.Labels())
}

func TestWatcherResyncsOnChange(t *testing.T) {
	db := openTestDB(t)
	root := t.TempDir()
	writeManifest(t, root, "build", "phases: [\"1: Plan\"]\n")

	reports := make(chan *SyncReport, 16)
	w := NewWatcher(NewSyncer(db, root, nil), nil,
		WithDebounce(20*time.Millisecond),
		WithSyncHook(func(r *SyncReport, err error) {
			if err != nil {
				return
			}
			select {
			case reports <- r:
			default:
			}
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Keep touching a new manifest until the watcher is up and a pass writes it.
	require.Eventually(t, func() bool {
		writeManifest(t, root, "deploy", "phases: [\"1: Ship\"]\n")
		for {
			select {
			case r := <-reports:
				for _, name := range r.Written {
					if name == "deploy" {
						return true
					}
				}
			default:
				return false
			}
		}
	}, 5*time.Second, 50*time.Millisecond)

	sk, err := effort.New(db).GetSkill(context.Background(), "deploy")
	require.NoError(t, err)
	assert.Equal(t, []string{"1: Ship"}, sk.Phases.Labels())
}
