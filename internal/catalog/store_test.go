package catalog

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntAci/AstraGuard/internal/db"
)

const migrationsDir = "../../migrations"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	d, err := db.New(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	require.NoError(t, d.MigrateUp(migrationsDir))
	return NewStore(d)
}

func rawGroup(sets ...[2]string) string {
	var b strings.Builder
	for _, s := range sets {
		b.WriteString(s[0])
		b.WriteString("\n")
		b.WriteString(s[1])
		b.WriteString("\n")
	}
	return b.String()
}

func TestStore_LoadLatestPicksNewestFetchPerGroup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old := rawGroup(
		makeTestTLE(100, "26050.00000000", 51.6, 10, 0.0005, 0, 0, 15.5),
		makeTestTLE(200, "26050.00000000", 97.4, 20, 0.0010, 0, 0, 14.9),
	)
	fresh := rawGroup(
		makeTestTLE(100, "26060.00000000", 51.6, 11, 0.0005, 0, 0, 15.5),
	)

	_, err := store.SaveRaw(ctx, old, "ACTIVE", time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	_, err = store.SaveRaw(ctx, fresh, "ACTIVE", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	objects, err := store.LoadLatest(ctx, []string{"active"}, 0)
	require.NoError(t, err)

	// Only the newest fetch counts: object 200 is gone, object 100 carries
	// the newer epoch.
	require.Len(t, objects, 1)
	assert.Equal(t, 100, objects[0].NoradID)
	assert.Equal(t, 2026, objects[0].Epoch.Year())
	assert.Equal(t, time.March, objects[0].Epoch.Month())
	assert.Equal(t, ClassActive, objects[0].Class)
}

func TestStore_LoadLatestDedupesAcrossGroups(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	fetched := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	// Object 300 appears in both groups; the debris copy has a newer epoch
	// and must win.
	active := rawGroup(
		makeTestTLE(300, "26055.00000000", 53.0, 30, 0.0002, 0, 0, 15.1),
		makeTestTLE(400, "26055.00000000", 53.0, 40, 0.0002, 0, 0, 15.1),
	)
	debris := rawGroup(
		makeTestTLE(300, "26059.00000000", 53.0, 31, 0.0002, 0, 0, 15.1),
		makeTestTLE(500, "26055.00000000", 74.0, 50, 0.0100, 0, 0, 14.2),
	)

	_, err := store.SaveRaw(ctx, active, "STARLINK", fetched)
	require.NoError(t, err)
	_, err = store.SaveRaw(ctx, debris, "COSMOS-2251-DEBRIS", fetched)
	require.NoError(t, err)

	objects, err := store.LoadLatest(ctx, []string{"STARLINK", "COSMOS-2251-DEBRIS"}, 0)
	require.NoError(t, err)
	require.Len(t, objects, 3)

	// Sorted by catalog number.
	assert.Equal(t, []int{300, 400, 500},
		[]int{objects[0].NoradID, objects[1].NoradID, objects[2].NoradID})

	// The duplicate resolved to the newer-epoch debris record.
	assert.Equal(t, ClassDebris, objects[0].Class)
	assert.Equal(t, 59, objects[0].Epoch.YearDay())

	assert.Equal(t, ClassActive, objects[1].Class)
	assert.Equal(t, ClassDebris, objects[2].Class)
}

func TestStore_LoadLatestCapsObjectCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	raw := rawGroup(
		makeTestTLE(10, "26060.00000000", 51.6, 10, 0.0005, 0, 0, 15.5),
		makeTestTLE(20, "26060.00000000", 51.6, 20, 0.0005, 0, 0, 15.5),
		makeTestTLE(30, "26060.00000000", 51.6, 30, 0.0005, 0, 0, 15.5),
	)
	_, err := store.SaveRaw(ctx, raw, "ACTIVE", time.Now().UTC())
	require.NoError(t, err)

	objects, err := store.LoadLatest(ctx, []string{"ACTIVE"}, 2)
	require.NoError(t, err)
	require.Len(t, objects, 2)
	// Deterministic cap: lowest catalog numbers survive.
	assert.Equal(t, 10, objects[0].NoradID)
	assert.Equal(t, 20, objects[1].NoradID)
}

func TestStore_LoadLatestRequiresGroups(t *testing.T) {
	store := newTestStore(t)
	_, err := store.LoadLatest(context.Background(), nil, 0)
	assert.Error(t, err)
}

func TestStore_SaveRawRejectsCorruptGroup(t *testing.T) {
	store := newTestStore(t)
	lines := makeTestTLE(600, "26060.00000000", 51.6, 10, 0.0005, 0, 0, 15.5)
	corrupt := lines[0] + "\n" + lines[1][:68] + "9\n"
	_, err := store.SaveRaw(context.Background(), corrupt, "ACTIVE", time.Now().UTC())
	assert.Error(t, err)
}
