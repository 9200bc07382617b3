package engine

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celerix-dev/localcrm/pkg/schema"
)

func newSQLite(t *testing.T) *SQLitePersistence {
	t.Helper()
	p, err := NewSQLitePersistence(filepath.Join(t.TempDir(), "nested", SQLiteFile))
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func TestSQLitePersistence_RoundTrip(t *testing.T) {
	p := newSQLite(t)

	ok, err := p.Exists("leads")
	require.NoError(t, err)
	assert.False(t, ok)

	recs, err := p.Load("leads")
	require.NoError(t, err)
	assert.Nil(t, recs)

	require.NoError(t, p.Save("leads", []schema.Record{
		{"id": "b", "n": 2},
		{"id": "a", "tags": []any{"x", "y"}},
	}))

	ok, err = p.Exists("leads")
	require.NoError(t, err)
	assert.True(t, ok)

	recs, err = p.Load("leads")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "b", recs[0].ID(), "stored order is preserved")
	assert.Equal(t, float64(2), recs[0]["n"])
	assert.Equal(t, []any{"x", "y"}, recs[1]["tags"])

	require.NoError(t, p.Save("leads", []schema.Record{{"id": "only"}}))
	recs, err = p.Load("leads")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "only", recs[0].ID())
}

func TestSQLitePersistence_EmptyCollectionExists(t *testing.T) {
	p := newSQLite(t)
	require.NoError(t, p.Save("activities", nil))

	ok, err := p.Exists("activities")
	require.NoError(t, err)
	assert.True(t, ok)

	recs, err := p.Load("activities")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestSQLitePersistence_BacksCollection(t *testing.T) {
	c := NewCollection("leads", newSQLite(t))
	rec, err := c.Insert(schema.Record{"name": "db"})
	require.NoError(t, err)

	updated, err := c.Update(rec.ID(), schema.Record{"status": "hot"})
	require.NoError(t, err)
	assert.Equal(t, "db", updated["name"])

	require.NoError(t, c.Delete(rec.ID()))
	assert.Equal(t, 0, c.Len())
}

func TestMigrate(t *testing.T) {
	src := NewMemPersistence()
	require.NoError(t, src.Save("leads", []schema.Record{{"id": "1"}, {"id": "2"}}))
	require.NoError(t, src.Save("users", []schema.Record{{"id": "1", "email": "a@b"}}))

	dst := newSQLite(t)
	n, err := Migrate(src, dst, []string{"leads", "users", "activities"})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	leads, err := dst.Load("leads")
	require.NoError(t, err)
	assert.Len(t, leads, 2)

	ok, err := dst.Exists("activities")
	require.NoError(t, err)
	assert.False(t, ok, "collections missing from the source are skipped")
}

func TestMigrate_CorruptSourceAborts(t *testing.T) {
	src := NewMemPersistence()
	src.SetRaw("leads", []byte("nope"))
	dst := NewMemPersistence()

	_, err := Migrate(src, dst, []string{"leads"})
	assert.ErrorIs(t, err, ErrCorrupt)

	ok, _ := dst.Exists("leads")
	assert.False(t, ok)
}
