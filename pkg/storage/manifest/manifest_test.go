package manifest

import (
	"path/filepath"
	"testing"

	"github.com/coldb/coldb/pkg/array"
	"github.com/coldb/coldb/pkg/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testColumns() []catalog.ColumnCatalog {
	return []catalog.ColumnCatalog{
		{ID: 0, Name: "id", Type: array.Int64(false), IsSortKey: true},
		{ID: 1, Name: "name", Type: array.String(true), Nullable: true},
	}
}

func TestAppendAndReplay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "MANIFEST")

	mf, err := Open(path)
	require.NoError(t, err)

	entries := []Entry{
		CreateTable(1, "events", testColumns()),
		AddRowSet(1, 10),
		AddDV(1, 10, 100),
		DeleteDV(1, 10, 100),
		DeleteRowSet(1, 10),
		DropTable(1),
	}
	require.NoError(t, mf.Append(entries))
	require.NoError(t, mf.Close())

	replayed, err := Replay(path)
	require.NoError(t, err)
	require.Len(t, replayed, len(entries))

	assert.Equal(t, TagCreateTable, replayed[0].Tag)
	assert.Equal(t, "events", replayed[0].TableName)
	assert.Equal(t, testColumns(), replayed[0].Columns)

	assert.Equal(t, TagAddRowSet, replayed[1].Tag)
	assert.EqualValues(t, 10, replayed[1].RowsetID)

	assert.Equal(t, TagAddDV, replayed[2].Tag)
	assert.EqualValues(t, 10, replayed[2].RowsetID)
	assert.EqualValues(t, 100, replayed[2].DVID)

	assert.Equal(t, TagDeleteDV, replayed[3].Tag)
	assert.Equal(t, TagDeleteRowSet, replayed[4].Tag)
	assert.Equal(t, TagDropTable, replayed[5].Tag)
}

func TestReplayMissingFile(t *testing.T) {
	entries, err := Replay(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestRewriteAtomicReplace(t *testing.T) {
	dir := t.TempDir()
	name := "MANIFEST"
	path := filepath.Join(dir, name)

	mf, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, mf.Append([]Entry{CreateTable(1, "t", testColumns()), AddRowSet(1, 1), AddRowSet(1, 2)}))
	require.NoError(t, mf.Close())

	compacted := []Entry{CreateTable(1, "t", testColumns()), AddRowSet(1, 2)}
	require.NoError(t, Rewrite(dir, name, compacted))

	replayed, err := Replay(path)
	require.NoError(t, err)
	require.Len(t, replayed, 2)
	assert.EqualValues(t, 2, replayed[1].RowsetID)
}

func TestDecodeEntryTruncated(t *testing.T) {
	_, err := decodeEntry([]byte{byte(TagAddRowSet)})
	assert.Error(t, err)
}
