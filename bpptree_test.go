package big

import "encoding/binary"
import "os"
import "path/filepath"
import "testing"

import "github.com/stretchr/testify/require"

func openFileBuffer(t *testing.T, path string) RomBuffer {
	t.Helper()
	factory, err := NewPerCursorRomBufferFactory(path, binary.LittleEndian)
	require.NoError(t, err)
	t.Cleanup(func() { factory.Close() })
	buf, err := factory.NewRomBuffer()
	require.NoError(t, err)
	t.Cleanup(func() { buf.Close() })
	return buf
}

func writeTempFile(t *testing.T, write func(out *OrderedDataOutput) error) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tree.bin")
	f, err := os.Create(path)
	require.NoError(t, err)
	out := NewOrderedDataOutput(f, binary.LittleEndian)
	require.NoError(t, write(out))
	require.NoError(t, f.Close())
	return path
}

func TestBPlusTreeLookupAndTraverse(t *testing.T) {
	chroms := []ChromEntry{
		{Name: "chr1", Id: 0, Length: 10000},
		{Name: "chr2", Id: 1, Length: 20000},
		{Name: "chrX", Id: 2, Length: 5000},
	}
	path := writeTempFile(t, func(out *OrderedDataOutput) error {
		return WriteBPlusTree(out, chroms, 2)
	})
	buf := openFileBuffer(t, path)

	tree, err := OpenBPlusTree(buf, 0)
	require.NoError(t, err)

	id, length, found, err := tree.Lookup("chr2")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int32(1), id)
	require.Equal(t, int32(20000), length)

	_, _, found, err = tree.Lookup("chr3")
	require.NoError(t, err)
	require.False(t, found)

	entries, err := tree.Traverse()
	require.NoError(t, err)
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	require.Equal(t, []string{"chr1", "chr2", "chrX"}, names)
}

func TestBPlusTreeManyEntriesForcesMultiLevel(t *testing.T) {
	var chroms []ChromEntry
	for i := 0; i < 50; i++ {
		chroms = append(chroms, ChromEntry{Name: string(rune('a'+i%26)) + string(rune('0'+i/26)), Id: int32(i), Length: int32(i + 1)})
	}
	path := writeTempFile(t, func(out *OrderedDataOutput) error {
		return WriteBPlusTree(out, chroms, 4)
	})
	buf := openFileBuffer(t, path)
	tree, err := OpenBPlusTree(buf, 0)
	require.NoError(t, err)

	for _, c := range chroms {
		id, length, found, err := tree.Lookup(c.Name)
		require.NoError(t, err)
		require.True(t, found, "lookup miss for %q", c.Name)
		require.Equal(t, c.Id, id)
		require.Equal(t, c.Length, length)
	}
}
