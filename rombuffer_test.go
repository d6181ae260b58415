package big

import "encoding/binary"
import "os"
import "path/filepath"
import "testing"

import "github.com/stretchr/testify/require"

func TestRomBufferGettersLittleEndian(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.bin")
	f, err := os.Create(path)
	require.NoError(t, err)
	out := NewOrderedDataOutput(f, binary.LittleEndian)
	require.NoError(t, out.WriteInt(-7))
	require.NoError(t, out.WriteUnsignedInt(42))
	require.NoError(t, out.WriteFloat(3.5))
	require.NoError(t, out.WriteCString("hello"))
	require.NoError(t, f.Close())

	buf := openFileBuffer(t, path)
	i, err := buf.GetInt()
	require.NoError(t, err)
	require.Equal(t, int32(-7), i)
	u, err := buf.GetUnsignedInt()
	require.NoError(t, err)
	require.Equal(t, uint32(42), u)
	fl, err := buf.GetFloat()
	require.NoError(t, err)
	require.InDelta(t, 3.5, fl, 1e-6)
	s, err := buf.GetCString()
	require.NoError(t, err)
	require.Equal(t, "hello", s)
}

func TestRomBufferTruncatedRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.bin")
	require.NoError(t, os.WriteFile(path, []byte{1, 2}, 0o644))
	buf := openFileBuffer(t, path)
	_, err := buf.GetInt()
	require.Error(t, err)
	var trunc *TruncatedError
	require.ErrorAs(t, err, &trunc)
}

func TestRomBufferDuplicateIndependentCursor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dup.bin")
	f, err := os.Create(path)
	require.NoError(t, err)
	out := NewOrderedDataOutput(f, binary.LittleEndian)
	require.NoError(t, out.WriteInt(1))
	require.NoError(t, out.WriteInt(2))
	require.NoError(t, f.Close())

	buf := openFileBuffer(t, path)
	_, err = buf.GetInt()
	require.NoError(t, err)

	dup := buf.Duplicate()
	defer dup.Close()

	// Advancing the duplicate must not move the original.
	_, err = dup.GetInt()
	require.NoError(t, err)
	require.Equal(t, int64(4), buf.Tell())
	require.Equal(t, int64(8), dup.Tell())
}

func TestRomBufferFactoriesAgree(t *testing.T) {
	path := filepath.Join(t.TempDir(), "factories.bin")
	f, err := os.Create(path)
	require.NoError(t, err)
	out := NewOrderedDataOutput(f, binary.BigEndian)
	for i := int32(0); i < 16; i++ {
		require.NoError(t, out.WriteInt(i*7))
	}
	require.NoError(t, f.Close())

	readAll := func(factory RomBufferFactory) []int32 {
		buf, err := factory.NewRomBuffer()
		require.NoError(t, err)
		defer buf.Close()
		out := make([]int32, 16)
		for i := range out {
			v, err := buf.GetInt()
			require.NoError(t, err)
			out[i] = v
		}
		return out
	}

	shared, err := NewSharedRomBufferFactory(path, binary.BigEndian)
	require.NoError(t, err)
	defer shared.Close()
	perCursor, err := NewPerCursorRomBufferFactory(path, binary.BigEndian)
	require.NoError(t, err)
	defer perCursor.Close()
	threadSafe, err := NewThreadSafeRomBufferFactory(path, binary.BigEndian)
	require.NoError(t, err)
	defer threadSafe.Close()

	want := readAll(shared)
	require.Equal(t, want, readAll(perCursor))
	require.Equal(t, want, readAll(threadSafe))

	if mmapFactory, err := NewMmapRomBufferFactory(path, binary.BigEndian); err == nil {
		defer mmapFactory.Close()
		require.Equal(t, want, readAll(mmapFactory))
	}
}
