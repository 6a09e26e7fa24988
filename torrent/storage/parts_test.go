package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPartsFileAppendAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.parts")
	p := NewPartsFile(path)

	require.NoError(t, p.Append(3, []byte("hello")))
	require.NoError(t, p.Append(7, []byte("world")))

	lenFn := func(idx int) int64 { return 5 }

	data, err := p.Read(3, lenFn)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), data)

	data, err = p.Read(7, lenFn)
	require.NoError(t, err)
	require.Equal(t, []byte("world"), data)

	data, err = p.Read(99, lenFn)
	require.NoError(t, err)
	require.Nil(t, data)
}

func TestPartsFileExpungeCompacts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.parts")
	p := NewPartsFile(path)

	require.NoError(t, p.Append(1, []byte("aaaaa")))
	require.NoError(t, p.Append(2, []byte("bbbbb")))
	require.NoError(t, p.Append(3, []byte("ccccc")))

	lenFn := func(idx int) int64 { return 5 }

	require.NoError(t, p.Expunge(map[int]bool{2: true}, lenFn))

	records, payloads, err := p.ReadAll(lenFn)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, 1, records[0].pieceIndex)
	require.Equal(t, []byte("aaaaa"), payloads[0])
	require.Equal(t, 3, records[1].pieceIndex)
	require.Equal(t, []byte("ccccc"), payloads[1])
}
