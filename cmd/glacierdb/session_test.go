package main

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atampy25/glacierdb/internal/cache"
	"github.com/atampy25/glacierdb/internal/config"
	"github.com/atampy25/glacierdb/internal/rpkg"
)

// writeSingleResourceArchive builds an archive holding one plain,
// uncompressed resource.
func writeSingleResourceArchive(t *testing.T, path string, hash uint64, typ string, payload []byte) {
	t.Helper()
	require.Len(t, typ, 4)

	var resourceTable bytes.Buffer
	resourceTable.WriteByte(typ[3])
	resourceTable.WriteByte(typ[2])
	resourceTable.WriteByte(typ[1])
	resourceTable.WriteByte(typ[0])
	for _, v := range []uint32{0, 0, uint32(len(payload)), uint32(len(payload)), 0} {
		binary.Write(&resourceTable, binary.LittleEndian, v)
	}

	const entrySize = 20
	dataStart := 4 + 12 + entrySize + resourceTable.Len()

	var out bytes.Buffer
	out.WriteString("GKPR")
	binary.Write(&out, binary.LittleEndian, uint32(1))
	binary.Write(&out, binary.LittleEndian, uint32(entrySize))
	binary.Write(&out, binary.LittleEndian, uint32(resourceTable.Len()))
	binary.Write(&out, binary.LittleEndian, hash)
	binary.Write(&out, binary.LittleEndian, uint64(dataStart))
	binary.Write(&out, binary.LittleEndian, uint32(len(payload)))
	out.Write(resourceTable.Bytes())
	out.Write(payload)

	require.NoError(t, os.WriteFile(path, out.Bytes(), 0644))
}

func TestSessionMetadataIsCached(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chunk0.rpkg")
	writeSingleResourceArchive(t, path, 0x00AA, "TEXT", []byte("payload"))

	a, err := rpkg.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	s := &session{
		archives: []*rpkg.Archive{a},
		meta:     cache.New[uint64, *rpkg.ResourceMeta](),
	}

	first, err := s.metadata("00000000000000AA")
	require.NoError(t, err)
	assert.Equal(t, "TEXT", first.Type)
	assert.Equal(t, 1, s.meta.Len())

	// A repeated lookup returns the cached value, not a rebuilt one.
	again, err := s.metadata("00000000000000AA")
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Equal(t, 1, s.meta.Len())

	// Failed lookups cache nothing.
	_, err = s.metadata("00000000000000BB")
	require.Error(t, err)
	assert.Equal(t, 1, s.meta.Len())
}

func TestExtractCommandDedupesIdentifiers(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "chunk0.rpkg")
	writeSingleResourceArchive(t, archivePath, 0x00AA, "TEXT", []byte("payload"))

	cfg = &config.Config{Archives: []string{archivePath}}
	outputDir = filepath.Join(dir, "out")
	withMeta = false
	noProgress = true

	// The same resource named twice extracts once, without error.
	err := extractCmd.RunE(extractCmd, []string{"00000000000000AA", "00000000000000AA"})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(outputDir, "00000000000000AA.TEXT"))
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
}
