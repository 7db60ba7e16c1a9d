package rpkg

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atampy25/glacierdb/internal/codec"
)

// testResource describes one resource to place in a synthetic archive.
type testResource struct {
	hash         uint64
	typ          string
	data         []byte
	scramble     bool
	compress     bool
	declaredSize uint32 // overrides len(data) when nonzero
	refs         []Reference
}

// writeTestArchive builds a directory-complete archive file on disk.
func writeTestArchive(t *testing.T, path string, resources []testResource) {
	t.Helper()

	type stored struct {
		payload []byte
		flags   uint32
	}

	isPatch := strings.Contains(filepath.Base(path), "patch")

	payloads := make([]stored, len(resources))
	for i, res := range resources {
		payload := append([]byte(nil), res.data...)
		if res.compress {
			buf := make([]byte, lz4.CompressBlockBound(len(payload)))
			n, err := lz4.CompressBlock(payload, buf, nil)
			require.NoError(t, err)
			require.NotZero(t, n, "test payload must be compressible")
			payload = buf[:n]
		}
		flags := uint32(len(payload))
		if res.scramble {
			Descramble(payload)
			flags |= 0x80000000
		}
		payloads[i] = stored{payload: payload, flags: flags}
	}

	var resourceTable bytes.Buffer
	for _, res := range resources {
		require.Len(t, res.typ, 4)
		resourceTable.WriteByte(res.typ[3])
		resourceTable.WriteByte(res.typ[2])
		resourceTable.WriteByte(res.typ[1])
		resourceTable.WriteByte(res.typ[0])

		refChunkSize := uint32(0)
		if len(res.refs) > 0 {
			refChunkSize = uint32(len(res.refs)*9 + 4)
		}
		declared := res.declaredSize
		if declared == 0 {
			declared = uint32(len(res.data))
		}
		for _, v := range []uint32{refChunkSize, 0, declared, declared, 0} {
			binary.Write(&resourceTable, binary.LittleEndian, v)
		}
		if len(res.refs) > 0 {
			binary.Write(&resourceTable, binary.LittleEndian, uint32(len(res.refs))|0xC0000000)
			for _, ref := range res.refs {
				resourceTable.WriteByte(ref.Flag)
			}
			for _, ref := range res.refs {
				binary.Write(&resourceTable, binary.LittleEndian, ref.Hash)
			}
		}
	}

	headerSize := 4 + 12
	if isPatch {
		headerSize += 4
	}
	dataStart := headerSize + len(resources)*entrySize + resourceTable.Len()

	var out bytes.Buffer
	out.WriteString(magicV1)
	binary.Write(&out, binary.LittleEndian, uint32(len(resources)))
	binary.Write(&out, binary.LittleEndian, uint32(len(resources)*entrySize))
	binary.Write(&out, binary.LittleEndian, uint32(resourceTable.Len()))
	if isPatch {
		binary.Write(&out, binary.LittleEndian, uint32(0))
	}

	offset := uint64(dataStart)
	for i, res := range resources {
		binary.Write(&out, binary.LittleEndian, res.hash)
		binary.Write(&out, binary.LittleEndian, offset)
		binary.Write(&out, binary.LittleEndian, payloads[i].flags)
		offset += uint64(len(payloads[i].payload))
	}
	out.Write(resourceTable.Bytes())
	for i := range payloads {
		out.Write(payloads[i].payload)
	}

	require.NoError(t, os.WriteFile(path, out.Bytes(), 0644))
}

func openTestArchive(t *testing.T, path string, resources []testResource) *Archive {
	t.Helper()
	writeTestArchive(t, path, resources)
	a, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestExtractPlainResource(t *testing.T) {
	dir := t.TempDir()
	payload := []byte("plain payload bytes")

	a := openTestArchive(t, filepath.Join(dir, "chunk0.rpkg"), []testResource{
		{hash: 0x00AA, typ: "TEXT", data: payload},
	})

	meta, data, err := ExtractLatest([]*Archive{a}, nil, "00000000000000AA")
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	assert.Equal(t, "TEXT", meta.Type)
	assert.Equal(t, uint32(len(payload)), meta.DataSize)
	assert.Empty(t, meta.Dependencies)
}

func TestExtractScrambledCompressedResource(t *testing.T) {
	dir := t.TempDir()
	payload := bytes.Repeat([]byte("abcdefgh"), 512)

	a := openTestArchive(t, filepath.Join(dir, "chunk0.rpkg"), []testResource{
		{hash: 0x00BB, typ: "MATB", data: payload, scramble: true, compress: true,
			refs: []Reference{{Hash: 0x00ABCDEF12345678, Flag: 0x1F}}},
	})

	meta, data, err := ExtractLatest([]*Archive{a}, nil, "00000000000000BB")
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	assert.Equal(t, "MATB", meta.Type)
	require.Len(t, meta.Dependencies, 1)
	assert.Equal(t, uint64(0x00ABCDEF12345678), meta.Dependencies[0].Hash)
	assert.Equal(t, byte(0x1F), meta.Dependencies[0].Flag)
	// No hash list: dependency paths fall back to hex renderings.
	assert.Equal(t, "00ABCDEF12345678", meta.Dependencies[0].Path)
}

func TestExtractSizeMismatchIsFatal(t *testing.T) {
	dir := t.TempDir()
	payload := bytes.Repeat([]byte("abcdefgh"), 512)

	// The header declares one byte more than the stream decompresses to.
	a := openTestArchive(t, filepath.Join(dir, "chunk0.rpkg"), []testResource{
		{hash: 0x00CC, typ: "TEXT", data: payload, compress: true,
			declaredSize: uint32(len(payload) + 1)},
	})

	_, _, err := ExtractLatest([]*Archive{a}, nil, "00000000000000CC")
	require.Error(t, err)
	assert.ErrorIs(t, err, codec.ErrSizeMismatch)
}

func TestExtractPrecedence(t *testing.T) {
	dir := t.TempDir()
	fromA := []byte("bytes from archive A")
	fromB := []byte("bytes from archive B")

	a := openTestArchive(t, filepath.Join(dir, "chunk0patch1.rpkg"), []testResource{
		{hash: 0x00DD, typ: "TEXT", data: fromA},
	})
	b := openTestArchive(t, filepath.Join(dir, "chunk0.rpkg"), []testResource{
		{hash: 0x00DD, typ: "TEXT", data: fromB},
	})

	_, data, err := ExtractLatest([]*Archive{a, b}, nil, "00000000000000DD")
	require.NoError(t, err)
	assert.Equal(t, fromA, data)

	_, data, err = ExtractLatest([]*Archive{b, a}, nil, "00000000000000DD")
	require.NoError(t, err)
	assert.Equal(t, fromB, data)
}

func TestExtractNotFound(t *testing.T) {
	dir := t.TempDir()
	a := openTestArchive(t, filepath.Join(dir, "chunk0.rpkg"), []testResource{
		{hash: 0x00EE, typ: "TEXT", data: []byte("x")},
	})

	_, _, err := ExtractLatest([]*Archive{a}, nil, "0000000000000123")
	assert.ErrorIs(t, err, codec.ErrNotFound)

	_, err = ExtractLatestMeta([]*Archive{a}, nil, "0000000000000123")
	assert.ErrorIs(t, err, codec.ErrNotFound)

	_, err = OverviewInfo([]*Archive{a}, "0000000000000123")
	assert.ErrorIs(t, err, codec.ErrNotFound)
}

func TestExtractLatestMetaSkipsPayload(t *testing.T) {
	dir := t.TempDir()

	a := openTestArchive(t, filepath.Join(dir, "chunk0.rpkg"), []testResource{
		{hash: 0x00FF, typ: "WWEV", data: []byte("audio bytes"),
			refs: []Reference{{Hash: 0x0011, Flag: 1}, {Hash: 0x0022, Flag: 2}}},
	})

	meta, err := ExtractLatestMeta([]*Archive{a}, nil, "00000000000000FF")
	require.NoError(t, err)
	assert.Equal(t, "WWEV", meta.Type)
	require.Len(t, meta.Dependencies, 2)
	assert.Equal(t, uint64(0x0022), meta.Dependencies[1].Hash)
}

func TestOverviewInfo(t *testing.T) {
	dir := t.TempDir()

	a := openTestArchive(t, filepath.Join(dir, "chunk0patch2.rpkg"), []testResource{
		{hash: 0x00AB, typ: "MATT", data: []byte("values"),
			refs: []Reference{{Hash: 0x0033, Flag: 0x9F}}},
	})

	overview, err := OverviewInfo([]*Archive{a}, "00000000000000AB")
	require.NoError(t, err)
	assert.Equal(t, "MATT", overview.Type)
	assert.Equal(t, "chunk0patch2", overview.Archive)
	require.Len(t, overview.References, 1)
	assert.Equal(t, uint64(0x0033), overview.References[0].Hash)
	assert.Equal(t, byte(0x9F), overview.References[0].Flag)
}

func TestOpenRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chunk0.rpkg")
	require.NoError(t, os.WriteFile(path, []byte("NOPE\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00"), 0644))

	_, err := Open(path)
	assert.ErrorIs(t, err, codec.ErrMalformedHeader)
}

func TestOpenRejectsOversizedDeletionList(t *testing.T) {
	// The deletion count field must be validated against the file size
	// before it sizes an allocation.
	dir := t.TempDir()
	path := filepath.Join(dir, "chunk0patch1.rpkg")

	var out bytes.Buffer
	out.WriteString(magicV1)
	binary.Write(&out, binary.LittleEndian, uint32(0)) // file count
	binary.Write(&out, binary.LittleEndian, uint32(0)) // entry table size
	binary.Write(&out, binary.LittleEndian, uint32(0)) // resource table size
	binary.Write(&out, binary.LittleEndian, uint32(0xFFFFFFFF))
	require.NoError(t, os.WriteFile(path, out.Bytes(), 0644))

	_, err := Open(path)
	assert.ErrorIs(t, err, codec.ErrMalformedHeader)
}

func TestOpenRejectsOversizedTables(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chunk0.rpkg")

	var out bytes.Buffer
	out.WriteString(magicV1)
	binary.Write(&out, binary.LittleEndian, uint32(0x0CCCCCCC))
	binary.Write(&out, binary.LittleEndian, uint32(0x0CCCCCCC*entrySize))
	binary.Write(&out, binary.LittleEndian, uint32(0))
	require.NoError(t, os.WriteFile(path, out.Bytes(), 0644))

	_, err := Open(path)
	assert.ErrorIs(t, err, codec.ErrMalformedHeader)
}

func TestDiscoverArchivesOrdering(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"chunk0.rpkg", "chunk0patch2.rpkg", "chunk0patch1.rpkg", "chunk1.rpkg", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("stub"), 0644))
	}

	paths, err := DiscoverArchives(dir)
	require.NoError(t, err)

	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	assert.Equal(t, []string{"chunk0patch2.rpkg", "chunk0patch1.rpkg", "chunk0.rpkg", "chunk1.rpkg"}, names)
}
