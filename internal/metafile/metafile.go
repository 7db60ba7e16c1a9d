// Package metafile encodes and decodes the sidecar descriptor format
// written next to extracted resources. Round-trip fidelity with existing
// .meta files is a hard requirement: Generate(Parse(x)) must reproduce x
// byte for byte for any file Generate can produce.
package metafile

import (
	"encoding/binary"
	"fmt"
	"unicode"

	"github.com/atampy25/glacierdb/internal/codec"
	"github.com/atampy25/glacierdb/internal/rpkg"
)

const headerSize = 44

// refCountMarker is OR'd into the stored reference count when a
// dependency table is present; Parse masks the top two bits back off.
const refCountMarker = 0xC0000000

// Parse decodes a sidecar descriptor into a ResourceMeta. Dependency
// paths are rendered as hex, since no hash list is consulted here.
func Parse(data []byte) (*rpkg.ResourceMeta, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("descriptor is %d bytes, need at least %d: %w",
			len(data), headerSize, codec.ErrMalformedHeader)
	}

	meta := &rpkg.ResourceMeta{
		Hash:                   binary.LittleEndian.Uint64(data[0:]),
		DataOffset:             binary.LittleEndian.Uint64(data[8:]),
		CompressedSizeAndFlags: binary.LittleEndian.Uint32(data[16:]),
		Type:                   string([]byte{data[23], data[22], data[21], data[20]}),
		StatesChunkSize:        binary.LittleEndian.Uint32(data[28:]),
		DataSize:               binary.LittleEndian.Uint32(data[32:]),
		MemoryRequirement:      binary.LittleEndian.Uint32(data[36:]),
		VideoMemoryRequirement: binary.LittleEndian.Uint32(data[40:]),
	}

	for _, c := range meta.Type {
		if c > unicode.MaxASCII || !unicode.IsPrint(c) {
			return nil, fmt.Errorf("type tag %q is not printable ASCII: %w", meta.Type, codec.ErrMalformedHeader)
		}
	}

	refChunkSize := binary.LittleEndian.Uint32(data[24:])
	if refChunkSize == 0 {
		if len(data) != headerSize {
			return nil, fmt.Errorf("descriptor has %d trailing bytes: %w",
				len(data)-headerSize, codec.ErrMalformedHeader)
		}
		return meta, nil
	}

	if len(data) < headerSize+4 {
		return nil, fmt.Errorf("reference table truncated: %w", codec.ErrMalformedHeader)
	}
	count := int(binary.LittleEndian.Uint32(data[headerSize:]) & 0x3FFFFFFF)

	want := headerSize + 4 + count*9
	if len(data) != want {
		return nil, fmt.Errorf("descriptor is %d bytes, expected %d for %d references: %w",
			len(data), want, count, codec.ErrSizeMismatch)
	}

	flags := data[headerSize+4:]
	hashes := data[headerSize+4+count:]
	meta.Dependencies = make([]rpkg.Dependency, count)
	for i := range meta.Dependencies {
		hash := binary.LittleEndian.Uint64(hashes[i*8:])
		meta.Dependencies[i] = rpkg.Dependency{
			Hash: hash,
			Flag: flags[i],
			Path: rpkg.RuntimeIDString(hash),
		}
	}

	return meta, nil
}

// Generate encodes a ResourceMeta as a sidecar descriptor. The
// reference-table-size field is always recomputed from the actual
// dependency count rather than trusted from a stored value.
func Generate(meta *rpkg.ResourceMeta) ([]byte, error) {
	if len(meta.Type) != 4 {
		return nil, fmt.Errorf("type tag %q is not 4 characters: %w", meta.Type, codec.ErrMalformedHeader)
	}

	count := len(meta.Dependencies)
	if uint64(count) > 0x3FFFFFFF {
		return nil, fmt.Errorf("%d references exceed the 30-bit count field: %w", count, codec.ErrOverflow)
	}

	refChunkSize := uint32(0)
	size := headerSize
	if count > 0 {
		refChunkSize = uint32(count*9 + 4)
		size += 4 + count*9
	}

	out := make([]byte, size)
	binary.LittleEndian.PutUint64(out[0:], meta.Hash)
	binary.LittleEndian.PutUint64(out[8:], meta.DataOffset)
	binary.LittleEndian.PutUint32(out[16:], meta.CompressedSizeAndFlags)
	out[20], out[21], out[22], out[23] = meta.Type[3], meta.Type[2], meta.Type[1], meta.Type[0]
	binary.LittleEndian.PutUint32(out[24:], refChunkSize)
	binary.LittleEndian.PutUint32(out[28:], meta.StatesChunkSize)
	binary.LittleEndian.PutUint32(out[32:], meta.DataSize)
	binary.LittleEndian.PutUint32(out[36:], meta.MemoryRequirement)
	binary.LittleEndian.PutUint32(out[40:], meta.VideoMemoryRequirement)

	if count > 0 {
		binary.LittleEndian.PutUint32(out[headerSize:], uint32(count)|refCountMarker)
		flags := out[headerSize+4:]
		hashes := out[headerSize+4+count:]
		for i, dep := range meta.Dependencies {
			flags[i] = dep.Flag
			binary.LittleEndian.PutUint64(hashes[i*8:], dep.Hash)
		}
	}

	return out, nil
}
