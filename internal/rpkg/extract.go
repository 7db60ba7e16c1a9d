package rpkg

import (
	"fmt"

	"github.com/pierrec/lz4/v4"

	"github.com/atampy25/glacierdb/internal/codec"
	"github.com/atampy25/glacierdb/internal/hashlist"
)

// scrambleKey is the fixed repeating XOR key applied to scrambled
// payloads. XOR is its own inverse, so Descramble both hides and reveals.
var scrambleKey = [8]byte{0xDC, 0x45, 0xA6, 0x9C, 0xD3, 0x72, 0x4C, 0xAB}

// Descramble XORs data in place with the fixed repeating key.
func Descramble(data []byte) {
	for i := range data {
		data[i] ^= scrambleKey[i%len(scrambleKey)]
	}
}

// ExtractLatest locates identifier in the first archive of the ordered
// list that contains it, reads the payload, de-scrambles and decompresses
// it, and returns the payload alongside a freshly built ResourceMeta.
// Earlier archives take precedence; archives after the first match are
// never consulted. The hash list may be nil, in which case dependency
// paths fall back to hex renderings.
func ExtractLatest(archives []*Archive, hl *hashlist.HashList, identifier string) (*ResourceMeta, []byte, error) {
	id, err := NormalizeIdentifier(identifier)
	if err != nil {
		return nil, nil, err
	}

	for _, a := range archives {
		i, ok := a.lookup(id)
		if !ok {
			continue
		}
		entry, header := a.entries[i], &a.headers[i]

		raw, err := a.readPayload(entry)
		if err != nil {
			return nil, nil, fmt.Errorf("extracting %s from %s: %w", RuntimeIDString(id), a.name, err)
		}
		if entry.Scrambled() {
			Descramble(raw)
		}

		data := raw
		if entry.FinalSize() != header.DataSize {
			data, err = decompress(raw, header.DataSize)
			if err != nil {
				return nil, nil, fmt.Errorf("extracting %s from %s: %w", RuntimeIDString(id), a.name, err)
			}
		}

		return buildMeta(entry, header, hl), data, nil
	}

	return nil, nil, fmt.Errorf("%s not present in any archive: %w", identifier, codec.ErrNotFound)
}

// ExtractLatestMeta is the metadata-only sibling of ExtractLatest: it
// resolves the same entry but skips the payload read entirely.
func ExtractLatestMeta(archives []*Archive, hl *hashlist.HashList, identifier string) (*ResourceMeta, error) {
	id, err := NormalizeIdentifier(identifier)
	if err != nil {
		return nil, err
	}

	for _, a := range archives {
		if i, ok := a.lookup(id); ok {
			entry, header := a.entries[i], &a.headers[i]
			return buildMeta(entry, header, hl), nil
		}
	}

	return nil, fmt.Errorf("%s not present in any archive: %w", identifier, codec.ErrNotFound)
}

// OverviewInfo returns the type tag, owning archive name and raw
// dependency pairs for identifier, without resolving paths or reading
// payload bytes.
func OverviewInfo(archives []*Archive, identifier string) (*Overview, error) {
	id, err := NormalizeIdentifier(identifier)
	if err != nil {
		return nil, err
	}

	for _, a := range archives {
		if i, ok := a.lookup(id); ok {
			header := &a.headers[i]
			refs := make([]Reference, len(header.References))
			copy(refs, header.References)
			return &Overview{
				Type:       header.Type,
				Archive:    a.name,
				References: refs,
			}, nil
		}
	}

	return nil, fmt.Errorf("%s not present in any archive: %w", identifier, codec.ErrNotFound)
}

// decompress block-decompresses raw to exactly dataSize bytes. Any other
// resulting length is a hard failure, never truncated or padded.
func decompress(raw []byte, dataSize uint32) ([]byte, error) {
	out := make([]byte, dataSize)
	n, err := lz4.UncompressBlock(raw, out)
	if err != nil {
		return nil, fmt.Errorf("couldn't decompress data: %w", err)
	}
	if n != int(dataSize) {
		return nil, fmt.Errorf("decompressed to %d bytes, expected %d: %w", n, dataSize, codec.ErrSizeMismatch)
	}
	return out, nil
}

func buildMeta(entry ArchiveEntry, header *ResourceHeader, hl *hashlist.HashList) *ResourceMeta {
	deps := make([]Dependency, len(header.References))
	for i, ref := range header.References {
		path := RuntimeIDString(ref.Hash)
		if hl != nil {
			path = hl.DisplayPath(ref.Hash)
		}
		deps[i] = Dependency{Hash: ref.Hash, Flag: ref.Flag, Path: path}
	}

	return &ResourceMeta{
		Hash:                   entry.Hash,
		DataOffset:             entry.DataOffset,
		CompressedSizeAndFlags: entry.CompressedSizeAndFlags,
		Type:                   header.Type,
		StatesChunkSize:        header.StatesChunkSize,
		DataSize:               header.DataSize,
		MemoryRequirement:      header.MemoryRequirement,
		VideoMemoryRequirement: header.VideoMemoryRequirement,
		Dependencies:           deps,
	}
}
