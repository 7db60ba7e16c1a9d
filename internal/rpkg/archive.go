// Package rpkg reads Glacier-engine resource package archives: the
// directory of hashed entries at the front of each archive, and the
// scrambled, block-compressed payloads the directory points at.
package rpkg

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/atampy25/glacierdb/internal/codec"
)

const (
	magicV1 = "GKPR"
	magicV2 = "2KPR"

	// Extra header bytes carried by v2 archives after the magic.
	v2HeaderPad = 9

	entrySize = 20 // u64 hash + u64 offset + u32 size/flags
)

// Archive is an opened resource package. The directory is parsed eagerly
// on Open; payload bytes are read on demand via seeks on the underlying
// file. An Archive is read-only and safe for concurrent metadata lookups,
// but payload reads share one file cursor and must not run in parallel on
// the same Archive.
type Archive struct {
	file    *os.File
	path    string
	name    string
	isPatch bool

	entries []ArchiveEntry
	headers []ResourceHeader
	index   map[uint64]int
	deleted []uint64
}

// Open opens an archive file and parses its directory.
func Open(path string) (*Archive, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	a := &Archive{
		file:    file,
		path:    path,
		name:    name,
		isPatch: strings.Contains(strings.ToLower(name), "patch"),
	}

	if err := a.readDirectory(); err != nil {
		file.Close()
		return nil, fmt.Errorf("reading directory of %s: %w", name, err)
	}

	return a, nil
}

// Name returns the archive's base file name without extension.
func (a *Archive) Name() string { return a.name }

// Path returns the archive's file path.
func (a *Archive) Path() string { return a.path }

// Close closes the underlying file.
func (a *Archive) Close() error {
	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	return err
}

// EntryCount returns the number of resources in the archive's directory.
func (a *Archive) EntryCount() int { return len(a.entries) }

// Contains reports whether the archive's directory lists the runtime ID.
func (a *Archive) Contains(id uint64) bool {
	_, ok := a.index[id]
	return ok
}

// Deletions returns the runtime IDs this patch archive marks as deleted.
// Empty for base archives.
func (a *Archive) Deletions() []uint64 { return a.deleted }

// Entry returns the directory row and resource header at position i.
func (a *Archive) Entry(i int) (ArchiveEntry, *ResourceHeader) {
	return a.entries[i], &a.headers[i]
}

func (a *Archive) lookup(id uint64) (int, bool) {
	i, ok := a.index[id]
	return i, ok
}

// readPayload reads the entry's raw on-disk bytes, still scrambled and
// compressed as stored.
func (a *Archive) readPayload(e ArchiveEntry) ([]byte, error) {
	if _, err := a.file.Seek(int64(e.DataOffset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("seeking to resource data: %w", err)
	}
	data := make([]byte, e.FinalSize())
	if _, err := io.ReadFull(a.file, data); err != nil {
		return nil, fmt.Errorf("reading resource data: %w", err)
	}
	return data, nil
}

func (a *Archive) readDirectory() error {
	var magic [4]byte
	if _, err := io.ReadFull(a.file, magic[:]); err != nil {
		return fmt.Errorf("reading magic: %w", err)
	}

	switch string(magic[:]) {
	case magicV1:
	case magicV2:
		if _, err := a.file.Seek(v2HeaderPad, io.SeekCurrent); err != nil {
			return fmt.Errorf("skipping v2 header: %w", err)
		}
	default:
		return fmt.Errorf("bad archive magic %q: %w", magic[:], codec.ErrMalformedHeader)
	}

	var sizes [3]uint32
	if err := binary.Read(a.file, binary.LittleEndian, &sizes); err != nil {
		return fmt.Errorf("reading table sizes: %w", err)
	}
	fileCount, entryTableSize, resourceTableSize := sizes[0], sizes[1], sizes[2]

	if uint64(fileCount)*entrySize != uint64(entryTableSize) {
		return fmt.Errorf("entry table size %d does not match %d entries: %w",
			entryTableSize, fileCount, codec.ErrMalformedHeader)
	}

	// Size fields come from the file and drive allocations below; none
	// may claim more bytes than the file holds.
	info, err := a.file.Stat()
	if err != nil {
		return fmt.Errorf("inspecting archive: %w", err)
	}
	fileSize := uint64(info.Size())
	if uint64(entryTableSize)+uint64(resourceTableSize) > fileSize {
		return fmt.Errorf("tables of %d bytes exceed the %d-byte file: %w",
			uint64(entryTableSize)+uint64(resourceTableSize), fileSize, codec.ErrMalformedHeader)
	}

	// Patch archives carry a deletion list between the header and the
	// entry table.
	if a.isPatch {
		var deletedCount uint32
		if err := binary.Read(a.file, binary.LittleEndian, &deletedCount); err != nil {
			return fmt.Errorf("reading deletion count: %w", err)
		}
		if uint64(deletedCount)*8 > fileSize {
			return fmt.Errorf("deletion list of %d entries exceeds the %d-byte file: %w",
				deletedCount, fileSize, codec.ErrMalformedHeader)
		}
		a.deleted = make([]uint64, deletedCount)
		if err := binary.Read(a.file, binary.LittleEndian, a.deleted); err != nil {
			return fmt.Errorf("reading deletion list: %w", err)
		}
	}

	entryData := make([]byte, entryTableSize)
	if _, err := io.ReadFull(a.file, entryData); err != nil {
		return fmt.Errorf("reading entry table: %w", err)
	}

	a.entries = make([]ArchiveEntry, fileCount)
	a.index = make(map[uint64]int, fileCount)
	for i := range a.entries {
		p := i * entrySize
		a.entries[i] = ArchiveEntry{
			Hash:                   binary.LittleEndian.Uint64(entryData[p:]),
			DataOffset:             binary.LittleEndian.Uint64(entryData[p+8:]),
			CompressedSizeAndFlags: binary.LittleEndian.Uint32(entryData[p+16:]),
		}
		a.index[a.entries[i].Hash] = i
	}

	resourceData := make([]byte, resourceTableSize)
	if _, err := io.ReadFull(a.file, resourceData); err != nil {
		return fmt.Errorf("reading resource table: %w", err)
	}

	a.headers = make([]ResourceHeader, fileCount)
	p := 0
	for i := range a.headers {
		if p+24 > len(resourceData) {
			return fmt.Errorf("resource table truncated at entry %d: %w", i, codec.ErrMalformedHeader)
		}

		h := &a.headers[i]
		h.Type = reverseTag(resourceData[p : p+4])
		h.ReferencesChunkSize = binary.LittleEndian.Uint32(resourceData[p+4:])
		h.StatesChunkSize = binary.LittleEndian.Uint32(resourceData[p+8:])
		h.DataSize = binary.LittleEndian.Uint32(resourceData[p+12:])
		h.MemoryRequirement = binary.LittleEndian.Uint32(resourceData[p+16:])
		h.VideoMemoryRequirement = binary.LittleEndian.Uint32(resourceData[p+20:])
		p += 24

		if h.ReferencesChunkSize == 0 {
			continue
		}
		if p+4 > len(resourceData) {
			return fmt.Errorf("reference table truncated at entry %d: %w", i, codec.ErrMalformedHeader)
		}
		count := int(binary.LittleEndian.Uint32(resourceData[p:]) & 0x3FFFFFFF)
		p += 4
		if p+count*9 > len(resourceData) {
			return fmt.Errorf("reference list truncated at entry %d: %w", i, codec.ErrMalformedHeader)
		}
		h.References = make([]Reference, count)
		for j := range h.References {
			h.References[j].Flag = resourceData[p+j]
		}
		p += count
		for j := range h.References {
			h.References[j].Hash = binary.LittleEndian.Uint64(resourceData[p+j*8:])
		}
		p += count * 8
	}

	if p != len(resourceData) {
		return fmt.Errorf("resource table has %d trailing bytes: %w", len(resourceData)-p, codec.ErrMalformedHeader)
	}

	return nil
}

// reverseTag converts an on-disk type tag (stored in reverse byte order)
// to its readable four-character form.
func reverseTag(raw []byte) string {
	return string([]byte{raw[3], raw[2], raw[1], raw[0]})
}
