// Package ores implements the two small container formats used for
// runtime key-value blobs: a hash-to-string table and a JSON wrapper.
// Both codecs are exact inverses of each other; generating and re-parsing
// any container reproduces the input, and re-generating a parsed
// container reproduces the original bytes.
package ores

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/atampy25/glacierdb/internal/codec"
)

var hashesMagic = [8]byte{'B', 'I', 'N', '1', 0x00, 0x08, 0x01, 0x00}

const (
	// The offset table carries three reserved slots before the first
	// real entry.
	reservedSlots = 3

	hashesHeaderSize = 16
	recordSize       = 16
	trailerSize      = 16
)

// ParseHashes decodes a hashes container into its hash-to-string map.
func ParseHashes(data []byte) (map[uint64]string, error) {
	if len(data) < hashesHeaderSize+4+trailerSize {
		return nil, fmt.Errorf("hashes container is %d bytes, too small: %w", len(data), codec.ErrMalformedHeader)
	}
	if !bytes.Equal(data[:8], hashesMagic[:]) {
		return nil, fmt.Errorf("bad hashes container magic: %w", codec.ErrMalformedHeader)
	}

	endOfStrings := int(binary.BigEndian.Uint32(data[8:]))
	if endOfStrings < hashesHeaderSize || endOfStrings+4 > len(data) {
		return nil, fmt.Errorf("end-of-strings offset %d out of bounds: %w", endOfStrings, codec.ErrMalformedHeader)
	}

	tableCount := int(binary.LittleEndian.Uint32(data[endOfStrings:]))
	if tableCount < reservedSlots+1 {
		return nil, fmt.Errorf("offset table has %d slots, need more than %d: %w",
			tableCount, reservedSlots, codec.ErrMalformedHeader)
	}
	entryCount := tableCount - reservedSlots

	offsetsAt := endOfStrings + 4
	recordsAt := offsetsAt + tableCount*4
	trailerAt := recordsAt + entryCount*recordSize
	if trailerAt+trailerSize != len(data) {
		return nil, fmt.Errorf("hashes container is %d bytes, expected %d: %w",
			len(data), trailerAt+trailerSize, codec.ErrSizeMismatch)
	}

	// Entry i's record offset lives after the reserved slots and must
	// point at the i-th 16-byte record.
	for i := 0; i < entryCount; i++ {
		at := int(binary.LittleEndian.Uint32(data[offsetsAt+(reservedSlots+i)*4:]))
		if at != recordsAt+i*recordSize {
			return nil, fmt.Errorf("record offset %d of entry %d is misplaced: %w", at, i, codec.ErrMalformedHeader)
		}
	}

	// Strings pair with records positionally: the pool from the header to
	// endOfStrings holds one aligned, length-prefixed string per entry.
	result := make(map[uint64]string, entryCount)
	p := hashesHeaderSize
	for i := 0; i < entryCount; i++ {
		if p+4 > endOfStrings {
			return nil, fmt.Errorf("string pool exhausted at entry %d: %w", i, codec.ErrMalformedHeader)
		}
		n := int(binary.LittleEndian.Uint32(data[p:]))
		p += 4
		if n < 1 || p+n > endOfStrings {
			return nil, fmt.Errorf("string %d of length %d overruns the pool: %w", i, n, codec.ErrMalformedHeader)
		}
		if data[p+n-1] != 0 {
			return nil, fmt.Errorf("string %d is not NUL-terminated: %w", i, codec.ErrMalformedHeader)
		}
		value := string(data[p : p+n-1])
		if !utf8.ValidString(value) {
			return nil, fmt.Errorf("string %d is not valid UTF-8: %w", i, codec.ErrInvalidEncoding)
		}
		p += n + pad4(n)

		hash := nibbleReversedID(data[recordsAt+i*recordSize+8:])
		result[hash] = value
	}

	if p != endOfStrings {
		return nil, fmt.Errorf("string pool has %d trailing bytes: %w", endOfStrings-p, codec.ErrMalformedHeader)
	}

	return result, nil
}

// GenerateHashes encodes a hash-to-string map as a hashes container.
// Entries are written in ascending hash order so output is deterministic.
// An empty map is rejected rather than emitted as a degenerate container.
func GenerateHashes(entries map[uint64]string) ([]byte, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("refusing to write an empty hashes container: %w", codec.ErrMalformedHeader)
	}

	hashes := make([]uint64, 0, len(entries))
	for hash := range entries {
		hashes = append(hashes, hash)
	}
	sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })

	poolSize := 0
	for _, hash := range hashes {
		n := len(entries[hash]) + 1
		poolSize += 4 + n + pad4(n)
	}

	entryCount := len(hashes)
	tableCount := entryCount + reservedSlots
	endOfStrings := hashesHeaderSize + poolSize
	recordsAt := endOfStrings + 4 + tableCount*4
	total := recordsAt + entryCount*recordSize + trailerSize

	out := make([]byte, total)
	copy(out, hashesMagic[:])
	binary.BigEndian.PutUint32(out[8:], uint32(endOfStrings))

	p := hashesHeaderSize
	for _, hash := range hashes {
		value := entries[hash]
		n := len(value) + 1
		binary.LittleEndian.PutUint32(out[p:], uint32(n))
		p += 4
		copy(out[p:], value)
		p += n + pad4(n)
	}

	binary.LittleEndian.PutUint32(out[endOfStrings:], uint32(tableCount))
	for i := range hashes {
		binary.LittleEndian.PutUint32(out[endOfStrings+4+(reservedSlots+i)*4:], uint32(recordsAt+i*recordSize))
	}

	for i, hash := range hashes {
		putNibbleReversedID(out[recordsAt+i*recordSize+8:], hash)
	}

	trailer := out[recordsAt+entryCount*recordSize:]
	binary.LittleEndian.PutUint32(trailer[0:], uint32(endOfStrings))
	binary.LittleEndian.PutUint32(trailer[4:], uint32(recordsAt))
	binary.LittleEndian.PutUint32(trailer[8:], hashesHeaderSize)
	binary.LittleEndian.PutUint32(trailer[12:], uint32(entryCount))

	return out, nil
}

// pad4 returns the padding needed to 4-align a string of n bytes
// (including its length prefix, which is itself 4 bytes).
func pad4(n int) int {
	return (4 - n%4) % 4
}

// nibbleReversedID reads a runtime ID stored with its hex digits in
// reverse order: byte i of the stored form is the nibble-swapped byte i
// of the little-endian ID. The transform is its own inverse.
func nibbleReversedID(raw []byte) uint64 {
	var id uint64
	for i := 0; i < 8; i++ {
		b := raw[i]>>4 | raw[i]<<4
		id |= uint64(b) << (8 * i)
	}
	return id
}

func putNibbleReversedID(dst []byte, id uint64) {
	for i := 0; i < 8; i++ {
		b := byte(id >> (8 * i))
		dst[i] = b>>4 | b<<4
	}
}
