package rpkg

import "fmt"

// ArchiveEntry is one row of an archive's directory: where a resource's
// payload lives and how it is stored.
type ArchiveEntry struct {
	Hash                   uint64
	DataOffset             uint64
	CompressedSizeAndFlags uint32
}

// FinalSize returns the on-disk payload size in bytes (low 30 bits of the
// packed size/flags field).
func (e ArchiveEntry) FinalSize() uint32 {
	return e.CompressedSizeAndFlags & 0x3FFFFFFF
}

// Scrambled reports whether the payload is XOR-scrambled on disk (bit 31).
func (e ArchiveEntry) Scrambled() bool {
	return e.CompressedSizeAndFlags&0x80000000 != 0
}

// Reference is one (hash, flag) dependency pair from a resource header.
type Reference struct {
	Hash uint64
	Flag byte
}

// ResourceHeader is the per-resource row of an archive's resource table.
// The type tag is stored reversed on disk; Type holds the readable form.
type ResourceHeader struct {
	Type                   string
	ReferencesChunkSize    uint32
	StatesChunkSize        uint32
	DataSize               uint32
	MemoryRequirement      uint32
	VideoMemoryRequirement uint32
	References             []Reference
}

// Dependency is a reference with its hash resolved to a human path when
// the hash list knows one, and rendered as 16 hex digits otherwise.
type Dependency struct {
	Hash uint64
	Flag byte
	Path string
}

// ResourceMeta aggregates an archive entry's offset/size fields with its
// resource header. It is built fresh per extraction call and never
// mutated afterwards; any caching happens outside this package.
type ResourceMeta struct {
	Hash                   uint64
	DataOffset             uint64
	CompressedSizeAndFlags uint32
	Type                   string
	StatesChunkSize        uint32
	DataSize               uint32
	MemoryRequirement      uint32
	VideoMemoryRequirement uint32
	Dependencies           []Dependency
}

// Overview is the minimal inspection record for a resource: its type, the
// base name of the archive that owns it, and its raw dependency pairs.
type Overview struct {
	Type       string
	Archive    string
	References []Reference
}

// RuntimeIDString renders a runtime ID as 16 uppercase hex digits.
func RuntimeIDString(id uint64) string {
	return fmt.Sprintf("%016X", id)
}
