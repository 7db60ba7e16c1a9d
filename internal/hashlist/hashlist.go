// Package hashlist loads the community hash list: a zstd-compressed,
// cbor-encoded table mapping runtime IDs to resource types and human
// paths. The list is loaded once at startup and read-only afterwards.
package hashlist

import (
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

// Entry is one hash-list row. Path and Hint are empty when unknown.
type Entry struct {
	ResourceType string `cbor:"type"`
	Hash         uint64 `cbor:"hash"`
	Path         string `cbor:"path,omitempty"`
	Hint         string `cbor:"hint,omitempty"`
	GameFlags    uint8  `cbor:"flags,omitempty"`
}

// sortKey orders entries deterministically regardless of source order.
func (e Entry) sortKey() string {
	return e.Path + e.Hint + fmt.Sprintf("%016X", e.Hash)
}

// HashList is the immutable in-memory index built by Load.
type HashList struct {
	entries map[uint64]Entry
}

// Load decompresses and decodes a packaged hash-list blob. Entries are
// re-sorted by path+hint+hash before folding into the map, so two blobs
// with the same rows in different order always build the same list.
func Load(blob []byte) (*HashList, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("initialising decompressor: %w", err)
	}
	defer dec.Close()

	raw, err := dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("couldn't decompress hash list: %w", err)
	}

	var entries []Entry
	if err := cbor.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("couldn't decode hash list: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].sortKey() < entries[j].sortKey()
	})

	m := make(map[uint64]Entry, len(entries))
	for _, e := range entries {
		m[e.Hash] = e
	}

	return &HashList{entries: m}, nil
}

// Len returns the number of distinct hashes in the list.
func (h *HashList) Len() int { return len(h.entries) }

// Lookup returns the entry for a runtime ID.
func (h *HashList) Lookup(id uint64) (Entry, bool) {
	e, ok := h.entries[id]
	return e, ok
}

// LookupPath returns the known path for a runtime ID, if any.
func (h *HashList) LookupPath(id uint64) (string, bool) {
	e, ok := h.entries[id]
	if !ok || e.Path == "" {
		return "", false
	}
	return e.Path, true
}

// DisplayPath returns the known path for a runtime ID, falling back to
// the 16-hex-digit rendering when the list has no path for it.
func (h *HashList) DisplayPath(id uint64) string {
	if path, ok := h.LookupPath(id); ok {
		return path
	}
	return fmt.Sprintf("%016X", id)
}
