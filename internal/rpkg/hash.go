package rpkg

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// PathToRuntimeID computes the engine's runtime ID for a resource path:
// MD5 of the lowercased path, truncated to 64 bits big-endian, with the
// top byte forced to zero.
func PathToRuntimeID(path string) uint64 {
	sum := md5.Sum([]byte(strings.ToLower(path)))
	return binary.BigEndian.Uint64(sum[:8]) & 0x00FFFFFFFFFFFFFF
}

// NormalizeIdentifier turns a user-supplied identifier into a runtime ID.
// Identifiers starting with '0' are assumed to already be hashes, since
// every runtime ID has a zero top byte. A literal path that begins with
// the digit zero would be misclassified here; the heuristic is kept as-is
// for compatibility with existing tooling.
func NormalizeIdentifier(identifier string) (uint64, error) {
	if strings.HasPrefix(identifier, "0") {
		id, err := strconv.ParseUint(identifier, 16, 64)
		if err != nil {
			return 0, fmt.Errorf("parsing runtime ID %q: %w", identifier, err)
		}
		return id, nil
	}
	return PathToRuntimeID(identifier), nil
}
