package ores

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atampy25/glacierdb/internal/codec"
)

func TestHashesRoundTrip(t *testing.T) {
	entries := map[uint64]string{
		0x00ABCDEF12345678: "[assets/blobs/ui/icon.png].pc_webp",
		0x0011223344556677: "[assets/blobs/ui/background.jpg].pc_webp",
		0x00DEADBEEF001122: "x",
	}

	encoded, err := GenerateHashes(entries)
	require.NoError(t, err)

	decoded, err := ParseHashes(encoded)
	require.NoError(t, err)
	assert.Equal(t, entries, decoded)

	// Byte-exact regeneration.
	reencoded, err := GenerateHashes(decoded)
	require.NoError(t, err)
	assert.Equal(t, encoded, reencoded)
}

func TestHashesSingleEntry(t *testing.T) {
	entries := map[uint64]string{0x00AA: "only"}

	encoded, err := GenerateHashes(entries)
	require.NoError(t, err)

	decoded, err := ParseHashes(encoded)
	require.NoError(t, err)
	assert.Equal(t, entries, decoded)
}

func TestHashesGenerateIsDeterministic(t *testing.T) {
	entries := map[uint64]string{
		0x0001: "a", 0x0002: "b", 0x0003: "c", 0x0004: "d", 0x0005: "e",
	}

	first, err := GenerateHashes(entries)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := GenerateHashes(entries)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestHashesRejectsEmptyMap(t *testing.T) {
	_, err := GenerateHashes(map[uint64]string{})
	assert.Error(t, err)
}

func TestHashesRejectsBadMagic(t *testing.T) {
	encoded, err := GenerateHashes(map[uint64]string{0x00AA: "v"})
	require.NoError(t, err)

	encoded[0] ^= 0xFF
	_, err = ParseHashes(encoded)
	assert.ErrorIs(t, err, codec.ErrMalformedHeader)
}

func TestHashesRejectsTruncation(t *testing.T) {
	encoded, err := GenerateHashes(map[uint64]string{0x00AA: "value"})
	require.NoError(t, err)

	_, err = ParseHashes(encoded[:len(encoded)-1])
	require.Error(t, err)
}

func TestNibbleReversedIDIsInvolution(t *testing.T) {
	var buf [8]byte
	for _, id := range []uint64{0, 0x00ABCDEF12345678, 0xFFFFFFFFFFFFFFFF, 1} {
		putNibbleReversedID(buf[:], id)
		assert.Equal(t, id, nibbleReversedID(buf[:]))
	}

	// Spot-check the stored form: hex digits of the ID in reverse order.
	putNibbleReversedID(buf[:], 0x0123456789ABCDEF)
	assert.Equal(t, [8]byte{0xFE, 0xDC, 0xBA, 0x98, 0x76, 0x54, 0x32, 0x10}, buf)
}
