package main

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atampy25/glacierdb/internal/hashlist"
)

func loadTestHashList(t *testing.T, entries []hashlist.Entry) *hashlist.HashList {
	t.Helper()

	raw, err := cbor.Marshal(entries)
	require.NoError(t, err)

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer enc.Close()

	hl, err := hashlist.Load(enc.EncodeAll(raw, nil))
	require.NoError(t, err)
	return hl
}

func TestDescribeIdentifier(t *testing.T) {
	hl := loadTestHashList(t, []hashlist.Entry{
		{ResourceType: "TEXT", Hash: 0x00AA, Path: "[assets/textures/brick.texture].pc_tex"},
		{ResourceType: "WWEV", Hash: 0x00BB, Path: "[assets/sound/evt.wwes].pc_wwes", Hint: "explosion"},
	})

	line, err := describeIdentifier(hl, "00000000000000AA")
	require.NoError(t, err)
	assert.Equal(t, "00000000000000AA  TEXT  [assets/textures/brick.texture].pc_tex", line)

	line, err = describeIdentifier(hl, "00000000000000BB")
	require.NoError(t, err)
	assert.Contains(t, line, "(explosion)")

	line, err = describeIdentifier(hl, "00000000000000CC")
	require.NoError(t, err)
	assert.Equal(t, "00000000000000CC  unknown", line)

	_, err = describeIdentifier(hl, "0notahash")
	assert.Error(t, err)
}
