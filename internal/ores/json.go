package ores

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/atampy25/glacierdb/internal/codec"
)

var jsonMagic = [8]byte{'B', 'I', 'N', '1', 0x00, 0x04, 0x01, 0x00}

const (
	// isJSONFlag marks the payload-length field of a JSON container.
	isJSONFlag = 0x80000000

	jsonPayloadStart = 36
	jsonTrailerSize  = 17 // terminating NUL plus 16 fixed bytes
)

// ParseJSON slices the payload region out of a JSON container and
// decodes it into v.
func ParseJSON(data []byte, v any) error {
	if len(data) < jsonPayloadStart+jsonTrailerSize {
		return fmt.Errorf("JSON container is %d bytes, too small: %w", len(data), codec.ErrMalformedHeader)
	}
	if !bytes.Equal(data[:8], jsonMagic[:]) {
		return fmt.Errorf("bad JSON container magic: %w", codec.ErrMalformedHeader)
	}

	if total := binary.BigEndian.Uint32(data[8:]); int(total) != len(data) {
		return fmt.Errorf("container declares %d bytes but has %d: %w", total, len(data), codec.ErrSizeMismatch)
	}

	payloadLen := binary.LittleEndian.Uint32(data[16:])
	if payloadLen&isJSONFlag == 0 {
		return fmt.Errorf("is-JSON flag not set: %w", codec.ErrMalformedHeader)
	}

	// The payload region runs from offset 36 to the trailer; its NUL
	// terminator is the first trailer byte.
	text := data[jsonPayloadStart : len(data)-jsonTrailerSize]
	if int(payloadLen&^uint32(isJSONFlag)) != len(text)+1 {
		return fmt.Errorf("payload length field disagrees with container size: %w", codec.ErrSizeMismatch)
	}
	if prefix := binary.LittleEndian.Uint32(data[32:]); int(prefix) != len(text)+1 {
		return fmt.Errorf("payload length prefix disagrees with container size: %w", codec.ErrSizeMismatch)
	}
	if data[len(data)-jsonTrailerSize] != 0 {
		return fmt.Errorf("payload is not NUL-terminated: %w", codec.ErrMalformedHeader)
	}
	if !utf8.Valid(text) {
		return fmt.Errorf("payload is not valid UTF-8: %w", codec.ErrInvalidEncoding)
	}

	if err := json.Unmarshal(text, v); err != nil {
		return fmt.Errorf("decoding JSON payload: %w", err)
	}
	return nil
}

// GenerateJSON encodes v as the JSON payload of a container. It is the
// exact byte-for-byte inverse of ParseJSON.
func GenerateJSON(v any) ([]byte, error) {
	text, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding JSON payload: %w", err)
	}

	total := jsonPayloadStart + len(text) + jsonTrailerSize
	if uint64(total) > 0xFFFFFFFF {
		return nil, fmt.Errorf("payload of %d bytes exceeds the container's length field: %w", len(text), codec.ErrOverflow)
	}

	out := make([]byte, total)
	copy(out, jsonMagic[:])
	binary.BigEndian.PutUint32(out[8:], uint32(total))
	binary.LittleEndian.PutUint32(out[16:], uint32(len(text)+1)|isJSONFlag)
	binary.LittleEndian.PutUint32(out[32:], uint32(len(text)+1))
	copy(out[jsonPayloadStart:], text)
	// The NUL terminator and the zeroed 16-byte tail form the trailer.
	return out, nil
}
