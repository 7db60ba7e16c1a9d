// Package wwev decodes audio-event containers. A streamed event's
// sub-objects reference audio payloads held in external dependencies,
// with optional embedded prefetch bytes; a non-streamed event carries
// every sub-object's audio in full. The two shapes are mutually
// exclusive, decided by the non-streamed count field.
package wwev

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/atampy25/glacierdb/internal/codec"
)

// StreamedObject references external audio via a dependency index the
// caller resolves separately. Prefetch holds the embedded lead-in bytes,
// if any.
type StreamedObject struct {
	DependencyIndex uint32
	ID              uint32
	Prefetch        []byte
}

// EmbeddedObject carries its audio data in full.
type EmbeddedObject struct {
	ID   uint32
	Data []byte
}

// Event is a decoded audio-event container. Exactly one of Streamed or
// Embedded is populated.
type Event struct {
	Name           string
	MaxAttenuation float32
	Streamed       []StreamedObject
	Embedded       []EmbeddedObject
}

// Decode parses an audio-event container.
func Decode(data []byte) (*Event, error) {
	r := reader{data: data}

	nameLen, err := r.uint32()
	if err != nil {
		return nil, fmt.Errorf("reading name length: %w", err)
	}
	if nameLen < 1 {
		return nil, fmt.Errorf("empty event name: %w", codec.ErrMalformedHeader)
	}
	rawName, err := r.take(int(nameLen))
	if err != nil {
		return nil, fmt.Errorf("reading event name: %w", err)
	}
	if rawName[nameLen-1] != 0 {
		return nil, fmt.Errorf("event name is not NUL-terminated: %w", codec.ErrMalformedHeader)
	}
	name := string(rawName[:nameLen-1])
	if !utf8.ValidString(name) {
		return nil, fmt.Errorf("event name is not valid UTF-8: %w", codec.ErrInvalidEncoding)
	}

	attenuation, err := r.uint32()
	if err != nil {
		return nil, fmt.Errorf("reading max attenuation: %w", err)
	}

	event := &Event{
		Name:           name,
		MaxAttenuation: math.Float32frombits(attenuation),
	}

	nonStreamedCount, err := r.uint32()
	if err != nil {
		return nil, fmt.Errorf("reading non-streamed count: %w", err)
	}

	if nonStreamedCount == 0 {
		event.Streamed, err = decodeStreamed(&r)
	} else {
		event.Embedded, err = decodeEmbedded(&r, int(nonStreamedCount))
	}
	if err != nil {
		return nil, err
	}

	if !r.done() {
		return nil, fmt.Errorf("event has %d trailing bytes: %w", len(data)-r.pos, codec.ErrMalformedHeader)
	}
	return event, nil
}

func decodeStreamed(r *reader) ([]StreamedObject, error) {
	count, err := r.uint32()
	if err != nil {
		return nil, fmt.Errorf("reading streamed entry count: %w", err)
	}

	// Each streamed entry is at least 12 bytes; a count the remaining
	// data cannot hold is rejected before anything is allocated for it.
	if uint64(count)*12 > uint64(r.remaining()) {
		return nil, fmt.Errorf("streamed entry count %d exceeds remaining %d bytes: %w",
			count, r.remaining(), codec.ErrMalformedHeader)
	}

	objects := make([]StreamedObject, 0, count)
	for i := uint32(0); i < count; i++ {
		var obj StreamedObject
		if obj.DependencyIndex, err = r.uint32(); err != nil {
			return nil, fmt.Errorf("streamed entry %d: %w", i, err)
		}
		if obj.ID, err = r.uint32(); err != nil {
			return nil, fmt.Errorf("streamed entry %d: %w", i, err)
		}
		prefetchSize, err := r.uint32()
		if err != nil {
			return nil, fmt.Errorf("streamed entry %d: %w", i, err)
		}
		if prefetchSize > 0 {
			raw, err := r.take(int(prefetchSize))
			if err != nil {
				return nil, fmt.Errorf("streamed entry %d prefetch: %w", i, err)
			}
			obj.Prefetch = append([]byte(nil), raw...)
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

func decodeEmbedded(r *reader, count int) ([]EmbeddedObject, error) {
	// Each embedded entry is at least 8 bytes of id and size.
	if uint64(count)*8 > uint64(r.remaining()) {
		return nil, fmt.Errorf("embedded entry count %d exceeds remaining %d bytes: %w",
			count, r.remaining(), codec.ErrMalformedHeader)
	}

	objects := make([]EmbeddedObject, 0, count)
	for i := 0; i < count; i++ {
		var obj EmbeddedObject
		var err error
		if obj.ID, err = r.uint32(); err != nil {
			return nil, fmt.Errorf("embedded entry %d: %w", i, err)
		}
		size, err := r.uint32()
		if err != nil {
			return nil, fmt.Errorf("embedded entry %d: %w", i, err)
		}
		raw, err := r.take(int(size))
		if err != nil {
			return nil, fmt.Errorf("embedded entry %d data: %w", i, err)
		}
		obj.Data = append([]byte(nil), raw...)
		objects = append(objects, obj)
	}
	return objects, nil
}

type reader struct {
	data []byte
	pos  int
}

func (r *reader) done() bool { return r.pos >= len(r.data) }

func (r *reader) remaining() int { return len(r.data) - r.pos }

func (r *reader) take(n int) ([]byte, error) {
	if r.pos+n > len(r.data) {
		return nil, fmt.Errorf("record truncated at offset %d: %w", r.pos, codec.ErrMalformedHeader)
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) uint32() (uint32, error) {
	raw, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(raw), nil
}
