// Package material decodes a material's typed property values against
// its parallel property-name table. The two streams carry no entry
// counts of their own; they are walked in lockstep by position and must
// agree on length.
package material

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/atampy25/glacierdb/internal/codec"
)

// Property type tags as they appear on the wire.
const (
	tagTexture   = 1
	tagColorRGB  = 2
	tagColorRGBA = 3
	tagFloat     = 4
	tagVector2   = 5
	tagVector3   = 6
	tagVector4   = 7
)

// noTexture is the dependency-index sentinel for an unbound texture slot.
const noTexture = 0xFFFFFFFF

// Value is the closed set of material property payloads.
type Value interface {
	propertyValue()
}

// Texture references a resource from the owning material's dependency
// list. Present is false for the "no texture" sentinel.
type Texture struct {
	Hash    uint64
	Present bool
}

// ColorRGB is an opaque color.
type ColorRGB [3]float32

// ColorRGBA is a color with alpha.
type ColorRGBA [4]float32

// Float is a scalar value.
type Float float32

// Vector2 is a 2-component float vector.
type Vector2 [2]float32

// Vector3 is a 3-component float vector.
type Vector3 [3]float32

// Vector4 is a 4-component float vector.
type Vector4 [4]float32

func (Texture) propertyValue()   {}
func (ColorRGB) propertyValue()  {}
func (ColorRGBA) propertyValue() {}
func (Float) propertyValue()     {}
func (Vector2) propertyValue()   {}
func (Vector3) propertyValue()   {}
func (Vector4) propertyValue()   {}

// Property is one named, typed material property.
type Property struct {
	Name  string
	Value Value
}

// Decode walks the names and values streams in lockstep and returns one
// property per values-stream record. Texture indices resolve through
// deps, the owning resource's ordered dependency-hash list.
func Decode(names, values []byte, deps []uint64) ([]Property, error) {
	nameCount, err := countNames(names)
	if err != nil {
		return nil, err
	}
	valueCount, err := countValues(values)
	if err != nil {
		return nil, err
	}
	if nameCount != valueCount {
		return nil, fmt.Errorf("mismatched MATT/MATB entry count: %d names, %d values: %w",
			nameCount, valueCount, codec.ErrSizeMismatch)
	}

	nr := reader{data: names}
	vr := reader{data: values}
	properties := make([]Property, 0, valueCount)

	for !vr.done() {
		name, err := nr.readName()
		if err != nil {
			return nil, err
		}
		value, err := vr.readValue(deps)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", name, err)
		}
		properties = append(properties, Property{Name: name, Value: value})
	}

	return properties, nil
}

type reader struct {
	data []byte
	pos  int
}

func (r *reader) done() bool { return r.pos >= len(r.data) }

func (r *reader) take(n int) ([]byte, error) {
	if r.pos+n > len(r.data) {
		return nil, fmt.Errorf("record truncated at offset %d: %w", r.pos, codec.ErrMalformedHeader)
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// readName consumes one names-stream record: an unused type byte, a
// 4-byte length, then that many bytes including the terminating NUL.
func (r *reader) readName() (string, error) {
	head, err := r.take(5)
	if err != nil {
		return "", err
	}
	n := int(binary.LittleEndian.Uint32(head[1:]))
	if n < 1 {
		return "", fmt.Errorf("empty name record: %w", codec.ErrMalformedHeader)
	}
	raw, err := r.take(n)
	if err != nil {
		return "", err
	}
	if raw[n-1] != 0 {
		return "", fmt.Errorf("name is not NUL-terminated: %w", codec.ErrMalformedHeader)
	}
	name := string(raw[:n-1])
	if !utf8.ValidString(name) {
		return "", fmt.Errorf("name is not valid UTF-8: %w", codec.ErrInvalidEncoding)
	}
	return name, nil
}

// readValue consumes one values-stream record: a type tag byte and its
// fixed-size payload.
func (r *reader) readValue(deps []uint64) (Value, error) {
	head, err := r.take(1)
	if err != nil {
		return nil, err
	}

	switch head[0] {
	case tagTexture:
		raw, err := r.take(4)
		if err != nil {
			return nil, err
		}
		index := binary.LittleEndian.Uint32(raw)
		if index == noTexture {
			return Texture{}, nil
		}
		if int(index) >= len(deps) {
			return nil, fmt.Errorf("texture index %d exceeds %d dependencies: %w",
				index, len(deps), codec.ErrOutOfRange)
		}
		return Texture{Hash: deps[index], Present: true}, nil
	case tagColorRGB:
		f, err := r.floats(3)
		return ColorRGB{f[0], f[1], f[2]}, err
	case tagColorRGBA:
		f, err := r.floats(4)
		return ColorRGBA{f[0], f[1], f[2], f[3]}, err
	case tagFloat:
		f, err := r.floats(1)
		return Float(f[0]), err
	case tagVector2:
		f, err := r.floats(2)
		return Vector2{f[0], f[1]}, err
	case tagVector3:
		f, err := r.floats(3)
		return Vector3{f[0], f[1], f[2]}, err
	case tagVector4:
		f, err := r.floats(4)
		return Vector4{f[0], f[1], f[2], f[3]}, err
	default:
		return nil, fmt.Errorf("property type byte 0x%02X: %w", head[0], codec.ErrUnrecognisedTag)
	}
}

func (r *reader) floats(n int) ([4]float32, error) {
	var out [4]float32
	raw, err := r.take(n * 4)
	if err != nil {
		return out, err
	}
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out, nil
}

// countNames scans the names stream for its record count without
// decoding strings.
func countNames(names []byte) (int, error) {
	count, p := 0, 0
	for p < len(names) {
		if p+5 > len(names) {
			return 0, fmt.Errorf("names stream truncated at offset %d: %w", p, codec.ErrMalformedHeader)
		}
		n := int(binary.LittleEndian.Uint32(names[p+1:]))
		p += 5 + n
		if n < 1 || p > len(names) {
			return 0, fmt.Errorf("names stream truncated at offset %d: %w", p, codec.ErrMalformedHeader)
		}
		count++
	}
	return count, nil
}

// countValues scans the values stream for its record count. Unknown tags
// fail here, before any lockstep decoding begins.
func countValues(values []byte) (int, error) {
	count, p := 0, 0
	for p < len(values) {
		size, err := payloadSize(values[p])
		if err != nil {
			return 0, err
		}
		p += 1 + size
		if p > len(values) {
			return 0, fmt.Errorf("values stream truncated at offset %d: %w", p, codec.ErrMalformedHeader)
		}
		count++
	}
	return count, nil
}

func payloadSize(tag byte) (int, error) {
	switch tag {
	case tagTexture, tagFloat:
		return 4, nil
	case tagVector2:
		return 8, nil
	case tagColorRGB, tagVector3:
		return 12, nil
	case tagColorRGBA, tagVector4:
		return 16, nil
	default:
		return 0, fmt.Errorf("property type byte 0x%02X: %w", tag, codec.ErrUnrecognisedTag)
	}
}
