package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrFrameLength is the sentinel behind every *FrameLengthError.
	ErrFrameLength = errors.New("frame length mismatch")
	// ErrFrameEncode is the sentinel behind every *FrameEncodeError.
	ErrFrameEncode = errors.New("frame encode failed")
)

// FrameLengthError reports a payload whose size differs from its layout.
type FrameLengthError struct {
	Format   string
	Expected int
	Actual   int
}

func (e *FrameLengthError) Error() string {
	return fmt.Sprintf("bad payload length (expected %d bytes for format '<%s', got %d)",
		e.Expected, e.Format, e.Actual)
}

func (e *FrameLengthError) Unwrap() error { return ErrFrameLength }

// FrameEncodeError reports values that cannot be packed into a layout.
// Index is -1 when the problem is the number of values.
type FrameEncodeError struct {
	Format string
	Index  int
	Reason string
}

func (e *FrameEncodeError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("cannot pack payload format '<%s': %s", e.Format, e.Reason)
	}
	return fmt.Sprintf("cannot pack value %d of payload format '<%s': %s", e.Index, e.Format, e.Reason)
}

func (e *FrameEncodeError) Unwrap() error { return ErrFrameEncode }

// Decode unpacks data into one number per non-pad field of l.
func Decode(l Layout, data []byte) ([]float64, error) {
	if len(data) != l.size {
		return nil, &FrameLengthError{Format: l.format, Expected: l.size, Actual: len(data)}
	}
	out := make([]float64, 0, l.count)
	off := 0
	for _, f := range l.fields {
		b := data[off : off+f.Size]
		off += f.Size
		switch f.Kind {
		case Pad:
			continue
		case Int8:
			out = append(out, float64(int8(b[0])))
		case Uint8:
			out = append(out, float64(b[0]))
		case Bool:
			if b[0] != 0 {
				out = append(out, 1)
			} else {
				out = append(out, 0)
			}
		case Int16:
			out = append(out, float64(int16(binary.LittleEndian.Uint16(b))))
		case Uint16:
			out = append(out, float64(binary.LittleEndian.Uint16(b)))
		case Int32:
			out = append(out, float64(int32(binary.LittleEndian.Uint32(b))))
		case Uint32:
			out = append(out, float64(binary.LittleEndian.Uint32(b)))
		case Int64:
			out = append(out, float64(int64(binary.LittleEndian.Uint64(b))))
		case Uint64:
			out = append(out, float64(binary.LittleEndian.Uint64(b)))
		case Float32:
			out = append(out, float64(math.Float32frombits(binary.LittleEndian.Uint32(b))))
		case Float64:
			out = append(out, math.Float64frombits(binary.LittleEndian.Uint64(b)))
		}
	}
	return out, nil
}

// Encode packs values into a payload of layout l. The number of values must
// equal l.Count() and every value must fit its field.
func Encode(l Layout, values []float64) ([]byte, error) {
	if len(values) != l.count {
		return nil, &FrameEncodeError{
			Format: l.format,
			Index:  -1,
			Reason: fmt.Sprintf("wrong number of values (%d, want %d)", len(values), l.count),
		}
	}
	buf := make([]byte, l.size)
	off, vi := 0, 0
	for _, f := range l.fields {
		b := buf[off : off+f.Size]
		off += f.Size
		if f.Kind == Pad {
			continue
		}
		v := values[vi]
		if err := checkRange(f, v); err != "" {
			return nil, &FrameEncodeError{Format: l.format, Index: vi, Reason: err}
		}
		vi++

		switch f.Kind {
		case Int8:
			b[0] = byte(int8(v))
		case Uint8:
			b[0] = byte(v)
		case Bool:
			if v != 0 {
				b[0] = 1
			}
		case Int16:
			binary.LittleEndian.PutUint16(b, uint16(int16(v)))
		case Uint16:
			binary.LittleEndian.PutUint16(b, uint16(v))
		case Int32:
			binary.LittleEndian.PutUint32(b, uint32(int32(v)))
		case Uint32:
			binary.LittleEndian.PutUint32(b, uint32(v))
		case Int64:
			binary.LittleEndian.PutUint64(b, uint64(int64(v)))
		case Uint64:
			binary.LittleEndian.PutUint64(b, uint64(v))
		case Float32:
			binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
		case Float64:
			binary.LittleEndian.PutUint64(b, math.Float64bits(v))
		}
	}
	return buf, nil
}

// checkRange returns a non-empty reason when v cannot be stored in f.
func checkRange(f Field, v float64) string {
	if math.IsNaN(v) {
		if f.Kind == Float32 || f.Kind == Float64 {
			return ""
		}
		return "NaN is not an integer"
	}
	switch f.Kind {
	case Bool, Float64:
		return ""
	case Float32:
		if !math.IsInf(v, 0) && math.Abs(v) > math.MaxFloat32 {
			return fmt.Sprintf("%g too large for float32", v)
		}
		return ""
	}

	if math.IsInf(v, 0) || v != math.Trunc(v) {
		return fmt.Sprintf("%g is not an integer", v)
	}
	var lo, hi float64
	switch f.Kind {
	case Int8:
		lo, hi = math.MinInt8, math.MaxInt8
	case Uint8:
		lo, hi = 0, math.MaxUint8
	case Int16:
		lo, hi = math.MinInt16, math.MaxInt16
	case Uint16:
		lo, hi = 0, math.MaxUint16
	case Int32:
		lo, hi = math.MinInt32, math.MaxInt32
	case Uint32:
		lo, hi = 0, math.MaxUint32
	case Int64:
		// 2^63 is exactly representable, MaxInt64 is not
		if v < -(1<<63) || v >= 1<<63 {
			return fmt.Sprintf("%g out of range for '%c'", v, f.Kind)
		}
		return ""
	case Uint64:
		if v < 0 || v >= 1<<64 {
			return fmt.Sprintf("%g out of range for '%c'", v, f.Kind)
		}
		return ""
	}
	if v < lo || v > hi {
		return fmt.Sprintf("%g out of range for '%c'", v, f.Kind)
	}
	return ""
}
