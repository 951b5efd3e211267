package store

import "math"

// toHalf and fromHalf implement IEEE 754 binary16 conversion. No half
// precision type exists in the Go standard library (see DESIGN.md's
// stdlib exception). Qdrant stores vectors as float32; the half-precision
// round trip halves storage for the embedding column, applied only at the
// upsert boundary.

func toHalf(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16((bits >> 16) & 0x8000)
	exp := int32((bits>>23)&0xff) - 127 + 15
	mant := bits & 0x7fffff

	switch {
	case exp <= 0:
		return sign // underflow to zero
	case exp >= 0x1f:
		return sign | 0x7c00 // overflow to infinity
	default:
		return sign | uint16(exp<<10) | uint16(mant>>13)
	}
}

func fromHalf(h uint16) float32 {
	sign := uint32(h&0x8000) << 16
	exp := uint32(h&0x7c00) >> 10
	mant := uint32(h & 0x3ff)

	switch {
	case exp == 0 && mant == 0:
		return math.Float32frombits(sign)
	case exp == 0x1f:
		return math.Float32frombits(sign | 0x7f800000 | (mant << 13))
	default:
		return math.Float32frombits(sign | ((exp + (127 - 15)) << 23) | (mant << 13))
	}
}

// ToHalfVector converts a float32 slice to its half-precision round trip,
// applied before an upsert to halve storage without changing the
// in-memory pipeline type.
func ToHalfVector(vec []float32) []float32 {
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = fromHalf(toHalf(v))
	}
	return out
}
