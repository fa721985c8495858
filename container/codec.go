// Copyright ©2026 The KPM Core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package container

import (
	"encoding/binary"
	"math"
)

func encodeInt(v int64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(v))
	return b
}

func decodeInt(b []byte) int64 {
	return int64(binary.LittleEndian.Uint64(b))
}

func encodeFloat64(v float64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	return b
}

func decodeFloat64(b []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

func encodeFloat64Array(v []float64) []byte {
	b := make([]byte, 8*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint64(b[8*i:], math.Float64bits(x))
	}
	return b
}

func decodeFloat64Array(b []byte) []float64 {
	n := len(b) / 8
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[8*i:]))
	}
	return out
}

// encodeComplexArray stores each complex128 as two consecutive
// little-endian float64 (real, then imaginary), matching the flat index
// encoding of §3.
func encodeComplexArray(v []complex128) []byte {
	b := make([]byte, 16*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint64(b[16*i:], math.Float64bits(real(x)))
		binary.LittleEndian.PutUint64(b[16*i+8:], math.Float64bits(imag(x)))
	}
	return b
}

func decodeComplexArray(b []byte) []complex128 {
	n := len(b) / 16
	out := make([]complex128, n)
	for i := range out {
		re := math.Float64frombits(binary.LittleEndian.Uint64(b[16*i:]))
		im := math.Float64frombits(binary.LittleEndian.Uint64(b[16*i+8:]))
		out[i] = complex(re, im)
	}
	return out
}
