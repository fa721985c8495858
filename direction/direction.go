// Copyright ©2026 The KPM Core Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package direction parses the small axis-combination grammar used to
// select which velocity operators a moment calculation applies: strings
// like "xx,y" name one factor per comma-separated group, each factor a
// sequence of up to two axis letters.
package direction

import "fmt"

// Axis indices matching lattice.MaxDim's ordering.
const (
	X = 0
	Y = 1
	Z = 2
)

var letterToAxis = map[byte]int{'x': X, 'y': Y, 'z': Z}

// Combination is a parsed axis combination: one []int per comma-separated
// factor, each holding zero (identity), one (single-axis velocity) or two
// (two-axis velocity) axis indices.
type Combination struct {
	Factors [][]int
}

// Parse parses a direction string such as "xx,y" into a Combination. Only
// 'x', 'y', 'z' and ',' are legal characters; an empty factor (consecutive
// commas, or a leading/trailing comma) denotes the identity operator for
// that position. Any other character, or a factor longer than two axes, is
// reported as a configuration error.
func Parse(s string) (Combination, error) {
	var c Combination
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			factor, err := parseFactor(s[start:i])
			if err != nil {
				return Combination{}, err
			}
			c.Factors = append(c.Factors, factor)
			start = i + 1
			continue
		}
		if _, ok := letterToAxis[s[i]]; !ok {
			return Combination{}, fmt.Errorf("direction: illegal character %q in %q", s[i], s)
		}
	}
	return c, nil
}

func parseFactor(s string) ([]int, error) {
	if len(s) == 0 {
		return nil, nil
	}
	if len(s) > 2 {
		return nil, fmt.Errorf("direction: factor %q names more than two axes", s)
	}
	axes := make([]int, len(s))
	for i := 0; i < len(s); i++ {
		a, ok := letterToAxis[s[i]]
		if !ok {
			return nil, fmt.Errorf("direction: illegal character %q in factor %q", s[i], s)
		}
		axes[i] = a
	}
	return axes, nil
}

// String reconstructs the canonical direction string for c.
func (c Combination) String() string {
	letters := [3]byte{'x', 'y', 'z'}
	out := make([]byte, 0, 8)
	for i, factor := range c.Factors {
		if i > 0 {
			out = append(out, ',')
		}
		for _, a := range factor {
			out = append(out, letters[a])
		}
	}
	return string(out)
}
