package stream

import (
	"golang.org/x/exp/constraints"
)

// ToGray returns the gray code of v. Successive values differ in one bit.
func ToGray[T constraints.Unsigned](v T) T {
	return v ^ (v >> 1)
}

// FromGray decodes a gray code.
func FromGray[T constraints.Unsigned](g T) T {
	v := g
	for s := g >> 1; s != 0; s >>= 1 {
		v ^= s
	}
	return v
}
