package util

import (
	"fmt"
	"iter"
	"strings"
)

func SingleIter[A any](elem A) iter.Seq[A] {
	return func(yield func(A) bool) {
		yield(elem)
	}
}

func SliceIter[A any](elems []A) iter.Seq[A] {
	return func(yield func(A) bool) {
		for _, elem := range elems {
			if !yield(elem) {
				return
			}
		}
	}
}

// JoinString is strings.Join for anything implementing fmt.Stringer.
func JoinString[A fmt.Stringer](elems []A, sep string) string {
	sb := strings.Builder{}
	for i, elem := range elems {
		if i > 0 {
			sb.WriteString(sep)
		}
		sb.WriteString(elem.String())
	}
	return sb.String()
}

func MapSlice[A, B any](elems []A, f func(A) B) []B {
	out := make([]B, len(elems))
	for i, elem := range elems {
		out[i] = f(elem)
	}
	return out
}
