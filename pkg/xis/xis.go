// Package xis carries small extensions to the matryer/is helpers.
package xis

import (
	"reflect"

	"github.com/matryer/is"
)

type I struct {
	is *is.I
}

func New(is *is.I) I {
	return I{is: is}
}

// Contains asserts that the given slice holds at least one element
// equal to v.
func (x I) Contains(slice interface{}, v interface{}) {
	s := reflect.ValueOf(slice)
	if s.Kind() != reflect.Slice {
		x.is.Fail() // Contains expects a slice
		return
	}

	for i := 0; i < s.Len(); i++ {
		if reflect.DeepEqual(s.Index(i).Interface(), v) {
			return
		}
	}
	x.is.Fail() // slice does not contain expected element
}
