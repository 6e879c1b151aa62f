// Package bytesutil provides low-level byte-slice utilities shared by the
// wire codec and connection core.
package bytesutil

import (
	"errors"
	"fmt"
	"sync"
)

var bytePool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, 0, 64)
		return &b
	},
}

// GetBytes returns a non-nil pointer to a byte slice from a pool of byte
// slices.
//
// The returned byte slice should be put back into the pool using PutBytes
// after usage.
func GetBytes() *[]byte {
	return bytePool.Get().(*[]byte)
}

// PutBytes puts the given byte slice pointer into a pool that can be
// accessed via GetBytes.
//
// After calling PutBytes the given pointer and byte slice must not be
// accessed anymore.
func PutBytes(b *[]byte) {
	*b = (*b)[:0]
	bytePool.Put(b)
}

// ParseInt is a specialized version of strconv.ParseInt that parses a
// base-10 encoded signed integer from a []byte.
//
// This can be used to avoid allocating a string, since strconv.ParseInt
// only takes a string.
func ParseInt(b []byte) (int64, error) {
	if len(b) == 0 {
		return 0, errors.New("empty slice given to ParseInt")
	}

	var neg bool
	if b[0] == '-' {
		neg = true
		b = b[1:]
	}

	n, err := ParseUint(b)
	if err != nil {
		return 0, err
	}

	if neg {
		return -int64(n), nil
	}

	return int64(n), nil
}

// ParseUint is a specialized version of strconv.ParseUint that parses a
// base-10 encoded integer from a []byte.
//
// This can be used to avoid allocating a string, since strconv.ParseUint
// only takes a string.
func ParseUint(b []byte) (uint64, error) {
	if len(b) == 0 {
		return 0, errors.New("empty slice given to ParseUint")
	}

	var n uint64

	for i, c := range b {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid character %c at position %d in ParseUint", c, i)
		}

		n *= 10
		n += uint64(c - '0')
	}

	return n, nil
}
