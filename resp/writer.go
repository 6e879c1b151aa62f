package resp

import "strconv"

// Component A: numeric-ASCII writer.
//
// RESP length and number fields are decimal ASCII. Small non-negative
// integers (and -1, which RESP uses constantly for null bulks/arrays) are
// by far the most common values written, so their byte forms are
// precomputed once and copied rather than formatted digit by digit on
// every call.

const smallIntCacheSize = 256

var (
	smallInt     [smallIntCacheSize]string
	smallIntCRLF [smallIntCacheSize][]byte

	negOne     = "-1"
	negOneCRLF = []byte("-1\r\n")
)

func init() {
	for i := 0; i < smallIntCacheSize; i++ {
		s := strconv.Itoa(i)
		smallInt[i] = s
		smallIntCRLF[i] = []byte(s + "\r\n")
	}
}

// AppendInt appends the decimal ASCII representation of n to dst and
// returns the extended slice.
func AppendInt(dst []byte, n int64) []byte {
	if n == -1 {
		return append(dst, negOne...)
	}
	if n >= 0 && n < smallIntCacheSize {
		return append(dst, smallInt[n]...)
	}
	return strconv.AppendInt(dst, n, 10)
}

// AppendIntCRLF appends the decimal ASCII representation of n, followed by
// a terminating "\r\n", to dst.
func AppendIntCRLF(dst []byte, n int64) []byte {
	if n == -1 {
		return append(dst, negOneCRLF...)
	}
	if n >= 0 && n < smallIntCacheSize {
		return append(dst, smallIntCRLF[n]...)
	}
	dst = strconv.AppendInt(dst, n, 10)
	return append(dst, '\r', '\n')
}
