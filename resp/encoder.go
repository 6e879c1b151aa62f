package resp

// Component B: the RESP encoder. Both operations append to a
// caller-provided buffer and never inspect the content of the bytes they
// are given, so binary-safe delivery is guaranteed regardless of what a
// command argument contains.

// WriteArrayHeader appends a RESP array header for n elements to dst.
func WriteArrayHeader(dst []byte, n int) []byte {
	dst = append(dst, '*')
	dst = AppendIntCRLF(dst, int64(n))
	return dst
}

// WriteBulkString appends a RESP bulk string containing b to dst.
func WriteBulkString(dst []byte, b []byte) []byte {
	dst = append(dst, '$')
	dst = AppendIntCRLF(dst, int64(len(b)))
	dst = append(dst, b...)
	dst = append(dst, '\r', '\n')
	return dst
}

// WriteCommand appends a full RESP command to dst: an array whose first
// element is name and whose remaining elements are args, all as bulk
// strings.
func WriteCommand(dst []byte, name []byte, args ...[]byte) []byte {
	dst = WriteArrayHeader(dst, 1+len(args))
	dst = WriteBulkString(dst, name)
	for _, a := range args {
		dst = WriteBulkString(dst, a)
	}
	return dst
}
