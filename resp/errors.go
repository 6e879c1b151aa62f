package resp

import "fmt"

// ProtocolError is returned by Decoder.Feed when the input cannot be a
// valid RESP stream: an unknown type byte, a malformed numeric field, or
// a negative length other than -1. It is fatal to the stream the Decoder
// is reading; the Decoder must not be fed further bytes afterward.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "resp: protocol error: " + e.Reason
}

func protoErrf(format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{Reason: fmt.Sprintf(format, args...)}
}
