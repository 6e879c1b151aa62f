// Package resp implements the RESP (REdis Serialization Protocol) wire
// codec: encoding commands and incrementally decoding replies that may
// arrive fragmented across arbitrary TCP segment boundaries.
package resp

// Type identifies which of the five RESP reply shapes a Reply holds.
type Type uint8

const (
	// SimpleString is a `+...\r\n` reply.
	SimpleString Type = iota
	// Error is a `-...\r\n` reply. It is still just data here; whether an
	// Error reply represents a failure the caller should act on is a
	// decision made by the connection core, not by this package.
	Error
	// Integer is a `:...\r\n` reply.
	Integer
	// BulkString is a `$...\r\n` reply. A null bulk string (`$-1\r\n`) is
	// represented by Bulk == nil; an empty bulk string (`$0\r\n\r\n`) by a
	// non-nil, zero-length slice.
	BulkString
	// Array is a `*...\r\n` reply. A null array (`*-1\r\n`) is represented
	// by Array == nil; an empty array (`*0\r\n`) by a non-nil, zero-length
	// slice.
	Array
)

// Reply is a single parsed RESP value. It is a tagged union over the five
// RESP types; only the fields relevant to Type are meaningful. Once
// constructed by the Decoder a Reply is never mutated.
type Reply struct {
	Type Type

	// Str holds the text of a SimpleString or Error reply.
	Str string

	// Int holds the value of an Integer reply.
	Int int64

	// Bulk holds the payload of a BulkString reply. nil means the null
	// bulk string; a non-nil empty slice means the empty bulk string.
	Bulk []byte

	// Array holds the elements of an Array reply. nil means the null
	// array; a non-nil empty slice means the empty array.
	Array []Reply
}

// IsNil reports whether r is a null BulkString or a null Array.
func (r Reply) IsNil() bool {
	switch r.Type {
	case BulkString:
		return r.Bulk == nil
	case Array:
		return r.Array == nil
	default:
		return false
	}
}

// String returns a human-readable representation of r, primarily useful
// for logging and test failure messages.
func (r Reply) String() string {
	switch r.Type {
	case SimpleString:
		return "+" + r.Str
	case Error:
		return "-" + r.Str
	case Integer:
		return ":" + itoa(r.Int)
	case BulkString:
		if r.Bulk == nil {
			return "$-1"
		}
		return "$" + string(r.Bulk)
	case Array:
		if r.Array == nil {
			return "*-1"
		}
		out := "*["
		for i, e := range r.Array {
			if i > 0 {
				out += " "
			}
			out += e.String()
		}
		return out + "]"
	default:
		return "<invalid reply>"
	}
}

func itoa(i int64) string {
	return string(AppendInt(nil, i))
}
