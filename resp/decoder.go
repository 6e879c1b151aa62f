package resp

import "github.com/wirekv/wirekv/internal/bytesutil"

// Component D: the RESP decoder / state machine.
//
// Decoder.Feed is handed byte chunks of arbitrary size, including chunks
// that split a value mid-token, and in response emits zero or more
// complete top-level Replies through a callback. Between calls it either
// sits at a clean token boundary or holds a strict prefix of one
// in-progress value in its own fields — never in a caller-owned slice, so
// Feed may be called with a reused buffer.
//
// This is the persistent-accumulator strategy called out in spec §4.D as
// required when the transport doesn't support rewind (a net.Conn doesn't).

type state uint8

const (
	stateIdle state = iota
	stateLineSimple
	stateLineError
	stateLineInt
	stateLineBulkLen
	stateLineArrayLen
	stateBulkBody
	stateBulkCRLF
)

// arrayFrame is one level of the array-in-progress stack: a partially
// filled array awaiting more elements.
type arrayFrame struct {
	items  []Reply
	filled int
}

// Decoder incrementally parses a stream of RESP values out of byte chunks
// fed to it via Feed, emitting each fully parsed top-level value to the
// callback given to NewDecoder.
//
// A Decoder is not safe for concurrent use; it is meant to be owned by a
// single goroutine (the connection core's event loop), matching spec
// §5's single-threaded-per-connection model.
type Decoder struct {
	onReply func(Reply)

	st state

	// line accumulates bytes for whichever line-based state we're in,
	// until a terminating \r\n is seen.
	line []byte

	// bulk body bookkeeping.
	bulkRemaining int
	bulkBuf       []byte
	crlfSeen      int

	// stack is the array-in-progress stack. The last element is the
	// innermost array currently being assembled.
	stack []*arrayFrame
}

// NewDecoder returns a Decoder that calls onReply once per fully parsed
// top-level Reply. onReply is called synchronously and in order from
// within Feed; it must not retain byte slices found inside the Reply
// beyond the call unless it copies them first (Feed already hands over
// freshly allocated bulk bodies, so this is about transitive retention,
// not aliasing the input chunk).
func NewDecoder(onReply func(Reply)) *Decoder {
	return &Decoder{onReply: onReply}
}

// Feed parses as much of data as forms complete tokens, emitting replies
// as they complete, and buffers whatever trailing partial token remains.
// It returns a *ProtocolError if data (combined with any previously
// buffered prefix) is not a valid RESP stream; once that happens the
// Decoder must not be used again.
func (d *Decoder) Feed(data []byte) error {
	for len(data) > 0 {
		var err error
		data, err = d.step(data)
		if err != nil {
			return err
		}
	}
	return nil
}

// step consumes as much of data as it can in the current state and
// returns the unconsumed remainder.
func (d *Decoder) step(data []byte) ([]byte, error) {
	switch d.st {
	case stateIdle:
		typeByte := data[0]
		data = data[1:]
		d.line = d.line[:0]
		switch typeByte {
		case '+':
			d.st = stateLineSimple
		case '-':
			d.st = stateLineError
		case ':':
			d.st = stateLineInt
		case '$':
			d.st = stateLineBulkLen
		case '*':
			d.st = stateLineArrayLen
		default:
			return nil, protoErrf("unknown type byte %q", typeByte)
		}
		return data, nil

	case stateLineSimple, stateLineError, stateLineInt, stateLineBulkLen, stateLineArrayLen:
		return d.stepLine(data)

	case stateBulkBody:
		return d.stepBulkBody(data)

	case stateBulkCRLF:
		return d.stepBulkCRLF(data)

	default:
		panic("resp: decoder in unknown state")
	}
}

// stepLine looks for a \r\n terminator across the accumulated line buffer
// and the newly arrived data, consuming only as far as the terminator (or
// buffering everything if none is found yet).
func (d *Decoder) stepLine(data []byte) ([]byte, error) {
	// The terminator may straddle the boundary between a previously
	// buffered prefix and this chunk: the buffered line already ends in
	// \r and the new chunk starts with \n.
	if len(d.line) > 0 && d.line[len(d.line)-1] == '\r' && data[0] == '\n' {
		line := d.line[:len(d.line)-1]
		rest := data[1:]
		d.line = nil
		return d.finishLine(line, rest)
	}

	idx := indexCRLF(data)
	if idx < 0 {
		// no terminator yet; buffer everything and wait for more
		d.line = append(d.line, data...)
		return nil, nil
	}

	d.line = append(d.line, data[:idx]...)
	rest := data[idx+2:]

	line := d.line
	d.line = nil
	return d.finishLine(line, rest)
}

func (d *Decoder) finishLine(line []byte, rest []byte) ([]byte, error) {
	switch d.st {
	case stateLineSimple:
		d.st = stateIdle
		d.complete(Reply{Type: SimpleString, Str: string(line)})

	case stateLineError:
		d.st = stateIdle
		d.complete(Reply{Type: Error, Str: string(line)})

	case stateLineInt:
		n, err := parseInt(line)
		if err != nil {
			return nil, err
		}
		d.st = stateIdle
		d.complete(Reply{Type: Integer, Int: n})

	case stateLineBulkLen:
		n, err := parseInt(line)
		if err != nil {
			return nil, err
		}
		if n < -1 {
			return nil, protoErrf("negative bulk length %d", n)
		}
		if n == -1 {
			d.st = stateIdle
			d.complete(Reply{Type: BulkString, Bulk: nil})
			break
		}
		d.bulkRemaining = int(n)
		d.bulkBuf = make([]byte, 0, n)
		if d.bulkRemaining == 0 {
			d.st = stateBulkCRLF
			d.crlfSeen = 0
		} else {
			d.st = stateBulkBody
		}

	case stateLineArrayLen:
		n, err := parseInt(line)
		if err != nil {
			return nil, err
		}
		if n < -1 {
			return nil, protoErrf("negative array length %d", n)
		}
		d.st = stateIdle
		if n == -1 {
			d.complete(Reply{Type: Array, Array: nil})
			break
		}
		if n == 0 {
			d.complete(Reply{Type: Array, Array: []Reply{}})
			break
		}
		d.stack = append(d.stack, &arrayFrame{items: make([]Reply, n)})
	}

	return rest, nil
}

func (d *Decoder) stepBulkBody(data []byte) ([]byte, error) {
	n := d.bulkRemaining
	if n > len(data) {
		n = len(data)
	}
	d.bulkBuf = append(d.bulkBuf, data[:n]...)
	d.bulkRemaining -= n
	data = data[n:]

	if d.bulkRemaining == 0 {
		d.st = stateBulkCRLF
		d.crlfSeen = 0
	}
	return data, nil
}

func (d *Decoder) stepBulkCRLF(data []byte) ([]byte, error) {
	want := byte('\r')
	if d.crlfSeen == 1 {
		want = '\n'
	}
	if data[0] != want {
		return nil, protoErrf("malformed bulk string terminator")
	}
	data = data[1:]
	d.crlfSeen++
	if d.crlfSeen < 2 {
		return data, nil
	}

	body := d.bulkBuf
	d.bulkBuf = nil
	d.st = stateIdle
	d.complete(Reply{Type: BulkString, Bulk: body})
	return data, nil
}

// complete offers a fully parsed value either into the top array frame on
// the stack, or — if the stack is empty — as a top-level reply. Filling
// the last slot of a frame pops it and recursively offers the now-complete
// array, which is how nested arrays compose.
func (d *Decoder) complete(r Reply) {
	for {
		if len(d.stack) == 0 {
			d.onReply(r)
			return
		}

		top := d.stack[len(d.stack)-1]
		top.items[top.filled] = r
		top.filled++
		if top.filled < len(top.items) {
			return
		}

		d.stack = d.stack[:len(d.stack)-1]
		r = Reply{Type: Array, Array: top.items}
	}
}

func indexCRLF(b []byte) int {
	for i := 0; i+1 < len(b); i++ {
		if b[i] == '\r' && b[i+1] == '\n' {
			return i
		}
	}
	return -1
}

// parseInt parses a signed base-10 integer out of a RESP numeric field
// without allocating a string, surfacing any malformed input as a
// *ProtocolError rather than bytesutil's generic error.
func parseInt(b []byte) (int64, error) {
	n, err := bytesutil.ParseInt(b)
	if err != nil {
		return 0, protoErrf("malformed numeric field %q: %s", b, err)
	}
	return n, nil
}
