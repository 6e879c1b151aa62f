package wirekv

import (
	"bytes"
	"errors"
	"math"
	"strconv"

	"github.com/wirekv/wirekv/resp"
)

// StreamEntryID represents an ID used in a stream, with the wire format
// <time>-<seq>.
type StreamEntryID struct {
	// Time is the first part of the ID, based on server time.
	Time uint64
	// Seq is the sequence number for entries sharing the same Time.
	Seq uint64
}

// Before reports whether s sorts before o within a stream.
func (s StreamEntryID) Before(o StreamEntryID) bool {
	if s.Time != o.Time {
		return s.Time < o.Time
	}
	return s.Seq < o.Seq
}

// Prev returns the entry ID immediately before s, or s itself if s is
// already the minimum ID (0-0).
func (s StreamEntryID) Prev() StreamEntryID {
	if s.Seq > 0 {
		s.Seq--
		return s
	}
	if s.Time > 0 {
		s.Time--
		s.Seq = math.MaxUint64
		return s
	}
	return s
}

// Next returns the entry ID immediately after s, or s itself if s is
// already the maximum ID.
func (s StreamEntryID) Next() StreamEntryID {
	if s.Seq < math.MaxUint64 {
		s.Seq++
		return s
	}
	if s.Time < math.MaxUint64 {
		s.Time++
		s.Seq = 0
		return s
	}
	return s
}

const maxUint64Len = len("18446744073709551615")

// String returns the ID in its wire format, <time>-<seq>.
func (s StreamEntryID) String() string {
	var buf [maxUint64Len*2 + 1]byte
	b := strconv.AppendUint(buf[:0], s.Time, 10)
	b = append(b, '-')
	b = strconv.AppendUint(b, s.Seq, 10)
	return string(b)
}

var errInvalidStreamID = errors.New("wirekv: invalid stream entry id")

// ParseStreamEntryID parses the wire format produced by String.
func ParseStreamEntryID(s string) (StreamEntryID, error) {
	split := bytes.IndexByte([]byte(s), '-')
	if split == -1 {
		return StreamEntryID{}, errInvalidStreamID
	}
	t, err := strconv.ParseUint(s[:split], 10, 64)
	if err != nil {
		return StreamEntryID{}, errInvalidStreamID
	}
	seq, err := strconv.ParseUint(s[split+1:], 10, 64)
	if err != nil {
		return StreamEntryID{}, errInvalidStreamID
	}
	return StreamEntryID{Time: t, Seq: seq}, nil
}

// StreamEntry is one entry in a stream, as returned by XRange.
type StreamEntry struct {
	ID     StreamEntryID
	Fields map[string]string
}

var errInvalidStreamEntry = errors.New("wirekv: invalid stream entry reply")

func streamEntryFromReply(r resp.Reply) (StreamEntry, error) {
	var e StreamEntry
	if r.Type != resp.Array || len(r.Array) != 2 {
		return e, errInvalidStreamEntry
	}
	if r.Array[0].Type != resp.BulkString || r.Array[0].Bulk == nil {
		return e, errInvalidStreamEntry
	}
	id, err := ParseStreamEntryID(string(r.Array[0].Bulk))
	if err != nil {
		return e, err
	}
	e.ID = id

	fieldsReply := r.Array[1]
	if fieldsReply.Type != resp.Array || len(fieldsReply.Array)%2 != 0 {
		return e, errInvalidStreamEntry
	}
	e.Fields = make(map[string]string, len(fieldsReply.Array)/2)
	for i := 0; i+1 < len(fieldsReply.Array); i += 2 {
		e.Fields[string(fieldsReply.Array[i].Bulk)] = string(fieldsReply.Array[i+1].Bulk)
	}
	return e, nil
}

// XAdd appends an entry with the given fields to the stream at key,
// letting the server assign the entry ID ("*"), and returns that ID.
func XAdd(c *Conn, key string, fields map[string]string) (StreamEntryID, error) {
	args := make([][]byte, 0, 2+2*len(fields))
	args = append(args, []byte(key), []byte("*"))
	for k, v := range fields {
		args = append(args, []byte(k), []byte(v))
	}

	r, err := submitSync(c, TokXADD, args...)
	if err != nil {
		return StreamEntryID{}, err
	}
	if r.Type != resp.BulkString || r.Bulk == nil {
		return StreamEntryID{}, errInvalidStreamEntry
	}
	return ParseStreamEntryID(string(r.Bulk))
}

// XRange returns the entries of the stream at key with IDs in [start, end].
func XRange(c *Conn, key string, start, end StreamEntryID) ([]StreamEntry, error) {
	r, err := submitSync(c, TokXRANGE, []byte(key), []byte(start.String()), []byte(end.String()))
	if err != nil {
		return nil, err
	}
	if r.IsNil() {
		return nil, nil
	}
	if r.Type != resp.Array {
		return nil, errInvalidStreamEntry
	}

	out := make([]StreamEntry, 0, len(r.Array))
	for _, elem := range r.Array {
		entry, err := streamEntryFromReply(elem)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}
