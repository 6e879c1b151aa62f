package wirekv

import (
	"errors"
	"strconv"

	"github.com/wirekv/wirekv/resp"
)

// ScanOpts holds SCAN's optional MATCH/COUNT modifiers.
type ScanOpts struct {
	// Match is an optional glob pattern filtering returned keys.
	Match string
	// Count is an optional hint for how many keys the server should
	// examine per call; it does not bound the number of keys returned
	// overall. Zero means omitted.
	Count int
}

// Scanner iterates over the keyspace via repeated SCAN calls, hiding the
// cursor bookkeeping behind Next/Close.
//
// Once created, call Next repeatedly; it returns false once the scan is
// exhausted or an error occurs, at which point Close returns that error
// (or nil, if the scan simply ran out of keys).
type Scanner struct {
	conn *Conn
	opts ScanOpts

	cursor  string
	pending []string
	done    bool
	err     error
}

// NewScanner returns a Scanner that iterates the full keyspace visible to
// conn via SCAN, applying opts.
func NewScanner(conn *Conn, opts ScanOpts) *Scanner {
	return &Scanner{conn: conn, opts: opts, cursor: "0"}
}

// Next advances the scan and writes the next key into key, returning
// false once exhausted or on error.
func (s *Scanner) Next(key *string) bool {
	for {
		if s.err != nil {
			return false
		}

		if len(s.pending) > 0 {
			*key, s.pending = s.pending[0], s.pending[1:]
			return true
		}

		if s.done {
			return false
		}

		cursor, keys, err := s.scanOnce()
		if err != nil {
			s.err = err
			return false
		}

		s.cursor = cursor
		s.pending = keys
		if s.cursor == "0" {
			s.done = true
		}
	}
}

// Close returns the error, if any, that ended the scan. A scan that ran
// to exhaustion without error returns nil.
func (s *Scanner) Close() error {
	return s.err
}

func (s *Scanner) scanOnce() (cursor string, keys []string, err error) {
	args := [][]byte{[]byte(s.cursor)}
	if s.opts.Match != "" {
		args = append(args, TokMatch.Bytes(), []byte(s.opts.Match))
	}
	if s.opts.Count > 0 {
		args = append(args, TokCount.Bytes(), []byte(strconv.Itoa(s.opts.Count)))
	}

	r, err := submitSync(s.conn, TokSCAN, args...)
	if err != nil {
		return "", nil, err
	}
	if r.Type != resp.Array || len(r.Array) != 2 {
		return "", nil, errors.New("wirekv: malformed SCAN reply")
	}
	if r.Array[0].Type != resp.BulkString || r.Array[0].Bulk == nil {
		return "", nil, errors.New("wirekv: malformed SCAN cursor")
	}
	return string(r.Array[0].Bulk), replyArrayToStrings(r.Array[1]), nil
}
