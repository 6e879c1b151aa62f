package wirekv

import (
	"strconv"

	"github.com/wirekv/wirekv/internal/bytesutil"
	"github.com/wirekv/wirekv/resp"
)

// Component G: command helpers (representative, not exhaustive).
//
// Each helper follows the same shape: allocate a request buffer, write the
// array header with the correct element count, write the command token
// and any fixed keyword tokens, write each argument as a bulk string,
// submit to the Connection core, and project the reply onto its declared
// return type. A helper never builds more array elements than it writes;
// optional arguments are omitted from the count entirely rather than
// written as empty bulk strings.

// submitSync builds a command from tok/args, submits it, blocks for the
// reply, and returns the pooled buffer to the pool when it returns, after
// the reply has arrived (Submit does not return until its write completes,
// so recycling the buffer at any point after Submit is safe).
func submitSync(c *Conn, tok Token, args ...[]byte) (resp.Reply, error) {
	bufPtr := bytesutil.GetBytes()
	*bufPtr = resp.WriteCommand(*bufPtr, tok.Bytes(), args...)
	defer bytesutil.PutBytes(bufPtr)

	done := make(chan struct {
		r   resp.Reply
		err error
	}, 1)
	if err := c.Submit(*bufPtr, func(r resp.Reply, err error) {
		done <- struct {
			r   resp.Reply
			err error
		}{r, err}
	}); err != nil {
		return resp.Reply{}, err
	}
	res := <-done
	return res.r, res.err
}

// Ping sends PING and returns the server's SimpleString reply text.
func Ping(c *Conn) (string, error) {
	r, err := submitSync(c, TokPING)
	if err != nil {
		return "", err
	}
	return r.Str, nil
}

// Get returns the value of key, or (nil, nil) if key does not exist.
func Get(c *Conn, key string) ([]byte, error) {
	r, err := submitSync(c, TokGET, []byte(key))
	if err != nil {
		return nil, err
	}
	return r.Bulk, nil
}

// SetOpts carries SET's optional modifiers. A zero value means "no
// modifiers": a plain unconditional SET with no expiry.
type SetOpts struct {
	// EX is the key's expiry in seconds; zero means unset.
	EX int64
	// PX is the key's expiry in milliseconds; zero means unset. EX and PX
	// are mutually exclusive; if both are set, EX is ignored.
	PX int64
	// NX requires the key to not already exist.
	NX bool
	// XX requires the key to already exist. NX and XX are mutually
	// exclusive; if both are set, XX is ignored.
	XX bool
}

// Set writes key=value, applying opts's modifiers. Returns true if the
// server reported success (a non-null SimpleString "OK"); false if a
// conditional modifier (NX/XX) caused the server to decline without
// error (a null reply).
func Set(c *Conn, key, value string, opts SetOpts) (bool, error) {
	args := [][]byte{[]byte(key), []byte(value)}

	if opts.PX > 0 {
		args = append(args, TokPx.Bytes(), []byte(strconv.FormatInt(opts.PX, 10)))
	} else if opts.EX > 0 {
		args = append(args, TokEx.Bytes(), []byte(strconv.FormatInt(opts.EX, 10)))
	}

	if opts.NX {
		args = append(args, TokNx.Bytes())
	} else if opts.XX {
		args = append(args, TokXx.Bytes())
	}

	r, err := submitSync(c, TokSET, args...)
	if err != nil {
		return false, err
	}
	return !r.IsNil(), nil
}

// Del deletes the given keys and returns how many existed.
func Del(c *Conn, keys ...string) (int64, error) {
	r, err := submitSync(c, TokDEL, stringsToBytes(keys)...)
	if err != nil {
		return 0, err
	}
	return r.Int, nil
}

// Expire sets key's time-to-live, in seconds, and reports whether the key
// existed.
func Expire(c *Conn, key string, seconds int64) (bool, error) {
	r, err := submitSync(c, TokEXPIRE, []byte(key), []byte(strconv.FormatInt(seconds, 10)))
	if err != nil {
		return false, err
	}
	return r.Int == 1, nil
}

// TTL returns key's remaining time-to-live in seconds, -1 if it has none,
// or -2 if it does not exist.
func TTL(c *Conn, key string) (int64, error) {
	r, err := submitSync(c, TokTTL, []byte(key))
	if err != nil {
		return 0, err
	}
	return r.Int, nil
}

// Exists returns how many of the given keys exist.
func Exists(c *Conn, keys ...string) (int64, error) {
	r, err := submitSync(c, TokEXISTS, stringsToBytes(keys)...)
	if err != nil {
		return 0, err
	}
	return r.Int, nil
}

// Incr increments key by one and returns its new value.
func Incr(c *Conn, key string) (int64, error) {
	r, err := submitSync(c, TokINCR, []byte(key))
	if err != nil {
		return 0, err
	}
	return r.Int, nil
}

// HGetAll returns every field/value pair in the hash stored at key.
func HGetAll(c *Conn, key string) (map[string]string, error) {
	r, err := submitSync(c, TokHGETALL, []byte(key))
	if err != nil {
		return nil, err
	}
	if r.IsNil() {
		return nil, nil
	}
	out := make(map[string]string, len(r.Array)/2)
	for i := 0; i+1 < len(r.Array); i += 2 {
		out[string(r.Array[i].Bulk)] = string(r.Array[i+1].Bulk)
	}
	return out, nil
}

// HSet sets field=value in the hash stored at key and returns how many
// fields were newly added (as opposed to updated).
func HSet(c *Conn, key, field, value string) (int64, error) {
	r, err := submitSync(c, TokHSET, []byte(key), []byte(field), []byte(value))
	if err != nil {
		return 0, err
	}
	return r.Int, nil
}

// LPush prepends values to the list at key and returns its new length.
func LPush(c *Conn, key string, values ...string) (int64, error) {
	args := append([][]byte{[]byte(key)}, stringsToBytes(values)...)
	r, err := submitSync(c, TokLPUSH, args...)
	if err != nil {
		return 0, err
	}
	return r.Int, nil
}

// RPush appends values to the list at key and returns its new length.
func RPush(c *Conn, key string, values ...string) (int64, error) {
	args := append([][]byte{[]byte(key)}, stringsToBytes(values)...)
	r, err := submitSync(c, TokRPUSH, args...)
	if err != nil {
		return 0, err
	}
	return r.Int, nil
}

// LRange returns the elements of the list at key between start and stop
// (inclusive, zero-based, negative indices count from the end).
func LRange(c *Conn, key string, start, stop int64) ([]string, error) {
	r, err := submitSync(c, TokLRANGE, []byte(key),
		[]byte(strconv.FormatInt(start, 10)), []byte(strconv.FormatInt(stop, 10)))
	if err != nil {
		return nil, err
	}
	return replyArrayToStrings(r), nil
}

// ZAdd adds member with score to the sorted set at key and returns how
// many elements were newly added.
func ZAdd(c *Conn, key string, score float64, member string) (int64, error) {
	r, err := submitSync(c, TokZADD, []byte(key),
		[]byte(strconv.FormatFloat(score, 'f', -1, 64)), []byte(member))
	if err != nil {
		return 0, err
	}
	return r.Int, nil
}

// ZRange returns the members of the sorted set at key between start and
// stop, optionally interleaved with their scores.
func ZRange(c *Conn, key string, start, stop int64, withScores bool) ([]string, error) {
	args := [][]byte{[]byte(key), []byte(strconv.FormatInt(start, 10)), []byte(strconv.FormatInt(stop, 10))}
	if withScores {
		args = append(args, TokWithscores.Bytes())
	}
	r, err := submitSync(c, TokZRANGE, args...)
	if err != nil {
		return nil, err
	}
	return replyArrayToStrings(r), nil
}

// SortOpts carries SORT's optional sub-blocks. Each non-zero/non-empty
// field adds its keyword token and arguments to the command; all are
// independently omittable and combinable, per the BY/LIMIT/GET/STORE
// sub-block model.
type SortOpts struct {
	// By is a BY pattern; empty means omitted.
	By string
	// LimitOffset/LimitCount form a LIMIT sub-block; LimitCount == 0 means
	// the whole LIMIT sub-block is omitted.
	LimitOffset, LimitCount int64
	// Get is a list of GET patterns; empty means omitted.
	Get []string
	// Store is a STORE destination key; empty means omitted.
	Store string
}

// Sort runs SORT against the list, set, or sorted set at key, applying
// opts's sub-blocks.
func Sort(c *Conn, key string, opts SortOpts) ([]string, error) {
	args := [][]byte{[]byte(key)}

	if opts.By != "" {
		args = append(args, TokBy.Bytes(), []byte(opts.By))
	}
	if opts.LimitCount != 0 {
		args = append(args, TokLimit.Bytes(),
			[]byte(strconv.FormatInt(opts.LimitOffset, 10)),
			[]byte(strconv.FormatInt(opts.LimitCount, 10)))
	}
	for _, pattern := range opts.Get {
		args = append(args, TokGetKw.Bytes(), []byte(pattern))
	}
	if opts.Store != "" {
		args = append(args, TokStore.Bytes(), []byte(opts.Store))
	}

	r, err := submitSync(c, TokSORT, args...)
	if err != nil {
		return nil, err
	}
	return replyArrayToStrings(r), nil
}

func stringsToBytes(ss []string) [][]byte {
	out := make([][]byte, len(ss))
	for i, s := range ss {
		out[i] = []byte(s)
	}
	return out
}

func replyArrayToStrings(r resp.Reply) []string {
	if r.IsNil() {
		return nil
	}
	out := make([]string, len(r.Array))
	for i, e := range r.Array {
		out[i] = string(e.Bulk)
	}
	return out
}
