package wirekv

// Component F: command and keyword catalog.
//
// Token is a closed enumeration of RESP command names and sub-command
// keywords, each carrying a pre-encoded byte form computed once at
// startup and shared by every command helper. Commands use uppercase
// ASCII; keywords use lowercase ASCII, since keywords only ever appear as
// sub-tokens inside a command's argument list and are never themselves a
// command name, so the two sets can share one enumeration without
// collision.
type Token uint8

const (
	tokenInvalid Token = iota

	TokGET
	TokSET
	TokDEL
	TokEXPIRE
	TokINCR
	TokEXISTS
	TokTTL
	TokPING
	TokAUTH
	TokSELECT
	TokHGETALL
	TokHSET
	TokLPUSH
	TokRPUSH
	TokLRANGE
	TokSORT
	TokSUBSCRIBE
	TokUNSUBSCRIBE
	TokPSUBSCRIBE
	TokPUNSUBSCRIBE
	TokZADD
	TokZRANGE
	TokSCAN
	TokXADD
	TokXRANGE

	TokLimit
	TokWithscores
	TokMatch
	TokCount
	TokBy
	TokGetKw
	TokStore
	TokEx
	TokPx
	TokNx
	TokXx

	tokenCount
)

var tokenBytes = [tokenCount][]byte{
	TokGET:             []byte("GET"),
	TokSET:             []byte("SET"),
	TokDEL:             []byte("DEL"),
	TokEXPIRE:          []byte("EXPIRE"),
	TokINCR:            []byte("INCR"),
	TokEXISTS:          []byte("EXISTS"),
	TokTTL:             []byte("TTL"),
	TokPING:            []byte("PING"),
	TokAUTH:            []byte("AUTH"),
	TokSELECT:          []byte("SELECT"),
	TokHGETALL:         []byte("HGETALL"),
	TokHSET:            []byte("HSET"),
	TokLPUSH:           []byte("LPUSH"),
	TokRPUSH:           []byte("RPUSH"),
	TokLRANGE:          []byte("LRANGE"),
	TokSORT:            []byte("SORT"),
	TokSUBSCRIBE:       []byte("SUBSCRIBE"),
	TokUNSUBSCRIBE:     []byte("UNSUBSCRIBE"),
	TokPSUBSCRIBE:      []byte("PSUBSCRIBE"),
	TokPUNSUBSCRIBE:    []byte("PUNSUBSCRIBE"),
	TokZADD:            []byte("ZADD"),
	TokZRANGE:          []byte("ZRANGE"),
	TokSCAN:            []byte("SCAN"),
	TokXADD:            []byte("XADD"),
	TokXRANGE:          []byte("XRANGE"),

	TokLimit:      []byte("limit"),
	TokWithscores: []byte("withscores"),
	TokMatch:      []byte("match"),
	TokCount:      []byte("count"),
	TokBy:         []byte("by"),
	TokGetKw:      []byte("get"),
	TokStore:      []byte("store"),
	TokEx:         []byte("ex"),
	TokPx:         []byte("px"),
	TokNx:         []byte("nx"),
	TokXx:         []byte("xx"),
}

// Bytes returns t's pre-encoded ASCII byte form. The returned slice is
// shared process-wide and must not be mutated.
func (t Token) Bytes() []byte {
	return tokenBytes[t]
}
