package wirekv

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wirekv/wirekv/internal/bytesutil"
	"github.com/wirekv/wirekv/resp"
)

type dialOpts struct {
	authUser, authPass string
	selectDB           string
	trace              *ConnTrace
	logger             *logrus.Logger
	keepAlive          time.Duration
}

// DialOpt is an optional behavior which can be applied to Dial to affect
// its behavior or the behavior of the Conn it creates.
type DialOpt func(*dialOpts)

const defaultAuthUser = "default"

// DialAuthPass causes Dial to perform an AUTH command once the connection
// is established, using the given password. Equivalent to
// DialAuthUser("default", pass).
func DialAuthPass(pass string) DialOpt {
	return DialAuthUser(defaultAuthUser, pass)
}

// DialAuthUser causes Dial to perform an AUTH command once the connection
// is established, using the given user and password.
func DialAuthUser(user, pass string) DialOpt {
	return func(do *dialOpts) {
		do.authUser = user
		do.authPass = pass
	}
}

// DialSelectDB causes Dial to perform a SELECT command once the connection
// is established, using the given database index.
func DialSelectDB(db int) DialOpt {
	return func(do *dialOpts) {
		do.selectDB = strconv.Itoa(db)
	}
}

// DialTrace attaches a ConnTrace to the Conn Dial creates.
func DialTrace(trace *ConnTrace) DialOpt {
	return func(do *dialOpts) {
		do.trace = trace
	}
}

// DialLogger overrides the logger the Conn uses for recovered panics and
// teardown causes. The default is logrus.StandardLogger().
func DialLogger(logger *logrus.Logger) DialOpt {
	return func(do *dialOpts) {
		do.logger = logger
	}
}

// DialKeepAlive sets the TCP keepalive period for the dialed connection. A
// zero value (the default if this option is never used) keeps net.Dialer's
// default, which enables keep-alives with the system's default period; a
// negative value disables them.
func DialKeepAlive(d time.Duration) DialOpt {
	return func(do *dialOpts) {
		do.keepAlive = d
	}
}

// Dial establishes a TCP connection to addr, wraps it in a Conn, and
// performs any AUTH/SELECT requested via opts before returning.
//
// TLS, automatic reconnect, and cluster-aware address resolution are out
// of scope; callers needing those wrap the net.Conn themselves before
// calling NewConn directly.
func Dial(ctx context.Context, network, addr string, opts ...DialOpt) (*Conn, error) {
	var do dialOpts
	for _, opt := range opts {
		opt(&do)
	}

	dialer := &net.Dialer{KeepAlive: do.keepAlive}
	netConn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	c := NewConn(netConn, do.trace, do.logger)

	if do.authUser != "" && do.authUser != defaultAuthUser {
		if err := doSimpleCommand(ctx, c, TokAUTH, []byte(do.authUser), []byte(do.authPass)); err != nil {
			c.Disconnect()
			return nil, err
		}
	} else if do.authPass != "" {
		if err := doSimpleCommand(ctx, c, TokAUTH, []byte(do.authPass)); err != nil {
			c.Disconnect()
			return nil, err
		}
	}

	if do.selectDB != "" {
		if err := doSimpleCommand(ctx, c, TokSELECT, []byte(do.selectDB)); err != nil {
			c.Disconnect()
			return nil, err
		}
	}

	return c, nil
}

// doSimpleCommand submits a command built from tok and args and blocks
// until its reply arrives, returning a RemoteError as a Go error if the
// server rejected it. It exists only for Dial's own AUTH/SELECT handshake.
func doSimpleCommand(ctx context.Context, c *Conn, tok Token, args ...[]byte) error {
	bufPtr := bytesutil.GetBytes()
	*bufPtr = resp.WriteCommand(*bufPtr, tok.Bytes(), args...)

	done := make(chan error, 1)
	err := c.Submit(*bufPtr, func(r resp.Reply, err error) {
		done <- err
	})
	bytesutil.PutBytes(bufPtr)
	if err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
