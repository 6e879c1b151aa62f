package wirekv

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// acceptOnce listens on the loopback interface, accepts exactly one
// connection, and hands it to handle on its own goroutine. It returns the
// address to dial.
func acceptOnce(t *testing.T, handle func(net.Conn)) string {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		handle(conn)
	}()

	return ln.Addr().String()
}

func TestDialPerformsAuthAndSelectHandshake(t *testing.T) {
	addr := acceptOnce(t, func(conn net.Conn) {
		defer conn.Close()
		srv := newFakeServer(t, conn)

		got := srv.readCommand()
		assert.Equal(t, []string{"AUTH", "hunter2"}, got)
		srv.writeRaw([]byte("+OK\r\n"))

		got = srv.readCommand()
		assert.Equal(t, []string{"SELECT", "3"}, got)
		srv.writeRaw([]byte("+OK\r\n"))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := Dial(ctx, "tcp", addr, DialAuthPass("hunter2"), DialSelectDB(3))
	require.NoError(t, err)
	defer c.Close()
}

func TestDialPerformsAuthUserAndSelectHandshake(t *testing.T) {
	addr := acceptOnce(t, func(conn net.Conn) {
		defer conn.Close()
		srv := newFakeServer(t, conn)

		got := srv.readCommand()
		assert.Equal(t, []string{"AUTH", "alice", "hunter2"}, got)
		srv.writeRaw([]byte("+OK\r\n"))

		got = srv.readCommand()
		assert.Equal(t, []string{"SELECT", "1"}, got)
		srv.writeRaw([]byte("+OK\r\n"))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := Dial(ctx, "tcp", addr, DialAuthUser("alice", "hunter2"), DialSelectDB(1))
	require.NoError(t, err)
	defer c.Close()
}

func TestDialFailsWhenAuthRejected(t *testing.T) {
	addr := acceptOnce(t, func(conn net.Conn) {
		defer conn.Close()
		srv := newFakeServer(t, conn)

		srv.readCommand()
		srv.writeRaw([]byte("-ERR invalid password\r\n"))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := Dial(ctx, "tcp", addr, DialAuthPass("wrong"))
	require.Error(t, err)
	assert.Nil(t, c)

	re, ok := err.(*RemoteError)
	require.True(t, ok, "got %T, want *RemoteError", err)
	assert.Equal(t, "ERR invalid password", re.Msg)
}

func TestDialWithNoOptsSkipsHandshake(t *testing.T) {
	accepted := make(chan struct{})
	addr := acceptOnce(t, func(conn net.Conn) {
		defer conn.Close()
		close(accepted)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := Dial(ctx, "tcp", addr)
	require.NoError(t, err)
	defer c.Close()

	select {
	case <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("server never accepted the connection")
	}
}
