package wirekv

import "time"

// ConnTrace contains callbacks which can be triggered for specific events
// during a Conn's lifetime.
//
// All callbacks are called synchronously from the connection's loop
// goroutine; they must not block or call back into the Conn they were
// given, or the connection will deadlock.
type ConnTrace struct {
	// Submitted is called when a command is accepted onto the in-flight
	// queue and handed to the transport.
	Submitted func(ConnTraceSubmitted)

	// Completed is called when a completion fires, whether with a reply
	// or with an error.
	Completed func(ConnTraceCompleted)

	// ModeChanged is called when the connection transitions between
	// Normal and Channel mode.
	ModeChanged func(ConnTraceModeChanged)

	// ProtocolError is called when the decoder reports a fatal protocol
	// error, just before the connection is torn down.
	ProtocolError func(ConnTraceProtocolError)

	// Closed is called once the transport becomes inactive, for any
	// reason.
	Closed func(ConnTraceClosed)

	// InvariantViolation is called when the connection core detects a
	// condition the protocol guarantees cannot happen, alongside the
	// logging reportInvariantViolation always does.
	InvariantViolation func(ConnTraceInvariantViolation)
}

// ConnTraceSubmitted is passed to ConnTrace.Submitted.
type ConnTraceSubmitted struct {
	// QueueLen is the in-flight queue length immediately after this
	// submission was appended.
	QueueLen int
}

// ConnTraceCompleted is passed to ConnTrace.Completed.
type ConnTraceCompleted struct {
	// Err is non-nil if the completion fired with an error rather than a
	// reply.
	Err error

	// QueueLen is the in-flight queue length immediately after this
	// completion was popped.
	QueueLen int
}

// ConnTraceModeChanged is passed to ConnTrace.ModeChanged.
type ConnTraceModeChanged struct {
	From, To Mode
}

// ConnTraceProtocolError is passed to ConnTrace.ProtocolError.
type ConnTraceProtocolError struct {
	Err error
}

// ConnTraceClosed is passed to ConnTrace.Closed.
type ConnTraceClosed struct {
	// Err is the cause of the closure, or nil for a local Disconnect.
	Err error

	// Uptime is how long the connection was open.
	Uptime time.Duration
}

// ConnTraceInvariantViolation is passed to ConnTrace.InvariantViolation.
type ConnTraceInvariantViolation struct {
	// Reason describes which invariant was found violated.
	Reason string
}
