package frame

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
)

var (
	// ErrNotReadable is the panic value of ReceiveAll on a stream that
	// already reports itself closed.
	ErrNotReadable = errors.New("textwire: stream is not readable")

	// ErrInvalidCount is the panic value of SkipLines with a count below 1.
	ErrInvalidCount = errors.New("textwire: line count must be at least 1")

	// ErrInvalidConfig wraps the panic value of New and NewDatagram when the
	// configuration does not validate.
	ErrInvalidConfig = errors.New("textwire: invalid configuration")

	// ErrNotConnected is returned by Datagram.Send when the channel has no
	// default peer.
	ErrNotConnected = errors.New("textwire: datagram channel has no default peer")
)

// Status is the outcome of one framing operation.
type Status uint8

const (
	// StatusOK means the operation produced its message.
	StatusOK Status = iota
	// StatusClosed means the peer closed the stream, or the local side did.
	StatusClosed
	// StatusReset means the peer aborted the connection.
	StatusReset
	// StatusTimeout means a deadline expired before anything arrived.
	StatusTimeout
	// StatusCanceled means the caller's context was canceled.
	StatusCanceled
	// StatusError covers every other I/O failure.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusClosed:
		return "closed"
	case StatusReset:
		return "reset"
	case StatusTimeout:
		return "timeout"
	case StatusCanceled:
		return "canceled"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Result reports how an operation ended. Err carries the underlying error
// for every status except StatusOK.
type Result struct {
	Status Status
	Err    error
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool {
	return r.Status == StatusOK
}

// TimedOut reports whether a deadline expired.
func (r Result) TimedOut() bool {
	return r.Status == StatusTimeout
}

func (r Result) String() string {
	if r.Err == nil {
		return r.Status.String()
	}
	return r.Status.String() + ": " + r.Err.Error()
}

// classify maps an I/O error onto a Status.
func classify(err error) Status {
	var netErr net.Error
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.ErrClosedPipe),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, os.ErrClosed):
		return StatusClosed
	case isReset(err):
		return StatusReset
	case errors.Is(err, context.Canceled):
		return StatusCanceled
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, os.ErrDeadlineExceeded):
		return StatusTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return StatusTimeout
	default:
		return StatusError
	}
}

// report counts and logs a failed operation and turns it into a Result.
// An orderly close is expected and only logged at debug level. loud raises
// resets to warn, for writes and datagram receives where they are unusual.
func (c *Config) report(op string, err error, loud bool) Result {
	status := classify(err)
	switch status {
	case StatusClosed:
		c.Metrics.IncCloses()
		if errors.Is(err, io.EOF) {
			c.Logger.Debug("%s: peer closed the stream", op)
		} else {
			c.Logger.Warn("%s: %v", op, err)
		}
	case StatusReset:
		c.Metrics.IncResets()
		if loud {
			c.Logger.Warn("%s: connection reset by peer: %v", op, err)
		} else {
			c.Logger.Debug("%s: connection reset by peer", op)
		}
	case StatusTimeout:
		c.Metrics.IncTimeouts()
		c.Logger.Debug("%s: deadline expired", op)
	case StatusCanceled:
		c.Logger.Debug("%s: canceled", op)
	default:
		c.Metrics.IncErrors()
		c.Logger.Error("%s: %v", op, err)
	}
	return Result{Status: status, Err: err}
}
