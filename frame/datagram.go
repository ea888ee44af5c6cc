package frame

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/cykyes/textwire/internal/pool"
)

// DatagramChannel is a connectionless message channel such as *net.UDPConn.
type DatagramChannel interface {
	ReadFrom(p []byte) (n int, addr net.Addr, err error)
	WriteTo(p []byte, addr net.Addr) (n int, err error)
}

// Datagram exchanges whole text messages over a DatagramChannel. Receives
// are serialized by the caller; one Datagram serves one session.
type Datagram struct {
	ch  DatagramChannel
	cfg Config
}

// NewDatagram wraps ch. A nil cfg uses DefaultConfig. NewDatagram panics
// with ErrInvalidConfig if cfg does not validate.
func NewDatagram(ch DatagramChannel, cfg *Config) *Datagram {
	return &Datagram{
		ch:  ch,
		cfg: resolve(cfg),
	}
}

// Receive blocks until one datagram arrives and returns its text and sender.
func (d *Datagram) Receive() (string, net.Addr, Result) {
	buf := pool.NewBuffer(d.cfg.DatagramSize)
	defer buf.Release()

	n, addr, err := d.ch.ReadFrom(buf.Bytes())
	if err != nil {
		return "", nil, d.cfg.report("receive datagram", err, true)
	}
	return d.accept(buf.Bytes()[:n]), addr, Result{}
}

// ReceiveWithDeadline is Receive bounded by timeout. A timeout of zero or
// less waits indefinitely.
//
// When the deadline wins, the Result has StatusTimeout. The receive that was
// started keeps running in the background; if a datagram reaches it later
// that datagram is dropped and counted as late.
func (d *Datagram) ReceiveWithDeadline(timeout time.Duration) (string, net.Addr, Result) {
	if timeout <= 0 {
		return d.Receive()
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return d.ReceiveContext(ctx)
}

type datagramRead struct {
	buf  *pool.Buffer
	n    int
	addr net.Addr
	err  error
}

// ReceiveContext is Receive bounded by ctx. An expired deadline gives
// StatusTimeout and a cancellation StatusCanceled, with the same abandoned
// receive as ReceiveWithDeadline.
func (d *Datagram) ReceiveContext(ctx context.Context) (string, net.Addr, Result) {
	if err := ctx.Err(); err != nil {
		return "", nil, d.cfg.report("receive datagram", err, true)
	}

	done := make(chan datagramRead, 1)
	go func() {
		buf := pool.NewBuffer(d.cfg.DatagramSize)
		n, addr, err := d.ch.ReadFrom(buf.Bytes())
		done <- datagramRead{buf: buf, n: n, addr: addr, err: err}
	}()

	select {
	case r := <-done:
		defer r.buf.Release()
		if r.err != nil {
			return "", nil, d.cfg.report("receive datagram", r.err, true)
		}
		return d.accept(r.buf.Bytes()[:r.n]), r.addr, Result{}
	case <-ctx.Done():
		go d.discardLate(done)
		return "", nil, d.cfg.report("receive datagram", ctx.Err(), true)
	}
}

func (d *Datagram) discardLate(done <-chan datagramRead) {
	r := <-done
	defer r.buf.Release()
	if r.err != nil {
		return
	}
	d.cfg.Metrics.IncLateDatagrams()
	d.cfg.Logger.Debug("dropped %d-byte datagram from %v received after its deadline", r.n, r.addr)
}

func (d *Datagram) accept(b []byte) string {
	d.cfg.Metrics.AddDatagramReceived(len(b))
	text := d.cfg.decode(d.cfg.Encoding, b)
	d.cfg.inbound(text)
	return text
}

// Send writes msg as one datagram to the channel's connected peer.
func (d *Datagram) Send(msg string) Result {
	w, ok := d.ch.(io.Writer)
	if !ok {
		return d.cfg.report("send datagram", ErrNotConnected, true)
	}
	data := d.cfg.encode(msg)
	if _, err := w.Write(data); err != nil {
		return d.cfg.report("send datagram", err, true)
	}
	d.cfg.Metrics.AddDatagramSent(len(data))
	d.cfg.outbound(msg)
	return Result{}
}

// SendTo writes msg as one datagram to addr.
func (d *Datagram) SendTo(msg string, addr net.Addr) Result {
	data := d.cfg.encode(msg)
	if _, err := d.ch.WriteTo(data, addr); err != nil {
		return d.cfg.report("send datagram", err, true)
	}
	d.cfg.Metrics.AddDatagramSent(len(data))
	d.cfg.outbound(msg)
	return Result{}
}
