package transport

import (
	"context"
	"fmt"
	"net"

	"github.com/xtaci/kcp-go/v5"

	"github.com/cykyes/textwire/log"
)

// KCPConfig holds KCP session parameters.
type KCPConfig struct {
	// NoDelay: 0 off, 1 on
	NoDelay int
	// internal update interval in ms
	Interval int
	// fast resend after this many duplicate ACKs, 0 off
	Resend int
	// congestion control: 0 on, 1 off
	NC     int
	SndWnd int
	RcvWnd int
	MTU    int

	// Socket buffer sizes of a listener, in bytes.
	ReadBuffer  int
	WriteBuffer int
}

// DefaultKCPConfig returns balanced settings.
func DefaultKCPConfig() *KCPConfig {
	return &KCPConfig{
		NoDelay:     0,
		Interval:    30,
		Resend:      2,
		NC:          1,
		SndWnd:      64,
		RcvWnd:      64,
		MTU:         1400,
		ReadBuffer:  4 * 1024 * 1024,
		WriteBuffer: 4 * 1024 * 1024,
	}
}

// FastKCPConfig trades bandwidth for latency.
func FastKCPConfig() *KCPConfig {
	cfg := DefaultKCPConfig()
	cfg.NoDelay = 1
	cfg.Interval = 10
	cfg.SndWnd = 128
	cfg.RcvWnd = 128
	return cfg
}

// KCPTransport opens reliable KCP sessions over UDP. Sessions always run in
// stream mode, so they behave like TCP byte streams. KCP has no close
// handshake: a peer going away shows up as a stalled read, not an EOF.
type KCPTransport struct {
	config *KCPConfig
	logger log.Logger
}

func (t *KCPTransport) Listen(ctx context.Context, addr string) (Listener, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// no FEC, no block cipher
	ln, err := kcp.ListenWithOptions(addr, nil, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("listen kcp %s: %w", addr, err)
	}
	if err := ln.SetReadBuffer(t.config.ReadBuffer); err != nil {
		t.logger.Warn("kcp SetReadBuffer failed: %v", err)
	}
	if err := ln.SetWriteBuffer(t.config.WriteBuffer); err != nil {
		t.logger.Warn("kcp SetWriteBuffer failed: %v", err)
	}
	return &kcpListener{ln: ln, config: t.config}, nil
}

func (t *KCPTransport) Dial(ctx context.Context, addr string) (*Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sess, err := kcp.DialWithOptions(addr, nil, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("dial kcp %s: %w", addr, err)
	}
	configureSession(sess, t.config)
	return NewConn(sess), nil
}

func (t *KCPTransport) Protocol() string { return "kcp" }

func configureSession(sess *kcp.UDPSession, cfg *KCPConfig) {
	sess.SetStreamMode(true)
	sess.SetNoDelay(cfg.NoDelay, cfg.Interval, cfg.Resend, cfg.NC)
	sess.SetWindowSize(cfg.SndWnd, cfg.RcvWnd)
	sess.SetMtu(cfg.MTU)
	sess.SetACKNoDelay(cfg.NoDelay == 1)
}

type kcpListener struct {
	ln     *kcp.Listener
	config *KCPConfig
}

func (l *kcpListener) Accept() (*Conn, error) {
	sess, err := l.ln.AcceptKCP()
	if err != nil {
		return nil, err
	}
	configureSession(sess, l.config)
	return NewConn(sess), nil
}

func (l *kcpListener) Close() error {
	return l.ln.Close()
}

func (l *kcpListener) Addr() net.Addr {
	return l.ln.Addr()
}
