// Package transport opens the connected byte streams that frame.Framer
// reads from: plain TCP, or KCP sessions over UDP for lossy links. It also
// opens the UDP sockets used by frame.Datagram.
package transport

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/cykyes/textwire/log"
)

// Transport opens connected streams.
type Transport interface {
	// Listen announces on addr ("host:port", port 0 picks one).
	Listen(ctx context.Context, addr string) (Listener, error)
	// Dial connects to addr.
	Dial(ctx context.Context, addr string) (*Conn, error)
	// Protocol returns "tcp" or "kcp".
	Protocol() string
}

// Listener accepts connected streams.
type Listener interface {
	Accept() (*Conn, error)
	Close() error
	Addr() net.Addr
}

type options struct {
	kcp    *KCPConfig
	logger log.Logger
}

// Option configures a Transport.
type Option func(*options)

// WithKCPConfig sets the KCP session parameters. Ignored by TCP.
func WithKCPConfig(cfg *KCPConfig) Option {
	return func(o *options) {
		o.kcp = cfg
	}
}

// WithLogger sets the logger for setup problems that do not fail the call.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// NewTransport returns the transport registered under name: "tcp" or "kcp".
func NewTransport(name string, opts ...Option) (Transport, error) {
	o := options{
		kcp:    DefaultKCPConfig(),
		logger: log.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.kcp == nil {
		o.kcp = DefaultKCPConfig()
	}
	if o.logger == nil {
		o.logger = log.Nop()
	}

	switch strings.ToLower(name) {
	case "tcp", "":
		return &TCPTransport{logger: o.logger}, nil
	case "kcp":
		return &KCPTransport{config: o.kcp, logger: o.logger}, nil
	default:
		return nil, fmt.Errorf("unknown transport %q", name)
	}
}

// TCPTransport opens plain TCP connections.
type TCPTransport struct {
	logger log.Logger
}

func (t *TCPTransport) Listen(ctx context.Context, addr string) (Listener, error) {
	ln, err := listenConfig().Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen tcp %s: %w", addr, err)
	}
	return &tcpListener{Listener: ln}, nil
}

func (t *TCPTransport) Dial(ctx context.Context, addr string) (*Conn, error) {
	var d net.Dialer
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial tcp %s: %w", addr, err)
	}
	return NewConn(c), nil
}

func (t *TCPTransport) Protocol() string { return "tcp" }

type tcpListener struct {
	net.Listener
}

func (l *tcpListener) Accept() (*Conn, error) {
	c, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	return NewConn(c), nil
}

// ListenUDP opens an unconnected UDP socket on addr for frame.Datagram.
func ListenUDP(ctx context.Context, addr string) (*net.UDPConn, error) {
	pc, err := listenConfig().ListenPacket(ctx, "udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen udp %s: %w", addr, err)
	}
	conn, ok := pc.(*net.UDPConn)
	if !ok {
		pc.Close()
		return nil, fmt.Errorf("listen udp %s: unexpected %T", addr, pc)
	}
	return conn, nil
}

// DialUDP opens a UDP socket connected to addr, so that frame.Datagram.Send
// has a default peer.
func DialUDP(ctx context.Context, addr string) (*net.UDPConn, error) {
	var d net.Dialer
	c, err := d.DialContext(ctx, "udp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial udp %s: %w", addr, err)
	}
	return c.(*net.UDPConn), nil
}
