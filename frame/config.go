package frame

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"

	"github.com/cykyes/textwire/internal/pool"
	"github.com/cykyes/textwire/log"
	"github.com/cykyes/textwire/metrics"
)

// Terminator selects the line ending used for reading and writing lines.
type Terminator int

const (
	// CRLF is the two-byte "\r\n" ending used by HTTP, POP3 and SMTP.
	CRLF Terminator = iota
	// LF is the single-byte "\n" ending.
	LF
)

// String returns the terminator bytes.
func (t Terminator) String() string {
	switch t {
	case CRLF:
		return "\r\n"
	case LF:
		return "\n"
	default:
		return ""
	}
}

// Name returns "crlf" or "lf".
func (t Terminator) Name() string {
	switch t {
	case CRLF:
		return "crlf"
	case LF:
		return "lf"
	default:
		return fmt.Sprintf("terminator(%d)", int(t))
	}
}

// ParseTerminator accepts "crlf" or "lf" in any case.
func ParseTerminator(s string) (Terminator, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "crlf", "":
		return CRLF, nil
	case "lf":
		return LF, nil
	default:
		return CRLF, fmt.Errorf("unknown line terminator %q", s)
	}
}

// Config is built once, before any session starts, and only read afterwards.
// New and NewDatagram keep their own copy.
type Config struct {
	// Line ending for ReadLine, Send and the POP3 dot line.
	Terminator Terminator

	// Text encoding for decoding reads and encoding writes. Defaults to ASCII.
	Encoding encoding.Encoding

	// Capacity of a single ReceiveChunk read.
	ChunkSize int

	// Capacity of a single datagram receive.
	DatagramSize int

	// Echo all traffic to Traffic, inbound prefixed with "<<<< " and
	// outbound with ">>>>> ".
	Verbose bool
	Traffic io.Writer

	// Sink for non-fatal conditions. Silent by default.
	Logger log.Logger

	// Counters. Defaults to metrics.Global.
	Metrics *metrics.Collector

	err error
}

// DefaultConfig returns CRLF lines, ASCII text, 256-byte chunks and a silent
// logger.
func DefaultConfig() *Config {
	return &Config{
		Terminator:   CRLF,
		Encoding:     ASCII,
		ChunkSize:    pool.ChunkBufferSize,
		DatagramSize: pool.DatagramBufferSize,
		Verbose:      false,
		Traffic:      os.Stdout,
		Logger:       log.Nop(),
		Metrics:      metrics.Global,
	}
}

// Validate checks the configuration and fills unset optional fields.
func (c *Config) Validate() error {
	var errs []error

	if c.err != nil {
		errs = append(errs, c.err)
	}

	if c.Terminator != CRLF && c.Terminator != LF {
		errs = append(errs, fmt.Errorf("unsupported line terminator %d", int(c.Terminator)))
	}

	if c.ChunkSize < 1 {
		errs = append(errs, errors.New("ChunkSize must be at least 1"))
	}

	if c.DatagramSize < 1 || c.DatagramSize > pool.DatagramBufferSize {
		errs = append(errs, fmt.Errorf("DatagramSize must be between 1 and %d", pool.DatagramBufferSize))
	}

	if c.Encoding == nil {
		c.Encoding = ASCII
	}
	if c.Traffic == nil {
		c.Traffic = os.Stdout
	}
	if c.Logger == nil {
		c.Logger = log.Nop()
	}
	if c.Metrics == nil {
		c.Metrics = metrics.Global
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// DotLine is the POP3 end-of-body line: a lone dot plus the terminator.
func (c *Config) DotLine() string {
	return "." + c.Terminator.String()
}

// Option configures a Config.
type Option func(*Config)

// NewConfig applies opts to DefaultConfig and validates the result.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WithTerminator sets the line ending.
func WithTerminator(t Terminator) Option {
	return func(c *Config) {
		c.Terminator = t
	}
}

// WithEncoding sets the text encoding.
func WithEncoding(enc encoding.Encoding) Option {
	return func(c *Config) {
		if enc != nil {
			c.Encoding = enc
		}
	}
}

// WithEncodingName looks the encoding up by IANA name ("utf-8",
// "iso-8859-1", "windows-1252", "us-ascii", ...). An unknown name makes
// Validate fail.
func WithEncodingName(name string) Option {
	return func(c *Config) {
		enc, err := LookupEncoding(name)
		if err != nil {
			c.err = err
			return
		}
		c.Encoding = enc
	}
}

// WithChunkSize sets the capacity of a single chunk read.
func WithChunkSize(n int) Option {
	return func(c *Config) {
		c.ChunkSize = n
	}
}

// WithDatagramSize sets the capacity of a single datagram receive.
func WithDatagramSize(n int) Option {
	return func(c *Config) {
		c.DatagramSize = n
	}
}

// WithVerbose turns traffic echo on or off.
func WithVerbose(verbose bool) Option {
	return func(c *Config) {
		c.Verbose = verbose
	}
}

// WithTraffic redirects traffic echo.
func WithTraffic(w io.Writer) Option {
	return func(c *Config) {
		if w != nil {
			c.Traffic = w
		}
	}
}

// WithLogger sets the observability sink.
func WithLogger(logger log.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithMetrics sets the collector framers count into.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Config) {
		if m != nil {
			c.Metrics = m
		}
	}
}

// resolve copies cfg, fills defaults on the copy and panics when it is
// invalid. The caller's Config is never written.
func resolve(cfg *Config) Config {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := *cfg
	if err := c.Validate(); err != nil {
		panic(fmt.Errorf("%w: %v", ErrInvalidConfig, err))
	}
	return c
}

// inbound echoes received text in verbose mode.
func (c *Config) inbound(msg string) {
	if c.Verbose {
		fmt.Fprintln(c.Traffic, "<<<< "+msg)
	}
}

// outbound echoes sent text in verbose mode.
func (c *Config) outbound(msg string) {
	if c.Verbose {
		fmt.Fprintln(c.Traffic, ">>>>> "+msg)
	}
}
