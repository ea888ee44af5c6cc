package frame

import (
	"errors"
	"io"
	"strings"

	"golang.org/x/text/encoding"

	"github.com/cykyes/textwire/internal/pool"
)

// Stream is a byte-duplex channel in connected mode.
type Stream interface {
	io.Reader
	io.Writer
}

// ReadableStream is a Stream that can tell whether reading still makes sense.
// ReceiveAll checks it before reading.
type ReadableStream interface {
	Stream
	Readable() bool
}

// maxEmptyReads bounds the zero-byte, nil-error reads tolerated while
// waiting for a single byte.
const maxEmptyReads = 100

// Framer cuts text messages out of one Stream. It is not safe for
// concurrent use; a session owns its Framer.
type Framer struct {
	s   Stream
	br  io.ByteReader
	cfg Config
	one [1]byte
}

// New wraps s. A nil cfg uses DefaultConfig. New panics with
// ErrInvalidConfig if cfg does not validate.
func New(s Stream, cfg *Config) *Framer {
	f := &Framer{
		s:   s,
		cfg: resolve(cfg),
	}
	if br, ok := s.(io.ByteReader); ok {
		f.br = br
	}
	return f
}

// Config returns a copy of the framer's configuration.
func (f *Framer) Config() Config {
	return f.cfg
}

func (f *Framer) readByte() (byte, error) {
	if f.br != nil {
		return f.br.ReadByte()
	}
	for i := 0; i < maxEmptyReads; i++ {
		n, err := f.s.Read(f.one[:])
		if n == 1 {
			return f.one[0], nil
		}
		if err != nil {
			return 0, err
		}
	}
	return 0, io.ErrNoProgress
}

// ReadLine reads one line and returns it without its terminator. It consumes
// bytes one at a time and never reads past the end of the line.
//
// In CRLF mode a carriage return ends the line and the byte after it is
// consumed whatever it is. In LF mode a line feed ends the line and any
// carriage return stays part of it.
//
// The Result is not OK only when the stream failed, or ended before a single
// byte of the line arrived. A final line cut short by the end of the stream
// is returned as OK.
func (f *Framer) ReadLine() (string, Result) {
	var (
		line     []byte
		consumed int
	)
	crlf := f.cfg.Terminator == CRLF

loop:
	for {
		b, err := f.readByte()
		if err != nil {
			if errors.Is(err, io.EOF) && consumed > 0 {
				break loop
			}
			return "", f.cfg.report("read line", err, false)
		}
		consumed++

		switch {
		case crlf && b == '\r':
			_, err := f.readByte()
			if err == nil {
				consumed++
			} else if !errors.Is(err, io.EOF) {
				return "", f.cfg.report("read line", err, false)
			}
			break loop
		case !crlf && b == '\n':
			break loop
		}
		line = append(line, b)
	}

	f.cfg.Metrics.IncLinesRead()
	f.cfg.Metrics.AddBytesReceived(consumed)

	text := f.cfg.decode(f.cfg.Encoding, line)
	f.cfg.inbound(text)
	return text, Result{}
}

// ReceiveChunk performs one read of at most ChunkSize bytes and returns
// whatever arrived, decoded with the configured encoding.
func (f *Framer) ReceiveChunk() (string, Result) {
	return f.receiveChunk(f.cfg.Encoding)
}

// ReceiveChunkEncoding is ReceiveChunk with a one-off encoding. A nil enc
// uses the configured one.
func (f *Framer) ReceiveChunkEncoding(enc encoding.Encoding) (string, Result) {
	if enc == nil {
		enc = f.cfg.Encoding
	}
	return f.receiveChunk(enc)
}

func (f *Framer) receiveChunk(enc encoding.Encoding) (string, Result) {
	buf := pool.NewBuffer(f.cfg.ChunkSize)
	defer buf.Release()

	n, err := f.s.Read(buf.Bytes())
	if n > 0 {
		f.cfg.Metrics.AddChunk(n)
		text := f.cfg.decode(enc, buf.Bytes()[:n])
		f.cfg.inbound(text)
		return text, Result{}
	}
	if err == nil {
		err = io.EOF
	}
	return "", f.cfg.report("receive chunk", err, false)
}

// ReceiveUntil concatenates chunks until one ends with sentinel. Only the
// latest chunk is checked, so a sentinel split across two reads is missed
// and reading continues.
//
// On failure the text gathered so far is returned with the failing Result.
func (f *Framer) ReceiveUntil(sentinel string) (string, Result) {
	var msg strings.Builder
	for {
		chunk, res := f.ReceiveChunk()
		if !res.OK() {
			return msg.String(), res
		}
		msg.WriteString(chunk)
		if strings.HasSuffix(chunk, sentinel) {
			f.cfg.Metrics.IncSentinelMatches()
			return msg.String(), res
		}
	}
}

// ReceiveUntilDot reads a POP3 multi-line body: ReceiveUntil with the lone
// dot line ".\r\n" (".\n" in LF mode) as sentinel.
func (f *Framer) ReceiveUntilDot() (string, Result) {
	return f.ReceiveUntil(f.cfg.DotLine())
}

// ReceiveAll reads chunks until the stream ends and returns their
// concatenation. It is OK when at least one chunk arrived.
//
// ReceiveAll panics with ErrNotReadable when s is a ReadableStream that
// reports itself not readable.
func (f *Framer) ReceiveAll() (string, Result) {
	if rs, ok := f.s.(ReadableStream); ok && !rs.Readable() {
		panic(ErrNotReadable)
	}

	var (
		msg      strings.Builder
		received bool
	)
	for {
		chunk, res := f.ReceiveChunk()
		if !res.OK() {
			if received {
				return msg.String(), Result{}
			}
			return "", res
		}
		received = true
		msg.WriteString(chunk)
	}
}

// SkipLine reads and discards one line.
func (f *Framer) SkipLine() Result {
	_, res := f.ReadLine()
	return res
}

// SkipLines reads and discards n lines, stopping at the first failure.
// It panics with ErrInvalidCount when n < 1.
func (f *Framer) SkipLines(n int) Result {
	if n < 1 {
		panic(ErrInvalidCount)
	}
	for i := 0; i < n; i++ {
		if res := f.SkipLine(); !res.OK() {
			return res
		}
	}
	return Result{}
}

// ReadLinesUntil reads lines until one equals marker. The marker line is
// consumed but not returned. On failure the lines read so far are returned.
func (f *Framer) ReadLinesUntil(marker string) ([]string, Result) {
	var lines []string
	for {
		line, res := f.ReadLine()
		if !res.OK() {
			return lines, res
		}
		if line == marker {
			return lines, res
		}
		lines = append(lines, line)
	}
}

// ReadUntilLineSuffix discards lines until one ends with suffix and returns
// that line.
func (f *Framer) ReadUntilLineSuffix(suffix string) (string, Result) {
	for {
		line, res := f.ReadLine()
		if !res.OK() {
			return "", res
		}
		if strings.HasSuffix(line, suffix) {
			return line, res
		}
	}
}
