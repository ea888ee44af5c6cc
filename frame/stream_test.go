package frame

import (
	"bytes"
	"io"
	"sync"

	"github.com/cykyes/textwire/metrics"
)

// scriptStream hands out one scripted chunk per Read, then returns err
// (io.EOF when unset). Writes are collected.
type scriptStream struct {
	mu     sync.Mutex
	chunks [][]byte
	err    error
	reads  int
	out    bytes.Buffer
}

func newScript(chunks ...string) *scriptStream {
	s := &scriptStream{}
	for _, c := range chunks {
		s.chunks = append(s.chunks, []byte(c))
	}
	return s
}

func (s *scriptStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reads++
	if len(s.chunks) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		return 0, io.EOF
	}
	n := copy(p, s.chunks[0])
	if n < len(s.chunks[0]) {
		s.chunks[0] = s.chunks[0][n:]
	} else {
		s.chunks = s.chunks[1:]
	}
	return n, nil
}

func (s *scriptStream) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.Write(p)
}

func (s *scriptStream) written() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.String()
}

// closedStream reports itself not readable.
type closedStream struct {
	scriptStream
}

func (*closedStream) Readable() bool { return false }

// failWriter rejects every write.
type failWriter struct {
	scriptStream
	err error
}

func (w *failWriter) Write(p []byte) (int, error) { return 0, w.err }

// testConfig returns a config with a private collector so counters are not
// shared between tests.
func testConfig(opts ...Option) (*Config, *metrics.Collector) {
	m := metrics.NewCollector()
	cfg, err := NewConfig(append([]Option{WithMetrics(m)}, opts...)...)
	if err != nil {
		panic(err)
	}
	return cfg, m
}
