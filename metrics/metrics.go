package metrics

import (
	"sync/atomic"
	"time"
)

// Collector counts framing activity. All methods are safe for concurrent use
// and a nil *Collector ignores every call.
type Collector struct {
	// Stream reads.
	linesRead       int64
	chunksRead      int64
	bytesReceived   int64
	sentinelMatches int64

	// Writes.
	messagesSent int64
	bytesSent    int64

	// Datagrams.
	datagramsReceived int64
	datagramsSent     int64
	lateDatagrams     int64

	// Outcomes.
	closes   int64
	resets   int64
	timeouts int64
	errors   int64

	startTime atomic.Int64
}

// NewCollector creates a new Collector.
func NewCollector() *Collector {
	c := &Collector{}
	c.startTime.Store(time.Now().UnixNano())
	return c
}

// add is only called after the nil check in the exported method.
func (c *Collector) add(p *int64, n int64) {
	atomic.AddInt64(p, n)
}

func (c *Collector) IncLinesRead() {
	if c != nil {
		c.add(&c.linesRead, 1)
	}
}

// AddChunk records one successful chunk read of n bytes.
func (c *Collector) AddChunk(n int) {
	if c == nil {
		return
	}
	c.add(&c.chunksRead, 1)
	c.add(&c.bytesReceived, int64(n))
}

// AddBytesReceived records bytes consumed outside chunk reads (line reads).
func (c *Collector) AddBytesReceived(n int) {
	if c != nil {
		c.add(&c.bytesReceived, int64(n))
	}
}

func (c *Collector) IncSentinelMatches() {
	if c != nil {
		c.add(&c.sentinelMatches, 1)
	}
}

// AddSent records one written message of n bytes.
func (c *Collector) AddSent(n int) {
	if c == nil {
		return
	}
	c.add(&c.messagesSent, 1)
	c.add(&c.bytesSent, int64(n))
}

// AddDatagramReceived records one datagram of n bytes.
func (c *Collector) AddDatagramReceived(n int) {
	if c == nil {
		return
	}
	c.add(&c.datagramsReceived, 1)
	c.add(&c.bytesReceived, int64(n))
}

// AddDatagramSent records one datagram of n bytes.
func (c *Collector) AddDatagramSent(n int) {
	if c == nil {
		return
	}
	c.add(&c.datagramsSent, 1)
	c.add(&c.bytesSent, int64(n))
}

func (c *Collector) IncLateDatagrams() {
	if c != nil {
		c.add(&c.lateDatagrams, 1)
	}
}

func (c *Collector) IncCloses() {
	if c != nil {
		c.add(&c.closes, 1)
	}
}

func (c *Collector) IncResets() {
	if c != nil {
		c.add(&c.resets, 1)
	}
}

func (c *Collector) IncTimeouts() {
	if c != nil {
		c.add(&c.timeouts, 1)
	}
}

func (c *Collector) IncErrors() {
	if c != nil {
		c.add(&c.errors, 1)
	}
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Uptime time.Duration

	LinesRead       int64
	ChunksRead      int64
	BytesReceived   int64
	SentinelMatches int64

	MessagesSent int64
	BytesSent    int64

	DatagramsReceived int64
	DatagramsSent     int64
	LateDatagrams     int64

	Closes   int64
	Resets   int64
	Timeouts int64
	Errors   int64

	// TimeoutRate is timeouts per datagram receive attempt that ended.
	TimeoutRate float64
}

func (c *Collector) GetSnapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	s := Snapshot{
		Uptime: time.Since(time.Unix(0, c.startTime.Load())),

		LinesRead:       atomic.LoadInt64(&c.linesRead),
		ChunksRead:      atomic.LoadInt64(&c.chunksRead),
		BytesReceived:   atomic.LoadInt64(&c.bytesReceived),
		SentinelMatches: atomic.LoadInt64(&c.sentinelMatches),

		MessagesSent: atomic.LoadInt64(&c.messagesSent),
		BytesSent:    atomic.LoadInt64(&c.bytesSent),

		DatagramsReceived: atomic.LoadInt64(&c.datagramsReceived),
		DatagramsSent:     atomic.LoadInt64(&c.datagramsSent),
		LateDatagrams:     atomic.LoadInt64(&c.lateDatagrams),

		Closes:   atomic.LoadInt64(&c.closes),
		Resets:   atomic.LoadInt64(&c.resets),
		Timeouts: atomic.LoadInt64(&c.timeouts),
		Errors:   atomic.LoadInt64(&c.errors),
	}

	if attempts := s.DatagramsReceived + s.Timeouts; attempts > 0 {
		s.TimeoutRate = float64(s.Timeouts) / float64(attempts)
	}
	return s
}

func (c *Collector) Reset() {
	if c == nil {
		return
	}
	for _, p := range []*int64{
		&c.linesRead, &c.chunksRead, &c.bytesReceived, &c.sentinelMatches,
		&c.messagesSent, &c.bytesSent,
		&c.datagramsReceived, &c.datagramsSent, &c.lateDatagrams,
		&c.closes, &c.resets, &c.timeouts, &c.errors,
	} {
		atomic.StoreInt64(p, 0)
	}
	c.startTime.Store(time.Now().UnixNano())
}

// Global is the process-level collector used when a framer is not given one.
var Global = NewCollector()
