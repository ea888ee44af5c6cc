// Package pool keeps read buffers for chunk and datagram receives so that a
// busy session does not allocate a new buffer per read.
package pool

import (
	"sync"
)

const (
	// ChunkBufferSize is the default capacity of one stream chunk read.
	ChunkBufferSize = 256

	// DatagramBufferSize fits the largest UDP payload.
	DatagramBufferSize = 65535
)

var (
	chunkPool = sync.Pool{
		New: func() interface{} {
			buf := make([]byte, ChunkBufferSize)
			return &buf
		},
	}

	datagramPool = sync.Pool{
		New: func() interface{} {
			buf := make([]byte, DatagramBufferSize)
			return &buf
		},
	}
)

// GetDatagramBuffer returns a DatagramBufferSize buffer; hand it back with
// PutDatagramBuffer.
func GetDatagramBuffer() *[]byte {
	return datagramPool.Get().(*[]byte)
}

// PutDatagramBuffer returns buf to the datagram pool.
func PutDatagramBuffer(buf *[]byte) {
	if buf == nil {
		return
	}
	*buf = (*buf)[:cap(*buf)]
	datagramPool.Put(buf)
}

// Buffer is a read buffer of a requested size, backed by the smallest pool
// that fits it. Sizes above DatagramBufferSize are allocated and never pooled.
type Buffer struct {
	data *[]byte
	pool *sync.Pool
	len  int
}

// NewBuffer returns a buffer whose Bytes has length size.
func NewBuffer(size int) *Buffer {
	var p *sync.Pool
	switch {
	case size <= ChunkBufferSize:
		p = &chunkPool
	case size <= DatagramBufferSize:
		p = &datagramPool
	default:
		buf := make([]byte, size)
		return &Buffer{data: &buf, len: size}
	}

	return &Buffer{
		data: p.Get().(*[]byte),
		pool: p,
		len:  size,
	}
}

// Bytes returns the usable part of the buffer.
func (b *Buffer) Bytes() []byte {
	if b.data == nil {
		return nil
	}
	if b.len > len(*b.data) {
		return *b.data
	}
	return (*b.data)[:b.len]
}

// Cap returns the capacity of the backing array.
func (b *Buffer) Cap() int {
	if b.data == nil {
		return 0
	}
	return cap(*b.data)
}

// Release hands the backing array back to its pool. The buffer must not be
// used afterwards.
func (b *Buffer) Release() {
	if b.data == nil {
		return
	}
	if b.pool != nil {
		*b.data = (*b.data)[:cap(*b.data)]
		b.pool.Put(b.data)
	}
	b.data = nil
	b.pool = nil
}
