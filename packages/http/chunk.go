package http

import (
	"bytes"
	"time"
)

// Chunk is one fragment of a streamed response body as delivered by the
// transport. It is never modified after construction.
type Chunk struct {
	data      []byte
	size      int
	timestamp time.Time
	index     int
}

// NewChunk copies data into a new Chunk.
func NewChunk(data []byte, index int, timestamp time.Time) Chunk {
	buf := make([]byte, len(data))
	copy(buf, data)
	return Chunk{
		data:      buf,
		size:      len(buf),
		timestamp: timestamp,
		index:     index,
	}
}

// Data returns the raw bytes. Callers must not modify the returned slice.
func (c Chunk) Data() []byte { return c.data }

// Size is the byte length of Data.
func (c Chunk) Size() int { return c.size }

// Timestamp is the time the fragment was received.
func (c Chunk) Timestamp() time.Time { return c.timestamp }

// Index is the ordinal of the chunk within its response, starting at 0.
func (c Chunk) Index() int { return c.index }

func (c Chunk) String() string { return string(c.data) }

// ChunkFunc receives chunks synchronously, in arrival order.
type ChunkFunc func(Chunk)

// ChunkSink is invoked by the transport once per received fragment.
type ChunkSink interface {
	// Write consumes one fragment. It never fails.
	Write(fragment []byte) (int, error)
	// Body is the buffered body; empty when chunks went to a callback.
	Body() []byte
	// Count is the number of fragments received.
	Count() int
}

// NewChunkSink buffers when fn is nil and streams to fn otherwise.
func NewChunkSink(fn ChunkFunc) ChunkSink {
	if fn == nil {
		return &bufferSink{}
	}
	return &streamSink{fn: fn, now: time.Now}
}

type bufferSink struct {
	buf   bytes.Buffer
	count int
}

func (s *bufferSink) Write(fragment []byte) (int, error) {
	s.count++
	return s.buf.Write(fragment)
}

func (s *bufferSink) Body() []byte { return s.buf.Bytes() }

func (s *bufferSink) Count() int { return s.count }

type streamSink struct {
	fn   ChunkFunc
	next int
	now  func() time.Time
}

func (s *streamSink) Write(fragment []byte) (int, error) {
	chunk := NewChunk(fragment, s.next, s.now())
	s.next++
	s.fn(chunk)
	return len(fragment), nil
}

func (s *streamSink) Body() []byte { return nil }

func (s *streamSink) Count() int { return s.next }
