package bgrep

import (
	"errors"
	"fmt"
	"io"
)

// Chunk is one scan window of a stream.
type Chunk struct {
	Offset  uint64 // Absolute offset of Data[0] in the stream
	Carried int    // Number of leading bytes of Data repeated from the previous chunk
	Data    []byte // Window data (points into internal buffer)
	Final   bool   // End of stream was reached while reading this chunk
}

// End returns the absolute offset one past the last byte of the chunk.
func (c Chunk) End() uint64 {
	return c.Offset + uint64(len(c.Data))
}

// ChunkReader exposes an io.Reader as a sequence of bounded chunks.
// The last overlap bytes of every chunk are carried to the front of the next
// one, so any byte sequence up to overlap+1 bytes long that spans two reads
// is contiguous in a single chunk.
//
// Memory use is overlap+chunkSize bytes regardless of the stream length.
type ChunkReader struct {
	reader    io.Reader // Input stream
	overlap   int       // Bytes carried between chunks
	chunkSize int       // Fresh bytes read per chunk

	buf    []byte // Carried tail followed by fresh data
	n      int    // Valid bytes in buf
	offset uint64 // Absolute offset of buf[0]
	done   bool   // Final chunk delivered
}

// NewChunkReader creates a ChunkReader that reads from r.
// Only WithChunkSize affects a ChunkReader; other options are validated and ignored.
func NewChunkReader(r io.Reader, overlap int, opts ...Option) (*ChunkReader, error) {
	if overlap < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidOverlap, overlap)
	}

	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}

	return newChunkReader(r, overlap, cfg.chunkSize), nil
}

func newChunkReader(r io.Reader, overlap, chunkSize int) *ChunkReader {
	return &ChunkReader{
		reader:    r,
		overlap:   overlap,
		chunkSize: chunkSize,
		buf:       make([]byte, overlap+chunkSize),
	}
}

// Next returns the next chunk of the stream.
// Returns io.EOF once the chunk marked Final has been returned.
// Read failures are returned as *StreamReadError and are not retried.
//
// The returned Chunk.Data slice is valid until the next call to Next.
func (c *ChunkReader) Next() (Chunk, error) {
	if c.done {
		return Chunk{}, io.EOF
	}

	// Move the tail of the previous chunk to the front of the buffer
	carry := min(c.overlap, c.n)
	copy(c.buf[:carry], c.buf[c.n-carry:c.n])
	c.offset += uint64(c.n - carry) //nolint:gosec // G115
	c.n = carry

	m, err := io.ReadFull(c.reader, c.buf[carry:carry+c.chunkSize])
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		c.done = true
	} else if err != nil {
		c.done = true

		return Chunk{}, &StreamReadError{Offset: c.offset + uint64(carry), Err: err} //nolint:gosec // G115
	}

	c.n += m

	return Chunk{
		Offset:  c.offset,
		Carried: carry,
		Data:    c.buf[:c.n],
		Final:   c.done,
	}, nil
}

// Reset prepares the reader for a new stream, keeping its buffer.
func (c *ChunkReader) Reset(r io.Reader) {
	c.reader = r
	c.n = 0
	c.offset = 0
	c.done = false
}

// Offset returns the number of bytes read from the stream so far.
func (c *ChunkReader) Offset() uint64 {
	return c.offset + uint64(c.n) //nolint:gosec // G115
}

// Overlap returns the number of bytes carried between chunks.
func (c *ChunkReader) Overlap() int {
	return c.overlap
}
