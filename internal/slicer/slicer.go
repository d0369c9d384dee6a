// Package slicer reads a file through a double-buffered producer/consumer
// pipeline and emits fixed-size chunks for the ingestion orchestrator to
// digest and store. The reader goroutine and the chunking goroutine run
// concurrently, handing 64MiB buffers back and forth over a pair of
// capacity-2 channels so the processor is never waiting on a cold read.
package slicer

import (
	"context"
	"io"
	"os"

	"github.com/canmi21/rfs/pkg/rfserrors"
	"go.uber.org/zap"
)

// BufferSize is the size of each of the two buffers cycled between the
// reader and the processor.
const BufferSize = 64 * 1024 * 1024

// ChunkSize is the size of each emitted chunk, except possibly the last
// chunk of the file, which may be shorter.
const ChunkSize = 128 * 1024

// Chunk is one fixed-size slice of a file's content, in file order.
type Chunk struct {
	Index uint64
	Data  []byte
}

// filledBuffer pairs a buffer with the number of valid bytes it holds.
type filledBuffer struct {
	buf []byte
	n   int
}

// Slice streams path through the double-buffer pipeline, invoking onChunk
// once per ChunkSize-sized slice in order, starting at index 0. A
// zero-byte file invokes onChunk zero times. Unlike a design that logs and
// swallows read errors, a read failure here aborts the pipeline and is
// returned to the caller, since a silently truncated ingest would produce
// metadata that claims more content than was actually stored.
func Slice(ctx context.Context, log *zap.SugaredLogger, path string, onChunk func(Chunk) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel() // unblocks the reader goroutine on every exit path

	full := make(chan filledBuffer, 2)
	empty := make(chan []byte, 2)
	readErr := make(chan error, 1)

	empty <- make([]byte, BufferSize)
	empty <- make([]byte, BufferSize)

	go func() {
		defer close(full)

		file, err := os.Open(path)
		if err != nil {
			readErr <- rfserrors.ClassifyIOError(err, path)
			return
		}
		defer file.Close()

		for {
			select {
			case <-ctx.Done():
				readErr <- ctx.Err()
				return
			case buf, ok := <-empty:
				if !ok {
					return
				}
				n, err := file.Read(buf)
				if n > 0 {
					full <- filledBuffer{buf: buf, n: n}
				}
				if err == io.EOF {
					return
				}
				if err != nil {
					readErr <- rfserrors.ClassifyIOError(err, path)
					return
				}
			}
		}
	}()

	var index uint64
	for fb := range full {
		log.Debugw("processing buffer", "bytes", fb.n)

		for off := 0; off < fb.n; off += ChunkSize {
			end := off + ChunkSize
			if end > fb.n {
				end = fb.n
			}
			chunk := Chunk{Index: index, Data: fb.buf[off:end]}
			if err := onChunk(chunk); err != nil {
				cancel() // unblock the reader before draining its output
				drain(full)
				return err
			}
			index++
		}

		empty <- fb.buf
	}

	select {
	case err := <-readErr:
		return err
	default:
		return nil
	}
}

// drain discards any buffers left in flight after an early exit so the
// reader goroutine's sends never block forever.
func drain(full <-chan filledBuffer) {
	for range full {
	}
}
