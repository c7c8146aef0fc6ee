// Package stt turns recorded caller audio into text.
//
// Transcriber is the narrow capability the call controller depends on.
// Whisper implements it against any OpenAI-compatible transcription API.
package stt

import (
	"context"
	"sync/atomic"

	"github.com/valyala/bytebufferpool"
)

// Transcriber converts audio bytes to text.
//
// An empty transcript is a valid result. Failures are reported as
// *TranscriptionError.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// BufferPool hands out transient audio buffers. Every Acquire must be paired
// with a Release; InUse reports buffers currently held.
type BufferPool struct {
	pool  bytebufferpool.Pool
	inUse atomic.Int64
}

// Acquire returns an empty buffer.
func (p *BufferPool) Acquire() *bytebufferpool.ByteBuffer {
	p.inUse.Add(1)
	return p.pool.Get()
}

// Release returns the buffer to the pool. The buffer must not be used after.
func (p *BufferPool) Release(b *bytebufferpool.ByteBuffer) {
	if b == nil {
		return
	}
	b.Reset()
	p.pool.Put(b)
	p.inUse.Add(-1)
}

// InUse returns the number of acquired, unreleased buffers.
func (p *BufferPool) InUse() int64 {
	return p.inUse.Load()
}
