package archive

import (
	"errors"
	"sync"
	"time"

	"github.com/esonde/galisondaggi/internal/core"
)

// Writer is where mirrored corpus records land.
type Writer interface {
	WriteMessage(core.Message) error
	WritePoll(core.Poll) error
}

// BufferedWriter batches archive writes during an ingest pass. Records are
// flushed when the batch fills, when the flush timer fires, or on Close.
// A flush error surfaces on the next Write or Close, never silently.
type BufferedWriter struct {
	base          Writer
	batchSize     int
	flushInterval time.Duration

	mu      sync.Mutex
	buffer  []record
	timer   *time.Timer
	closed  bool
	lastErr error
}

type record struct {
	msg  *core.Message
	poll *core.Poll
}

type BufferedOptions struct {
	BatchSize     int
	FlushInterval time.Duration
}

func NewBufferedWriter(base Writer, opts BufferedOptions) *BufferedWriter {
	batch := opts.BatchSize
	if batch <= 0 {
		batch = 1
	}
	return &BufferedWriter{
		base:          base,
		batchSize:     batch,
		flushInterval: opts.FlushInterval,
	}
}

func (b *BufferedWriter) WriteMessage(msg core.Message) error {
	return b.write(record{msg: &msg})
}

func (b *BufferedWriter) WritePoll(poll core.Poll) error {
	return b.write(record{poll: &poll})
}

func (b *BufferedWriter) write(rec record) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return errors.New("buffered writer closed")
	}

	pendingErr := b.lastErr
	b.lastErr = nil

	b.buffer = append(b.buffer, rec)
	if len(b.buffer) == 1 && b.flushInterval > 0 {
		b.startTimerLocked()
	}

	if len(b.buffer) < b.batchSize {
		b.mu.Unlock()
		return pendingErr
	}

	recs := append([]record(nil), b.buffer...)
	b.buffer = b.buffer[:0]
	b.stopTimerLocked()
	b.mu.Unlock()

	if err := b.writeAll(recs); err != nil {
		return err
	}
	return pendingErr
}

func (b *BufferedWriter) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.stopTimerLocked()
	recs := append([]record(nil), b.buffer...)
	b.buffer = nil
	pendingErr := b.lastErr
	b.lastErr = nil
	b.mu.Unlock()

	if len(recs) > 0 {
		if err := b.writeAll(recs); err != nil {
			return err
		}
	}
	return pendingErr
}

func (b *BufferedWriter) onTimer() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	if len(b.buffer) == 0 {
		b.timer = nil
		b.mu.Unlock()
		return
	}
	recs := append([]record(nil), b.buffer...)
	b.buffer = b.buffer[:0]
	b.timer = nil
	b.mu.Unlock()

	if err := b.writeAll(recs); err != nil {
		b.mu.Lock()
		b.lastErr = err
		b.mu.Unlock()
	}
}

func (b *BufferedWriter) startTimerLocked() {
	if b.flushInterval <= 0 {
		return
	}
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.flushInterval, b.onTimer)
}

func (b *BufferedWriter) stopTimerLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

func (b *BufferedWriter) writeAll(recs []record) error {
	for _, rec := range recs {
		var err error
		switch {
		case rec.msg != nil:
			err = b.base.WriteMessage(*rec.msg)
		case rec.poll != nil:
			err = b.base.WritePoll(*rec.poll)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
