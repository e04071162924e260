package pipeline

import "time"

// batchBuffer accumulates utterances and signals a flush when full or when
// the oldest pending utterance has waited longer than window.
type batchBuffer struct {
	maxSize int
	window  time.Duration

	pending []Utterance
	timer   *time.Timer
}

func newBatchBuffer(maxSize int, window time.Duration) *batchBuffer {
	return &batchBuffer{maxSize: maxSize, window: window}
}

// add appends u and starts the flush timer on the first pending utterance.
// Returns true if the buffer is full.
func (b *batchBuffer) add(u Utterance) bool {
	b.pending = append(b.pending, u)
	if len(b.pending) == 1 && b.window > 0 {
		b.timer = time.NewTimer(b.window)
	}
	return len(b.pending) >= b.maxSize
}

// flushCh returns the timer's channel, or nil if no timer is active.
func (b *batchBuffer) flushCh() <-chan time.Time {
	if b.timer == nil {
		return nil
	}
	return b.timer.C
}

// take returns the pending utterances and resets the buffer.
func (b *batchBuffer) take() []Utterance {
	batch := b.pending
	b.pending = nil
	b.stop()
	return batch
}

func (b *batchBuffer) stop() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}
