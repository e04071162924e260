package pipeline

import (
	"bufio"
	"context"
	"io"
	"strings"
)

const maxLineBytes = 1 << 20

// Lines scans r and emits every non-blank line, trimmed and numbered from 1.
// The channel is closed at EOF, on a read error or when ctx is cancelled; the
// returned function then reports the error, if any.
func Lines(ctx context.Context, r io.Reader) (<-chan Utterance, func() error) {
	ch := make(chan Utterance)
	done := make(chan struct{})
	var err error

	go func() {
		defer close(done)
		defer close(ch)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for n := 1; sc.Scan(); n++ {
			text := strings.TrimSpace(sc.Text())
			if text == "" {
				continue
			}
			select {
			case ch <- Utterance{Line: n, Text: text}:
			case <-ctx.Done():
				err = ctx.Err()
				return
			}
		}
		err = sc.Err()
	}()

	return ch, func() error {
		<-done
		return err
	}
}
