// Package spinner renders a one-line wait animation for commands that
// block on a model call.
package spinner

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

var frames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const interval = 100 * time.Millisecond

// Spinner animates a waiting message on a single terminal line.
type Spinner struct {
	w       io.Writer
	message string
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

// New starts a spinner writing to w. Call Stop to halt it and clear the
// line. The first frame is drawn after one interval, so operations that
// finish quickly never paint anything.
func New(w io.Writer, message string) *Spinner {
	s := &Spinner{
		w:       w,
		message: message,
		done:    make(chan struct{}),
	}
	s.wg.Add(1)
	go s.loop()
	return s
}

func (s *Spinner) loop() {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	frame := 0
	for {
		select {
		case <-s.done:
			fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", len(s.message)+2)) //nolint:errcheck
			return
		case <-ticker.C:
			fmt.Fprintf(s.w, "\r%s %s", frames[frame%len(frames)], s.message) //nolint:errcheck
			frame++
		}
	}
}

// Stop halts the animation and blocks until the line has been cleared.
// Safe to call more than once.
func (s *Spinner) Stop() {
	s.once.Do(func() { close(s.done) })
	s.wg.Wait()
}
