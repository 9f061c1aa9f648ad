// Package spinner draws a one-line progress indicator for long phases.
package spinner

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
)

var frames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const interval = 80 * time.Millisecond

// Spinner animates a message on a writer until stopped. The message can be
// replaced while it runs.
type Spinner struct {
	w       io.Writer
	mu      sync.Mutex
	message string
	widest  int

	done     chan struct{}
	cleared  chan struct{}
	stopOnce sync.Once
}

// Start displays an animated spinner with the given message on w.
// Call Stop to halt it and clear the line.
func Start(w io.Writer, message string) *Spinner {
	s := &Spinner{
		w:       w,
		message: message,
		widest:  runewidth.StringWidth(message),
		done:    make(chan struct{}),
		cleared: make(chan struct{}),
	}
	go s.run()
	return s
}

// Set replaces the message shown next to the spinner.
func (s *Spinner) Set(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
	s.widest = max(s.widest, runewidth.StringWidth(message))
}

// Stop halts the animation and clears the line. It is safe to call more than once.
func (s *Spinner) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
	<-s.cleared
}

//nolint:errcheck // terminal decoration only
func (s *Spinner) run() {
	i := 0
	for {
		select {
		case <-s.done:
			s.mu.Lock()
			fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", s.widest+2))
			s.mu.Unlock()
			close(s.cleared)
			return
		case <-time.After(interval):
			s.mu.Lock()
			msg := runewidth.FillRight(s.message, s.widest)
			s.mu.Unlock()
			fmt.Fprintf(s.w, "\r%s %s", frames[i%len(frames)], msg)
			i++
		}
	}
}
