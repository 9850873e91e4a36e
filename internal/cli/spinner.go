package cli

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerInterval = 80 * time.Millisecond

// spinner animates a status line on statusOut while a slow operation
// (usually a round trip to a remote library backend) is in flight.
type spinner struct {
	message string
	started time.Time

	mu      sync.Mutex
	width   int
	stop    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func newSpinner(message string) *spinner {
	return &spinner{
		message: message,
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// start animates until ctx ends or Stop is called.
func (s *spinner) start(ctx context.Context) {
	s.started = time.Now()
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(spinnerInterval)
		defer ticker.Stop()
		for i := 0; ; i++ {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				s.draw(spinnerFrames[i%len(spinnerFrames)])
			}
		}
	}()
}

func (s *spinner) draw(frame string) {
	line := fmt.Sprintf("%s %s %s",
		styleIconSpinner.Render(frame),
		StyleDim.Render(s.message),
		StyleDim.Render(s.elapsed().String()))
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width = max(s.width, len(line))
	fmt.Fprintf(statusOut, "\r%s", line)
}

func (s *spinner) elapsed() time.Duration {
	return time.Since(s.started).Round(100 * time.Millisecond)
}

// Stop ends the animation and blanks the line. It is safe to call more than
// once, and before start.
func (s *spinner) Stop() {
	s.once.Do(func() {
		close(s.stop)
		if !s.started.IsZero() {
			<-s.stopped
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.width > 0 {
			fmt.Fprintf(statusOut, "\r%s\r", strings.Repeat(" ", s.width))
		}
	})
}

// spin runs fn with a spinner when show is set. The spinner is cleared
// before spin returns, so callers can print the outcome right after.
func spin(ctx context.Context, show bool, message string, fn func(context.Context) error) error {
	if !show {
		return fn(ctx)
	}
	s := newSpinner(message)
	s.start(ctx)
	err := fn(ctx)
	s.Stop()
	if err == nil && ctx.Err() == nil {
		printDetail("%s (%s)", message, s.elapsed())
	}
	return err
}
