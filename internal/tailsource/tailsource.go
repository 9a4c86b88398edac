// Package tailsource follows growing logfiles and multiplexes their lines
// into a single envelope stream for the dashboard control loop.
package tailsource

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/nxadm/tail"
)

// DefaultBuffer is the default channel buffer size for the merged stream.
const DefaultBuffer = 10_000

// Envelope carries one tailed line with its source path, or a hard error
// from the tail subsystem (Err != nil). Truncation and the file not yet
// existing are handled inside the tailer and never surface here.
type Envelope struct {
	Path string
	Line string
	Err  error
}

// Mux follows any number of logfiles and merges their lines into one
// channel. Files may be added while the Mux is running; a file that does
// not exist yet is followed from the moment it appears.
type Mux struct {
	ctx    context.Context
	cancel context.CancelFunc

	lines chan Envelope

	mu    sync.Mutex
	tails map[string]*tail.Tail
	wg    sync.WaitGroup
}

// NewMux creates an empty multiplexer. buffer <= 0 selects DefaultBuffer.
func NewMux(ctx context.Context, buffer int) *Mux {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Mux{
		ctx:    ctx,
		cancel: cancel,
		lines:  make(chan Envelope, buffer),
		tails:  make(map[string]*tail.Tail),
	}
}

// AddFile starts following path. With fromStart the whole existing content
// is replayed before live lines; otherwise only lines appended after the
// call are delivered. Re-adding a followed path is a no-op.
func (m *Mux) AddFile(path string, fromStart bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tails[path]; ok {
		return nil
	}

	cfg := tail.Config{
		Follow: true,
		ReOpen: true,
		Logger: tail.DiscardingLogger,
	}
	if !fromStart {
		cfg.Location = &tail.SeekInfo{Whence: io.SeekEnd}
	}

	t, err := tail.TailFile(path, cfg)
	if err != nil {
		return fmt.Errorf("tailsource: %s: %w", path, err)
	}

	m.tails[path] = t
	m.wg.Add(1)
	go m.forward(path, t)
	return nil
}

// Following reports whether path is already being followed.
func (m *Mux) Following(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tails[path]
	return ok
}

// Lines returns the merged stream. It is never closed while the Mux runs;
// callers multiplex it against their other event sources.
func (m *Mux) Lines() <-chan Envelope {
	return m.lines
}

// Stop ends all tails and waits for the forwarders to drain.
func (m *Mux) Stop() {
	m.cancel()

	m.mu.Lock()
	for _, t := range m.tails {
		t.Cleanup()
		_ = t.Stop()
	}
	m.mu.Unlock()

	m.wg.Wait()
}

func (m *Mux) forward(path string, t *tail.Tail) {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		case line, ok := <-t.Lines:
			if !ok {
				// Tail ended: surface the reason as a hard error unless we
				// are shutting down.
				err := t.Err()
				if err == nil {
					err = fmt.Errorf("tailsource: %s: tail ended", path)
				}
				select {
				case m.lines <- Envelope{Path: path, Err: err}:
				case <-m.ctx.Done():
				}
				return
			}
			if line == nil {
				continue
			}
			if line.Err != nil {
				select {
				case m.lines <- Envelope{Path: path, Err: line.Err}:
				case <-m.ctx.Done():
				}
				continue
			}
			select {
			case m.lines <- Envelope{Path: path, Line: line.Text}:
			case <-m.ctx.Done():
				return
			}
		}
	}
}
