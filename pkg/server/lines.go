package server

import (
	"bytes"
	"errors"
	"io"
	"runtime"
	"sync"
	"time"
)

// linesPerTurn is the fairness budget: the most queued lines one
// session's writer drains before yielding back to the scheduler.
const linesPerTurn = 10

// readChunk is how much the reader asks the socket for at a time.
const readChunk = 1024

// ErrLineTooLong is reported when a client sends more than the
// configured cap without a line terminator. The session disconnects the
// client rather than truncate, since a truncated command could execute
// with the wrong arguments.
var ErrLineTooLong = errors.New("line exceeds maximum length")

var crlf = []byte("\r\n")

// LineReader assembles CRLF-terminated lines from a byte stream. Partial
// lines stay buffered across reads, so the emitted line sequence does
// not depend on how the stream splits across Read calls.
type LineReader struct {
	r       io.Reader
	buf     []byte
	maxLine int
}

// NewLineReader wraps r. maxLine bounds the length of an unterminated
// line before the reader gives up; <= 0 means DefaultMaxLineLen.
func NewLineReader(r io.Reader, maxLine int) *LineReader {
	if maxLine <= 0 {
		maxLine = DefaultMaxLineLen
	}
	return &LineReader{r: r, maxLine: maxLine}
}

// ReadLine returns the next line without its CRLF terminator. It returns
// io.EOF when the peer has closed the stream (a buffered partial line
// with no terminator is discarded), and ErrLineTooLong when the buffer
// grows past the cap with no terminator in sight.
func (lr *LineReader) ReadLine() (string, error) {
	for {
		if i := bytes.Index(lr.buf, crlf); i >= 0 {
			line := string(lr.buf[:i])
			lr.buf = append(lr.buf[:0], lr.buf[i+2:]...)
			return line, nil
		}
		if len(lr.buf) > lr.maxLine {
			return "", ErrLineTooLong
		}

		chunk := make([]byte, readChunk)
		n, err := lr.r.Read(chunk)
		if n > 0 {
			lr.buf = append(lr.buf, chunk[:n]...)
			continue
		}
		if err != nil {
			return "", err
		}
	}
}

// Outbound is a session's outbound line queue. Producers call Queue from
// any goroutine; the session's LineWriter is the single consumer. The
// queue is unbounded, mirroring the per-connection channel the engine
// has always used; the fairness budget bounds how fast it drains, not
// how much it holds.
type Outbound struct {
	mu     sync.Mutex
	queue  []string
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

// NewOutbound creates an empty outbound queue.
func NewOutbound() *Outbound {
	return &Outbound{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Queue appends a line for delivery. Lines queued after Close are
// silently dropped, which tolerates cross-session sends racing with a
// disconnect.
func (o *Outbound) Queue(line string) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.queue = append(o.queue, line)
	o.mu.Unlock()

	select {
	case o.wake <- struct{}{}:
	default:
	}
}

// Close stops the writer after it drains what is already queued. Safe to
// call more than once.
func (o *Outbound) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.closed {
		o.closed = true
		close(o.done)
	}
}

// take removes up to linesPerTurn queued lines and reports whether any
// remain afterwards.
func (o *Outbound) take() (batch []string, more bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := len(o.queue)
	if n == 0 {
		return nil, false
	}
	if n > linesPerTurn {
		n = linesPerTurn
	}
	batch = append(batch, o.queue[:n]...)
	o.queue = append(o.queue[:0], o.queue[n:]...)
	return batch, len(o.queue) > 0
}

// writeDeadliner lets the writer set deadlines when the underlying
// stream is a real socket; test writers without deadlines still work.
type writeDeadliner interface {
	SetWriteDeadline(time.Time) error
}

// LineWriter drains an Outbound queue onto a stream, appending CRLF to
// each line and writing it immediately.
type LineWriter struct {
	w   io.Writer
	out *Outbound

	// onWrite, when set, observes the byte count of each completed
	// write (metrics accounting).
	onWrite func(n int)
}

// NewLineWriter pairs a stream with its outbound queue.
func NewLineWriter(w io.Writer, out *Outbound) *LineWriter {
	return &LineWriter{w: w, out: out}
}

// DrainTurn writes at most one fairness budget's worth of queued lines
// and reports whether the queue still has lines afterwards. A writer
// with more left must take another scheduling turn rather than loop.
func (lw *LineWriter) DrainTurn() (more bool, err error) {
	batch, more := lw.out.take()
	for _, line := range batch {
		if err := lw.writeLine(line); err != nil {
			return false, err
		}
	}
	return more, nil
}

func (lw *LineWriter) writeLine(line string) error {
	if d, ok := lw.w.(writeDeadliner); ok {
		d.SetWriteDeadline(time.Now().Add(5 * time.Second))
	}
	n, err := io.WriteString(lw.w, line+"\r\n")
	if lw.onWrite != nil {
		lw.onWrite(n)
	}
	return err
}

// Run services the queue until Close or a write error. Between turns
// with work remaining it yields to the scheduler, so one busy session
// cannot monopolize it. A write error stops delivery; the session's
// read side notices the closed connection and tears down.
func (lw *LineWriter) Run() error {
	for {
		select {
		case <-lw.out.wake:
		case <-lw.out.done:
			// Final drain so farewell text queued just before
			// Close still reaches the client.
			for {
				more, err := lw.DrainTurn()
				if err != nil || !more {
					return err
				}
				runtime.Gosched()
			}
		}
		for {
			more, err := lw.DrainTurn()
			if err != nil {
				return err
			}
			if !more {
				break
			}
			runtime.Gosched()
		}
	}
}
