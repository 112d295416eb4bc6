package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

// chunkReader delivers its payload in caller-chosen slices, simulating a
// socket that fragments reads at arbitrary boundaries.
type chunkReader struct {
	chunks [][]byte
}

func newChunkReader(data string, sizes ...int) *chunkReader {
	cr := &chunkReader{}
	rest := []byte(data)
	for _, n := range sizes {
		if n > len(rest) {
			n = len(rest)
		}
		cr.chunks = append(cr.chunks, rest[:n])
		rest = rest[n:]
	}
	if len(rest) > 0 {
		cr.chunks = append(cr.chunks, rest)
	}
	return cr
}

func (cr *chunkReader) Read(p []byte) (int, error) {
	if len(cr.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, cr.chunks[0])
	if n == len(cr.chunks[0]) {
		cr.chunks = cr.chunks[1:]
	} else {
		cr.chunks[0] = cr.chunks[0][n:]
	}
	return n, nil
}

func readAllLines(t *testing.T, lr *LineReader) []string {
	t.Helper()
	var lines []string
	for {
		line, err := lr.ReadLine()
		if errors.Is(err, io.EOF) {
			return lines
		}
		if err != nil {
			t.Fatalf("ReadLine: %v", err)
		}
		lines = append(lines, line)
	}
}

func TestLineReaderBoundaryIndependence(t *testing.T) {
	const input = "first line\r\nsecond\r\n\r\nfourth with spaces\r\n"
	want := []string{"first line", "second", "", "fourth with spaces"}

	splits := [][]int{
		{},           // one read
		{1, 1, 1, 1}, // byte at a time for the first word
		{11},         // split between CR and LF
		{12},         // split right after the first terminator
		{5, 7, 3, 9},
		{len(input) - 1},
	}
	for _, sizes := range splits {
		lr := NewLineReader(newChunkReader(input, sizes...), 0)
		got := readAllLines(t, lr)
		if fmt.Sprint(got) != fmt.Sprint(want) {
			t.Errorf("splits %v: lines = %q, want %q", sizes, got, want)
		}
	}
}

func TestLineReaderSplitInsideTerminator(t *testing.T) {
	// CR in one read, LF in the next.
	lr := NewLineReader(newChunkReader("hello\r\n", 6), 0)
	line, err := lr.ReadLine()
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if line != "hello" {
		t.Errorf("line = %q, want %q", line, "hello")
	}
	if strings.ContainsAny(line, "\r\n") {
		t.Error("terminator bytes leaked into the emitted line")
	}
}

func TestLineReaderLongLine(t *testing.T) {
	// Longer than one read chunk, shorter than the cap.
	long := strings.Repeat("x", 3*readChunk)
	lr := NewLineReader(strings.NewReader(long+"\r\n"), 4*readChunk)
	line, err := lr.ReadLine()
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if line != long {
		t.Errorf("long line mangled: got %d bytes, want %d", len(line), len(long))
	}
}

func TestLineReaderOverLength(t *testing.T) {
	lr := NewLineReader(strings.NewReader(strings.Repeat("x", 5000)), 1024)
	_, err := lr.ReadLine()
	if !errors.Is(err, ErrLineTooLong) {
		t.Fatalf("err = %v, want ErrLineTooLong", err)
	}
}

func TestLineReaderPartialAtEOF(t *testing.T) {
	lr := NewLineReader(strings.NewReader("complete\r\npartial"), 0)
	line, err := lr.ReadLine()
	if err != nil || line != "complete" {
		t.Fatalf("first line = %q, %v", line, err)
	}
	if _, err := lr.ReadLine(); !errors.Is(err, io.EOF) {
		t.Fatalf("after partial: err = %v, want io.EOF", err)
	}
}

func TestWriterFairnessBudget(t *testing.T) {
	out := NewOutbound()
	var buf bytes.Buffer
	lw := NewLineWriter(&buf, out)

	for i := 0; i < 25; i++ {
		out.Queue(fmt.Sprintf("line %d", i))
	}

	turns := 0
	for {
		before := strings.Count(buf.String(), "\r\n")
		more, err := lw.DrainTurn()
		if err != nil {
			t.Fatalf("DrainTurn: %v", err)
		}
		turns++
		wrote := strings.Count(buf.String(), "\r\n") - before
		if wrote > linesPerTurn {
			t.Fatalf("turn %d wrote %d lines, budget is %d", turns, wrote, linesPerTurn)
		}
		if !more {
			break
		}
	}
	if turns != 3 {
		t.Errorf("25 lines drained in %d turns, want 3", turns)
	}

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\r\n"), "\r\n")
	if len(lines) != 25 {
		t.Fatalf("wrote %d lines, want 25", len(lines))
	}
	for i, line := range lines {
		if line != fmt.Sprintf("line %d", i) {
			t.Fatalf("line %d = %q; queue order not preserved", i, line)
		}
	}
}

func TestOutboundQueueAfterClose(t *testing.T) {
	out := NewOutbound()
	out.Queue("before")
	out.Close()
	out.Queue("after") // must not panic, must not be delivered

	var buf bytes.Buffer
	lw := NewLineWriter(&buf, out)
	if err := lw.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := buf.String(); got != "before\r\n" {
		t.Errorf("delivered %q, want only the pre-close line", got)
	}
}
