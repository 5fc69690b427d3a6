package process

import (
	"bytes"
	"fmt"
	"io"
	"sync"
)

// PrefixedWriter prefixes each line written to it with [label] so the live
// output of concurrent cases stays attributable on a shared terminal.
// Writers sharing one destination should share a LineLock so a prefix is
// never separated from the line it labels.
type PrefixedWriter struct {
	writer      io.Writer
	prefix      []byte
	lock        *LineLock
	mu          sync.Mutex
	atLineStart bool
}

// LineLock serializes line writes from several PrefixedWriters.
type LineLock struct {
	mu sync.Mutex
}

// NewPrefixedWriter creates a PrefixedWriter. lock may be nil.
func NewPrefixedWriter(w io.Writer, label string, lock *LineLock) *PrefixedWriter {
	return &PrefixedWriter{
		writer:      w,
		prefix:      []byte(fmt.Sprintf("[%s] ", label)),
		lock:        lock,
		atLineStart: true,
	}
}

// Write implements io.Writer.
func (pw *PrefixedWriter) Write(p []byte) (int, error) {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	if pw.lock != nil {
		pw.lock.mu.Lock()
		defer pw.lock.mu.Unlock()
	}

	originalLen := len(p)
	for len(p) > 0 {
		if pw.atLineStart {
			if _, err := pw.writer.Write(pw.prefix); err != nil {
				return originalLen - len(p), err
			}
			pw.atLineStart = false
		}

		idx := bytes.IndexByte(p, '\n')
		if idx == -1 {
			if _, err := pw.writer.Write(p); err != nil {
				return originalLen - len(p), err
			}
			break
		}

		if _, err := pw.writer.Write(p[:idx+1]); err != nil {
			return originalLen - len(p), err
		}
		p = p[idx+1:]
		pw.atLineStart = true
	}

	return originalLen, nil
}

// Flush terminates a dangling partial line.
func (pw *PrefixedWriter) Flush() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if !pw.atLineStart {
		if _, err := pw.writer.Write([]byte("\n")); err != nil {
			return err
		}
		pw.atLineStart = true
	}
	return nil
}
