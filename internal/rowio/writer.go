package rowio

import (
	"bufio"
	"fmt"
	"io"
	"sync"
)

// Writer appends result text to a stream and flushes after every write so
// streaming consumers see records as soon as a block completes.
type Writer struct {
	mu sync.Mutex
	w  *bufio.Writer
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write appends text verbatim and flushes.
func (w *Writer) Write(text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.w.WriteString(text); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}
	return nil
}
