package rowio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNoHeader is returned when the input has no header line.
var ErrNoHeader = errors.New("input stream has no header line")

// Block is a bounded group of consecutive rows.
type Block struct {
	// Text holds the rows joined by newlines, without a trailing newline.
	Text string
	// First and Last are the inclusive row ids covered by the block.
	First int64
	Last  int64
}

// Rows returns the number of rows in the block.
func (b Block) Rows() int {
	return int(b.Last - b.First + 1)
}

// Lines splits the block back into its rows.
func (b Block) Lines() []string {
	return strings.Split(b.Text, "\n")
}

// Reader reads the header and then successive blocks from one stream.
type Reader struct {
	r    *bufio.Reader
	next int64
	eof  bool
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ReadHeader returns the first line of the stream.
func (r *Reader) ReadHeader() (string, error) {
	line, ok, err := r.readLine()
	if err != nil {
		return "", err
	}
	if !ok || strings.TrimSpace(line) == "" {
		return "", ErrNoHeader
	}
	return line, nil
}

// ReadBlock accumulates up to maxRows non-empty lines. A blank line ends the
// block early; blank lines seen before the first row are skipped. It returns
// ok=false once the stream is exhausted and no row was read.
func (r *Reader) ReadBlock(maxRows int) (Block, bool, error) {
	if maxRows < 1 {
		return Block{}, false, fmt.Errorf("block size must be positive, got %d", maxRows)
	}

	var b strings.Builder
	rows := 0
	for rows < maxRows {
		line, ok, err := r.readLine()
		if err != nil {
			return Block{}, false, err
		}
		if !ok {
			break
		}
		if strings.TrimSpace(line) == "" {
			if rows == 0 {
				continue
			}
			break
		}
		if rows > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		rows++
	}

	if rows == 0 {
		return Block{}, false, nil
	}
	block := Block{Text: b.String(), First: r.next, Last: r.next + int64(rows) - 1}
	r.next += int64(rows)
	return block, true, nil
}

// readLine returns the next line without its terminator. ok is false at the
// end of the stream.
func (r *Reader) readLine() (string, bool, error) {
	if r.eof {
		return "", false, nil
	}
	line, err := r.r.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", false, fmt.Errorf("failed to read input: %w", err)
		}
		r.eof = true
		if line == "" {
			return "", false, nil
		}
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, true, nil
}
