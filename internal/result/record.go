package result

import "strings"

// Record is the text produced for one row.
type Record struct {
	Row  int64
	Text string
}

// Buffer collects the records of one block into the payload sent back to
// the master. Every record ends with a newline.
type Buffer struct {
	sb    strings.Builder
	count int
}

// Add appends one record.
func (b *Buffer) Add(r Record) {
	b.sb.WriteString(r.Text)
	b.sb.WriteByte('\n')
	b.count++
}

// AddTagged appends a complex-mode record: the tag, the record, and a blank
// separator line.
func (b *Buffer) AddTagged(tag string, r Record) {
	b.sb.WriteString(tag)
	b.sb.WriteByte('\n')
	b.Add(r)
	b.sb.WriteByte('\n')
}

// Len is the number of records added.
func (b *Buffer) Len() int { return b.count }

// String returns the buffered text.
func (b *Buffer) String() string { return b.sb.String() }
