// Package rowio turns a line-oriented input stream into bounded blocks of
// rows and writes result text back to an output stream.
//
// The first line of an input is its header. Every following non-empty line
// is a row; rows receive consecutive ids starting at zero. A blank line is a
// soft boundary: it closes the block being accumulated even if it is not yet
// full, which lets producers control how work is grouped.
package rowio
