// Package dispatcher implements the master rank. It reads the input,
// broadcasts the header, hands one block to every worker and then gives the
// next block to whichever worker reports back first, writing each finished
// block to the output as it arrives. Output order is completion order; the
// number of records always equals the number of input rows.
package dispatcher
