package dispatcher

import "sync/atomic"

// Progress is a point-in-time view of a running dispatch.
type Progress struct {
	BlocksSent int64 `json:"blocks_sent"`
	BlocksDone int64 `json:"blocks_done"`
	RowsRead   int64 `json:"rows_read"`
	RowsDone   int64 `json:"rows_done"`
	Busy       int64 `json:"busy_workers"`
	Finished   bool  `json:"finished"`
}

// counters are updated by the dispatch loop and read concurrently.
type counters struct {
	blocksSent atomic.Int64
	blocksDone atomic.Int64
	rowsRead   atomic.Int64
	rowsDone   atomic.Int64
	busy       atomic.Int64
	finished   atomic.Bool
}

func (c *counters) snapshot() Progress {
	return Progress{
		BlocksSent: c.blocksSent.Load(),
		BlocksDone: c.blocksDone.Load(),
		RowsRead:   c.rowsRead.Load(),
		RowsDone:   c.rowsDone.Load(),
		Busy:       c.busy.Load(),
		Finished:   c.finished.Load(),
	}
}
