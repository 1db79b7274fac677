// Package table parses the growing, header-prefixed logs written during a
// sounding into time-indexed tables.
package table

import (
	"sort"
)

// Row is one decoded data row. Time is the derived unix timestamp in seconds
// used for ordering, joins and plotting.
type Row[T any] struct {
	Time   int64
	Sample T
}

// Table is an ordered-by-time sequence of rows read from one log file.
type Table[T any] struct {
	Path string
	Rows []Row[T]

	SkippedLines    int  // header lines skipped by the successful attempt
	Attempts        int  // parse attempts used, 1 when the first attempt succeeded
	Restarts        int  // times a decreasing timestamp restarted the table
	DroppedPartial  bool // the last line was still being written and was ignored
	MalformedFrames int  // rows whose hex payload could not be decoded

	Comments string // text of the trailer of a finalized log
}

// Len returns the number of rows.
func (t *Table[T]) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Last returns the most recent row.
func (t *Table[T]) Last() (Row[T], bool) {
	if t.Len() == 0 {
		return Row[T]{}, false
	}
	return t.Rows[len(t.Rows)-1], true
}

// Nearest returns the row whose timestamp is closest to ts. On a tie the
// earlier row wins.
func (t *Table[T]) Nearest(ts int64) (Row[T], bool) {
	n := t.Len()
	if n == 0 {
		return Row[T]{}, false
	}

	i := sort.Search(n, func(i int) bool { return t.Rows[i].Time >= ts })
	switch {
	case i == 0:
		return t.Rows[0], true
	case i == n:
		return t.Rows[n-1], true
	}

	before, after := t.Rows[i-1], t.Rows[i]
	if after.Time-ts < ts-before.Time {
		return after, true
	}
	return before, true
}

// Span returns the first and last timestamps of the table.
func (t *Table[T]) Span() (first, last int64, ok bool) {
	if t.Len() == 0 {
		return 0, 0, false
	}
	return t.Rows[0].Time, t.Rows[len(t.Rows)-1].Time, true
}
