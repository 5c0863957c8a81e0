package pipeline

// BatchCursor walks a record list in consecutive fixed-size batches. It
// only moves forward.
type BatchCursor struct {
	Offset int
	Size   int
}

// Next returns the bounds [lo, hi) of the next batch of n records and
// advances past it. ok is false once every record has been handed out.
func (c *BatchCursor) Next(n int) (lo, hi int, ok bool) {
	if c.Size <= 0 || c.Offset >= n {
		return 0, 0, false
	}
	lo = c.Offset
	hi = min(lo+c.Size, n)
	c.Offset = hi
	return lo, hi, true
}

// Done reports whether every one of n records has been handed out.
func (c *BatchCursor) Done(n int) bool {
	return c.Offset >= n
}
