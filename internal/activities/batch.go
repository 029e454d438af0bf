package activities

// batch splits items into chunks of at most size, preserving order, per
// spec §5's "bulk batch size = 25" cap (spec.md default BATCH_SIZE).
func batch[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = 25
	}
	var out [][]T
	for len(items) > 0 {
		n := size
		if n > len(items) {
			n = len(items)
		}
		out = append(out, items[:n])
		items = items[n:]
	}
	return out
}
