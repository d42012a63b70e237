package sim

// Range is the half-open body index interval [Start, End).
type Range struct {
	Start, End int
}

func (r Range) Len() int { return r.End - r.Start }

// Ranges splits [0, n) into at most parts contiguous, non-empty ranges whose
// lengths differ by at most one. The ranges cover every index exactly once
// and are returned in order.
func Ranges(n, parts int) []Range {
	if n <= 0 {
		return nil
	}
	if parts < 1 {
		parts = 1
	}
	if parts > n {
		parts = n
	}

	base, extra := n/parts, n%parts
	out := make([]Range, parts)
	start := 0
	for i := range out {
		size := base
		if i < extra {
			size++
		}
		out[i] = Range{Start: start, End: start + size}
		start += size
	}
	return out
}

// taskCount is how many pool tasks a force phase over n bodies uses.
func taskCount(n, workers, minChunk int) int {
	if minChunk < 1 {
		minChunk = 1
	}
	parts := n / minChunk
	if parts > workers {
		parts = workers
	}
	if parts < 1 {
		parts = 1
	}
	return parts
}
