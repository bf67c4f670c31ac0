package reconcile

// Diff computes the ops turning prev into next.
//
// Items are matched by key. Duplicate keys are matched in order of
// occurrence: the first a in next reuses the first a in prev, the second
// reuses the second, and so on. Kept items on the longest increasing run of
// previous positions stay in place, so the number of moves is minimal.
func Diff[K comparable](prev, next []K) []Op[K] {
	src, removed := match(prev, next)
	ops, _ := plan(prev, next, src, removed)
	return ops
}

// match pairs every element of next with an element of prev. src[j] is the
// previous position reused by next[j], or -1 when next[j] is new. removed
// lists unmatched previous positions in ascending order.
func match[K comparable](prev, next []K) (src []int, removed []int) {
	src = make([]int, len(next))

	// A common prefix pairs occurrences in order and needs no bookkeeping.
	// The suffix is not trimmed: it would pair duplicates from the end.
	start := 0
	for start < len(prev) && start < len(next) && prev[start] == next[start] {
		src[start] = start
		start++
	}
	endPrev, endNext := len(prev)-1, len(next)-1

	queues := make(map[K][]int, endPrev-start+1)
	for i := start; i <= endPrev; i++ {
		queues[prev[i]] = append(queues[prev[i]], i)
	}
	used := make([]bool, len(prev))
	for j := start; j <= endNext; j++ {
		q := queues[next[j]]
		if len(q) == 0 {
			src[j] = -1
			continue
		}
		src[j] = q[0]
		used[q[0]] = true
		queues[next[j]] = q[1:]
	}
	for i := start; i <= endPrev; i++ {
		if !used[i] {
			removed = append(removed, i)
		}
	}
	return src, removed
}

// plan emits positional ops for a matching produced by match. For each op,
// targets holds the position in next it places, or -1 for removes.
func plan[K comparable](prev, next []K, src []int, removed []int) (ops []Op[K], targets []int) {
	for i := len(removed) - 1; i >= 0; i-- {
		ops = append(ops, Op[K]{Kind: OpRemove, Key: prev[removed[i]], From: removed[i]})
		targets = append(targets, -1)
	}

	stay := stable(src)

	// Working copy identified by previous position; created items get
	// negative ids so every element stays distinguishable with duplicate keys.
	work := make([]int, 0, len(next))
	gone := make(map[int]bool, len(removed))
	for _, i := range removed {
		gone[i] = true
	}
	for i := range prev {
		if !gone[i] {
			work = append(work, i)
		}
	}
	id := func(j int) int {
		if src[j] >= 0 {
			return src[j]
		}
		return -j - 1
	}
	indexOf := func(v int) int {
		for i, w := range work {
			if w == v {
				return i
			}
		}
		return len(work)
	}

	// Right to left, each misplaced item is put directly before its
	// successor, which is already in its final relative position.
	for j := len(next) - 1; j >= 0; j-- {
		if src[j] >= 0 && stay[j] {
			continue
		}
		var from int
		if src[j] >= 0 {
			from = indexOf(src[j])
			work = removeAt(work, from)
		}
		at := len(work)
		if j+1 < len(next) {
			at = indexOf(id(j + 1))
		}
		work = insertAt(work, at, id(j))
		if src[j] >= 0 {
			ops = append(ops, Op[K]{Kind: OpMove, Key: next[j], From: from, Index: at})
		} else {
			ops = append(ops, Op[K]{Kind: OpCreate, Key: next[j], Index: at})
		}
		targets = append(targets, j)
	}
	return ops, targets
}

// stable marks the positions of next that keep their place: the longest
// subsequence of kept items whose previous positions increase.
func stable(src []int) []bool {
	stay := make([]bool, len(src))

	// tails[k] is the index into src of the smallest tail of an increasing
	// run of length k+1; prev links each element to its predecessor.
	var tails []int
	prev := make([]int, len(src))
	for j, p := range src {
		if p < 0 {
			continue
		}
		lo, hi := 0, len(tails)
		for lo < hi {
			mid := (lo + hi) / 2
			if src[tails[mid]] < p {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		if lo > 0 {
			prev[j] = tails[lo-1]
		} else {
			prev[j] = -1
		}
		if lo == len(tails) {
			tails = append(tails, j)
		} else {
			tails[lo] = j
		}
	}
	if len(tails) == 0 {
		return stay
	}
	for j := tails[len(tails)-1]; j >= 0; j = prev[j] {
		stay[j] = true
	}
	return stay
}
