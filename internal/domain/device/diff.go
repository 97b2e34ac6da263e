package device

// Diff returns the elements of current missing from previous (added) and the
// elements of previous missing from current (removed). Added keeps the order
// of current, removed keeps the order of previous, and duplicates are reported
// once.
func Diff[K comparable](previous, current []K) (added, removed []K) {
	prev := make(map[K]struct{}, len(previous))
	for _, k := range previous {
		prev[k] = struct{}{}
	}
	cur := make(map[K]struct{}, len(current))
	for _, k := range current {
		cur[k] = struct{}{}
	}

	seen := make(map[K]struct{}, len(current))
	for _, k := range current {
		if _, ok := prev[k]; ok {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		added = append(added, k)
	}

	clear(seen)
	for _, k := range previous {
		if _, ok := cur[k]; ok {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		removed = append(removed, k)
	}
	return added, removed
}

// Dedupe returns ids without duplicates, keeping first occurrences.
func Dedupe[K comparable](ids []K) []K {
	out := make([]K, 0, len(ids))
	seen := make(map[K]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
