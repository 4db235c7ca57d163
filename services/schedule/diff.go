package schedule

// Diff classifies the fingerprints of a new snapshot against the
// previous one. Unchanged and removed hashes come out in prev's order,
// added ones in next's order.
type Diff struct {
	Added     []string
	Removed   []string
	Unchanged []string
}

func DiffFingerprints(prev, next []string) Diff {
	prevSet := make(map[string]bool, len(prev))
	for _, hash := range prev {
		prevSet[hash] = true
	}
	nextSet := make(map[string]bool, len(next))
	for _, hash := range next {
		nextSet[hash] = true
	}

	var diff Diff
	for _, hash := range prev {
		if nextSet[hash] {
			diff.Unchanged = append(diff.Unchanged, hash)
		} else {
			diff.Removed = append(diff.Removed, hash)
		}
	}
	for _, hash := range next {
		if !prevSet[hash] {
			diff.Added = append(diff.Added, hash)
		}
	}
	return diff
}
