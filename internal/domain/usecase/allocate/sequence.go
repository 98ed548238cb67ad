package allocate

import (
	errs "github.com/meadowbrook-ops/invoice-pipeline/internal/domain/error"
)

// NextSequence returns the lowest sequence number not present in used,
// scanning from 1 up to dailyMax inclusive. True gap-filling: given
// {1,2,4} it returns 3, not 5. When every number through dailyMax is
// taken it returns ErrSequenceExhausted rather than an out-of-range ID.
func NextSequence(used map[int]bool, dailyMax int) (int, error) {
	for sequence := 1; sequence <= dailyMax; sequence++ {
		if !used[sequence] {
			return sequence, nil
		}
	}
	return 0, errs.ErrSequenceExhausted
}

// MergeSequences folds scanned sequence numbers into a used-set, ignoring
// values outside the plausible range
func MergeSequences(used map[int]bool, scanned []int) {
	for _, sequence := range scanned {
		if sequence > 0 {
			used[sequence] = true
		}
	}
}
