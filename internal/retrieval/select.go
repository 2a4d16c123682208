package retrieval

import (
	"cmp"
	"slices"
)

// SelectOptions controls candidate filtering before the top-k cut.
type SelectOptions struct {
	// PositiveOnly drops candidates scoring 0 or less.
	PositiveOnly bool
	// MinScore, when set, drops candidates scoring below it.
	MinScore *float64
	// FallbackToCorpus returns the first topK entries in stored order when filtering leaves nothing.
	FallbackToCorpus bool
}

// Select returns at most topK candidates sorted by descending score, ties broken by corpus
// order. The input slice is not modified. An empty input or topK <= 0 yields an empty result.
func Select[T any](scored []Scored[T], topK int, opts SelectOptions) []Scored[T] {
	if topK <= 0 || len(scored) == 0 {
		return []Scored[T]{}
	}

	kept := make([]Scored[T], 0, len(scored))

	for _, s := range scored {
		if opts.PositiveOnly && s.Score <= 0 {
			continue
		}

		if opts.MinScore != nil && s.Score < *opts.MinScore {
			continue
		}

		kept = append(kept, s)
	}

	if len(kept) == 0 {
		if !opts.FallbackToCorpus {
			return []Scored[T]{}
		}

		return Head(scored, topK)
	}

	slices.SortStableFunc(kept, func(a, b Scored[T]) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}

		return cmp.Compare(a.Index, b.Index)
	})

	return kept[:min(topK, len(kept))]
}

// Head returns the first n candidates in stored (Index) order.
func Head[T any](scored []Scored[T], n int) []Scored[T] {
	if n <= 0 || len(scored) == 0 {
		return []Scored[T]{}
	}

	ordered := slices.Clone(scored)
	slices.SortStableFunc(ordered, func(a, b Scored[T]) int {
		return cmp.Compare(a.Index, b.Index)
	})

	return ordered[:min(n, len(ordered))]
}

// Items strips scores from a candidate list.
func Items[T any](scored []Scored[T]) []T {
	out := make([]T, len(scored))
	for i, s := range scored {
		out[i] = s.Item
	}

	return out
}
