package churn

import (
	"math"
	"math/rand"
	"sort"
)

// stratifiedSplit partitions row indexes into train and test sets while
// preserving the label distribution. The test set receives
// ceil(fraction*n) rows, allocated across classes by largest remainder.
// Shuffling uses only the given seed, so a fixed seed always produces
// the same split.
func stratifiedSplit(labels []int, fraction float64, seed int64) (train, test []int) {
	n := len(labels)
	if n == 0 {
		return nil, nil
	}

	byClass := make(map[int][]int)
	classes := make([]int, 0, 2)
	for i, y := range labels {
		if _, ok := byClass[y]; !ok {
			classes = append(classes, y)
		}
		byClass[y] = append(byClass[y], i)
	}
	sort.Ints(classes)

	rng := rand.New(rand.NewSource(seed))
	for _, c := range classes {
		idx := byClass[c]
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
	}

	want := int(math.Ceil(fraction * float64(n)))
	if want >= n {
		want = n - 1
	}

	type alloc struct {
		class int
		count int
		frac  float64
	}
	allocs := make([]alloc, 0, len(classes))
	assigned := 0
	for _, c := range classes {
		exact := fraction * float64(len(byClass[c]))
		count := int(math.Floor(exact))
		allocs = append(allocs, alloc{class: c, count: count, frac: exact - float64(count)})
		assigned += count
	}

	// Hand out the remaining test slots to the largest fractional parts.
	sort.SliceStable(allocs, func(i, j int) bool { return allocs[i].frac > allocs[j].frac })
	for assigned < want {
		progressed := false
		for i := range allocs {
			if assigned >= want {
				break
			}
			if allocs[i].count < len(byClass[allocs[i].class]) {
				allocs[i].count++
				assigned++
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}

	for _, a := range allocs {
		idx := byClass[a.class]
		test = append(test, idx[:a.count]...)
		train = append(train, idx[a.count:]...)
	}
	sort.Ints(train)
	sort.Ints(test)
	return train, test
}
