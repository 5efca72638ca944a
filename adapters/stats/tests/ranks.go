package tests

import (
	"sort"
)

// tieAveragedRanks assigns 1-based ranks to data, averaging the ranks of
// tied values. Returns the ranks in input order plus the tie group sizes
// (for variance corrections).
func tieAveragedRanks(data []float64) ([]float64, []int) {
	n := len(data)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return data[order[a]] < data[order[b]]
	})

	ranks := make([]float64, n)
	ties := make([]int, 0)

	i := 0
	for i < n {
		j := i
		for j+1 < n && data[order[j+1]] == data[order[i]] {
			j++
		}
		// Average rank for positions i..j (1-based)
		avg := float64(i+j+2) / 2.0
		for k := i; k <= j; k++ {
			ranks[order[k]] = avg
		}
		if j > i {
			ties = append(ties, j-i+1)
		}
		i = j + 1
	}
	return ranks, ties
}
