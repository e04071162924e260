package train

import (
	"math"

	"golang.org/x/exp/rand"
)

// Split shuffles 0..n-1 with seed and returns train and test index sets.
// The test set has ceil(n*testSize) rows, capped so training keeps at least
// one row.
func Split(n int, testSize float64, seed uint64) (train, test []int) {
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	k := int(math.Ceil(float64(n) * testSize))
	if k < 0 {
		k = 0
	}
	if k >= n {
		k = n - 1
	}
	if k <= 0 {
		return perm, nil
	}
	return perm[k:], perm[:k]
}
