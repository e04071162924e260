package embedder

import "math"

// meanPool averages token states over positions where mask is 1.
// hidden is [batch * seq * dim], mask is [batch * seq]; the result is
// [batch * dim]. Rows with no real tokens pool to zero.
func meanPool(hidden []float32, mask []int64, batchSize, seqLen, dim int64) []float32 {
	out := make([]float32, batchSize*dim)
	for b := int64(0); b < batchSize; b++ {
		row := out[b*dim : (b+1)*dim]
		var n int
		for s, m := range mask[b*seqLen : (b+1)*seqLen] {
			if m != 1 {
				continue
			}
			tok := hidden[(b*seqLen+int64(s))*dim:][:dim]
			for d, v := range tok {
				row[d] += v
			}
			n++
		}
		if n > 1 {
			inv := 1 / float32(n)
			for d := range row {
				row[d] *= inv
			}
		}
	}
	return out
}

// l2Normalize scales vec to unit length in place. Zero vectors are left as is.
func l2Normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= inv
	}
}
