package embedding

// meanPool averages token states [tokens, dims] over positions where mask is 1.
func meanPool(states []float32, mask []int64, dims int) []float32 {
	out := make([]float32, dims)
	var count float32
	for t, m := range mask {
		if m == 0 {
			continue
		}
		base := t * dims
		if base+dims > len(states) {
			break
		}
		for d := 0; d < dims; d++ {
			out[d] += states[base+d]
		}
		count++
	}
	if count == 0 {
		return out
	}
	for d := range out {
		out[d] /= count
	}
	return out
}
