package vector

import "sort"

// InnerProduct returns the inner product of two vectors (for normalized vectors equals cosine similarity).
// Vectors of different length yield 0.
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// ranksBefore reports whether a is ordered ahead of b: higher score first, then lower ordinal.
func ranksBefore(a, b Hit) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Ordinal < b.Ordinal
}

func sortHits(hits []Hit) {
	sort.Slice(hits, func(i, j int) bool { return ranksBefore(hits[i], hits[j]) })
}

// topK keeps the k best hits seen so far in a min-heap whose root is the worst kept hit.
type topK struct {
	k    int
	heap []Hit
}

func newTopK(k int) *topK {
	return &topK{k: k, heap: make([]Hit, 0, k)}
}

func (t *topK) offer(h Hit) {
	if len(t.heap) < t.k {
		t.heap = append(t.heap, h)
		t.up(len(t.heap) - 1)
		return
	}
	if ranksBefore(h, t.heap[0]) {
		t.heap[0] = h
		t.down(0)
	}
}

// sorted returns the kept hits best first. The heap is consumed.
func (t *topK) sorted() []Hit {
	out := t.heap
	sortHits(out)
	t.heap = nil
	return out
}

func (t *topK) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !ranksBefore(t.heap[parent], t.heap[i]) {
			break
		}
		t.heap[parent], t.heap[i] = t.heap[i], t.heap[parent]
		i = parent
	}
}

func (t *topK) down(i int) {
	n := len(t.heap)
	for {
		worst := i
		l, r := 2*i+1, 2*i+2
		if l < n && ranksBefore(t.heap[worst], t.heap[l]) {
			worst = l
		}
		if r < n && ranksBefore(t.heap[worst], t.heap[r]) {
			worst = r
		}
		if worst == i {
			return
		}
		t.heap[i], t.heap[worst] = t.heap[worst], t.heap[i]
		i = worst
	}
}
