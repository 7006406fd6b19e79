package segment

import "math"

// cosine returns the cosine similarity of a and b. Vectors of different
// lengths compare over the shorter prefix; a zero-norm operand yields 0.
func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	norm := math.Sqrt(normA) * math.Sqrt(normB)
	if norm == 0 {
		return 0
	}
	return dot / norm
}

// centroid returns the component-wise mean of the vectors selected by
// indices. Returns nil when indices is empty.
func centroid(vectors [][]float32, indices []int) []float32 {
	if len(indices) == 0 {
		return nil
	}

	c := make([]float32, len(vectors[indices[0]]))
	for _, idx := range indices {
		for i, v := range vectors[idx] {
			if i < len(c) {
				c[i] += v
			}
		}
	}
	for i := range c {
		c[i] /= float32(len(indices))
	}
	return c
}

// cohesion returns the mean pairwise cosine similarity of the vectors
// selected by indices. A single-member group scores 1.0.
func cohesion(vectors [][]float32, indices []int) float64 {
	if len(indices) <= 1 {
		return 1.0
	}

	var sum float64
	var pairs int
	for i := 0; i < len(indices); i++ {
		for j := i + 1; j < len(indices); j++ {
			sum += cosine(vectors[indices[i]], vectors[indices[j]])
			pairs++
		}
	}
	return sum / float64(pairs)
}
