package vectorindex

// flatL2 is a row-major float32 matrix searched by brute force.
type flatL2 struct {
	dim  int
	data []float32
}

func newFlatL2(dim int) *flatL2 {
	return &flatL2{dim: dim}
}

func (m *flatL2) rows() int {
	return len(m.data) / m.dim
}

func (m *flatL2) add(vectors [][]float32) {
	for _, v := range vectors {
		m.data = append(m.data, v...)
	}
}

func (m *flatL2) row(i int) []float32 {
	return m.data[i*m.dim : (i+1)*m.dim]
}

// distance returns the squared Euclidean distance between row i and query, accumulated in float64.
func (m *flatL2) distance(i int, query []float32) float64 {
	var sum float64
	for j, x := range m.row(i) {
		d := float64(x) - float64(query[j])
		sum += d * d
	}
	return sum
}
