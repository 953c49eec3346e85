package detector

import (
	"math"
	"math/rand"
)

// eulerGamma is used by the harmonic number approximation in cFactor.
const eulerGamma = 0.5772156649

type forest struct {
	trees      []*node
	sampleSize int
}

type node struct {
	leaf  bool
	size  int
	dim   int
	split float64
	left  *node
	right *node
}

// buildTree partitions sample recursively until every point is isolated,
// the height limit is reached or no dimension can be split.
func buildTree(rng *rand.Rand, sample [][]float64, height, limit int) *node {
	if len(sample) <= 1 || height >= limit {
		return &node{leaf: true, size: len(sample)}
	}

	dims := len(sample[0])
	mins := make([]float64, dims)
	maxs := make([]float64, dims)
	copy(mins, sample[0])
	copy(maxs, sample[0])
	for _, x := range sample[1:] {
		for d, v := range x {
			if v < mins[d] {
				mins[d] = v
			}
			if v > maxs[d] {
				maxs[d] = v
			}
		}
	}

	splittable := make([]int, 0, dims)
	for d := 0; d < dims; d++ {
		if maxs[d] > mins[d] {
			splittable = append(splittable, d)
		}
	}
	if len(splittable) == 0 {
		return &node{leaf: true, size: len(sample)}
	}

	dim := splittable[rng.Intn(len(splittable))]
	split := mins[dim] + rng.Float64()*(maxs[dim]-mins[dim])

	left := make([][]float64, 0, len(sample))
	right := make([][]float64, 0, len(sample))
	for _, x := range sample {
		if x[dim] < split {
			left = append(left, x)
		} else {
			right = append(right, x)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &node{leaf: true, size: len(sample)}
	}

	return &node{
		dim:   dim,
		split: split,
		left:  buildTree(rng, left, height+1, limit),
		right: buildTree(rng, right, height+1, limit),
	}
}

// cFactor is the average path length of an unsuccessful BST search over n points.
func cFactor(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	return 2*(math.Log(float64(n-1))+eulerGamma) - 2*float64(n-1)/float64(n)
}

func pathLength(n *node, x []float64, height int) float64 {
	for !n.leaf {
		if x[n.dim] < n.split {
			n = n.left
		} else {
			n = n.right
		}
		height++
	}
	return float64(height) + cFactor(n.size)
}

// score returns 2^(-E[h(x)]/c(sampleSize)); higher is more anomalous.
func (f *forest) score(x []float64) float64 {
	if len(f.trees) == 0 {
		return 0
	}
	var sum float64
	for _, t := range f.trees {
		sum += pathLength(t, x, 0)
	}
	mean := sum / float64(len(f.trees))
	c := cFactor(f.sampleSize)
	if c <= 0 {
		c = 1
	}
	return math.Pow(2, -mean/c)
}

func heightLimit(sampleSize int) int {
	if sampleSize <= 1 {
		return 0
	}
	return int(math.Ceil(math.Log2(float64(sampleSize))))
}
