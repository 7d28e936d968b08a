// Fixed-cohort sampling: the sample indices are chosen once at run start
// and reused every month, so the percentile and histogram series track a
// consistent cohort instead of independent draws.
package stats

import (
	"fmt"
	"sort"

	"github.com/talgya/runwaysim/internal/entropy"
)

// Sampler computes monthly distributional statistics over a fixed index
// sample of the population.
type Sampler struct {
	idx     []int
	edges   []float64
	scratch []float64
}

// NewSampler picks size indices from [0, n) uniformly without replacement,
// deterministically from the seed. size == n degenerates to the full
// population with no sampling logic involved.
func NewSampler(n, size int, seed uint64, histEdges []float64) (*Sampler, error) {
	if size <= 0 || size > n {
		return nil, fmt.Errorf("sample size %d out of range for population %d", size, n)
	}
	if len(histEdges) < 2 {
		return nil, fmt.Errorf("histogram needs at least 2 edges, got %d", len(histEdges))
	}
	for i := 1; i < len(histEdges); i++ {
		if histEdges[i] <= histEdges[i-1] {
			return nil, fmt.Errorf("histogram edges must be strictly increasing")
		}
	}

	var idx []int
	if size == n {
		idx = make([]int, n)
		for i := range idx {
			idx[i] = i
		}
	} else {
		idx = sampleWithoutReplacement(n, size, seed)
		// Ascending index order keeps the monthly gather sequential over
		// the backing arrays (matters for the mmap backend).
		sort.Ints(idx)
	}

	edges := make([]float64, len(histEdges))
	copy(edges, histEdges)

	return &Sampler{
		idx:     idx,
		edges:   edges,
		scratch: make([]float64, size),
	}, nil
}

// sampleWithoutReplacement is Floyd's algorithm: k distinct values from
// [0, n) without materializing a permutation of n.
func sampleWithoutReplacement(n, k int, seed uint64) []int {
	rng := entropy.SampleStream(seed)
	chosen := make(map[int]struct{}, k)
	out := make([]int, 0, k)
	for i := n - k; i < n; i++ {
		j := rng.IntN(i + 1)
		if _, taken := chosen[j]; taken {
			j = i
		}
		chosen[j] = struct{}{}
		out = append(out, j)
	}
	return out
}

// Size returns the sample size.
func (s *Sampler) Size() int { return len(s.idx) }

// Indices returns the sampled agent indices in ascending order.
func (s *Sampler) Indices() []int { return s.idx }

// Bins returns the number of histogram bins (edges − 1).
func (s *Sampler) Bins() int { return len(s.edges) - 1 }

// Edges returns the histogram bin edges.
func (s *Sampler) Edges() []float64 { return s.edges }

// SampleStats is one month's distributional summary over the sample.
type SampleStats struct {
	Mean float64
	P10  float64
	P50  float64
	P90  float64
	Hist []int64
}

// Snapshot gathers the sampled agents' current capital and computes the
// month's statistics. Only the sample (never the population) is sorted.
func (s *Sampler) Snapshot(capital []float64) SampleStats {
	vals := s.scratch
	sum := 0.0
	for i, id := range s.idx {
		v := capital[id]
		vals[i] = v
		sum += v
	}
	sort.Float64s(vals)

	hist := make([]int64, s.Bins())
	for _, v := range vals {
		hist[s.bin(v)]++
	}

	return SampleStats{
		Mean: sum / float64(len(vals)),
		P10:  percentile(vals, 10),
		P50:  percentile(vals, 50),
		P90:  percentile(vals, 90),
		Hist: hist,
	}
}

// bin maps a value to its histogram bin. Underflow and overflow are folded
// into the edge bins so bin counts always sum to the sample size.
func (s *Sampler) bin(v float64) int {
	if v < s.edges[0] {
		return 0
	}
	last := len(s.edges) - 2
	if v >= s.edges[last+1] {
		return last
	}
	// First edge index strictly greater than v; bin is one to its left.
	i := sort.SearchFloat64s(s.edges, v)
	if i < len(s.edges) && s.edges[i] == v {
		return min(i, last)
	}
	return i - 1
}

// percentile computes the q-th percentile of sorted values with linear
// interpolation between closest ranks.
func percentile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := q / 100 * float64(len(sorted)-1)
	lo := int(rank)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
