package forest

import (
	"math/rand"
	"sort"

	"github.com/rotisserie/eris"
)

// Node is one vertex of a regression tree. Leaves have Feature == -1. Rows
// with x[Feature] <= Threshold descend Left.
type Node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t,omitempty"`
	Left      int32   `json:"l,omitempty"`
	Right     int32   `json:"r,omitempty"`
	Value     float64 `json:"v"`
}

// Tree stores its nodes in a flat slice; index 0 is the root.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t *Tree) predict(x []float64) float64 {
	i := int32(0)
	for {
		n := &t.Nodes[i]
		if n.Feature < 0 {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

func (t *Tree) check(width int) error {
	if len(t.Nodes) == 0 {
		return eris.New("empty tree")
	}
	for i, n := range t.Nodes {
		if n.Feature < 0 {
			continue
		}
		if n.Feature >= width {
			return eris.Errorf("node %d splits on feature %d of %d", i, n.Feature, width)
		}
		// children are always appended after their parent, which also rules out cycles
		if int(n.Left) <= i || int(n.Right) <= i || int(n.Left) >= len(t.Nodes) || int(n.Right) >= len(t.Nodes) {
			return eris.Errorf("node %d has invalid children %d/%d", i, n.Left, n.Right)
		}
	}
	return nil
}

type builder struct {
	cfg    Config
	x      [][]float64
	y      []float64
	binary []bool
	rng    *rand.Rand

	nodes    []Node
	gain     []float64
	features []int
	scratch  []int
}

func newBuilder(cfg Config, x [][]float64, y []float64, binary []bool, rng *rand.Rand) *builder {
	width := len(x[0])
	features := make([]int, width)
	for j := range features {
		features[j] = j
	}
	return &builder{
		cfg:      cfg,
		x:        x,
		y:        y,
		binary:   binary,
		rng:      rng,
		gain:     make([]float64, width),
		features: features,
		scratch:  make([]int, len(x)),
	}
}

// bootstrap draws len(x) row indices with replacement.
func (b *builder) bootstrap() []int {
	idx := make([]int, len(b.x))
	for i := range idx {
		idx[i] = b.rng.Intn(len(b.x))
	}
	return idx
}

// candidates returns the features to try at one node.
func (b *builder) candidates() []int {
	k := len(b.features)
	if b.cfg.MaxFeatures > 0 && b.cfg.MaxFeatures < 1 {
		k = int(b.cfg.MaxFeatures * float64(len(b.features)))
		if k < 1 {
			k = 1
		}
		b.rng.Shuffle(len(b.features), func(i, j int) {
			b.features[i], b.features[j] = b.features[j], b.features[i]
		})
	}
	return b.features[:k]
}

type split struct {
	feature   int
	threshold float64
	score     float64 // sum of squared child sums over child sizes
	ok        bool
}

// grow appends the subtree for idx and returns its root index.
func (b *builder) grow(idx []int, depth int) int32 {
	n := len(idx)
	var sum, sumSq float64
	for _, i := range idx {
		sum += b.y[i]
		sumSq += b.y[i] * b.y[i]
	}
	mean := sum / float64(n)
	id := int32(len(b.nodes))
	b.nodes = append(b.nodes, Node{Feature: -1, Value: mean})

	if b.cfg.MaxDepth > 0 && depth >= b.cfg.MaxDepth {
		return id
	}
	if n < b.cfg.MinSamplesSplit || n < 2*b.cfg.MinSamplesLeaf {
		return id
	}
	if sumSq-sum*mean <= 1e-9*(sumSq+1) {
		return id
	}

	best := split{}
	for _, f := range b.candidates() {
		var s split
		if b.binary[f] {
			s = b.binarySplit(idx, f)
		} else {
			s = b.sortedSplit(idx, f)
		}
		if s.ok && (!best.ok || s.score > best.score) {
			best = s
		}
	}
	parentScore := sum * sum / float64(n)
	if !best.ok || best.score <= parentScore {
		return id
	}

	k := b.partition(idx, best.feature, best.threshold)
	b.gain[best.feature] += best.score - parentScore

	left := b.grow(idx[:k], depth+1)
	right := b.grow(idx[k:], depth+1)
	b.nodes[id] = Node{Feature: best.feature, Threshold: best.threshold, Left: left, Right: right, Value: mean}
	return id
}

func (b *builder) binarySplit(idx []int, f int) split {
	var leftSum, total float64
	left := 0
	for _, i := range idx {
		total += b.y[i]
		if b.x[i][f] == 0 {
			leftSum += b.y[i]
			left++
		}
	}
	right := len(idx) - left
	if left < b.cfg.MinSamplesLeaf || right < b.cfg.MinSamplesLeaf {
		return split{}
	}
	rightSum := total - leftSum
	return split{
		feature:   f,
		threshold: 0.5,
		score:     leftSum*leftSum/float64(left) + rightSum*rightSum/float64(right),
		ok:        true,
	}
}

func (b *builder) sortedSplit(idx []int, f int) split {
	order := b.scratch[:len(idx)]
	copy(order, idx)
	sort.Slice(order, func(p, q int) bool { return b.x[order[p]][f] < b.x[order[q]][f] })

	var total float64
	for _, i := range order {
		total += b.y[i]
	}

	best := split{}
	minLeaf := b.cfg.MinSamplesLeaf
	n := len(order)
	var leftSum float64
	for k := 1; k < n; k++ {
		leftSum += b.y[order[k-1]]
		lo, hi := b.x[order[k-1]][f], b.x[order[k]][f]
		if lo == hi || k < minLeaf || n-k < minLeaf {
			continue
		}
		rightSum := total - leftSum
		score := leftSum*leftSum/float64(k) + rightSum*rightSum/float64(n-k)
		if !best.ok || score > best.score {
			threshold := lo + (hi-lo)/2
			if threshold >= hi {
				threshold = lo
			}
			best = split{feature: f, threshold: threshold, score: score, ok: true}
		}
	}
	return best
}

// partition reorders idx so rows going left come first and returns their count.
func (b *builder) partition(idx []int, f int, threshold float64) int {
	buf := b.scratch[:0]
	k := 0
	for _, i := range idx {
		if b.x[i][f] <= threshold {
			idx[k] = i
			k++
		} else {
			buf = append(buf, i)
		}
	}
	copy(idx[k:], buf)
	return k
}
