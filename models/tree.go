package models

import (
	"sort"
)

// treeNode is a single node of a regression tree stored in a flat slice. Leaves have a
// Left index of -1.
type treeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

func (n treeNode) isLeaf() bool {
	return n.Left < 0
}

type regressionTree struct {
	Nodes []treeNode `json:"nodes"`
}

type treeParams struct {
	maxDepth       int
	minSamplesLeaf int
	lambda         float64
}

type split struct {
	feature   int
	threshold float64
	gain      float64
	pos       int
}

// growTree fits a tree to the gradient using exact greedy splits on every feature.
// rows holds the design matrix in row order.
func growTree(rows [][]float64, grad []float64, p treeParams) *regressionTree {
	idx := make([]int, len(grad))
	for i := range idx {
		idx[i] = i
	}
	t := &regressionTree{}
	t.grow(rows, grad, idx, 0, p)
	return t
}

func (t *regressionTree) grow(rows [][]float64, grad []float64, idx []int, depth int, p treeParams) int {
	var sum float64
	for _, i := range idx {
		sum += grad[i]
	}
	nodeID := len(t.Nodes)
	t.Nodes = append(t.Nodes, treeNode{
		Left:  -1,
		Right: -1,
		Value: sum / (float64(len(idx)) + p.lambda),
	})

	if depth >= p.maxDepth || len(idx) < 2*p.minSamplesLeaf {
		return nodeID
	}

	best, sorted := bestSplit(rows, grad, idx, sum, p)
	if best.gain <= 1e-12 {
		return nodeID
	}

	left := make([]int, best.pos)
	right := make([]int, len(sorted)-best.pos)
	copy(left, sorted[:best.pos])
	copy(right, sorted[best.pos:])

	leftID := t.grow(rows, grad, left, depth+1, p)
	rightID := t.grow(rows, grad, right, depth+1, p)

	t.Nodes[nodeID].Feature = best.feature
	t.Nodes[nodeID].Threshold = best.threshold
	t.Nodes[nodeID].Left = leftID
	t.Nodes[nodeID].Right = rightID
	return nodeID
}

// bestSplit returns the split with the highest reduction in squared loss along with the
// node indexes sorted by the winning feature
func bestSplit(rows [][]float64, grad []float64, idx []int, total float64, p treeParams) (split, []int) {
	best := split{feature: -1}
	var bestSorted []int

	n := float64(len(idx))
	parent := total * total / (n + p.lambda)
	nFeat := len(rows[idx[0]])

	sorted := make([]int, len(idx))
	for j := 0; j < nFeat; j++ {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, b int) bool {
			return rows[sorted[a]][j] < rows[sorted[b]][j]
		})

		var leftSum float64
		for k := 1; k < len(sorted); k++ {
			leftSum += grad[sorted[k-1]]
			if k < p.minSamplesLeaf || len(sorted)-k < p.minSamplesLeaf {
				continue
			}
			lo, hi := rows[sorted[k-1]][j], rows[sorted[k]][j]
			if lo == hi {
				continue
			}
			nl, nr := float64(k), n-float64(k)
			rightSum := total - leftSum
			gain := leftSum*leftSum/(nl+p.lambda) + rightSum*rightSum/(nr+p.lambda) - parent
			if gain > best.gain {
				best = split{feature: j, threshold: (lo + hi) / 2, gain: gain, pos: k}
				bestSorted = append(bestSorted[:0], sorted...)
			}
		}
	}
	return best, bestSorted
}

func (t *regressionTree) predict(row []float64) float64 {
	if len(t.Nodes) == 0 {
		return 0
	}
	node := t.Nodes[0]
	for !node.isLeaf() {
		if row[node.Feature] < node.Threshold {
			node = t.Nodes[node.Left]
		} else {
			node = t.Nodes[node.Right]
		}
	}
	return node.Value
}
