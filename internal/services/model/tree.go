package model

import (
	"math"
	"math/rand"
	"sort"
)

// treeNode is one node of a CART classification tree. Leaves carry a class,
// internal nodes a (feature, threshold) split with values <= threshold going
// left.
type treeNode struct {
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
	class     int
	leaf      bool
}

type treeConfig struct {
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	featuresPerNode int
}

// growTree builds a tree over the sample indexes idx. rng drives the
// per-node feature subsampling, so a fixed seed reproduces the tree.
func growTree(ds *Dataset, idx []int, cfg treeConfig, rng *rand.Rand, depth int) *treeNode {
	if len(idx) < cfg.minSamplesSplit ||
		(cfg.maxDepth > 0 && depth >= cfg.maxDepth) ||
		pureClass(ds, idx) {
		return &treeNode{leaf: true, class: majorityClass(ds, idx)}
	}

	feature, threshold, ok := bestSplit(ds, idx, cfg, rng)
	if !ok {
		return &treeNode{leaf: true, class: majorityClass(ds, idx)}
	}

	var left, right []int
	for _, i := range idx {
		if ds.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < cfg.minSamplesLeaf || len(right) < cfg.minSamplesLeaf {
		return &treeNode{leaf: true, class: majorityClass(ds, idx)}
	}

	return &treeNode{
		feature:   feature,
		threshold: threshold,
		left:      growTree(ds, left, cfg, rng, depth+1),
		right:     growTree(ds, right, cfg, rng, depth+1),
	}
}

func (n *treeNode) predict(vec []float64) int {
	for !n.leaf {
		if vec[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.class
}

// bestSplit searches a random feature subset for the gini-optimal threshold.
func bestSplit(ds *Dataset, idx []int, cfg treeConfig, rng *rand.Rand) (feature int, threshold float64, ok bool) {
	features := sampleFeatures(len(ds.Columns), cfg.featuresPerNode, rng)

	bestGini := math.Inf(1)
	for _, f := range features {
		vals := make([]float64, len(idx))
		for k, i := range idx {
			vals[k] = ds.X[i][f]
		}
		sort.Float64s(vals)

		for k := 1; k < len(vals); k++ {
			if vals[k] == vals[k-1] {
				continue
			}
			t := (vals[k] + vals[k-1]) / 2
			g := splitGini(ds, idx, f, t)
			if g < bestGini {
				bestGini, feature, threshold, ok = g, f, t, true
			}
		}
	}
	return feature, threshold, ok
}

// splitGini is the size-weighted gini impurity of the two halves.
func splitGini(ds *Dataset, idx []int, feature int, threshold float64) float64 {
	var leftCounts, rightCounts [NumClasses]int
	var nLeft, nRight int
	for _, i := range idx {
		if ds.X[i][feature] <= threshold {
			leftCounts[ds.Y[i]]++
			nLeft++
		} else {
			rightCounts[ds.Y[i]]++
			nRight++
		}
	}
	total := float64(nLeft + nRight)
	return float64(nLeft)/total*gini(leftCounts, nLeft) +
		float64(nRight)/total*gini(rightCounts, nRight)
}

func gini(counts [NumClasses]int, n int) float64 {
	if n == 0 {
		return 0
	}
	g := 1.0
	for _, c := range counts {
		p := float64(c) / float64(n)
		g -= p * p
	}
	return g
}

func pureClass(ds *Dataset, idx []int) bool {
	for _, i := range idx[1:] {
		if ds.Y[i] != ds.Y[idx[0]] {
			return false
		}
	}
	return true
}

// majorityClass breaks ties toward the smaller class id so predictions stay
// deterministic.
func majorityClass(ds *Dataset, idx []int) int {
	var counts [NumClasses]int
	for _, i := range idx {
		counts[ds.Y[i]]++
	}
	best := 0
	for c := 1; c < NumClasses; c++ {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best
}

// sampleFeatures draws k distinct feature indexes without replacement.
func sampleFeatures(total, k int, rng *rand.Rand) []int {
	if k <= 0 || k >= total {
		all := make([]int, total)
		for i := range all {
			all[i] = i
		}
		return all
	}
	perm := rng.Perm(total)
	picked := perm[:k]
	sort.Ints(picked)
	return picked
}
