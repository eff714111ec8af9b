package boosting

import "fmt"

// Node is one node of a regression tree. Internal nodes route on a
// feature threshold (left when value < threshold); leaves carry the
// weight added to the ensemble margin. Nodes reference their children
// by index into the owning Tree so the whole tree serializes flat.
type Node struct {
	Leaf      bool    `json:"leaf"`
	Feature   int     `json:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
	Weight    float64 `json:"weight,omitempty"`
	Gain      float64 `json:"gain,omitempty"`
}

// Tree is a flattened regression tree. Nodes[0] is the root.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Output returns the leaf weight for a feature vector.
func (t *Tree) Output(x []float64) float64 {
	i := 0
	for !t.Nodes[i].Leaf {
		n := t.Nodes[i]
		if x[n.Feature] < n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return t.Nodes[i].Weight
}

func (t *Tree) appendLeaf(weight float64) int {
	t.Nodes = append(t.Nodes, Node{Leaf: true, Weight: weight})
	return len(t.Nodes) - 1
}

// validate checks the structural integrity of a deserialized tree:
// child indexes must point forward and stay in bounds, and split
// features must exist. Output would walk out of bounds otherwise.
func (t *Tree) validate(numFeatures int) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("tree has no nodes")
	}
	for i, n := range t.Nodes {
		if n.Leaf {
			continue
		}
		if n.Feature < 0 || n.Feature >= numFeatures {
			return fmt.Errorf("node %d splits on feature %d, have %d features", i, n.Feature, numFeatures)
		}
		if n.Left <= i || n.Left >= len(t.Nodes) || n.Right <= i || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d has out-of-range children (%d, %d)", i, n.Left, n.Right)
		}
	}
	return nil
}
