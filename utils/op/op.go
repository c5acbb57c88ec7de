// Package op provides extended Gorgonia graph operations.
package op

import (
	G "gorgonia.org/gorgonia"
)

// Clip clips the value of a node to within [min, max]. The comparison
// masks are not differentiable, so gradients flow only through the
// unclipped branch, matching the backward pass of torch.clamp.
func Clip(value *G.Node, min, max float64) (*G.Node, error) {
	minNode := G.NewScalar(
		value.Graph(),
		G.Float64,
		G.WithValue(min),
		G.WithName("clip_min_"+value.Name()),
	)
	maxNode := G.NewScalar(
		value.Graph(),
		G.Float64,
		G.WithValue(max),
		G.WithName("clip_max_"+value.Name()),
	)

	// Mask for values below the minimum
	minMask, err := G.Lt(value, minNode, true)
	if err != nil {
		return nil, err
	}
	minVal, err := G.HadamardProd(minNode, minMask)
	if err != nil {
		return nil, err
	}

	// Mask for values within the closed interval, so that values
	// exactly at a clip edge pass through unchanged
	isMaskGt, err := G.Gte(value, minNode, true)
	if err != nil {
		return nil, err
	}
	isMaskLt, err := G.Lte(value, maxNode, true)
	if err != nil {
		return nil, err
	}
	isMask, err := G.HadamardProd(isMaskGt, isMaskLt)
	if err != nil {
		return nil, err
	}
	isVal, err := G.HadamardProd(value, isMask)
	if err != nil {
		return nil, err
	}

	// Mask for values above the maximum
	maxMask, err := G.Gt(value, maxNode, true)
	if err != nil {
		return nil, err
	}
	maxVal, err := G.HadamardProd(maxNode, maxMask)
	if err != nil {
		return nil, err
	}

	return G.ReduceAdd(G.Nodes{minVal, isVal, maxVal})
}

// Min returns the elementwise minimum of two nodes. If values are
// equal the first value is returned.
func Min(a, b *G.Node) (*G.Node, error) {
	aMask, err := G.Lte(a, b, true)
	if err != nil {
		return nil, err
	}
	aVal, err := G.HadamardProd(a, aMask)
	if err != nil {
		return nil, err
	}

	bMask, err := G.Lt(b, a, true)
	if err != nil {
		return nil, err
	}
	bVal, err := G.HadamardProd(b, bMask)
	if err != nil {
		return nil, err
	}

	return G.Add(aVal, bVal)
}

// Max returns the elementwise maximum of two nodes. If values are
// equal the first value is returned.
func Max(a, b *G.Node) (*G.Node, error) {
	aMask, err := G.Gte(a, b, true)
	if err != nil {
		return nil, err
	}
	aVal, err := G.HadamardProd(a, aMask)
	if err != nil {
		return nil, err
	}

	bMask, err := G.Gt(b, a, true)
	if err != nil {
		return nil, err
	}
	bVal, err := G.HadamardProd(b, bMask)
	if err != nil {
		return nil, err
	}

	return G.Add(aVal, bVal)
}

// LogSumExp calculates the log of the summation of exponentials of
// all logits along the given axis.
//
// Use this in place of Gorgonia's LogSumExp, which has the final sum
// and log interchanged, which is incorrect.
func LogSumExp(logits *G.Node, along int) *G.Node {
	max := G.Must(G.Max(logits, along))

	exponent := G.Must(G.BroadcastSub(logits, max, nil, []byte{1}))
	exponent = G.Must(G.Exp(exponent))

	sum := G.Must(G.Sum(exponent, along))
	log := G.Must(G.Log(sum))

	return G.Must(G.Add(max, log))
}
