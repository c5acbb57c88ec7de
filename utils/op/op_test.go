package op

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// runVector evaluates a graph op on a fixed input vector
func runVector(t *testing.T, input []float64,
	build func(*G.Node) *G.Node) []float64 {
	t.Helper()

	g := G.NewGraph()
	in := G.NewVector(
		g,
		tensor.Float64,
		G.WithShape(len(input)),
		G.WithName("in"),
	)
	out := build(in)

	var outVal G.Value
	G.Read(out, &outVal)

	err := G.Let(in, tensor.NewDense(
		tensor.Float64,
		[]int{len(input)},
		tensor.WithBacking(input),
	))
	require.NoError(t, err)

	vm := G.NewTapeMachine(g)
	defer vm.Close()
	require.NoError(t, vm.RunAll())

	return outVal.Data().([]float64)
}

func TestClip(t *testing.T) {
	const epsilon = 0.2

	input := []float64{0.5, 1 - epsilon, 1.0, 1 + epsilon, 1.7}
	want := []float64{1 - epsilon, 1 - epsilon, 1.0, 1 + epsilon, 1 + epsilon}

	got := runVector(t, input, func(in *G.Node) *G.Node {
		clipped, err := Clip(in, 1-epsilon, 1+epsilon)
		require.NoError(t, err)
		return clipped
	})

	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-12, "index %d", i)
	}
}

// A ratio exactly at the clip edge must pass through unchanged, so
// the clipped surrogate is continuous at the boundary.
func TestClipContinuousAtEdge(t *testing.T) {
	const epsilon = 0.2
	advantage := 2.5

	got := runVector(t, []float64{1 + epsilon}, func(in *G.Node) *G.Node {
		clipped, err := Clip(in, 1-epsilon, 1+epsilon)
		require.NoError(t, err)
		return clipped
	})

	assert.InDelta(t, (1+epsilon)*advantage, got[0]*advantage, 1e-12)
}

func TestMin(t *testing.T) {
	g := G.NewGraph()
	a := G.NewVector(g, tensor.Float64, G.WithShape(3), G.WithName("a"))
	b := G.NewVector(g, tensor.Float64, G.WithShape(3), G.WithName("b"))

	minimum, err := Min(a, b)
	require.NoError(t, err)

	var outVal G.Value
	G.Read(minimum, &outVal)

	require.NoError(t, G.Let(a, tensor.NewDense(tensor.Float64, []int{3},
		tensor.WithBacking([]float64{1, -2, 3}))))
	require.NoError(t, G.Let(b, tensor.NewDense(tensor.Float64, []int{3},
		tensor.WithBacking([]float64{2, -3, 3}))))

	vm := G.NewTapeMachine(g)
	defer vm.Close()
	require.NoError(t, vm.RunAll())

	assert.Equal(t, []float64{1, -3, 3}, outVal.Data().([]float64))
}
