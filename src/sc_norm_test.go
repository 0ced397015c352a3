package src

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestNormalizeUnknownMethod(t *testing.T) {
	data := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	_, _, err := Normalize(data, []string{"g1", "g2"}, "quantile", 2)
	require.Error(t, err)
}

func TestLogNormShape(t *testing.T) {
	data := mat.NewDense(4, 3, []float64{
		1, 0, 5,
		0, 2, 1,
		9, 1, 0,
		2, 2, 2,
	})
	genes := []string{"g1", "g2", "g3", "g4"}
	norm, kept, err := Normalize(data, genes, NormLog, 2)
	require.NoError(t, err)
	nRow, nCol := norm.Caps()
	require.Equal(t, 2, nRow)
	require.Equal(t, 3, nCol)
	require.Len(t, kept, 2)
	//each kept gene is centered
	for i := 0; i < nRow; i++ {
		sum := 0.0
		for j := 0; j < nCol; j++ {
			sum += norm.At(i, j)
		}
		require.InDelta(t, 0.0, sum, 1e-9)
	}
}

func TestLogNormLibrarySize(t *testing.T) {
	//the second cell is the first one at double depth, library size
	//normalization makes the columns identical and centering zeroes them
	data := mat.NewDense(3, 2, []float64{
		1, 2,
		3, 6,
		6, 12,
	})
	genes := []string{"g1", "g2", "g3"}
	norm, _, err := Normalize(data, genes, NormLog, 3)
	require.NoError(t, err)
	nRow, nCol := norm.Caps()
	for i := 0; i < nRow; i++ {
		for j := 0; j < nCol; j++ {
			require.InDelta(t, 0.0, norm.At(i, j), 1e-9)
		}
	}
}

func TestPearsonNormUniform(t *testing.T) {
	//uniform counts sit exactly on the null expectation
	data := mat.NewDense(2, 2, []float64{3, 3, 3, 3})
	norm, _, err := Normalize(data, []string{"g1", "g2"}, NormPearson, 2)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			require.InDelta(t, 0.0, norm.At(i, j), 1e-9)
		}
	}
}

func TestPearsonNormClip(t *testing.T) {
	data := mat.NewDense(2, 2, []float64{
		100, 0,
		0, 100,
	})
	norm, _, err := Normalize(data, []string{"g1", "g2"}, NormPearson, 2)
	require.NoError(t, err)
	clip := math.Sqrt(2.0)
	require.InDelta(t, clip, norm.At(0, 0), 1e-9)
	require.InDelta(t, -clip, norm.At(0, 1), 1e-9)
}

func TestTopVarRows(t *testing.T) {
	data := mat.NewDense(4, 3, []float64{
		1, 1, 1,
		1, 2, 3,
		0, 10, 20,
		1, 4, 7,
	})
	require.Equal(t, []int{2, 3}, TopVarRows(data, 2))
	require.Equal(t, []int{0, 1, 2, 3}, TopVarRows(data, 0))
	require.Equal(t, []int{0, 1, 2, 3}, TopVarRows(data, 10))
}

func TestClampNonNeg(t *testing.T) {
	data := mat.NewDense(2, 2, []float64{-1, 2, 0, -0.5})
	ClampNonNeg(data)
	require.Equal(t, 0.0, data.At(0, 0))
	require.Equal(t, 2.0, data.At(0, 1))
	require.Equal(t, 0.0, data.At(1, 0))
	require.Equal(t, 0.0, data.At(1, 1))
}
