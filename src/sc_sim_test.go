package src

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gonum.org/v1/gonum/mat"
)

func TestParaCovBasic(t *testing.T) {
	data := mat.NewDense(3, 4, []float64{
		1.0, 2.0, 3.0, 4.0,
		2.0, 4.0, 6.0, 8.0,
		4.0, 3.0, 2.0, 1.0,
	})
	covmat, err := ParaCov(data, 2)
	require.NoError(t, err)
	nRow, nCol := covmat.Caps()
	require.Equal(t, 3, nRow)
	require.Equal(t, 3, nCol)
	//scaled copy correlates as 1, reversed row as -1
	require.InDelta(t, 1.0, covmat.At(0, 1), 1e-12)
	require.InDelta(t, -1.0, covmat.At(0, 2), 1e-12)
	for i := 0; i < nRow; i++ {
		require.InDelta(t, 1.0, covmat.At(i, i), 1e-12)
		for j := 0; j < nCol; j++ {
			require.Equal(t, covmat.At(i, j), covmat.At(j, i))
		}
	}
	//input left untouched
	require.Equal(t, 1.0, data.At(0, 0))
	require.Equal(t, 8.0, data.At(1, 3))
}

func TestParaCovConstantRow(t *testing.T) {
	data := mat.NewDense(2, 3, []float64{
		5.0, 5.0, 5.0,
		1.0, 2.0, 3.0,
	})
	covmat, err := ParaCov(data, 1)
	require.NoError(t, err)
	require.Equal(t, 0.0, covmat.At(0, 0))
	require.Equal(t, 0.0, covmat.At(0, 1))
	require.Equal(t, 0.0, covmat.At(1, 0))
	require.InDelta(t, 1.0, covmat.At(1, 1), 1e-12)
}

func TestParaCovDeterministic(t *testing.T) {
	defer goleak.VerifyNone(t)
	//20 rows give 210 pairs, enough for several batches
	rng := rand.New(rand.NewSource(7))
	data := mat.NewDense(20, 30, nil)
	for i := 0; i < 20; i++ {
		for j := 0; j < 30; j++ {
			data.Set(i, j, rng.Float64())
		}
	}
	one, err := ParaCov(data, 1)
	require.NoError(t, err)
	four, err := ParaCov(data, 4)
	require.NoError(t, err)
	require.True(t, mat.Equal(one, four))
}

func TestParaCovEmpty(t *testing.T) {
	_, err := ParaCov(&mat.Dense{}, 2)
	require.Error(t, err)
}

func TestProgramSimilarity(t *testing.T) {
	//program 0 and 1 share the same usage pattern, program 2 differs
	ps := &ProgramSet{
		Unit:         "u1",
		ProgramNames: []string{"p.u1.R2_P1", "p.u1.R2_P2", "p.u1.R3_P1"},
		H: mat.NewDense(3, 5, []float64{
			0.1, 0.9, 0.2, 0.8, 0.1,
			0.2, 1.8, 0.4, 1.6, 0.2,
			0.9, 0.1, 0.8, 0.2, 0.9,
		}),
	}
	sim, err := ProgramSimilarity(ps, 2)
	require.NoError(t, err)
	nRow, nCol := sim.Caps()
	require.Equal(t, 3, nRow)
	require.Equal(t, 3, nCol)
	require.InDelta(t, 1.0, sim.At(0, 1), 1e-12)
	require.Less(t, sim.At(0, 2), 0.0)
}
