package src

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestScoreGeneSetsUnknownMethod(t *testing.T) {
	data := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	_, err := ScoreGeneSets(data, []string{"g1", "g2"}, []string{"s"}, map[string][]string{"s": {"g1"}}, "gsva")
	require.Error(t, err)
}

func TestScoreAverage(t *testing.T) {
	data := mat.NewDense(3, 2, []float64{
		1, 4,
		2, 5,
		3, 6,
	})
	genes := []string{"g1", "g2", "g3"}
	setNames := []string{"odd"}
	geneSets := map[string][]string{"odd": {"g1", "g3"}}
	scores, err := ScoreGeneSets(data, genes, setNames, geneSets, ScoreAvg)
	require.NoError(t, err)
	require.Equal(t, 2.0, scores.At(0, 0))
	require.Equal(t, 5.0, scores.At(0, 1))
}

func TestScoreZSingleGene(t *testing.T) {
	data := mat.NewDense(2, 3, []float64{
		1, 2, 3,
		9, 9, 9,
	})
	genes := []string{"g1", "g2"}
	scores, err := ScoreGeneSets(data, genes, []string{"s1", "s2"},
		map[string][]string{"s1": {"g1"}, "s2": {"g2"}}, ScoreZ)
	require.NoError(t, err)
	//single gene set scores are the gene's own z scores
	require.InDelta(t, -1.0, scores.At(0, 0), 1e-9)
	require.InDelta(t, 0.0, scores.At(0, 1), 1e-9)
	require.InDelta(t, 1.0, scores.At(0, 2), 1e-9)
	//constant genes carry no z score
	require.Equal(t, 0.0, scores.At(1, 0))
	require.Equal(t, 0.0, scores.At(1, 1))
}

func TestScoreGSEAMonotonic(t *testing.T) {
	//the set genes lead the first subject's ranking and trail the second
	data := mat.NewDense(6, 2, []float64{
		10, 1,
		9, 2,
		4, 9,
		3, 10,
		2, 8,
		1, 7,
	})
	genes := []string{"g0", "g1", "g2", "g3", "g4", "g5"}
	setNames := []string{"lead"}
	geneSets := map[string][]string{"lead": {"g0", "g1"}}
	scores, err := ScoreGeneSets(data, genes, setNames, geneSets, ScoreGSEA)
	require.NoError(t, err)
	require.Greater(t, scores.At(0, 0), scores.At(0, 1))
}

func TestScoreMissingGenesIgnored(t *testing.T) {
	data := mat.NewDense(2, 2, []float64{
		1, 2,
		5, 7,
	})
	genes := []string{"g1", "g2"}
	setNames := []string{"withMissing", "clean"}
	geneSets := map[string][]string{
		"withMissing": {"g1", "notInMatrix"},
		"clean":       {"g1"},
	}
	scores, err := ScoreGeneSets(data, genes, setNames, geneSets, ScoreAvg)
	require.NoError(t, err)
	require.Equal(t, scores.At(1, 0), scores.At(0, 0))
	require.Equal(t, scores.At(1, 1), scores.At(0, 1))
}

func TestScoreEmptySet(t *testing.T) {
	data := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	genes := []string{"g1", "g2"}
	scores, err := ScoreGeneSets(data, genes, []string{"gone"},
		map[string][]string{"gone": {"x", "y"}}, ScoreZ)
	require.NoError(t, err)
	require.Equal(t, 0.0, scores.At(0, 0))
	require.Equal(t, 0.0, scores.At(0, 1))
}
