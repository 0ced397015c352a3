package src

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestFilterGeneFamilies(t *testing.T) {
	genes := []string{"MT-CO1", "RPL3", "RPS4", "HLA-A", "CD8A", "MTOR"}
	tests := []struct {
		name string
		mito bool
		ribo bool
		hla  bool
		want []string
	}{
		{"none", false, false, false, []string{"MT-CO1", "RPL3", "RPS4", "HLA-A", "CD8A", "MTOR"}},
		{"mito", true, false, false, []string{"RPL3", "RPS4", "HLA-A", "CD8A", "MTOR"}},
		{"ribo", false, true, false, []string{"MT-CO1", "HLA-A", "CD8A", "MTOR"}},
		{"hla", false, false, true, []string{"MT-CO1", "RPL3", "RPS4", "CD8A", "MTOR"}},
		{"all", true, true, true, []string{"CD8A", "MTOR"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, kept := FilterGeneFamilies(genes, tt.mito, tt.ribo, tt.hla)
			require.Equal(t, tt.want, kept)
			require.Len(t, idx, len(tt.want))
			for i, gi := range idx {
				require.Equal(t, tt.want[i], genes[gi])
			}
		})
	}
}

func TestFilterGeneFamiliesPrefixOnly(t *testing.T) {
	//MTOR is not an MT- gene, HLANA is not an HLA- gene
	genes := []string{"MTOR", "HLANA", "RPLP0"}
	_, kept := FilterGeneFamilies(genes, true, false, true)
	require.Equal(t, []string{"MTOR", "HLANA", "RPLP0"}, kept)
}

func TestUnitColumns(t *testing.T) {
	cellIDs := []string{"c1", "c2", "c3", "c4", "c5"}
	cellToLabel := map[string]string{
		"c1": "s1",
		"c2": "s2",
		"c3": "s1",
		"c4": "",
		//c5 not annotated
	}
	unitToCols := UnitColumns(cellIDs, cellToLabel)
	require.Equal(t, map[string][]int{"s1": {0, 2}, "s2": {1}}, unitToCols)
}

func TestUnitColumnsNALabel(t *testing.T) {
	unitToCols := UnitColumns([]string{"c1", "c2"}, map[string]string{"c1": "NA", "c2": "s1"})
	require.Equal(t, map[string][]int{"s1": {1}}, unitToCols)
}

func TestUnits(t *testing.T) {
	unitToCols := map[string][]int{"s2": {0}, "s1": {1}, "s3": {2}}
	require.Equal(t, []string{"s1", "s2", "s3"}, Units(unitToCols, nil))
	require.Equal(t, []string{"s3", "s1"}, Units(unitToCols, []string{"s3", "s1"}))
}

func TestSubMatrix(t *testing.T) {
	data := mat.NewDense(3, 3, []float64{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	})
	sub := SubMatrix(data, []int{0, 2}, []int{1})
	nRow, nCol := sub.Caps()
	require.Equal(t, 2, nRow)
	require.Equal(t, 1, nCol)
	require.Equal(t, 2.0, sub.At(0, 0))
	require.Equal(t, 8.0, sub.At(1, 0))

	all := SubMatrix(data, nil, nil)
	require.True(t, mat.Equal(data, all))
}

func TestNonZeroRows(t *testing.T) {
	data := mat.NewDense(3, 2, []float64{
		0, 0,
		1, 0,
		0, 2,
	})
	require.Equal(t, []int{1, 2}, NonZeroRows(data))
}

func TestPosVarRows(t *testing.T) {
	data := mat.NewDense(3, 3, []float64{
		5, 5, 5,
		1, 2, 3,
		0, 0, 1,
	})
	require.Equal(t, []int{1, 2}, PosVarRows(data))
}

func TestSubNames(t *testing.T) {
	require.Equal(t, []string{"b", "d"}, SubNames([]string{"a", "b", "c", "d"}, []int{1, 3}))
}
