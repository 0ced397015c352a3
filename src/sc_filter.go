package src

import (
	"log"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"
)

//gene family prefixes for the optional global filters
const (
	mitoPrefix  = "MT-"
	riboPrefixL = "RPL"
	riboPrefixS = "RPS"
	hlaPrefix   = "HLA-"
)

//FilterGeneFamilies removes mitochondrial, ribosomal and/or HLA genes by
//symbol prefix. It runs once on the full gene universe, before any per
//unit work, so that all units share one gene space.
func FilterGeneFamilies(genes []string, dropMito bool, dropRibo bool, dropHLA bool) (keptIdx []int, keptGenes []string) {
	keptIdx = make([]int, 0)
	keptGenes = make([]string, 0)
	for i, g := range genes {
		if dropMito && strings.HasPrefix(g, mitoPrefix) {
			continue
		}
		if dropRibo && (strings.HasPrefix(g, riboPrefixL) || strings.HasPrefix(g, riboPrefixS)) {
			continue
		}
		if dropHLA && strings.HasPrefix(g, hlaPrefix) {
			continue
		}
		keptIdx = append(keptIdx, i)
		keptGenes = append(keptGenes, g)
	}
	nDropped := len(genes) - len(keptGenes)
	if nDropped > 0 {
		log.Print("gene family filter removed ", nDropped, " genes, ", len(keptGenes), " genes left.")
	}
	return keptIdx, keptGenes
}

//CellLabelMap builds the cell to unit label map from annotation columns.
func CellLabelMap(annCells []string, annLabels []string) map[string]string {
	cellToLabel := make(map[string]string)
	for i, cell := range annCells {
		cellToLabel[cell] = annLabels[i]
	}
	return cellToLabel
}

//UnitColumns maps each unit label to the matrix column indices of its
//cells. Cells without a label, or with an empty/NA label, are dropped
//with a warning.
func UnitColumns(cellIDs []string, cellToLabel map[string]string) (unitToCols map[string][]int) {
	unitToCols = make(map[string][]int)
	nMissing := 0
	for c, cell := range cellIDs {
		label, exist := cellToLabel[cell]
		if !exist || label == "" || label == "NA" {
			nMissing++
			continue
		}
		unitToCols[label] = append(unitToCols[label], c)
	}
	if nMissing > 0 {
		log.Print("warning: dropped ", nMissing, " cells with missing unit labels.")
	}
	return unitToCols
}

//Units returns the unit labels to process, either the explicit list or
//the sorted distinct labels observed in the data.
func Units(unitToCols map[string][]int, explicit []string) []string {
	if len(explicit) > 0 {
		return explicit
	}
	units := make([]string, 0)
	for unit := range unitToCols {
		units = append(units, unit)
	}
	sort.Strings(units)
	return units
}

//SubMatrix extracts the given rows and columns, nil meaning all.
func SubMatrix(data *mat.Dense, rows []int, cols []int) *mat.Dense {
	nRow, nCol := data.Caps()
	if rows == nil {
		rows = make([]int, nRow)
		for i := 0; i < nRow; i++ {
			rows[i] = i
		}
	}
	if cols == nil {
		cols = make([]int, nCol)
		for j := 0; j < nCol; j++ {
			cols[j] = j
		}
	}
	sub := mat.NewDense(len(rows), len(cols), nil)
	for i, r := range rows {
		for j, c := range cols {
			sub.Set(i, j, data.At(r, c))
		}
	}
	return sub
}

//NonZeroRows returns indices of rows with a positive total, so that genes
//never observed in a unit are removed before normalization.
func NonZeroRows(data *mat.Dense) (keptIdx []int) {
	nRow, nCol := data.Caps()
	keptIdx = make([]int, 0)
	for i := 0; i < nRow; i++ {
		sum := 0.0
		for j := 0; j < nCol; j++ {
			sum += data.At(i, j)
		}
		if sum > 0.0 {
			keptIdx = append(keptIdx, i)
		}
	}
	return keptIdx
}

//PosVarRows returns indices of rows with positive variance. Constant rows
//carry no signal and break scaling, so they are removed after
//normalization.
func PosVarRows(data *mat.Dense) (keptIdx []int) {
	nRow, nCol := data.Caps()
	keptIdx = make([]int, 0)
	for i := 0; i < nRow; i++ {
		mean := 0.0
		for j := 0; j < nCol; j++ {
			mean += data.At(i, j)
		}
		mean /= float64(nCol)
		ssq := 0.0
		for j := 0; j < nCol; j++ {
			d := data.At(i, j) - mean
			ssq += d * d
		}
		if ssq > 0.0 {
			keptIdx = append(keptIdx, i)
		}
	}
	return keptIdx
}

//SubNames subsets a name slice by index, matching a SubMatrix call.
func SubNames(names []string, idx []int) []string {
	sub := make([]string, 0)
	for _, i := range idx {
		sub = append(sub, names[i])
	}
	return sub
}
