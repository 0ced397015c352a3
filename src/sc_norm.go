package src

import (
	"fmt"
	"math"
	"sort"

	"github.com/wangjohn/quickselect"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	NormLog     = "lognorm"
	NormPearson = "pearson"

	//counts per cell after library size normalization
	cpTarget = 1.0e4
	//clip for per gene z scores
	scaleClip = 10.0
	//overdispersion used by the Pearson residual model
	pearsonTheta = 100.0
)

//Normalize converts raw counts of one unit into the matrix handed to the
//factorization, selecting the nTopFeatures most variable genes. Unknown
//method names are a hard error, never a silent fallback.
func Normalize(data *mat.Dense, genes []string, method string, nTopFeatures int) (*mat.Dense, []string, error) {
	switch method {
	case NormLog:
		norm, keptGenes := logNorm(data, genes, nTopFeatures)
		return norm, keptGenes, nil
	case NormPearson:
		norm, keptGenes := pearsonNorm(data, genes, nTopFeatures)
		return norm, keptGenes, nil
	}
	return nil, nil, fmt.Errorf("unknown normalization method %s", method)
}

//logNorm scales each cell to cpTarget counts, takes log1p, keeps the top
//variable genes and then centers and scales each gene with clipping.
func logNorm(data *mat.Dense, genes []string, nTopFeatures int) (*mat.Dense, []string) {
	nRow, nCol := data.Caps()
	norm := mat.NewDense(nRow, nCol, nil)
	for j := 0; j < nCol; j++ {
		sum := 0.0
		for i := 0; i < nRow; i++ {
			sum += data.At(i, j)
		}
		if sum <= 0.0 {
			continue
		}
		scale := cpTarget / sum
		for i := 0; i < nRow; i++ {
			norm.Set(i, j, math.Log1p(data.At(i, j)*scale))
		}
	}
	topIdx := TopVarRows(norm, nTopFeatures)
	norm = SubMatrix(norm, topIdx, nil)
	keptGenes := SubNames(genes, topIdx)
	nRow, _ = norm.Caps()
	for i := 0; i < nRow; i++ {
		row := norm.RawRowView(i)
		mean, std := stat.MeanStdDev(row, nil)
		if std <= 0.0 {
			std = 1.0
		}
		for j := range row {
			v := (row[j] - mean) / std
			if v > scaleClip {
				v = scaleClip
			}
			if v < -scaleClip {
				v = -scaleClip
			}
			row[j] = v
		}
	}
	return norm, keptGenes
}

//pearsonNorm computes analytic Pearson residuals under a negative
//binomial null with fixed overdispersion, clipped at sqrt(nCells), and
//keeps the genes with the largest residual variance.
func pearsonNorm(data *mat.Dense, genes []string, nTopFeatures int) (*mat.Dense, []string) {
	nRow, nCol := data.Caps()
	rowSum := make([]float64, nRow)
	colSum := make([]float64, nCol)
	total := 0.0
	for i := 0; i < nRow; i++ {
		for j := 0; j < nCol; j++ {
			v := data.At(i, j)
			rowSum[i] += v
			colSum[j] += v
			total += v
		}
	}
	res := mat.NewDense(nRow, nCol, nil)
	if total <= 0.0 {
		return res, genes
	}
	clip := math.Sqrt(float64(nCol))
	for i := 0; i < nRow; i++ {
		for j := 0; j < nCol; j++ {
			mu := rowSum[i] * colSum[j] / total
			v := mu + mu*mu/pearsonTheta
			r := 0.0
			if v > 0.0 {
				r = (data.At(i, j) - mu) / math.Sqrt(v)
			}
			if r > clip {
				r = clip
			}
			if r < -clip {
				r = -clip
			}
			res.Set(i, j, r)
		}
	}
	topIdx := TopVarRows(res, nTopFeatures)
	res = SubMatrix(res, topIdx, nil)
	keptGenes := SubNames(genes, topIdx)
	return res, keptGenes
}

//varSelect orders row indices by decreasing variance for quickselect.
type varSelect struct {
	idx []int
	v   []float64
}

func (s varSelect) Len() int {
	return len(s.idx)
}
func (s varSelect) Less(i, j int) bool {
	return s.v[s.idx[i]] > s.v[s.idx[j]]
}
func (s varSelect) Swap(i, j int) {
	s.idx[i], s.idx[j] = s.idx[j], s.idx[i]
}

//TopVarRows returns the indices of the nTop most variable rows, in their
//original row order. nTop <= 0 or >= nRow keeps all rows.
func TopVarRows(data *mat.Dense, nTop int) (keptIdx []int) {
	nRow, _ := data.Caps()
	if nTop <= 0 || nTop >= nRow {
		keptIdx = make([]int, nRow)
		for i := 0; i < nRow; i++ {
			keptIdx[i] = i
		}
		return keptIdx
	}
	vars := make([]float64, nRow)
	for i := 0; i < nRow; i++ {
		vars[i] = stat.Variance(data.RawRowView(i), nil)
	}
	idx := make([]int, nRow)
	for i := 0; i < nRow; i++ {
		idx[i] = i
	}
	//partial selection is enough here, full sorting is not needed
	quickselect.QuickSelect(varSelect{idx: idx, v: vars}, nTop)
	keptIdx = idx[0:nTop]
	sort.Ints(keptIdx)
	return keptIdx
}

//ClampNonNeg truncates negative entries to zero in place, as the
//factorization requires a non negative input.
func ClampNonNeg(data *mat.Dense) {
	nRow, _ := data.Caps()
	for i := 0; i < nRow; i++ {
		row := data.RawRowView(i)
		for j := range row {
			if row[j] < 0.0 {
				row[j] = 0.0
			}
		}
	}
}
