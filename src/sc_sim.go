package src

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

//pairs travel to the workers in fixed size batches to keep channel
//traffic low on large program sets
const pairBatchSize = 100

type pairBatch struct {
	i []int
	j []int
}

//ParaCov computes the pairwise Pearson correlation between the rows of
//data with a bounded worker pool. Rows are centered once on a copy, so
//the input matrix is left untouched, and rows with zero variance
//correlate as 0 instead of NaN.
func ParaCov(data *mat.Dense, goro int) (*mat.Dense, error) {
	nSets, nData := data.Caps()
	if nSets == 0 || nData == 0 {
		return nil, fmt.Errorf("empty matrix for correlation")
	}
	if goro < 1 {
		goro = 1
	}
	runtime.GOMAXPROCS(goro)

	//mean centering and var sqrt per row
	centered := mat.DenseCopyOf(data)
	vs := make([]float64, nSets)
	for i := 0; i < nSets; i++ {
		row := centered.RawRowView(i)
		mean := floats.Sum(row) / float64(nData)
		element := 0.0
		for j := range row {
			row[j] -= mean
			element += row[j] * row[j]
		}
		vs[i] = math.Sqrt(element)
	}

	covmat := mat.NewDense(nSets, nSets, nil)
	var wg sync.WaitGroup
	in := make(chan pairBatch, goro*40)

	singlePCC := func() {
		for batch := range in {
			for m := range batch.i {
				i := batch.i[m]
				j := batch.j[m]
				cv := 0.0
				rowJ := centered.RawRowView(j)
				for k, val := range centered.RawRowView(i) {
					cv += rowJ[k] * val
				}
				if vs[i] > 0.0 && vs[j] > 0.0 {
					cv = cv / (vs[i] * vs[j])
				} else {
					cv = 0.0
				}
				covmat.Set(i, j, cv)
				covmat.Set(j, i, cv)
			}
			wg.Done()
		}
	}

	for w := 0; w < goro; w++ {
		go singlePCC()
	}
	batch := pairBatch{}
	for i := 0; i < nSets; i++ {
		for j := i; j < nSets; j++ {
			batch.i = append(batch.i, i)
			batch.j = append(batch.j, j)
			if len(batch.i) == pairBatchSize {
				wg.Add(1)
				in <- batch
				batch = pairBatch{}
			}
		}
	}
	//last batch
	if len(batch.i) > 0 {
		wg.Add(1)
		in <- batch
	}
	close(in)
	wg.Wait()
	return covmat, nil
}

//ProgramSimilarity correlates the usage rows of one unit's programs
//across its cells, so that a program recovered again at a neighboring
//rank shows up as a block of high correlation.
func ProgramSimilarity(ps *ProgramSet, goro int) (*mat.Dense, error) {
	return ParaCov(ps.H, goro)
}
