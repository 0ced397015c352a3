package src

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"gonum.org/v1/gonum/mat"
)

const (
	ObjFro = "frobenius"
	ObjKL  = "kl"

	//guard against division by zero in the multiplicative updates
	nmfEps = 1.0e-12
)

//ProgramSet holds the factorization of one unit across all ranks, with W
//as genes by programs and H as programs by cells.
type ProgramSet struct {
	Unit         string
	Genes        []string
	Cells        []string
	ProgramNames []string
	W            *mat.Dense
	H            *mat.Dense
}

//DecompConfig collects the knobs of the per unit factorization runs.
type DecompConfig struct {
	Project      string
	Units        []string
	RankLo       int
	RankHi       int
	MinCells     int
	NTopFeatures int
	NormMethod   string
	Objective    string
	MaxIter      int
	Tol          float64
	Seed         int64
	DropMito     bool
	DropRibo     bool
	DropHLA      bool
	Threads      int
}

//Check validates the configuration before any per unit work starts, so
//that a bad run aborts instead of producing partial results.
func (cfg *DecompConfig) Check() error {
	if cfg.NormMethod != NormLog && cfg.NormMethod != NormPearson {
		return fmt.Errorf("unknown normalization method %s", cfg.NormMethod)
	}
	if cfg.Objective != ObjFro && cfg.Objective != ObjKL {
		return fmt.Errorf("unknown factorization objective %s", cfg.Objective)
	}
	if cfg.RankLo < 2 || cfg.RankLo > cfg.RankHi {
		return fmt.Errorf("bad rank range %d to %d", cfg.RankLo, cfg.RankHi)
	}
	if cfg.MinCells < 1 {
		return fmt.Errorf("bad minimal cell count %d", cfg.MinCells)
	}
	if cfg.NTopFeatures < 1 {
		return fmt.Errorf("bad variable gene count %d", cfg.NTopFeatures)
	}
	if cfg.MaxIter < 1 {
		return fmt.Errorf("bad iteration cap %d", cfg.MaxIter)
	}
	if cfg.Threads < 1 {
		cfg.Threads = 1
	}
	return nil
}

//Exporter persists one unit's factorization as a side effect of the
//decomposition run. A nil Exporter keeps the run purely in memory.
type Exporter interface {
	Export(ps *ProgramSet) error
}

//DirExporter writes each unit's factor matrices under Dir as labeled tab
//delimited text.
type DirExporter struct {
	Dir    string
	Prefix string
	NFeat  int
	RankLo int
	RankHi int
}

func (e *DirExporter) Export(ps *ProgramSet) error {
	err := os.MkdirAll(e.Dir, 0755)
	if err != nil {
		return err
	}
	base := fmt.Sprintf("%s.%s.nfeat%d.rank%dto%d", e.Prefix, ps.Unit, e.NFeat, e.RankLo, e.RankHi)
	err = WriteLabeledFile(filepath.Join(e.Dir, base+".w.txt"), ps.W, ps.Genes, ps.ProgramNames)
	if err != nil {
		return err
	}
	return WriteLabeledFile(filepath.Join(e.Dir, base+".h.txt"), ps.H, ps.ProgramNames, ps.Cells)
}

//NMF factorizes a non negative matrix into W (nRow by rank) and H (rank
//by nCol) with multiplicative updates, stopping when the objective decay
//falls below tol relative to the starting objective.
func NMF(x *mat.Dense, rank int, objective string, seed int64, maxIter int, tol float64) (w *mat.Dense, h *mat.Dense, err error) {
	nRow, nCol := x.Caps()
	if rank < 1 || rank > nRow || rank > nCol {
		return nil, nil, fmt.Errorf("rank %d out of range for a %d by %d matrix", rank, nRow, nCol)
	}
	if objective != ObjFro && objective != ObjKL {
		return nil, nil, fmt.Errorf("unknown factorization objective %s", objective)
	}
	rng := rand.New(rand.NewSource(seed))
	avg := math.Sqrt(mat.Sum(x) / float64(nRow*nCol) / float64(rank))
	if avg <= 0.0 {
		avg = 1.0e-3
	}
	w = mat.NewDense(nRow, rank, nil)
	h = mat.NewDense(rank, nCol, nil)
	for i := 0; i < nRow; i++ {
		for k := 0; k < rank; k++ {
			w.Set(i, k, avg*rng.Float64())
		}
	}
	for k := 0; k < rank; k++ {
		for j := 0; j < nCol; j++ {
			h.Set(k, j, avg*rng.Float64())
		}
	}

	rec := mat.NewDense(nRow, nCol, nil)
	costInit := nmfCost(x, w, h, rec, objective)
	costPrev := costInit
	if objective == ObjFro {
		wtx := mat.NewDense(rank, nCol, nil)
		wtw := mat.NewDense(rank, rank, nil)
		denH := mat.NewDense(rank, nCol, nil)
		xht := mat.NewDense(nRow, rank, nil)
		hht := mat.NewDense(rank, rank, nil)
		denW := mat.NewDense(nRow, rank, nil)
		for iter := 1; iter <= maxIter; iter++ {
			wtx.Mul(w.T(), x)
			wtw.Mul(w.T(), w)
			denH.Mul(wtw, h)
			hadamardUpdate(h, wtx, denH)
			xht.Mul(x, h.T())
			hht.Mul(h, h.T())
			denW.Mul(w, hht)
			hadamardUpdate(w, xht, denW)
			//objective every ten iterations is cheap enough
			if iter%10 == 0 {
				cost := nmfCost(x, w, h, rec, objective)
				if (costPrev-cost) < tol*costInit {
					break
				}
				costPrev = cost
			}
		}
	} else {
		quo := mat.NewDense(nRow, nCol, nil)
		numH := mat.NewDense(rank, nCol, nil)
		numW := mat.NewDense(nRow, rank, nil)
		for iter := 1; iter <= maxIter; iter++ {
			rec.Mul(w, h)
			klQuotient(quo, x, rec)
			numH.Mul(w.T(), quo)
			colSumDivide(h, numH, w)
			rec.Mul(w, h)
			klQuotient(quo, x, rec)
			numW.Mul(quo, h.T())
			rowSumDivide(w, numW, h)
			if iter%10 == 0 {
				cost := nmfCost(x, w, h, rec, objective)
				if (costPrev-cost) < tol*costInit {
					break
				}
				costPrev = cost
			}
		}
	}
	return w, h, nil
}

//a *= num / (den + eps), elementwise
func hadamardUpdate(a *mat.Dense, num *mat.Dense, den *mat.Dense) {
	nRow, _ := a.Caps()
	for i := 0; i < nRow; i++ {
		row := a.RawRowView(i)
		numRow := num.RawRowView(i)
		denRow := den.RawRowView(i)
		for j := range row {
			row[j] *= numRow[j] / (denRow[j] + nmfEps)
		}
	}
}

//quo = x / (rec + eps), elementwise
func klQuotient(quo *mat.Dense, x *mat.Dense, rec *mat.Dense) {
	nRow, _ := x.Caps()
	for i := 0; i < nRow; i++ {
		quoRow := quo.RawRowView(i)
		xRow := x.RawRowView(i)
		recRow := rec.RawRowView(i)
		for j := range quoRow {
			quoRow[j] = xRow[j] / (recRow[j] + nmfEps)
		}
	}
}

//h *= num / colSum(w), the KL update denominator for H
func colSumDivide(h *mat.Dense, num *mat.Dense, w *mat.Dense) {
	nRow, rank := w.Caps()
	colSum := make([]float64, rank)
	for i := 0; i < nRow; i++ {
		row := w.RawRowView(i)
		for k := range row {
			colSum[k] += row[k]
		}
	}
	rank, _ = h.Caps()
	for k := 0; k < rank; k++ {
		row := h.RawRowView(k)
		numRow := num.RawRowView(k)
		for j := range row {
			row[j] *= numRow[j] / (colSum[k] + nmfEps)
		}
	}
}

//w *= num / rowSum(h), the KL update denominator for W
func rowSumDivide(w *mat.Dense, num *mat.Dense, h *mat.Dense) {
	rank, nCol := h.Caps()
	rowSum := make([]float64, rank)
	for k := 0; k < rank; k++ {
		row := h.RawRowView(k)
		for j := 0; j < nCol; j++ {
			rowSum[k] += row[j]
		}
	}
	nRow, _ := w.Caps()
	for i := 0; i < nRow; i++ {
		row := w.RawRowView(i)
		numRow := num.RawRowView(i)
		for k := range row {
			row[k] *= numRow[k] / (rowSum[k] + nmfEps)
		}
	}
}

func nmfCost(x *mat.Dense, w *mat.Dense, h *mat.Dense, rec *mat.Dense, objective string) float64 {
	rec.Mul(w, h)
	nRow, nCol := x.Caps()
	cost := 0.0
	if objective == ObjFro {
		for i := 0; i < nRow; i++ {
			xRow := x.RawRowView(i)
			recRow := rec.RawRowView(i)
			for j := 0; j < nCol; j++ {
				d := xRow[j] - recRow[j]
				cost += d * d
			}
		}
		return math.Sqrt(cost)
	}
	for i := 0; i < nRow; i++ {
		xRow := x.RawRowView(i)
		recRow := rec.RawRowView(i)
		for j := 0; j < nCol; j++ {
			if xRow[j] > 0.0 {
				cost += xRow[j]*math.Log(xRow[j]/(recRow[j]+nmfEps)) - xRow[j] + recRow[j]
			} else {
				cost += recRow[j]
			}
		}
	}
	return cost
}

//DecomposeUnit runs the full per unit chain on one unit's raw counts:
//zero count gene removal, normalization, clamping, constant gene removal
//and then one factorization per rank in the configured range. The same
//seed is used for every rank.
func DecomposeUnit(data *mat.Dense, genes []string, cells []string, unit string, cfg *DecompConfig) (*ProgramSet, error) {
	keptIdx := NonZeroRows(data)
	if len(keptIdx) == 0 {
		return nil, fmt.Errorf("unit %s has no gene with a nonzero count", unit)
	}
	data = SubMatrix(data, keptIdx, nil)
	genes = SubNames(genes, keptIdx)
	norm, genes, err := Normalize(data, genes, cfg.NormMethod, cfg.NTopFeatures)
	if err != nil {
		return nil, err
	}
	ClampNonNeg(norm)
	posIdx := PosVarRows(norm)
	if len(posIdx) == 0 {
		return nil, fmt.Errorf("unit %s has no gene with positive variance after normalization", unit)
	}
	norm = SubMatrix(norm, posIdx, nil)
	genes = SubNames(genes, posIdx)
	nGenes, nCells := norm.Caps()
	if nGenes < cfg.RankHi || nCells < cfg.RankHi {
		return nil, fmt.Errorf("unit %s with %d genes and %d cells after filtering, not enough for rank %d", unit, nGenes, nCells, cfg.RankHi)
	}
	nProg := 0
	for rank := cfg.RankLo; rank <= cfg.RankHi; rank++ {
		nProg += rank
	}
	w := mat.NewDense(nGenes, nProg, nil)
	h := mat.NewDense(nProg, nCells, nil)
	names := make([]string, 0)
	at := 0
	for rank := cfg.RankLo; rank <= cfg.RankHi; rank++ {
		wr, hr, err1 := NMF(norm, rank, cfg.Objective, cfg.Seed, cfg.MaxIter, cfg.Tol)
		if err1 != nil {
			return nil, err1
		}
		for p := 0; p < rank; p++ {
			for i := 0; i < nGenes; i++ {
				w.Set(i, at, wr.At(i, p))
			}
			for j := 0; j < nCells; j++ {
				h.Set(at, j, hr.At(p, j))
			}
			names = append(names, fmt.Sprintf("%s.%s.R%d_P%d", cfg.Project, unit, rank, p+1))
			at++
		}
	}
	return &ProgramSet{Unit: unit, Genes: genes, Cells: cells, ProgramNames: names, W: w, H: h}, nil
}

//DecomposeSamples factorizes every unit in parallel and returns the per
//unit program sets. Units below the minimal cell count, and units whose
//per unit chain fails, are logged and left out of the result.
func DecomposeSamples(data *mat.Dense, genes []string, cellIDs []string, annCells []string, annLabels []string, cfg *DecompConfig, exporter Exporter) (map[string]*ProgramSet, error) {
	err := cfg.Check()
	if err != nil {
		return nil, err
	}
	keptIdx, keptGenes := FilterGeneFamilies(genes, cfg.DropMito, cfg.DropRibo, cfg.DropHLA)
	data = SubMatrix(data, keptIdx, nil)
	unitToCols := UnitColumns(cellIDs, CellLabelMap(annCells, annLabels))
	units := Units(unitToCols, cfg.Units)

	runtime.GOMAXPROCS(cfg.Threads)
	programSets := make(map[string]*ProgramSet)
	var wg sync.WaitGroup
	var mutex sync.Mutex
	in := make(chan string, cfg.Threads*40)

	singleDecomp := func() {
		for unit := range in {
			cols := unitToCols[unit]
			sub := SubMatrix(data, nil, cols)
			cells := SubNames(cellIDs, cols)
			ps, err1 := DecomposeUnit(sub, keptGenes, cells, unit, cfg)
			if err1 != nil {
				log.Print("warning: skip unit ", unit, ", ", err1, ".")
				wg.Done()
				continue
			}
			if exporter != nil {
				err1 = exporter.Export(ps)
				if err1 != nil {
					log.Print("warning: export failed for unit ", unit, ", ", err1, ".")
				}
			}
			mutex.Lock()
			programSets[unit] = ps
			mutex.Unlock()
			log.Print("unit ", unit, " factorized with ", len(ps.ProgramNames), " programs.")
			wg.Done()
		}
	}

	for i := 0; i < cfg.Threads; i++ {
		go singleDecomp()
	}
	for _, unit := range units {
		nCells := len(unitToCols[unit])
		if nCells < cfg.MinCells {
			log.Print("skip unit ", unit, " with ", nCells, " cells, fewer than ", cfg.MinCells, ".")
			continue
		}
		wg.Add(1)
		in <- unit
	}
	close(in)
	wg.Wait()
	return programSets, nil
}

type kv struct {
	Key   int
	Value float64
}

//TopProgramGenes ranks genes by weight within each program and returns
//the top nTop gene IDs per program name.
func TopProgramGenes(ps *ProgramSet, nTop int) map[string][]string {
	topGenes := make(map[string][]string)
	nGenes, _ := ps.W.Caps()
	if nTop > nGenes {
		nTop = nGenes
	}
	for p, name := range ps.ProgramNames {
		sortMap := []kv{}
		for i := 0; i < nGenes; i++ {
			sortMap = append(sortMap, kv{i, ps.W.At(i, p)})
		}
		sort.Slice(sortMap, func(i, j int) bool {
			return sortMap[i].Value > sortMap[j].Value
		})
		genes := make([]string, 0)
		for i := 0; i < nTop; i++ {
			genes = append(genes, ps.Genes[sortMap[i].Key])
		}
		topGenes[name] = genes
	}
	return topGenes
}
