package src

import (
	"fmt"
	"log"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	ScoreAvg  = "average"
	ScoreZ    = "zscore"
	ScoreGSEA = "ssgsea"

	//rank weight exponent for the enrichment walk
	gseaAlpha = 0.25
)

//ScoreGeneSets scores every subject against every gene set, returning a
//sets by subjects matrix in the given set order. Genes absent from the
//matrix are dropped from their sets with a warning, and sets with no
//gene left score zero. Unknown method names are a hard error.
func ScoreGeneSets(data *mat.Dense, genes []string, setNames []string, geneSets map[string][]string, method string) (*mat.Dense, error) {
	if method != ScoreAvg && method != ScoreZ && method != ScoreGSEA {
		return nil, fmt.Errorf("unknown scoring method %s", method)
	}
	memberIdx := setMembers(genes, setNames, geneSets)
	switch method {
	case ScoreZ:
		return scoreZ(data, memberIdx), nil
	case ScoreGSEA:
		return scoreGSEA(data, memberIdx), nil
	}
	return scoreAvg(data, memberIdx), nil
}

//setMembers resolves gene set members to matrix row indices, warning on
//genes the matrix does not carry.
func setMembers(genes []string, setNames []string, geneSets map[string][]string) [][]int {
	geneIdx := make(map[string]int)
	for i, g := range genes {
		geneIdx[g] = i
	}
	memberIdx := make([][]int, 0)
	for _, name := range setNames {
		members := make([]int, 0)
		nMissing := 0
		for _, g := range geneSets[name] {
			i, exist := geneIdx[g]
			if !exist {
				nMissing++
				continue
			}
			members = append(members, i)
		}
		if nMissing > 0 {
			log.Print("warning: gene set ", name, " missing ", nMissing, " of ", len(geneSets[name]), " genes in the matrix.")
		}
		if len(members) == 0 {
			log.Print("warning: gene set ", name, " has no gene in the matrix, scores set to zero.")
		}
		memberIdx = append(memberIdx, members)
	}
	return memberIdx
}

func scoreAvg(data *mat.Dense, memberIdx [][]int) *mat.Dense {
	_, nSubj := data.Caps()
	scores := mat.NewDense(len(memberIdx), nSubj, nil)
	for s, members := range memberIdx {
		if len(members) == 0 {
			continue
		}
		for j := 0; j < nSubj; j++ {
			sum := 0.0
			for _, g := range members {
				sum += data.At(g, j)
			}
			scores.Set(s, j, sum/float64(len(members)))
		}
	}
	return scores
}

//scoreZ standardizes each gene across subjects and combines member z
//scores as sum over sqrt of the set size.
func scoreZ(data *mat.Dense, memberIdx [][]int) *mat.Dense {
	nGenes, nSubj := data.Caps()
	z := mat.NewDense(nGenes, nSubj, nil)
	for i := 0; i < nGenes; i++ {
		row := data.RawRowView(i)
		mean, std := stat.MeanStdDev(row, nil)
		if std <= 0.0 {
			continue
		}
		zRow := z.RawRowView(i)
		for j := range row {
			zRow[j] = (row[j] - mean) / std
		}
	}
	scores := mat.NewDense(len(memberIdx), nSubj, nil)
	for s, members := range memberIdx {
		if len(members) == 0 {
			continue
		}
		norm := math.Sqrt(float64(len(members)))
		for j := 0; j < nSubj; j++ {
			sum := 0.0
			for _, g := range members {
				sum += z.At(g, j)
			}
			scores.Set(s, j, sum/norm)
		}
	}
	return scores
}

//scoreGSEA runs a single sample enrichment walk per subject and set. The
//genes are ordered by decreasing expression within the subject, in set
//steps are weighted by rank to the gseaAlpha power, and the running
//difference is summed. Final scores are normalized by the score range
//over the whole matrix.
func scoreGSEA(data *mat.Dense, memberIdx [][]int) *mat.Dense {
	nGenes, nSubj := data.Caps()
	scores := mat.NewDense(len(memberIdx), nSubj, nil)
	inSet := make([]bool, nGenes)
	ord := make([]int, nGenes)
	rankVal := make([]float64, nGenes)
	for j := 0; j < nSubj; j++ {
		for i := 0; i < nGenes; i++ {
			ord[i] = i
		}
		sort.Slice(ord, func(a, b int) bool {
			return data.At(ord[a], j) > data.At(ord[b], j)
		})
		//rank nGenes for the highest expressed gene, down to 1
		for pos, g := range ord {
			rankVal[g] = float64(nGenes - pos)
		}
		for s, members := range memberIdx {
			if len(members) == 0 {
				continue
			}
			totalWt := 0.0
			for _, g := range members {
				inSet[g] = true
				totalWt += math.Pow(rankVal[g], gseaAlpha)
			}
			nOut := float64(nGenes - len(members))
			cumIn := 0.0
			cumOut := 0.0
			es := 0.0
			for _, g := range ord {
				if inSet[g] {
					cumIn += math.Pow(rankVal[g], gseaAlpha) / totalWt
				} else if nOut > 0.0 {
					cumOut += 1.0 / nOut
				}
				es += cumIn - cumOut
			}
			scores.Set(s, j, es)
			for _, g := range members {
				inSet[g] = false
			}
		}
	}
	min := math.Inf(1)
	max := math.Inf(-1)
	for s := 0; s < len(memberIdx); s++ {
		row := scores.RawRowView(s)
		for j := range row {
			if row[j] < min {
				min = row[j]
			}
			if row[j] > max {
				max = row[j]
			}
		}
	}
	if max > min {
		scale := 1.0 / (max - min)
		for s := 0; s < len(memberIdx); s++ {
			row := scores.RawRowView(s)
			for j := range row {
				row[j] *= scale
			}
		}
	}
	return scores
}
