package src

import (
	"bufio"
	"fmt"
	"log"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	coxMaxIter = 25
	coxTol     = 1.0e-9
	//iterates past this log hazard ratio are treated as diverged
	coxBetaCap = 50.0
)

//ClinicalTable holds aligned clinical columns for a set of subjects.
type ClinicalTable struct {
	Subjects   []string
	Time       []float64
	Event      []float64
	Covariates map[string][]string
}

//CoxRow is one fitted association between a gene set and survival within
//one subject partition. HR keeps the true hazard ratio while DisplayHR
//may be clipped for plotting.
type CoxRow struct {
	Group       string
	Label       string
	N           int
	GeneSet     string
	Concordance float64
	HR          float64
	DisplayHR   float64
	P           float64
	Signif      string
}

//SurvConfig collects the knobs of the survival screen.
type SurvConfig struct {
	Covariates  []string
	MinGroup    int
	ScoreMethod string
}

func (cfg *SurvConfig) Check() error {
	if cfg.ScoreMethod != ScoreAvg && cfg.ScoreMethod != ScoreZ && cfg.ScoreMethod != ScoreGSEA {
		return fmt.Errorf("unknown scoring method %s", cfg.ScoreMethod)
	}
	if cfg.MinGroup < 2 {
		return fmt.Errorf("bad minimal group size %d", cfg.MinGroup)
	}
	return nil
}

//AlignSubjects intersects expression columns with clinical rows, warning
//when either side carries subjects the other does not.
func AlignSubjects(subjects []string, clin *ClinicalTable) (colIdx []int, clinIdx []int) {
	clinPos := make(map[string]int)
	for i, s := range clin.Subjects {
		clinPos[s] = i
	}
	colIdx = make([]int, 0)
	clinIdx = make([]int, 0)
	for c, s := range subjects {
		i, exist := clinPos[s]
		if !exist {
			continue
		}
		colIdx = append(colIdx, c)
		clinIdx = append(clinIdx, i)
	}
	nExprOnly := len(subjects) - len(colIdx)
	nClinOnly := len(clin.Subjects) - len(colIdx)
	if nExprOnly > 0 {
		log.Print("warning: ", nExprOnly, " subjects in the expression matrix have no clinical record.")
	}
	if nClinOnly > 0 {
		log.Print("warning: ", nClinOnly, " subjects in the clinical table have no expression column.")
	}
	return colIdx, clinIdx
}

//GroupKeys builds one partition key per aligned subject by joining its
//covariate values with underscores. With no covariates every subject
//falls into the single group "all".
func GroupKeys(clin *ClinicalTable, clinIdx []int, covariates []string) []string {
	keys := make([]string, len(clinIdx))
	if len(covariates) == 0 {
		for i := range keys {
			keys[i] = "all"
		}
		return keys
	}
	for i, ci := range clinIdx {
		parts := make([]string, 0)
		for _, cov := range covariates {
			parts = append(parts, clin.Covariates[cov][ci])
		}
		keys[i] = strings.Join(parts, "_")
	}
	return keys
}

//PartitionSubjects groups aligned subject positions by key and drops
//groups below minGroup, naming the dropped groups in the warning.
func PartitionSubjects(keys []string, minGroup int) (groups []string, groupIdx map[string][]int) {
	groupIdx = make(map[string][]int)
	for i, k := range keys {
		groupIdx[k] = append(groupIdx[k], i)
	}
	groups = make([]string, 0)
	dropped := make([]string, 0)
	for k, idx := range groupIdx {
		if len(idx) < minGroup {
			dropped = append(dropped, k)
			continue
		}
		groups = append(groups, k)
	}
	sort.Strings(groups)
	if len(dropped) > 0 {
		sort.Strings(dropped)
		for _, k := range dropped {
			delete(groupIdx, k)
		}
		log.Print("warning: dropped groups with fewer than ", minGroup, " subjects: ", strings.Join(dropped, ", "), ".")
	}
	return groups, groupIdx
}

//CoxFit fits a univariate Cox proportional hazards model by Newton
//iteration on the Breslow partial likelihood. It returns the log hazard
//ratio, its standard error and the Wald p value.
func CoxFit(x []float64, time []float64, event []float64) (beta float64, se float64, p float64, err error) {
	n := len(x)
	if n < 2 || len(time) != n || len(event) != n {
		return 0.0, 0.0, 1.0, fmt.Errorf("bad survival input sizes")
	}
	nEvent := 0
	for i := 0; i < n; i++ {
		if event[i] == 1.0 {
			nEvent++
		}
	}
	if nEvent == 0 {
		return 0.0, 0.0, 1.0, fmt.Errorf("no event in partition")
	}
	//walk times in decreasing order so the risk set only grows
	ord := make([]int, n)
	for i := 0; i < n; i++ {
		ord[i] = i
	}
	sort.Slice(ord, func(a, b int) bool {
		return time[ord[a]] > time[ord[b]]
	})

	beta = 0.0
	info := 0.0
	for iter := 0; iter < coxMaxIter; iter++ {
		s0 := 0.0
		s1 := 0.0
		s2 := 0.0
		u := 0.0
		info = 0.0
		i := 0
		for i < n {
			t := time[ord[i]]
			j := i
			for j < n && time[ord[j]] == t {
				w := math.Exp(beta * x[ord[j]])
				s0 += w
				s1 += w * x[ord[j]]
				s2 += w * x[ord[j]] * x[ord[j]]
				j++
			}
			for k := i; k < j; k++ {
				if event[ord[k]] == 1.0 {
					mean := s1 / s0
					u += x[ord[k]] - mean
					info += s2/s0 - mean*mean
				}
			}
			i = j
		}
		//also true for NaN after an exp overflow
		if !(info > 0.0) {
			return 0.0, 0.0, 1.0, fmt.Errorf("no information in survival fit")
		}
		delta := u / info
		beta += delta
		if math.Abs(beta) > coxBetaCap {
			log.Print("warning: survival fit diverged, log hazard ratio capped.")
			if beta > 0.0 {
				beta = coxBetaCap
			} else {
				beta = -coxBetaCap
			}
			break
		}
		if math.Abs(delta) < coxTol {
			break
		}
	}
	se = 1.0 / math.Sqrt(info)
	z := beta / se
	chi := distuv.ChiSquared{K: 1.0}
	p = chi.Survival(z * z)
	return beta, se, p, nil
}

//Concordance computes Harrell's C for a risk score against survival,
//crediting half for tied scores. Higher scores on earlier events count
//as concordant.
func Concordance(x []float64, time []float64, event []float64) float64 {
	conc := 0.0
	tied := 0.0
	total := 0.0
	n := len(x)
	for i := 0; i < n; i++ {
		if event[i] != 1.0 {
			continue
		}
		for j := 0; j < n; j++ {
			if time[j] > time[i] {
				total++
				if x[i] > x[j] {
					conc++
				} else if x[i] == x[j] {
					tied++
				}
			}
		}
	}
	if total == 0.0 {
		return 0.5
	}
	return (conc + 0.5*tied) / total
}

//SignifMark maps a p value onto the star notation, with "ns" above 0.05.
func SignifMark(p float64) string {
	switch {
	case p <= 0.0001:
		return "****"
	case p <= 0.001:
		return "***"
	case p <= 0.01:
		return "**"
	case p <= 0.05:
		return "*"
	}
	return "ns"
}

//SurvivalScreen partitions subjects by covariates, scores each partition
//against the gene sets over its own subjects and fits one Cox model per
//partition and gene set. Rows come back sorted by decreasing concordance.
func SurvivalScreen(data *mat.Dense, genes []string, subjects []string, clin *ClinicalTable, setNames []string, geneSets map[string][]string, cfg *SurvConfig) ([]CoxRow, error) {
	err := cfg.Check()
	if err != nil {
		return nil, err
	}
	colIdx, clinIdx := AlignSubjects(subjects, clin)
	if len(colIdx) == 0 {
		return nil, fmt.Errorf("no subject shared between expression and clinical tables")
	}
	sub := SubMatrix(data, nil, colIdx)
	keys := GroupKeys(clin, clinIdx, cfg.Covariates)
	groups, groupIdx := PartitionSubjects(keys, cfg.MinGroup)
	if len(groups) == 0 {
		return nil, fmt.Errorf("no group left after the minimal size filter")
	}

	rows := make([]CoxRow, 0)
	for _, group := range groups {
		idx := groupIdx[group]
		n := len(idx)
		label := fmt.Sprintf("%s (n=%d)", group, n)
		//scores see one group at a time, dropped groups never reach the
		//standardization or range statistics
		scores, err1 := ScoreGeneSets(SubMatrix(sub, nil, idx), genes, setNames, geneSets, cfg.ScoreMethod)
		if err1 != nil {
			return nil, err1
		}
		time := make([]float64, n)
		event := make([]float64, n)
		for i, k := range idx {
			time[i] = clin.Time[clinIdx[k]]
			event[i] = clin.Event[clinIdx[k]]
		}
		for s, setName := range setNames {
			x := make([]float64, n)
			for i := range idx {
				x[i] = scores.At(s, i)
			}
			beta, _, p, err2 := CoxFit(x, time, event)
			if err2 != nil {
				log.Print("warning: skip group ", group, " on set ", setName, ", ", err2, ".")
				continue
			}
			hr := math.Exp(beta)
			rows = append(rows, CoxRow{
				Group:       group,
				Label:       label,
				N:           n,
				GeneSet:     setName,
				Concordance: Concordance(x, time, event),
				HR:          hr,
				DisplayHR:   hr,
				P:           p,
				Signif:      SignifMark(p),
			})
		}
		log.Print("group ", group, " fitted on ", len(setNames), " gene sets.")
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Concordance > rows[j].Concordance
	})
	return rows, nil
}

//WriteCoxTable writes the screen result as tab delimited text, one row
//per partition and gene set in the sorted order.
func WriteCoxTable(outFile string, rows []CoxRow) (err error) {
	file, err := os.OpenFile(outFile, os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	defer file.Close()
	file.Truncate(0)
	file.Seek(0, 0)
	wr := bufio.NewWriterSize(file, 192000)
	wr.WriteString("group\tlabel\tn\tgeneSet\tconcordance\tHR\tpValue\tsignif\n")
	for _, row := range rows {
		wr.WriteString(row.Group)
		wr.WriteString("\t")
		wr.WriteString(row.Label)
		wr.WriteString("\t")
		wr.WriteString(strconv.Itoa(row.N))
		wr.WriteString("\t")
		wr.WriteString(row.GeneSet)
		wr.WriteString("\t")
		wr.WriteString(strconv.FormatFloat(row.Concordance, 'f', 6, 64))
		wr.WriteString("\t")
		wr.WriteString(strconv.FormatFloat(row.HR, 'f', 6, 64))
		wr.WriteString("\t")
		wr.WriteString(strconv.FormatFloat(row.P, 'e', 4, 64))
		wr.WriteString("\t")
		wr.WriteString(row.Signif)
		wr.WriteString("\n")
	}
	wr.Flush()
	return err
}
