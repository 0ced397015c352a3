package src

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

func Shift(pToSlice *[]string) string {
	sValue := (*pToSlice)[0]
	*pToSlice = (*pToSlice)[1:len(*pToSlice)]
	return sValue
}

//line count(nRow) and column count(nCol) for a tab separeted txt
func lcCount(filename string) (lc int, cc int, err error) {
	lc = 0
	cc = 0
	touch := true

	file, err := os.Open(filename)
	if err != nil {
		return
	}
	defer file.Close()

	//load
	br := bufio.NewReaderSize(file, 32768000)
	for {
		line, isPrefix, err1 := br.ReadLine()
		if err1 != nil {
			break
		}
		if isPrefix {
			return lc, cc, fmt.Errorf("line too long in %s", filename)
		}

		if touch {
			cc = strings.Count(string(line), "\t")
			cc += 1
			touch = false
		}
		lc++
	}
	return lc, cc, nil
}

func ReadFile(inFile string, rowName bool, colName bool) (dataR *mat.Dense, rName []string, cName []string, err error) {
	//init
	lc, cc, err := lcCount(inFile)
	if err != nil {
		return nil, nil, nil, err
	}
	if rowName {
		cc -= 1
	}
	if colName {
		lc -= 1
	}
	if lc <= 0 || cc <= 0 {
		return nil, nil, nil, fmt.Errorf("empty matrix in %s", inFile)
	}
	data := mat.NewDense(lc, cc, nil)
	rName = make([]string, 0)
	cName = make([]string, 0)

	//file
	file, err := os.Open(inFile)
	if err != nil {
		return
	}
	defer file.Close()

	//load
	br := bufio.NewReaderSize(file, 32768000)
	r := 0
	touchCol := false
	for {
		line, isPrefix, err1 := br.ReadLine()
		if err1 != nil {
			break
		}
		if isPrefix {
			return nil, nil, nil, fmt.Errorf("line too long in %s", inFile)
		}

		str := string(line)
		elements := strings.Split(str, "\t")
		if rowName {
			value := Shift(&elements)
			rName = append(rName, value)
		}
		//first element already shifted if rowName is true
		if colName && !touchCol {
			cName = elements
			touchCol = true
		} else {
			for c, i := range elements {
				j, _ := strconv.ParseFloat(i, 64)
				data.Set(r, c, j)
			}
			r++
		}
	}
	//shfit first rowName away if colName exist
	if colName && rowName {
		Shift(&rName)
	}
	return data, rName, cName, nil
}

func WriteFile(outFile string, data *mat.Dense, name []string, isRowID bool) (err error) {
	file, err := os.OpenFile(outFile, os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer file.Close()
	file.Truncate(0)
	file.Seek(0, 0)
	wr := bufio.NewWriterSize(file, 192000)
	nRow, nCol := data.Caps()
	var ele string
	for i := 0; i < nRow; i++ {
		if isRowID {
			wr.WriteString(name[i])
			wr.WriteString("\t")
		}
		ele = strconv.FormatFloat(data.At(i, 0), 'f', 6, 64)
		wr.WriteString(ele)
		for j := 1; j < nCol; j++ {
			ele = strconv.FormatFloat(data.At(i, j), 'f', 6, 64)
			wr.WriteString("\t")
			wr.WriteString(ele)
		}
		wr.WriteString("\n")
	}
	wr.Flush()
	return err
}

//WriteLabeledFile writes a matrix with both row and column IDs, so that the
//header line starts with an empty cell above the row ID column.
func WriteLabeledFile(outFile string, data *mat.Dense, rowName []string, colName []string) (err error) {
	file, err := os.OpenFile(outFile, os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer file.Close()
	file.Truncate(0)
	file.Seek(0, 0)
	wr := bufio.NewWriterSize(file, 192000)
	for j := 0; j < len(colName); j++ {
		wr.WriteString("\t")
		wr.WriteString(colName[j])
	}
	wr.WriteString("\n")
	nRow, nCol := data.Caps()
	var ele string
	for i := 0; i < nRow; i++ {
		wr.WriteString(rowName[i])
		for j := 0; j < nCol; j++ {
			ele = strconv.FormatFloat(data.At(i, j), 'f', 6, 64)
			wr.WriteString("\t")
			wr.WriteString(ele)
		}
		wr.WriteString("\n")
	}
	wr.Flush()
	return err
}

//ReadGeneSets loads gene sets from a gmt file, one set per line as set
//name, description and then member gene IDs. File order is preserved.
func ReadGeneSets(inFile string) (setNames []string, geneSets map[string][]string, err error) {
	setNames = make([]string, 0)
	geneSets = make(map[string][]string)

	file, err := os.Open(inFile)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	br := bufio.NewReaderSize(file, 32768000)
	for {
		line, isPrefix, err1 := br.ReadLine()
		if err1 != nil {
			break
		}
		if isPrefix {
			return nil, nil, fmt.Errorf("line too long in %s", inFile)
		}
		str := string(line)
		if str == "" {
			continue
		}
		elements := strings.Split(str, "\t")
		if len(elements) < 3 {
			return nil, nil, fmt.Errorf("gene set line with fewer than 3 fields in %s", inFile)
		}
		name := Shift(&elements)
		//drop the description field
		Shift(&elements)
		genes := make([]string, 0)
		for _, g := range elements {
			if g != "" {
				genes = append(genes, g)
			}
		}
		setNames = append(setNames, name)
		geneSets[name] = genes
	}
	return setNames, geneSets, nil
}

//WriteGMT writes gene sets as a gmt file in the given set order, with
//desc filling the description column.
func WriteGMT(outFile string, setNames []string, geneSets map[string][]string, desc string) (err error) {
	file, err := os.OpenFile(outFile, os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	defer file.Close()
	file.Truncate(0)
	file.Seek(0, 0)
	wr := bufio.NewWriterSize(file, 192000)
	for _, name := range setNames {
		wr.WriteString(name)
		wr.WriteString("\t")
		wr.WriteString(desc)
		for _, g := range geneSets[name] {
			wr.WriteString("\t")
			wr.WriteString(g)
		}
		wr.WriteString("\n")
	}
	wr.Flush()
	return err
}

//ReadAnnotation loads a per cell metadata table and returns cell IDs with
//their label values. Empty cellCol selects the first column as cell IDs.
func ReadAnnotation(inFile string, cellCol string, labelCol string) (cells []string, labels []string, err error) {
	file, err := os.Open(inFile)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	cells = make([]string, 0)
	labels = make([]string, 0)
	cellIdx := 0
	labelIdx := -1
	touch := false
	br := bufio.NewReaderSize(file, 32768000)
	for {
		line, isPrefix, err1 := br.ReadLine()
		if err1 != nil {
			break
		}
		if isPrefix {
			return nil, nil, fmt.Errorf("line too long in %s", inFile)
		}
		elements := strings.Split(string(line), "\t")
		if !touch {
			touch = true
			for c, id := range elements {
				if cellCol != "" && id == cellCol {
					cellIdx = c
				}
				if id == labelCol {
					labelIdx = c
				}
			}
			if labelIdx < 0 {
				return nil, nil, fmt.Errorf("label column %s not found in %s", labelCol, inFile)
			}
			continue
		}
		if len(elements) <= labelIdx || len(elements) <= cellIdx {
			return nil, nil, fmt.Errorf("short metadata line in %s", inFile)
		}
		cells = append(cells, elements[cellIdx])
		labels = append(labels, elements[labelIdx])
	}
	return cells, labels, nil
}

//ReadClinical loads a clinical table with subject IDs in the first column.
//timeCol and eventCol name the survival time and event indicator columns,
//covariate columns are kept as raw strings. Rows with missing or unparsable
//time/event values are dropped with a warning.
func ReadClinical(inFile string, timeCol string, eventCol string, covariates []string) (clin *ClinicalTable, err error) {
	file, err := os.Open(inFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	clin = &ClinicalTable{
		Subjects:   make([]string, 0),
		Time:       make([]float64, 0),
		Event:      make([]float64, 0),
		Covariates: make(map[string][]string),
	}
	for _, cov := range covariates {
		clin.Covariates[cov] = make([]string, 0)
	}

	timeIdx := -1
	eventIdx := -1
	covIdx := make(map[string]int)
	touch := false
	nDropped := 0
	br := bufio.NewReaderSize(file, 32768000)
	for {
		line, isPrefix, err1 := br.ReadLine()
		if err1 != nil {
			break
		}
		if isPrefix {
			return nil, fmt.Errorf("line too long in %s", inFile)
		}
		elements := strings.Split(string(line), "\t")
		if !touch {
			touch = true
			for c, id := range elements {
				if id == timeCol {
					timeIdx = c
				}
				if id == eventCol {
					eventIdx = c
				}
				for _, cov := range covariates {
					if id == cov {
						covIdx[cov] = c
					}
				}
			}
			if timeIdx < 0 {
				return nil, fmt.Errorf("time column %s not found in %s", timeCol, inFile)
			}
			if eventIdx < 0 {
				return nil, fmt.Errorf("event column %s not found in %s", eventCol, inFile)
			}
			for _, cov := range covariates {
				_, exist := covIdx[cov]
				if !exist {
					return nil, fmt.Errorf("covariate column %s not found in %s", cov, inFile)
				}
			}
			continue
		}
		if len(elements) <= timeIdx || len(elements) <= eventIdx {
			nDropped++
			continue
		}
		t, errT := strconv.ParseFloat(elements[timeIdx], 64)
		e, errE := strconv.ParseFloat(elements[eventIdx], 64)
		if errT != nil || errE != nil {
			nDropped++
			continue
		}
		if e != 0.0 && e != 1.0 {
			return nil, fmt.Errorf("event indicator not 0/1 for subject %s in %s", elements[0], inFile)
		}
		clin.Subjects = append(clin.Subjects, elements[0])
		clin.Time = append(clin.Time, t)
		clin.Event = append(clin.Event, e)
		for _, cov := range covariates {
			clin.Covariates[cov] = append(clin.Covariates[cov], elements[covIdx[cov]])
		}
	}
	if nDropped > 0 {
		log.Print("warning: dropped ", nDropped, " clinical rows with missing time/event values.")
	}
	return clin, nil
}

func Init(resFolder string) (logFIle *os.File) {
	err := os.MkdirAll("./"+resFolder, 0755)
	if err != nil {
		fmt.Println(err)
		return
	}
	logFile, err := os.OpenFile("./"+resFolder+"/log.txt", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		log.Fatal(err)
	}
	return logFile
}
