// Copyright © 2020 Sheng Zhan <szhan716@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package cmd

import (
	"log"
	"os"
	"sort"
	"strings"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/szhan716/metaprog/src"
)

// nmfCmd represents the nmf command
var nmfCmd = &cobra.Command{
	Use:   "nmf",
	Short: "per sample factorization into transcriptional programs",
	Long: `
  _   _ __  __ ______
 | \ | |  \/  |  ____|
 |  \| | \  / | |__
 | . ` + "`" + ` | |\/| |  __|
 | |\  | |  | | |
 |_| \_|_|  |_|_|

This command splits a gene by cell counts matrix into per sample (or per
cluster) blocks and factorizes each block over a range of ranks with non
negative matrix factorization. Sample labels come from a metadata table.

 1) The counts matrix is tab delimited with gene IDs in the first column
    and cell IDs in the header line.
 2) The metadata table is tab delimited with a header line. The labelCol
    column assigns each cell to its unit, cells with empty or NA labels
    are dropped. An empty cellCol picks the first column as cell IDs.
 3) One factorization per rank runs on each unit, all ranks reusing one
    seed, and the programs of all ranks are reported side by side.

Sample usages:
  metaprog nmf --i counts.txt --a meta.txt --labelCol sample --res resultNmf
  metaprog nmf --i counts.txt --a meta.txt --labelCol cluster --u c1,c4 --norm pearson`,

	Run: func(cmd *cobra.Command, args []string) {
		if !cmd.Flags().Changed("i") || !cmd.Flags().Changed("a") {
			cmd.Help()
			os.Exit(0)
		}
		inFile, _ := cmd.Flags().GetString("i")
		annFile, _ := cmd.Flags().GetString("a")
		cellCol, _ := cmd.Flags().GetString("cellCol")
		labelCol, _ := cmd.Flags().GetString("labelCol")
		unitList, _ := cmd.Flags().GetString("u")
		project, _ := cmd.Flags().GetString("proj")
		resFolder, _ := cmd.Flags().GetString("res")
		rankLo, _ := cmd.Flags().GetInt("rankLo")
		rankHi, _ := cmd.Flags().GetInt("rankHi")
		minCells, _ := cmd.Flags().GetInt("minCells")
		nFeat, _ := cmd.Flags().GetInt("nFeat")
		normMethod, _ := cmd.Flags().GetString("norm")
		objective, _ := cmd.Flags().GetString("obj")
		maxIter, _ := cmd.Flags().GetInt("maxIter")
		tol, _ := cmd.Flags().GetFloat64("tol")
		seed, _ := cmd.Flags().GetInt64("seed")
		rmMito, _ := cmd.Flags().GetBool("rmMito")
		rmRibo, _ := cmd.Flags().GetBool("rmRibo")
		rmHLA, _ := cmd.Flags().GetBool("rmHLA")
		threads, _ := cmd.Flags().GetInt("t")
		isExport, _ := cmd.Flags().GetBool("export")
		nTop, _ := cmd.Flags().GetInt("nTop")
		isProf, _ := cmd.Flags().GetBool("prof")

		//out dir and logging
		logFile := src.Init(resFolder)
		defer logFile.Close()
		log.SetOutput(logFile)
		log.Print("Program started.")
		if isProf {
			defer profile.Start(profile.MemProfile, profile.ProfilePath(resFolder)).Stop()
		}

		//read data
		data, genes, cellIDs, err := src.ReadFile(inFile, true, true)
		if err != nil {
			log.Fatal(err)
		}
		annCells, annLabels, err := src.ReadAnnotation(annFile, cellCol, labelCol)
		if err != nil {
			log.Fatal(err)
		}
		log.Print("loaded ", len(genes), " genes and ", len(cellIDs), " cells.")

		units := make([]string, 0)
		if unitList != "" {
			units = strings.Split(unitList, ",")
		}
		cfg := &src.DecompConfig{
			Project:      project,
			Units:        units,
			RankLo:       rankLo,
			RankHi:       rankHi,
			MinCells:     minCells,
			NTopFeatures: nFeat,
			NormMethod:   normMethod,
			Objective:    objective,
			MaxIter:      maxIter,
			Tol:          tol,
			Seed:         seed,
			DropMito:     rmMito,
			DropRibo:     rmRibo,
			DropHLA:      rmHLA,
			Threads:      threads,
		}
		var exporter src.Exporter
		if isExport {
			exporter = &src.DirExporter{
				Dir:    resFolder,
				Prefix: project,
				NFeat:  nFeat,
				RankLo: rankLo,
				RankHi: rankHi,
			}
		}
		programSets, err := src.DecomposeSamples(data, genes, cellIDs, annCells, annLabels, cfg, exporter)
		if err != nil {
			log.Fatal(err)
		}
		if len(programSets) == 0 {
			log.Print("no unit factorized.\nexit...")
			os.Exit(0)
		}

		//top weighted genes of every program, in gmt form for the cox command
		doneUnits := make([]string, 0)
		for unit := range programSets {
			doneUnits = append(doneUnits, unit)
		}
		sort.Strings(doneUnits)
		setNames := make([]string, 0)
		geneSets := make(map[string][]string)
		for _, unit := range doneUnits {
			topGenes := src.TopProgramGenes(programSets[unit], nTop)
			for _, name := range programSets[unit].ProgramNames {
				setNames = append(setNames, name)
				geneSets[name] = topGenes[name]
			}
		}
		err = src.WriteGMT("./"+resFolder+"/programs.gmt", setNames, geneSets, project)
		if err != nil {
			log.Fatal(err)
		}
		log.Print(len(doneUnits), " units factorized into ", len(setNames), " programs.")
		log.Print("Program finished.")
	},
}

func init() {
	rootCmd.AddCommand(nmfCmd)

	nmfCmd.PersistentFlags().String("i", "", "gene by cell counts matrix")
	nmfCmd.PersistentFlags().String("a", "", "per cell metadata table")
	nmfCmd.PersistentFlags().String("cellCol", "", "cell ID column in metadata, first column as default")
	nmfCmd.PersistentFlags().String("labelCol", "sample", "unit label column in metadata")
	nmfCmd.PersistentFlags().String("u", "", "comma separated unit labels, all observed as default")
	nmfCmd.PersistentFlags().String("proj", "proj", "project name used in program IDs")
	nmfCmd.PersistentFlags().String("res", "resultNmf", "resultFolder")
	nmfCmd.PersistentFlags().Int("rankLo", 4, "lowest factorization rank")
	nmfCmd.PersistentFlags().Int("rankHi", 9, "highest factorization rank")
	nmfCmd.PersistentFlags().Int("minCells", 100, "minimal cells per unit")
	nmfCmd.PersistentFlags().Int("nFeat", 2000, "number of variable genes per unit")
	nmfCmd.PersistentFlags().String("norm", "lognorm", "normalization method, lognorm or pearson")
	nmfCmd.PersistentFlags().String("obj", "frobenius", "factorization objective, frobenius or kl")
	nmfCmd.PersistentFlags().Int("maxIter", 200, "iteration cap per factorization")
	nmfCmd.PersistentFlags().Float64("tol", 0.0001, "relative objective decay for early stop")
	nmfCmd.PersistentFlags().Int64("seed", 1, "random seed shared by all ranks")
	nmfCmd.PersistentFlags().Bool("rmMito", true, "remove MT- mitochondrial genes")
	nmfCmd.PersistentFlags().Bool("rmRibo", true, "remove RPL/RPS ribosomal genes")
	nmfCmd.PersistentFlags().Bool("rmHLA", false, "remove HLA- genes")
	nmfCmd.PersistentFlags().Int("t", 8, "number of threads")
	nmfCmd.PersistentFlags().Bool("export", true, "write per unit factor matrices")
	nmfCmd.PersistentFlags().Int("nTop", 50, "top weighted genes per program in the gmt output")
	nmfCmd.Flags().Bool("prof", false, "write memory profile into the result folder")
}
