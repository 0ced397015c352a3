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
	"strings"

	"github.com/spf13/cobra"
	"github.com/szhan716/metaprog/src"
)

// coxCmd represents the cox command
var coxCmd = &cobra.Command{
	Use:   "cox",
	Short: "gene set survival screen with Cox proportional hazards",
	Long: `
   _____ ____  __   __
  / ____/ __ \ \ \ / /
 | |   | |  | | \ V /
 | |   | |  | |  > <
 | |___| |__| | / . \
  \_____\____/ /_/ \_\

This command scores a bulk expression cohort against gene sets, splits
the subjects by clinical covariates and fits one univariate Cox model
per group and gene set. The screen is written as a sorted table and
drawn as a dot grid, with color as hazard ratio, size as concordance
and stars as significance.

 1) The expression matrix is tab delimited with gene IDs in the first
    column and subject IDs in the header line.
 2) The clinical table is tab delimited with subject IDs in the first
    column and named time, event and covariate columns. Subjects missing
    from either table are dropped with a warning.
 3) Groups are all covariate value combinations, joined by underscores.
    Without covariates all subjects form the single group "all".

Sample usages:
  metaprog cox --i bulk.txt --cl clinical.txt --gmt programs.gmt --res resultCox
  metaprog cox --i bulk.txt --cl clinical.txt --gmt hallmark.gmt --cov stage,sex --score zscore`,

	Run: func(cmd *cobra.Command, args []string) {
		if !cmd.Flags().Changed("i") || !cmd.Flags().Changed("cl") || !cmd.Flags().Changed("gmt") {
			cmd.Help()
			os.Exit(0)
		}
		inFile, _ := cmd.Flags().GetString("i")
		clFile, _ := cmd.Flags().GetString("cl")
		gmtFile, _ := cmd.Flags().GetString("gmt")
		timeCol, _ := cmd.Flags().GetString("timeCol")
		eventCol, _ := cmd.Flags().GetString("eventCol")
		covList, _ := cmd.Flags().GetString("cov")
		minGroup, _ := cmd.Flags().GetInt("minGroup")
		scoreMethod, _ := cmd.Flags().GetString("score")
		resFolder, _ := cmd.Flags().GetString("res")
		plotFile, _ := cmd.Flags().GetString("plot")
		title, _ := cmd.Flags().GetString("title")
		hideNS, _ := cmd.Flags().GetBool("hideNS")

		//out dir and logging
		logFile := src.Init(resFolder)
		defer logFile.Close()
		log.SetOutput(logFile)
		log.Print("Program started.")

		//read data
		covariates := make([]string, 0)
		if covList != "" {
			covariates = strings.Split(covList, ",")
		}
		data, genes, subjects, err := src.ReadFile(inFile, true, true)
		if err != nil {
			log.Fatal(err)
		}
		clin, err := src.ReadClinical(clFile, timeCol, eventCol, covariates)
		if err != nil {
			log.Fatal(err)
		}
		setNames, geneSets, err := src.ReadGeneSets(gmtFile)
		if err != nil {
			log.Fatal(err)
		}
		log.Print("loaded ", len(subjects), " subjects, ", len(clin.Subjects), " clinical records and ", len(setNames), " gene sets.")

		cfg := &src.SurvConfig{
			Covariates:  covariates,
			MinGroup:    minGroup,
			ScoreMethod: scoreMethod,
		}
		rows, err := src.SurvivalScreen(data, genes, subjects, clin, setNames, geneSets, cfg)
		if err != nil {
			log.Fatal(err)
		}
		limit := src.HazardUpperLimit(rows)
		src.ClipHR(rows, limit)

		//result files
		oFile := "./" + resFolder + "/cox.table.txt"
		err = src.WriteCoxTable(oFile, rows)
		if err != nil {
			log.Fatal(err)
		}
		if plotFile != "" {
			err = src.RenderHeatmap(rows, limit, "./"+resFolder+"/"+plotFile, title, hideNS)
			if err != nil {
				log.Fatal(err)
			}
		}
		log.Print(len(rows), " models fitted, display hazard ratio capped at ", limit, ".")
		log.Print("Program finished.")
	},
}

func init() {
	rootCmd.AddCommand(coxCmd)

	coxCmd.PersistentFlags().String("i", "", "gene by subject expression matrix")
	coxCmd.PersistentFlags().String("cl", "", "clinical table with time/event columns")
	coxCmd.PersistentFlags().String("gmt", "", "gene sets in gmt format")
	coxCmd.PersistentFlags().String("timeCol", "time", "survival time column")
	coxCmd.PersistentFlags().String("eventCol", "status", "event indicator column, 0/1")
	coxCmd.PersistentFlags().String("cov", "", "comma separated covariate columns for grouping")
	coxCmd.PersistentFlags().Int("minGroup", 20, "minimal subjects per group")
	coxCmd.PersistentFlags().String("score", "ssgsea", "scoring method, ssgsea, zscore or average")
	coxCmd.PersistentFlags().String("res", "resultCox", "resultFolder")
	coxCmd.PersistentFlags().String("plot", "heatmap.png", "dot grid file name inside resultFolder, empty to skip")
	coxCmd.PersistentFlags().String("title", "", "dot grid title")
	coxCmd.PersistentFlags().Bool("hideNS", false, "hide the ns marks in the dot grid")
}
