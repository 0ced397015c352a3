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
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/szhan716/metaprog/src"
	"gonum.org/v1/gonum/mat"
)

// corrCmd represents the corr command
var corrCmd = &cobra.Command{
	Use:   "corr",
	Short: "fast pairwise Pearson correlation calculation",
	Long: `
   _____ ____  _____  _____
  / ____/ __ \|  __ \|  __ \
 | |   | |  | | |__) | |__) |
 | |   | |  | |  _  /|  _  /
 | |___| |__| | | \ \| | \ \
  \_____\____/|_|  \_\_|  \_\

This command calculates pairwise Pearson correlation between the rows
of a labeled tab delimited matrix, such as the program usage rows of an
exported h matrix, where programs recovered again at neighboring ranks
show up as blocks of high correlation.

 Sample usages:
 metaprog corr --i proj.P1.nfeat2000.rank4to9.h.txt --o P1.sim.txt --t 4
 metaprog corr --i bulk.txt --o subject.sim.txt --c`,

	Run: func(cmd *cobra.Command, args []string) {
		if !cmd.Flags().Changed("i") || !cmd.Flags().Changed("o") {
			cmd.Help()
			os.Exit(0)
		}
		inFile, _ := cmd.Flags().GetString("i")
		outFile, _ := cmd.Flags().GetString("o")
		threads, _ := cmd.Flags().GetInt("t")
		isColumn, _ := cmd.Flags().GetBool("c")

		data, name, colName, err := src.ReadFile(inFile, true, true)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		if isColumn {
			data = mat.DenseCopyOf(data.T())
			name = colName
		}
		covmat, err := src.ParaCov(data, threads)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		err = src.WriteLabeledFile(outFile, covmat, name, name)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(corrCmd)
	corrCmd.PersistentFlags().String("i", "", "input tab delimited matrix with row and column IDs")
	corrCmd.PersistentFlags().String("o", "", "output tab delimited correlation matrix")
	corrCmd.PersistentFlags().Int("t", 1, "number of threads")
	corrCmd.PersistentFlags().Bool("c", false, "column pairs calculation (rowwise as default)")
}
