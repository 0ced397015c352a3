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
)

// topgenesCmd represents the topgenes command
var topgenesCmd = &cobra.Command{
	Use:   "topgenes",
	Short: "top weighted genes per program as gene sets",
	Long: `
  _______ ____  _____
 |__   __/ __ \|  __ \
    | | | |  | | |__) |
    | | | |  | |  ___/
    | | | |__| | |
    |_|  \____/|_|

This command ranks genes by weight within each program of an exported
gene weight matrix and writes the top genes per program as a gmt file,
ready for the cox command.

 Sample usages:
 metaprog topgenes --i proj.P1.nfeat2000.rank4to9.w.txt --o top.gmt --n 50`,

	Run: func(cmd *cobra.Command, args []string) {
		if !cmd.Flags().Changed("i") || !cmd.Flags().Changed("o") {
			cmd.Help()
			os.Exit(0)
		}
		inFile, _ := cmd.Flags().GetString("i")
		outFile, _ := cmd.Flags().GetString("o")
		nTop, _ := cmd.Flags().GetInt("n")
		desc, _ := cmd.Flags().GetString("d")

		data, genes, programs, err := src.ReadFile(inFile, true, true)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		ps := &src.ProgramSet{
			Genes:        genes,
			ProgramNames: programs,
			W:            data,
		}
		topGenes := src.TopProgramGenes(ps, nTop)
		err = src.WriteGMT(outFile, programs, topGenes, desc)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(topgenesCmd)
	topgenesCmd.PersistentFlags().String("i", "", "program gene weight matrix with row and column IDs")
	topgenesCmd.PersistentFlags().String("o", "", "output gmt file")
	topgenesCmd.PersistentFlags().Int("n", 50, "top weighted genes per program")
	topgenesCmd.PersistentFlags().String("d", "metaprog", "description column in the gmt output")
}
