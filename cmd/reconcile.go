/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/gmaffy/klp/reconcile"
	"github.com/gmaffy/klp/report"
	"github.com/gmaffy/klp/utils"
	"github.com/spf13/cobra"
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Compares the samples of a run with the samples registered in Qiita",
	Long: `For every project of the run:

1. fetch the registered samples and, when the project declares it, the tube_id alias table
2. map local sample names to aliases (leading zeros stripped, BLANKs left alone)
3. list the local samples Qiita does not know under any name

With --strict the command fails when any sample is missing from Qiita.`,
	Run: func(cmd *cobra.Command, args []string) {
		outDir, oErr := cmd.Flags().GetString("out")
		if oErr != nil {
			log.Fatalf("Error getting out flag: %v", oErr)
		}
		summaryPath, rErr := cmd.Flags().GetString("report")
		if rErr != nil {
			log.Fatalf("Error getting report flag: %v", rErr)
		}
		strict, sErr := cmd.Flags().GetBool("strict")
		if sErr != nil {
			log.Fatalf("Error getting strict flag: %v", sErr)
		}

		cfg, err := loadConfig()
		if err != nil {
			log.Fatal(err)
		}
		logger, closeLog, err := newLogger(outDir)
		if err != nil {
			log.Fatal(err)
		}
		defer closeLog()

		sheet, err := loadSheet(cmd)
		if err != nil {
			log.Fatalf("Failed to read run samples: %v", err)
		}
		client, err := openRegistry(cfg, logger)
		if err != nil {
			log.Fatal(err)
		}

		results, err := newEngine(cfg, client, logger).Compare(context.Background(), registryProjects(sheet), sheet.ByProject())
		if err != nil {
			log.Fatalf("Reconciliation failed: %v", err)
		}
		printResults(cmd.OutOrStdout(), results)

		if summaryPath != "" {
			err := utils.ReplaceFile(summaryPath, func(w io.Writer) error {
				return report.RenderSummary(w, results, nil)
			})
			if err != nil {
				log.Fatalf("Failed to write summary: %v", err)
			}
		}

		if strict {
			if msg := missingSamplesMessage(results); msg != "" {
				log.Fatal(msg)
			}
		}
	},
}

func printResults(w io.Writer, results []reconcile.Result) {
	for _, r := range results {
		fmt.Fprintf(w, "%s (%s): %d local, %d in Qiita, tube_id aliases: %v\n",
			r.Project, r.RegistryID, r.LocalSampleCount, r.RegistrySampleCount, r.UsesAliases)
		if r.UsesAliases {
			fmt.Fprintf(w, "  aliased: %d\n", r.AliasedSampleCount)
		}
		if len(r.SamplesNotInRegistry) > 0 {
			fmt.Fprintf(w, "  not in Qiita: %s\n", strings.Join(r.SamplesNotInRegistry, ", "))
		}
		if len(r.ExamplesInRegistry) > 0 {
			fmt.Fprintf(w, "  e.g. in Qiita: %s\n", strings.Join(r.ExamplesInRegistry, ", "))
		}
	}
}

// missingSamplesMessage returns "" when every sample is registered.
func missingSamplesMessage(results []reconcile.Result) string {
	var b strings.Builder
	for _, r := range results {
		if len(r.SamplesNotInRegistry) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s: the following samples are not in Qiita: %s.", r.Project, strings.Join(r.SamplesNotInRegistry, ", "))
		if len(r.ExamplesInRegistry) > 0 {
			fmt.Fprintf(&b, " Some samples from Qiita: %s.", strings.Join(r.ExamplesInRegistry, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	addSheetFlags(reconcileCmd)
	reconcileCmd.Flags().StringP("out", "o", "", "output directory for klp.log")
	reconcileCmd.Flags().StringP("report", "r", "", "write an HTML summary to this path")
	reconcileCmd.Flags().Bool("strict", false, "fail when any sample is not in Qiita")
}
