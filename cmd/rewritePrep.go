/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/gmaffy/klp/prep"
	"github.com/gmaffy/klp/reconcile"
	"github.com/spf13/cobra"
)

// rewritePrepCmd represents the rewrite-prep command
var rewritePrepCmd = &cobra.Command{
	Use:   "rewrite-prep",
	Short: "Renames prep-file samples to their Qiita tube_id aliases",
	Long: `Reconciles the run against Qiita, then rewrites every prep file in place:

- the original sample_name column is kept as old_sample_name
- for projects that use tube_id aliases, sample_name is replaced by the alias
- BLANK samples are never renamed

Each prep file is matched to a project by the project name in its path.
A prep file that was already rewritten is rejected.`,
	Run: func(cmd *cobra.Command, args []string) {
		prepFiles, pErr := cmd.Flags().GetStringSlice("prep")
		if pErr != nil {
			log.Fatalf("Error getting prep flag: %v", pErr)
		}
		prepDir, dErr := cmd.Flags().GetString("prep-dir")
		if dErr != nil {
			log.Fatalf("Error getting prep-dir flag: %v", dErr)
		}
		outDir, oErr := cmd.Flags().GetString("out")
		if oErr != nil {
			log.Fatalf("Error getting out flag: %v", oErr)
		}

		if prepDir != "" {
			found, err := filepath.Glob(filepath.Join(prepDir, "*.tsv"))
			if err != nil {
				log.Fatal(err)
			}
			prepFiles = append(prepFiles, found...)
		}
		if len(prepFiles) == 0 {
			log.Fatal("You must provide at least one prep file")
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
		files, err := prep.MatchPrepFiles(prepFiles, sheet.ProjectNames())
		if err != nil {
			log.Fatalf("Failed to match prep files to projects: %v", err)
		}

		client, err := openRegistry(cfg, logger)
		if err != nil {
			log.Fatal(err)
		}
		results, err := newEngine(cfg, client, logger).Compare(context.Background(), registryProjects(sheet), sheet.ByProject())
		if err != nil {
			log.Fatalf("Reconciliation failed: %v", err)
		}

		rewriter := &prep.Rewriter{Logger: logger}
		if err := rewriter.Rewrite(files, reconcile.Lookups(results)); err != nil {
			log.Fatalf("Failed to rewrite prep files: %v", err)
		}
		for _, f := range files {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", f.Project, f.Path)
		}
	},
}

func init() {
	rootCmd.AddCommand(rewritePrepCmd)

	addSheetFlags(rewritePrepCmd)
	rewritePrepCmd.Flags().StringSliceP("prep", "p", []string{}, "prep file to rewrite")
	rewritePrepCmd.Flags().StringP("prep-dir", "d", "", "rewrite every *.tsv prep file in this directory")
	rewritePrepCmd.Flags().StringP("out", "o", "", "output directory for klp.log")
}
