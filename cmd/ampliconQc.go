/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/gmaffy/klp/samplesheet"
	"github.com/gmaffy/klp/step"
	"github.com/spf13/cobra"
)

// ampliconQcCmd represents the amplicon-qc command
var ampliconQcCmd = &cobra.Command{
	Use:   "amplicon-qc",
	Short: "Lays out converted amplicon FASTQ files as QC output",
	Long: `Amplicon runs are quality controlled downstream by Qiita. This command
copies the converted FASTQ files (Undetermined excluded) into:

1. QCJob/<project>/amplicon
2. ConvertJob/<project>

then writes the archive commands to cmds.log. Stages completed by an earlier
invocation are skipped.`,
	Run: func(cmd *cobra.Command, args []string) {
		execute, eErr := cmd.Flags().GetBool("execute")
		if eErr != nil {
			log.Fatalf("Error getting execute flag: %v", eErr)
		}

		r, sheet, err := newRun(cmd, step.AmpliconType, func(c *cobra.Command) (*samplesheet.Sheet, error) {
			path, err := c.Flags().GetString("mapping-file")
			if err != nil {
				return nil, err
			}
			return samplesheet.ReadMappingFile(path)
		})
		if err != nil {
			log.Fatal(err)
		}
		defer r.close()

		s, err := step.NewStep(step.AmpliconType, r.ctx, sheet.ProjectNames())
		if err != nil {
			log.Fatal(err)
		}
		ctx := context.Background()
		if err := r.journal.Run(ctx, "QCJob", s.QualityControl); err != nil {
			log.Fatal(err)
		}

		s.GenerateCommands()
		if err := s.WriteCommands(); err != nil {
			log.Fatalf("Failed to write commands: %v", err)
		}
		if execute {
			if err := r.journal.Run(ctx, "Archive", s.ExecuteCommands); err != nil {
				log.Fatal(err)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "amplicon QC laid out for %d projects\n", len(s.Projects))
	},
}

func init() {
	rootCmd.AddCommand(ampliconQcCmd)

	addRunFlags(ampliconQcCmd)
	ampliconQcCmd.Flags().StringP("mapping-file", "m", "", "amplicon mapping file")
	ampliconQcCmd.Flags().Bool("execute", false, "run the archive commands after writing them")
	ampliconQcCmd.MarkFlagRequired("mapping-file")
}
