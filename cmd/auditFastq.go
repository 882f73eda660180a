/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"

	"github.com/gmaffy/klp/report"
	"github.com/gmaffy/klp/step"
	"github.com/gmaffy/klp/utils"
	"github.com/spf13/cobra"
)

// auditFastqCmd represents the audit-fastq command
var auditFastqCmd = &cobra.Command{
	Use:   "audit-fastq",
	Short: "Records samples whose R1 FASTQ is missing or empty",
	Long: `Looks for <dir>/<project>/<sample>_S*_R1_*.fastq.gz for every sample of the
run and counts its reads. Samples without a file or without reads are
recorded as failed at --stage in failed_samples.tsv. A sample keeps the first
stage it failed at across audits.`,
	Run: func(cmd *cobra.Command, args []string) {
		dir, dErr := cmd.Flags().GetString("dir")
		if dErr != nil {
			log.Fatalf("Error getting dir flag: %v", dErr)
		}
		stage, sErr := cmd.Flags().GetString("stage")
		if sErr != nil {
			log.Fatalf("Error getting stage flag: %v", sErr)
		}
		summaryPath, rErr := cmd.Flags().GetString("report")
		if rErr != nil {
			log.Fatalf("Error getting report flag: %v", rErr)
		}

		r, _, err := newRun(cmd, step.MetagenomicType, loadSheet)
		if err != nil {
			log.Fatal(err)
		}
		defer r.close()

		if dir == "" {
			dir = filepath.Join(r.ctx.OutputPath, "ConvertJob")
		}
		ctx := context.Background()
		if err := r.ctx.Status.UpdateCurrentMessage(ctx, "Auditing "+stage+" output"); err != nil {
			r.logger.Warn("status update failed", "error", err)
		}

		var failed []string
		err = r.journal.Run(ctx, "audit:"+stage, func(ctx context.Context) error {
			var err error
			failed, err = r.ctx.AuditFastq(ctx, dir, stage)
			return err
		})
		if err != nil {
			log.Fatal(err)
		}
		for _, id := range failed {
			failedAt, _ := r.ctx.Ledger.Stage(id)
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", id, failedAt)
		}

		if summaryPath != "" {
			rows := r.ctx.Ledger.Finalize()
			err := utils.ReplaceFile(summaryPath, func(w io.Writer) error {
				return report.RenderSummary(w, nil, rows)
			})
			if err != nil {
				log.Fatalf("Failed to write summary: %v", err)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(auditFastqCmd)

	addSheetFlags(auditFastqCmd)
	addRunFlags(auditFastqCmd)
	auditFastqCmd.Flags().StringP("dir", "d", "", "directory holding <project>/ FASTQ folders (default <out>/ConvertJob)")
	auditFastqCmd.Flags().String("stage", "ConvertJob", "stage name recorded for failed samples")
	auditFastqCmd.Flags().StringP("report", "r", "", "write an HTML summary to this path")
}
