/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "klp",
	Short: "Sample reconciliation and prep-file rewriting for sequencing runs",
	Long: `Post-conversion tooling for Knight Lab sequencing runs:
1.	Reconcile run samples against the Qiita sample registry (tube-id aware)
2.	Rewrite prep files so sample names match registry aliases
3.	Lay out amplicon output as if QC had run
4.	Audit FASTQ output and keep the failed-samples report
`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

var cfgFile string
var logLevel string
var snapshotFile string

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&snapshotFile, "registry-snapshot", "", "use a registry snapshot file instead of the Qiita API")
}
