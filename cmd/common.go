/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gmaffy/klp/config"
	"github.com/gmaffy/klp/ledger"
	"github.com/gmaffy/klp/reconcile"
	"github.com/gmaffy/klp/registry"
	"github.com/gmaffy/klp/samplesheet"
	"github.com/gmaffy/klp/step"
	slogmulti "github.com/samber/slog-multi"
	"github.com/spf13/cobra"
)

const (
	logFileName     = "klp.log"
	journalFileName = "klp.journal"
)

func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// newLogger logs JSON to <outDir>/klp.log and text to stderr. The returned
// func closes the log file.
func newLogger(outDir string) (*slog.Logger, func(), error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	stderr := slog.NewTextHandler(os.Stderr, handlerOpts)
	if outDir == "" {
		return slog.New(stderr), func() {}, nil
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, nil, err
	}
	logFile, err := os.OpenFile(filepath.Join(outDir, logFileName), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	jsonHandler := slog.NewJSONHandler(logFile, &slog.HandlerOptions{AddSource: true, Level: level})
	logger := slog.New(slogmulti.Fanout(jsonHandler, stderr))
	return logger, func() { logFile.Close() }, nil
}

type registryAdapter interface {
	registry.Client
	registry.JobStatusUpdater
}

// openRegistry prefers the --registry-snapshot flag, then the configured
// snapshot, then the Qiita API.
func openRegistry(cfg *config.Config, logger *slog.Logger) (registryAdapter, error) {
	snapshot := snapshotFile
	if snapshot == "" {
		snapshot = cfg.Registry.Snapshot
	}
	if snapshot != "" {
		logger.Info("using registry snapshot", "path", snapshot)
		snap, err := registry.LoadSnapshot(snapshot)
		if err != nil {
			return nil, err
		}
		return snap, nil
	}
	if cfg.Registry.BaseURL == "" {
		return nil, errors.New("no registry configured: set registry.base_url, QIITA_URL or --registry-snapshot")
	}
	client, err := registry.NewHTTPClient(cfg.HTTPConfig(), logger)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func newEngine(cfg *config.Config, client registry.Client, logger *slog.Logger) *reconcile.Engine {
	engine := reconcile.NewEngine(client, logger)
	engine.Resolver.Category = cfg.Reconcile.AliasCategory
	engine.ExampleCap = cfg.Reconcile.ExampleCap
	engine.Seed = cfg.Reconcile.Seed
	return engine
}

// addSheetFlags registers the two ways of describing the run's samples.
func addSheetFlags(c *cobra.Command) {
	c.Flags().StringP("sample-sheet", "s", "", "Illumina sample sheet")
	c.Flags().StringP("mapping-file", "m", "", "amplicon mapping file")
	c.MarkFlagsMutuallyExclusive("sample-sheet", "mapping-file")
	c.MarkFlagsOneRequired("sample-sheet", "mapping-file")
}

func loadSheet(c *cobra.Command) (*samplesheet.Sheet, error) {
	sheetPath, err := c.Flags().GetString("sample-sheet")
	if err != nil {
		return nil, err
	}
	if sheetPath != "" {
		return samplesheet.ReadSampleSheet(sheetPath)
	}
	mappingPath, err := c.Flags().GetString("mapping-file")
	if err != nil {
		return nil, err
	}
	return samplesheet.ReadMappingFile(mappingPath)
}

func registryProjects(sheet *samplesheet.Sheet) []reconcile.Project {
	projects := make([]reconcile.Project, len(sheet.Projects))
	for i, p := range sheet.Projects {
		projects[i] = reconcile.Project{Name: p.Name, RegistryID: p.QiitaID}
	}
	return projects
}

func ledgerSamples(sheet *samplesheet.Sheet) []ledger.Sample {
	samples := make([]ledger.Sample, len(sheet.Samples))
	for i, s := range sheet.Samples {
		samples[i] = ledger.Sample{ID: s.ID, Project: s.Project}
	}
	return samples
}

// statusUpdater returns the configured registry for job status updates, or
// nil when none is configured.
func statusUpdater(cfg *config.Config, logger *slog.Logger) registry.JobStatusUpdater {
	if snapshotFile == "" && cfg.Registry.Snapshot == "" && cfg.Registry.BaseURL == "" {
		return nil
	}
	adapter, err := openRegistry(cfg, logger)
	if err != nil {
		logger.Warn("job status updates disabled", "error", err)
		return nil
	}
	return adapter
}

type run struct {
	ctx     *step.RunContext
	journal *step.Journal
	logger  *slog.Logger
	close   func()
}

// newRun sets up logging, the failure ledger, the run context and the stage
// journal in outDir.
func newRun(c *cobra.Command, defaultType string, sheet func(*cobra.Command) (*samplesheet.Sheet, error)) (*run, *samplesheet.Sheet, error) {
	outDir, err := c.Flags().GetString("out")
	if err != nil {
		return nil, nil, err
	}
	jobID, err := c.Flags().GetString("job-id")
	if err != nil {
		return nil, nil, err
	}
	if outDir == "" {
		return nil, nil, errors.New("--out is required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	pipelineType := cfg.Pipeline.Type
	if pipelineType == "" {
		pipelineType = defaultType
	}

	logger, closeLog, err := newLogger(outDir)
	if err != nil {
		return nil, nil, err
	}
	fail := func(err error) (*run, *samplesheet.Sheet, error) {
		closeLog()
		return nil, nil, err
	}

	s, err := sheet(c)
	if err != nil {
		return fail(fmt.Errorf("failed to read run samples: %w", err))
	}
	l, err := ledger.New(ledgerSamples(s), logger)
	if err != nil {
		return fail(err)
	}
	previous, err := ledger.ReadReport(filepath.Join(outDir, step.FailedSamplesFile))
	if err != nil {
		return fail(err)
	}
	l.Restore(previous)
	status := step.NewStatus(statusUpdater(cfg, logger), jobID, logger)
	rc, err := step.NewRunContext(jobID, pipelineType, outDir, l, status, logger)
	if err != nil {
		return fail(err)
	}
	rc.Workers = cfg.Pipeline.JobPoolSize

	journal, err := step.OpenJournal(filepath.Join(outDir, journalFileName))
	if err != nil {
		return fail(err)
	}
	return &run{
		ctx:     rc,
		journal: journal,
		logger:  logger,
		close: func() {
			journal.Close()
			closeLog()
		},
	}, s, nil
}

func addRunFlags(c *cobra.Command) {
	c.Flags().StringP("out", "o", "", "run output directory")
	c.Flags().StringP("job-id", "j", "", "Qiita job id (UUID)")
	c.MarkFlagRequired("out")
	c.MarkFlagRequired("job-id")
}
