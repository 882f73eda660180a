// Package step drives the post-conversion stages of a sequencing run: faked
// amplicon QC, FASTQ audits, the failure ledger, job status updates and the
// archive commands run at the end.
package step

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/gmaffy/klp/ledger"
	"github.com/gmaffy/klp/registry"
	"github.com/google/uuid"
)

// Pipeline types.
const (
	AmpliconType           = "amplicon"
	MetagenomicType        = "metagenomic"
	MetatranscriptomicType = "metatranscriptomic"
)

// FailedSamplesFile is the name of the failure report in the output path.
const FailedSamplesFile = "failed_samples.tsv"

var (
	ErrInvalidJobID        = errors.New("invalid job id")
	ErrUnknownPipelineType = errors.New("unknown pipeline type")
)

// ValidPipelineType reports whether t names a supported pipeline.
func ValidPipelineType(t string) bool {
	switch t {
	case AmpliconType, MetagenomicType, MetatranscriptomicType:
		return true
	}
	return false
}

// RunContext is the state shared by the stages of one run.
type RunContext struct {
	JobID        string
	PipelineType string
	OutputPath   string
	Ledger       *ledger.Ledger
	Status       *Status
	Logger       *slog.Logger
	// Workers bounds concurrent file work. Zero means one per CPU.
	Workers int

	mu   sync.Mutex
	cmds []string
}

// NewRunContext validates the job id and pipeline type. A nil status reports
// to the log only.
func NewRunContext(jobID, pipelineType, outputPath string, l *ledger.Ledger, status *Status, logger *slog.Logger) (*RunContext, error) {
	if _, err := uuid.Parse(jobID); err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidJobID, jobID, err)
	}
	if !ValidPipelineType(pipelineType) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPipelineType, pipelineType)
	}
	if outputPath == "" {
		return nil, errors.New("output path is required")
	}
	if l == nil {
		return nil, errors.New("failure ledger is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if status == nil {
		status = NewStatus(nil, jobID, logger)
	}
	return &RunContext{
		JobID:        jobID,
		PipelineType: pipelineType,
		OutputPath:   outputPath,
		Ledger:       l,
		Status:       status,
		Logger:       logger.With("job", jobID),
	}, nil
}

func (rc *RunContext) workers() int {
	if rc.Workers > 0 {
		return rc.Workers
	}
	return runtime.NumCPU()
}

// Fail records failed samples for a stage and rewrites the failure report.
func (rc *RunContext) Fail(failedIDs []string, stage string) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.Ledger.Record(failedIDs, stage)
	return rc.Ledger.Write(filepath.Join(rc.OutputPath, FailedSamplesFile))
}

// Commands returns a copy of the queued commands.
func (rc *RunContext) Commands() []string {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return append([]string(nil), rc.cmds...)
}

func (rc *RunContext) addCommands(cmds ...string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.cmds = append(rc.cmds, cmds...)
}

// Status publishes job progress to the registry. Messages have the form
// "<current message> (<id>: <status>)".
type Status struct {
	updater registry.JobStatusUpdater
	jobID   string
	logger  *slog.Logger

	mu  sync.Mutex
	msg string
}

// NewStatus returns a Status for jobID. updater may be nil.
func NewStatus(updater registry.JobStatusUpdater, jobID string, logger *slog.Logger) *Status {
	if logger == nil {
		logger = slog.Default()
	}
	return &Status{updater: updater, jobID: jobID, logger: logger}
}

// UpdateCurrentMessage sets the current message and publishes it as is.
func (s *Status) UpdateCurrentMessage(ctx context.Context, msg string) error {
	s.mu.Lock()
	s.msg = msg
	s.mu.Unlock()
	return s.publish(ctx, msg)
}

// UpdateJobStep publishes the status of a sub-job under the current message.
func (s *Status) UpdateJobStep(ctx context.Context, status, id string) error {
	s.mu.Lock()
	msg := fmt.Sprintf("%s (%s: %s)", s.msg, id, status)
	s.mu.Unlock()
	return s.publish(ctx, msg)
}

func (s *Status) publish(ctx context.Context, msg string) error {
	s.logger.Info("job status", "job", s.jobID, "status", msg)
	if s.updater == nil {
		return nil
	}
	if err := s.updater.UpdateJobStep(ctx, s.jobID, msg); err != nil {
		return fmt.Errorf("publishing job status: %w", err)
	}
	return nil
}
