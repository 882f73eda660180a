package step

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gmaffy/klp/utils"
)

// CommandsFile is the name of the command log in the output path.
const CommandsFile = "cmds.log"

// Step runs the stages of one pipeline type.
type Step struct {
	*RunContext
	Kind     string
	Projects []string
}

// NewStep builds a step of the given kind. The kind must match the pipeline
// type of rc.
func NewStep(kind string, rc *RunContext, projects []string) (*Step, error) {
	if !ValidPipelineType(kind) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPipelineType, kind)
	}
	if rc == nil {
		return nil, fmt.Errorf("a run context is needed to create a %s step", kind)
	}
	if kind != rc.PipelineType {
		return nil, fmt.Errorf("cannot create a %s step using a %s-configured pipeline", kind, rc.PipelineType)
	}
	return &Step{RunContext: rc, Kind: kind, Projects: projects}, nil
}

// QualityControl runs the QC stage. Amplicon runs are QC'd downstream, so
// their output is only laid out as if QC had run. Other runs are audited
// for missing or empty FASTQ files.
func (s *Step) QualityControl(ctx context.Context) error {
	if err := s.Status.UpdateCurrentMessage(ctx, "Quality control"); err != nil {
		s.Logger.Warn("status update failed", "error", err)
	}
	if s.Kind == AmpliconType {
		return s.FakeAmpliconQC(ctx)
	}
	_, err := s.AuditFastq(ctx, filepath.Join(s.OutputPath, convertJobDir), "QCJob")
	return err
}

// GenerateCommands queues the archive commands run once every stage is done.
func (s *Step) GenerateCommands() {
	archives := []string{
		"tar zcvf logs-ConvertJob.tgz ConvertJob/logs",
		"tar zcvf logs-QCJob.tgz QCJob/logs",
	}
	if s.Kind == AmpliconType {
		archives = append(archives, "tar zcvf reports-ConvertJob.tgz ConvertJob/Reports")
	}
	dir := shellQuote(s.OutputPath)
	cmds := make([]string, len(archives))
	for i, a := range archives {
		cmds[i] = fmt.Sprintf("cd %s; %s", dir, a)
	}
	s.addCommands(cmds...)
}

// WriteCommands writes the queued commands to cmds.log, one per line.
func (s *Step) WriteCommands() error {
	cmds := s.Commands()
	return utils.ReplaceFile(filepath.Join(s.OutputPath, CommandsFile), func(w io.Writer) error {
		for _, c := range cmds {
			if _, err := fmt.Fprintln(w, c); err != nil {
				return err
			}
		}
		return nil
	})
}

// ExecuteCommands runs the queued commands in order and stops at the first
// failure.
func (s *Step) ExecuteCommands(ctx context.Context) error {
	if err := utils.CheckDeps("bash", "tar"); err != nil {
		return err
	}
	cmds := s.Commands()
	for i, c := range cmds {
		if err := s.Status.UpdateJobStep(ctx, "running", fmt.Sprintf("command %d/%d", i+1, len(cmds))); err != nil {
			s.Logger.Warn("status update failed", "error", err)
		}
		s.Logger.Info("executing command", "cmd", c)
		if err := utils.RunBashCmdVerbose(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
