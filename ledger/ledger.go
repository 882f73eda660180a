// Package ledger keeps track of the first processing stage at which each
// sample of a run failed.
package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/gmaffy/klp/utils"
	"github.com/gocarina/gocsv"
	"gopkg.in/guregu/null.v3"
)

// ErrDuplicateSample is returned by New when a sample id is listed twice.
var ErrDuplicateSample = errors.New("duplicate sample id")

// Sample is a sample known to the run.
type Sample struct {
	ID      string
	Project string
}

// Row is one failed sample in the failure report.
type Row struct {
	Project  string `csv:"Project"`
	SampleID string `csv:"Sample ID"`
	FailedAt string `csv:"Failed at"`
}

type entry struct {
	project string
	stage   null.String
}

// Ledger records failures. Once a sample has failed, its stage never
// changes: the earliest failure wins.
type Ledger struct {
	order   []string
	entries map[string]*entry
	logger  *slog.Logger
}

// New starts a ledger in which every sample is pending.
func New(samples []Sample, logger *slog.Logger) (*Ledger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Ledger{entries: make(map[string]*entry, len(samples)), logger: logger}
	for _, s := range samples {
		if _, ok := l.entries[s.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSample, s.ID)
		}
		l.order = append(l.order, s.ID)
		l.entries[s.ID] = &entry{project: s.Project}
	}
	return l, nil
}

// Record marks failedIDs as failed at stage, leaving earlier failures alone.
// Ids that are not part of the run are logged and ignored.
func (l *Ledger) Record(failedIDs []string, stage string) {
	for _, id := range failedIDs {
		e, ok := l.entries[id]
		if !ok {
			l.logger.Warn("failure recorded for unknown sample", "sample", id, "stage", stage)
			continue
		}
		if e.stage.Valid {
			continue
		}
		e.stage = null.StringFrom(stage)
		l.logger.Info("sample failed", "sample", id, "project", e.project, "stage", stage)
	}
}

// Samples returns the samples of the run in the order given to New.
func (l *Ledger) Samples() []Sample {
	out := make([]Sample, len(l.order))
	for i, id := range l.order {
		out[i] = Sample{ID: id, Project: l.entries[id].project}
	}
	return out
}

// Stage returns the stage at which id failed, if it has.
func (l *Ledger) Stage(id string) (string, bool) {
	e, ok := l.entries[id]
	if !ok || !e.stage.Valid {
		return "", false
	}
	return e.stage.String, true
}

// Finalize returns the failed samples in the order they were given to New.
func (l *Ledger) Finalize() []Row {
	var rows []Row
	for _, id := range l.order {
		e := l.entries[id]
		if !e.stage.Valid {
			continue
		}
		rows = append(rows, Row{Project: e.project, SampleID: id, FailedAt: e.stage.String})
	}
	return rows
}

// WriteReport writes the current failure rows as a tab-delimited table.
func (l *Ledger) WriteReport(w io.Writer) error {
	rows := l.Finalize()
	if rows == nil {
		rows = []Row{}
	}
	writer := csv.NewWriter(w)
	writer.Comma = '\t'
	return gocsv.MarshalCSV(&rows, gocsv.NewSafeCSVWriter(writer))
}

// Restore records the failures of an earlier report, so a resumed run keeps
// their stages.
func (l *Ledger) Restore(rows []Row) {
	for _, r := range rows {
		l.Record([]string{r.SampleID}, r.FailedAt)
	}
}

// ReadReport reads a report written by Write. A missing file has no rows.
func ReadReport(path string) ([]Row, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = '\t'
	var rows []Row
	if err := gocsv.UnmarshalCSV(reader, &rows); err != nil {
		return nil, fmt.Errorf("failure report %s: %w", path, err)
	}
	return rows, nil
}

// Write replaces the report at path with the current failure rows.
func (l *Ledger) Write(path string) error {
	return utils.ReplaceFile(path, l.WriteReport)
}
